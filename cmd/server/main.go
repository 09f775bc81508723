package main

import (
	"context"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/mediafusion/core/internal/addon"
	"github.com/mediafusion/core/internal/blobstore"
	"github.com/mediafusion/core/internal/breaker"
	"github.com/mediafusion/core/internal/cache"
	"github.com/mediafusion/core/internal/config"
	"github.com/mediafusion/core/internal/debrid"
	"github.com/mediafusion/core/internal/debrid/alldebrid"
	"github.com/mediafusion/core/internal/debrid/availability"
	"github.com/mediafusion/core/internal/debrid/debridlink"
	"github.com/mediafusion/core/internal/debrid/easydebrid"
	"github.com/mediafusion/core/internal/debrid/offcloud"
	"github.com/mediafusion/core/internal/debrid/p2p"
	"github.com/mediafusion/core/internal/debrid/pikpak"
	"github.com/mediafusion/core/internal/debrid/premiumize"
	"github.com/mediafusion/core/internal/debrid/realdebrid"
	"github.com/mediafusion/core/internal/debrid/seedr"
	"github.com/mediafusion/core/internal/debrid/torbox"
	"github.com/mediafusion/core/internal/debrid/webdav"
	"github.com/mediafusion/core/internal/metadata"
	"github.com/mediafusion/core/internal/orchestrator"
	"github.com/mediafusion/core/internal/ratelimit"
	"github.com/mediafusion/core/internal/scraper"
	"github.com/mediafusion/core/internal/scraper/livetv"
	"github.com/mediafusion/core/internal/scraper/prowlarr"
	"github.com/mediafusion/core/internal/scraper/torrentio"
	"github.com/mediafusion/core/internal/scraper/zilean"
	"github.com/mediafusion/core/internal/store"
)

var maskedPathPattern = regexp.MustCompile(`^/([\w%]+)/(?:configure|stream|resolve|manifest)`)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	cacheStore, err := buildCache(cfg.Cache)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}

	st, err := store.New(cfg.Store.DSN)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()

	blob, err := blobstore.New(context.Background(), cfg.Blob)
	if err != nil {
		log.Fatalf("blobstore: %v", err)
	}

	avail := availability.New(cacheStore, cfg.Cache.AvailabilityTTL)

	orch := orchestrator.New(
		buildScrapers(cfg, cacheStore),
		orchestrator.WithParseWorkers(cfg.WorkerPoolSize),
	)

	enricher := metadata.New(buildMetadataProviders(cfg.Metadata)...)

	add := addon.New(
		addon.WithID(cfg.Addon.ID),
		addon.WithName(cfg.Addon.Name),
		addon.WithVersion(cfg.Addon.Version),
		addon.WithOrchestrator(orch),
		addon.WithStore(st),
		addon.WithAvailability(avail),
		addon.WithCacheStore(cacheStore),
		addon.WithMetadataEnricher(enricher),
		addon.WithBlobStore(blob),
		addon.WithDefaultAdultContentRegex(cfg.Filter.AdultContentRegex),
	)
	for _, p := range buildProviders(cfg) {
		addon.WithProvider(p)(add)
	}

	nodeID := uuid.NewString()
	runScheduler(context.Background(), cfg, cacheStore, orch, st, nodeID)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(logger.New(logger.Config{
		CustomTags: map[string]logger.LogFunc{
			"maskedPath": func(output logger.Buffer, c *fiber.Ctx, data *logger.Data, extraParam string) (int, error) {
				urlPath := c.Path()
				loc := maskedPathPattern.FindStringSubmatchIndex(urlPath)
				if len(loc) > 3 {
					return output.WriteString(urlPath[:loc[2]] + "***" + urlPath[loc[3]:])
				}
				return output.WriteString(urlPath)
			},
		},
		Format:        "${time} | ${status} | ${latency} | ${ip} | ${method} | ${maskedPath} | ${error}\n",
		TimeFormat:    "15:04:05",
		TimeZone:      "Local",
		TimeInterval:  500 * time.Millisecond,
		Output:        os.Stdout,
		DisableColors: false,
	}))

	registerRoutes(app, add)

	sslEnabled := os.Getenv("SSL_ENABLED") == "true"
	if sslEnabled {
		go func() {
			httpsApp := fiber.New(fiber.Config{AppName: cfg.Addon.Name + " SSL"})
			httpsApp.Use(cors.New())
			httpsApp.Use(recover.New(recover.Config{EnableStackTrace: true}))
			registerRoutes(httpsApp, add)

			certFile := "/etc/ssl/local-ip-co/server.pem"
			keyFile := "/etc/ssl/local-ip-co/server.key"
			log.Infof("Starting HTTPS server on :7443 with SSL domain: %s", os.Getenv("SSL_DOMAIN"))
			log.Fatal(httpsApp.ListenTLS(":7443", certFile, keyFile))
		}()
	}

	log.Infof("Starting HTTP server on :%s", cfg.Addon.Port)
	log.Fatal(app.Listen(":" + cfg.Addon.Port))
}

func registerRoutes(app *fiber.App, add *addon.Addon) {
	app.Get("/manifest.json", add.HandleGetManifest)
	app.Get("/:userData/manifest.json", add.HandleGetManifest)
	app.Get("/logo", add.HandleLogo)
	app.Get("/:userData/logo", add.HandleLogo)
	app.Get("/stream/:type/:id.json", add.HandleGetStreams)
	app.Get("/:userData/stream/:type/:id.json", add.HandleGetStreams)
	app.Get("/resolve/:provider/:infoHash", add.HandleResolve)
	app.Get("/resolve/:provider/:infoHash/:fileHint", add.HandleResolve)
	app.Get("/nzb/:guid", add.HandleNZBDownload)
	app.Post("/cache/status", add.HandleCacheStatus)
	app.Post("/cache/submit", add.HandleCacheSubmit)
}

func buildCache(cfg config.CacheConfig) (cache.Store, error) {
	if cfg.RedisURL != "" {
		return cache.NewRedis(cfg.RedisURL)
	}
	return cache.NewLocal(cfg.LocalSizeBytes), nil
}

// buildScrapers wraps every enabled scraper plugin in the standard
// cache/rate-limit/breaker/retry decorator chain before handing it to the
// orchestrator, the same shape the teacher wrapped its single Prowlarr
// client in.
func buildScrapers(cfg *config.Config, cacheStore cache.Store) []scraper.Scraper {
	var scrapers []scraper.Scraper

	decorate := func(name string, base scraper.Scraper) scraper.Scraper {
		return scraper.New(base,
			scraper.WithCache(cacheStore),
			scraper.WithRateLimit(ratelimit.New(name, 5, 10)),
			scraper.WithBreaker(breaker.New(name, breaker.DefaultSettings())),
			scraper.WithRetries(2),
		)
	}

	if cfg.Prowlarr.Enabled && cfg.Prowlarr.URL != "" && cfg.Prowlarr.APIKey != "" {
		scrapers = append(scrapers, decorate("prowlarr", prowlarr.New(cfg.Prowlarr.URL, cfg.Prowlarr.APIKey, cfg.Cache.ScraperTTL)))
	}
	if cfg.Torrentio.Enabled {
		scrapers = append(scrapers, decorate("torrentio", torrentio.New(cfg.Torrentio.BaseURL, cfg.Cache.ScraperTTL)))
	}
	if cfg.Zilean.Enabled && cfg.Zilean.BaseURL != "" {
		scrapers = append(scrapers, decorate("zilean", zilean.New(cfg.Zilean.BaseURL, cfg.Cache.ScraperTTL)))
	}
	if cfg.LiveTV.Enabled && cfg.LiveTV.BaseURL != "" {
		scrapers = append(scrapers, decorate(cfg.LiveTV.Name, livetv.New(cfg.LiveTV.Name, cfg.LiveTV.BaseURL, cfg.LiveTV.SchedulePath, cfg.Cache.ScraperTTL)))
	}

	return scrapers
}

func buildProviders(cfg *config.Config) []debrid.Provider {
	var providers []debrid.Provider

	if cfg.RealDebrid.Enabled && cfg.RealDebrid.APIKey != "" {
		providers = append(providers, realdebrid.New(cfg.RealDebrid.APIKey, "", 15*time.Second))
	}
	if cfg.AllDebrid.Enabled && cfg.AllDebrid.APIKey != "" {
		providers = append(providers, alldebrid.New(cfg.AllDebrid.APIKey, 15*time.Second))
	}
	if cfg.TorBox.Enabled && cfg.TorBox.APIKey != "" {
		providers = append(providers, torbox.New(cfg.TorBox.APIKey, 15*time.Second))
	}
	if cfg.Offcloud.Enabled && cfg.Offcloud.APIKey != "" {
		providers = append(providers, offcloud.New(cfg.Offcloud.APIKey, 15*time.Second))
	}
	if cfg.EasyDebrid.Enabled && cfg.EasyDebrid.APIKey != "" {
		providers = append(providers, easydebrid.New(cfg.EasyDebrid.APIKey, 15*time.Second))
	}
	if cfg.DebridLink.Enabled && cfg.DebridLink.APIKey != "" {
		providers = append(providers, debridlink.New(cfg.DebridLink.APIKey, 15*time.Second))
	}
	if cfg.Premiumize.Enabled && cfg.Premiumize.APIKey != "" {
		providers = append(providers, premiumize.New(cfg.Premiumize.APIKey, 15*time.Second))
	}
	if cfg.PikPak.Enabled && cfg.PikPak.Username != "" {
		providers = append(providers, pikpak.New(cfg.PikPak.Username, cfg.PikPak.Password, 15*time.Second))
	}
	if cfg.Seedr.Enabled && cfg.Seedr.Username != "" {
		providers = append(providers, seedr.New(cfg.Seedr.Username, cfg.Seedr.Password, 15*time.Second))
	}
	if cfg.WebDAV.Enabled && cfg.WebDAV.BaseURL != "" {
		providers = append(providers, webdav.New(cfg.WebDAV.BaseURL, cfg.WebDAV.BaseURL, cfg.WebDAV.Username, cfg.WebDAV.Password, 15*time.Second))
	}
	providers = append(providers, p2p.New())

	return providers
}

func buildMetadataProviders(cfg config.MetadataConfig) []metadata.Provider {
	var providers []metadata.Provider
	if cfg.IMDbEnabled {
		providers = append(providers, metadata.NewCinemeta(cfg.IMDbBaseURL, cfg.Timeout))
	}
	if cfg.TMDBEnabled && cfg.TMDBAPIKey != "" {
		providers = append(providers, metadata.NewTMDB(cfg.TMDBAPIKey, cfg.Timeout))
	}
	if cfg.TVDBEnabled && cfg.TVDBAPIKey != "" {
		providers = append(providers, metadata.NewTVDB(cfg.TVDBAPIKey, cfg.Timeout))
	}
	if cfg.JikanEnabled {
		providers = append(providers, metadata.NewJikan(cfg.Timeout))
	}
	if cfg.KitsuEnabled {
		providers = append(providers, metadata.NewKitsu(cfg.Timeout))
	}
	return providers
}

// runScheduler starts the leader-election loop spec.md §4.7 describes: only
// the replica holding the advisory lock runs background ingest, so a
// multi-replica deployment never double-scrapes the same title.
func runScheduler(ctx context.Context, cfg *config.Config, cacheStore cache.Store, orch *orchestrator.Orchestrator, st *store.Store, nodeID string) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			select {
			case <-ctx.Done():
				stop()
				return
			default:
			}

			acquired, err := orchestrator.TryAcquireLeader(ctx, cacheStore, nodeID)
			if err != nil {
				log.Warnf("scheduler: leader election failed: %v", err)
				time.Sleep(cfg.Cache.SchedulerHeartbeat)
				continue
			}
			if acquired {
				log.Infof("scheduler: %s became leader, starting scheduled ingest", nodeID)
				go orchestrator.RunLeaderHeartbeat(ctx, cacheStore, nodeID)
				runScheduledIngestLoop(ctx, orch, st)
				return
			}
			time.Sleep(cfg.Cache.SchedulerHeartbeat)
		}
	}()
}

// runScheduledIngestLoop runs RunScheduledScrape over the staleMedia
// backlog every scheduledIngestInterval until ctx is canceled, the
// background-refresh half of spec.md §4.7 the leader-only lock guards.
func runScheduledIngestLoop(ctx context.Context, orch *orchestrator.Orchestrator, st *store.Store) {
	const (
		scheduledIngestInterval = 15 * time.Minute
		staleMediaBatchSize     = 50
	)

	ticker := time.NewTicker(scheduledIngestInterval)
	defer ticker.Stop()

	for {
		stale, err := st.ListStaleMedia(ctx, staleMediaBatchSize)
		if err != nil {
			log.Warnf("scheduler: list stale media failed: %v", err)
		} else if len(stale) > 0 {
			reqs := make([]scraper.Request, len(stale))
			for i, m := range stale {
				reqs[i] = scraper.Request{MediaID: m.ExternalID, Kind: m.Kind, Title: m.Title, Year: m.Year}
			}
			metrics, err := orch.RunScheduledScrape(ctx, st, reqs, "", true)
			if err != nil {
				log.Warnf("scheduler: scheduled scrape failed: %v", err)
			} else {
				log.Infof("scheduler: ingest run stored %d/%d streams across %d media", metrics.StreamsStored, metrics.StreamsFound, len(stale))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
