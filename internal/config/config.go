// Package config is the environment-driven configuration surface for every
// other package: scraper enablement/URLs/keys, debrid provider credentials,
// rate-limit and circuit-breaker tuning, cache TTLs, and the adult-content
// filter. It follows the teacher's cmd/server/main.go approach (a flat
// struct with `env:"..."` tags parsed by caarlos0/env) generalized from a
// three-field struct to the full surface this system needs, and loads a
// .env file the same way via joho/godotenv.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the whole environment-derived configuration tree. Every field
// has a safe zero value so an unconfigured deployment still boots; callers
// decide whether to enable a scraper/provider based on whether its
// required fields are non-empty, the same pattern the teacher used for
// Prowlarr/RealDebrid in cmd/server/main.go.
type Config struct {
	Addon AddonConfig

	Prowlarr ProwlarrConfig
	Torrentio TorrentioConfig
	Zilean    ZileanConfig
	LiveTV    LiveTVConfig

	RealDebrid  DebridCredentials `envPrefix:"REALDEBRID_"`
	DebridLink  DebridCredentials `envPrefix:"DEBRIDLINK_"`
	Premiumize  DebridCredentials `envPrefix:"PREMIUMIZE_"`
	AllDebrid   DebridCredentials `envPrefix:"ALLDEBRID_"`
	TorBox      DebridCredentials `envPrefix:"TORBOX_"`
	Offcloud    DebridCredentials `envPrefix:"OFFCLOUD_"`
	EasyDebrid  DebridCredentials `envPrefix:"EASYDEBRID_"`
	PikPak      DebridCredentials `envPrefix:"PIKPAK_"`
	Seedr       DebridCredentials `envPrefix:"SEEDR_"`
	WebDAV      WebDAVConfig      `envPrefix:"WEBDAV_"`

	Cache    CacheConfig
	Store    StoreConfig
	Blob     BlobConfig
	Filter   FilterConfig
	Metadata MetadataConfig

	WorkerPoolSize int `env:"WORKER_POOL_SIZE" envDefault:"4"`
}

type AddonConfig struct {
	ID      string `env:"ADDON_ID" envDefault:"com.mediafusion.core"`
	Name    string `env:"ADDON_NAME" envDefault:"MediaFusion"`
	Version string `env:"ADDON_VERSION" envDefault:"1.0.0"`
	Port    string `env:"PORT" envDefault:"7000"`
}

type ProwlarrConfig struct {
	Enabled bool          `env:"PROWLARR_ENABLED" envDefault:"false"`
	URL     string        `env:"PROWLARR_URL"`
	APIKey  string        `env:"PROWLARR_API_KEY"`
	Timeout time.Duration `env:"PROWLARR_TIMEOUT" envDefault:"15s"`
}

type TorrentioConfig struct {
	Enabled bool          `env:"TORRENTIO_ENABLED" envDefault:"false"`
	BaseURL string        `env:"TORRENTIO_BASE_URL" envDefault:"https://torrentio.strem.fun"`
	Timeout time.Duration `env:"TORRENTIO_TIMEOUT" envDefault:"15s"`
}

type ZileanConfig struct {
	Enabled bool          `env:"ZILEAN_ENABLED" envDefault:"false"`
	BaseURL string        `env:"ZILEAN_BASE_URL"`
	Timeout time.Duration `env:"ZILEAN_TIMEOUT" envDefault:"15s"`
}

type LiveTVConfig struct {
	Enabled      bool          `env:"LIVETV_ENABLED" envDefault:"false"`
	Name         string        `env:"LIVETV_NAME" envDefault:"dlhd"`
	BaseURL      string        `env:"LIVETV_BASE_URL"`
	SchedulePath string        `env:"LIVETV_SCHEDULE_PATH" envDefault:"/schedule.json"`
	Timeout      time.Duration `env:"LIVETV_TIMEOUT" envDefault:"15s"`
}

// DebridCredentials covers every auth-strategy family in one struct.
// cmd/server builds the token-only and device-code providers from APIKey
// and the username+password providers from Username/Password; ClientID and
// ClientSecret are loaded but no provider reads them.
type DebridCredentials struct {
	Enabled      bool   `env:"ENABLED" envDefault:"false"`
	APIKey       string `env:"API_KEY"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Username     string `env:"USERNAME"`
	Password     string `env:"PASSWORD"`
}

type WebDAVConfig struct {
	Enabled  bool   `env:"ENABLED" envDefault:"false"`
	BaseURL  string `env:"BASE_URL"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
}

type CacheConfig struct {
	RedisURL           string        `env:"REDIS_URL"`
	LocalSizeBytes     int           `env:"CACHE_LOCAL_SIZE_BYTES" envDefault:"104857600"`
	ScraperTTL         time.Duration `env:"SCRAPER_CACHE_TTL" envDefault:"24h"`
	AvailabilityTTL    time.Duration `env:"AVAILABILITY_CACHE_TTL" envDefault:"168h"`
	SchedulerLockTTL   time.Duration `env:"SCHEDULER_LOCK_TTL" envDefault:"60s"`
	SchedulerHeartbeat time.Duration `env:"SCHEDULER_HEARTBEAT" envDefault:"20s"`
}

type StoreConfig struct {
	DSN string `env:"STORE_DSN" envDefault:"file:mediafusion.db?_pragma=busy_timeout(5000)"`
}

type BlobConfig struct {
	Backend         string `env:"BLOB_BACKEND" envDefault:"local"` // "local" or "s3"
	LocalDir        string `env:"BLOB_LOCAL_DIR" envDefault:"data/nzb"`
	S3Bucket        string `env:"BLOB_S3_BUCKET"`
	S3Region        string `env:"BLOB_S3_REGION"`
	S3Endpoint      string `env:"BLOB_S3_ENDPOINT"` // non-empty targets an S3-compatible store (MinIO, B2) over AWS S3 itself
	S3AccessKey     string `env:"BLOB_S3_ACCESS_KEY"`
	S3SecretKey     string `env:"BLOB_S3_SECRET_KEY"`
	S3PublicURLBase string `env:"BLOB_S3_PUBLIC_URL_BASE"`
}

type FilterConfig struct {
	AdultContentRegex string `env:"ADULT_CONTENT_REGEX"`
	MinVideoSizeBytes uint64 `env:"MIN_VIDEO_SIZE_BYTES" envDefault:"10485760"`
}

// MetadataConfig holds the per-provider settings for the Metadata
// Enricher's identity lookups (title/year/aka-titles resolution, not
// streams). Each provider is independently enabled since a deployment may
// have a key for some but not all of them.
type MetadataConfig struct {
	IMDbEnabled bool          `env:"METADATA_IMDB_ENABLED" envDefault:"true"`
	IMDbBaseURL string        `env:"METADATA_IMDB_BASE_URL" envDefault:"https://v3-cinemeta.strem.io"`

	TMDBEnabled bool          `env:"METADATA_TMDB_ENABLED" envDefault:"false"`
	TMDBAPIKey  string        `env:"METADATA_TMDB_API_KEY"`

	TVDBEnabled bool   `env:"METADATA_TVDB_ENABLED" envDefault:"false"`
	TVDBAPIKey  string `env:"METADATA_TVDB_API_KEY"`

	JikanEnabled bool `env:"METADATA_JIKAN_ENABLED" envDefault:"false"`

	KitsuEnabled bool `env:"METADATA_KITSU_ENABLED" envDefault:"false"`

	Timeout time.Duration `env:"METADATA_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment into a Config, first loading a .env file if
// present (ignored if absent, matching the teacher's autoload import which
// silently no-ops without a .env on disk).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
