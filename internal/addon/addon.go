// Package addon implements the Stremio addon protocol over the
// aggregation core: manifest, stream discovery, the debrid provider
// resolve redirect, and the /cache/status and /cache/submit availability
// endpoints spec.md §6 describes.
package addon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/mediafusion/core/internal/blobstore"
	"github.com/mediafusion/core/internal/cache"
	"github.com/mediafusion/core/internal/debrid"
	"github.com/mediafusion/core/internal/debrid/availability"
	"github.com/mediafusion/core/internal/debrid/singleflight"
	"github.com/mediafusion/core/internal/errs"
	"github.com/mediafusion/core/internal/filtersort"
	"github.com/mediafusion/core/internal/metadata"
	"github.com/mediafusion/core/internal/model"
	"github.com/mediafusion/core/internal/orchestrator"
	"github.com/mediafusion/core/internal/scraper"
	"github.com/mediafusion/core/internal/store"
)

const defaultSearchTimeout = 45 * time.Second

// Addon wires the aggregation core's components behind the Stremio addon
// protocol.
type Addon struct {
	id          string
	name        string
	version     string
	description string

	orchestrator *orchestrator.Orchestrator
	store        *store.Store
	providers    map[string]debrid.Provider
	availability *availability.Cache
	resolveOnce  *singleflight.Group
	cache        cache.Store
	metadata     *metadata.Enricher
	blobStore    blobstore.Store

	defaultAdultContentRegex string
}

type Option func(*Addon)

// GetStreamsResponse is the Stremio-protocol stream list the stream
// resource returns.
type GetStreamsResponse struct {
	Streams []StreamItem `json:"streams"`
}

// StreamRequest is the boundary between the routing handlers in this file
// and the core components: the orchestrator, store, and filter/sort engine
// never see a *fiber.Ctx, only this struct.
type StreamRequest struct {
	MediaExternalID string
	Kind            model.Kind
	Season          int
	Episode         int
	Preferences     model.UserPreferenceVector
	UserID          string
	ChosenProvider  string
}

// StreamResponse is the result of a StreamRequest: ranked candidates plus
// the histogram explaining every drop, so a caller can suggest relaxing
// preferences when the ranked list comes back short.
type StreamResponse struct {
	RankedStreams []model.Stream
	DropHistogram filtersort.DropHistogram
}

func New(opts ...Option) *Addon {
	a := &Addon{
		description: "Aggregates torrent, usenet, and live-TV streams across debrid providers",
		providers:   map[string]debrid.Provider{},
		resolveOnce: singleflight.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.orchestrator == nil {
		log.Warn("addon: no orchestrator configured, every stream request will return an empty list")
	}
	return a
}

func (add *Addon) HandleGetManifest(c *fiber.Ctx) error {
	configRequired := false
	if userDataRaw := c.Params("userData"); userDataRaw != "" {
		if _, err := parseUserData(c); err != nil {
			configRequired = true
		}
	}

	manifest := &Manifest{
		ID:          add.id,
		Name:        add.name,
		Description: add.description,
		Version:     add.version,
		ResourceItems: []ResourceItem{
			{
				Name:       ResourceStream,
				Types:      []ContentType{ContentTypeMovie, ContentTypeSeries, ContentTypeTV, ContentTypeEvent},
				IDPrefixes: []string{"tt", "mf"},
			},
		},
		Types:      []ContentType{ContentTypeMovie, ContentTypeSeries, ContentTypeTV, ContentTypeEvent},
		Catalogs:   []CatalogItem{},
		IDPrefixes: []string{"tt", "mf"},
		Logo:       c.BaseURL() + "/logo",
		BehaviorHints: &BehaviorHints{
			Configurable:          true,
			ConfigurationRequired: configRequired,
		},
	}
	return c.JSON(manifest)
}

func (add *Addon) HandleLogo(c *fiber.Ctx) error {
	c.Set("Content-Type", "image/svg+xml")
	c.Set("Cache-Control", "public, max-age=86400")
	return c.SendFile("/bin/logo.svg")
}

// HandleGetStreams answers /stream/{type}/{id}.json.
func (add *Addon) HandleGetStreams(c *fiber.Ctx) error {
	userData, err := parseUserData(c)
	if err != nil {
		userData = NewUserDataWithDefaults()
	}

	req, err := add.buildStreamRequest(c, userData)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	resp := add.resolveStreams(c.Context(), req)
	if len(resp.RankedStreams) == 0 {
		log.Infof("addon: empty ranked list for %s (drop histogram: %v)", req.MediaExternalID, resp.DropHistogram)
	}

	results := make([]StreamItem, 0, len(resp.RankedStreams))
	for _, st := range resp.RankedStreams {
		results = append(results, add.toStreamItem(c, st, req))
	}

	c.Set("Cache-Control", "max-age=1800, public, stale-while-revalidate=604800, stale-if-error=604800")
	return c.JSON(GetStreamsResponse{Streams: results})
}

func (add *Addon) buildStreamRequest(c *fiber.Ctx, userData *UserData) (StreamRequest, error) {
	id := c.Params("id")
	contentType := ContentType(c.Params("type"))
	kind := fromContentType(contentType)

	season, episode := 0, 0
	if contentType == ContentTypeSeries {
		tokens := strings.Split(id, "%3A")
		if len(tokens) != 3 {
			return StreamRequest{}, errors.New("invalid stremio id")
		}
		id = tokens[0]
		season, _ = strconv.Atoi(tokens[1])
		episode, _ = strconv.Atoi(tokens[2])
	}

	prefs := userData.Preferences
	if prefs.AdultContentRegex == "" {
		prefs.AdultContentRegex = add.defaultAdultContentRegex
	}

	return StreamRequest{
		MediaExternalID: id,
		Kind:            kind,
		Season:          season,
		Episode:         episode,
		Preferences:     prefs,
		UserID:          getIPAddress(c),
		ChosenProvider:  userData.ChosenProvider,
	}, nil
}

// resolveStreams is the StreamRequest -> StreamResponse path spec.md §6
// describes: fan out live through the orchestrator, merge in whatever the
// store already has, and run the union through the Filter/Sort Engine.
func (add *Addon) resolveStreams(ctx context.Context, req StreamRequest) StreamResponse {
	ctx, cancel := context.WithTimeout(ctx, defaultSearchTimeout)
	defer cancel()

	streams, err := add.gatherStreams(ctx, req)
	if err != nil {
		log.Warnf("addon: gather streams failed for %s: %v", req.MediaExternalID, err)
	}

	ranked, hist := filtersort.Apply(streams, req.Preferences, req.MediaExternalID)
	return StreamResponse{RankedStreams: ranked, DropHistogram: hist}
}

func (add *Addon) gatherStreams(ctx context.Context, req StreamRequest) ([]model.Stream, error) {
	scraperReq := scraper.Request{
		MediaID: req.MediaExternalID,
		Kind:    req.Kind,
		Season:  req.Season,
		Episode: req.Episode,
	}

	var live []model.Stream
	var liveErr error
	if add.orchestrator != nil {
		live, liveErr = add.orchestrator.Run(ctx, scraperReq)
	}

	var persisted []model.Stream
	if mediaID, ok := add.ensureMedia(ctx, req); ok {
		var season, episode *int
		if req.Kind == model.KindSeries {
			season, episode = &req.Season, &req.Episode
		}
		if s, err := add.store.StreamsFor(ctx, mediaID, season, episode); err == nil {
			persisted = s
		}
	}

	return mergeByInfoHash(live, persisted), liveErr
}

// ensureMedia resolves the store row for req's external id, lazily
// enriching and creating it from the Metadata Enricher on first sight so a
// title's later scheduled ingest has a row to link streams against.
func (add *Addon) ensureMedia(ctx context.Context, req StreamRequest) (int64, bool) {
	if add.store == nil {
		return 0, false
	}
	if mediaID, found, err := add.store.FindMediaID(ctx, req.MediaExternalID, req.Kind); err == nil && found {
		return mediaID, true
	}
	if add.metadata == nil {
		return 0, false
	}

	media, err := add.metadata.Enrich(ctx, metadata.Request{ExternalID: req.MediaExternalID, Kind: req.Kind})
	if err != nil {
		log.Warnf("addon: metadata enrich failed for %s: %v", req.MediaExternalID, err)
		return 0, false
	}
	media.ExternalID = req.MediaExternalID
	media.Kind = req.Kind

	mediaID, err := add.store.UpsertMedia(ctx, media)
	if err != nil {
		log.Warnf("addon: media upsert failed for %s: %v", req.MediaExternalID, err)
		return 0, false
	}
	return mediaID, true
}

func mergeByInfoHash(sets ...[]model.Stream) []model.Stream {
	byHash := map[string]model.Stream{}
	order := make([]string, 0)
	for _, set := range sets {
		for _, st := range set {
			if _, ok := byHash[st.InfoHash]; !ok {
				order = append(order, st.InfoHash)
			}
			byHash[st.InfoHash] = st
		}
	}
	out := make([]model.Stream, 0, len(order))
	for _, h := range order {
		out = append(out, byHash[h])
	}
	return out
}

// HandleResolve answers the provider-resolve call: it submits and resolves
// infoHash against the named provider, deduplicating concurrent callers
// through resolveOnce, and redirects to the direct URL. A resolve failure
// redirects to the static error asset matching its errs.Kind instead of
// failing the request, per spec.md §7's propagation policy.
func (add *Addon) HandleResolve(c *fiber.Ctx) error {
	providerName := strings.ToLower(c.Params("provider"))
	infoHash := strings.ToLower(c.Params("infoHash"))
	fileHint := c.Params("fileHint")

	provider, ok := add.providers[providerName]
	if !ok {
		return add.redirectToErrorAsset(c, "unknown")
	}

	if add.availability != nil && add.availability.IsMarkedUnresolvable(c.Context(), provider.Name(), infoHash) {
		return add.redirectToErrorAsset(c, "content_unavailable")
	}

	directURL, err := add.resolveOnce.Do(c.Context(), provider.Name(), infoHash, func(ctx context.Context) (string, error) {
		return add.submitAndResolve(ctx, provider, infoHash, fileHint)
	})
	if err != nil {
		kind, _ := errs.KindOf(err)
		log.WithContext(c.Context()).Warnf("addon: resolve %s/%s failed: %v", provider.Name(), infoHash, err)
		if kind == errs.KindProviderContent && add.availability != nil {
			_ = add.availability.MarkUnresolvable(c.Context(), provider.Name(), infoHash, 7*24*time.Hour)
		}
		return add.redirectToErrorAsset(c, resolveErrorKind(kind))
	}

	c.Set("Cache-Control", "no-store")
	return c.Redirect(directURL, fiber.StatusFound)
}

// submitAndResolve skips Submit when the availability cache already reports
// infoHash cached on provider, per spec.md S3: a cache hit costs exactly one
// resolve call and zero submit calls.
func (add *Addon) submitAndResolve(ctx context.Context, provider debrid.Provider, infoHash, fileHint string) (string, error) {
	cached := false
	if add.availability != nil {
		status, err := add.availability.Check(ctx, provider, []string{infoHash})
		if err == nil {
			cached = status[infoHash]
		}
	}
	if !cached {
		if _, err := provider.Submit(ctx, infoHash, magnetFromHash(infoHash)); err != nil {
			return "", err
		}
	}
	return provider.Resolve(ctx, infoHash, fileHint)
}

func (add *Addon) redirectToErrorAsset(c *fiber.Ctx, kind string) error {
	c.Set("Cache-Control", "no-store")
	return c.Redirect(debrid.ErrorAssetPath(kind), fiber.StatusFound)
}

func resolveErrorKind(k errs.Kind) string {
	switch k {
	case errs.KindProviderAuth:
		return "token_expired"
	case errs.KindProviderQuota:
		return "quota_exceeded"
	case errs.KindProviderContent:
		return "content_unavailable"
	default:
		return "unknown"
	}
}

func magnetFromHash(infoHash string) string {
	return "magnet:?xt=urn:btih:" + infoHash
}

type cacheStatusRequest struct {
	Service    string   `json:"service"`
	InfoHashes []string `json:"info_hashes"`
}

type cacheStatusResponse struct {
	CachedStatus map[string]bool `json:"cached_status"`
}

// HandleCacheStatus answers POST /cache/status.
func (add *Addon) HandleCacheStatus(c *fiber.Ctx) error {
	var req cacheStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	provider, ok := add.providers[strings.ToLower(req.Service)]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown service: " + req.Service})
	}
	if add.availability == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "availability cache not configured"})
	}

	status, err := add.availability.Check(c.Context(), provider, req.InfoHashes)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(cacheStatusResponse{CachedStatus: status})
}

type cacheSubmitRequest struct {
	Service    string   `json:"service"`
	InfoHashes []string `json:"info_hashes"`
}

type cacheSubmitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HandleCacheSubmit answers POST /cache/submit: every hash is submitted to
// the named provider's cloud directly, building a bare magnet URI since
// this layer never holds the original torrent metadata, only the hash.
func (add *Addon) HandleCacheSubmit(c *fiber.Ctx) error {
	var req cacheSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	provider, ok := add.providers[strings.ToLower(req.Service)]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown service: " + req.Service})
	}

	var failed []string
	for _, h := range req.InfoHashes {
		if !model.ValidInfoHash(h) {
			failed = append(failed, h)
			continue
		}
		if _, err := provider.Submit(c.Context(), h, magnetFromHash(h)); err != nil {
			log.WithContext(c.Context()).Warnf("addon: cache submit %s/%s failed: %v", provider.Name(), h, err)
			failed = append(failed, h)
		}
	}

	if len(failed) > 0 {
		return c.JSON(cacheSubmitResponse{
			Success: false,
			Message: fmt.Sprintf("failed to submit %d/%d hashes", len(failed), len(req.InfoHashes)),
		})
	}
	return c.JSON(cacheSubmitResponse{Success: true, Message: fmt.Sprintf("submitted %d hashes", len(req.InfoHashes))})
}

// HandleNZBDownload serves a blob-stored NZB file by guid, the local-disk
// counterpart to the S3 backend's own public URL.
func (add *Addon) HandleNZBDownload(c *fiber.Ctx) error {
	if add.blobStore == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "blob storage not configured"})
	}
	data, err := add.blobStore.Get(c.Context(), c.Params("guid"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "nzb not found"})
	}
	c.Set("Content-Type", "application/x-nzb")
	c.Set("Cache-Control", "public, max-age=86400")
	return c.Send(data)
}

func (add *Addon) toStreamItem(c *fiber.Ctx, st model.Stream, req StreamRequest) StreamItem {
	item := StreamItem{
		Name:  formatStreamName(st),
		Title: formatStreamTitle(st),
		BehaviorHints: &StreamBehaviorHints{
			FileName:    st.DisplayName,
			BingleGroup: bingeGroupFor(req.MediaExternalID, st),
			VideoSize:   st.SizeBytes,
		},
	}

	switch st.Payload {
	case model.PayloadDirectURL, model.PayloadLiveM3U8, model.PayloadAceStream:
		item.URL = st.SourceURL
	default:
		if req.ChosenProvider != "" {
			item.URL = fmt.Sprintf("%s/resolve/%s/%s", c.BaseURL(), req.ChosenProvider, st.InfoHash)
		} else {
			item.InfoHash = st.InfoHash
		}
	}

	return item
}

func bingeGroupFor(mediaID string, st model.Stream) string {
	return fmt.Sprintf("mediafusion-%s-%s-%s", mediaID, st.Resolution, strings.Join(st.Quality, "-"))
}

func formatStreamName(st model.Stream) string {
	lines := []string{"MediaFusion"}
	resolution := st.Resolution
	if resolution == "" {
		resolution = "Unknown"
	}
	lines = append(lines, fmt.Sprintf("[%s]", resolution))
	if len(st.HDR) > 0 {
		lines = append(lines, fmt.Sprintf("[%s]", strings.ToUpper(strings.Join(st.HDR, "/"))))
	}
	return strings.Join(lines, "\n")
}

func formatStreamTitle(st model.Stream) string {
	cleanTitle := strings.Join(strings.Fields(strings.ReplaceAll(st.DisplayName, ".", " ")), " ")
	if cleanTitle == "" {
		cleanTitle = "Unknown title"
	}

	var seeders uint
	if st.Seeders != nil {
		seeders = *st.Seeders
	}
	info := fmt.Sprintf("\U0001F464 %d | \U0001F4BE %s", seeders, bytesConvert(st.SizeBytes))
	if len(st.Quality) > 0 {
		info = fmt.Sprintf("%s | [%s]", info, strings.ToUpper(strings.Join(st.Quality, " ")))
	}

	source := "unknown"
	if len(st.Source) > 0 {
		source = strings.Join(st.Source, ", ")
	}
	lines := []string{cleanTitle, info, fmt.Sprintf("\U0001F50D %s", source)}
	if len(st.Languages) > 0 {
		lines = append(lines, fmt.Sprintf("\U0001F30D %s", strings.ToUpper(strings.Join(st.Languages, ", "))))
	}
	return strings.Join(lines, "\n")
}

func fromContentType(ct ContentType) model.Kind {
	switch ct {
	case ContentTypeSeries:
		return model.KindSeries
	case ContentTypeTV:
		return model.KindTV
	case ContentTypeEvent:
		return model.KindEvent
	default:
		return model.KindMovie
	}
}

func getIPAddress(c *fiber.Ctx) string {
	ips := c.GetReqHeaders()["Cf-Connecting-Ip"]
	if len(ips) > 0 {
		return ips[0]
	}
	return ""
}

func parseUserData(c *fiber.Ctx) (*UserData, error) {
	raw := c.Params("userData")
	if raw == "" {
		return nil, errors.New("configuration is required")
	}

	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return nil, errors.New("invalid userData")
	}

	userData := &UserData{}
	if err := json.Unmarshal([]byte(decoded), userData); err != nil {
		return nil, errors.New("invalid userData")
	}
	userData.ApplyDefaults()
	return userData, nil
}
