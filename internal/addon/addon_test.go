package addon

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediafusion/core/internal/errs"
	"github.com/mediafusion/core/internal/model"
)

func hash(suffix string) string {
	base := "0123456789abcdef0123456789abcdef0123456"
	return base[:40-len(suffix)] + suffix
}

func TestMergeByInfoHash_LaterSetWins(t *testing.T) {
	live := []model.Stream{{InfoHash: hash("1"), DisplayName: "live"}}
	persisted := []model.Stream{{InfoHash: hash("1"), DisplayName: "persisted"}, {InfoHash: hash("2"), DisplayName: "only-persisted"}}

	merged := mergeByInfoHash(live, persisted)

	require.Len(t, merged, 2)
	assert.Equal(t, "persisted", merged[0].DisplayName)
	assert.Equal(t, "only-persisted", merged[1].DisplayName)
}

func TestMergeByInfoHash_PreservesFirstSeenOrder(t *testing.T) {
	a := []model.Stream{{InfoHash: hash("2")}, {InfoHash: hash("1")}}
	b := []model.Stream{{InfoHash: hash("3")}}

	merged := mergeByInfoHash(a, b)

	require.Len(t, merged, 3)
	assert.Equal(t, hash("2"), merged[0].InfoHash)
	assert.Equal(t, hash("1"), merged[1].InfoHash)
	assert.Equal(t, hash("3"), merged[2].InfoHash)
}

func TestResolveErrorKind(t *testing.T) {
	assert.Equal(t, "token_expired", resolveErrorKind(errs.KindProviderAuth))
	assert.Equal(t, "quota_exceeded", resolveErrorKind(errs.KindProviderQuota))
	assert.Equal(t, "content_unavailable", resolveErrorKind(errs.KindProviderContent))
	assert.Equal(t, "unknown", resolveErrorKind(errs.KindTransientSource))
}

func TestMagnetFromHash(t *testing.T) {
	assert.Equal(t, "magnet:?xt=urn:btih:"+hash("1"), magnetFromHash(hash("1")))
}

func TestFromContentType(t *testing.T) {
	assert.Equal(t, model.KindMovie, fromContentType(ContentTypeMovie))
	assert.Equal(t, model.KindSeries, fromContentType(ContentTypeSeries))
	assert.Equal(t, model.KindTV, fromContentType(ContentTypeTV))
	assert.Equal(t, model.KindEvent, fromContentType(ContentTypeEvent))
	assert.Equal(t, model.KindMovie, fromContentType(ContentType("unknown")))
}

func TestFormatStreamName_IncludesResolutionAndHDR(t *testing.T) {
	name := formatStreamName(model.Stream{Resolution: "1080p", HDR: []string{"hdr10"}})
	assert.Contains(t, name, "MediaFusion")
	assert.Contains(t, name, "[1080p]")
	assert.Contains(t, name, "[HDR10]")
}

func TestFormatStreamName_UnknownResolution(t *testing.T) {
	name := formatStreamName(model.Stream{})
	assert.Contains(t, name, "[Unknown]")
}

func TestFormatStreamTitle_CleansDotsAndShowsSeedersAndSize(t *testing.T) {
	seeders := uint(42)
	title := formatStreamTitle(model.Stream{
		DisplayName: "Movie.Title.2024.1080p",
		Seeders:     &seeders,
		SizeBytes:   1 << 30,
		Source:      []string{"prowlarr"},
		Languages:   []string{"english"},
	})
	assert.Contains(t, title, "Movie Title 2024 1080p")
	assert.Contains(t, title, "42")
	assert.Contains(t, title, "1 GB")
	assert.Contains(t, title, "prowlarr")
	assert.Contains(t, title, "ENGLISH")
}

func TestBingeGroupFor_StableAcrossEpisodesOfSameQuality(t *testing.T) {
	st := model.Stream{Resolution: "1080p", Quality: []string{"web-dl"}}
	assert.Equal(t, bingeGroupFor("tt1", st), bingeGroupFor("tt1", st))
}

func TestToStreamItem_DirectURLPayloadUsesSourceURL(t *testing.T) {
	add := &Addon{}
	st := model.Stream{InfoHash: hash("1"), Payload: model.PayloadDirectURL, SourceURL: "https://example.com/stream.mp4"}
	item := add.toStreamItem(nil, st, StreamRequest{MediaExternalID: "tt1"})
	assert.Equal(t, "https://example.com/stream.mp4", item.URL)
	assert.Empty(t, item.InfoHash)
}

func TestToStreamItem_TorrentWithoutChosenProviderUsesInfoHash(t *testing.T) {
	add := &Addon{}
	st := model.Stream{InfoHash: hash("1"), Payload: model.PayloadTorrent}
	item := add.toStreamItem(nil, st, StreamRequest{MediaExternalID: "tt1"})
	assert.Equal(t, hash("1"), item.InfoHash)
	assert.Empty(t, item.URL)
}

func TestBuildStreamRequest_SeriesIDSplitsOnLiteralPercent3A(t *testing.T) {
	add := New()
	var captured StreamRequest
	app := fiber.New()
	app.Get("/stream/:type/:id.json", func(c *fiber.Ctx) error {
		req, err := add.buildStreamRequest(c, NewUserDataWithDefaults())
		if err != nil {
			return err
		}
		captured = req
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/stream/series/tt1234567%3A1%3A2.json", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	_, _ = io.ReadAll(resp.Body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "tt1234567", captured.MediaExternalID)
	assert.Equal(t, 1, captured.Season)
	assert.Equal(t, 2, captured.Episode)
	assert.Equal(t, model.KindSeries, captured.Kind)
}

func TestBuildStreamRequest_MovieHasNoSeasonEpisode(t *testing.T) {
	add := New()
	var captured StreamRequest
	app := fiber.New()
	app.Get("/stream/:type/:id.json", func(c *fiber.Ctx) error {
		req, err := add.buildStreamRequest(c, NewUserDataWithDefaults())
		if err != nil {
			return err
		}
		captured = req
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/stream/movie/tt1234567.json", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	_, _ = io.ReadAll(resp.Body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "tt1234567", captured.MediaExternalID)
	assert.Equal(t, 0, captured.Season)
	assert.Equal(t, model.KindMovie, captured.Kind)
}

func TestHandleGetManifest_ListsAllContentTypes(t *testing.T) {
	add := New(WithID("com.test.addon"), WithName("Test"), WithVersion("1.0.0"))
	app := fiber.New()
	app.Get("/manifest.json", add.HandleGetManifest)

	resp, err := app.Test(httptest.NewRequest("GET", "/manifest.json", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"movie"`)
	assert.Contains(t, string(body), `"series"`)
	assert.Contains(t, string(body), `"tv"`)
	assert.Contains(t, string(body), `"event"`)
}
