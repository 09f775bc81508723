// Package torrentio scrapes the public Torrentio Stremio addon: a GET to
// {base_url}/stream/{type}/{id}.json returns a stream list whose "title"
// field packs the release name, size and seeder count as newline/emoji
// separated text (👤 seeders, 💾 size, ⚙️ source), same as any other
// Stremio stream-resource addon.
package torrentio

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mediafusion/core/internal/errs"
	"github.com/mediafusion/core/internal/model"
	"github.com/mediafusion/core/internal/scraper"
	"github.com/mediafusion/core/internal/titleparser"
)

type streamResource struct {
	Streams []streamEntry `json:"streams"`
}

type streamEntry struct {
	Title         string            `json:"title"`
	InfoHash      string            `json:"infoHash"`
	FileIdx       int               `json:"fileIdx"`
	BehaviorHints map[string]any    `json:"behaviorHints"`
}

type Client struct {
	http    *resty.Client
	baseURL string
	ttl     time.Duration
}

func New(baseURL string, ttl time.Duration) *Client {
	return &Client{
		http:    resty.New().SetBaseURL(baseURL),
		baseURL: baseURL,
		ttl:     ttl,
	}
}

func (c *Client) Name() string           { return "torrentio" }
func (c *Client) CacheTTL() time.Duration { return c.ttl }

func (c *Client) Scrape(ctx context.Context, req scraper.Request) ([]scraper.CandidateStream, error) {
	id := req.MediaID
	kind := "movie"
	if req.Kind == model.KindSeries {
		kind = "series"
		if req.Season > 0 && req.Episode > 0 {
			id = fmt.Sprintf("%s:%d:%d", req.MediaID, req.Season, req.Episode)
		}
	}

	var result streamResource
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get(fmt.Sprintf("/stream/%s/%s.json", kind, id))
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "torrentio request", err)
	}
	if resp.IsError() {
		return nil, errs.New(errs.KindTransientSource, fmt.Sprintf("torrentio status %d", resp.StatusCode()), nil)
	}

	out := make([]scraper.CandidateStream, 0, len(result.Streams))
	for _, s := range result.Streams {
		if !model.ValidInfoHash(strings.ToLower(s.InfoHash)) {
			continue
		}
		out = append(out, toCandidate(s))
	}
	return out, nil
}

var (
	seedersPattern = regexp.MustCompile(`👤\s*(\d+)`)
	sizePattern    = regexp.MustCompile(`💾\s*([\d.]+)\s*(GB|MB)`)
)

func toCandidate(s streamEntry) scraper.CandidateStream {
	firstLine := s.Title
	if idx := strings.IndexByte(s.Title, '\n'); idx >= 0 {
		firstLine = s.Title[:idx]
	}
	// The parse result is discarded; the orchestrator fills the parsed
	// fields in later from DisplayName.
	_ = titleparser.Parse(firstLine)

	var seeders *uint
	if m := seedersPattern.FindStringSubmatch(s.Title); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			v := uint(n)
			seeders = &v
		}
	}

	var sizeBytes uint64
	if m := sizePattern.FindStringSubmatch(s.Title); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			mult := uint64(1 << 20)
			if strings.EqualFold(m[2], "GB") {
				mult = 1 << 30
			}
			sizeBytes = uint64(f * float64(mult))
		}
	}

	return scraper.CandidateStream{
		InfoHash:    strings.ToLower(s.InfoHash),
		DisplayName: firstLine,
		Payload:     model.PayloadTorrent,
		SizeBytes:   sizeBytes,
		Seeders:     seeders,
	}
}
