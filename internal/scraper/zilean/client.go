// Package zilean scrapes a Zilean DMM (Debrid Media Manager) instance: a
// POST to {base_url}/dmm/search with {"queryText": title} returns a flat
// list of indexed torrent names and info hashes, with no season/episode
// filtering on the server side - results are narrowed to the requested
// season on the title-parsed result; episodes are not filtered.
package zilean

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mediafusion/core/internal/errs"
	"github.com/mediafusion/core/internal/model"
	"github.com/mediafusion/core/internal/scraper"
	"github.com/mediafusion/core/internal/titleparser"
)

type dmmResult struct {
	RawTitle string `json:"raw_title"`
	InfoHash string `json:"info_hash"`
	Size     int64  `json:"size"`
}

type Client struct {
	http *resty.Client
	ttl  time.Duration
}

func New(baseURL string, ttl time.Duration) *Client {
	return &Client{http: resty.New().SetBaseURL(baseURL), ttl: ttl}
}

func (c *Client) Name() string           { return "zilean" }
func (c *Client) CacheTTL() time.Duration { return c.ttl }

func (c *Client) Scrape(ctx context.Context, req scraper.Request) ([]scraper.CandidateStream, error) {
	var results []dmmResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"queryText": req.Title}).
		SetResult(&results).
		Post("/dmm/search")
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "zilean dmm search", err)
	}
	if resp.IsError() {
		return nil, errs.New(errs.KindTransientSource, "zilean dmm search status "+strconv.Itoa(resp.StatusCode()), nil)
	}

	out := make([]scraper.CandidateStream, 0, len(results))
	for _, r := range results {
		hash := strings.ToLower(r.InfoHash)
		if !model.ValidInfoHash(hash) {
			continue
		}
		if !matchesRequest(r.RawTitle, req) {
			continue
		}
		out = append(out, scraper.CandidateStream{
			InfoHash:    hash,
			DisplayName: r.RawTitle,
			Payload:     model.PayloadTorrent,
			SizeBytes:   uint64(r.Size),
		})
	}
	return out, nil
}

// matchesRequest applies the season/episode narrowing Zilean's server
// side skips: a series request only keeps results whose parsed season
// (or season range, for packs) contains the requested season.
func matchesRequest(rawTitle string, req scraper.Request) bool {
	if req.Kind != model.KindSeries || req.Season == 0 {
		return true
	}
	mi := titleparser.Parse(rawTitle)
	if len(mi.Seasons) == 0 {
		return true // season packs with no parseable season marker still pass through
	}
	for _, s := range mi.Seasons {
		if s == req.Season {
			return true
		}
	}
	return false
}
