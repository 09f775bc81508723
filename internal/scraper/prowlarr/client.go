// Package prowlarr adapts the teacher's Prowlarr client into the scraper
// plugin contract: it searches every enabled indexer for a media's title
// (and season, for series) and resolves each result to a magnet/info-hash
// pair, fetching the .torrent file when an indexer only gives a direct
// download link.
package prowlarr

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/mediafusion/core/internal/errs"
	"github.com/mediafusion/core/internal/model"
	"github.com/mediafusion/core/internal/scraper"
)

const (
	moviesCategory = "2000"
	tvCategory     = "5000"
)

type indexer struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type torrent struct {
	Title     string `json:"title"`
	Guid      string `json:"guid"`
	Seeders   uint   `json:"seeders"`
	Size      uint   `json:"size"`
	Link      string `json:"downloadUrl"`
	MagnetUri string `json:"magnetUrl"`
	InfoHash  string `json:"infoHash"`
}

// Client is the base (undecorated) Prowlarr scraper; wrap it with
// scraper.New for the cache/rate-limit/breaker/retry chain.
type Client struct {
	http   *resty.Client
	apiURL string
	ttl    time.Duration
}

func New(apiURL, apiKey string, ttl time.Duration) *Client {
	c := resty.New().
		SetBaseURL(apiURL).
		SetHeader("X-Api-Key", apiKey).
		SetRedirectPolicy(notFollowMagnet())

	return &Client{http: c, apiURL: apiURL, ttl: ttl}
}

func (c *Client) Name() string           { return "prowlarr" }
func (c *Client) CacheTTL() time.Duration { return c.ttl }

func (c *Client) Scrape(ctx context.Context, req scraper.Request) ([]scraper.CandidateStream, error) {
	indexers, err := c.listIndexers(ctx)
	if err != nil {
		return nil, errs.New(errs.KindTransientSource, "list prowlarr indexers", err)
	}

	var out []scraper.CandidateStream
	for _, idx := range indexers {
		torrents, err := c.search(ctx, idx, req)
		if err != nil {
			log.Warnf("prowlarr: indexer %s search failed: %v", idx.Name, err)
			continue
		}
		for _, t := range torrents {
			cand, err := c.toCandidate(ctx, t)
			if err != nil {
				log.Warnf("prowlarr: skip result %q: %v", t.Title, err)
				continue
			}
			out = append(out, cand)
		}
	}
	return out, nil
}

func (c *Client) listIndexers(ctx context.Context) ([]indexer, error) {
	var result []indexer
	resp, err := c.http.R().SetContext(ctx).SetResult(&result).Get("/api/v1/indexer")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("prowlarr indexer list: %v", resp.Error())
	}
	return result, nil
}

func (c *Client) search(ctx context.Context, idx indexer, req scraper.Request) ([]torrent, error) {
	query := req.Title
	category := moviesCategory
	searchType := "movie"

	if req.Kind == model.KindSeries {
		category = tvCategory
		searchType = "tvsearch"
		if req.Season > 0 {
			query = fmt.Sprintf("%s{Season:%02d}", req.Title, req.Season)
		}
	}

	var result []torrent
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", query).
		SetQueryParam("categories", category).
		SetQueryParam("type", searchType).
		SetQueryParam("indexerIds", strconv.Itoa(idx.ID)).
		SetResult(&result).
		Get("/api/v1/search")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("prowlarr search via %s: %v", idx.Name, resp.Error())
	}

	for i := range result {
		result[i].Link = strings.Replace(result[i].Link, "http://localhost:9696", c.apiURL, 1)
		result[i].InfoHash = strings.ToLower(result[i].InfoHash)
	}
	return result, nil
}

func (c *Client) toCandidate(ctx context.Context, t torrent) (scraper.CandidateStream, error) {
	infoHash, trackers, err := c.resolveInfoHash(ctx, t)
	if err != nil {
		return scraper.CandidateStream{}, err
	}
	if !model.ValidInfoHash(infoHash) {
		return scraper.CandidateStream{}, errs.New(errs.KindDataIntegrity, "invalid info hash "+infoHash, nil)
	}

	var seeders *uint
	if t.Seeders > 0 {
		s := t.Seeders
		seeders = &s
	}

	return scraper.CandidateStream{
		InfoHash:    infoHash,
		DisplayName: t.Title,
		Payload:     model.PayloadTorrent,
		SizeBytes:   uint64(t.Size),
		Seeders:     seeders,
		Trackers:    trackers,
	}, nil
}

func (c *Client) resolveInfoHash(ctx context.Context, t torrent) (string, []string, error) {
	if t.InfoHash != "" {
		return t.InfoHash, nil, nil
	}

	magnetURI := t.MagnetUri
	if magnetURI == "" {
		if strings.HasPrefix(t.Guid, "magnet:") {
			magnetURI = t.Guid
		}
	}

	if magnetURI == "" && t.Link != "" {
		resp, err := c.http.R().SetContext(ctx).Get(t.Link)
		if err != nil {
			return "", nil, errs.New(errs.KindTransientSource, "fetch torrent/magnet link", err)
		}
		if resp.Header().Get("Content-Type") == "application/x-bittorrent" {
			mi, err := parseTorrentFile(bytes.NewReader(resp.Body()))
			if err != nil {
				return "", nil, errs.New(errs.KindPermanentSource, "parse torrent file", err)
			}
			m := &Magnet{Name: t.Title, InfoHash: mi.Info.Hash, Trackers: flattenTrackers(mi.AnnounceList)}
			return m.InfoHashStr(), m.Trackers, nil
		}
		magnetURI = resp.Header().Get("location")
	}

	if magnetURI == "" {
		return "", nil, errs.New(errs.KindPermanentSource, "no magnet uri resolvable for "+t.Title, nil)
	}

	m, err := ParseMagnetUri(magnetURI)
	if err != nil {
		return "", nil, errs.New(errs.KindDataIntegrity, "parse magnet uri", err)
	}
	return m.InfoHashStr(), m.Trackers, nil
}

// notFollowMagnet stops resty from trying to follow a magnet: redirect as
// if it were an HTTP location, mirroring the teacher's own redirect policy.
func notFollowMagnet() resty.RedirectPolicy {
	return resty.RedirectPolicyFunc(func(r1 *http.Request, _ []*http.Request) error {
		if r1.URL.Scheme == "magnet" {
			return http.ErrUseLastResponse
		}
		return nil
	})
}
