// Package scraper defines the plugin contract every stream source
// implements and the decorator chain (cache, rate-limit, circuit-breaker,
// retry) that wraps each plugin's base implementation before the
// orchestrator ever calls it.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gofiber/fiber/v2/log"

	"github.com/mediafusion/core/internal/breaker"
	"github.com/mediafusion/core/internal/cache"
	"github.com/mediafusion/core/internal/errs"
	"github.com/mediafusion/core/internal/model"
	"github.com/mediafusion/core/internal/ratelimit"
)

// Request is the query every scraper answers: a media id plus enough
// context to build a source-specific search term.
type Request struct {
	MediaID string
	Kind    model.Kind
	Title   string
	Year    int
	Season  int
	Episode int
}

// CandidateStream is a stream before it has gone through the Filter/Sort
// Engine: title-parsed but not yet deduplicated against the Stream Store.
type CandidateStream struct {
	InfoHash    string
	DisplayName string
	Payload     model.Payload
	SizeBytes   uint64
	Seeders     *uint
	Trackers    []string
	SourceURL   string // direct-url / live-m3u8 payloads only
}

// Scraper is the plugin contract. Name is used as the cache-key prefix and
// as the per-scraper rate-limit/circuit-breaker instance key.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context, req Request) ([]CandidateStream, error)
	CacheTTL() time.Duration
}

// cacheKey builds the decorator chain's cache key:
// {name}:{kind}:{mediaID}:{season}:{episode}, matching SPEC_FULL.md §4.2.
func cacheKey(name string, req Request) string {
	return fmt.Sprintf("%s:%s:%s:%d:%d", name, req.Kind, req.MediaID, req.Season, req.Episode)
}

// Option configures the decorator chain New builds around a base Scraper.
type Option func(*decorated)

type decorated struct {
	base    Scraper
	store   cache.Store
	limiter *ratelimit.Limiter
	brk     *breaker.Breaker
	retries uint
}

func WithCache(store cache.Store) Option {
	return func(d *decorated) { d.store = store }
}

func WithRateLimit(l *ratelimit.Limiter) Option {
	return func(d *decorated) { d.limiter = l }
}

func WithBreaker(b *breaker.Breaker) Option {
	return func(d *decorated) { d.brk = b }
}

func WithRetries(n uint) Option {
	return func(d *decorated) { d.retries = n }
}

// New wraps base with the decorator chain, outermost to innermost: cache
// -> rate-limit -> circuit-breaker -> retry -> base. A call that hits
// cache never touches the rate limiter or breaker; a call that misses
// cache is rate-limited, then run through the breaker, which itself runs
// the bounded retry around the base scrape.
func New(base Scraper, opts ...Option) Scraper {
	d := &decorated{base: base, retries: 2}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *decorated) Name() string           { return d.base.Name() }
func (d *decorated) CacheTTL() time.Duration { return d.base.CacheTTL() }

func (d *decorated) Scrape(ctx context.Context, req Request) ([]CandidateStream, error) {
	key := cacheKey(d.base.Name(), req)

	if d.store != nil {
		if raw, ok, err := d.store.Get(ctx, key); err == nil && ok {
			var cached []CandidateStream
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	streams, err := d.scrapeWithGuards(ctx, req)
	if err != nil {
		return nil, err
	}

	if d.store != nil {
		if raw, err := json.Marshal(streams); err == nil {
			if err := d.store.Set(ctx, key, raw, d.base.CacheTTL()); err != nil {
				log.Warnf("scraper %s: cache write failed: %v", d.base.Name(), err)
			}
		}
	}

	return streams, nil
}

func (d *decorated) scrapeWithGuards(ctx context.Context, req Request) ([]CandidateStream, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, errs.New(errs.KindTransientSource, "rate limit wait", err)
		}
	}

	run := func() ([]CandidateStream, error) {
		return d.retryingScrape(ctx, req)
	}

	if d.brk == nil {
		return run()
	}

	result, err := d.brk.Execute(ctx, func(ctx context.Context) (any, error) {
		return run()
	})
	if err != nil {
		return nil, err
	}
	streams, _ := result.([]CandidateStream)
	return streams, nil
}

func (d *decorated) retryingScrape(ctx context.Context, req Request) ([]CandidateStream, error) {
	var streams []CandidateStream
	err := retry.Do(
		func() error {
			var scrapeErr error
			streams, scrapeErr = d.base.Scrape(ctx, req)
			return scrapeErr
		},
		retry.Context(ctx),
		retry.Attempts(d.retries+1),
		retry.RetryIf(isTransientError),
		retry.DelayType(retry.BackOffDelay),
	)
	return streams, err
}

func isTransientError(err error) bool {
	kind, ok := errs.KindOf(err)
	return !ok || kind == errs.KindTransientSource
}
