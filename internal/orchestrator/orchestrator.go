// Package orchestrator fans a single stream request out across every
// enabled scraper, aggregates the results by info hash, and runs the
// background scheduled-ingest path that feeds the Stream Store outside
// the request/response cycle.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/mediafusion/core/internal/model"
	"github.com/mediafusion/core/internal/scraper"
	"github.com/mediafusion/core/internal/titleparser"
	"github.com/mediafusion/core/internal/workerpool"
)

const (
	// DefaultPerScraperTimeout bounds a single scraper's Scrape call.
	DefaultPerScraperTimeout = 30 * time.Second
	// DefaultAggregateDeadline bounds the whole fan-out regardless of how
	// many scrapers are enabled.
	DefaultAggregateDeadline = 45 * time.Second
)

// Orchestrator holds the enabled scraper set and the concurrency/timeout
// knobs for fanning requests out across them.
type Orchestrator struct {
	scrapers          []scraper.Scraper
	maxConcurrency    int
	perScraperTimeout time.Duration
	aggregateDeadline time.Duration
	parseWorkers      int
}

// Option configures an Orchestrator built by New.
type Option func(*Orchestrator)

func WithMaxConcurrency(n int) Option {
	return func(o *Orchestrator) { o.maxConcurrency = n }
}

func WithPerScraperTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.perScraperTimeout = d }
}

func WithAggregateDeadline(d time.Duration) Option {
	return func(o *Orchestrator) { o.aggregateDeadline = d }
}

// WithParseWorkers sets the bounded worker pool size title parsing of
// aggregated results runs on (spec.md §5's "dedicated worker pool with
// bounded size (default 4)").
func WithParseWorkers(n int) Option {
	return func(o *Orchestrator) { o.parseWorkers = n }
}

func New(scrapers []scraper.Scraper, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		scrapers:          scrapers,
		maxConcurrency:    len(scrapers),
		perScraperTimeout: DefaultPerScraperTimeout,
		aggregateDeadline: DefaultAggregateDeadline,
		parseWorkers:      workerpool.DefaultWorkers,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.maxConcurrency < 1 {
		o.maxConcurrency = 1
	}
	return o
}

// scraperOutcome is one scraper's contribution to a fan-out round, kept
// alongside its name so aggregation can tag every resulting stream with
// the source that found it.
type scraperOutcome struct {
	name    string
	streams []scraper.CandidateStream
	err     error
}

// Run queries every enabled scraper concurrently and returns the union of
// their results deduplicated by info hash. A scraper that times out,
// errors, or panics is logged and dropped; Run only fails outright if
// every scraper fails.
func (o *Orchestrator) Run(ctx context.Context, req scraper.Request) ([]model.Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, o.aggregateDeadline)
	defer cancel()

	p := pool.New().WithMaxGoroutines(o.maxConcurrency)
	outcomes := make([]scraperOutcome, len(o.scrapers))

	for i, s := range o.scrapers {
		i, s := i, s
		p.Go(func() {
			outcomes[i] = o.runOne(ctx, s, req)
		})
	}
	p.Wait()

	return o.aggregate(outcomes), firstErrorIfAllFailed(outcomes)
}

func (o *Orchestrator) runOne(ctx context.Context, s scraper.Scraper, req scraper.Request) (out scraperOutcome) {
	ctx, cancel := context.WithTimeout(ctx, o.perScraperTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("orchestrator: scraper %s panicked: %v", s.Name(), r)
			out = scraperOutcome{name: s.Name(), err: fmt.Errorf("scraper %s panicked: %v", s.Name(), r)}
		}
	}()

	streams, err := s.Scrape(ctx, req)
	if err != nil {
		log.Warnf("orchestrator: scraper %s failed: %v", s.Name(), err)
		return scraperOutcome{name: s.Name(), err: err}
	}
	return scraperOutcome{name: s.Name(), streams: streams}
}

func firstErrorIfAllFailed(outcomes []scraperOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	for _, o := range outcomes {
		if o.err == nil {
			return nil
		}
	}
	return outcomes[0].err
}

// aggregate unions candidate streams by info hash. When two scrapers find
// the same hash, the first one's stream fields win but both names are
// recorded in Source so the formatted stream title can show every
// contributor. The union is then run through a bounded worker pool that
// title-parses every DisplayName in one batch, filling in the
// resolution/quality/audio/HDR/channel/language/flag fields Filter/Sort
// needs — scrapers only ever report the bare candidate fields.
func (o *Orchestrator) aggregate(outcomes []scraperOutcome) []model.Stream {
	byHash := make(map[string]*model.Stream)
	order := make([]string, 0)

	for _, out := range outcomes {
		for _, c := range out.streams {
			if !model.ValidInfoHash(c.InfoHash) {
				continue
			}
			if existing, ok := byHash[c.InfoHash]; ok {
				existing.Source = appendUnique(existing.Source, out.name)
				if existing.Seeders == nil && c.Seeders != nil {
					existing.Seeders = c.Seeders
				}
				continue
			}
			st := candidateToStream(c, out.name)
			byHash[c.InfoHash] = &st
			order = append(order, c.InfoHash)
		}
	}

	result := make([]model.Stream, 0, len(order))
	for _, h := range order {
		result = append(result, *byHash[h])
	}

	titles := make([]string, len(result))
	for i, s := range result {
		titles[i] = s.DisplayName
	}
	parsed := workerpool.ParseTitles(titles, o.parseWorkers)
	for i := range result {
		applyParsedTitle(&result[i], parsed[i])
	}

	return result
}

// applyParsedTitle fills in the fields a raw scraper candidate never
// carries directly, derived from titleparser.Parse on its DisplayName.
func applyParsedTitle(st *model.Stream, mi *titleparser.MetaInfo) {
	if mi == nil {
		return
	}
	st.Resolution = titleparser.ResolutionLabel(mi.Resolution)
	if mi.Quality != "" {
		st.Quality = []string{titleparser.QualityGroup(mi.Quality)}
	}
	st.Audio = mi.Audio
	st.HDR = mi.HDR
	st.Channels = mi.Channels
	st.Languages = mi.Languages
	st.Remux = mi.Remux
	st.Proper = mi.Proper
	st.Repack = mi.Repack
	st.Extended = mi.Extended
	st.Dubbed = mi.Dubbed
	st.Subbed = mi.Subbed
	st.Complete = mi.Complete
}

func candidateToStream(c scraper.CandidateStream, source string) model.Stream {
	now := time.Now().UTC()
	return model.Stream{
		InfoHash:    c.InfoHash,
		DisplayName: c.DisplayName,
		Source:      []string{source},
		Payload:     c.Payload,
		SourceURL:   c.SourceURL,
		SizeBytes:   c.SizeBytes,
		Seeders:     c.Seeders,
		Trackers:    c.Trackers,
		CreatedAt:   now,
		UpdatedAt:   now,
		IsActive:    true,
	}
}

func appendUnique(s []string, v string) []string {
	for _, existing := range s {
		if existing == v {
			return s
		}
	}
	return append(s, v)
}
