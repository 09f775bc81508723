package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediafusion/core/internal/cache"
	"github.com/mediafusion/core/internal/model"
	"github.com/mediafusion/core/internal/scraper"
)

type stubScraper struct {
	name    string
	streams []scraper.CandidateStream
	err     error
	delay   time.Duration
}

func (s *stubScraper) Name() string { return s.name }
func (s *stubScraper) CacheTTL() time.Duration { return time.Minute }
func (s *stubScraper) Scrape(ctx context.Context, _ scraper.Request) ([]scraper.CandidateStream, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.streams, s.err
}

func hash(suffix string) string {
	base := "0123456789abcdef0123456789abcdef0123456"
	return base[:40-len(suffix)] + suffix
}

func TestRun_UnionsByInfoHashAndTagsSources(t *testing.T) {
	a := &stubScraper{name: "prowlarr", streams: []scraper.CandidateStream{{InfoHash: hash("1"), DisplayName: "Movie 1080p"}}}
	b := &stubScraper{name: "torrentio", streams: []scraper.CandidateStream{{InfoHash: hash("1"), DisplayName: "Movie 1080p"}, {InfoHash: hash("2"), DisplayName: "Movie 720p"}}}

	o := New([]scraper.Scraper{a, b})
	streams, err := o.Run(context.Background(), scraper.Request{MediaID: "tt1", Kind: model.KindMovie})
	require.NoError(t, err)
	require.Len(t, streams, 2)

	byHash := map[string]model.Stream{}
	for _, s := range streams {
		byHash[s.InfoHash] = s
	}
	assert.ElementsMatch(t, []string{"prowlarr", "torrentio"}, byHash[hash("1")].Source, "shared hash must carry both contributors")
	assert.Equal(t, []string{"torrentio"}, byHash[hash("2")].Source)
}

func TestRun_PartialFailureToleratesOtherScrapers(t *testing.T) {
	ok := &stubScraper{name: "prowlarr", streams: []scraper.CandidateStream{{InfoHash: hash("3"), DisplayName: "Fine"}}}
	broken := &stubScraper{name: "zilean", err: errors.New("boom")}

	o := New([]scraper.Scraper{ok, broken})
	streams, err := o.Run(context.Background(), scraper.Request{MediaID: "tt2", Kind: model.KindMovie})
	require.NoError(t, err, "one failing scraper must not fail the whole run")
	require.Len(t, streams, 1)
	assert.Equal(t, hash("3"), streams[0].InfoHash)
}

func TestRun_AllScrapersFailingReturnsError(t *testing.T) {
	broken1 := &stubScraper{name: "a", err: errors.New("boom1")}
	broken2 := &stubScraper{name: "b", err: errors.New("boom2")}

	o := New([]scraper.Scraper{broken1, broken2})
	_, err := o.Run(context.Background(), scraper.Request{MediaID: "tt3", Kind: model.KindMovie})
	assert.Error(t, err)
}

func TestRun_PerScraperTimeoutDropsSlowScraper(t *testing.T) {
	fast := &stubScraper{name: "fast", streams: []scraper.CandidateStream{{InfoHash: hash("4"), DisplayName: "Fast"}}}
	slow := &stubScraper{name: "slow", delay: 200 * time.Millisecond, streams: []scraper.CandidateStream{{InfoHash: hash("5"), DisplayName: "Slow"}}}

	o := New([]scraper.Scraper{fast, slow}, WithPerScraperTimeout(20*time.Millisecond))
	streams, err := o.Run(context.Background(), scraper.Request{MediaID: "tt4", Kind: model.KindMovie})
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, hash("4"), streams[0].InfoHash)
}

type fakePersister struct {
	media   map[string]int64
	streams []model.Stream
}

func newFakePersister() *fakePersister {
	return &fakePersister{media: map[string]int64{}}
}

func (f *fakePersister) UpsertMedia(_ context.Context, m model.Media) (int64, error) {
	if id, ok := f.media[m.ExternalID]; ok {
		return id, nil
	}
	id := int64(len(f.media) + 1)
	f.media[m.ExternalID] = id
	return id, nil
}

func (f *fakePersister) UpsertStream(_ context.Context, st model.Stream, _ int64) error {
	f.streams = append(f.streams, st)
	return nil
}

func TestRunScheduledScrape_PersistsWithoutFilterSort(t *testing.T) {
	a := &stubScraper{name: "prowlarr", streams: []scraper.CandidateStream{{InfoHash: hash("6"), DisplayName: "Background find"}}}
	o := New([]scraper.Scraper{a})
	p := newFakePersister()

	metrics, err := o.RunScheduledScrape(context.Background(), p, []scraper.Request{{MediaID: "tt5", Kind: model.KindMovie, Title: "X", Year: 2020}}, "", true)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.RequestsRun)
	assert.Equal(t, 1, metrics.StreamsStored)
	require.Len(t, p.streams, 1)
	assert.Equal(t, hash("6"), p.streams[0].InfoHash)
}

func TestTryAcquireLeader_OnlyOneWinner(t *testing.T) {
	store := cache.NewLocal(1 << 16)
	ok1, err := TryAcquireLeader(context.Background(), store, "node-a")
	require.NoError(t, err)
	assert.True(t, ok1)

	ok2, err := TryAcquireLeader(context.Background(), store, "node-b")
	require.NoError(t, err)
	assert.False(t, ok2, "a second node must not acquire the lease while it is held")
}
