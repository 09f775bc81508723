package orchestrator

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/mediafusion/core/internal/cache"
	"github.com/mediafusion/core/internal/model"
	"github.com/mediafusion/core/internal/scraper"
	"github.com/mediafusion/core/internal/workerpool"
)

const (
	schedulerLeaderKey   = "scheduler:leader"
	schedulerLeaseTTL    = 60 * time.Second
	schedulerHeartbeat   = 20 * time.Second
)

// Persister is the subset of internal/store.Store the scheduled-ingest path
// needs: enough to upsert a media row and attach a stream to it, without
// orchestrator depending on the Store's full surface.
type Persister interface {
	UpsertMedia(ctx context.Context, m model.Media) (int64, error)
	UpsertStream(ctx context.Context, st model.Stream, mediaID int64) error
}

// IngestMetrics summarizes one RunScheduledScrape call.
type IngestMetrics struct {
	ScrapersRun   int
	RequestsRun   int
	StreamsFound  int
	StreamsStored int
	Errors        int
}

// RunScheduledScrape runs the background ingest path: for every request in
// reqs, scrape with scraperName (or every enabled scraper when scrapeAll is
// true) and persist every resulting candidate directly to the store,
// bypassing the Filter/Sort Engine entirely since this path has no user
// preference context.
func (o *Orchestrator) RunScheduledScrape(ctx context.Context, store Persister, reqs []scraper.Request, scraperName string, scrapeAll bool) (IngestMetrics, error) {
	var metrics IngestMetrics

	active := o.scrapers
	if !scrapeAll {
		active = nil
		for _, s := range o.scrapers {
			if s.Name() == scraperName {
				active = append(active, s)
			}
		}
	}
	metrics.ScrapersRun = len(active)

	for _, req := range reqs {
		metrics.RequestsRun++
		mediaID, err := store.UpsertMedia(ctx, model.Media{
			ExternalID: req.MediaID,
			Kind:       req.Kind,
			Title:      req.Title,
			Year:       req.Year,
		})
		if err != nil {
			metrics.Errors++
			log.Warnf("orchestrator: scheduled ingest media upsert failed for %s: %v", req.MediaID, err)
			continue
		}

		for _, s := range active {
			out := o.runOne(ctx, s, req)
			if out.err != nil {
				metrics.Errors++
				continue
			}
			metrics.StreamsFound += len(out.streams)
			titles := make([]string, len(out.streams))
			for i, c := range out.streams {
				titles[i] = c.DisplayName
			}
			parsed := workerpool.ParseTitles(titles, o.parseWorkers)
			for i, c := range out.streams {
				if !model.ValidInfoHash(c.InfoHash) {
					continue
				}
				st := candidateToStream(c, out.name)
				applyParsedTitle(&st, parsed[i])
				if err := store.UpsertStream(ctx, st, mediaID); err != nil {
					metrics.Errors++
					log.Warnf("orchestrator: scheduled ingest stream upsert failed for %s: %v", c.InfoHash, err)
					continue
				}
				metrics.StreamsStored++
			}
		}
	}

	return metrics, nil
}

// TryAcquireLeader attempts to become the scheduler leader by setting
// schedulerLeaderKey to nodeID with a 60s lease, preserving spec.md §4.7's
// "distributed scheduler lock" property via cache.Store.SetNX so only one
// replica runs scheduled scrapes at a time.
func TryAcquireLeader(ctx context.Context, store cache.Store, nodeID string) (bool, error) {
	return store.SetNX(ctx, schedulerLeaderKey, []byte(nodeID), schedulerLeaseTTL)
}

// RunLeaderHeartbeat refreshes the leader's lease every schedulerHeartbeat
// interval until ctx is canceled: while the key still holds nodeID it is
// re-set with a fresh TTL, and if the lease lapsed (e.g. after a GC pause
// longer than the lease TTL) it is re-acquired with SetNX. Reading the
// holder and re-setting the key are two separate cache calls.
func RunLeaderHeartbeat(ctx context.Context, store cache.Store, nodeID string) {
	ticker := time.NewTicker(schedulerHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			holder, held, err := store.Get(ctx, schedulerLeaderKey)
			switch {
			case err != nil:
			case held && string(holder) == nodeID:
				err = store.Set(ctx, schedulerLeaderKey, []byte(nodeID), schedulerLeaseTTL)
			case !held:
				_, err = store.SetNX(ctx, schedulerLeaderKey, []byte(nodeID), schedulerLeaseTTL)
			}
			if err != nil {
				log.Warnf("orchestrator: leader heartbeat failed: %v", err)
			}
		}
	}
}
