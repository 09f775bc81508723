// Package workerpool dispatches CPU-bound title-parsing batches to a
// bounded worker pool, adapting the teacher's internal/pipe batch stage
// (originally built for generic record processing) to title_parser.Parse
// specifically.
package workerpool

import (
	"sync"

	"github.com/mediafusion/core/internal/pipe"
	"github.com/mediafusion/core/internal/titleparser"
)

// DefaultWorkers matches spec.md §5's "dispatched to a dedicated worker
// pool with bounded size (default 4)".
const DefaultWorkers = 4

// ParseJob pairs a raw scraped title with the parse result the pool fills
// in once its batch runs.
type ParseJob struct {
	RawTitle string
	Result   *titleparser.MetaInfo
}

// ParseTitles parses every title concurrently across workers goroutines
// (DefaultWorkers if workers <= 0), preserving the input order in the
// returned slice.
func ParseTitles(titles []string, workers int) []*titleparser.MetaInfo {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	jobs := make([]*ParseJob, len(titles))
	for i, t := range titles {
		jobs[i] = &ParseJob{RawTitle: t}
	}
	index := make(map[*ParseJob]int, len(jobs))
	for i, j := range jobs {
		index[j] = i
	}

	p := pipe.New[ParseJob](func() ([]*ParseJob, error) { return jobs, nil })
	p.Batch(func(batch []*ParseJob) ([]*ParseJob, error) {
		for _, j := range batch {
			j.Result = titleparser.Parse(j.RawTitle)
		}
		return batch, nil
	}, pipe.WorkerSize[ParseJob](workers))

	out := make([]*titleparser.MetaInfo, len(jobs))
	var mu sync.Mutex
	_ = p.Sink(func(j *ParseJob) error {
		mu.Lock()
		out[index[j]] = j.Result
		mu.Unlock()
		return nil
	})
	return out
}
