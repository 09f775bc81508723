package singleflight

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDo_ConcurrentCallsShareOneSubmit verifies spec.md §8 property #6: N
// concurrent resolve calls for the same (provider, hash) result in
// exactly one underlying call.
func TestDo_ConcurrentCallsShareOneSubmit(t *testing.T) {
	g := New()
	var calls int64
	start := make(chan struct{})

	fn := func(ctx context.Context) (string, error) {
		<-start
		atomic.AddInt64(&calls, 1)
		return "https://example.com/direct", nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := g.Do(context.Background(), "realdebrid", "hash1", fn)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, calls)
	for _, r := range results {
		assert.Equal(t, "https://example.com/direct", r)
	}
}

func TestDo_DifferentKeysDoNotShare(t *testing.T) {
	g := New()
	var calls int64
	fn := func(ctx context.Context) (string, error) {
		atomic.AddInt64(&calls, 1)
		return "ok", nil
	}

	_, _ = g.Do(context.Background(), "realdebrid", "a", fn)
	_, _ = g.Do(context.Background(), "realdebrid", "b", fn)

	assert.EqualValues(t, 2, calls)
}
