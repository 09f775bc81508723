package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediafusion/core/internal/cache"
)

type countingChecker struct {
	name   string
	calls  int
	result map[string]bool
}

func (c *countingChecker) Name() string { return c.name }

func (c *countingChecker) Check(_ context.Context, hashes []string) (map[string]bool, error) {
	c.calls++
	out := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		out[h] = c.result[h]
	}
	return out, nil
}

func TestCheck_HitAvoidsProviderCall(t *testing.T) {
	store := cache.NewLocal(1 << 20)
	c := New(store, time.Hour)
	checker := &countingChecker{name: "realdebrid", result: map[string]bool{"h1": true}}

	first, err := c.Check(context.Background(), checker, []string{"h1"})
	require.NoError(t, err)
	assert.True(t, first["h1"])
	assert.Equal(t, 1, checker.calls)

	second, err := c.Check(context.Background(), checker, []string{"h1"})
	require.NoError(t, err)
	assert.True(t, second["h1"])
	assert.Equal(t, 1, checker.calls, "second check must be served from cache, not the provider")
}

func TestCheck_MixedHitsAndMissesOnlyQueriesMisses(t *testing.T) {
	store := cache.NewLocal(1 << 20)
	c := New(store, time.Hour)
	checker := &countingChecker{name: "alldebrid", result: map[string]bool{"h1": true, "h2": false}}

	_, err := c.Check(context.Background(), checker, []string{"h1"})
	require.NoError(t, err)

	checker.result["h2"] = true
	result, err := c.Check(context.Background(), checker, []string{"h1", "h2"})
	require.NoError(t, err)
	assert.True(t, result["h1"])
	assert.True(t, result["h2"])
	assert.Equal(t, 2, checker.calls, "h1 cached, h2 should be the only fresh provider call")
}
