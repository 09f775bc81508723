// Package singleflight deduplicates concurrent debrid resolve calls for
// the same (provider, hash): spec.md §5/§8 property #6 requires that N
// concurrent resolve calls for the same pair result in exactly one
// provider Submit. This is a thin named wrapper around
// golang.org/x/sync/singleflight, grounded the same way stremthru's
// manifest pulls in x/sync for its own resolve path.
package singleflight

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Group dedups concurrent Resolve calls keyed by {provider}:{hash}.
type Group struct {
	g singleflight.Group
}

func New() *Group { return &Group{} }

// Do runs fn at most once per concurrently-in-flight (provider, hash) key;
// every other caller blocks on the same in-flight result.
func (g *Group) Do(ctx context.Context, provider, infoHash string, fn func(ctx context.Context) (string, error)) (string, error) {
	key := provider + ":" + infoHash
	v, err, _ := g.g.Do(key, func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
