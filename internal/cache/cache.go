// Package cache defines the Store interface the rest of the system talks
// to, with two implementations behind it: LocalStore (process-local,
// coocood/freecache, used for the scraper cache decorator where only this
// replica's view matters) and RedisStore (redis/go-redis/v9, used for
// anything that needs cross-replica visibility: the Availability Cache,
// scheduler leader election, and short-lived pairing codes).
package cache

import (
	"context"
	"time"
)

// Store is the minimal surface every cache-backed component needs: plain
// key/value with TTL, a sorted set for time-ordered membership (pairing
// codes, scheduler heartbeats), a hash for small structured records, and
// SetNX for advisory locking.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error

	HGet(ctx context.Context, key, field string) ([]byte, bool, error)
	HSet(ctx context.Context, key, field string, value []byte) error

	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)

	// SetNX sets key to value only if it doesn't already exist, returning
	// whether the set happened. Used for the scheduler leader lock.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// ErrNotFound is returned by nothing directly (Get/HGet use a bool instead)
// but kept for callers that prefer an error-shaped miss when wrapping Store
// behind another interface.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "cache: not found" }
