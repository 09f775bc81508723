// Package availability implements the shared Availability Cache that sits
// in front of every debrid provider's Check call, per spec.md §4.5: a
// bidirectional read-through/write-through cache keyed
// avail:{provider}:{hash} with a 7 day TTL, plus an optional central-hub
// write-through sync to a peer instance.
package availability

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/mediafusion/core/internal/cache"
)

const keyPrefix = "avail:"

// Checker is the subset of debrid.Provider the cache needs: a batch
// availability check. Kept narrow so this package doesn't import debrid;
// any provider with these two methods can be passed in.
type Checker interface {
	Name() string
	Check(ctx context.Context, infoHashes []string) (map[string]bool, error)
}

// Cache wraps a cache.Store with the read-through/write-through behavior
// of spec.md §4.5.
type Cache struct {
	store      cache.Store
	ttl        time.Duration
	hubClient  *resty.Client
	hubURL     string
}

// Option configures optional central-hub sync.
type Option func(*Cache)

// WithCentralHub configures a peer HTTP endpoint that receives a
// write-through POST after every positive Check, so multiple independent
// instances converge on the same availability knowledge faster than TTL
// alone would allow.
func WithCentralHub(baseURL string) Option {
	return func(c *Cache) {
		c.hubURL = baseURL
		c.hubClient = resty.New().SetBaseURL(baseURL).SetTimeout(5 * time.Second)
	}
}

// New builds a Cache over store with the given TTL (spec.md default 7 days).
func New(store cache.Store, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{store: store, ttl: ttl}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func key(provider, hash string) string {
	return keyPrefix + provider + ":" + hash
}

// Check reads the cache first; only hashes that miss are sent to
// checker.Check. Positive results from the provider call are written back
// (and, if configured, pushed to the central hub) before returning.
func (c *Cache) Check(ctx context.Context, checker Checker, infoHashes []string) (map[string]bool, error) {
	result := make(map[string]bool, len(infoHashes))
	var misses []string

	for _, h := range infoHashes {
		if v, ok, err := c.store.Get(ctx, key(checker.Name(), h)); err == nil && ok {
			result[h] = decodeBool(v)
			continue
		}
		misses = append(misses, h)
	}

	if len(misses) == 0 {
		return result, nil
	}

	fresh, err := checker.Check(ctx, misses)
	if err != nil {
		// Cache-layer/provider errors are logged and treated as a miss for
		// the uncached hashes, per spec.md §7 propagation policy; we still
		// return whatever the cache already knew.
		log.Warnf("availability: provider %s check failed: %v", checker.Name(), err)
		for _, h := range misses {
			result[h] = false
		}
		return result, nil
	}

	for h, cached := range fresh {
		result[h] = cached
		if cached {
			if err := c.store.Set(ctx, key(checker.Name(), h), encodeBool(cached), c.ttl); err != nil {
				log.Warnf("availability: cache write failed for %s: %v", h, err)
			}
			c.pushToHub(checker.Name(), h)
		}
	}

	return result, nil
}

func (c *Cache) pushToHub(provider, hash string) {
	if c.hubClient == nil {
		return
	}
	go func() {
		_, err := c.hubClient.R().
			SetBody(map[string]string{"provider": provider, "info_hash": hash}).
			Post("/availability/sync")
		if err != nil {
			log.Warnf("availability: central hub sync failed: %v", err)
		}
	}()
}

// MarkUnresolvable caches a ProviderContentError hash as "never resolvable"
// for the duration spec.md §7 names (7 days default), under its own
// ":unresolvable" key next to the availability entry. Check does not read
// that key; IsMarkedUnresolvable does.
func (c *Cache) MarkUnresolvable(ctx context.Context, provider, hash string, ttl time.Duration) error {
	return c.store.Set(ctx, key(provider, hash)+":unresolvable", []byte("1"), ttl)
}

func (c *Cache) IsMarkedUnresolvable(ctx context.Context, provider, hash string) bool {
	_, ok, err := c.store.Get(ctx, key(provider, hash)+":unresolvable")
	return err == nil && ok
}

func encodeBool(b bool) []byte {
	v, _ := json.Marshal(b)
	return v
}

func decodeBool(raw []byte) bool {
	var b bool
	_ = json.Unmarshal(raw, &b)
	return b
}
