package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/coocood/freecache"
)

// LocalStore is the process-local Store backend, grounded on the teacher's
// own use of coocood/freecache for its response cache. freecache only
// natively supports flat key/value with a per-entry expiry, so HSet/HGet
// and ZAdd/ZRangeByScore are layered on top as small JSON-encoded index
// structures under one freecache entry per hash/zset key; a mutex per
// LocalStore guards the read-modify-write around those encoded blobs since
// freecache itself only guarantees atomicity of a single Set/Get.
//
// Because freecache entries expire and evict under memory pressure on
// their own, a background Sweep is not needed to reclaim space; Sweep
// is a no-op here (RedisStore has no Sweep method at all).
type LocalStore struct {
	mu    sync.Mutex
	cache *freecache.Cache
}

// NewLocal builds a LocalStore backed by a freecache instance of the given
// size in bytes.
func NewLocal(sizeBytes int) *LocalStore {
	return &LocalStore{cache: freecache.NewCache(sizeBytes)}
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, err := s.cache.Get([]byte(key))
	if err == freecache.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *LocalStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return s.cache.Set([]byte(key), value, int(ttl.Seconds()))
}

func (s *LocalStore) Del(_ context.Context, key string) error {
	s.cache.Del([]byte(key))
	return nil
}

type hashBlob map[string][]byte

func (s *LocalStore) HGet(_ context.Context, key, field string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.loadHash(key)
	if err != nil {
		return nil, false, err
	}
	v, ok := h[field]
	return v, ok, nil
}

func (s *LocalStore) HSet(_ context.Context, key, field string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.loadHash(key)
	if err != nil {
		return err
	}
	h[field] = value
	return s.storeHash(key, h)
}

func (s *LocalStore) loadHash(key string) (hashBlob, error) {
	raw, err := s.cache.Get([]byte(key))
	if err == freecache.ErrNotFound {
		return hashBlob{}, nil
	}
	if err != nil {
		return nil, err
	}
	h := hashBlob{}
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *LocalStore) storeHash(key string, h hashBlob) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return s.cache.Set([]byte(key), raw, 0)
}

type zsetMember struct {
	Member string  `json:"m"`
	Score  float64 `json:"s"`
}

func (s *LocalStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, err := s.loadZSet(key)
	if err != nil {
		return err
	}
	replaced := false
	for i := range members {
		if members[i].Member == member {
			members[i].Score = score
			replaced = true
			break
		}
	}
	if !replaced {
		members = append(members, zsetMember{Member: member, Score: score})
	}
	return s.storeZSet(key, members)
}

func (s *LocalStore) ZRangeByScore(_ context.Context, key string, min, max float64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, err := s.loadZSet(key)
	if err != nil {
		return nil, err
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Score < members[j].Score })

	var out []string
	for _, m := range members {
		if m.Score >= min && m.Score <= max {
			out = append(out, m.Member)
		}
	}
	return out, nil
}

func (s *LocalStore) loadZSet(key string) ([]zsetMember, error) {
	raw, err := s.cache.Get([]byte(key))
	if err == freecache.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var members []zsetMember
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *LocalStore) storeZSet(key string, members []zsetMember) error {
	raw, err := json.Marshal(members)
	if err != nil {
		return err
	}
	return s.cache.Set([]byte(key), raw, 0)
}

// SetNX is provided for interface completeness; a single-process advisory
// lock has no cross-replica meaning, so real leader election always goes
// through RedisStore. It is still correct standalone: useful in tests and
// single-replica deployments.
func (s *LocalStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.cache.Get([]byte(key)); err == nil {
		return false, nil
	}
	if err := s.cache.Set([]byte(key), value, int(ttl.Seconds())); err != nil {
		return false, err
	}
	return true, nil
}

// Sweep is a documented no-op: freecache manages its own LRU eviction and
// per-entry expiry internally.
func (s *LocalStore) Sweep(context.Context) {}
