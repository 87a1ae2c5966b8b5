package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/jellydator/ttlcache/v3"

	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

const defaultMemoryCacheTTL = 5 * time.Minute

// MemoryCacheRepository is a bounded in-process cache used when Redis is
// disabled. Entries expire after their TTL; at capacity the least recently
// accessed entry is evicted. Reads do not extend an entry's TTL.
type MemoryCacheRepository struct {
	cache *ttlcache.Cache[string, []byte]
}

// NewMemoryCacheRepository builds a cache holding at most capacity entries.
func NewMemoryCacheRepository(capacity int) *MemoryCacheRepository {
	if capacity <= 0 {
		capacity = 512
	}
	cache := ttlcache.New[string, []byte](
		ttlcache.WithCapacity[string, []byte](uint64(capacity)),
		ttlcache.WithTTL[string, []byte](defaultMemoryCacheTTL),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	return &MemoryCacheRepository{cache: cache}
}

// Get unmarshals a live entry into dest and marks it recently used.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	item := r.cache.Get(key)
	if item == nil || item.IsExpired() {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(item.Value(), dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores value under key for ttl. A non-positive ttl uses the default.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	r.cache.Set(key, payload, ttl)
	return nil
}

// DeleteByPattern removes entries whose key matches a glob pattern.
func (r *MemoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid cache pattern %s: %w", pattern, err)
	}
	for _, key := range r.cache.Keys() {
		if ok, _ := path.Match(pattern, key); ok {
			r.cache.Delete(key)
		}
	}
	return nil
}

// Len reports the number of live entries.
func (r *MemoryCacheRepository) Len() int {
	r.cache.DeleteExpired()
	return r.cache.Len()
}
