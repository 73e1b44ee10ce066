package adsource

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/zsiec/adsplice/internal/decision"
	"github.com/zsiec/adsplice/internal/metrics"
)

// CachedSource keeps fetched fragments in memory for ttl. Misses are not cached.
type CachedSource struct {
	next  Source
	cache *cache.Cache
}

// NewCachedSource wraps next. A ttl of 0 keeps entries until Flush.
func NewCachedSource(next Source, ttl time.Duration) *CachedSource {
	expiration := ttl
	cleanup := 2 * ttl
	if ttl <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	}
	return &CachedSource{
		next:  next,
		cache: cache.New(expiration, cleanup),
	}
}

// Fetch implements Source.
func (s *CachedSource) Fetch(ctx context.Context, ref decision.AssetRef) ([]byte, error) {
	key := cacheKey(ref)
	if v, found := s.cache.Get(key); found {
		metrics.RecordCacheLookup(true)
		return v.([]byte), nil
	}
	metrics.RecordCacheLookup(false)

	data, err := s.next.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, data)
	return data, nil
}

// Len returns the number of cached fragments, including expired ones not yet
// cleaned up.
func (s *CachedSource) Len() int {
	return s.cache.ItemCount()
}

// Flush drops every cached fragment.
func (s *CachedSource) Flush() {
	s.cache.Flush()
}

func cacheKey(ref decision.AssetRef) string {
	return fmt.Sprintf("%d/%d/%s", ref.StreamID, ref.Sequence, ref.Path)
}
