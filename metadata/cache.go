package metadata

import (
	"context"
	"time"
)

// Cache provides an abstraction for caching items looked up by ID.
// This allows swapping between in-memory, Redis, or other caching implementations.
type Cache interface {
	// Get returns the cached item and whether it was present and fresh
	Get(id string) (*Item, bool)

	// Set stores an item
	Set(item *Item)

	// Invalidate drops a single item
	Invalidate(id string)

	// Len returns the number of cached entries, fresh or not
	Len() int
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries
	// Set to 0 for no expiration (manual invalidation only)
	TTL time.Duration

	// MaxEntries bounds the cache size; 0 means unbounded.
	// When full, expired entries are evicted first, then the oldest entry.
	MaxEntries int
}

// DefaultCacheConfig returns sensible defaults for item caching
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:        10 * time.Minute,
		MaxEntries: 10000,
	}
}

// CachedStore serves Get from a cache and delegates everything else to the wrapped store
type CachedStore struct {
	Store
	cache Cache
}

// NewCachedStore wraps store with cache
func NewCachedStore(store Store, cache Cache) *CachedStore {
	return &CachedStore{Store: store, cache: cache}
}

// Get returns a cached item or loads it from the wrapped store
func (s *CachedStore) Get(ctx context.Context, id string) (*Item, error) {
	if item, ok := s.cache.Get(id); ok {
		return item, nil
	}

	item, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(item)
	return item, nil
}

// Delete removes the item from the store and the cache
func (s *CachedStore) Delete(ctx context.Context, id string) error {
	s.cache.Invalidate(id)
	return s.Store.Delete(ctx, id)
}
