package metadata

import (
	"sync"
	"time"
)

type cacheEntry struct {
	item     *Item
	cachedAt time.Time
}

// InMemoryCache is a simple in-memory implementation of Cache
// Thread-safe for concurrent access
type InMemoryCache struct {
	entries map[string]cacheEntry
	config  CacheConfig
	now     func() time.Time
	mu      sync.RWMutex
}

// NewInMemoryCache creates a new in-memory item cache
func NewInMemoryCache(config CacheConfig) *InMemoryCache {
	return &InMemoryCache{
		entries: make(map[string]cacheEntry),
		config:  config,
		now:     time.Now,
	}
}

// Get retrieves a cached item
// Returns false if the item is missing or expired
func (c *InMemoryCache) Get(id string) (*Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[id]
	if !ok || c.expired(entry) {
		return nil, false
	}
	return entry.item, true
}

// Set stores an item in cache
func (c *InMemoryCache) Set(item *Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[item.ID]; !exists && c.config.MaxEntries > 0 && len(c.entries) >= c.config.MaxEntries {
		c.evict()
	}
	c.entries[item.ID] = cacheEntry{item: item, cachedAt: c.now()}
}

// Invalidate drops an item from the cache
func (c *InMemoryCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, id)
}

// Len returns the number of cached entries
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

func (c *InMemoryCache) expired(entry cacheEntry) bool {
	return c.config.TTL > 0 && c.now().Sub(entry.cachedAt) > c.config.TTL
}

// evict removes expired entries, or the oldest entry if none expired. Caller holds the lock.
func (c *InMemoryCache) evict() {
	var (
		oldestID string
		oldestAt time.Time
		removed  bool
	)
	for id, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, id)
			removed = true
			continue
		}
		if oldestID == "" || entry.cachedAt.Before(oldestAt) {
			oldestID = id
			oldestAt = entry.cachedAt
		}
	}
	if !removed && oldestID != "" {
		delete(c.entries, oldestID)
	}
}
