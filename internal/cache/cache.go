// Package cache provides block-height caching for timestamp lookups.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// BlockCache stores the block height resolved for a Unix timestamp.
type BlockCache interface {
	// Get returns the cached height for ts, if any.
	Get(ctx context.Context, ts int64) (uint64, bool, error)

	// Set stores the height resolved for ts.
	Set(ctx context.Context, ts int64, height uint64) error
}

// Compile-time interface checks
var (
	_ BlockCache = (*MemoryBlockCache)(nil)
	_ BlockCache = (*RedisBlockCache)(nil)
)

// MemoryBlockCache is an in-process BlockCache. It can be persisted with FileStorage.
type MemoryBlockCache struct {
	mu      sync.RWMutex          `json:"-"`
	Entries map[string]BlockEntry `json:"entries"`
}

// BlockEntry is one cached lookup.
type BlockEntry struct {
	Height    uint64    `json:"height"`
	CachedAt  time.Time `json:"cached_at"`
	Timestamp int64     `json:"timestamp"`
}

// NewMemoryBlockCache creates a new empty cache.
func NewMemoryBlockCache() *MemoryBlockCache {
	return &MemoryBlockCache{
		Entries: make(map[string]BlockEntry),
	}
}

// Key generates the cache key for a timestamp.
func Key(ts int64) string {
	return strconv.FormatInt(ts, 10)
}

// Get returns the cached height for ts.
func (c *MemoryBlockCache) Get(_ context.Context, ts int64) (uint64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.Entries[Key(ts)]
	if !ok {
		return 0, false, nil
	}
	return entry.Height, true, nil
}

// Set stores the height for ts.
func (c *MemoryBlockCache) Set(_ context.Context, ts int64, height uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Entries[Key(ts)] = BlockEntry{Height: height, Timestamp: ts, CachedAt: time.Now()}
	return nil
}

// Size returns the number of cache entries.
func (c *MemoryBlockCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.Entries)
}

// Clear removes all cache entries.
func (c *MemoryBlockCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Entries = make(map[string]BlockEntry)
}

// Prune removes entries cached longer ago than maxAge.
func (c *MemoryBlockCache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for key, entry := range c.Entries {
		if entry.CachedAt.Before(cutoff) {
			delete(c.Entries, key)
			removed++
		}
	}
	return removed
}
