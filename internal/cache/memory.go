package cache

import (
	"context"
	"sync"
	"time"

	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// MemoryCache is an in-process LRU cache with optional TTL expiry.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	order   []string // LRU order, oldest first
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	resp     *retrieval.Response
	storedAt time.Time
}

// NewMemoryCache creates an in-memory response cache. A ttl of zero means
// entries never expire.
func NewMemoryCache(maxSize int, ttl time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryCache{
		entries: make(map[string]*memoryEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (*retrieval.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if c.ttl > 0 && c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, nil
	}

	c.moveToEnd(key)
	return entry.resp, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, resp *retrieval.Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = &memoryEntry{resp: resp, storedAt: c.now()}
		c.moveToEnd(key)
		return nil
	}

	// Evict oldest entries at capacity.
	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &memoryEntry{resp: resp, storedAt: c.now()}
	c.order = append(c.order, key)
	return nil
}

// Close implements Cache.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*memoryEntry)
	c.order = c.order[:0]
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// moveToEnd moves a key to the end of the LRU order (must hold lock).
func (c *MemoryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

// removeFromOrder deletes a key from the LRU order (must hold lock).
func (c *MemoryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
