package proxy

import (
	"fmt"
	"sync"
	"time"

	"github.com/haneul-dev/addrsearch/internal/core/domain"
)

// cache is a short-TTL in-memory result cache keyed by (query, size). Owned
// exclusively by one Client; no cross-instance sharing.
type cache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	results  []domain.AddressResult
	storedAt time.Time
}

func newCache(ttl time.Duration) *cache {
	return &cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(query string, size int) string {
	return fmt.Sprintf("%s|%d", query, size)
}

func (c *cache) get(query string, size int) ([]domain.AddressResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cacheKey(query, size)]
	if !ok || time.Since(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.results, true
}

func (c *cache) set(query string, size int, results []domain.AddressResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Drop expired entries while we hold the lock; the key space is tiny
	// (unique queries within the TTL window).
	now := time.Now()
	for k, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}

	c.entries[cacheKey(query, size)] = cacheEntry{results: results, storedAt: now}
}

func (c *cache) invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
