package marketdata

import (
	"sync"
	"time"
)

// Freshness windows for cached market data.
const (
	QuoteTTL    = 5 * time.Minute // current price + fundamentals snapshot
	SectorPETTL = time.Hour       // sector average P/E
)

type cacheEntry[V any] struct {
	value     V
	fetchedAt time.Time
}

// TTLCache maps keys to values stamped with their fetch time. An entry older
// than the TTL is treated as absent.
type TTLCache[K comparable, V any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[K]cacheEntry[V]
}

// NewTTLCache creates a cache. now may be nil, in which case time.Now is used.
func NewTTLCache[K comparable, V any](ttl time.Duration, now func() time.Time) *TTLCache[K, V] {
	if now == nil {
		now = time.Now
	}
	return &TTLCache[K, V]{
		ttl:     ttl,
		now:     now,
		entries: make(map[K]cacheEntry[V]),
	}
}

// Get returns the value for key if it was stored less than TTL ago.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, stamped with the current time.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.entries[key] = cacheEntry[V]{value: value, fetchedAt: c.now()}
	c.mu.Unlock()
}

// Delete removes key.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// PurgeExpired drops every entry past its TTL and returns how many were removed.
func (c *TTLCache[K, V]) PurgeExpired() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.fetchedAt) >= c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, fresh or not.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
