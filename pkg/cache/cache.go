// Package cache provides a bounded, TTL-aware map keyed by request signature.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// Cache holds at most max entries. Entries older than ttl are treated as
// missing and pruned lazily. When the cap is exceeded the oldest entries are
// evicted first. A zero ttl disables expiry; a max <= 0 disables the cap.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	max   int
	ttl   time.Duration
	now   func() time.Time
	items map[K]entry[V]
}

// New creates a cache. now supplies the current time; pass nil to use time.Now.
func New[K comparable, V any](max int, ttl time.Duration, now func() time.Time) *Cache[K, V] {
	if now == nil {
		now = time.Now
	}
	return &Cache[K, V]{
		max:   max,
		ttl:   ttl,
		now:   now,
		items: make(map[K]entry[V]),
	}
}

// Get returns the value stored under key if it has not expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(e, c.now()) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, resetting its insertion time.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.items[key] = entry[V]{value: value, insertedAt: now}
	c.pruneLocked(now)
}

// Delete removes key.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet pruned.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Prune drops expired entries and enforces the cap.
func (c *Cache[K, V]) Prune() {
	c.mu.Lock()
	c.pruneLocked(c.now())
	c.mu.Unlock()
}

func (c *Cache[K, V]) expired(e entry[V], now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.insertedAt) >= c.ttl
}

func (c *Cache[K, V]) pruneLocked(now time.Time) {
	if c.ttl > 0 {
		for k, e := range c.items {
			if c.expired(e, now) {
				delete(c.items, k)
			}
		}
	}

	for c.max > 0 && len(c.items) > c.max {
		var (
			oldestKey K
			oldestAt  time.Time
			found     bool
		)
		for k, e := range c.items {
			if !found || e.insertedAt.Before(oldestAt) {
				oldestKey, oldestAt, found = k, e.insertedAt, true
			}
		}
		if !found {
			break
		}
		delete(c.items, oldestKey)
	}
}
