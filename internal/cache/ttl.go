// Package cache provides a small, process-local TTL cache used by the
// integration data fetcher to absorb repeated lookups within a short window.
//
// The cache is a pure performance optimization: a miss always falls through
// to a live fetch, so correctness never depends on it. Entries are written
// wholesale and never mutated in place, which makes the lost-update race
// between two concurrent misses harmless (one wasted fetch).
//
// The Store interface exists so the in-memory map can later be swapped for a
// shared store (e.g. Redis) in multi-instance deployments without touching
// callers.
package cache

import (
	"sync"
	"time"
)

// sweepThreshold is the entry count above which Set triggers a full sweep of
// expired entries. Lookups below this bound rely on lazy per-key eviction.
const sweepThreshold = 100

// Store is the keyed TTL cache contract used by services.
type Store[V any] interface {
	// Get returns the cached value for key and whether a live entry exists.
	// Expired entries are evicted on access and reported as a miss.
	Get(key string) (V, bool)
	// Set stores value under key with the given time-to-live.
	Set(key string, value V, ttl time.Duration)
	// Sweep removes all expired entries and returns how many were evicted.
	Sweep() int
	// Clear drops every entry (logout, test teardown).
	Clear()
	// Len reports the number of entries currently held, expired or not.
	Len() int
}

// entry pairs a cached value with its expiry instant. An entry is valid iff
// now is not after expiresAt.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is the in-memory Store implementation: a mutex-guarded map with lazy
// eviction on read and a bulk sweep when the map grows past sweepThreshold.
// It is safe for concurrent use.
type TTL[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]

	// now is the clock source; replaced in tests to exercise expiry without
	// sleeping.
	now func() time.Time
}

// New returns an empty TTL cache using the wall clock.
func New[V any]() *TTL[V] {
	return &TTL[V]{
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// NewWithClock returns an empty TTL cache driven by the supplied clock.
func NewWithClock[V any](now func() time.Time) *TTL[V] {
	return &TTL[V]{
		entries: make(map[string]entry[V]),
		now:     now,
	}
}

// Get returns the live value under key. An expired entry is deleted and
// reported as a miss.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl stores an entry that
// is already expired, which callers can use to invalidate a key explicitly.
// When the map has grown past sweepThreshold, expired entries are swept
// before the insert to bound memory.
func (c *TTL[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) > sweepThreshold {
		c.sweepLocked()
	}
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Sweep removes every expired entry and returns the eviction count.
func (c *TTL[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked()
}

func (c *TTL[V]) sweepLocked() int {
	now := c.now()
	evicted := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			evicted++
		}
	}
	return evicted
}

// Clear drops all entries.
func (c *TTL[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len reports the current entry count, including not-yet-evicted expired
// entries.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
