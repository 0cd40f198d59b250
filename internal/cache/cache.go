// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the freshness window applied when callers do not supply
// their own. Task files change out from under us whenever the extension
// writes, so 30 seconds is the longest we let any answer live.
const DefaultTTL = 30 * time.Second

// entry holds one cached value with the time it was computed.
type entry struct {
	value    any
	cachedAt time.Time
}

// expired reports whether the entry's age has reached ttl.
// An age exactly equal to ttl counts as expired.
func (e *entry) expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.cachedAt) >= ttl
}

// Cache is a TTL-bounded key/value store. Concurrent misses for the
// same key are coalesced with singleflight so the underlying compute
// function runs once, without holding the cache lock during I/O.
//
// A Cache is safe for concurrent use. The zero value is not usable;
// construct with New.
type Cache struct {
	ttl time.Duration

	mu sync.RWMutex
	sf singleflight.Group

	entries map[string]*entry
}

// New creates a Cache whose entries expire after ttl.
// A ttl <= 0 falls back to DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]*entry),
	}
}

// GetOrCompute returns the cached value for key if it is still fresh,
// otherwise runs compute, stores the result, and returns it. Errors
// from compute are returned to every coalesced caller and nothing is
// cached for that key.
func (c *Cache) GetOrCompute(key string, compute func() (any, error)) (any, error) {
	return c.GetOrComputeTTL(key, c.ttl, compute)
}

// GetOrComputeTTL is GetOrCompute with a per-call TTL override.
// A ttl <= 0 bypasses the cache entirely: compute runs and its result
// is not stored.
func (c *Cache) GetOrComputeTTL(key string, ttl time.Duration, compute func() (any, error)) (any, error) {
	if ttl <= 0 {
		return compute()
	}

	// Fast path: check cache with read lock.
	now := time.Now()
	c.mu.RLock()
	e := c.entries[key]
	c.mu.RUnlock()

	if e != nil {
		if !e.expired(ttl, now) {
			return e.value, nil
		}
		// Lazy eviction: drop the stale entry before recomputing, but
		// only if no writer replaced it since we looked.
		c.mu.Lock()
		if cur := c.entries[key]; cur == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}

	// Slow path: singleflight coalesces concurrent misses so compute
	// runs once per key, without holding the lock during I/O.
	v, err, _ := c.sf.Do(key, func() (any, error) {
		value, err := compute()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = &entry{value: value, cachedAt: time.Now()}
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Invalidate removes the entry for key, if any.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll clears every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// Len reports the number of stored entries, expired or not.
// Useful in tests; expired entries linger until their key is read.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
