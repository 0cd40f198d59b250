// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache provides a TTL result cache for taskview query paths.
//
// Task directories are re-read by the editor extension at any time, so
// taskview never trusts a cached value for long: every entry carries the
// time it was computed and is discarded once its TTL has elapsed. There
// is no background sweeper; expired entries are dropped lazily when the
// key is next requested.
//
// # Key Types
//
//   - Cache: TTL-bounded key/value store with request coalescing
//
// # Usage
//
// Create a cache and compute through it:
//
//	c := cache.New(cache.DefaultTTL)
//	v, err := c.GetOrCompute("locations:100", func() (any, error) {
//	    return expensiveLookup("100")
//	})
//
// Concurrent callers that miss on the same key share a single compute
// call via singleflight. Writes replace entries wholesale; the last
// writer wins.
package cache
