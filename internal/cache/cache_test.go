// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetOrCompute_CachesWithinTTL(t *testing.T) {
	c := New(time.Minute)

	calls := 0
	compute := func() (any, error) {
		calls++
		return "fresh", nil
	}

	v, err := c.GetOrCompute("k", compute)
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if v != "fresh" {
		t.Errorf("got %v, want fresh", v)
	}

	// Second read inside the TTL must not recompute.
	v, err = c.GetOrCompute("k", compute)
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if v != "fresh" {
		t.Errorf("got %v, want fresh", v)
	}
	if calls != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
}

func TestGetOrCompute_RecomputesAfterExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)

	calls := 0
	compute := func() (any, error) {
		calls++
		return calls, nil
	}

	if _, err := c.GetOrCompute("k", compute); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	v, err := c.GetOrCompute("k", compute)
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if v != 2 {
		t.Errorf("got %v, want recomputed value 2", v)
	}
	if calls != 2 {
		t.Errorf("compute ran %d times, want 2", calls)
	}
}

func TestGetOrComputeTTL_OverridesDefault(t *testing.T) {
	// Long default, short per-call TTL: the override must win.
	c := New(time.Hour)

	calls := 0
	compute := func() (any, error) {
		calls++
		return calls, nil
	}

	if _, err := c.GetOrComputeTTL("k", 10*time.Millisecond, compute); err != nil {
		t.Fatalf("GetOrComputeTTL failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := c.GetOrComputeTTL("k", 10*time.Millisecond, compute); err != nil {
		t.Fatalf("GetOrComputeTTL failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("compute ran %d times, want 2", calls)
	}
}

func TestGetOrComputeTTL_ZeroBypassesCache(t *testing.T) {
	c := New(time.Hour)

	calls := 0
	compute := func() (any, error) {
		calls++
		return calls, nil
	}

	for i := 0; i < 3; i++ {
		if _, err := c.GetOrComputeTTL("k", 0, compute); err != nil {
			t.Fatalf("GetOrComputeTTL failed: %v", err)
		}
	}
	if calls != 3 {
		t.Errorf("compute ran %d times, want 3", calls)
	}
	if c.Len() != 0 {
		t.Errorf("cache stored %d entries, want 0", c.Len())
	}
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	c := New(time.Minute)

	wantErr := errors.New("disk on fire")
	calls := 0

	_, err := c.GetOrCompute("k", func() (any, error) {
		calls++
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got error %v, want %v", err, wantErr)
	}

	// The failure must not poison the key: the next call recomputes.
	v, err := c.GetOrCompute("k", func() (any, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute failed after prior error: %v", err)
	}
	if v != "ok" {
		t.Errorf("got %v, want ok", v)
	}
	if calls != 2 {
		t.Errorf("compute ran %d times, want 2", calls)
	}
}

func TestGetOrCompute_CoalescesConcurrentMisses(t *testing.T) {
	c := New(time.Minute)

	var calls atomic.Int32
	compute := func() (any, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return "shared", nil
	}

	const n = 10
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v, err := c.GetOrCompute("k", compute)
			if err != nil {
				t.Errorf("GetOrCompute failed: %v", err)
				return
			}
			if v != "shared" {
				t.Errorf("got %v, want shared", v)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("compute ran %d times for concurrent misses, want 1", got)
	}
}

func TestInvalidate_ForcesRecompute(t *testing.T) {
	c := New(time.Hour)

	calls := 0
	compute := func() (any, error) {
		calls++
		return calls, nil
	}

	if _, err := c.GetOrCompute("k", compute); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	c.Invalidate("k")
	v, err := c.GetOrCompute("k", compute)
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if v != 2 {
		t.Errorf("got %v after Invalidate, want 2", v)
	}
}

func TestInvalidateAll_ClearsEverything(t *testing.T) {
	c := New(time.Hour)

	for _, key := range []string{"a", "b", "c"} {
		if _, err := c.GetOrCompute(key, func() (any, error) { return key, nil }); err != nil {
			t.Fatalf("GetOrCompute(%q) failed: %v", key, err)
		}
	}
	if c.Len() != 3 {
		t.Fatalf("cache has %d entries, want 3", c.Len())
	}

	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("cache has %d entries after InvalidateAll, want 0", c.Len())
	}
}

func TestNew_ZeroTTLUsesDefault(t *testing.T) {
	c := New(0)
	if c.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultTTL)
	}
}

func TestExpiredEntry_EvictedLazily(t *testing.T) {
	c := New(10 * time.Millisecond)

	if _, err := c.GetOrCompute("k", func() (any, error) { return 1, nil }); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	// Expired but untouched: the entry is still resident.
	if c.Len() != 1 {
		t.Fatalf("cache has %d entries before re-read, want 1", c.Len())
	}

	// Touching the key evicts and recomputes.
	v, err := c.GetOrCompute("k", func() (any, error) { return 2, nil })
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if v != 2 {
		t.Errorf("got %v, want 2", v)
	}
}
