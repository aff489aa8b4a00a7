// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/rookery/internal/metrics"
)

// newTestCache returns a cache whose clock is controlled by the caller.
func newTestCache(t *testing.T, ttl time.Duration, capacity int) (*Cache, *time.Time) {
	t.Helper()
	c := New("test_"+t.Name(), ttl, capacity)
	t.Cleanup(c.Stop)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCacheBasicOperations(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 0)

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("Expected to find key1 in cache")
	}
	if val != "value1" {
		t.Errorf("Expected value1, got %v", val)
	}

	if _, ok := c.Get("nonexistent"); ok {
		t.Error("Expected not to find nonexistent key")
	}

	c.Delete("key1")
	if _, ok := c.Get("key1"); ok {
		t.Error("Expected key1 to be deleted")
	}
}

func TestCacheExpiration(t *testing.T) {
	c, now := newTestCache(t, time.Minute, 0)

	c.Set("short", 1)
	c.SetWithTTL("long", 2, time.Hour)

	*now = now.Add(2 * time.Minute)

	if _, ok := c.Get("short"); ok {
		t.Error("Expected short to be expired")
	}
	if v, ok := c.Get("long"); !ok || v != 2 {
		t.Errorf("Get(long) = %v, %v; want 2, true", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after lazy expiry", c.Len())
	}
}

func TestCacheCleanup(t *testing.T) {
	c, now := newTestCache(t, time.Minute, 0)

	c.Set("a", 1)
	c.Set("b", 2)
	c.SetWithTTL("c", 3, time.Hour)
	*now = now.Add(5 * time.Minute)

	c.cleanup()

	stats := c.GetStats()
	if stats.TotalKeys != 1 {
		t.Errorf("TotalKeys = %d, want 1", stats.TotalKeys)
	}
	if stats.Evictions != 2 {
		t.Errorf("Evictions = %d, want 2", stats.Evictions)
	}
	if !stats.LastCleanup.Equal(*now) {
		t.Errorf("LastCleanup = %v, want %v", stats.LastCleanup, *now)
	}
}

func TestCacheCapacity(t *testing.T) {
	c, now := newTestCache(t, time.Minute, 2)

	c.Set("first", 1)
	*now = now.Add(time.Second)
	c.Set("second", 2)
	*now = now.Add(time.Second)

	// Overwriting an existing key never evicts.
	c.Set("second", 22)
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	c.Set("third", 3)
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want capacity 2", c.Len())
	}
	if _, ok := c.Get("first"); ok {
		t.Error("Expected the entry closest to expiry to be evicted")
	}
	if v, ok := c.Get("second"); !ok || v != 22 {
		t.Errorf("Get(second) = %v, %v", v, ok)
	}
}

func TestCacheDeletePrefix(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 0)
	label := "test_" + t.Name()
	before := testutil.ToFloat64(metrics.CacheInvalidations.WithLabelValues(label))

	c.Set(GenerateKey("stats:u1", map[string]string{"source": "lichess"}), 1)
	c.Set(GenerateKey("stats:u1", map[string]string{"source": "chesscom"}), 2)
	c.Set(GenerateKey("stats:u2", nil), 3)

	if n := c.DeletePrefix("stats:u1:"); n != 2 {
		t.Errorf("DeletePrefix() = %d, want 2", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	if got := testutil.ToFloat64(metrics.CacheInvalidations.WithLabelValues(label)) - before; got != 1 {
		t.Errorf("invalidations metric delta = %v, want 1", got)
	}
}

func TestCacheClear(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 0)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear", c.Len())
	}
	if c.GetStats().Evictions != 2 {
		t.Errorf("Evictions = %d, want 2", c.GetStats().Evictions)
	}
}

func TestCacheHitRate(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 0)

	if c.HitRate() != 0 {
		t.Errorf("HitRate() on empty cache = %v, want 0", c.HitRate())
	}

	c.Set("k", "v")
	c.Get("k")
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	if rate := c.HitRate(); rate != 75.0 {
		t.Errorf("HitRate() = %v, want 75", rate)
	}
	stats := c.GetStats()
	if stats.Hits != 3 || stats.Misses != 1 {
		t.Errorf("stats = %+v", &stats)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New("test_concurrent", time.Minute, 50)
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("stats:u%d:%d", id, j%10)
				c.Set(key, j)
				c.Get(key)
				if j%25 == 0 {
					c.DeletePrefix(fmt.Sprintf("stats:u%d:", id))
				}
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len() = %d exceeds capacity", c.Len())
	}
}

func TestCacheStopIdempotent(t *testing.T) {
	c := New("test_stop", time.Millisecond, 0)
	c.Stop()
	c.Stop()
}

func TestGenerateKey(t *testing.T) {
	a := GenerateKey("stats:u1", map[string]string{"source": "lichess"})
	b := GenerateKey("stats:u1", map[string]string{"source": "lichess"})
	c := GenerateKey("stats:u1", map[string]string{"source": "chesscom"})

	if a != b {
		t.Errorf("GenerateKey() not deterministic: %s != %s", a, b)
	}
	if a == c {
		t.Error("GenerateKey() should differ for different params")
	}
	if len(a) <= len("stats:u1:") || a[:len("stats:u1:")] != "stats:u1:" {
		t.Errorf("GenerateKey() = %s, want stats:u1: prefix", a)
	}
}

func TestCacheInvalidateUser(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 0)

	c.Set(UserKey("stats", "u1", nil), 1)
	c.Set(UserKey("stats", "u1", map[string]string{"opening": "sicilian"}), 2)
	c.Set(UserKey("stats", "u10", nil), 3)
	c.Set(UserKey("plans", "u1", nil), 4)

	if n := c.InvalidateUser("stats", "u1"); n != 2 {
		t.Errorf("InvalidateUser() = %d, want 2", n)
	}
	if _, ok := c.Get(UserKey("stats", "u10", nil)); !ok {
		t.Error("InvalidateUser(u1) must not touch u10")
	}
	if _, ok := c.Get(UserKey("plans", "u1", nil)); !ok {
		t.Error("InvalidateUser(stats) must not touch other namespaces")
	}
}
