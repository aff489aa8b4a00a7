// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

// Package cache provides the thread-safe TTL cache used for per-user stats
// responses. Entries are invalidated by prefix when an import completes.
package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rookery/internal/metrics"
)

// Entry represents a cached item with expiration
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Cache provides a thread-safe in-memory cache with TTL support and an
// optional entry cap.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	ttl      time.Duration
	capacity int
	name     string
	stats    Stats

	stopOnce sync.Once
	stop     chan struct{}
	now      func() time.Time
}

// Stats tracks cache performance metrics
type Stats struct {
	mu          sync.RWMutex
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// New creates a cache named name (used as the metrics label) whose entries
// live for ttl. capacity <= 0 means unbounded. A background goroutine
// removes expired entries until Stop is called.
//
// Example:
//
//	c := cache.New("stats", 5*time.Minute, 1000)
//	defer c.Stop()
//	c.Set(cache.GenerateKey("stats:"+userID, filter), summary)
func New(name string, ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &Cache{
		entries:  make(map[string]Entry),
		ttl:      ttl,
		capacity: capacity,
		name:     name,
		stop:     make(chan struct{}),
		now:      time.Now,
		stats: Stats{
			LastCleanup: time.Now(),
		},
	}

	go c.cleanupLoop(cleanupInterval(ttl))

	return c
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < 5*time.Minute {
		return ttl
	}
	return 5 * time.Minute
}

// Get retrieves a value from the cache. Expired entries are removed and
// count as misses.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss()
		return nil, false
	}

	if c.now().After(entry.ExpiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		c.recordMiss()
		c.recordEvictions(1)
		return nil, false
	}

	c.recordHit()
	return entry.Data, true
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL. When the cache is full the
// entry closest to expiry is evicted first.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := int64(0)
	if _, exists := c.entries[key]; !exists && c.capacity > 0 && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
		evicted++
	}

	c.entries[key] = Entry{
		Data:      value,
		ExpiresAt: c.now().Add(ttl),
	}

	c.stats.mu.Lock()
	c.stats.TotalKeys = int64(len(c.entries))
	c.stats.Evictions += evicted
	c.stats.mu.Unlock()
}

func (c *Cache) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
		first     = true
	)
	for k, e := range c.entries {
		if first || e.ExpiresAt.Before(oldest) {
			oldestKey, oldest, first = k, e.ExpiresAt, false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// Delete removes a specific cache entry by key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	if existed {
		c.recordEvictions(1)
	}
}

// DeletePrefix removes every entry whose key starts with prefix and returns
// how many were removed.
func (c *Cache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	removed := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			removed++
		}
	}
	total := int64(len(c.entries))
	c.mu.Unlock()

	c.stats.mu.Lock()
	c.stats.Evictions += int64(removed)
	c.stats.TotalKeys = total
	c.stats.mu.Unlock()

	metrics.CacheInvalidations.WithLabelValues(c.name).Inc()
	return removed
}

// UserKey builds the key for a per-user entry in namespace.
func UserKey(namespace, userID string, params interface{}) string {
	return GenerateKey(namespace+":"+userID, params)
}

// InvalidateUser removes every entry UserKey built for userID in namespace.
func (c *Cache) InvalidateUser(namespace, userID string) int {
	return c.DeletePrefix(namespace + ":" + userID + ":")
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	evictions := int64(len(c.entries))
	c.entries = make(map[string]Entry)
	c.mu.Unlock()

	c.stats.mu.Lock()
	c.stats.Evictions += evictions
	c.stats.TotalKeys = 0
	c.stats.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns a snapshot of current cache statistics.
func (c *Cache) GetStats() Stats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()

	return Stats{
		Hits:        c.stats.Hits,
		Misses:      c.stats.Misses,
		Evictions:   c.stats.Evictions,
		TotalKeys:   c.stats.TotalKeys,
		LastCleanup: c.stats.LastCleanup,
	}
}

// HitRate returns the cache hit rate as a percentage
func (c *Cache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// Stop ends the background cleanup goroutine. It is safe to call more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup removes all expired entries
func (c *Cache) cleanup() {
	now := c.now()
	c.mu.Lock()
	evictions := int64(0)
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			evictions++
		}
	}
	total := int64(len(c.entries))
	c.mu.Unlock()

	c.stats.mu.Lock()
	c.stats.Evictions += evictions
	c.stats.TotalKeys = total
	c.stats.LastCleanup = now
	c.stats.mu.Unlock()
}

func (c *Cache) recordHit() {
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
	metrics.CacheHits.WithLabelValues(c.name).Inc()
}

func (c *Cache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
	metrics.CacheMisses.WithLabelValues(c.name).Inc()
}

func (c *Cache) recordEvictions(n int64) {
	c.stats.mu.Lock()
	c.stats.Evictions += n
	c.stats.mu.Unlock()
}

// GenerateKey creates a cache key from a prefix and parameters. Keys that
// share a prefix can be invalidated together with DeletePrefix.
func GenerateKey(prefix string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", prefix, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", prefix, hash[:16])
}
