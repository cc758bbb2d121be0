// Package cache holds the in-memory TTL caches, their key builders and the
// optional Redis tier shared between API replicas.
package cache

import (
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/hszk-dev/tripreel/internal/infrastructure/metrics"
)

const (
	defaultMaxEntries = 1000
	defaultTTL        = 24 * time.Hour

	// evictionFraction of MaxEntries is dropped at once when the cache is full.
	evictionFraction = 0.1
)

// Config configures a GenericCache.
type Config struct {
	// Name identifies the cache in stats and metrics.
	Name string
	// MaxEntries bounds the number of stored entries.
	MaxEntries int
	// TTL is how long an entry stays fresh after it was written.
	TTL time.Duration
}

// Option customizes a GenericCache.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock overrides the time source. Tests pass a clock.Mock.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// Entry is a cached value and the time it was written.
type Entry[T any] struct {
	Data      T
	Timestamp time.Time
}

// Stats describes a cache's current occupancy.
type Stats struct {
	Name    string  `json:"name"`
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	TTLDays float64 `json:"ttl_days"`
}

// GenericCache is a bounded key/value store with a fixed TTL.
//
// Expiry is measured from the write time; reads do not refresh it. When the
// cache is full, Set drops the oldest-written tenth of the entries before
// inserting, so eviction follows insertion order rather than access order.
type GenericCache[T any] struct {
	name       string
	maxEntries int
	ttl        time.Duration
	clock      clock.Clock

	mu      sync.Mutex
	entries map[string]Entry[T]
}

// NewGenericCache creates an empty cache.
// Non-positive MaxEntries or TTL fall back to 1000 entries and 24 hours.
func NewGenericCache[T any](cfg Config, opts ...Option) *GenericCache[T] {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}

	return &GenericCache[T]{
		name:       cfg.Name,
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
		clock:      o.clock,
		entries:    make(map[string]Entry[T]),
	}
}

// Get returns the value stored under key.
// An expired entry is deleted and reported as a miss.
func (c *GenericCache[T]) Get(key string) (T, bool) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeMemory).Inc()
		return zero, false
	}

	if c.expired(entry) {
		delete(c.entries, key)
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusExpired, metrics.CacheTypeMemory).Inc()
		return zero, false
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeMemory).Inc()
	return entry.Data, true
}

// Set stores data under key, replacing any previous entry.
func (c *GenericCache[T]) Set(key string, data T) {
	c.SetAt(key, data, c.clock.Now())
}

// SetAt stores data as if it had been written at writtenAt, so it expires
// TTL after that time rather than TTL from now. An entry that is already
// stale is not stored and SetAt returns false.
func (c *GenericCache[T]) SetAt(key string, data T, writtenAt time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := Entry[T]{Data: data, Timestamp: writtenAt}
	if c.expired(entry) {
		return false
	}

	if len(c.entries) >= c.maxEntries {
		c.evictOldestLocked(int(math.Ceil(float64(c.maxEntries) * evictionFraction)))
	}

	c.entries[key] = entry
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeMemory).Inc()
	return true
}

// Has reports whether key holds a fresh entry. It shares Get's expiry behavior.
func (c *GenericCache[T]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (c *GenericCache[T]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	delete(c.entries, key)
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusSuccess, metrics.CacheTypeMemory).Inc()
	return ok
}

// Clear removes every entry.
func (c *GenericCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry[T])
}

// Keys returns the keys of all unexpired entries in sorted order.
func (c *GenericCache[T]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if !c.expired(e) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of stored entries, including expired ones not yet read.
func (c *GenericCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Name returns the configured cache name.
func (c *GenericCache[T]) Name() string {
	return c.name
}

// TTL returns the configured time-to-live.
func (c *GenericCache[T]) TTL() time.Duration {
	return c.ttl
}

// Now returns the current time of the cache's clock.
func (c *GenericCache[T]) Now() time.Time {
	return c.clock.Now()
}

// Stats returns the cache's current occupancy.
func (c *GenericCache[T]) Stats() Stats {
	return Stats{
		Name:    c.name,
		Size:    c.Len(),
		MaxSize: c.maxEntries,
		TTLDays: c.ttl.Hours() / 24,
	}
}

func (c *GenericCache[T]) expired(e Entry[T]) bool {
	return c.clock.Now().Sub(e.Timestamp) > c.ttl
}

// evictOldestLocked removes the n entries with the smallest timestamps.
// Ties are broken by key so eviction is deterministic.
func (c *GenericCache[T]) evictOldestLocked(n int) {
	type aged struct {
		key string
		ts  time.Time
	}

	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{key: k, ts: e.Timestamp})
	}
	slices.SortFunc(all, func(a, b aged) int {
		if d := a.ts.Compare(b.ts); d != 0 {
			return d
		}
		return strings.Compare(a.key, b.key)
	})

	n = min(n, len(all))
	for _, a := range all[:n] {
		delete(c.entries, a.key)
	}
	metrics.CacheEvictionsTotal.WithLabelValues(c.name).Add(float64(n))
}
