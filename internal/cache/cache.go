// Package cache provides a TTL keyed cache with hit/miss accounting and
// a background sweeper for expired entries. Fetch errors are never
// cached: a failed refresh leaves whatever was stored before untouched.
package cache

import (
	"sync"
	"time"

	"github.com/jholliman/vantage/internal/logger"
)

// Defaults for the stats cache. A snapshot stays fresh for the TTL; the
// sweeper reclaims expired entries that nobody re-reads.
const (
	DefaultTTL           = 30 * time.Second
	DefaultSweepInterval = 60 * time.Second
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// expired reports staleness; an entry is fresh strictly before its
// deadline, never at it.
func (e entry[V]) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// Cache is a mutex-guarded TTL cache. The zero value is not usable; use
// New.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]entry[V]
	defaultTTL time.Duration
	sweepEvery time.Duration
	enabled    bool
	hits       uint64
	misses     uint64
	log        logger.Logger

	stopSweep chan struct{}
	sweeping  bool
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithDefaultTTL sets the TTL applied when GetOrFetch is called with a
// non-positive ttl.
func WithDefaultTTL[V any](ttl time.Duration) Option[V] {
	return func(c *Cache[V]) { c.defaultTTL = ttl }
}

// WithSweepInterval sets how often the background sweeper runs.
func WithSweepInterval[V any](d time.Duration) Option[V] {
	return func(c *Cache[V]) { c.sweepEvery = d }
}

// WithLogger sets the cache's logger.
func WithLogger[V any](l logger.Logger) Option[V] {
	return func(c *Cache[V]) { c.log = l }
}

// New creates an enabled cache.
func New[V any](opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		entries:    make(map[string]entry[V]),
		defaultTTL: DefaultTTL,
		sweepEvery: DefaultSweepInterval,
		enabled:    true,
		log:        logger.NewEnvLogger("[cache]"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFetch returns the cached value for key when one is present and
// fresh, otherwise calls fetch and caches its result under the given ttl
// (the default TTL when ttl is non-positive). The second return reports
// whether the value came from the cache.
//
// A fetch error is returned as-is and nothing is stored, so a stale or
// missing entry is never replaced by a failure. Concurrent misses on the
// same key each call fetch; the last writer wins.
func (c *Cache[V]) GetOrFetch(key string, ttl time.Duration, fetch func() (V, error)) (V, bool, error) {
	if fetch == nil {
		panic("cache: nil fetch func")
	}

	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		v, err := fetch()
		return v, false, err
	}

	if e, ok := c.entries[key]; ok && !e.expired(time.Now()) {
		c.hits++
		c.mu.Unlock()
		return e.value, true, nil
	}
	c.misses++
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Unlock()

	v, err := fetch()
	if err != nil {
		var zero V
		return zero, false, err
	}

	c.mu.Lock()
	if c.enabled {
		c.entries[key] = entry[V]{value: v, expiresAt: time.Now().Add(ttl)}
	}
	c.mu.Unlock()
	return v, false, nil
}

// Peek returns the cached value for key without counting a hit or miss
// and without fetching.
func (c *Cache[V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.expired(time.Now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Invalidate removes a single entry, reporting whether it was present.
func (c *Cache[V]) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Clear removes every entry and resets the hit/miss counters.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry[V])
	c.hits = 0
	c.misses = 0
}

// SweepExpired removes entries whose TTL has passed and returns how many
// were removed.
func (c *Cache[V]) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.log.Debug("swept %d expired entries", removed)
	}
	return removed
}

// SetEnabled toggles the cache. Disabling does not drop stored entries;
// re-enabling makes still-fresh entries visible again.
func (c *Cache[V]) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// Enabled reports whether the cache is serving entries.
func (c *Cache[V]) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Stats is a point-in-time view of cache accounting.
type Stats struct {
	Size       int           `json:"size"`
	Hits       uint64        `json:"hits"`
	Misses     uint64        `json:"misses"`
	HitRate    float64       `json:"hit_rate"`
	DefaultTTL time.Duration `json:"default_ttl"`
	Enabled    bool          `json:"enabled"`
}

// Stats returns current accounting. HitRate is 0 before any lookup.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:       len(c.entries),
		Hits:       c.hits,
		Misses:     c.misses,
		DefaultTTL: c.defaultTTL,
		Enabled:    c.enabled,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// StartSweeper launches the background sweep loop. Calling it on a
// running sweeper is a no-op.
func (c *Cache[V]) StartSweeper() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sweeping {
		return
	}
	c.sweeping = true
	c.stopSweep = make(chan struct{})

	go func(stop chan struct{}) {
		ticker := time.NewTicker(c.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.SweepExpired()
			case <-stop:
				return
			}
		}
	}(c.stopSweep)
}

// StopSweeper halts the background sweep loop. Safe to call when the
// sweeper isn't running.
func (c *Cache[V]) StopSweeper() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sweeping {
		return
	}
	close(c.stopSweep)
	c.sweeping = false
}
