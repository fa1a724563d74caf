// Package monitor ties the connection pool, stats collectors, cache and
// scheduler together behind one facade. The CLI talks to a Monitor and
// nothing else.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jholliman/vantage/internal/cache"
	"github.com/jholliman/vantage/internal/config"
	"github.com/jholliman/vantage/internal/errors"
	"github.com/jholliman/vantage/internal/logger"
	"github.com/jholliman/vantage/internal/pool"
	"github.com/jholliman/vantage/internal/profile"
	"github.com/jholliman/vantage/internal/scheduler"
	"github.com/jholliman/vantage/internal/stats"
	"github.com/jholliman/vantage/pkg/sshutil"
)

// localKey is the cache key for snapshots of the machine vantage runs on.
const localKey = "local"

// Monitor is the top-level facade. All methods are safe for concurrent
// use.
type Monitor struct {
	cfg       *config.Config
	log       logger.Logger
	store     *profile.Store
	pool      *pool.Pool
	cache     *cache.Cache[*stats.Snapshot]
	sched     *scheduler.Scheduler
	collector *stats.Collector
	local     *stats.LocalCollector

	mu     sync.Mutex
	active *profile.Identity
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the monitor's logger, propagated to its components.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

// WithDialer overrides how SSH sessions are established. Used by tests.
func WithDialer(dial pool.DialFunc) Option {
	return func(m *Monitor) {
		m.pool = pool.New(
			pool.WithDialer(dial),
			pool.WithProfileSaver(m.store),
			pool.WithLogger(m.log),
		)
	}
}

// New builds a monitor from config. The profile store is loaded eagerly
// so a corrupt profiles file surfaces here rather than mid-connect.
func New(cfg *config.Config, opts ...Option) (*Monitor, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	store, err := profile.NewStore(cfg.ProfilesPathOrDefault())
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		cfg:   cfg,
		log:   logger.NewEnvLogger("[monitor]"),
		store: store,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.pool == nil {
		dialOpts := sshutil.DialOptions{ConnectTimeout: cfg.ConnectTimeout}
		m.pool = pool.New(
			pool.WithDialer(func(p profile.Profile) (sshutil.Session, error) {
				return sshutil.Dial(p, dialOpts)
			}),
			pool.WithProfileSaver(m.store),
			pool.WithLogger(m.log),
		)
	}

	m.cache = cache.New[*stats.Snapshot](
		cache.WithDefaultTTL[*stats.Snapshot](cfg.CacheTTL),
		cache.WithSweepInterval[*stats.Snapshot](cfg.SweepInterval),
		cache.WithLogger[*stats.Snapshot](m.log),
	)
	m.cache.StartSweeper()

	collectorOpts := []stats.CollectorOption{
		stats.WithCommandTimeout(cfg.ProbeTimeout),
		stats.WithLoopback(cfg.IncludeLoopback),
		stats.WithCollectorLogger(m.log),
	}
	localOpts := []stats.LocalOption{
		stats.WithLocalLoopback(cfg.IncludeLoopback),
		stats.WithLocalLogger(m.log),
	}
	if len(cfg.Services) > 0 {
		collectorOpts = append(collectorOpts, stats.WithServices(cfg.Services))
		localOpts = append(localOpts, stats.WithLocalServices(cfg.Services))
	}
	m.collector = stats.NewCollector(collectorOpts...)
	m.local = stats.NewLocalCollector(localOpts...)

	m.sched = scheduler.New("stats-refresh", m.refreshTick, scheduler.WithLogger(m.log))
	return m, nil
}

// Connect establishes a session to the host and makes it the active
// target. The profile is saved on success.
func (m *Monitor) Connect(prof profile.Profile) (profile.Identity, error) {
	id, err := m.pool.Connect(prof)
	if err != nil {
		return profile.Identity{}, err
	}

	m.mu.Lock()
	m.active = &id
	m.mu.Unlock()

	m.collector.ResetCPUBaseline(id.Key())
	m.cache.Invalidate(id.Key())
	return id, nil
}

// Disconnect closes the active session. No-op when nothing is connected.
func (m *Monitor) Disconnect() {
	m.mu.Lock()
	id := m.active
	m.active = nil
	m.mu.Unlock()

	if id == nil {
		return
	}
	m.pool.Disconnect(*id)
	m.cache.Invalidate(id.Key())
	m.collector.ResetCPUBaseline(id.Key())
}

// SwitchTo atomically moves the active target to a new host: the old
// session is closed before the new one is established.
func (m *Monitor) SwitchTo(prof profile.Profile) (profile.Identity, error) {
	m.mu.Lock()
	old := m.active
	m.mu.Unlock()

	if old != nil {
		m.cache.Invalidate(old.Key())
		m.collector.ResetCPUBaseline(old.Key())
	}

	id, err := m.pool.Switch(old, prof)
	if err != nil {
		m.mu.Lock()
		m.active = nil
		m.mu.Unlock()
		return profile.Identity{}, err
	}

	m.mu.Lock()
	m.active = &id
	m.mu.Unlock()
	return id, nil
}

// Active returns the identity of the connected host, if any.
func (m *Monitor) Active() (profile.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return profile.Identity{}, false
	}
	return *m.active, true
}

// GetStats returns a snapshot for the active host, or the local machine
// when nothing is connected. With useCache false the battery always runs
// and the fresh result replaces whatever was cached. The second return
// reports whether the snapshot came from the cache.
func (m *Monitor) GetStats(ctx context.Context, useCache bool) (*stats.Snapshot, bool, error) {
	key, fetch := m.fetcher(ctx)

	if !useCache {
		// Force a miss so the fresh snapshot is stored for later reads.
		m.cache.Invalidate(key)
	}
	return m.cache.GetOrFetch(key, m.cfg.CacheTTL, fetch)
}

// fetcher resolves the collection target at call time.
func (m *Monitor) fetcher(ctx context.Context) (string, func() (*stats.Snapshot, error)) {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()

	if active == nil {
		return localKey, func() (*stats.Snapshot, error) {
			return m.local.Collect(ctx)
		}
	}

	id := *active
	return id.Key(), func() (*stats.Snapshot, error) {
		entry, ok := m.pool.Get(id)
		if !ok {
			return nil, errors.New(errors.ErrNotConnected,
				"No session for "+id.String(),
				"Reconnect with 'vantage connect'.")
		}
		return m.collector.Collect(ctx, entry.Session, id.Key())
	}
}

// refreshTick is the scheduler task: force-refresh the current target.
func (m *Monitor) refreshTick(ctx context.Context) error {
	_, _, err := m.GetStats(ctx, false)
	return err
}

// Profiles returns the saved connection profiles.
func (m *Monitor) Profiles() []profile.Profile {
	return m.store.List()
}

// SaveProfile upserts a profile without connecting to it.
func (m *Monitor) SaveProfile(p profile.Profile) error {
	return m.store.Save(p.Normalize())
}

// RemoveProfile deletes a saved profile.
func (m *Monitor) RemoveProfile(id profile.Identity) error {
	return m.store.Remove(id)
}

// FindProfile looks up a saved profile by identity.
func (m *Monitor) FindProfile(id profile.Identity) (profile.Profile, bool) {
	return m.store.Find(id)
}

// CacheStats returns cache accounting.
func (m *Monitor) CacheStats() cache.Stats {
	return m.cache.Stats()
}

// CacheClear drops all cached snapshots and resets the counters.
func (m *Monitor) CacheClear() {
	m.cache.Clear()
}

// CacheCleanupExpired sweeps expired entries and reports how many were
// removed.
func (m *Monitor) CacheCleanupExpired() int {
	return m.cache.SweepExpired()
}

// SetCacheEnabled toggles snapshot caching.
func (m *Monitor) SetCacheEnabled(enabled bool) {
	m.cache.SetEnabled(enabled)
}

// CacheEnabled reports whether snapshot caching is on.
func (m *Monitor) CacheEnabled() bool {
	return m.cache.Enabled()
}

// SchedulerStart begins periodic collection. A non-positive interval
// uses the configured refresh interval.
func (m *Monitor) SchedulerStart(interval time.Duration) error {
	if interval <= 0 {
		interval = m.cfg.RefreshInterval
	}
	return m.sched.Start(interval)
}

// SchedulerStop halts periodic collection.
func (m *Monitor) SchedulerStop() {
	m.sched.Stop()
}

// SchedulerUpdateInterval changes the collection period, starting the
// scheduler if it was stopped.
func (m *Monitor) SchedulerUpdateInterval(interval time.Duration) error {
	return m.sched.UpdateInterval(interval)
}

// SchedulerStatus returns the scheduler state.
func (m *Monitor) SchedulerStatus() scheduler.State {
	return m.sched.Status()
}

// Close stops background work and tears down every session.
func (m *Monitor) Close() {
	m.sched.Stop()
	m.cache.StopSweeper()
	m.pool.Close()
}
