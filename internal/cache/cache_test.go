package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jholliman/vantage/internal/logger"
)

func newTestCache() *Cache[string] {
	return New[string](WithLogger[string](logger.Noop()))
}

func TestEntryExpiryBoundary(t *testing.T) {
	deadline := time.Now()
	e := entry[int]{value: 1, expiresAt: deadline}

	assert.False(t, e.expired(deadline.Add(-time.Nanosecond)))
	assert.True(t, e.expired(deadline), "stale exactly at the deadline")
	assert.True(t, e.expired(deadline.Add(time.Nanosecond)))
}

func TestGetOrFetchFreshness(t *testing.T) {
	c := newTestCache()
	calls := 0
	fetch := func() (string, error) {
		calls++
		return "value", nil
	}

	v, hit, err := c.GetOrFetch("k", 100*time.Millisecond, fetch)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls)

	// Within the TTL the cached value is served without fetching.
	v, hit, err = c.GetOrFetch("k", 100*time.Millisecond, fetch)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls)

	// Past the TTL the fetch runs again.
	time.Sleep(120 * time.Millisecond)
	_, hit, err = c.GetOrFetch("k", 100*time.Millisecond, fetch)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

func TestGetOrFetchNeverCachesErrors(t *testing.T) {
	c := newTestCache()
	boom := errors.New("probe battery failed")

	_, hit, err := c.GetOrFetch("k", time.Minute, func() (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, hit)
	assert.Equal(t, 0, c.Stats().Size)

	// The very next lookup fetches again rather than replaying the error.
	v, hit, err := c.GetOrFetch("k", time.Minute, func() (string, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "recovered", v)
}

func TestGetOrFetchErrorKeepsPriorEntry(t *testing.T) {
	c := newTestCache()

	_, _, err := c.GetOrFetch("k", 50*time.Millisecond, func() (string, error) {
		return "old", nil
	})
	require.NoError(t, err)

	// Entry expires, then the refresh fails. The miss surfaces the error
	// but the stored (stale) entry is not overwritten with a failure.
	time.Sleep(70 * time.Millisecond)
	_, _, err = c.GetOrFetch("k", 50*time.Millisecond, func() (string, error) {
		return "", errors.New("host went away")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, c.Stats().Size)
}

func TestGetOrFetchDefaultTTL(t *testing.T) {
	c := New[string](
		WithDefaultTTL[string](100*time.Millisecond),
		WithLogger[string](logger.Noop()),
	)

	_, _, err := c.GetOrFetch("k", 0, func() (string, error) { return "v", nil })
	require.NoError(t, err)

	_, hit, err := c.GetOrFetch("k", 0, func() (string, error) { return "other", nil })
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestInvalidate(t *testing.T) {
	c := newTestCache()
	_, _, err := c.GetOrFetch("k", time.Minute, func() (string, error) { return "v", nil })
	require.NoError(t, err)

	assert.True(t, c.Invalidate("k"))
	assert.False(t, c.Invalidate("k"))
	assert.Equal(t, 0, c.Stats().Size)
}

func TestClearResetsCounters(t *testing.T) {
	c := newTestCache()
	fetch := func() (string, error) { return "v", nil }

	_, _, _ = c.GetOrFetch("k", time.Minute, fetch)
	_, _, _ = c.GetOrFetch("k", time.Minute, fetch)

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, 0.5, s.HitRate)

	c.Clear()
	s = c.Stats()
	assert.Equal(t, 0, s.Size)
	assert.Equal(t, uint64(0), s.Hits)
	assert.Equal(t, uint64(0), s.Misses)
	assert.Equal(t, 0.0, s.HitRate)
}

func TestSweepExpired(t *testing.T) {
	c := newTestCache()
	fetch := func() (string, error) { return "v", nil }

	for _, key := range []string{"a", "b", "c"} {
		_, _, err := c.GetOrFetch(key, 30*time.Millisecond, fetch)
		require.NoError(t, err)
	}
	_, _, err := c.GetOrFetch("keeper", time.Minute, fetch)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, c.SweepExpired())
	assert.Equal(t, 1, c.Stats().Size)
	assert.Equal(t, 0, c.SweepExpired())
}

func TestDisabledBypassesCache(t *testing.T) {
	c := newTestCache()
	calls := 0
	fetch := func() (string, error) {
		calls++
		return "v", nil
	}

	_, _, _ = c.GetOrFetch("k", time.Minute, fetch)
	require.Equal(t, 1, calls)

	c.SetEnabled(false)
	assert.False(t, c.Enabled())

	// Every lookup fetches while disabled, and counters stand still.
	before := c.Stats()
	_, hit, err := c.GetOrFetch("k", time.Minute, fetch)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
	assert.Equal(t, before.Hits, c.Stats().Hits)
	assert.Equal(t, before.Misses, c.Stats().Misses)

	// Re-enabling exposes the entry stored before the toggle.
	c.SetEnabled(true)
	_, hit, err = c.GetOrFetch("k", time.Minute, fetch)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 2, calls)
}

func TestPeek(t *testing.T) {
	c := newTestCache()

	_, ok := c.Peek("k")
	assert.False(t, ok)

	_, _, err := c.GetOrFetch("k", time.Minute, func() (string, error) { return "v", nil })
	require.NoError(t, err)

	before := c.Stats()
	v, ok := c.Peek("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, before.Hits, c.Stats().Hits)
}

func TestSweeperLifecycle(t *testing.T) {
	c := New[string](
		WithSweepInterval[string](20*time.Millisecond),
		WithLogger[string](logger.Noop()),
	)

	_, _, err := c.GetOrFetch("k", 10*time.Millisecond, func() (string, error) { return "v", nil })
	require.NoError(t, err)

	c.StartSweeper()
	c.StartSweeper() // second start is a no-op

	assert.Eventually(t, func() bool {
		return c.Stats().Size == 0
	}, time.Second, 10*time.Millisecond)

	c.StopSweeper()
	c.StopSweeper() // idempotent
}

func TestConcurrentAccess(t *testing.T) {
	c := newTestCache()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _, _ = c.GetOrFetch("shared", time.Minute, func() (string, error) {
					return "v", nil
				})
			}
		}()
	}
	wg.Wait()

	s := c.Stats()
	assert.Equal(t, uint64(1000), s.Hits+s.Misses)
	assert.Equal(t, 1, s.Size)
}
