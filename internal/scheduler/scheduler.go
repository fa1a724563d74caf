// Package scheduler runs a refresh task on a fixed interval. The
// interval can be changed while the loop is running without losing run
// history, and a failing task never stops the loop.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/jholliman/vantage/internal/errors"
	"github.com/jholliman/vantage/internal/logger"
)

// DefaultInterval is the refresh period used when none is configured.
const DefaultInterval = 30 * time.Second

// Task is the work run on every tick.
type Task func(ctx context.Context) error

// State is a point-in-time view of the scheduler.
type State struct {
	Running         bool      `json:"running"`
	IntervalSeconds float64   `json:"interval_seconds"`
	LastRunAt       time.Time `json:"last_run_at"`
	NextRunAt       time.Time `json:"next_run_at"`
	LastError       string    `json:"last_error,omitempty"`
	RunCount        uint64    `json:"run_count"`
	FailCount       uint64    `json:"fail_count"`
	Jobs            []Job     `json:"jobs"`
}

// Job describes one scheduled unit of work.
type Job struct {
	Name      string    `json:"name"`
	NextRunAt time.Time `json:"next_run_at"`
}

// Scheduler drives a single named task. The first tick fires immediately
// on Start; later ticks follow the interval.
type Scheduler struct {
	name string
	task Task
	log  logger.Logger

	mu        sync.Mutex
	interval  time.Duration
	running   bool
	stop      chan struct{}
	reset     chan time.Duration
	cancelRun context.CancelFunc
	lastRunAt time.Time
	nextRunAt time.Time
	lastError string
	runCount  uint64
	failCount uint64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// New creates a stopped scheduler for the named task.
func New(name string, task Task, opts ...Option) *Scheduler {
	s := &Scheduler{
		name:     name,
		task:     task,
		interval: DefaultInterval,
		log:      logger.NewEnvLogger("[scheduler]"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the loop with the given interval (DefaultInterval when
// non-positive). The task runs once immediately. Starting a running
// scheduler is an error.
func (s *Scheduler) Start(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New(errors.ErrConfig,
			"Scheduler is already running",
			"Stop it first, or use UpdateInterval to change the period.")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.interval = interval
	s.running = true
	s.stop = make(chan struct{})
	s.reset = make(chan time.Duration, 1)
	s.cancelRun = cancel
	s.nextRunAt = time.Now()

	go s.loop(ctx, interval, s.stop, s.reset)
	s.log.Info("started %s every %s", s.name, interval)
	return nil
}

// Stop halts the loop and cancels an in-flight tick. Stopping a stopped
// scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stop)
	s.cancelRun()
	s.running = false
	s.nextRunAt = time.Time{}
	s.log.Info("stopped %s", s.name)
}

// UpdateInterval changes the tick period. On a stopped scheduler it
// simply starts with the new interval. On a running one the loop keeps
// its history and the next tick lands within the new interval.
func (s *Scheduler) UpdateInterval(interval time.Duration) error {
	if interval <= 0 {
		return errors.New(errors.ErrConfig,
			"Refresh interval must be positive",
			"Pass a duration greater than zero.")
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return s.Start(interval)
	}
	s.interval = interval
	s.nextRunAt = time.Now().Add(interval)
	reset := s.reset
	s.mu.Unlock()

	// Drain a pending reset so the send below can't block.
	select {
	case <-reset:
	default:
	}
	reset <- interval
	return nil
}

// Status returns the current scheduler state.
func (s *Scheduler) Status() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Running:         s.running,
		IntervalSeconds: s.interval.Seconds(),
		LastRunAt:       s.lastRunAt,
		NextRunAt:       s.nextRunAt,
		LastError:       s.lastError,
		RunCount:        s.runCount,
		FailCount:       s.failCount,
	}
	if s.running {
		st.Jobs = []Job{{Name: s.name, NextRunAt: s.nextRunAt}}
	}
	return st
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, stop chan struct{}, reset chan time.Duration) {
	s.runOnce(ctx)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case d := <-reset:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			interval = d
			timer.Reset(d)
		case <-timer.C:
			s.runOnce(ctx)
			timer.Reset(interval)
		}
	}
}

// runOnce executes the task and records the outcome. Failures are
// logged with their error class and the loop carries on.
func (s *Scheduler) runOnce(ctx context.Context) {
	started := time.Now()
	err := s.task(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return // stopped while the task was in flight
	}
	s.lastRunAt = started
	s.nextRunAt = time.Now().Add(s.interval)
	s.runCount++
	if err != nil {
		s.failCount++
		s.lastError = err.Error()
		s.log.Warn("%s failed (%s): %v", s.name, classify(err), err)
		return
	}
	s.lastError = ""
}

// classify buckets a tick failure for the log line.
func classify(err error) string {
	switch errors.CodeOf(err) {
	case errors.ErrAuth:
		return "auth"
	case errors.ErrTimeout:
		return "timeout"
	case errors.ErrNetwork:
		return "network"
	default:
		return "unknown"
	}
}
