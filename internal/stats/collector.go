package stats

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jholliman/vantage/internal/errors"
	"github.com/jholliman/vantage/internal/logger"
	"github.com/jholliman/vantage/pkg/sshutil"
)

// DefaultRemoteTopN bounds the remote process listing; remote rows cost a
// round trip so the battery asks for far fewer than local collection keeps.
const DefaultRemoteTopN = 10

// DefaultCommandTimeout bounds each probe command execution.
const DefaultCommandTimeout = 10 * time.Second

// Collector issues the probe battery over an SSH session and assembles a
// Snapshot. Per-probe failures are absorbed: the field keeps its zero
// placeholder and the failure is recorded in SourceErrors. Only a caller
// with no session at all gets a hard error.
type Collector struct {
	cmdTimeout      time.Duration
	topN            int
	includeLoopback bool
	services        []string
	log             logger.Logger

	mu          sync.Mutex
	prevJiffies map[string]cpuJiffies // per target, for CPU deltas
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithCommandTimeout sets the per-command execution timeout.
func WithCommandTimeout(d time.Duration) CollectorOption {
	return func(c *Collector) { c.cmdTimeout = d }
}

// WithTopN sets how many processes the snapshot keeps.
func WithTopN(n int) CollectorOption {
	return func(c *Collector) { c.topN = n }
}

// WithLoopback includes the loopback interface in traffic counters.
func WithLoopback(include bool) CollectorOption {
	return func(c *Collector) { c.includeLoopback = include }
}

// WithServices replaces the default service watch-list.
func WithServices(services []string) CollectorOption {
	return func(c *Collector) { c.services = services }
}

// WithCollectorLogger sets the collector's logger.
func WithCollectorLogger(l logger.Logger) CollectorOption {
	return func(c *Collector) { c.log = l }
}

// NewCollector creates a collector with the default probe battery.
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{
		cmdTimeout:  DefaultCommandTimeout,
		topN:        DefaultRemoteTopN,
		services:    DefaultServices,
		log:         logger.NewEnvLogger("[stats]"),
		prevJiffies: make(map[string]cpuJiffies),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// attempt is one command in a probe's fallback chain, paired with the
// parser that applies its output to the snapshot under assembly.
type attempt struct {
	cmd   string
	apply func(raw string) error
}

// Collect runs the full probe battery against the session. The key
// identifies the target for CPU delta tracking (use the identity key).
// Probes run sequentially so the snapshot reflects one consistent pass.
func (c *Collector) Collect(ctx context.Context, session sshutil.Session, key string) (*Snapshot, error) {
	if session == nil {
		return nil, errors.New(errors.ErrNotConnected,
			"Not connected to a host",
			"Connect first, or collect local stats instead.")
	}

	snap := &Snapshot{
		Traffic:      map[string]InterfaceTraffic{},
		Services:     map[string]string{},
		SourceErrors: map[string]string{},
		Uptime:       "0:00:00",
	}

	c.probeCPU(ctx, session, snap, key)
	c.probeMemory(ctx, session, snap)
	c.probeDisk(ctx, session, snap)
	c.probeLoad(ctx, session, snap)
	c.probeUptime(ctx, session, snap)
	c.probeTraffic(ctx, session, snap)
	c.probeConnections(ctx, session, snap)
	c.probeProcesses(ctx, session, snap)
	c.probeServices(ctx, session, snap)

	snap.CollectedAt = time.Now()

	if len(snap.SourceErrors) >= probeCount {
		return nil, errors.New(errors.ErrNotConnected,
			"Every probe failed; the session appears dead",
			"Reconnect and try again.")
	}

	if snap.Degraded() {
		c.log.Debug("degraded snapshot for %s: %v", key, snap.SourceErrors)
	}
	return snap, nil
}

// runChain executes a probe's attempts in order until one parses. When
// the chain is exhausted the probe's failure kind is recorded.
func (c *Collector) runChain(ctx context.Context, s sshutil.Session, snap *Snapshot, probe string, attempts []attempt) {
	var lastKind string

	for _, a := range attempts {
		raw, kind, err := c.execute(ctx, s, a.cmd)
		if err != nil {
			lastKind = kind
			continue
		}
		if err := a.apply(raw); err != nil {
			lastKind = "parse"
			c.log.Debug("probe %s: %s: %v", probe, a.cmd, err)
			continue
		}
		return
	}

	if lastKind == "" {
		lastKind = "parse"
	}
	snap.SourceErrors[probe] = lastKind
}

// execute runs one command with the per-command timeout and classifies a
// failure into a source-error kind.
func (c *Collector) execute(ctx context.Context, s sshutil.Session, cmd string) (string, string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, c.cmdTimeout)
	defer cancel()

	stdout, _, err := s.Exec(cmdCtx, cmd)
	if err != nil {
		return "", kindOf(err), err
	}
	return string(stdout), "", nil
}

// kindOf reduces an execution error to a SourceErrors kind.
func kindOf(err error) string {
	switch errors.CodeOf(err) {
	case errors.ErrTimeout:
		return "timeout"
	case errors.ErrNetwork:
		return "network"
	default:
		return "exec"
	}
}

func (c *Collector) probeCPU(ctx context.Context, s sshutil.Session, snap *Snapshot, key string) {
	c.runChain(ctx, s, snap, ProbeCPU, []attempt{
		{cmdCPUProcStat, func(raw string) error {
			cur, err := parseCPUJiffies(raw)
			if err != nil {
				return err
			}

			c.mu.Lock()
			prev, hasPrev := c.prevJiffies[key]
			c.prevJiffies[key] = cur
			c.mu.Unlock()

			if hasPrev {
				snap.CPUPercent = round2(deltaPercent(prev, cur))
			} else {
				// First reading for this target: since-boot ratio.
				snap.CPUPercent = round2(cur.percent())
			}
			return nil
		}},
		{cmdCPUMpstat, func(raw string) error {
			v, err := parsePercent(raw)
			if err != nil {
				return err
			}
			snap.CPUPercent = round2(v)
			return nil
		}},
		{cmdCPUTop, func(raw string) error {
			v, err := parsePercent(raw)
			if err != nil {
				return err
			}
			snap.CPUPercent = round2(v)
			return nil
		}},
	})
}

func (c *Collector) probeMemory(ctx context.Context, s sshutil.Session, snap *Snapshot) {
	c.runChain(ctx, s, snap, ProbeMemory, []attempt{
		{cmdMemory, func(raw string) error {
			m, err := parseMemory(raw)
			if err != nil {
				return err
			}
			snap.Memory = m
			return nil
		}},
	})
}

func (c *Collector) probeDisk(ctx context.Context, s sshutil.Session, snap *Snapshot) {
	c.runChain(ctx, s, snap, ProbeDisk, []attempt{
		{cmdDisk, func(raw string) error {
			v, err := parseDisk(raw)
			if err != nil {
				return err
			}
			snap.DiskPercent = v
			return nil
		}},
	})
}

func (c *Collector) probeLoad(ctx context.Context, s sshutil.Session, snap *Snapshot) {
	c.runChain(ctx, s, snap, ProbeLoad, []attempt{
		{cmdLoad, func(raw string) error {
			l, err := parseLoad(raw)
			if err != nil {
				return err
			}
			snap.Load = l
			return nil
		}},
	})
}

func (c *Collector) probeUptime(ctx context.Context, s sshutil.Session, snap *Snapshot) {
	applyReading := func(r uptimeReading) {
		snap.UptimeSeconds = r.seconds
		snap.Uptime = r.formatted
	}
	c.runChain(ctx, s, snap, ProbeUptime, []attempt{
		{cmdUptimeProc, func(raw string) error {
			r, err := parseUptimeSeconds(raw)
			if err != nil {
				return err
			}
			applyReading(r)
			return nil
		}},
		{cmdUptimePretty, func(raw string) error {
			r, err := parseUptimeText(raw)
			if err != nil {
				return err
			}
			applyReading(r)
			return nil
		}},
		{cmdUptimeCoarse, func(raw string) error {
			r, err := parseUptimeText(raw)
			if err != nil {
				return err
			}
			applyReading(r)
			return nil
		}},
	})
}

func (c *Collector) probeTraffic(ctx context.Context, s sshutil.Session, snap *Snapshot) {
	c.runChain(ctx, s, snap, ProbeTraffic, []attempt{
		{cmdNetDev, func(raw string) error {
			t, err := parseNetDev(raw, c.includeLoopback)
			if err != nil {
				return err
			}
			snap.Traffic = t
			return nil
		}},
	})
}

func (c *Collector) probeConnections(ctx context.Context, s sshutil.Session, snap *Snapshot) {
	countWith := func(headerLines int) func(string) error {
		return func(raw string) error {
			n, err := parseSocketCount(raw, headerLines)
			if err != nil {
				return err
			}
			snap.Connections = n
			return nil
		}
	}
	c.runChain(ctx, s, snap, ProbeConnections, []attempt{
		{cmdConnSS, countWith(ssHeaderLines)},
		{cmdConnNetstat, countWith(netstatHeaderLines)},
		{cmdConnEstablished, countWith(0)},
	})
}

func (c *Collector) probeProcesses(ctx context.Context, s sshutil.Session, snap *Snapshot) {
	c.runChain(ctx, s, snap, ProbeProcesses, []attempt{
		{cmdProcesses(c.topN), func(raw string) error {
			procs, err := parseProcesses(raw)
			if err != nil {
				return err
			}
			snap.Processes = topByCPU(procs, c.topN)
			return nil
		}},
	})
}

// probeServices queries systemd for each watched service and falls back
// to a process-existence check for the ones systemd doesn't know. The
// probe only counts as failed when every query errored.
func (c *Collector) probeServices(ctx context.Context, s sshutil.Session, snap *Snapshot) {
	status := make(map[string]string, len(c.services))
	failures := 0
	var lastKind string

	for _, svc := range c.services {
		raw, kind, err := c.execute(ctx, s, cmdServiceActive(svc))
		if err != nil {
			status[svc] = "unknown"
			failures++
			lastKind = kind
			continue
		}

		state := parseServiceState(raw)
		if state == "unknown" {
			// systemd doesn't know the unit; a live process still counts.
			if raw, _, err := c.execute(ctx, s, cmdServicePgrep(svc)); err == nil &&
				strings.TrimSpace(raw) == "running" {
				state = "active"
			}
		}
		status[svc] = state
	}

	snap.Services = status
	if len(c.services) > 0 && failures == len(c.services) {
		snap.SourceErrors[ProbeServices] = lastKind
	}
}

// ResetCPUBaseline drops the stored jiffy reading for a target, e.g.
// after a reconnect.
func (c *Collector) ResetCPUBaseline(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.prevJiffies, key)
}
