package stats

import (
	"context"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/jholliman/vantage/internal/logger"
)

// DefaultLocalTopN bounds the local process listing. Local collection is
// cheap, so it keeps far more rows than the remote battery.
const DefaultLocalTopN = 50

// LocalCollector gathers the same snapshot shape as the remote battery
// but from the machine vantage itself runs on. It is the fallback when
// no host is connected.
type LocalCollector struct {
	topN            int
	includeLoopback bool
	services        []string
	log             logger.Logger
}

// LocalOption configures a LocalCollector.
type LocalOption func(*LocalCollector)

// WithLocalTopN sets how many processes the snapshot keeps.
func WithLocalTopN(n int) LocalOption {
	return func(c *LocalCollector) { c.topN = n }
}

// WithLocalLoopback includes the loopback interface in traffic counters.
func WithLocalLoopback(include bool) LocalOption {
	return func(c *LocalCollector) { c.includeLoopback = include }
}

// WithLocalServices replaces the default service watch-list.
func WithLocalServices(services []string) LocalOption {
	return func(c *LocalCollector) { c.services = services }
}

// WithLocalLogger sets the collector's logger.
func WithLocalLogger(l logger.Logger) LocalOption {
	return func(c *LocalCollector) { c.log = l }
}

// NewLocalCollector creates a local collector.
func NewLocalCollector(opts ...LocalOption) *LocalCollector {
	c := &LocalCollector{
		topN:     DefaultLocalTopN,
		services: DefaultServices,
		log:      logger.NewEnvLogger("[stats]"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect assembles a snapshot of the local machine. Like the remote
// battery, individual probe failures degrade the snapshot instead of
// failing it.
func (c *LocalCollector) Collect(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Traffic:      map[string]InterfaceTraffic{},
		Services:     map[string]string{},
		SourceErrors: map[string]string{},
		Uptime:       "0:00:00",
	}

	fail := func(probe string, err error) {
		snap.SourceErrors[probe] = "local"
		c.log.Debug("local probe %s: %v", probe, err)
	}

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		snap.CPUPercent = round2(pct[0])
	} else if err != nil {
		fail(ProbeCPU, err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.Memory = MemoryStats{
			TotalBytes: int64(vm.Total),
			UsedBytes:  int64(vm.Used),
			Percent:    round2(vm.UsedPercent),
		}
	} else {
		fail(ProbeMemory, err)
	}

	if du, err := disk.UsageWithContext(ctx, "/"); err == nil {
		snap.DiskPercent = round2(du.UsedPercent)
	} else {
		fail(ProbeDisk, err)
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		snap.Load = LoadStats{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}
	} else {
		fail(ProbeLoad, err)
	}

	if up, err := host.UptimeWithContext(ctx); err == nil {
		snap.UptimeSeconds = float64(up)
		snap.Uptime = FormatUptime(float64(up))
	} else {
		fail(ProbeUptime, err)
	}

	c.collectTraffic(ctx, snap, fail)
	c.collectConnections(ctx, snap, fail)

	procs, names := c.collectProcesses(ctx, snap, fail)
	snap.Processes = topByCPU(procs, c.topN)
	snap.Services = c.serviceStates(names)

	snap.CollectedAt = time.Now()
	return snap, nil
}

func (c *LocalCollector) collectTraffic(ctx context.Context, snap *Snapshot, fail func(string, error)) {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		fail(ProbeTraffic, err)
		return
	}
	for _, nic := range counters {
		if nic.Name == "lo" && !c.includeLoopback {
			continue
		}
		snap.Traffic[nic.Name] = InterfaceTraffic{
			RxBytes: int64(nic.BytesRecv),
			TxBytes: int64(nic.BytesSent),
		}
	}
}

func (c *LocalCollector) collectConnections(ctx context.Context, snap *Snapshot, fail func(string, error)) {
	conns, err := net.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		fail(ProbeConnections, err)
		return
	}
	count := 0
	for _, conn := range conns {
		if conn.Status == "ESTABLISHED" {
			count++
		}
	}
	snap.Connections = count
}

// collectProcesses builds the process table and returns the set of
// running process names for the service check.
func (c *LocalCollector) collectProcesses(ctx context.Context, snap *Snapshot, fail func(string, error)) ([]Process, map[string]bool) {
	names := map[string]bool{}

	all, err := process.ProcessesWithContext(ctx)
	if err != nil {
		fail(ProbeProcesses, err)
		return nil, names
	}

	procs := make([]Process, 0, len(all))
	for _, p := range all {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue // exited mid-scan
		}
		names[strings.ToLower(name)] = true

		cpuPct, _ := p.CPUPercentWithContext(ctx)
		memPct, _ := p.MemoryPercentWithContext(ctx)

		state := "?"
		if statuses, err := p.StatusWithContext(ctx); err == nil && len(statuses) > 0 {
			state = statuses[0]
		}

		if cpuPct < 0 || cpuPct > 100 {
			continue
		}
		if strings.ToLower(name) == idlePlaceholderName {
			cpuPct = 0
		}
		if len(name) > 50 {
			name = name[:50]
		}

		procs = append(procs, Process{
			PID:        int(p.Pid),
			Name:       name,
			CPUPercent: round2(cpuPct),
			MemPercent: round2(float64(memPct)),
			State:      state,
		})
	}
	return procs, names
}

// serviceStates marks a watched service active when a process with a
// matching name is running. There is no systemd query locally; process
// presence is the whole signal.
func (c *LocalCollector) serviceStates(running map[string]bool) map[string]string {
	states := make(map[string]string, len(c.services))
	for _, svc := range c.services {
		states[svc] = "unknown"
		for name := range running {
			if strings.Contains(name, strings.ToLower(svc)) {
				states[svc] = "active"
				break
			}
		}
	}
	return states
}
