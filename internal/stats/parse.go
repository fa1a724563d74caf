package stats

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Pure parsers for probe output. Each takes the raw text of one command
// and either produces a value or reports that the text didn't match the
// expected shape, which sends the probe chain to its next fallback.

// cpuJiffies holds one /proc/stat reading reduced to the fields the usage
// formula needs.
type cpuJiffies struct {
	active int64 // user + nice
	idle   int64
}

// parseCPUJiffies extracts user/nice/idle jiffies from the aggregate cpu
// line of /proc/stat.
func parseCPUJiffies(raw string) (cpuJiffies, error) {
	line := strings.TrimSpace(raw)
	if !strings.HasPrefix(line, "cpu") {
		return cpuJiffies{}, fmt.Errorf("no cpu line in %q", truncateForError(raw))
	}

	fields := strings.Fields(line)
	if len(fields) < 5 {
		return cpuJiffies{}, fmt.Errorf("cpu line has %d fields, want at least 5", len(fields))
	}

	user, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return cpuJiffies{}, fmt.Errorf("parsing user jiffies: %w", err)
	}
	nice, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return cpuJiffies{}, fmt.Errorf("parsing nice jiffies: %w", err)
	}
	idle, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return cpuJiffies{}, fmt.Errorf("parsing idle jiffies: %w", err)
	}

	return cpuJiffies{active: user + nice, idle: idle}, nil
}

// percent computes the usage ratio of a jiffy reading.
func (j cpuJiffies) percent() float64 {
	total := j.active + j.idle
	if total <= 0 {
		return 0
	}
	return float64(j.active) / float64(total) * 100
}

// deltaPercent computes usage between two readings.
func deltaPercent(prev, cur cpuJiffies) float64 {
	d := cpuJiffies{active: cur.active - prev.active, idle: cur.idle - prev.idle}
	if d.active < 0 || d.idle < 0 {
		// Counter reset (reboot); fall back to the absolute reading.
		return cur.percent()
	}
	return d.percent()
}

// parsePercent parses a bare percentage value, as printed by the mpstat
// and top CPU fallbacks.
func parsePercent(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty output")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing percentage %q: %w", truncateForError(s), err)
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("percentage %v outside [0,100]", v)
	}
	return v, nil
}

// parseMemory parses the Mem row of `free` (values in KiB).
func parseMemory(raw string) (MemoryStats, error) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) < 3 || !strings.HasPrefix(fields[0], "Mem") {
		return MemoryStats{}, fmt.Errorf("unexpected free output %q", truncateForError(raw))
	}

	total, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return MemoryStats{}, fmt.Errorf("parsing total memory: %w", err)
	}
	used, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return MemoryStats{}, fmt.Errorf("parsing used memory: %w", err)
	}

	m := MemoryStats{
		TotalBytes: total * 1024,
		UsedBytes:  used * 1024,
	}
	if total > 0 {
		m.Percent = round2(float64(used) / float64(total) * 100)
	}
	return m, nil
}

// parseDisk parses the root filesystem row of `df /`.
func parseDisk(raw string) (float64, error) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) < 5 {
		return 0, fmt.Errorf("unexpected df output %q", truncateForError(raw))
	}

	v, err := strconv.ParseFloat(strings.TrimSuffix(fields[4], "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing disk usage %q: %w", fields[4], err)
	}
	return v, nil
}

// parseLoad parses /proc/loadavg.
func parseLoad(raw string) (LoadStats, error) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) < 3 {
		return LoadStats{}, fmt.Errorf("unexpected loadavg output %q", truncateForError(raw))
	}

	var vals [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return LoadStats{}, fmt.Errorf("parsing loadavg field %d: %w", i, err)
		}
		vals[i] = v
	}
	return LoadStats{Load1: vals[0], Load5: vals[1], Load15: vals[2]}, nil
}

// uptimeReading is the result of the uptime probe. Only the primary
// /proc/uptime source yields seconds; the human-readable fallbacks carry
// text only.
type uptimeReading struct {
	seconds   float64
	formatted string
}

// parseUptimeSeconds parses /proc/uptime ("<uptime> <idle>").
func parseUptimeSeconds(raw string) (uptimeReading, error) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) < 1 {
		return uptimeReading{}, fmt.Errorf("empty uptime output")
	}
	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return uptimeReading{}, fmt.Errorf("parsing uptime seconds %q: %w", fields[0], err)
	}
	return uptimeReading{seconds: secs, formatted: FormatUptime(secs)}, nil
}

// parseUptimeText accepts any non-empty stripped uptime text.
func parseUptimeText(raw string) (uptimeReading, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return uptimeReading{}, fmt.Errorf("empty uptime output")
	}
	return uptimeReading{formatted: s}, nil
}

// parseNetDev parses the /proc/net/dev counter table into per-interface
// rx/tx byte totals. Loopback is excluded unless requested. Rows whose
// counters don't parse contribute zeros rather than failing the probe.
func parseNetDev(raw string, includeLoopback bool) (map[string]InterfaceTraffic, error) {
	traffic := make(map[string]InterfaceTraffic)
	scanner := bufio.NewScanner(strings.NewReader(raw))

	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue // header lines
		}

		name := strings.TrimSpace(parts[0])
		if name == "" || strings.Contains(name, " ") {
			continue
		}
		if name == "lo" && !includeLoopback {
			continue
		}

		fields := strings.Fields(parts[1])
		if len(fields) < 10 {
			continue
		}

		rx, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			rx = 0
		}
		tx, err := strconv.ParseInt(fields[8], 10, 64)
		if err != nil {
			tx = 0
		}

		traffic[name] = InterfaceTraffic{RxBytes: rx, TxBytes: tx}
	}

	if len(traffic) == 0 {
		return nil, fmt.Errorf("no interfaces in net/dev output %q", truncateForError(raw))
	}
	return traffic, nil
}

// parseSocketCount parses a `... | wc -l` line count and subtracts the
// listing's header lines, clamping at zero.
func parseSocketCount(raw string, headerLines int) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty socket count output")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parsing socket count %q: %w", truncateForError(s), err)
	}
	if n < headerLines {
		return 0, nil
	}
	return n - headerLines, nil
}

// idlePlaceholderName is the accounting artifact some systems report as a
// process consuming all idle CPU time. It is forced to 0% rather than be
// shown as load.
const idlePlaceholderName = "system idle process"

// parseProcesses parses `ps aux` rows into Process values.
// Columns: USER PID %CPU %MEM VSZ RSS TTY STAT START TIME COMMAND.
// Rows with a CPU value outside [0,100] are dropped as outliers.
func parseProcesses(raw string) ([]Process, error) {
	scanner := bufio.NewScanner(strings.NewReader(raw))

	// Header line must be present.
	if !scanner.Scan() {
		return nil, fmt.Errorf("empty process listing")
	}
	header := scanner.Text()
	if !strings.Contains(header, "PID") {
		return nil, fmt.Errorf("unexpected ps header %q", truncateForError(header))
	}

	var procs []Process
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 11 {
			continue
		}

		pid, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}

		cpu, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			cpu = 0
		}
		mem, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			mem = 0
		}

		if cpu < 0 || cpu > 100 {
			continue // outlier
		}

		name := strings.Join(fields[10:], " ")
		if len(name) > 50 {
			name = name[:50]
		}
		if strings.ToLower(name) == idlePlaceholderName {
			cpu = 0
		}

		procs = append(procs, Process{
			PID:        pid,
			Name:       name,
			CPUPercent: cpu,
			MemPercent: mem,
			State:      fields[7],
		})
	}

	return procs, nil
}

// topByCPU resorts processes by CPU percent descending and truncates to n.
// The sort is stable so equal-CPU rows keep their listing order.
func topByCPU(procs []Process, n int) []Process {
	sort.SliceStable(procs, func(i, j int) bool {
		return procs[i].CPUPercent > procs[j].CPUPercent
	})
	if len(procs) > n {
		procs = procs[:n]
	}
	return procs
}

// parseServiceState normalizes systemctl is-active output.
func parseServiceState(raw string) string {
	switch s := strings.ToLower(strings.TrimSpace(raw)); s {
	case "active", "inactive", "failed":
		return s
	default:
		return "unknown"
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func truncateForError(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
