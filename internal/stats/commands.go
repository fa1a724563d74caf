package stats

import "fmt"

// Probe commands. Each probe lists its primary command first, followed by
// its fallbacks, tried top to bottom until one yields a parseable result.

// CPU: raw /proc/stat aggregate line (parsed here with jiffy deltas),
// then an mpstat one-second aggregate, then a one-shot top reading.
const (
	cmdCPUProcStat = "grep 'cpu ' /proc/stat"
	cmdCPUMpstat   = "mpstat 1 1 | awk 'END {print 100 - $NF}'"
	cmdCPUTop      = "top -bn1 | grep 'Cpu(s)' | awk '{print $2}' | cut -d'%' -f1"
)

// Memory: the Mem row of free, in KiB.
const cmdMemory = "free | grep Mem"

// Disk: root filesystem usage.
const cmdDisk = "df / | tail -1"

// Load averages from the kernel.
const cmdLoad = "cat /proc/loadavg"

// Uptime: kernel seconds-since-boot, then human-readable forms stripped
// down to the duration text.
const (
	cmdUptimeProc   = "cat /proc/uptime"
	cmdUptimePretty = "uptime -p | sed 's/up //'"
	cmdUptimeCoarse = "uptime | awk -F'up' '{print $2}' | awk -F',' '{print $1}' | sed 's/^[[:space:]]*//'"
)

// Network traffic: the kernel per-interface counter table.
const cmdNetDev = "cat /proc/net/dev"

// Connection count: TCP socket listings whose header lines are subtracted
// in the parser. Header subtraction is best-effort; the counts differ by
// tool version and locale. Last resort counts ESTABLISHED sockets only.
const (
	cmdConnSS          = "ss -t | wc -l"
	cmdConnNetstat     = "netstat -t | wc -l"
	cmdConnEstablished = "netstat -t | grep -c ESTABLISHED"
)

// Header lines to subtract from the socket listing counts.
const (
	ssHeaderLines      = 1
	netstatHeaderLines = 2
)

// Processes: top rows by CPU. The +1 covers the header the parser skips.
func cmdProcesses(topN int) string {
	return fmt.Sprintf("ps aux --sort=-%%cpu | head -%d", topN+1)
}

// Service status: systemd unit state, with a process-existence check for
// services systemd doesn't know.
func cmdServiceActive(name string) string {
	return fmt.Sprintf("systemctl is-active %s 2>/dev/null || echo 'unknown'", name)
}

func cmdServicePgrep(name string) string {
	return fmt.Sprintf("pgrep -x %s >/dev/null && echo 'running' || echo 'stopped'", name)
}

// DefaultServices is the watch-list queried by the service status probe.
var DefaultServices = []string{
	"ssh", "nginx", "mysql", "apache2", "postgresql",
	"redis", "mongodb", "docker", "cron",
}
