// Package stats collects resource and process metrics from a remote host
// over SSH or from the local host, normalizing probe output into a single
// Snapshot.
package stats

import (
	"fmt"
	"time"
)

// Snapshot is the immutable result of one collection pass. A probe that
// fails leaves its field at the zero placeholder and records the failure
// in SourceErrors; the snapshot as a whole only fails when every probe
// failed.
type Snapshot struct {
	CPUPercent    float64                     `json:"cpu_percent"`
	Memory        MemoryStats                 `json:"memory"`
	DiskPercent   float64                     `json:"disk_percent"`
	Load          LoadStats                   `json:"load"`
	UptimeSeconds float64                     `json:"uptime_seconds"`
	Uptime        string                      `json:"uptime"`
	Connections   int                         `json:"network_connections"`
	Traffic       map[string]InterfaceTraffic `json:"network_traffic"`
	Processes     []Process                   `json:"processes"`
	Services      map[string]string           `json:"service_status"`
	CollectedAt   time.Time                   `json:"collected_at"`
	SourceErrors  map[string]string           `json:"source_errors,omitempty"`
}

// MemoryStats holds memory usage for a host.
type MemoryStats struct {
	TotalBytes int64   `json:"total_bytes"`
	UsedBytes  int64   `json:"used_bytes"`
	Percent    float64 `json:"percent"`
}

// LoadStats holds the 1/5/15-minute load averages.
type LoadStats struct {
	Load1  float64 `json:"1m"`
	Load5  float64 `json:"5m"`
	Load15 float64 `json:"15m"`
}

// InterfaceTraffic holds cumulative byte counters for one interface.
type InterfaceTraffic struct {
	RxBytes int64 `json:"rx_bytes"`
	TxBytes int64 `json:"tx_bytes"`
}

// Process is one row of the process table.
type Process struct {
	PID        int     `json:"pid"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float64 `json:"mem_percent"`
	State      string  `json:"state"`
}

// Probe names used as SourceErrors keys.
const (
	ProbeCPU         = "cpu"
	ProbeMemory      = "memory"
	ProbeDisk        = "disk"
	ProbeLoad        = "load"
	ProbeUptime      = "uptime"
	ProbeTraffic     = "network_traffic"
	ProbeConnections = "network_connections"
	ProbeProcesses   = "processes"
	ProbeServices    = "service_status"
)

// probeCount is the size of the probe battery; a snapshot with this many
// source errors carries no data at all.
const probeCount = 9

// Degraded reports whether any probe failed during collection.
func (s *Snapshot) Degraded() bool {
	return len(s.SourceErrors) > 0
}

// FormatUptime renders seconds-since-boot as H:MM:SS.
func FormatUptime(seconds float64) string {
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	sec := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
}
