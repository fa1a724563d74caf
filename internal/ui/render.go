// Package ui renders snapshots and status output for the terminal. The
// static renderers below feed the one-shot commands; watch.go holds the
// live view.
package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jholliman/vantage/internal/stats"
)

const meterWidth = 24

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	labelStyle  = lipgloss.NewStyle().Foreground(ColorSecondary).Width(12)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).
			BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).
			BorderForeground(ColorMuted)
)

// Meter renders a utilization bar like "██████░░░░░░ 47.2%", colored by
// threshold.
func Meter(percent float64) string {
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100 * meterWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", meterWidth-filled)
	style := lipgloss.NewStyle().Foreground(ThresholdColor(percent))
	return style.Render(bar) + fmt.Sprintf(" %5.1f%%", percent)
}

// RenderSnapshot renders a full snapshot for one-shot output. The target
// describes where the snapshot came from ("user@host:22" or "local").
func RenderSnapshot(snap *stats.Snapshot, target string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(target))
	b.WriteString(mutedStyle.Render("  up " + snap.Uptime))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("CPU") + Meter(snap.CPUPercent) + "\n")
	b.WriteString(labelStyle.Render("Memory") + Meter(snap.Memory.Percent))
	if snap.Memory.TotalBytes > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s / %s",
			formatBytes(snap.Memory.UsedBytes), formatBytes(snap.Memory.TotalBytes))))
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Disk") + Meter(snap.DiskPercent) + "\n")

	b.WriteString(labelStyle.Render("Load") +
		fmt.Sprintf("%.2f %.2f %.2f", snap.Load.Load1, snap.Load.Load5, snap.Load.Load15) + "\n")
	b.WriteString(labelStyle.Render("Connections") + fmt.Sprintf("%d", snap.Connections) + "\n")

	if len(snap.Traffic) > 0 {
		b.WriteString("\n" + renderTraffic(snap.Traffic))
	}
	if len(snap.Services) > 0 {
		b.WriteString("\n" + renderServices(snap.Services))
	}
	if len(snap.Processes) > 0 {
		b.WriteString("\n" + RenderProcessTable(snap.Processes))
	}
	if snap.Degraded() {
		b.WriteString("\n" + renderSourceErrors(snap.SourceErrors))
	}

	return b.String()
}

func renderTraffic(traffic map[string]stats.InterfaceTraffic) string {
	names := make([]string, 0, len(traffic))
	for name := range traffic {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Traffic") + "\n")
	for _, name := range names {
		t := traffic[name]
		b.WriteString(fmt.Sprintf("  %-10s rx %-10s tx %s\n",
			name, formatBytes(t.RxBytes), formatBytes(t.TxBytes)))
	}
	return b.String()
}

func renderServices(services map[string]string) string {
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)

	okStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	downStyle := lipgloss.NewStyle().Foreground(ColorError)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Services") + "\n  ")
	for i, name := range names {
		if i > 0 {
			b.WriteString("  ")
		}
		switch services[name] {
		case "active":
			b.WriteString(okStyle.Render(SymbolActive) + " " + name)
		case "failed":
			b.WriteString(downStyle.Render(SymbolFail) + " " + name)
		case "inactive":
			b.WriteString(mutedStyle.Render(SymbolIdle) + " " + name)
		default:
			b.WriteString(mutedStyle.Render(SymbolIdle+" "+name))
		}
	}
	b.WriteString("\n")
	return b.String()
}

// RenderProcessTable renders the process listing with an underlined
// header row.
func RenderProcessTable(procs []stats.Process) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-7s %-5s %6s %6s  %s",
		"PID", "STATE", "CPU%", "MEM%", "NAME")) + "\n")

	for _, p := range procs {
		cpuStyle := lipgloss.NewStyle().Foreground(ThresholdColor(p.CPUPercent))
		b.WriteString(fmt.Sprintf("  %-7d %-5s %s %6.1f  %s\n",
			p.PID, p.State, cpuStyle.Render(fmt.Sprintf("%6.1f", p.CPUPercent)),
			p.MemPercent, p.Name))
	}
	return b.String()
}

func renderSourceErrors(errs map[string]string) string {
	probes := make([]string, 0, len(errs))
	for probe := range errs {
		probes = append(probes, probe)
	}
	sort.Strings(probes)

	warnStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	var b strings.Builder
	for _, probe := range probes {
		b.WriteString(warnStyle.Render(SymbolWarn) +
			mutedStyle.Render(fmt.Sprintf(" %s unavailable (%s)", probe, errs[probe])) + "\n")
	}
	return b.String()
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
