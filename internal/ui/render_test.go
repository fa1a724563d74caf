package ui

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jholliman/vantage/internal/stats"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func sampleSnapshot() *stats.Snapshot {
	return &stats.Snapshot{
		CPUPercent:  23.7,
		Memory:      stats.MemoryStats{TotalBytes: 16 << 30, UsedBytes: 8 << 30, Percent: 50.0},
		DiskPercent: 59.0,
		Load:        stats.LoadStats{Load1: 0.52, Load5: 0.58, Load15: 0.59},
		Uptime:      "97:25:35",
		Connections: 41,
		Traffic: map[string]stats.InterfaceTraffic{
			"eth0": {RxBytes: 5471380, TxBytes: 384263},
		},
		Processes: []stats.Process{
			{PID: 812, Name: "nginx: worker process", CPUPercent: 12.5, MemPercent: 3.1, State: "S"},
		},
		Services:    map[string]string{"nginx": "active", "mysql": "inactive"},
		CollectedAt: time.Now(),
	}
}

func TestRenderSnapshot(t *testing.T) {
	out := stripANSI(RenderSnapshot(sampleSnapshot(), "deploy@web-1:22"))

	assert.Contains(t, out, "deploy@web-1:22")
	assert.Contains(t, out, "up 97:25:35")
	assert.Contains(t, out, "23.7%")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "59.0%")
	assert.Contains(t, out, "0.52 0.58 0.59")
	assert.Contains(t, out, "41")
	assert.Contains(t, out, "eth0")
	assert.Contains(t, out, "nginx: worker process")
	assert.Contains(t, out, "8.0 GiB / 16.0 GiB")
	assert.NotContains(t, out, "unavailable")
}

func TestRenderSnapshotDegraded(t *testing.T) {
	snap := sampleSnapshot()
	snap.SourceErrors = map[string]string{stats.ProbeDisk: "timeout"}

	out := stripANSI(RenderSnapshot(snap, "local"))
	assert.Contains(t, out, "disk unavailable (timeout)")
}

func TestMeter(t *testing.T) {
	out := stripANSI(Meter(50))
	assert.Contains(t, out, "50.0%")
	assert.Equal(t, meterWidth, strings.Count(out, "█")+strings.Count(out, "░"))

	// Out-of-range values are clamped, not rendered as garbage.
	assert.Contains(t, stripANSI(Meter(-5)), "  0.0%")
	assert.Contains(t, stripANSI(Meter(250)), "100.0%")
	assert.NotContains(t, stripANSI(Meter(250)), "░")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5471380, "5.2 MiB"},
		{16 << 30, "16.0 GiB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.n))
	}
}

func TestRenderSparkline(t *testing.T) {
	t.Run("empty and zero width", func(t *testing.T) {
		assert.Empty(t, RenderSparkline(nil, 10))
		assert.Empty(t, RenderSparkline([]float64{50}, 0))
	})

	t.Run("one block per sample", func(t *testing.T) {
		out := stripANSI(RenderSparkline([]float64{0, 25, 50, 75, 100}, 10))
		assert.Equal(t, 5, len([]rune(out)))
	})

	t.Run("window truncates to most recent", func(t *testing.T) {
		data := []float64{10, 20, 30, 40, 50}
		out := stripANSI(RenderSparkline(data, 3))
		assert.Equal(t, 3, len([]rune(out)))
	})

	t.Run("absolute scale", func(t *testing.T) {
		// Low flat samples stay at the bottom instead of filling the bar.
		out := stripANSI(RenderSparkline([]float64{5, 5, 5}, 10))
		assert.Equal(t, "▁▁▁", out)

		out = stripANSI(RenderSparkline([]float64{100}, 10))
		assert.Equal(t, "█", out)
	})
}

func TestThresholdColor(t *testing.T) {
	assert.Equal(t, ColorSuccess, ThresholdColor(10))
	assert.Equal(t, ColorWarning, ThresholdColor(60))
	assert.Equal(t, ColorError, ThresholdColor(80))
	assert.Equal(t, ColorError, ThresholdColor(100))
}
