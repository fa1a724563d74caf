package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
var sparklineBlocks = []rune("▁▂▃▄▅▆▇█")

// RenderSparkline draws the most recent width samples as a sparkline,
// colored by the latest value's utilization threshold. Samples are
// percentages, so the vertical scale is fixed at 0-100 rather than
// normalized to the window; a flat 5% load looks flat, not full-height.
func RenderSparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	var sb strings.Builder
	sb.Grow(len(data) * 3)

	levels := len(sparklineBlocks)
	for _, v := range data {
		level := int(v / 100 * float64(levels-1))
		if level < 0 {
			level = 0
		} else if level >= levels {
			level = levels - 1
		}
		sb.WriteRune(sparklineBlocks[level])
	}

	style := lipgloss.NewStyle().Foreground(ThresholdColor(data[len(data)-1]))
	return style.Render(sb.String())
}
