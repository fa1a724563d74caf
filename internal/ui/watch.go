package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jholliman/vantage/internal/stats"
)

// cpuHistorySize bounds the sparkline sample window.
const cpuHistorySize = 60

// FetchFunc supplies the watch view with snapshots.
type FetchFunc func(ctx context.Context) (*stats.Snapshot, error)

type snapshotMsg struct {
	snap *stats.Snapshot
	err  error
}

// refreshMsg carries the generation of the timer that fired so ticks
// from a superseded timer can be dropped.
type refreshMsg struct {
	gen int
}

// WatchModel is the live stats view: a snapshot redrawn on an interval
// with a CPU history sparkline. Keys: q to quit, r to refresh now.
type WatchModel struct {
	target   string
	fetch    FetchFunc
	interval time.Duration

	spinner    spinner.Model
	snap       *stats.Snapshot
	err        error
	cpuHistory []float64
	quitting   bool

	// refreshGen invalidates pending ticks: only one refresh timer is
	// live at a time, even across manual refreshes.
	refreshGen int
}

// NewWatchModel creates the live view for a target.
func NewWatchModel(target string, interval time.Duration, fetch FetchFunc) WatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"◐", "◓", "◑", "◒"},
		FPS:    time.Second / 10,
	}
	sp.Style = lipgloss.NewStyle().Foreground(ColorSecondary)

	return WatchModel{
		target:   target,
		fetch:    fetch,
		interval: interval,
		spinner:  sp,
	}
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchCmd())
}

func (m WatchModel) fetchCmd() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		snap, err := fetch(context.Background())
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m WatchModel) scheduleRefresh() tea.Cmd {
	gen := m.refreshGen
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return refreshMsg{gen: gen}
	})
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			// The fetch reschedules on completion; retire the pending
			// timer so the cadence doesn't double.
			m.refreshGen++
			return m, m.fetchCmd()
		}
		return m, nil

	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.snap = msg.snap
			m.cpuHistory = append(m.cpuHistory, msg.snap.CPUPercent)
			if len(m.cpuHistory) > cpuHistorySize {
				m.cpuHistory = m.cpuHistory[1:]
			}
		}
		return m, m.scheduleRefresh()

	case refreshMsg:
		if msg.gen != m.refreshGen {
			return m, nil
		}
		return m, m.fetchCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}
	if m.snap == nil {
		if m.err != nil {
			return lipgloss.NewStyle().Foreground(ColorError).Render(SymbolFail) +
				" " + m.err.Error() + "\n"
		}
		return m.spinner.View() + " Collecting stats from " + m.target + "...\n"
	}

	out := RenderSnapshot(m.snap, m.target)
	if len(m.cpuHistory) > 1 {
		out += "\n" + labelStyle.Render("CPU history") +
			RenderSparkline(m.cpuHistory, cpuHistorySize) + "\n"
	}
	if m.err != nil {
		out += "\n" + lipgloss.NewStyle().Foreground(ColorWarning).Render(SymbolWarn) +
			mutedStyle.Render(" last refresh failed; showing previous snapshot") + "\n"
	}
	out += "\n" + mutedStyle.Render("q quit · r refresh") + "\n"
	return out
}

// RunWatch starts the live view and blocks until the user quits.
func RunWatch(target string, interval time.Duration, fetch FetchFunc) error {
	p := tea.NewProgram(NewWatchModel(target, interval, fetch))
	_, err := p.Run()
	return err
}
