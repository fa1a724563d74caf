package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jholliman/vantage/internal/stats"
)

func testWatchModel() WatchModel {
	return NewWatchModel("local", time.Second, func(ctx context.Context) (*stats.Snapshot, error) {
		return sampleSnapshot(), nil
	})
}

func TestWatchModelInitialView(t *testing.T) {
	m := testWatchModel()
	assert.Contains(t, m.View(), "Collecting stats from local")
}

func TestWatchModelSnapshotUpdate(t *testing.T) {
	m := testWatchModel()

	next, cmd := m.Update(snapshotMsg{snap: sampleSnapshot()})
	model := next.(WatchModel)
	require.NotNil(t, cmd) // schedules the next refresh

	view := stripANSI(model.View())
	assert.Contains(t, view, "local")
	assert.Contains(t, view, "23.7%")
	assert.Contains(t, view, "q quit")
}

func TestWatchModelKeepsSnapshotOnError(t *testing.T) {
	m := testWatchModel()

	next, _ := m.Update(snapshotMsg{snap: sampleSnapshot()})
	next, _ = next.(WatchModel).Update(snapshotMsg{err: errors.New("host went away")})
	model := next.(WatchModel)

	view := stripANSI(model.View())
	assert.Contains(t, view, "23.7%")
	assert.Contains(t, view, "last refresh failed")
}

func TestWatchModelCPUHistory(t *testing.T) {
	m := testWatchModel()

	var model tea.Model = m
	for i := 0; i < cpuHistorySize+10; i++ {
		model, _ = model.(WatchModel).Update(snapshotMsg{snap: sampleSnapshot()})
	}
	assert.Len(t, model.(WatchModel).cpuHistory, cpuHistorySize)
	assert.Contains(t, stripANSI(model.(WatchModel).View()), "CPU history")
}

func TestWatchModelQuit(t *testing.T) {
	m := testWatchModel()

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.True(t, next.(WatchModel).quitting)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, next.(WatchModel).View())
}

func TestWatchModelManualRefreshKeepsSingleTimer(t *testing.T) {
	m := testWatchModel()

	// Periodic chain: the first snapshot schedules a tick.
	next, cmd := m.Update(snapshotMsg{snap: sampleSnapshot()})
	require.NotNil(t, cmd)
	model := next.(WatchModel)
	staleGen := model.refreshGen

	// Manual refresh retires the pending tick; completing its fetch
	// schedules the replacement.
	next, cmd = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	require.NotNil(t, cmd)
	model = next.(WatchModel)
	snap, ok := cmd().(snapshotMsg)
	require.True(t, ok)
	next, cmd = model.Update(snap)
	require.NotNil(t, cmd)
	model = next.(WatchModel)

	// The retired timer's tick is dropped instead of starting a second
	// fetch chain.
	_, cmd = model.Update(refreshMsg{gen: staleGen})
	assert.Nil(t, cmd)

	// The live timer's tick still drives a fetch.
	_, cmd = model.Update(refreshMsg{gen: model.refreshGen})
	require.NotNil(t, cmd)
	_, ok = cmd().(snapshotMsg)
	assert.True(t, ok)
}

func TestWatchModelManualRefresh(t *testing.T) {
	calls := 0
	m := NewWatchModel("local", time.Hour, func(ctx context.Context) (*stats.Snapshot, error) {
		calls++
		return sampleSnapshot(), nil
	})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	require.NotNil(t, cmd)
	msg := cmd()
	_, ok := msg.(snapshotMsg)
	assert.True(t, ok)
	assert.Equal(t, 1, calls)
}
