package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSessionExactMatch(t *testing.T) {
	m := NewMockSession()
	m.Respond("cat /proc/loadavg", "0.52 0.58 0.59 1/389 12345\n")

	out, _, err := m.Exec(context.Background(), "cat /proc/loadavg")
	require.NoError(t, err)
	assert.Equal(t, "0.52 0.58 0.59 1/389 12345\n", string(out))
}

func TestMockSessionPatternMatch(t *testing.T) {
	m := NewMockSession()
	m.Respond(`^systemctl is-active`, "active\n")

	out, _, err := m.Exec(context.Background(), "systemctl is-active nginx 2>/dev/null || echo 'unknown'")
	require.NoError(t, err)
	assert.Equal(t, "active\n", string(out))
}

func TestMockSessionUnmatchedReturnsEmpty(t *testing.T) {
	m := NewMockSession()
	out, errOut, err := m.Exec(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, errOut)
}

func TestMockSessionClosed(t *testing.T) {
	m := NewMockSession()
	require.NoError(t, m.Close())
	assert.True(t, m.Closed())

	_, _, err := m.Exec(context.Background(), "echo 1")
	assert.Error(t, err)
}

func TestMockSessionHistory(t *testing.T) {
	m := NewMockSession()
	_, _, _ = m.Exec(context.Background(), "first")
	_, _, _ = m.Exec(context.Background(), "second")
	assert.Equal(t, []string{"first", "second"}, m.History())
}
