// Package testing provides a mock SSH session for tests that exercise
// probe and pool logic without a live host.
package testing

import (
	"context"
	"errors"
	"regexp"
	"sync"
)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout []byte
	Stderr []byte
	Error  error
}

// MockSession simulates an SSH session for testing. Commands are matched
// against registered responses, first by exact string then by regex
// pattern. Unmatched commands return empty output, which probe parsers
// treat as a parse failure.
type MockSession struct {
	mu       sync.Mutex
	closed   bool
	closeErr error
	commands map[string]CommandResponse
	history  []string
}

// NewMockSession creates a mock session with no registered responses.
func NewMockSession() *MockSession {
	return &MockSession{
		commands: make(map[string]CommandResponse),
	}
}

// Respond registers stdout for an exact command or regex pattern.
func (m *MockSession) Respond(pattern, stdout string) {
	m.RespondFull(pattern, CommandResponse{Stdout: []byte(stdout)})
}

// RespondFull registers a full canned response for a command pattern.
func (m *MockSession) RespondFull(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[pattern] = resp
}

// FailClose makes Close return the given error while still marking the
// session closed. Used to test best-effort close handling.
func (m *MockSession) FailClose(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeErr = err
}

// Exec returns the registered response for cmd, or empty output.
func (m *MockSession) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, errors.New("connection closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	m.history = append(m.history, cmd)

	if resp, ok := m.commands[cmd]; ok {
		return resp.Stdout, resp.Stderr, resp.Error
	}
	for pattern, resp := range m.commands {
		if matched, _ := regexp.MatchString(pattern, cmd); matched {
			return resp.Stdout, resp.Stderr, resp.Error
		}
	}

	return nil, nil, nil
}

// Close marks the session as closed.
func (m *MockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.closeErr
}

// Closed reports whether Close has been called.
func (m *MockSession) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// History returns the commands executed, in order.
func (m *MockSession) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}
