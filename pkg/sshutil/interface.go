package sshutil

import "context"

// Session defines the interface for remote command execution.
// Both the real Client and mock implementations satisfy this interface,
// which lets collector and pool tests run without a live host.
type Session interface {
	// Exec runs a command and returns stdout and stderr.
	// A non-zero exit code is not an error; the caller interprets output.
	Exec(ctx context.Context, cmd string) (stdout, stderr []byte, err error)

	// Close closes the SSH connection.
	Close() error
}

var _ Session = (*Client)(nil)
