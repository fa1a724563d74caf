package sshutil

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/crypto/ssh"

	"github.com/jholliman/vantage/internal/errors"
)

// Exec runs a command on the remote host and returns its output.
// A non-zero exit code is not an error: probe commands routinely exit
// non-zero (grep with no matches, missing tools) and the caller decides
// what the output means. The context bounds the whole execution; on
// expiry the session is torn down and a TIMEOUT error is returned.
func (c *Client) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, err error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.ErrNetwork,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case <-ctx.Done():
		// Closing the session unblocks the Run goroutine.
		_ = session.Close()
		return nil, nil, errors.WrapWithCode(ctx.Err(), errors.ErrTimeout,
			fmt.Sprintf("Command timed out: %s", cmd),
			"The host may be overloaded. Try a longer probe timeout.")
	case runErr := <-done:
		if runErr != nil {
			if _, ok := runErr.(*ssh.ExitError); ok {
				// Command ran, just had a non-zero exit.
				return stdoutBuf.Bytes(), stderrBuf.Bytes(), nil
			}
			return nil, nil, errors.WrapWithCode(runErr, errors.ErrExec,
				fmt.Sprintf("Failed to execute command: %s", cmd),
				"Check if the command exists on the remote host.")
		}
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), nil
	}
}
