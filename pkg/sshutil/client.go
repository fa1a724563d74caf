// Package sshutil provides the SSH transport for vantage: dialing a host
// with password authentication, running probe commands with a timeout, and
// classifying connection failures.
package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/jholliman/vantage/internal/errors"
	"github.com/jholliman/vantage/internal/profile"
)

// Default timeouts for establishing a connection. The banner timeout bounds
// the SSH version exchange and handshake, which can hang on misbehaving
// hosts long after the TCP dial succeeded.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultBannerTimeout  = 30 * time.Second
)

// Client wraps an SSH connection with its identity and connect time.
type Client struct {
	*ssh.Client
	Identity    profile.Identity
	ConnectedAt time.Time
}

// DialOptions control connection establishment.
type DialOptions struct {
	ConnectTimeout time.Duration
	BannerTimeout  time.Duration
}

func (o DialOptions) withDefaults() DialOptions {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.BannerTimeout <= 0 {
		o.BannerTimeout = DefaultBannerTimeout
	}
	return o
}

// Dial establishes a password-authenticated SSH connection for the given
// profile. Blank username and zero port are filled from ~/.ssh/config when
// an entry for the hostname exists (see ResolveDefaults).
//
// Failures are classified: AUTH for rejected credentials, TIMEOUT for dial
// or handshake deadlines, NETWORK for socket-level faults, and PROTOCOL for
// everything the SSH layer itself rejects.
func Dial(p profile.Profile, opts DialOptions) (*Client, error) {
	opts = opts.withDefaults()
	p = ResolveDefaults(p)
	id := p.Identity()
	address := net.JoinHostPort(p.Hostname, fmt.Sprintf("%d", p.Port))

	config := &ssh.ClientConfig{
		User: p.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(p.Password),
		},
		// The original tool auto-accepts host keys; targets are
		// user-entered, not provisioned.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		Timeout:         opts.ConnectTimeout,
	}

	conn, err := net.DialTimeout("tcp", address, opts.ConnectTimeout)
	if err != nil {
		return nil, classifyDialError(err, id, address)
	}

	// Bound the banner exchange and handshake. Cleared on success so the
	// connection can sit idle in the pool.
	if err := conn.SetDeadline(time.Now().Add(opts.BannerTimeout)); err != nil {
		conn.Close()
		return nil, errors.WrapWithCode(err, errors.ErrNetwork,
			fmt.Sprintf("Couldn't prepare connection to %s", id),
			"")
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, classifyHandshakeError(err, id)
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		sshConn.Close()
		return nil, errors.WrapWithCode(err, errors.ErrNetwork,
			fmt.Sprintf("Couldn't finalize connection to %s", id),
			"")
	}

	return &Client{
		Client:      ssh.NewClient(sshConn, chans, reqs),
		Identity:    id,
		ConnectedAt: time.Now(),
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// classifyDialError maps a TCP dial failure onto the error taxonomy.
func classifyDialError(err error, id profile.Identity, address string) error {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.WrapWithCode(err, errors.ErrTimeout,
			fmt.Sprintf("Connection to %s timed out", id),
			"Host might be offline or blocked by a firewall.")
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return errors.WrapWithCode(err, errors.ErrNetwork,
			fmt.Sprintf("Connection to %s was refused", id),
			fmt.Sprintf("Is SSH listening on %s?", address))
	}
	if strings.Contains(errStr, "no route to host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "no such host") {
		return errors.WrapWithCode(err, errors.ErrNetwork,
			fmt.Sprintf("Can't reach %s", id),
			"Check the hostname and your network connection.")
	}

	return errors.WrapWithCode(err, errors.ErrNetwork,
		fmt.Sprintf("Can't connect to %s", id),
		fmt.Sprintf("Make sure the host is reachable: ping %s", id.Hostname))
}

// classifyHandshakeError maps an SSH handshake failure onto the error taxonomy.
func classifyHandshakeError(err error, id profile.Identity) error {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.WrapWithCode(err, errors.ErrTimeout,
			fmt.Sprintf("SSH handshake with %s timed out", id),
			"The host accepted the connection but never completed the handshake.")
	}

	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") ||
		strings.Contains(errStr, "no supported methods") ||
		strings.Contains(errStr, "permission denied") {
		return errors.WrapWithCode(err, errors.ErrAuth,
			fmt.Sprintf("Authentication failed for %s", id),
			"Check the username and password.")
	}
	if strings.Contains(errStr, "i/o timeout") {
		return errors.WrapWithCode(err, errors.ErrTimeout,
			fmt.Sprintf("SSH handshake with %s timed out", id),
			"The host accepted the connection but never completed the handshake.")
	}

	return errors.WrapWithCode(err, errors.ErrProtocol,
		fmt.Sprintf("SSH handshake with %s failed", id),
		fmt.Sprintf("Try connecting manually first: ssh %s", id))
}
