package doctor

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/jholliman/vantage/internal/profile"
	"github.com/jholliman/vantage/pkg/sshutil"
)

// SSHKeyCheck verifies an SSH key pair exists in the usual locations.
type SSHKeyCheck struct{}

func (c *SSHKeyCheck) Name() string     { return "ssh_key" }
func (c *SSHKeyCheck) Category() string { return "SSH" }

func (c *SSHKeyCheck) Run() CheckResult {
	home, err := os.UserHomeDir()
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Cannot determine home directory",
			Suggestion: "Check the HOME environment variable.",
		}
	}

	keyPaths := []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_rsa"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
	}
	for _, keyPath := range keyPaths {
		if _, err := os.Stat(keyPath + ".pub"); err == nil {
			return CheckResult{
				Name:    c.Name(),
				Status:  StatusPass,
				Message: fmt.Sprintf("SSH key found: ~/.ssh/%s", filepath.Base(keyPath)),
			}
		}
	}

	// Password auth still works without one.
	return CheckResult{
		Name:       c.Name(),
		Status:     StatusWarn,
		Message:    "No SSH key found",
		Suggestion: "Generate one with: ssh-keygen -t ed25519",
	}
}

// HostReachableCheck tests a TCP connection to a saved host's SSH port.
type HostReachableCheck struct {
	Profile profile.Profile
	Timeout time.Duration
}

func (c *HostReachableCheck) Name() string {
	return "reachable_" + c.Profile.Identity().Key()
}

func (c *HostReachableCheck) Category() string { return "HOSTS" }

func (c *HostReachableCheck) Run() CheckResult {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	resolved := sshutil.ResolveDefaults(c.Profile)
	address := net.JoinHostPort(resolved.Hostname, fmt.Sprintf("%d", resolved.Port))

	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s unreachable: %v", resolved.Identity().String(), err),
			Suggestion: "Check the hostname, port, and network connectivity.",
		}
	}
	conn.Close()

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s reachable", resolved.Identity().String()),
	}
}
