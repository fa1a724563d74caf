package sshutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"

	"github.com/jholliman/vantage/internal/profile"
)

// ResolveDefaults fills a profile's blank username and zero port from
// ~/.ssh/config when an entry for the hostname exists. Explicit values in
// the profile always win. Anything still unset afterwards gets the
// Normalize defaults (current user is not assumed; the profile model is
// password-based and the username should come from the user or the config).
func ResolveDefaults(p profile.Profile) profile.Profile {
	if p.Username != "" && p.Port != 0 {
		return p.Normalize()
	}

	cfg := loadSSHConfig(filepath.Join(homeDir(), ".ssh", "config"))
	if cfg != nil {
		if p.Username == "" {
			if user, _ := cfg.Get(p.Hostname, "User"); user != "" {
				p.Username = user
			}
		}
		if p.Port == 0 {
			if port, _ := cfg.Get(p.Hostname, "Port"); port != "" {
				if n, err := strconv.Atoi(port); err == nil {
					p.Port = n
				}
			}
		}
	}

	return p.Normalize()
}

// loadSSHConfig parses ~/.ssh/config, tolerating Match directives that the
// ssh_config library can't handle by dropping everything from the first
// Match block onward. Returns nil if the file is missing or unparseable.
func loadSSHConfig(path string) *ssh_config.Config {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(stripMatchBlocks(content)))
	if err != nil {
		return nil
	}
	return cfg
}

// stripMatchBlocks returns the config content up to the first Match
// directive (case insensitive).
func stripMatchBlocks(content []byte) []byte {
	lines := strings.Split(string(content), "\n")
	var kept []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			break
		}
		kept = append(kept, line)
	}

	return []byte(strings.Join(kept, "\n"))
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}
