package cli

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jholliman/vantage/internal/config"
	"github.com/jholliman/vantage/internal/errors"
	"github.com/jholliman/vantage/internal/profile"
)

// parseTarget parses "[user@]host[:port]" into a profile. Username and
// port fall back to SSH config defaults at dial time when omitted.
func parseTarget(s string) (profile.Profile, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return profile.Profile{}, errors.New(errors.ErrConfig,
			"Empty target",
			"Use the form user@host or user@host:port.")
	}

	var p profile.Profile
	if at := strings.LastIndex(s, "@"); at >= 0 {
		p.Username = s[:at]
		s = s[at+1:]
	}

	if colon := strings.LastIndex(s, ":"); colon >= 0 {
		port, err := strconv.Atoi(s[colon+1:])
		if err != nil || port < 1 || port > 65535 {
			return profile.Profile{}, errors.New(errors.ErrConfig,
				"Invalid port in target: "+s,
				"Ports are numbers between 1 and 65535, like host:2222.")
		}
		p.Port = port
		s = s[:colon]
	}

	if s == "" {
		return profile.Profile{}, errors.New(errors.ErrConfig,
			"Target has no hostname",
			"Use the form user@host or user@host:port.")
	}
	p.Hostname = s
	return p, nil
}

// activeFileName marks which saved profile later commands default to.
const activeFileName = "active.yaml"

func activePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return activeFileName
	}
	return filepath.Join(home, config.GlobalConfigDir, activeFileName)
}

// saveActive records the identity that stats/watch use when no target is
// given.
func saveActive(id profile.Identity) error {
	data, err := yaml.Marshal(id)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't encode active host", "")
	}
	path := activePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't create config directory", "Check permissions on "+filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't record active host", "Check permissions on "+path)
	}
	return nil
}

// loadActive returns the recorded default identity, if any.
func loadActive() (profile.Identity, bool) {
	data, err := os.ReadFile(activePath())
	if err != nil {
		return profile.Identity{}, false
	}
	var id profile.Identity
	if err := yaml.Unmarshal(data, &id); err != nil || id.Hostname == "" {
		return profile.Identity{}, false
	}
	return id, true
}

// clearActive forgets the default identity.
func clearActive() {
	_ = os.Remove(activePath())
}
