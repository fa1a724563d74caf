// Package profile defines connection identities and saved connection
// profiles, plus the on-disk store that persists them.
package profile

import (
	"fmt"
)

// Identity uniquely identifies a monitorable target.
// Two identities are equal iff hostname, username, and port all match
// exactly; no normalization is applied.
type Identity struct {
	Hostname string `yaml:"hostname"`
	Username string `yaml:"username"`
	Port     int    `yaml:"port"`
}

// Key returns the string form used for pool and cache lookups.
func (id Identity) Key() string {
	return fmt.Sprintf("%s_%s_%d", id.Hostname, id.Username, id.Port)
}

// String returns the user-facing user@host:port form.
func (id Identity) String() string {
	return fmt.Sprintf("%s@%s:%d", id.Username, id.Hostname, id.Port)
}

// Profile is a saved connection configuration.
type Profile struct {
	Hostname    string `yaml:"hostname"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Port        int    `yaml:"port"`
	DisplayName string `yaml:"display_name,omitempty"`
}

// Identity returns the identity triple for this profile.
func (p Profile) Identity() Identity {
	return Identity{Hostname: p.Hostname, Username: p.Username, Port: p.Port}
}

// Normalize fills defaults: port 22 when unset, and a user@host:port
// display name when none was given.
func (p Profile) Normalize() Profile {
	if p.Port == 0 {
		p.Port = 22
	}
	if p.DisplayName == "" {
		p.DisplayName = p.Identity().String()
	}
	return p
}
