package doctor

import (
	"fmt"

	"github.com/jholliman/vantage/internal/profile"
)

// ProfilesCheck verifies that the profile store loads.
type ProfilesCheck struct {
	Path string
}

func (c *ProfilesCheck) Name() string     { return "profile_store" }
func (c *ProfilesCheck) Category() string { return "PROFILES" }

func (c *ProfilesCheck) Run() CheckResult {
	store, err := profile.NewStore(c.Path)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Profile store failed to load: %v", err),
			Suggestion: "Fix or remove " + c.Path,
		}
	}

	n := store.Len()
	if n == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No saved profiles",
			Suggestion: "Run 'vantage connect user@host' to add one.",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%d saved profile(s)", n),
	}
}

// ActiveHostCheck verifies the recorded active host still has a saved
// profile to resolve credentials from.
type ActiveHostCheck struct {
	Active    profile.Identity
	HasActive bool
	StorePath string
}

func (c *ActiveHostCheck) Name() string     { return "active_host" }
func (c *ActiveHostCheck) Category() string { return "PROFILES" }

func (c *ActiveHostCheck) Run() CheckResult {
	if !c.HasActive {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No active host; stats fall back to local collection",
			Suggestion: "Run 'vantage connect user@host' to set one.",
		}
	}

	store, err := profile.NewStore(c.StorePath)
	if err == nil {
		if _, ok := store.Find(c.Active); ok {
			return CheckResult{
				Name:    c.Name(),
				Status:  StatusPass,
				Message: fmt.Sprintf("Active host: %s", c.Active.String()),
			}
		}
	}

	return CheckResult{
		Name:       c.Name(),
		Status:     StatusFail,
		Message:    fmt.Sprintf("Active host %s has no saved profile", c.Active.String()),
		Suggestion: "Reconnect with 'vantage connect " + c.Active.String() + "'.",
	}
}
