package doctor

import (
	"fmt"
	"os"

	"github.com/jholliman/vantage/internal/config"
)

// ConfigCheck verifies that the config file, when present, parses and
// validates. A missing global config is fine; defaults apply.
type ConfigCheck struct {
	Path string // Explicit path, or empty for the global location
}

func (c *ConfigCheck) Name() string     { return "config_file" }
func (c *ConfigCheck) Category() string { return "CONFIG" }

func (c *ConfigCheck) Run() CheckResult {
	path := c.Path
	explicit := path != ""
	if !explicit {
		path = config.GlobalConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return CheckResult{
				Name:       c.Name(),
				Status:     StatusFail,
				Message:    fmt.Sprintf("Config file not found: %s", path),
				Suggestion: "Check the --config path.",
			}
		}
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "No config file; built-in defaults apply",
		}
	}

	if _, err := config.Load(path); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Config failed to load: %v", err),
			Suggestion: "Fix the YAML syntax or values in " + path,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Config file: %s", path),
	}
}
