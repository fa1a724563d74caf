// Package config loads the vantage configuration file. Everything has a
// sensible default; the file only needs to exist when the defaults are
// being overridden.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/jholliman/vantage/internal/errors"
)

const (
	// GlobalConfigDir is the directory for the config file, under $HOME.
	GlobalConfigDir = ".config/vantage"
	// ConfigFileName is the config file name.
	ConfigFileName = "config.yaml"
	// ProfilesFileName stores saved connection profiles.
	ProfilesFileName = "profiles.yaml"
)

// Config is the complete vantage configuration.
type Config struct {
	// CacheTTL is how long a collected snapshot stays fresh.
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`

	// SweepInterval is how often expired cache entries are reclaimed.
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`

	// RefreshInterval is the scheduler's collection period.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`

	// ConnectTimeout bounds the TCP dial when connecting to a host.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// ProbeTimeout bounds each remote probe command.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`

	// Services is the watch-list queried by the service status probe.
	Services []string `yaml:"services" mapstructure:"services"`

	// ProfilesPath overrides where connection profiles are stored.
	ProfilesPath string `yaml:"profiles_path" mapstructure:"profiles_path"`

	// IncludeLoopback includes the loopback interface in traffic counters.
	IncludeLoopback bool `yaml:"include_loopback" mapstructure:"include_loopback"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		CacheTTL:        30 * time.Second,
		SweepInterval:   60 * time.Second,
		RefreshInterval: 30 * time.Second,
		ConnectTimeout:  10 * time.Second,
		ProbeTimeout:    10 * time.Second,
		Services:        nil, // collector default applies
		ProfilesPath:    "",
	}
}

// Load reads config from the specified path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Create "+path+" or run without --config to use defaults")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the global config file, or returns defaults when
// no file exists.
func LoadOrDefault() (*Config, error) {
	path := GlobalConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// GlobalConfigPath returns the default config file location, or empty
// when the home directory cannot be determined.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, GlobalConfigDir, ConfigFileName)
}

// ProfilesPathOrDefault resolves where profiles are stored.
func (c *Config) ProfilesPathOrDefault() string {
	if c.ProfilesPath != "" {
		return c.ProfilesPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ProfilesFileName
	}
	return filepath.Join(home, GlobalConfigDir, ProfilesFileName)
}

func (c *Config) validate() error {
	for name, d := range map[string]time.Duration{
		"cache_ttl":        c.CacheTTL,
		"sweep_interval":   c.SweepInterval,
		"refresh_interval": c.RefreshInterval,
		"connect_timeout":  c.ConnectTimeout,
		"probe_timeout":    c.ProbeTimeout,
	} {
		if d <= 0 {
			return errors.New(errors.ErrConfig,
				"Invalid "+name+": must be a positive duration",
				"Use values like 30s, 1m, or remove the field for the default")
		}
	}
	return nil
}
