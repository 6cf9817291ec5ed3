package config

import (
	"os"
	"path/filepath"

	"tgreet/modules/platform/auth"
)

const (
	// DefaultConfigFileName is the default config file name
	DefaultConfigFileName = "tgreet.yaml"

	// DefaultConfigPath is where greetd greeters keep their configuration
	DefaultConfigPath = "/etc/greetd/" + DefaultConfigFileName

	// DefaultRefreshRateMs is the default TUI tick
	DefaultRefreshRateMs = 250

	// EnvConfig overrides the config file location
	EnvConfig = "TGREET_CONFIG"
)

// DefaultUIConfig returns default UI settings
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		RefreshRateMs: DefaultRefreshRateMs,
		ShowClock:     true,
		ShowPower:     true,
		ShowHost:      true,
		TimeFormat:    "15:04",
		DateFormat:    "Monday January 2",
	}
}

// DefaultPowerConfig returns the systemd power commands
func DefaultPowerConfig() *PowerConfig {
	return &PowerConfig{
		RebootCommand:   []string{"systemctl", "reboot"},
		PowerOffCommand: []string{"systemctl", "poweroff"},
	}
}

// DefaultLoggerConfig returns default logger configuration
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:     "info",
		FilePath:  "",
		MaxSizeMB: 10,
	}
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		RetryBackoffMin: auth.DefaultRetryBackoffMin,
		RetryBackoffMax: auth.DefaultRetryBackoffMax,
		UI:              DefaultUIConfig(),
		Power:           DefaultPowerConfig(),
		Logger:          DefaultLoggerConfig(),
	}
}

// applyDefaults fills the sections and values a file left out
func applyDefaults(c *Config) {
	if c.RetryBackoffMin == 0 {
		c.RetryBackoffMin = auth.DefaultRetryBackoffMin
	}
	if c.RetryBackoffMax == 0 {
		c.RetryBackoffMax = auth.DefaultRetryBackoffMax
	}

	if c.UI == nil {
		c.UI = DefaultUIConfig()
	} else {
		d := DefaultUIConfig()
		if c.UI.RefreshRateMs <= 0 {
			c.UI.RefreshRateMs = d.RefreshRateMs
		}
		if c.UI.TimeFormat == "" {
			c.UI.TimeFormat = d.TimeFormat
		}
		if c.UI.DateFormat == "" {
			c.UI.DateFormat = d.DateFormat
		}
	}

	if c.Power == nil {
		c.Power = DefaultPowerConfig()
	}
	if c.Logger == nil {
		c.Logger = DefaultLoggerConfig()
	}
}

// GetUserConfigDir returns the user's config directory for tgreet
func GetUserConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "tgreet"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".config", "tgreet"), nil
}
