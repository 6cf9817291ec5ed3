package config

import "time"

// Config represents the greeter configuration
type Config struct {
	User                  string `yaml:"user" json:"user"`
	DefaultSessionName    string `yaml:"default_session_name" json:"default_session_name"`
	DefaultSessionCommand string `yaml:"default_session_command" json:"default_session_command"`

	SocketPath string   `yaml:"socket_path,omitempty" json:"socket_path,omitempty"` // Empty = $GREETD_SOCK
	SessionEnv []string `yaml:"session_env,omitempty" json:"session_env,omitempty"` // KEY=VALUE pairs passed to start_session

	RetryBackoffMin time.Duration `yaml:"retry_backoff_min,omitempty" json:"retry_backoff_min,omitempty"`
	RetryBackoffMax time.Duration `yaml:"retry_backoff_max,omitempty" json:"retry_backoff_max,omitempty"`

	UI     *UIConfig     `yaml:"ui,omitempty" json:"ui,omitempty"`
	Power  *PowerConfig  `yaml:"power,omitempty" json:"power,omitempty"`
	Logger *LoggerConfig `yaml:"logger,omitempty" json:"logger,omitempty"`
}

// UIConfig represents the TUI appearance
type UIConfig struct {
	RefreshRateMs int    `yaml:"refresh_rate_ms" json:"refresh_rate_ms"` // Response poll + redraw interval
	ShowClock     bool   `yaml:"show_clock" json:"show_clock"`
	ShowPower     bool   `yaml:"show_power" json:"show_power"`
	ShowHost      bool   `yaml:"show_host" json:"show_host"`
	TimeFormat    string `yaml:"time_format" json:"time_format"` // Go layout
	DateFormat    string `yaml:"date_format" json:"date_format"` // Go layout
}

// PowerConfig represents the power action commands
type PowerConfig struct {
	RebootCommand   []string `yaml:"reboot_command" json:"reboot_command"`
	PowerOffCommand []string `yaml:"poweroff_command" json:"poweroff_command"`
}

// LoggerConfig represents logger configuration
type LoggerConfig struct {
	Level     string `yaml:"level" json:"level"`             // debug, info, warn, error
	FilePath  string `yaml:"file_path" json:"file_path"`     // Log file path (empty = no file)
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"` // Max log file size before rotation
}

// RefreshInterval returns the tick interval, never slower than 1 Hz
func (u *UIConfig) RefreshInterval() time.Duration {
	if u == nil || u.RefreshRateMs <= 0 {
		return DefaultRefreshRateMs * time.Millisecond
	}
	interval := time.Duration(u.RefreshRateMs) * time.Millisecond
	if interval > time.Second {
		return time.Second
	}
	return interval
}

// Validate validates the configuration
func (c *Config) Validate() []string {
	var problems []string

	if c.User == "" {
		problems = append(problems, "user is required")
	}
	if c.DefaultSessionCommand == "" {
		problems = append(problems, "default_session_command is required")
	}
	if c.RetryBackoffMin < 0 || c.RetryBackoffMax < 0 {
		problems = append(problems, "retry backoff must not be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoffMin > c.RetryBackoffMax {
		problems = append(problems, "retry_backoff_min exceeds retry_backoff_max")
	}
	if c.Power != nil {
		if len(c.Power.RebootCommand) == 0 {
			problems = append(problems, "power.reboot_command is empty")
		}
		if len(c.Power.PowerOffCommand) == 0 {
			problems = append(problems, "power.poweroff_command is empty")
		}
	}

	return problems
}
