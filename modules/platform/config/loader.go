package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when a required config file does not exist
var ErrConfigNotFound = errors.New("config file not found")

// Loader handles configuration loading and saving
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads configuration from file.
// YAML is a superset of JSON, so JSON settings files load as well.
func (l *Loader) Load() (*Config, error) {
	data, err := os.ReadFile(l.configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, l.configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

// Save saves configuration to file
func (l *Loader) Save(config *Config) error {
	dir := filepath.Dir(l.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(l.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetPath returns the config file path
func (l *Loader) GetPath() string {
	return l.configPath
}

// Exists checks if config file exists
func (l *Loader) Exists() bool {
	_, err := os.Stat(l.configPath)
	return err == nil
}

// FindConfigFile searches for config file in standard locations
func FindConfigFile() string {
	// Priority order:
	// 1. $TGREET_CONFIG
	// 2. /etc/greetd
	// 3. User config directory

	if path := os.Getenv(EnvConfig); path != "" {
		return path
	}

	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return DefaultConfigPath
	}

	if dir, err := GetUserConfigDir(); err == nil {
		configPath := filepath.Join(dir, DefaultConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	return DefaultConfigPath
}

// Overrides are values given on the command line. Empty means not given.
type Overrides struct {
	User           string
	SessionName    string
	SessionCommand string
}

func (o Overrides) complete() bool {
	return o.User != "" && o.SessionName != "" && o.SessionCommand != ""
}

// Resolve merges the config file at configPath with the overrides.
// The file is only required when an override is missing; with all three
// given, an absent file falls back to the defaults.
func Resolve(configPath string, o Overrides) (*Config, error) {
	if configPath == "" {
		configPath = FindConfigFile()
	}

	config, err := NewLoader(configPath).Load()
	if err != nil {
		if !o.complete() || !errors.Is(err, ErrConfigNotFound) {
			return nil, err
		}
		config = DefaultConfig()
	}

	if o.User != "" {
		config.User = o.User
	}
	if o.SessionName != "" {
		config.DefaultSessionName = o.SessionName
	}
	if o.SessionCommand != "" {
		config.DefaultSessionCommand = o.SessionCommand
	}

	return config, nil
}
