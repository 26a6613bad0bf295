// Package config provides configuration loading and management.
package config

import (
	"time"
)

// SchemaVersion is the configuration schema version.
const SchemaVersion = "1"

// Config represents the ~/.imgbed/config.yaml config file.
// It holds user-level settings; credentials never live here — tokens go in
// the vault and sessions in server-set cookies.
type Config struct {
	Version string        `yaml:"version"`
	Server  ServerConfig  `yaml:"server"`
	Device  DeviceConfig  `yaml:"device,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`

	// StateDir overrides where the vault and client state are stored.
	// Empty means ~/.imgbed.
	StateDir string `yaml:"state_dir,omitempty" env:"IMGBED_STATE_DIR"`
}

// ServerConfig points the client at a backend.
type ServerConfig struct {
	BaseURL string        `yaml:"base_url" env:"IMGBED_BASE_URL"`
	Timeout time.Duration `yaml:"timeout,omitempty" env:"IMGBED_TIMEOUT"`
}

// DeviceConfig overrides the locally derived device identity.
type DeviceConfig struct {
	// Name replaces the derived "OS · Browser" style label sent to the
	// server for session listings.
	Name string `yaml:"name,omitempty" env:"IMGBED_DEVICE_NAME"`
}

// LoggingConfig controls CLI log output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" env:"IMGBED_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty,omitempty" env:"IMGBED_LOG_PRETTY"`
}
