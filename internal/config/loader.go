package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/imgbed/imgbed/internal/constants"
)

// Loader handles loading and saving the configuration file.
type Loader struct {
	homeDir string
}

// NewLoader creates a new config loader. The base directory is resolved in
// this order:
//  1. IMGBED_CONFIG environment variable.
//  2. User home directory (~/).
//  3. /tmp/imgbed-fallback (environments without a home dir).
//
// The loader never fails: without a home directory, Load returns defaults
// with env var overrides applied.
func NewLoader() *Loader {
	if baseDir := os.Getenv("IMGBED_CONFIG"); baseDir != "" {
		return &Loader{homeDir: baseDir}
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		return &Loader{homeDir: homeDir}
	}

	return &Loader{homeDir: "/tmp/imgbed-fallback"}
}

// ConfigPath returns the path to the config file.
func (l *Loader) ConfigPath() string {
	return filepath.Join(l.homeDir, constants.DefaultDir, constants.ConfigFile)
}

// StateDir returns the directory holding the vault and client state,
// honoring the config's state_dir override.
func (l *Loader) StateDir(cfg *Config) string {
	if cfg != nil && cfg.StateDir != "" {
		return cfg.StateDir
	}
	return filepath.Join(l.homeDir, constants.DefaultDir)
}

// VaultPath returns the path to the token vault file.
func (l *Loader) VaultPath(cfg *Config) string {
	return filepath.Join(l.StateDir(cfg), constants.VaultFile)
}

// StatePath returns the path to the key/value client state file.
func (l *Loader) StatePath(cfg *Config) string {
	return filepath.Join(l.StateDir(cfg), constants.StateFile)
}

// Load reads the configuration. Returns defaults if the file does not
// exist, then applies environment variable overrides on top.
func (l *Loader) Load() (*Config, error) {
	path := l.ConfigPath()

	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		applyDefaults(cfg)
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to disk.
func (l *Loader) Save(cfg *Config) error {
	path := l.ConfigPath()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyDefaults fills fields a hand-edited config file may have left out.
func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()
	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = defaults.Server.BaseURL
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = defaults.Server.Timeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
}
