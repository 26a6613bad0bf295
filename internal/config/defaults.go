package config

import (
	"github.com/imgbed/imgbed/internal/constants"
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: SchemaVersion,
		Server: ServerConfig{
			BaseURL: constants.DefaultBaseURL,
			Timeout: constants.DefaultRequestTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}
