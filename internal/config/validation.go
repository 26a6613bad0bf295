package config

import (
	"fmt"
	"net/url"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks a loaded config for values that would break API calls.
func Validate(cfg *Config) error {
	if err := ValidateBaseURL(cfg.Server.BaseURL); err != nil {
		return err
	}

	if cfg.Server.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s", cfg.Server.Timeout)
	}

	if cfg.Logging.Level != "" && !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid log level %q (debug, info, warn, error)", cfg.Logging.Level)
	}

	return nil
}

// ValidateBaseURL checks that the server base URL is an absolute http(s)
// URL without a trailing slash problem.
func ValidateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("server base_url is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url %q is missing a host", raw)
	}
	return nil
}

// NormalizeBaseURL strips a trailing slash so path joins stay predictable.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(raw, "/")
}
