package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IMGBED_BASE_URL", "https://env.example.com")
	t.Setenv("IMGBED_TIMEOUT", "45s")
	t.Setenv("IMGBED_LOG_PRETTY", "false")

	cfg := DefaultConfig()
	cfg.Logging.Pretty = true
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Server.BaseURL != "https://env.example.com" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.Timeout != 45*time.Second {
		t.Errorf("Timeout = %s", cfg.Server.Timeout)
	}
	if cfg.Logging.Pretty {
		t.Error("Pretty must be overridden to false")
	}
}

func TestLoadFromEnv_InvalidDuration(t *testing.T) {
	t.Setenv("IMGBED_TIMEOUT", "not-a-duration")

	cfg := DefaultConfig()
	if err := LoadFromEnv(cfg); err == nil {
		t.Error("expected error for malformed duration")
	}
}

func TestLoadFromEnv_UnsetLeavesValues(t *testing.T) {
	cfg := DefaultConfig()
	base := cfg.Server.BaseURL
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.Server.BaseURL != base {
		t.Errorf("BaseURL changed without env var: %q", cfg.Server.BaseURL)
	}
}
