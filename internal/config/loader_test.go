package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("IMGBED_CONFIG", t.TempDir())

	l := NewLoader()
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.BaseURL == "" {
		t.Error("default base URL must be set")
	}
	if cfg.Server.Timeout == 0 {
		t.Error("default timeout must be set")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default log level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IMGBED_CONFIG", dir)

	configDir := filepath.Join(dir, ".imgbed")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		t.Fatal(err)
	}
	content := []byte("version: \"1\"\nserver:\n  base_url: https://img.example.com\n  timeout: 10s\n")
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.BaseURL != "https://img.example.com" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.Timeout != 10*time.Second {
		t.Errorf("Timeout = %s, want 10s", cfg.Server.Timeout)
	}
	// Omitted fields fall back to defaults.
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IMGBED_CONFIG", dir)
	t.Setenv("IMGBED_BASE_URL", "https://override.example.com")
	t.Setenv("IMGBED_LOG_LEVEL", "debug")

	configDir := filepath.Join(dir, ".imgbed")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		t.Fatal(err)
	}
	content := []byte("server:\n  base_url: https://file.example.com\n")
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.BaseURL != "https://override.example.com" {
		t.Errorf("BaseURL = %q, env must win over file", cfg.Server.BaseURL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	t.Setenv("IMGBED_CONFIG", t.TempDir())

	l := NewLoader()
	cfg := DefaultConfig()
	cfg.Server.BaseURL = "https://img.example.com"
	cfg.Device.Name = "My Workstation"

	if err := l.Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.BaseURL != cfg.Server.BaseURL {
		t.Errorf("BaseURL = %q", loaded.Server.BaseURL)
	}
	if loaded.Device.Name != "My Workstation" {
		t.Errorf("Device.Name = %q", loaded.Device.Name)
	}

	info, err := os.Stat(l.ConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}
}

func TestStateDirOverride(t *testing.T) {
	t.Setenv("IMGBED_CONFIG", "/home/user")

	l := NewLoader()
	cfg := DefaultConfig()

	if got := l.StateDir(cfg); got != "/home/user/.imgbed" {
		t.Errorf("StateDir = %q", got)
	}

	cfg.StateDir = "/var/lib/imgbed"
	if got := l.VaultPath(cfg); got != "/var/lib/imgbed/vault.json" {
		t.Errorf("VaultPath = %q", got)
	}
	if got := l.StatePath(cfg); got != "/var/lib/imgbed/state.json" {
		t.Errorf("StatePath = %q", got)
	}
}
