package localstate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStore_SetGet(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if got := s.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}

	if err := s.Set("device_id", "dev-123"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	if got := s.Get("device_id"); got != "dev-123" {
		t.Errorf("Get() = %q, want dev-123", got)
	}

	if !s.Has("device_id") {
		t.Error("Has() = false for existing key")
	}
}

func TestStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s1.Set("admin_has_session", "true"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("state file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("state file permissions = %o, want 0600", perm)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if got := s2.Get("admin_has_session"); got != "true" {
		t.Errorf("reloaded value = %q, want true", got)
	}
}

func TestStore_Delete(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := s.Set("guest_token", "abc"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := s.Set("is_guest", "true"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	if err := s.Delete("guest_token", "is_guest", "never_existed"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	if s.Has("guest_token") || s.Has("is_guest") {
		t.Error("deleted keys still present")
	}
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path); err == nil {
		t.Error("Open() on corrupt file should error")
	}
}
