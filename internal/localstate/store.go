// Package localstate provides a durable key/value store for small pieces of
// client state (device IDs, session markers, legacy credentials).
package localstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is a file-backed string key/value store. Writes are last-write-wins:
// concurrent processes mutating the same file overwrite each other, which is
// an accepted trade-off for this kind of per-user client state.
type Store struct {
	mu       sync.Mutex
	filePath string
	values   map[string]string
}

// Open creates a store backed by the given file.
// The file is loaded if it exists; a missing file starts empty.
func Open(filePath string) (*Store, error) {
	s := &Store{
		filePath: filePath,
		values:   make(map[string]string),
	}

	if filePath != "" {
		if err := s.loadFromFile(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Get returns the value for key, or "" if absent.
func (s *Store) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

// Set stores a value and persists immediately.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, hadPrev := s.values[key]
	s.values[key] = value

	if err := s.saveToFile(); err != nil {
		// Roll back the in-memory change if persistence fails.
		if hadPrev {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return fmt.Errorf("failed to persist state: %w", err)
	}

	return nil
}

// Delete removes one or more keys and persists. Missing keys are ignored.
func (s *Store) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, key := range keys {
		if _, ok := s.values[key]; ok {
			delete(s.values, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}

	if err := s.saveToFile(); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}

func (s *Store) loadFromFile() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}
	if values != nil {
		s.values = values
	}

	return nil
}

func (s *Store) saveToFile() error {
	if s.filePath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// State may hold credentials, keep it owner-only.
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}
