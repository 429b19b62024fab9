package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// Store keeps the desktop app's preferences in a TOML file
type Store struct {
	mu   sync.RWMutex
	cfg  Config
	path string
}

// NewStore loads preferences from path, falling back to defaults when the
// file is missing. An empty path keeps preferences in memory only.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, cfg: DefaultConfig()}
	if path == "" || !FileExists(path) {
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file, "" for a memory store.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the current preferences.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update replaces the preferences and persists them.
func (s *Store) Update(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return s.save()
}

// Reload re-reads the backing file on top of the defaults.
func (s *Store) Reload() error {
	fc, err := LoadFileConfig(s.path)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	cfg := DefaultConfig()
	ApplyFileConfig(&cfg, fc, nil)

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

func (s *Store) save() error {
	if s.path == "" {
		return nil // memory-only mode
	}
	data, err := toml.Marshal(ToFileConfig(s.cfg))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
