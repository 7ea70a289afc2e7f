// Package prefs is a small integer key-value store persisted as YAML.
package prefs

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

const fileName = "prefs.yaml"

// Store reads and writes integer preferences.
type Store interface {
	// GetInt returns the value for key, or 0 when absent or malformed.
	GetInt(key string) int
	PutInt(key string, value int) error
}

var _ Store = (*FileStore)(nil)

// FileStore keeps every value in memory and rewrites the whole file on each put.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]any
	logger *log.Logger
}

// DefaultPath returns <user config dir>/<appName>/prefs.yaml.
func DefaultPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, fileName), nil
}

// NewFileStore opens the store at path. A missing or unreadable file
// starts empty; the problem is logged, not returned.
func NewFileStore(path string, logger *log.Logger) *FileStore {
	if logger == nil {
		panic("FileStore: logger cannot be nil")
	}
	s := &FileStore{
		path:   path,
		values: make(map[string]any),
		logger: logger,
	}
	s.load()
	return s
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) GetInt(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.values[key]
	if !ok {
		return 0
	}
	v, ok := toInt(raw)
	if !ok {
		s.logger.Printf("Prefs: value for %q is not an integer (%v), using 0", key, raw)
		return 0
	}
	return v
}

func (s *FileStore) PutInt(key string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	if err := s.save(); err != nil {
		return fmt.Errorf("save prefs %s: %w", s.path, err)
	}
	s.logger.Printf("Prefs: %s = %d", key, value)
	return nil
}

func (s *FileStore) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Printf("Prefs: load %s (no existing file)", s.path)
		} else {
			s.logger.Printf("Prefs: load %s failed: %v", s.path, err)
		}
		return
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		s.logger.Printf("Prefs: load %s failed to parse: %v", s.path, err)
		return
	}
	if values != nil {
		s.values = values
	}
	s.logger.Printf("Prefs: load %s -> %d keys", s.path, len(s.values))
}

// save writes to a temp file in the same directory and renames it into place.
func (s *FileStore) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs directory: %w", err)
	}
	serialized, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("marshal prefs yaml: %w", err)
	}
	tmp, err := os.CreateTemp(dir, fileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(serialized); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace prefs file: %w", err)
	}
	return nil
}

func toInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
