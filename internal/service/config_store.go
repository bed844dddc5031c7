package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonesrussell/crawlorc/internal/apperr"
)

// ConfigStore persists a crawler's uploaded config_file (§6.2). Tests
// substitute an in-memory implementation; production wiring substitutes
// FileConfigStore.
type ConfigStore interface {
	Save(name string, data []byte) (string, error)
	Remove(name string) error
}

// FileConfigStore writes config files to a directory on disk under the
// base name of the config file name the caller passes to Save.
type FileConfigStore struct {
	Dir string
}

// NewFileConfigStore constructs a FileConfigStore rooted at dir.
func NewFileConfigStore(dir string) *FileConfigStore {
	return &FileConfigStore{Dir: dir}
}

// Save writes data under name (must end in .json, per §6.2 "it must be
// .json") and returns the stored file name.
func (s *FileConfigStore) Save(name string, data []byte) (string, error) {
	if !strings.HasSuffix(strings.ToLower(name), ".json") {
		return "", apperr.NewValidationError("config_file", "must be a .json file")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	path := filepath.Join(s.Dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write config file: %w", err)
	}
	return filepath.Base(name), nil
}

// Remove deletes the file previously returned by Save, if present.
func (s *FileConfigStore) Remove(name string) error {
	if name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove config file: %w", err)
	}
	return nil
}
