package incremental

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// StateDir is where build state lives, relative to the project root. It
// follows Symfony's var/cache convention so that cache:clear style cleanups
// drop it too.
var StateDir = filepath.Join("var", "cache", "symfony-entrypoints")

const stateFile = "state.json"

// ErrIncompatibleState is returned for a state file written by a newer
// release. The next build overwrites it.
var ErrIncompatibleState = errors.New("incompatible incremental state")

// Store persists build snapshots.
type Store interface {
	Load() (*Index, error)
	Save(idx *Index) error
	Exists() bool
	Clear() error
}

// JSONStore keeps the snapshot in a single JSON file.
type JSONStore struct {
	path string
}

// NewJSONStore creates a store for the project at root.
func NewJSONStore(root string) *JSONStore {
	return &JSONStore{path: filepath.Join(root, StateDir, stateFile)}
}

// Path returns the state file location.
func (s *JSONStore) Path() string { return s.path }

// Load reads the snapshot. A missing file yields an empty index.
func (s *JSONStore) Load() (*Index, error) {
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NewIndex(), nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	idx := NewIndex()
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIncompatibleState, s.path, err)
	}
	if idx.Version > IndexVersion {
		return nil, fmt.Errorf("%w: %s has version %d, this release reads up to %d",
			ErrIncompatibleState, s.path, idx.Version, IndexVersion)
	}
	if idx.Entries == nil {
		idx.Entries = map[string]*Entry{}
	}
	return idx, nil
}

// Save stamps idx and replaces the state file atomically.
func (s *JSONStore) Save(idx *Index) error {
	if idx == nil {
		return errors.New("save: nil index")
	}
	idx.Version = IndexVersion
	idx.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

// Exists reports whether a snapshot was saved.
func (s *JSONStore) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && info.Mode().IsRegular()
}

// Clear removes the state directory.
func (s *JSONStore) Clear() error {
	return os.RemoveAll(filepath.Dir(s.path))
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
