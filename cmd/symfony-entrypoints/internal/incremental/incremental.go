package incremental

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Tracker decides whether a manifest build can be skipped.
type Tracker struct {
	store   Store
	scanner *Scanner
}

// NewTracker tracks files (bundle reports and config) of the project at root.
func NewTracker(root string, files []string) *Tracker {
	return &Tracker{
		store:   NewJSONStore(root),
		scanner: NewScanner(root, files),
	}
}

// Status reports what changed since the last Refresh without modifying
// state. Files are only hashed when their stat changed.
func (t *Tracker) Status(ctx context.Context) (*ChangeSet, error) {
	oldIdx, err := t.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	fastIdx, err := t.scanner.ScanFast(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan inputs: %w", err)
	}

	return diff(oldIdx, fastIdx, func(path string, old, _ *Entry) bool {
		hash, err := Fingerprint(t.scanner.abs(path))
		// unreadable files count as modified
		return err != nil || hash != old.Hash
	}), nil
}

// UpToDate reports whether the stored snapshot matches the current inputs
// and settings, and the manifest at manifestPath is the one written from
// them. State written by a newer release counts as stale.
func (t *Tracker) UpToDate(ctx context.Context, manifestPath, config string) (bool, error) {
	if !t.store.Exists() {
		return false, nil
	}
	idx, err := t.store.Load()
	if errors.Is(err, ErrIncompatibleState) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if idx.Manifest != manifestPath || idx.Config != config {
		return false, nil
	}

	cs, err := t.Status(ctx)
	if err != nil || !cs.IsEmpty() {
		return false, err
	}

	hash, err := Fingerprint(manifestPath)
	if err != nil {
		return false, nil
	}
	return idx.ManifestHash == hash, nil
}

// Refresh records the current inputs and settings together with the
// manifest written from them.
func (t *Tracker) Refresh(ctx context.Context, manifestPath, config string) error {
	idx, err := t.scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan inputs: %w", err)
	}
	idx.Config = config

	if manifestPath != "" {
		idx.Manifest = manifestPath
		if _, err := os.Stat(manifestPath); err == nil {
			if idx.ManifestHash, err = Fingerprint(manifestPath); err != nil {
				return fmt.Errorf("failed to hash manifest: %w", err)
			}
		}
	}

	if err := t.store.Save(idx); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// ConfigChanged reports whether config differs from the settings stored by
// the last Refresh. Missing state counts as changed.
func (t *Tracker) ConfigChanged(config string) bool {
	idx, err := t.store.Load()
	if err != nil || idx == nil {
		return true
	}
	return idx.Config != config
}

// HasState returns true if a previous snapshot exists.
func (t *Tracker) HasState() bool {
	return t.store.Exists()
}

// Clear drops the stored snapshot.
func (t *Tracker) Clear() error {
	return t.store.Clear()
}

// TrackedFileCount returns the number of files in the stored snapshot, 0
// when there is none.
func (t *Tracker) TrackedFileCount() int {
	idx, err := t.store.Load()
	if err != nil || idx == nil {
		return 0
	}
	return len(idx.Entries)
}
