package incremental

import (
	"slices"
	"time"
)

// IndexVersion is the current version of the state format.
const IndexVersion = 1

// Index is a snapshot of the tracked inputs of one build together with the
// manifest written from them.
type Index struct {
	Version   int               `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Entries   map[string]*Entry `json:"entries"`

	Manifest     string `json:"manifest,omitempty"`
	ManifestHash string `json:"manifest_hash,omitempty"`

	// Config fingerprints the effective settings the manifest was built with.
	Config string `json:"config,omitempty"`
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{Version: IndexVersion, UpdatedAt: time.Now(), Entries: map[string]*Entry{}}
}

// Add records e, replacing any entry with the same path.
func (idx *Index) Add(e *Entry) {
	if idx == nil || e == nil {
		return
	}
	if idx.Entries == nil {
		idx.Entries = map[string]*Entry{}
	}
	idx.Entries[e.Path] = e
}

// Get returns the entry for path.
func (idx *Index) Get(path string) (*Entry, bool) {
	if idx == nil {
		return nil, false
	}
	e, ok := idx.Entries[path]
	return e, ok
}

// entries returns the entries map of a possibly nil index.
func (idx *Index) entries() map[string]*Entry {
	if idx == nil {
		return nil
	}
	return idx.Entries
}

// Diff compares idx (old) against other (new) by content hash. Entries with
// identical mtime and size are unchanged.
func (idx *Index) Diff(other *Index) *ChangeSet {
	return diff(idx, other, func(_ string, old, cur *Entry) bool {
		return old.Hash != cur.Hash
	})
}

// diff consults modified only for entries whose stat differs.
func diff(oldIdx, newIdx *Index, modified func(path string, old, cur *Entry) bool) *ChangeSet {
	before, after := oldIdx.entries(), newIdx.entries()
	cs := &ChangeSet{Added: []string{}, Modified: []string{}, Deleted: []string{}}

	for path, cur := range after {
		switch old, ok := before[path]; {
		case !ok:
			cs.Added = append(cs.Added, path)
		case !old.sameStat(cur) && modified(path, old, cur):
			cs.Modified = append(cs.Modified, path)
		}
	}
	for path := range before {
		if _, ok := after[path]; !ok {
			cs.Deleted = append(cs.Deleted, path)
		}
	}

	slices.Sort(cs.Added)
	slices.Sort(cs.Modified)
	slices.Sort(cs.Deleted)
	return cs
}

// ChangeSet lists tracked inputs that differ between two snapshots.
type ChangeSet struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Deleted  []string `json:"deleted"`
}

// IsEmpty reports whether nothing changed.
func (cs *ChangeSet) IsEmpty() bool {
	return cs.TotalChanges() == 0
}

// TotalChanges returns the number of changed inputs.
func (cs *ChangeSet) TotalChanges() int {
	if cs == nil {
		return 0
	}
	return len(cs.Added) + len(cs.Modified) + len(cs.Deleted)
}

// Paths returns every changed path, sorted.
func (cs *ChangeSet) Paths() []string {
	if cs == nil {
		return nil
	}
	out := slices.Concat(cs.Added, cs.Modified, cs.Deleted)
	slices.Sort(out)
	return out
}
