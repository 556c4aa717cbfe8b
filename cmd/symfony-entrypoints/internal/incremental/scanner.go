package incremental

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Scanner snapshots an explicit list of input files.
type Scanner struct {
	root  string
	files []string
}

// NewScanner creates a scanner for files. Relative paths are resolved
// against root.
func NewScanner(root string, files []string) *Scanner {
	return &Scanner{root: root, files: files}
}

// Scan stats and hashes every tracked file. Missing files are left out of
// the index so that they surface as deletions.
func (s *Scanner) Scan(ctx context.Context) (*Index, error) {
	return s.scan(ctx, true)
}

// ScanFast stats tracked files without hashing them.
func (s *Scanner) ScanFast(ctx context.Context) (*Index, error) {
	return s.scan(ctx, false)
}

func (s *Scanner) scan(ctx context.Context, hash bool) (*Index, error) {
	idx := NewIndex()
	for _, file := range s.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := s.abs(file)
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}

		entry := &Entry{
			Path:    s.key(path),
			ModTime: info.ModTime().UnixNano(),
			Size:    info.Size(),
		}
		if hash {
			if entry.Hash, err = Fingerprint(path); err != nil {
				return nil, err
			}
		}
		idx.Add(entry)
	}
	return idx, nil
}

// key returns path relative to root when it lies inside it.
func (s *Scanner) key(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}

func (s *Scanner) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.root, filepath.FromSlash(path))
}
