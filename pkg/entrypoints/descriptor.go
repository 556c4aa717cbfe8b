package entrypoints

import (
	"fmt"
	"strings"

	"github.com/lhapaipai/vite-plugin-symfony/pkg/util"
)

// FileDescriptor describes one output unit reported by the bundler. The
// interface is sealed: *JSFile, *CSSFile and *AssetFile are the only
// implementations, and consumers switch over all three.
type FileDescriptor interface {
	Output() string
	Source() string
	Integrity() string
	sealed()
}

// JSFile is a compiled script chunk.
type JSFile struct {
	OutputPath     string
	SourcePath     string
	StaticImports  []string
	DynamicImports []string
	DirectJS       []string
	DirectCSS      []string
	DirectAssets   []string
	Hash           string
}

// CSSFile is an emitted stylesheet.
type CSSFile struct {
	OutputPath string
	SourcePath string
	DirectCSS  []string
	Hash       string
}

// AssetFile is any other emitted file (images, fonts, ...).
type AssetFile struct {
	OutputPath string
	SourcePath string
	Hash       string
}

func (f *JSFile) Output() string    { return f.OutputPath }
func (f *JSFile) Source() string    { return f.SourcePath }
func (f *JSFile) Integrity() string { return f.Hash }
func (*JSFile) sealed()             {}

func (f *CSSFile) Output() string    { return f.OutputPath }
func (f *CSSFile) Source() string    { return f.SourcePath }
func (f *CSSFile) Integrity() string { return f.Hash }
func (*CSSFile) sealed()             {}

func (f *AssetFile) Output() string    { return f.OutputPath }
func (f *AssetFile) Source() string    { return f.SourcePath }
func (f *AssetFile) Integrity() string { return f.Hash }
func (*AssetFile) sealed()             {}

// DescribeUnit builds the descriptor for a bundler output unit. sourcePath is
// the unit's source-relative path as recorded in the PathMap.
func DescribeUnit(u *OutputUnit, sourcePath string, alg HashAlgorithm) (FileDescriptor, error) {
	switch u.Type {
	case UnitAsset:
		hash := alg.Digest(u.Bytes())
		if strings.HasSuffix(u.FileName, ".css") {
			return &CSSFile{
				OutputPath: u.FileName,
				SourcePath: sourcePath,
				DirectCSS:  []string{u.FileName},
				Hash:       hash,
			}, nil
		}
		return &AssetFile{OutputPath: u.FileName, SourcePath: sourcePath, Hash: hash}, nil
	case UnitChunk:
		return &JSFile{
			OutputPath:     u.FileName,
			SourcePath:     sourcePath,
			StaticImports:  clone(u.Imports),
			DynamicImports: clone(u.DynamicImports),
			DirectJS:       []string{u.FileName},
			DirectCSS:      clone(u.ImportedCSS),
			DirectAssets:   clone(u.ImportedAssets),
			Hash:           alg.Digest(u.Bytes()),
		}, nil
	default:
		return nil, fmt.Errorf("unknown unit type %q for %s", u.Type, u.FileName)
	}
}

func clone(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}

type storedFile struct {
	pass int
	desc FileDescriptor
}

// FileStore maps output-relative paths to their descriptors.
type FileStore struct {
	files map[string]storedFile
}

// NewFileStore returns an empty store.
func NewFileStore() *FileStore {
	return &FileStore{files: make(map[string]storedFile)}
}

// Record stores d for the given pass. A descriptor is written once per
// output path per pass; a later pass may replace it.
func (s *FileStore) Record(pass int, d FileDescriptor) error {
	out := d.Output()
	if prev, ok := s.files[out]; ok && prev.pass == pass {
		return fmt.Errorf("%w: %s", ErrDuplicateOutput, out)
	}
	s.files[out] = storedFile{pass: pass, desc: d}
	return nil
}

// Get returns the descriptor recorded for an output path.
func (s *FileStore) Get(out string) (FileDescriptor, bool) {
	f, ok := s.files[out]
	if !ok {
		return nil, false
	}
	return f.desc, true
}

// Len returns the number of recorded outputs.
func (s *FileStore) Len() int { return len(s.files) }

// Each calls fn for every descriptor in output path order.
func (s *FileStore) Each(fn func(FileDescriptor)) {
	for _, out := range util.SortedKeys(s.files) {
		fn(s.files[out].desc)
	}
}

// Reset drops every descriptor.
func (s *FileStore) Reset() {
	s.files = make(map[string]storedFile)
}
