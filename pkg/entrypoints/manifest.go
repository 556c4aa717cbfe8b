package entrypoints

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ManifestFileName is the manifest location relative to the output dir.
const ManifestFileName = ".vite/entrypoints.json"

// LegacyRef names the legacy twin of an entry. The empty value is encoded
// as JSON false.
type LegacyRef string

func (l LegacyRef) MarshalJSON() ([]byte, error) {
	if l == "" {
		return []byte("false"), nil
	}
	return json.Marshal(string(l))
}

func (l *LegacyRef) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("false")) || bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("legacy must be false or an entry name: %w", err)
	}
	*l = LegacyRef(s)
	return nil
}

// EntryManifest lists the resources of one entrypoint.
type EntryManifest struct {
	CSS     []string  `json:"css"`
	Dynamic []string  `json:"dynamic"`
	JS      []string  `json:"js"`
	Legacy  LegacyRef `json:"legacy"`
	Preload []string  `json:"preload"`

	dev bool
}

func newEntryManifest(r Resolved) *EntryManifest {
	return &EntryManifest{CSS: r.CSS, Dynamic: r.Dynamic, JS: r.JS, Preload: r.Preload}
}

// devEntry is the dev-server form: a single direct URL under js or css.
type devEntry struct {
	CSS []string `json:"css,omitempty"`
	JS  []string `json:"js,omitempty"`
}

func (e EntryManifest) MarshalJSON() ([]byte, error) {
	if e.dev {
		return json.Marshal(devEntry{CSS: e.CSS, JS: e.JS})
	}
	type plain EntryManifest
	p := plain(e)
	p.CSS, p.Dynamic, p.JS, p.Preload = nonNil(p.CSS), nonNil(p.Dynamic), nonNil(p.JS), nonNil(p.Preload)
	return json.Marshal(p)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// EntryPoints maps entry names to their resources.
type EntryPoints map[string]*EntryManifest

// Metadata carries per-file integrity information.
type Metadata struct {
	Hash *string `json:"hash"`
}

// Version is ["<raw>", major, minor, patch], or ["<raw>"] alone when the
// version is not a release number.
type Version struct {
	Raw                 string
	Major, Minor, Patch int
	Short               bool
}

// ParseVersion splits a dotted version string. Non-numeric parts count as 0.
func ParseVersion(s string) Version {
	v := Version{Raw: s}
	parts := strings.Split(s, ".")
	nums := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, p := range parts {
		if i >= len(nums) {
			break
		}
		*nums[i] = leadingInt(strings.TrimPrefix(p, "v"))
	}
	return v
}

// leadingInt parses the leading digits of s ("3-beta" is 3).
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

// ShortVersion returns a version encoded as a single element.
func ShortVersion(s string) Version {
	return Version{Raw: s, Short: true}
}

func (v Version) MarshalJSON() ([]byte, error) {
	if v.Short {
		return json.Marshal([]any{v.Raw})
	}
	return json.Marshal([]any{v.Raw, v.Major, v.Minor, v.Patch})
}

func (v *Version) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) == 0 {
		return fmt.Errorf("empty version tuple")
	}
	*v = Version{}
	if err := json.Unmarshal(parts[0], &v.Raw); err != nil {
		return err
	}
	if len(parts) == 1 {
		v.Short = true
		return nil
	}
	nums := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, p := range parts[1:] {
		if i >= len(nums) {
			break
		}
		if err := json.Unmarshal(p, nums[i]); err != nil {
			return err
		}
	}
	return nil
}

// Manifest is the document consumed by the server-side renderer.
type Manifest struct {
	Base        string              `json:"base"`
	EntryPoints EntryPoints         `json:"entryPoints"`
	Legacy      bool                `json:"legacy"`
	Metadatas   map[string]Metadata `json:"metadatas"`
	Version     Version             `json:"version"`
	ViteServer  *string             `json:"viteServer"`
}

// Encode serializes m with two-space indentation.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteManifest writes m to path atomically, creating parent directories.
func WriteManifest(path string, m *Manifest) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrIO, filepath.Dir(path), err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIO, filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: writing %s: %v", ErrIO, filepath.Base(path), err)
	}
	return nil
}

// ReadManifest loads a manifest previously written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrIO, path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrIO, path, err)
	}
	return &m, nil
}
