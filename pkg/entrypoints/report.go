package entrypoints

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/tidwall/jsonc"
)

// UnitType distinguishes chunks from assets in a bundle report.
type UnitType string

const (
	UnitChunk UnitType = "chunk"
	UnitAsset UnitType = "asset"
)

// FormatSystem is the output format of the legacy compilation pass.
const FormatSystem = "system"

// polyfillID is the facade module id of both polyfill pseudo-entries.
const polyfillID = "\x00" + PolyfillsKey

// OutputUnit is one compiled unit as reported by the bundler. The record is
// opaque to this package apart from the fields below.
type OutputUnit struct {
	Type           UnitType `json:"type"`
	FileName       string   `json:"fileName"`
	Name           string   `json:"name,omitempty"`
	FacadeModuleID string   `json:"facadeModuleId,omitempty"`
	IsEntry        bool     `json:"isEntry,omitempty"`
	Imports        []string `json:"imports,omitempty"`
	DynamicImports []string `json:"dynamicImports,omitempty"`
	ImportedCSS    []string `json:"importedCss,omitempty"`
	ImportedAssets []string `json:"importedAssets,omitempty"`
	Modules        []string `json:"modules,omitempty"`

	// Code holds a chunk's text, Source an asset's text. SourceBase64 is
	// used for binary assets.
	Code         string `json:"code,omitempty"`
	Source       string `json:"source,omitempty"`
	SourceBase64 string `json:"sourceBase64,omitempty"`

	// Rendered marks a chunk that was rendered but pruned from the final
	// bundle, such as the script stub of a stylesheet-only entry.
	Rendered bool `json:"rendered,omitempty"`
}

// Bytes returns the raw content of the unit.
func (u *OutputUnit) Bytes() []byte {
	if u.Type == UnitChunk {
		return []byte(u.Code)
	}
	if u.SourceBase64 != "" {
		if b, err := base64.StdEncoding.DecodeString(u.SourceBase64); err == nil {
			return b
		}
	}
	return []byte(u.Source)
}

var (
	cssLangsRE      = regexp.MustCompile(`\.(css|less|sass|scss|styl|stylus|pcss|postcss|sss)(?:$|\?)`)
	cssModuleRE     = regexp.MustCompile(`\.module\.(css|less|sass|scss|styl|stylus|pcss|postcss|sss)(?:$|\?)`)
	commonjsProxyRE = regexp.MustCompile(`\?commonjs-proxy`)
)

// IsCSSEntry reports whether a rendered chunk is the stub of an entry made
// only of stylesheets, with a single emitted CSS file.
func (u *OutputUnit) IsCSSEntry() bool {
	if u.Type != UnitChunk || !u.IsEntry {
		return false
	}
	for _, id := range u.Modules {
		if !cssLangsRE.MatchString(id) || cssModuleRE.MatchString(id) || commonjsProxyRE.MatchString(id) {
			return false
		}
	}
	return len(u.ImportedCSS) == 1
}

// Report is the output of one compilation pass.
type Report struct {
	Format string        `json:"format"`
	Units  []*OutputUnit `json:"units"`
}

// IsLegacy reports whether the pass targets legacy environments.
func (r *Report) IsLegacy() bool { return r.Format == FormatSystem }

// ParseReport decodes a bundle report. Comments and trailing commas are
// accepted.
func ParseReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(jsonc.ToJSON(data), &r); err != nil {
		return nil, fmt.Errorf("parsing bundle report: %w", err)
	}
	for i, u := range r.Units {
		if u == nil || u.FileName == "" {
			return nil, fmt.Errorf("parsing bundle report: unit %d has no fileName", i)
		}
	}
	return &r, nil
}

// ReadReport reads and decodes a bundle report file.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrIO, path, err)
	}
	r, err := ParseReport(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}
