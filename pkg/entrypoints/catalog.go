package entrypoints

import (
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lhapaipai/vite-plugin-symfony/pkg/util"
)

// Kind is the asset kind of a declared entrypoint.
type Kind string

const (
	KindJS  Kind = "js"
	KindCSS Kind = "css"
)

// stylesheetExtensions is the set of extensions classified as KindCSS.
var stylesheetExtensions = []string{".css", ".scss", ".sass", ".less", ".styl", ".stylus", ".postcss"}

// KindOf classifies a source path by its extension. Matching is case
// sensitive: "app.CSS" is a script entry, as the bundler sees it.
func KindOf(p string) Kind {
	if slices.Contains(stylesheetExtensions, path.Ext(p)) {
		return KindCSS
	}
	return KindJS
}

// Entrypoint is a user-declared named root of the dependency graph.
type Entrypoint struct {
	Name    string
	RelPath string // forward-slash path relative to the project root
	Kind    Kind
}

// Catalog holds the normalized entrypoint declarations of one build.
type Catalog struct {
	root    string
	entries map[string]Entrypoint
}

// ParseInputs normalizes raw entrypoint declarations. raw must be a mapping
// of entry name to source path; arrays and any other shape are rejected.
func ParseInputs(root string, raw any) (*Catalog, error) {
	declared, err := asMapping(raw)
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid root %q: %v", ErrConfiguration, root, err)
	}

	c := &Catalog{root: absRoot, entries: make(map[string]Entrypoint, len(declared))}
	for _, name := range util.SortedKeys(declared) {
		if name == "" {
			return nil, fmt.Errorf("%w: entrypoint with empty name", ErrConfiguration)
		}
		rel, err := relativeTo(absRoot, declared[name])
		if err != nil {
			return nil, fmt.Errorf("entrypoint %q: %w", name, err)
		}
		c.entries[name] = Entrypoint{Name: name, RelPath: rel, Kind: KindOf(rel)}
	}
	return c, nil
}

func asMapping(raw any) (map[string]string, error) {
	switch v := raw.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]any:
		out := make(map[string]string, len(v))
		for name, p := range v {
			s, ok := p.(string)
			if !ok {
				return nil, fmt.Errorf("%w: entrypoint %q must be a path string, got %T", ErrConfiguration, name, p)
			}
			out[name] = s
		}
		return out, nil
	case []any, []string:
		return nil, fmt.Errorf("%w: input must be an object like {app: \"./assets/app.js\"}, not an array", ErrConfiguration)
	default:
		return nil, fmt.Errorf("%w: unsupported input declaration %T", ErrConfiguration, raw)
	}
}

// relativeTo resolves p against root and returns it root-relative with
// forward slashes. Paths escaping root are rejected.
func relativeTo(root, p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty source path", ErrConfiguration)
	}
	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, filepath.FromSlash(p))
	}
	rel, err := filepath.Rel(root, filepath.Clean(abs))
	if err != nil {
		return "", fmt.Errorf("%w: %s is not under %s", ErrResolution, p, root)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s escapes project root %s", ErrResolution, p, root)
	}
	return rel, nil
}

// Root returns the absolute project root.
func (c *Catalog) Root() string { return c.root }

// Len returns the number of declared entrypoints.
func (c *Catalog) Len() int { return len(c.entries) }

// Get returns the entrypoint declared under name.
func (c *Catalog) Get(name string) (Entrypoint, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Entries returns all entrypoints sorted by name.
func (c *Catalog) Entries() []Entrypoint {
	out := make([]Entrypoint, 0, len(c.entries))
	for _, name := range util.SortedKeys(c.entries) {
		out = append(out, c.entries[name])
	}
	return out
}

// LegacyName returns the legacy twin of a path: "-legacy" is inserted
// before the extension.
func LegacyName(p string) string {
	ext := path.Ext(p)
	return strings.TrimSuffix(p, ext) + "-legacy" + ext
}
