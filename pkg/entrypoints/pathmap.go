package entrypoints

// Source keys of the runtime-polyfill pseudo-entries emitted by the legacy
// plugin. They are not declared by the user.
const (
	PolyfillsKey       = "vite/legacy-polyfills"
	LegacyPolyfillsKey = "vite/legacy-polyfills-legacy"
)

// PathMap maps source-relative paths to the output-relative path the
// bundler emitted for them. It is owned by a single Session.
type PathMap struct {
	outputs map[string]string
	order   []string
}

// NewPathMap returns an empty table.
func NewPathMap() *PathMap {
	return &PathMap{outputs: make(map[string]string)}
}

// Record maps src to out. Recording the same key again overwrites it.
func (m *PathMap) Record(src, out string) {
	if _, ok := m.outputs[src]; !ok {
		m.order = append(m.order, src)
	}
	m.outputs[src] = out
}

// Lookup returns the output path recorded for src.
func (m *PathMap) Lookup(src string) (string, bool) {
	out, ok := m.outputs[src]
	return out, ok
}

// ReverseLookup returns the first source path, in insertion order, that maps
// to out.
func (m *PathMap) ReverseLookup(out string) (string, bool) {
	for _, src := range m.order {
		if m.outputs[src] == out {
			return src, true
		}
	}
	return "", false
}

// Len returns the number of mapped source paths.
func (m *PathMap) Len() int { return len(m.outputs) }

// Reset clears the table for a new build.
func (m *PathMap) Reset() {
	m.outputs = make(map[string]string)
	m.order = nil
}
