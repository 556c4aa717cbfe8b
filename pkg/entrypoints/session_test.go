package entrypoints

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRoot = "/home/me/project-dir"
	testBase = "/build/"
)

func testCatalog(t *testing.T, inputs map[string]string) *Catalog {
	t.Helper()
	c, err := ParseInputs(testRoot, inputs)
	require.NoError(t, err)
	return c
}

func defaultInputs() map[string]string {
	return map[string]string{
		"welcome":     "./welcome/index.js",
		"theme":       "./assets/theme.scss",
		"pageImports": "./assets/page/imports/index.js",
		"pageAssets":  "./assets/page/assets/index.js",
		"circular":    "./assets/circular1.js",
	}
}

func facade(rel string) string { return testRoot + "/" + rel }

func modernUnits() []*OutputUnit {
	return []*OutputUnit{
		{
			Type: UnitChunk, FileName: "welcome-1e67239d.js", Name: "welcome", IsEntry: true,
			FacadeModuleID: facade("welcome/index.js"),
			Code:           "console.log(\"welcome.js !\");\n",
		},
		{
			Type: UnitChunk, FileName: "pageImports-53eb9fd1.js", Name: "pageImports", IsEntry: true,
			FacadeModuleID: facade("assets/page/imports/index.js"),
			Imports:        []string{"vendor-aaaa1111.js"},
			DynamicImports: []string{"async-dep-e2ac9f96.js"},
		},
		{Type: UnitChunk, FileName: "vendor-aaaa1111.js", Name: "vendor", ImportedCSS: []string{"vendor-bbbb2222.css"}},
		{Type: UnitAsset, FileName: "vendor-bbbb2222.css", Source: ".vendor{}"},
		{Type: UnitChunk, FileName: "async-dep-e2ac9f96.js", Name: "async-dep"},
		{
			Type: UnitChunk, FileName: "assets/theme-!~{001}~.js", Name: "theme", IsEntry: true,
			FacadeModuleID: facade("assets/theme.scss"),
			Modules:        []string{facade("assets/theme.scss")},
			ImportedCSS:    []string{"theme-44b5be96.css"},
			Rendered:       true,
		},
		{Type: UnitAsset, FileName: "theme-44b5be96.css", Source: "body{color:red}"},
		{
			Type: UnitChunk, FileName: "pageAssets-05cfe79c.js", Name: "pageAssets", IsEntry: true,
			FacadeModuleID: facade("assets/page/assets/index.js"),
			ImportedCSS:    []string{"index-aa7c8190.css"},
			ImportedAssets: []string{"logo-d015cc3f.png"},
		},
		{Type: UnitAsset, FileName: "index-aa7c8190.css", Source: "h1{}"},
		{Type: UnitAsset, FileName: "logo-d015cc3f.png", SourceBase64: "iVBORw0KGgo="},
		{
			Type: UnitChunk, FileName: "circular1-56785678.js", Name: "circular", IsEntry: true,
			FacadeModuleID: facade("assets/circular1.js"),
			Imports:        []string{"circular2-12341234.js"},
		},
		{Type: UnitChunk, FileName: "circular2-12341234.js", Name: "circular2", Imports: []string{"circular1-56785678.js"}},
	}
}

func newTestSession(t *testing.T, inputs map[string]string, outputs int, sri HashAlgorithm) *Session {
	t.Helper()
	s, err := NewSession(Options{
		Catalog: testCatalog(t, inputs),
		Base:    testBase,
		Outputs: outputs,
		SRI:     sri,
		Version: ParseVersion("6.5.0"),
	})
	require.NoError(t, err)
	return s
}

func TestSession_ModernBuild(t *testing.T) {
	s := newTestSession(t, defaultInputs(), 1, "")
	require.NoError(t, s.ProcessReport(&Report{Format: "es", Units: modernUnits()}))
	assert.Equal(t, PhaseReady, s.Phase())

	m, err := s.Manifest()
	require.NoError(t, err)
	assert.Equal(t, PhaseEmitted, s.Phase())
	assert.False(t, m.Legacy)
	assert.Equal(t, testBase, m.Base)
	assert.Empty(t, m.Metadatas)

	assert.Equal(t, &EntryManifest{
		CSS: []string{}, Dynamic: []string{}, Preload: []string{},
		JS: []string{"/build/welcome-1e67239d.js"},
	}, m.EntryPoints["welcome"])

	assert.Equal(t, &EntryManifest{
		CSS:     []string{"/build/vendor-bbbb2222.css"},
		Dynamic: []string{"/build/async-dep-e2ac9f96.js"},
		JS:      []string{"/build/pageImports-53eb9fd1.js"},
		Preload: []string{"/build/vendor-aaaa1111.js"},
	}, m.EntryPoints["pageImports"])

	assert.Equal(t, &EntryManifest{
		CSS: []string{"/build/index-aa7c8190.css"}, Dynamic: []string{}, Preload: []string{},
		JS: []string{"/build/pageAssets-05cfe79c.js"},
	}, m.EntryPoints["pageAssets"])

	assert.Equal(t, &EntryManifest{
		CSS: []string{"/build/theme-44b5be96.css"}, Dynamic: []string{}, Preload: []string{}, JS: []string{},
	}, m.EntryPoints["theme"])

	assert.Equal(t, &EntryManifest{
		CSS: []string{}, Dynamic: []string{}, Preload: []string{"/build/circular2-12341234.js"},
		JS: []string{"/build/circular1-56785678.js"},
	}, m.EntryPoints["circular"])

	assert.Len(t, m.EntryPoints, 5)
}

func TestSession_SourcePaths(t *testing.T) {
	s := newTestSession(t, defaultInputs(), 1, "")
	require.NoError(t, s.ProcessReport(&Report{Format: "es", Units: modernUnits()}))

	tests := map[string]string{
		"welcome/index.js":             "welcome-1e67239d.js",
		"assets/theme.scss":            "theme-44b5be96.css",
		"assets/page/imports/index.js": "pageImports-53eb9fd1.js",
		"_vendor-aaaa1111.js":          "vendor-aaaa1111.js",
		"_logo-d015cc3f.png":           "logo-d015cc3f.png",
		"_async-dep-e2ac9f96.js":       "async-dep-e2ac9f96.js",
	}
	for src, out := range tests {
		got, ok := s.Paths().Lookup(src)
		if assert.True(t, ok, src) {
			assert.Equal(t, out, got, src)
		}
	}

	// the pruned stylesheet stub is never described
	_, ok := s.Files().Get("assets/theme-!~{001}~.js")
	assert.False(t, ok)

	d, ok := s.Files().Get("theme-44b5be96.css")
	require.True(t, ok)
	assert.IsType(t, &CSSFile{}, d)
	assert.Equal(t, "assets/theme.scss", d.Source())

	d, ok = s.Files().Get("logo-d015cc3f.png")
	require.True(t, ok)
	assert.IsType(t, &AssetFile{}, d)
}

func TestSession_Integrity(t *testing.T) {
	s := newTestSession(t, defaultInputs(), 1, SHA256)
	require.NoError(t, s.ProcessReport(&Report{Format: "es", Units: modernUnits()}))

	m, err := s.Manifest()
	require.NoError(t, err)

	meta, ok := m.Metadatas["/build/welcome-1e67239d.js"]
	require.True(t, ok)
	require.NotNil(t, meta.Hash)
	assert.Equal(t, "sha256-w+Sit18/MC+LC1iX8MrNapOiCQ8wbPX8Rb6ErbfDX1Q=", *meta.Hash)

	// every stored output is hashed, assets included
	assert.Len(t, m.Metadatas, s.Files().Len())
	assert.Contains(t, m.Metadatas, "/build/logo-d015cc3f.png")
}

func legacyUnits() []*OutputUnit {
	return []*OutputUnit{
		{
			Type: UnitChunk, FileName: "welcome-legacy-64979d13.js", Name: "welcome", IsEntry: true,
			FacadeModuleID: facade("welcome/index.js"),
		},
		{
			Type: UnitChunk, FileName: "polyfills-legacy-40963d34.js", Name: "polyfills-legacy", IsEntry: true,
			FacadeModuleID: polyfillID,
		},
	}
}

func modernWithPolyfills() []*OutputUnit {
	return append(modernUnits(), &OutputUnit{
		Type: UnitChunk, FileName: "polyfills-Cj9hW7C2.js", Name: "polyfills", IsEntry: true,
		FacadeModuleID: polyfillID,
	})
}

func TestSession_LegacyBuild(t *testing.T) {
	orders := map[string][]*Report{
		"legacy first": {
			{Format: FormatSystem, Units: legacyUnits()},
			{Format: "es", Units: modernWithPolyfills()},
		},
		"modern first": {
			{Format: "es", Units: modernWithPolyfills()},
			{Format: FormatSystem, Units: legacyUnits()},
		},
	}

	for name, reports := range orders {
		t.Run(name, func(t *testing.T) {
			s := newTestSession(t, defaultInputs(), 2, "")

			require.NoError(t, s.ProcessReport(reports[0]))
			assert.Equal(t, PhaseAwaiting, s.Phase())
			_, err := s.Manifest()
			assert.ErrorIs(t, err, ErrNotReady)

			require.NoError(t, s.ProcessReport(reports[1]))
			assert.Equal(t, PhaseReady, s.Phase())

			m, err := s.Manifest()
			require.NoError(t, err)
			assert.True(t, m.Legacy)

			assert.Equal(t, LegacyRef("welcome-legacy"), m.EntryPoints["welcome"].Legacy)
			assert.Equal(t, []string{"/build/welcome-legacy-64979d13.js"}, m.EntryPoints["welcome-legacy"].JS)
			assert.Equal(t, []string{"/build/polyfills-legacy-40963d34.js"}, m.EntryPoints[LegacyPolyfillsEntry].JS)
			assert.Equal(t, []string{"/build/polyfills-Cj9hW7C2.js"}, m.EntryPoints[PolyfillsEntry].JS)

			// stylesheet entries have no twin
			assert.Equal(t, LegacyRef(""), m.EntryPoints["theme"].Legacy)
			assert.NotContains(t, m.EntryPoints, "theme-legacy")
		})
	}
}

func TestSession_LegacyPassWithoutTwins(t *testing.T) {
	s := newTestSession(t, map[string]string{"theme": "./assets/theme.scss"}, 2, "")

	legacy := []*OutputUnit{
		{
			Type: UnitChunk, FileName: "polyfills-legacy-40963d34.js", Name: "polyfills-legacy", IsEntry: true,
			FacadeModuleID: polyfillID,
		},
	}
	modern := []*OutputUnit{
		{
			Type: UnitChunk, FileName: "assets/theme-!~{001}~.js", Name: "theme", IsEntry: true,
			FacadeModuleID: facade("assets/theme.scss"),
			Modules:        []string{facade("assets/theme.scss")},
			ImportedCSS:    []string{"theme-44b5be96.css"},
			Rendered:       true,
		},
		{Type: UnitAsset, FileName: "theme-44b5be96.css", Source: "body{}"},
	}

	require.NoError(t, s.GenerateBundle(FormatSystem, legacy))
	require.NoError(t, s.ProcessReport(&Report{Format: "es", Units: modern}))

	m, err := s.Manifest()
	require.NoError(t, err)
	assert.False(t, m.Legacy)
	assert.NotContains(t, m.EntryPoints, LegacyPolyfillsEntry)
	assert.Equal(t, []string{"/build/theme-44b5be96.css"}, m.EntryPoints["theme"].CSS)
}

func TestSession_MissingEntry(t *testing.T) {
	inputs := defaultInputs()
	inputs["missing"] = "./assets/missing.js"
	s := newTestSession(t, inputs, 1, "")

	err := s.ProcessReport(&Report{Format: "es", Units: modernUnits()})
	require.ErrorIs(t, err, ErrResolution)
	assert.Contains(t, err.Error(), `"missing"`)

	// the session refuses further work
	err = s.GenerateBundle("es", nil)
	assert.ErrorIs(t, err, ErrAborted)
	_, err = s.Manifest()
	assert.ErrorIs(t, err, ErrAborted)
}

func TestSession_MissingImport(t *testing.T) {
	units := []*OutputUnit{
		{
			Type: UnitChunk, FileName: "welcome-1e67239d.js", Name: "welcome", IsEntry: true,
			FacadeModuleID: facade("welcome/index.js"),
			Imports:        []string{"gone-00000000.js"},
		},
	}

	s := newTestSession(t, map[string]string{"welcome": "./welcome/index.js"}, 1, "")
	err := s.GenerateBundle("es", units)
	require.ErrorIs(t, err, ErrImportResolution)

	var ie *ImportError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "welcome-1e67239d.js", ie.Importer)
	assert.Equal(t, "gone-00000000.js", ie.Import)
}

func TestSession_ExternalImport(t *testing.T) {
	units := []*OutputUnit{
		{
			Type: UnitChunk, FileName: "welcome-1e67239d.js", Name: "welcome", IsEntry: true,
			FacadeModuleID: facade("welcome/index.js"),
			Imports:        []string{"jquery"},
		},
	}
	external, err := MatchExternal([]string{"jquery"})
	require.NoError(t, err)

	s, err := NewSession(Options{
		Catalog:  testCatalog(t, map[string]string{"welcome": "./welcome/index.js"}),
		Base:     testBase,
		Outputs:  1,
		External: external,
	})
	require.NoError(t, err)
	require.NoError(t, s.GenerateBundle("es", units))

	m, err := s.Manifest()
	require.NoError(t, err)
	assert.Equal(t, []string{}, m.EntryPoints["welcome"].Preload)
}

func TestSession_Lifecycle(t *testing.T) {
	s := newTestSession(t, defaultInputs(), 1, "")
	require.NoError(t, s.ProcessReport(&Report{Format: "es", Units: modernUnits()}))

	err := s.ProcessReport(&Report{Format: "es", Units: modernUnits()})
	assert.ErrorIs(t, err, ErrPassOverflow)

	_, err = s.Manifest()
	require.NoError(t, err)
	_, err = s.Manifest()
	assert.ErrorIs(t, err, ErrAlreadyEmitted)

	s.Close()
	assert.Equal(t, 0, s.Paths().Len())
	assert.Equal(t, 0, s.Files().Len())
	assert.ErrorIs(t, s.GenerateBundle("es", nil), ErrAborted)
}

func TestSession_DuplicateOutput(t *testing.T) {
	units := []*OutputUnit{
		{Type: UnitAsset, FileName: "logo-d015cc3f.png", Source: "a"},
		{Type: UnitAsset, FileName: "logo-d015cc3f.png", Source: "b"},
	}
	s := newTestSession(t, nil, 1, "")
	assert.ErrorIs(t, s.GenerateBundle("es", units), ErrDuplicateOutput)
}

func TestSession_NoCatalog(t *testing.T) {
	_, err := NewSession(Options{})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSession_Emit(t *testing.T) {
	s := newTestSession(t, defaultInputs(), 1, SHA256)
	require.NoError(t, s.ProcessReport(&Report{Format: "es", Units: modernUnits()}))

	path := filepath.Join(t.TempDir(), "public", "build", ManifestFileName)
	written, err := s.Emit(path)
	require.NoError(t, err)

	read, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, written.EntryPoints["pageImports"].Preload, read.EntryPoints["pageImports"].Preload)
	assert.Equal(t, written.Metadatas, read.Metadatas)
	assert.Equal(t, written.Version, read.Version)
	assert.Nil(t, read.ViteServer)

	// the document shape is stable for the PHP side
	raw, err := written.Encode()
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.JSONEq(t, `["6.5.0", 6, 5, 0]`, string(doc["version"]))
	assert.JSONEq(t, `null`, string(doc["viteServer"]))
	assert.JSONEq(t, `false`, string(doc["legacy"]))
}
