package entrypoints

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhapaipai/vite-plugin-symfony/internal/log"
)

func storeOf(t *testing.T, descs ...FileDescriptor) *FileStore {
	t.Helper()
	s := NewFileStore()
	for _, d := range descs {
		require.NoError(t, s.Record(1, d))
	}
	return s
}

func TestResolve_Graph(t *testing.T) {
	store := storeOf(t,
		&JSFile{
			OutputPath: "app.js", SourcePath: "assets/app.js",
			StaticImports: []string{"a.js", "b.js"}, DynamicImports: []string{"lazy.js"},
			DirectJS: []string{"app.js"}, DirectCSS: []string{"app.css"},
		},
		&JSFile{OutputPath: "a.js", StaticImports: []string{"c.js"}, DirectJS: []string{"a.js"}, DirectCSS: []string{"a.css"}},
		&JSFile{OutputPath: "b.js", DirectJS: []string{"b.js"}, DynamicImports: []string{"lazy-b.js"}},
		&JSFile{OutputPath: "c.js", DirectJS: []string{"c.js"}, DirectCSS: []string{"app.css"}},
		&CSSFile{OutputPath: "app.css", DirectCSS: []string{"app.css"}},
	)
	r := &Resolver{Base: "/build/", Store: store}

	root, _ := store.Get("app.js")
	got, err := r.Resolve(root, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"/build/app.js"}, got.JS)
	assert.Equal(t, []string{"/build/a.js", "/build/c.js", "/build/b.js"}, got.Preload)
	// app.css reached twice is listed once
	assert.Equal(t, []string{"/build/app.css", "/build/a.css"}, got.CSS)
	assert.Equal(t, []string{"/build/lazy-b.js", "/build/lazy.js"}, got.Dynamic)
}

func TestResolve_Cycle(t *testing.T) {
	store := storeOf(t,
		&JSFile{OutputPath: "x.js", StaticImports: []string{"y.js"}, DirectJS: []string{"x.js"}},
		&JSFile{OutputPath: "y.js", StaticImports: []string{"x.js"}, DirectJS: []string{"y.js"}},
	)
	r := &Resolver{Base: "/", Store: store}

	root, _ := store.Get("x.js")
	got, err := r.Resolve(root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/x.js"}, got.JS)
	assert.Equal(t, []string{"/y.js"}, got.Preload)
}

func TestResolve_TracesEdges(t *testing.T) {
	var buf bytes.Buffer
	log.InitWriter(log.VerbosityTrace, "text", &buf)
	t.Cleanup(func() { log.Init(log.VerbosityWarn, "text") })

	store := storeOf(t,
		&JSFile{OutputPath: "x.js", StaticImports: []string{"y.js"}, DirectJS: []string{"x.js"}},
		&JSFile{OutputPath: "y.js", StaticImports: []string{"x.js"}, DirectJS: []string{"y.js"}},
	)
	root, _ := store.Get("x.js")
	_, err := (&Resolver{Base: "/", Store: store}).Resolve(root, nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "level=TRACE")
	assert.Contains(t, out, `msg="following static import" importer=x.js import=y.js`)
	assert.Contains(t, out, `msg="static import already visited" importer=y.js import=x.js`)
}

func TestResolve_SelfImport(t *testing.T) {
	store := storeOf(t, &JSFile{OutputPath: "x.js", StaticImports: []string{"x.js"}, DirectJS: []string{"x.js"}})
	root, _ := store.Get("x.js")

	got, err := (&Resolver{Store: store}).Resolve(root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x.js"}, got.JS)
	assert.Empty(t, got.Preload)
}

func TestResolve_NonScriptRoots(t *testing.T) {
	r := &Resolver{Base: "/b/", Store: NewFileStore()}

	got, err := r.Resolve(&CSSFile{OutputPath: "t.css", DirectCSS: []string{"t.css"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, Resolved{JS: []string{}, CSS: []string{"/b/t.css"}, Preload: []string{}, Dynamic: []string{}}, got)

	got, err = r.Resolve(&AssetFile{OutputPath: "logo.png"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Resolved{JS: []string{}, CSS: []string{}, Preload: []string{}, Dynamic: []string{}}, got)
}

func TestResolve_MissingImport(t *testing.T) {
	store := storeOf(t, &JSFile{OutputPath: "app.js", SourcePath: "assets/app.js", StaticImports: []string{"react"}})
	root, _ := store.Get("app.js")

	_, err := (&Resolver{Store: store}).Resolve(root, nil)
	assert.ErrorIs(t, err, ErrImportResolution)
	assert.EqualError(t, err, "import resolution error: unable to find react imported by app.js")

	var gotID, gotImporter string
	external := func(id, importer string) bool {
		gotID, gotImporter = id, importer
		return true
	}
	_, err = (&Resolver{Store: store, External: external}).Resolve(root, nil)
	require.NoError(t, err)
	assert.Equal(t, "react", gotID)
	assert.Equal(t, "assets/app.js", gotImporter)
}

func TestFileStore_Record(t *testing.T) {
	s := NewFileStore()
	require.NoError(t, s.Record(1, &AssetFile{OutputPath: "logo.png", Hash: "one"}))
	assert.ErrorIs(t, s.Record(1, &AssetFile{OutputPath: "logo.png"}), ErrDuplicateOutput)

	// a later pass may replace the descriptor
	require.NoError(t, s.Record(2, &AssetFile{OutputPath: "logo.png", Hash: "two"}))
	d, ok := s.Get("logo.png")
	require.True(t, ok)
	assert.Equal(t, "two", d.Integrity())

	require.NoError(t, s.Record(2, &CSSFile{OutputPath: "a.css"}))
	var outs []string
	s.Each(func(d FileDescriptor) { outs = append(outs, d.Output()) })
	assert.Equal(t, []string{"a.css", "logo.png"}, outs)

	s.Reset()
	assert.Equal(t, 0, s.Len())
}

func TestDescribeUnit(t *testing.T) {
	d, err := DescribeUnit(&OutputUnit{
		Type: UnitChunk, FileName: "app.js",
		Imports: []string{"dep.js"}, DynamicImports: []string{"lazy.js"},
		ImportedCSS: []string{"app.css"}, ImportedAssets: []string{"logo.png"},
	}, "assets/app.js", "")
	require.NoError(t, err)
	assert.Equal(t, &JSFile{
		OutputPath: "app.js", SourcePath: "assets/app.js",
		StaticImports: []string{"dep.js"}, DynamicImports: []string{"lazy.js"},
		DirectJS: []string{"app.js"}, DirectCSS: []string{"app.css"}, DirectAssets: []string{"logo.png"},
	}, d)

	d, err = DescribeUnit(&OutputUnit{Type: UnitAsset, FileName: "app.css", Source: "a{}"}, "_app.css", SHA256)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.css"}, d.(*CSSFile).DirectCSS)
	assert.NotEmpty(t, d.Integrity())

	d, err = DescribeUnit(&OutputUnit{Type: UnitAsset, FileName: "font.woff2"}, "_font.woff2", "")
	require.NoError(t, err)
	assert.IsType(t, &AssetFile{}, d)

	_, err = DescribeUnit(&OutputUnit{Type: "module", FileName: "x"}, "x", "")
	assert.Error(t, err)
}
