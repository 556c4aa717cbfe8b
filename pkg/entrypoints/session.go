package entrypoints

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/lhapaipai/vite-plugin-symfony/internal/log"
)

// Names of the polyfill entries added to the manifest.
const (
	PolyfillsEntry       = "polyfills"
	LegacyPolyfillsEntry = "polyfills-legacy"
)

// Phase is the emission state of a Session.
type Phase int

const (
	// PhaseAwaiting waits for more compilation passes.
	PhaseAwaiting Phase = iota
	// PhaseReady has every expected pass and may emit the manifest.
	PhaseReady
	// PhaseEmitted has produced its manifest.
	PhaseEmitted
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaiting:
		return "awaiting"
	case PhaseReady:
		return "ready"
	case PhaseEmitted:
		return "emitted"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Options configures a build session.
type Options struct {
	Catalog *Catalog

	// Base is the public URL prefix of emitted files, e.g. "/build/".
	Base string

	// Outputs is the number of configured output targets: 1 for a modern
	// build, 2 when a legacy target is built as well.
	Outputs int

	SRI      HashAlgorithm
	External ExternalFunc
	Version  Version
	Logger   *slog.Logger
}

// Session accumulates the passes of one build invocation and emits the
// manifest once all of them completed. It is not safe for concurrent use;
// the bundler drives it from a single sequential callback stream.
type Session struct {
	opts    Options
	logger  *slog.Logger
	paths   *PathMap
	files   *FileStore
	entries EntryPoints

	expected  int
	completed int
	phase     Phase
	legacy    bool
	err       error
}

// NewSession starts a build session.
func NewSession(opts Options) (*Session, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("%w: no entrypoint catalog", ErrConfiguration)
	}
	expected := opts.Outputs
	if expected < 1 {
		expected = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Component("session")
	}
	return &Session{
		opts:     opts,
		logger:   logger,
		paths:    NewPathMap(),
		files:    NewFileStore(),
		entries:  make(EntryPoints),
		expected: expected,
	}, nil
}

// Phase returns the current state.
func (s *Session) Phase() Phase { return s.phase }

// Progress returns completed and expected pass counts.
func (s *Session) Progress() (completed, expected int) { return s.completed, s.expected }

// Paths exposes the session's path mapping table.
func (s *Session) Paths() *PathMap { return s.paths }

// Files exposes the session's descriptor store.
func (s *Session) Files() *FileStore { return s.files }

// RenderChunk observes a chunk before the bundle is generated. Stylesheet
// entries only reveal their source-to-output mapping at this point.
func (s *Session) RenderChunk(u *OutputUnit) {
	if !u.IsCSSEntry() {
		return
	}
	src := u.Name
	if u.FacadeModuleID != "" {
		src = s.relToRoot(u.FacadeModuleID)
	}
	s.paths.Record(src, u.ImportedCSS[0])
	s.logger.Debug("stylesheet entry rendered", "source", src, "output", u.ImportedCSS[0])
}

// ProcessReport feeds a whole pass report: every chunk is rendered first,
// then the non-pruned units are generated.
func (s *Session) ProcessReport(r *Report) error {
	units := make([]*OutputUnit, 0, len(r.Units))
	for _, u := range r.Units {
		s.RenderChunk(u)
		if !u.Rendered {
			units = append(units, u)
		}
	}
	return s.GenerateBundle(r.Format, units)
}

// GenerateBundle records the units of one completed pass and resolves the
// declared entrypoints against it.
func (s *Session) GenerateBundle(format string, units []*OutputUnit) error {
	if s.err != nil {
		return fmt.Errorf("%w: %v", ErrAborted, s.err)
	}
	if s.phase != PhaseAwaiting {
		return fmt.Errorf("%w: %d configured", ErrPassOverflow, s.expected)
	}

	pass := s.completed + 1
	legacy := format == FormatSystem
	for _, u := range units {
		src := s.sourcePathOf(u, legacy)
		s.paths.Record(src, u.FileName)

		d, err := DescribeUnit(u, src, s.opts.SRI)
		if err != nil {
			return s.abort(err)
		}
		if err := s.files.Record(pass, d); err != nil {
			return s.abort(err)
		}
		s.logger.Log(context.Background(), log.LevelTrace, "unit recorded",
			"pass", pass, "source", src, "output", u.FileName)
	}

	if err := s.resolvePass(legacy); err != nil {
		return s.abort(err)
	}

	s.completed++
	s.logger.Debug("pass completed", "pass", pass, "format", format, "units", len(units),
		"completed", s.completed, "expected", s.expected)

	if s.completed == s.expected {
		if err := s.reconcile(); err != nil {
			return s.abort(err)
		}
		s.phase = PhaseReady
	}
	return nil
}

func (s *Session) abort(err error) error {
	s.err = err
	return err
}

// sourcePathOf derives the source-relative key under which a unit is
// mapped.
func (s *Session) sourcePathOf(u *OutputUnit, legacy bool) string {
	if u.Type == UnitAsset || u.FacadeModuleID == "" {
		if src, ok := s.paths.ReverseLookup(u.FileName); ok {
			return src
		}
		return "_" + u.FileName
	}

	// modern and legacy polyfill chunks share one facade id
	if u.FacadeModuleID == polyfillID {
		if legacy && strings.Contains(u.FileName, "-legacy") {
			return LegacyPolyfillsKey
		}
		return PolyfillsKey
	}

	src := s.relToRoot(u.FacadeModuleID)
	if legacy && !strings.Contains(u.Name, "-legacy") {
		src = LegacyName(src)
	}
	return strings.ReplaceAll(src, "\x00", "")
}

func (s *Session) relToRoot(id string) string {
	if filepath.IsAbs(id) {
		if rel, err := filepath.Rel(s.opts.Catalog.Root(), id); err == nil {
			return path.Clean(filepath.ToSlash(rel))
		}
	}
	return path.Clean(filepath.ToSlash(id))
}

func (s *Session) resolvePass(legacy bool) error {
	resolver := &Resolver{Base: s.opts.Base, Store: s.files, External: s.opts.External}

	for _, e := range s.opts.Catalog.Entries() {
		if legacy {
			d, ok := s.lookup(LegacyName(e.RelPath))
			if !ok {
				// stylesheet entries have no legacy twin
				s.logger.Debug("no legacy variant", "entry", e.Name)
				continue
			}
			m, err := s.resolveEntry(resolver, d)
			if err != nil {
				return fmt.Errorf("entrypoint %q (legacy): %w", e.Name, err)
			}
			s.entries[e.Name+"-legacy"] = m
			s.legacy = true
			continue
		}

		out, ok := s.paths.Lookup(e.RelPath)
		if !ok {
			return fmt.Errorf("%w: unable to get output path of entrypoint %q (%s)", ErrResolution, e.Name, e.RelPath)
		}
		d, ok := s.files.Get(out)
		if !ok {
			return fmt.Errorf("%w: entrypoint %q maps to %s which was not generated", ErrResolution, e.Name, out)
		}
		m, err := s.resolveEntry(resolver, d)
		if err != nil {
			return fmt.Errorf("entrypoint %q: %w", e.Name, err)
		}
		s.entries[e.Name] = m
	}

	key, name := PolyfillsKey, PolyfillsEntry
	if legacy {
		key, name = LegacyPolyfillsKey, LegacyPolyfillsEntry
	}
	if d, ok := s.lookup(key); ok {
		m, err := s.resolveEntry(resolver, d)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		s.entries[name] = m
	}
	return nil
}

func (s *Session) lookup(src string) (FileDescriptor, bool) {
	out, ok := s.paths.Lookup(src)
	if !ok {
		return nil, false
	}
	return s.files.Get(out)
}

func (s *Session) resolveEntry(r *Resolver, d FileDescriptor) (*EntryManifest, error) {
	res, err := r.Resolve(d, nil)
	if err != nil {
		return nil, err
	}
	return newEntryManifest(res), nil
}

// reconcile wires legacy cross references once every pass completed.
func (s *Session) reconcile() error {
	hasTwin := false
	for _, e := range s.opts.Catalog.Entries() {
		m, ok := s.entries[e.Name]
		if !ok {
			return fmt.Errorf("%w: entrypoint %q was not produced by any modern pass", ErrResolution, e.Name)
		}
		twin := e.Name + "-legacy"
		if _, ok := s.entries[twin]; ok {
			m.Legacy = LegacyRef(twin)
			hasTwin = true
		}
	}
	if !hasTwin {
		delete(s.entries, LegacyPolyfillsEntry)
	}
	s.legacy = hasTwin
	return nil
}

// Metadatas returns integrity metadata keyed by public path for every
// hashed output.
func (s *Session) Metadatas() map[string]Metadata {
	out := make(map[string]Metadata)
	s.files.Each(func(d FileDescriptor) {
		if h := d.Integrity(); h != "" {
			out[s.opts.Base+d.Output()] = Metadata{Hash: &h}
		}
	})
	return out
}

// Manifest returns the build manifest. It fails until every expected pass
// completed and may be called once.
func (s *Session) Manifest() (*Manifest, error) {
	if s.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAborted, s.err)
	}
	switch s.phase {
	case PhaseAwaiting:
		return nil, fmt.Errorf("%w: %d of %d passes completed", ErrNotReady, s.completed, s.expected)
	case PhaseEmitted:
		return nil, ErrAlreadyEmitted
	}

	m := &Manifest{
		Base:        s.opts.Base,
		EntryPoints: s.entries,
		Legacy:      s.legacy,
		Metadatas:   s.Metadatas(),
		Version:     s.opts.Version,
	}
	s.phase = PhaseEmitted
	return m, nil
}

// Emit writes the manifest to path.
func (s *Session) Emit(path string) (*Manifest, error) {
	m, err := s.Manifest()
	if err != nil {
		return nil, err
	}
	if err := WriteManifest(path, m); err != nil {
		return nil, err
	}
	s.logger.Info("manifest written", "path", path, "entries", len(m.EntryPoints))
	return m, nil
}

// Close releases the session's tables. The session cannot be reused.
func (s *Session) Close() {
	s.paths.Reset()
	s.files.Reset()
	if s.err == nil {
		s.err = fmt.Errorf("session closed")
	}
}
