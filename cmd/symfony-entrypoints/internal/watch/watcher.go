package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Config.Debounce is not positive.
const DefaultDebounce = 300 * time.Millisecond

// ErrWatchLimitReached is returned when the OS watch limit is exceeded.
var ErrWatchLimitReached = errors.New("filesystem watch limit reached")

// Result describes one rebuild.
type Result struct {
	Manifest string
	Entries  int
	Skipped  bool

	// Files, when non-nil, replaces the tracked files. Builds that reload
	// their configuration report the inputs they actually read.
	Files []string
}

// BuildFunc rebuilds the manifest.
type BuildFunc func(ctx context.Context) (Result, error)

// Config configures the watcher.
type Config struct {
	Root     string
	Files    []string // tracked files; relative paths are resolved against Root
	Debounce time.Duration
	Build    BuildFunc
	Logger   LoggerConfig

	// BuildOnStart runs a build before waiting for changes.
	BuildOnStart bool
}

// Watcher rebuilds the manifest whenever a tracked file changes.
// Parent directories are watched rather than the files themselves since
// bundlers replace reports instead of writing them in place.
type Watcher struct {
	config    Config
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	logger    *Logger

	filesMu sync.RWMutex
	files   map[string]struct{}

	buildMu sync.Mutex
	ctx     context.Context
}

// New creates a watcher.
func New(cfg Config) (*Watcher, error) {
	if cfg.Build == nil {
		return nil, fmt.Errorf("watch: no build function")
	}
	if len(cfg.Files) == 0 {
		return nil, fmt.Errorf("watch: no files to watch")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		config:    cfg,
		fsWatcher: fsWatcher,
		logger:    NewLogger(cfg.Logger),
		files:     fileSet(cfg.Root, cfg.Files),
	}, nil
}

// fileSet resolves files against root.
func fileSet(root string, files []string) map[string]struct{} {
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(root, f)
		}
		set[filepath.Clean(f)] = struct{}{}
	}
	return set
}

// Files returns the tracked files, sorted.
func (w *Watcher) Files() []string {
	w.filesMu.RLock()
	defer w.filesMu.RUnlock()
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

func (w *Watcher) tracks(path string) bool {
	w.filesMu.RLock()
	defer w.filesMu.RUnlock()
	_, ok := w.files[path]
	return ok
}

// setFiles replaces the tracked files and returns the ones not tracked
// before, sorted.
func (w *Watcher) setFiles(files []string) []string {
	next := fileSet(w.config.Root, files)

	w.filesMu.Lock()
	var added []string
	for f := range next {
		if _, ok := w.files[f]; !ok {
			added = append(added, f)
		}
	}
	w.files = next
	w.filesMu.Unlock()

	slices.Sort(added)
	return added
}

// Run starts the watch loop. It blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.ctx = ctx

	window := w.config.Debounce
	if window <= 0 {
		window = DefaultDebounce
	}
	w.debouncer = NewDebouncer(window, w.rebuild)
	defer w.debouncer.Stop()

	if err := w.watchDirs(); err != nil {
		return err
	}
	w.logger.Ready(w.Files(), w.config.Root)

	if w.config.BuildOnStart {
		w.rebuild(nil)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown()
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(err)
		}
	}
}

// watchDirs watches the nearest existing ancestor of every tracked file.
// Adding an already watched directory is a no-op.
func (w *Watcher) watchDirs() error {
	for _, f := range w.Files() {
		dir := existingAncestor(filepath.Dir(f))
		if err := w.fsWatcher.Add(dir); err != nil {
			if isWatchLimitError(err) {
				return fmt.Errorf("%w for %s: %v\n"+
					"Increase limit with: sudo sysctl fs.inotify.max_user_watches=524288", ErrWatchLimitReached, dir, err)
			}
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return nil
}

func existingAncestor(dir string) string {
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func isWatchLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no space left on device") ||
		strings.Contains(msg, "too many open files")
}

// handleEvent filters events down to tracked files.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	// a directory leading to a tracked file appeared
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.watchDirs(); err != nil {
				w.logger.Error(err)
			}
			w.addExisting(path)
			return
		}
	}

	if !w.tracks(path) {
		return
	}

	change, ok := changeOf(event)
	if !ok {
		return
	}
	w.logger.FileChanged(w.display(path), change)
	w.debouncer.Add(w.display(path))
}

// addExisting queues tracked files already present under a new directory.
// They may have been written before the directory was watched.
func (w *Watcher) addExisting(dir string) {
	for _, f := range w.Files() {
		if !strings.HasPrefix(f, dir+string(filepath.Separator)) {
			continue
		}
		if _, err := os.Stat(f); err == nil {
			w.logger.FileChanged(w.display(f), ChangeAdded)
			w.debouncer.Add(w.display(f))
		}
	}
}

func changeOf(event fsnotify.Event) (ChangeType, bool) {
	switch {
	case event.Has(fsnotify.Create):
		return ChangeAdded, true
	case event.Has(fsnotify.Write):
		return ChangeModified, true
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		return ChangeDeleted, true
	}
	return "", false
}

func (w *Watcher) display(path string) string {
	if rel, err := filepath.Rel(w.config.Root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// rebuild runs when the debouncer flushes. Builds never overlap.
func (w *Watcher) rebuild(paths []string) {
	w.buildMu.Lock()
	defer w.buildMu.Unlock()

	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	if len(paths) > 0 {
		slices.Sort(paths)
		w.logger.Rebuilding(paths)
	}

	res, err := w.config.Build(ctx)
	if err != nil {
		w.logger.Error(err)
	} else {
		w.logger.Built(res)
	}

	// a failed build may still name files it needs, such as a report
	// that does not exist yet
	if res.Files == nil {
		return
	}
	if added := w.setFiles(res.Files); len(added) > 0 {
		if err := w.watchDirs(); err != nil {
			w.logger.Error(err)
		}
		shown := make([]string, len(added))
		for i, f := range added {
			shown[i] = w.display(f)
		}
		w.logger.Tracking(shown)
	}
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}
