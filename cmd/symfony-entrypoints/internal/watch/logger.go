package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// ChangeType is the kind of change observed on a tracked file.
type ChangeType string

const (
	ChangeAdded    ChangeType = "+"
	ChangeModified ChangeType = "~"
	ChangeDeleted  ChangeType = "-"
)

const prefix = "symfony-entrypoints"

// Logger formats watch mode output as text or JSON lines.
type Logger struct {
	writer  io.Writer
	isTTY   bool
	verbose bool
	noColor bool
	jsonOut bool

	statsMu sync.Mutex
	stats   Stats
}

// Stats summarizes a watch session.
type Stats struct {
	BuildCount int
	ErrorCount int
	StartTime  time.Time
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
	JSON    bool
}

// NewLogger creates a logger. Colors are only used on terminals.
func NewLogger(cfg LoggerConfig) *Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	isTTY := false
	if f, ok := writer.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}

	return &Logger{
		writer:  writer,
		isTTY:   isTTY,
		verbose: cfg.Verbose,
		noColor: cfg.NoColor,
		jsonOut: cfg.JSON,
		stats:   Stats{StartTime: time.Now()},
	}
}

// Ready logs the tracked files once watching started.
func (l *Logger) Ready(files []string, root string) {
	if l.jsonOut {
		l.writeJSON(map[string]any{"event": "ready", "files": files, "root": root})
		return
	}

	l.printf("%s: watching %d files in %s\n", prefix, len(files), root)
	if l.verbose {
		for _, f := range files {
			l.printf("  %s\n", f)
		}
	}
	l.printf("%s: ready\n\n", prefix)
}

// FileChanged logs a change of a tracked file in verbose mode.
func (l *Logger) FileChanged(path string, change ChangeType) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":  "file_changed",
			"path":   path,
			"change": string(change),
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	if l.verbose {
		l.printf("[%s] %s %s\n", l.timestamp(), l.colorize(string(change), change), path)
	}
}

// Rebuilding logs that a rebuild starts for the changed paths.
func (l *Logger) Rebuilding(paths []string) {
	if l.jsonOut {
		l.writeJSON(map[string]any{"event": "rebuilding", "paths": paths, "time": time.Now().Format(time.RFC3339)})
		return
	}
	if len(paths) == 1 {
		l.printf("[%s] %s changed, rebuilding...\n", l.timestamp(), paths[0])
	} else {
		l.printf("[%s] %d files changed, rebuilding...\n", l.timestamp(), len(paths))
	}
}

// Built logs a successful rebuild.
func (l *Logger) Built(r Result) {
	l.statsMu.Lock()
	l.stats.BuildCount++
	l.statsMu.Unlock()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":    "built",
			"manifest": r.Manifest,
			"entries":  r.Entries,
			"skipped":  r.Skipped,
			"time":     time.Now().Format(time.RFC3339),
		})
		return
	}

	if r.Skipped {
		l.printf("[%s] %s unchanged\n", l.timestamp(), r.Manifest)
		return
	}
	check := l.colorize("✓", ChangeAdded)
	l.printf("[%s] %s %s written (%d entries)\n", l.timestamp(), check, r.Manifest, r.Entries)
}

// Tracking logs files that started being watched after a rebuild.
func (l *Logger) Tracking(files []string) {
	if l.jsonOut {
		l.writeJSON(map[string]any{"event": "tracking", "files": files, "time": time.Now().Format(time.RFC3339)})
		return
	}
	for _, f := range files {
		l.printf("[%s] %s now watching %s\n", l.timestamp(), l.colorize(string(ChangeAdded), ChangeAdded), f)
	}
}

// Error logs a failed rebuild or watcher error.
func (l *Logger) Error(err error) {
	l.statsMu.Lock()
	l.stats.ErrorCount++
	l.statsMu.Unlock()

	if l.jsonOut {
		l.writeJSON(map[string]any{"event": "error", "error": err.Error(), "time": time.Now().Format(time.RFC3339)})
		return
	}

	xmark := l.colorize("✗", ChangeDeleted)
	l.printf("[%s] %s error: %v\n", l.timestamp(), xmark, err)
}

// Shutdown logs session statistics.
func (l *Logger) Shutdown() {
	stats := l.Stats()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":    "shutdown",
			"builds":   stats.BuildCount,
			"errors":   stats.ErrorCount,
			"duration": time.Since(stats.StartTime).String(),
		})
		return
	}

	l.printf("\n%s: shutting down (%d builds, %d errors)\n", prefix, stats.BuildCount, stats.ErrorCount)
}

// Stats returns the current statistics.
func (l *Logger) Stats() Stats {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return l.stats
}

func (l *Logger) timestamp() string {
	return time.Now().Format("15:04:05")
}

func (l *Logger) colorize(s string, change ChangeType) string {
	if l.noColor || !l.isTTY {
		return s
	}

	var color string
	switch change {
	case ChangeAdded:
		color = "\033[32m"
	case ChangeModified:
		color = "\033[33m"
	case ChangeDeleted:
		color = "\033[31m"
	default:
		return s
	}
	return color + s + "\033[0m"
}

func (l *Logger) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		l.printf("%s\n", `{"event":"internal_error","error":"json marshal failed"}`)
		return
	}
	l.printf("%s\n", data)
}

// printf ignores write errors; output is informational.
func (l *Logger) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(l.writer, format, args...)
}
