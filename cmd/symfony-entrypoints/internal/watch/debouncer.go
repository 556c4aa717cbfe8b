// Package watch rebuilds the entrypoints manifest when bundle reports or
// the project config change on disk.
package watch

import (
	"sync"
	"time"
)

// MaxPending bounds the number of pending paths; reaching it flushes
// immediately.
const MaxPending = 1000

// Debouncer coalesces bursts of change events into one batch. Bundlers
// write several reports per build, so a rebuild waits until the window
// passes without new events.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	window  time.Duration
	onFlush func(paths []string)
	stopped bool
}

// NewDebouncer creates a debouncer calling onFlush with the changed paths
// once window elapsed without new events.
func NewDebouncer(window time.Duration, onFlush func(paths []string)) *Debouncer {
	return &Debouncer{
		pending: make(map[string]struct{}),
		window:  window,
		onFlush: onFlush,
	}
}

// Add records a change of path and restarts the window.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[path] = struct{}{}

	if len(d.pending) >= MaxPending {
		d.stopTimerLocked()
		d.flushLocked()
		return
	}

	// A timer that already fired may still run flush; it finds nothing
	// pending or flushes this path early, both of which are fine.
	d.stopTimerLocked()
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushLocked()
}

// flushLocked hands the pending paths to onFlush. The lock is released
// while onFlush runs. Caller must hold d.mu.
func (d *Debouncer) flushLocked() {
	if d.stopped {
		return
	}
	paths := d.takeLocked()
	if len(paths) == 0 {
		return
	}

	d.mu.Unlock()
	if d.onFlush != nil {
		d.onFlush(paths)
	}
	d.mu.Lock()
}

// FlushNow flushes pending paths without waiting for the window.
func (d *Debouncer) FlushNow() {
	d.mu.Lock()
	d.stopTimerLocked()
	var paths []string
	if !d.stopped {
		paths = d.takeLocked()
	}
	d.mu.Unlock()

	if len(paths) > 0 && d.onFlush != nil {
		d.onFlush(paths)
	}
}

// Stop stops the debouncer after flushing pending paths.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.stopTimerLocked()
	paths := d.takeLocked()
	d.mu.Unlock()

	if len(paths) > 0 && d.onFlush != nil {
		d.onFlush(paths)
	}
}

// PendingCount returns the number of paths waiting to be flushed.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debouncer) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) takeLocked() []string {
	if len(d.pending) == 0 {
		return nil
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	return paths
}
