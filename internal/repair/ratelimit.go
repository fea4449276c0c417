package repair

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// limiterWindow is one named counter: at most Max events inside a
// sliding window of Window.
type limiterWindow struct {
	Max    int           `json:"max"`
	Window time.Duration `json:"window"`
	Events []time.Time   `json:"events"`
}

// Limiter holds named sliding-window counters. Attempts beyond a
// window's maximum are rejected, never queued. Windows are persisted
// so limits survive process restart.
type Limiter struct {
	mu        sync.RWMutex
	windows   map[string]*limiterWindow
	statePath string

	// now is replaceable in tests
	now func() time.Time
}

// NewLimiter creates a limiter, loading any persisted window state
// from statePath (empty = no persistence).
func NewLimiter(statePath string) *Limiter {
	l := &Limiter{
		windows:   make(map[string]*limiterWindow),
		statePath: statePath,
		now:       time.Now,
	}

	if statePath != "" {
		if err := l.loadState(); err != nil {
			fmt.Printf("Warning: failed to load rate limiter state from %s: %v (starting fresh)\n", statePath, err)
		}
	}

	return l
}

// Configure registers a named counter. Persisted events for the name
// are kept; max and window follow the new configuration.
func (l *Limiter) Configure(name string, max int, window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok := l.windows[name]; ok {
		w.Max = max
		w.Window = window
		return
	}
	l.windows[name] = &limiterWindow{Max: max, Window: window}
}

// Allow records one event against the named counter if the window has
// room. Returns false, leaving the counter untouched, when the window
// is full or the name is unknown.
func (l *Limiter) Allow(name string) bool {
	return l.AllowAll(name)
}

// AllowAll records one event against every named counter, but only
// when all of them have room. A rejection leaves every counter
// untouched, so a workflow refused by one limit never burns headroom
// on another.
func (l *Limiter) AllowAll(names ...string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for _, name := range names {
		w, ok := l.windows[name]
		if !ok {
			return false
		}
		l.pruneLocked(w, now)
		if len(w.Events) >= w.Max {
			return false
		}
	}

	for _, name := range names {
		w := l.windows[name]
		w.Events = append(w.Events, now)
	}

	if err := l.persistStateLocked(); err != nil {
		fmt.Printf("Warning: failed to persist rate limiter state: %v\n", err)
	}

	return true
}

// Count returns the number of events currently inside the named
// window. Safe to call concurrently with Allow.
func (l *Limiter) Count(name string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	w, ok := l.windows[name]
	if !ok {
		return 0
	}

	cutoff := l.now().Add(-w.Window)
	n := 0
	for _, ev := range w.Events {
		if ev.After(cutoff) {
			n++
		}
	}
	return n
}

// Remaining returns how many events the named window can still accept.
func (l *Limiter) Remaining(name string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	w, ok := l.windows[name]
	if !ok {
		return 0
	}

	cutoff := l.now().Add(-w.Window)
	n := 0
	for _, ev := range w.Events {
		if ev.After(cutoff) {
			n++
		}
	}
	if n >= w.Max {
		return 0
	}
	return w.Max - n
}

// pruneLocked drops events that have aged out of the window
// MUST be called with mu lock held
func (l *Limiter) pruneLocked(w *limiterWindow, now time.Time) {
	cutoff := now.Add(-w.Window)
	kept := w.Events[:0]
	for _, ev := range w.Events {
		if ev.After(cutoff) {
			kept = append(kept, ev)
		}
	}
	w.Events = kept
}

// persistStateLocked saves all windows to disk
// MUST be called with mu lock held
func (l *Limiter) persistStateLocked() error {
	if l.statePath == "" {
		return nil // Persistence disabled
	}

	data, err := json.MarshalIndent(l.windows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.statePath), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmpPath := l.statePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	if err := os.Rename(tmpPath, l.statePath); err != nil {
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	return nil
}

// loadState loads persisted windows from disk
func (l *Limiter) loadState() error {
	data, err := os.ReadFile(l.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No state file yet, start fresh
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var windows map[string]*limiterWindow
	if err := json.Unmarshal(data, &windows); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}

	l.windows = windows
	if l.windows == nil {
		l.windows = make(map[string]*limiterWindow)
	}
	return nil
}
