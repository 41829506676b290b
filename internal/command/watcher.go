package command

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher monitors a command definitions file and swaps the live registry
// when the file changes. It uses polling (not inotify) to keep dependencies
// minimal; definition files change rarely and a few seconds of latency is
// irrelevant.
type Watcher struct {
	path     string
	interval time.Duration
	registry *Registry
	log      *slog.Logger

	done     chan struct{}
	stopOnce sync.Once

	// last known file state for change detection
	mu        sync.Mutex
	lastMtime time.Time
	lastHash  [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher creates a definitions file watcher feeding registry. The
// registry must already hold the initial load; the watcher only applies
// subsequent changes. Polling starts immediately in a background goroutine.
func NewWatcher(path string, registry *Registry, opts ...WatcherOption) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("command: watcher path must not be empty")
	}
	if registry == nil {
		return nil, fmt.Errorf("command: watcher registry must not be nil")
	}

	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		registry: registry,
		log:      slog.With("component", "command-watcher"),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	// Seed change detection with the current file state so startup does not
	// trigger a spurious reload.
	if data, err := os.ReadFile(path); err == nil {
		w.lastHash = sha256.Sum256(data)
		if info, err := os.Stat(path); err == nil {
			w.lastMtime = info.ModTime()
		}
	}

	go w.poll()
	return w, nil
}

// Stop stops the file watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

// poll runs in a background goroutine, checking the file periodically.
func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check reloads the definitions if the file changed. A file that fails to
// load leaves the current registry in place.
func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.log.Warn("cannot stat definitions file", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	mtime := w.lastMtime
	w.mu.Unlock()

	if info.ModTime().Equal(mtime) {
		return
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		w.log.Warn("cannot read definitions file", "path", w.path, "error", err)
		return
	}
	hash := sha256.Sum256(data)

	w.mu.Lock()
	unchanged := hash == w.lastHash
	w.lastMtime = info.ModTime()
	if !unchanged {
		w.lastHash = hash
	}
	w.mu.Unlock()

	if unchanged {
		// File was touched but content is identical.
		return
	}

	fresh, err := LoadFile(w.path)
	if err != nil {
		w.log.Warn("definitions reload failed, keeping current set",
			"path", w.path, "error", err)
		return
	}

	w.registry.ReplaceAll(fresh)
	w.log.Info("command definitions reloaded", "path", w.path, "total", fresh.Len())
}
