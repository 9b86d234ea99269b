package config

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/perspective.grid/internal/monitoring"
	"github.com/banshee-data/perspective.grid/internal/timeutil"
)

// Store holds the current configuration. Readers take a snapshot once
// per cycle and must treat it as immutable; Reload swaps in a new one.
type Store struct {
	path    string
	current atomic.Pointer[VisionConfig]
	modTime atomic.Int64 // unix nanos of the loaded file
}

// NewStore returns a store serving cfg. path may be empty for a store
// that never reloads.
func NewStore(path string, cfg *VisionConfig) *Store {
	if cfg == nil {
		cfg = EmptyVisionConfig()
	}
	s := &Store{path: path}
	s.current.Store(cfg)
	return s
}

// OpenStore loads path and returns a store serving it.
func OpenStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns the current configuration.
func (s *Store) Snapshot() *VisionConfig {
	return s.current.Load()
}

// Path returns the backing file, if any.
func (s *Store) Path() string {
	return s.path
}

// Reload reads the backing file again. On error the previous snapshot
// stays in place.
func (s *Store) Reload() error {
	if s.path == "" {
		return fmt.Errorf("config store has no backing file")
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	cfg, err := LoadVisionConfig(s.path)
	if err != nil {
		return err
	}
	s.current.Store(cfg)
	s.modTime.Store(info.ModTime().UnixNano())
	return nil
}

// changed reports whether the backing file is newer than the last one
// seen, along with its modification time.
func (s *Store) changed() (int64, bool) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, false
	}
	mod := info.ModTime().UnixNano()
	return mod, mod > s.modTime.Load()
}

// Watcher polls a Store's backing file and reloads it when its
// modification time moves forward.
type Watcher struct {
	store    *Store
	clock    timeutil.Clock
	interval time.Duration
	onReload func(*VisionConfig)

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

// NewWatcher returns a watcher for store. onReload, if non-nil, is called
// from the watcher goroutine after every successful reload.
func NewWatcher(store *Store, clock timeutil.Clock, interval time.Duration, onReload func(*VisionConfig)) *Watcher {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Watcher{store: store, clock: clock, interval: interval, onReload: onReload}
}

// Start begins polling in a background goroutine. Starting a running
// watcher is a no-op.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		return
	}
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	ticker := w.clock.NewTicker(w.interval)
	go w.loop(ticker, w.stopCh, w.done)
}

// Stop halts polling and waits for the goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	stopCh, done := w.stopCh, w.done
	w.stopCh, w.done = nil, nil
	w.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
}

func (w *Watcher) loop(ticker timeutil.Ticker, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C():
			w.poll()
		}
	}
}

// poll reloads the store if its file changed.
func (w *Watcher) poll() {
	mod, changed := w.store.changed()
	if !changed {
		return
	}
	if err := w.store.Reload(); err != nil {
		// Skip this revision of the file until it is written again.
		w.store.modTime.Store(mod)
		monitoring.Opsf("config reload of %s failed, keeping previous: %v", w.store.Path(), err)
		return
	}
	monitoring.Diagf("config reloaded from %s", w.store.Path())
	if w.onReload != nil {
		w.onReload(w.store.Snapshot())
	}
}
