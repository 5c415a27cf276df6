// Package watch implements the hot-reload loop's file watcher (component D
// in spec.md §2): a debounced, pattern-filtered view over filesystem change
// notifications, batching rapid-fire events (editors routinely emit several
// writes per save) into a single wait_for_change() wakeup.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config describes what to watch.
type Config struct {
	// Patterns are directory paths or globs, resolved against Cwd.
	Patterns []string
	Cwd      string
	// Debounce is the quiet period after the last event before a batch is
	// delivered. Spec.md §4.7 default is 300ms.
	Debounce time.Duration
	// Extensions overrides DefaultExtensions for plain directory patterns.
	Extensions []string
}

// Watcher watches the configured patterns and delivers debounced batches of
// changed paths. Safe for concurrent Start/Stop/WaitForChange calls from a
// single consumer goroutine; WaitForChange is not intended to be called
// concurrently with itself.
type Watcher struct {
	cfg      Config
	patterns []pattern

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}

	batches chan []string
}

// New resolves cfg's patterns and constructs a Watcher. It does not start
// watching until Start is called.
func New(cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	patterns, err := resolvePatterns(cfg.Patterns, cfg.Cwd, cfg.Extensions)
	if err != nil {
		return nil, fmt.Errorf("resolve watch patterns: %w", err)
	}
	return &Watcher{
		cfg:      cfg,
		patterns: patterns,
		batches:  make(chan []string, 1),
	}, nil
}

// Start begins watching. Idempotent: a second call is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	for _, p := range w.patterns {
		if err := addRecursive(fsw, p.root); err != nil {
			w.logNonFatal(err)
		}
	}

	go w.loop()
	return nil
}

// Stop ends watching and releases OS resources. Idempotent.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.started || w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	stopCh := w.stopCh
	w.mu.Unlock()

	close(stopCh)
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

// WaitForChange blocks until a debounced batch of changed paths is ready, or
// stopCh signals Stop was called, in which case it returns nil, false.
func (w *Watcher) WaitForChange() ([]string, bool) {
	select {
	case batch, ok := <-w.batches:
		if !ok {
			return nil, false
		}
		return batch, true
	case <-w.stoppedSignal():
		return nil, false
	}
}

func (w *Watcher) stoppedSignal() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopCh
}

func (w *Watcher) loop() {
	defer close(w.batches)

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := make([]string, 0, len(pending))
		for p := range pending {
			batch = append(batch, p)
		}
		pending = make(map[string]struct{})

		select {
		case w.batches <- batch:
		default:
			// A previous batch is still unconsumed; merge into it rather
			// than blocking the watch goroutine.
			select {
			case old := <-w.batches:
				merged := append(old, batch...)
				w.batches <- merged
			default:
				w.batches <- batch
			}
		}
	}

	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev, pending)
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.cfg.Debounce)
			timerC = timer.C
		case <-timerC:
			timerC = nil
			flush()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logNonFatal(err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event, pending map[string]struct{}) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if w.underWatchedRoot(ev.Name) && !ignored(ev.Name) {
				_ = addRecursive(w.fsw, ev.Name)
			}
			return
		}
	}

	for _, p := range w.patterns {
		rel, err := filepath.Rel(p.root, ev.Name)
		if err != nil {
			continue
		}
		if ignored(rel) {
			continue
		}
		if p.matcher(rel) {
			pending[ev.Name] = struct{}{}
			return
		}
	}
}

func (w *Watcher) underWatchedRoot(path string) bool {
	for _, p := range w.patterns {
		if rel, err := filepath.Rel(p.root, path); err == nil && !isOutside(rel) {
			return true
		}
	}
	return false
}

func isOutside(rel string) bool {
	return len(rel) >= 2 && rel[:2] == ".."
}

func (w *Watcher) logNonFatal(err error) {
	// Best effort: a watch error (e.g. a root removed out from under us)
	// should not bring down the hot-reload loop.
	_ = err
}

// addRecursive walks root and registers an fsnotify watch on every
// directory under it, skipping always-ignored directory names.
func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && ignored(filepath.Base(path)) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}
