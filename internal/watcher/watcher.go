// Package watcher reports changed source documents under a directory tree,
// coalescing bursts of filesystem events into one callback.
package watcher

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before changes are delivered.
const DefaultDebounce = 500 * time.Millisecond

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("watcher already started")

// Config configures a Watcher.
type Config struct {
	// Root is watched recursively, including directories created later.
	Root string

	// Extensions selects the files reported, e.g. ".xlsx". Matching ignores case.
	Extensions []string

	// Debounce is the quiet period; zero means DefaultDebounce.
	Debounce time.Duration

	// Skip, if set, drops matching paths before they are accumulated.
	Skip func(path string) bool
}

// Watcher delivers debounced batches of changed files.
type Watcher struct {
	fsw        *fsnotify.Watcher
	extensions map[string]bool
	debounce   time.Duration
	skip       func(string) bool

	callback func(files []string)
	cancel   context.CancelFunc

	pending   map[string]bool // Accumulated file changes
	pendingMu sync.Mutex

	timer   *time.Timer // Current debounce timer
	timerMu sync.Mutex

	startOnce sync.Once
	stopOnce  sync.Once
	doneCh    chan struct{} // Signals watch goroutine has finished
}

// New creates a watcher over cfg.Root. Nothing is delivered until Start.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	extMap := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		extMap[strings.ToLower(ext)] = true
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		fsw:        fsw,
		extensions: extMap,
		debounce:   debounce,
		skip:       cfg.Skip,
		pending:    make(map[string]bool),
		doneCh:     make(chan struct{}),
	}

	if err := w.addTree(cfg.Root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Start begins delivering changes. callback runs on the watcher's goroutine
// with a sorted, de-duplicated list of paths; events arriving meanwhile are
// held for the next delivery.
func (w *Watcher) Start(ctx context.Context, callback func(files []string)) error {
	started := false
	w.startOnce.Do(func() {
		started = true
		w.callback = callback
		var wctx context.Context
		wctx, w.cancel = context.WithCancel(ctx)
		go w.loop(wctx)
	})
	if !started {
		return ErrAlreadyStarted
	}
	return nil
}

// Stop ends watching and waits for an in-flight callback to return. Stop is
// idempotent.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.startOnce.Do(func() {}) // a later Start becomes a no-op

		if w.cancel != nil {
			w.cancel()
			<-w.doneCh
		} else {
			close(w.doneCh)
		}
		err = w.fsw.Close()
	})
	return err
}

// Done is closed when the watch loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			// New directories are watched as they appear
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
					}
					continue
				}
			}

			if !w.relevant(event) {
				continue
			}

			w.pendingMu.Lock()
			w.pending[event.Name] = true
			w.pendingMu.Unlock()

			w.resetTimer(fire)

		case <-fire:
			w.flush()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: file watcher error: %v", err)
		}
	}
}

// flush delivers accumulated paths, if any.
func (w *Watcher) flush() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	files := make([]string, 0, len(w.pending))
	for file := range w.pending {
		files = append(files, file)
	}
	w.pending = make(map[string]bool)
	w.pendingMu.Unlock()

	sort.Strings(files)
	if w.callback != nil {
		w.callback(files)
	}
}

func (w *Watcher) resetTimer(fire chan struct{}) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// relevant reports whether an event names a watched file that was written,
// created, renamed or removed.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if !w.extensions[strings.ToLower(filepath.Ext(event.Name))] {
		return false
	}
	return w.skip == nil || !w.skip(event.Name)
}

// addTree adds root and every directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}
