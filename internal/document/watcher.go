package document

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"peopleops/internal/logging"
)

// debounceWindow collapses editor write bursts into a single re-index.
const debounceWindow = 500 * time.Millisecond

// Watcher keeps the chunk store in sync with the upload directory using
// filesystem events. Events for the same file within the debounce window
// are coalesced.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher over the store's upload directory.
func NewWatcher(store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(store.UploadDir()); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		store:   store,
		watcher: fw,
		pending: make(map[string]*time.Timer),
	}, nil
}

// Run processes events until the context is cancelled. Intended to run in
// an errgroup alongside the HTTP listener.
func (w *Watcher) Run(ctx context.Context) error {
	logging.Docs("Watching %s for document changes", w.store.UploadDir())
	defer w.close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.DocsWarn("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !Supported(name) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		w.debounce(name, func() {
			if err := w.store.Remove(name); err != nil {
				logging.DocsWarn("Failed to remove %s after delete: %v", name, err)
			}
		})
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		path := event.Name
		w.debounce(name, func() {
			if _, err := w.store.Add(path); err != nil {
				logging.DocsWarn("Failed to index %s after change: %v", name, err)
			}
		})
	}
}

// debounce schedules fn after the debounce window, resetting any timer
// already pending for the same file.
func (w *Watcher) debounce(name string, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[name]; ok {
		t.Stop()
	}
	w.pending[name] = time.AfterFunc(debounceWindow, func() {
		w.mu.Lock()
		delete(w.pending, name)
		w.mu.Unlock()
		fn()
	})
}

func (w *Watcher) close() {
	w.mu.Lock()
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()
	if err := w.watcher.Close(); err != nil {
		logging.DocsWarn("Failed to close watcher: %v", err)
	}
}
