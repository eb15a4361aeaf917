// Package watch monitors the backing files of open documents and
// publishes external-modification events so the host can prompt for
// reload. Directories are watched rather than the files themselves:
// atomic saves replace the target inode, which would silently detach a
// per-file watch.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/dshills/subtext/internal/event"
	"github.com/dshills/subtext/internal/logging"
)

type pendingKind int

const (
	pendingChanged pendingKind = iota
	pendingRemoved
)

type pendingEvent struct {
	kind pendingKind
	at   time.Time
}

// Watcher publishes event.TopicFileChanged / event.TopicFileRemoved
// for tracked paths. Events are debounced per path; a burst of writes
// collapses into one notification. The payload is the absolute path.
type Watcher struct {
	fsw      *fsnotify.Watcher
	bus      *event.Bus
	logger   *log.Logger
	debounce time.Duration

	mu       sync.Mutex
	tracked  map[string]bool // absolute file path -> tracked
	dirRefs  map[string]int  // watched directory -> tracked file count
	selfSave map[string]time.Time

	pendingMu sync.Mutex
	pending   map[string]pendingEvent

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a path must be quiet before its event is
// published.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// New creates a watcher publishing to bus and starts its event loop.
func New(bus *event.Bus, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		bus:      bus,
		logger:   logging.Default(),
		debounce: 100 * time.Millisecond,
		tracked:  make(map[string]bool),
		dirRefs:  make(map[string]int),
		selfSave: make(map[string]time.Time),
		pending:  make(map[string]pendingEvent),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(2)
	go w.processLoop()
	go w.flushLoop()
	return w, nil
}

// Watch starts tracking a file.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.tracked[abs] {
		return nil
	}
	dir := filepath.Dir(abs)
	if w.dirRefs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.dirRefs[dir]++
	w.tracked[abs] = true
	return nil
}

// Unwatch stops tracking a file. Unknown paths are a no-op.
func (w *Watcher) Unwatch(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.tracked[abs] {
		return
	}
	delete(w.tracked, abs)
	dir := filepath.Dir(abs)
	w.dirRefs[dir]--
	if w.dirRefs[dir] <= 0 {
		delete(w.dirRefs, dir)
		if err := w.fsw.Remove(dir); err != nil {
			w.logger.Warn("unwatch failed", logging.FieldDir, dir, logging.FieldError, err)
		}
	}
}

// MarkSelfWrite suppresses the next change notification for a path.
// Called around the editor's own saves so they do not come back as
// external modifications.
func (w *Watcher) MarkSelfWrite(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	w.selfSave[abs] = time.Now()
	w.mu.Unlock()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

// selfWriteWindow is how long after MarkSelfWrite events for the path
// are swallowed.
const selfWriteWindow = 2 * time.Second

func (w *Watcher) processLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watch error", logging.FieldError, err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := ev.Name

	w.mu.Lock()
	tracked := w.tracked[path]
	selfAt, self := w.selfSave[path]
	if self && time.Since(selfAt) > selfWriteWindow {
		delete(w.selfSave, path)
		self = false
	}
	w.mu.Unlock()

	if !tracked {
		return
	}

	var kind pendingKind
	switch {
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		kind = pendingRemoved
	case ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create):
		// Create covers atomic saves: rename onto the tracked path.
		// One save can fan out into several events, so the whole
		// window is swallowed rather than just the first event.
		if self {
			return
		}
		kind = pendingChanged
	default:
		return
	}

	// Latest state wins: a create after a remove means the file was
	// replaced, which reads as a change.
	w.pendingMu.Lock()
	w.pending[path] = pendingEvent{kind: kind, at: time.Now()}
	w.pendingMu.Unlock()
}

func (w *Watcher) flushLoop() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()
	for {
		select {
		case <-w.closeCh:
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) flush() {
	cutoff := time.Now().Add(-w.debounce)

	w.pendingMu.Lock()
	var paths []string
	var kinds []pendingKind
	for path, p := range w.pending {
		if p.at.Before(cutoff) {
			paths = append(paths, path)
			kinds = append(kinds, p.kind)
			delete(w.pending, path)
		}
	}
	w.pendingMu.Unlock()

	for i, path := range paths {
		switch kinds[i] {
		case pendingChanged:
			w.bus.Publish(event.TopicFileChanged, path)
		case pendingRemoved:
			w.bus.Publish(event.TopicFileRemoved, path)
		}
	}
}
