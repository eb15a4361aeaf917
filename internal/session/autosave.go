package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dshills/subtext/internal/document"
	"github.com/dshills/subtext/internal/engine/buffer"
	"github.com/dshills/subtext/internal/event"
	"github.com/dshills/subtext/internal/logging"
	"github.com/dshills/subtext/internal/tabs"
)

// Autosaver periodically snapshots every unsaved document into the
// session store. Editing is never blocked: content is captured from
// immutable buffer snapshots and the writes run off the owner
// goroutine.
type Autosaver struct {
	store    *Store
	tabs     *tabs.Manager
	bus      *event.Bus
	logger   *log.Logger
	interval time.Duration

	tickMu sync.Mutex // one tick at a time

	mu          sync.Mutex
	snapshotRev map[document.ID]buffer.Revision
	failLogged  map[document.ID]bool

	// Snapshots a previous process left behind. They stay in the
	// session file and buffers dir until their document is restored
	// (it then rejoins the live tab set under the same id) or the
	// store is explicitly cleared; a tick never discards them.
	pending map[string]TabEntry
}

// AutosaverOption configures an Autosaver.
type AutosaverOption func(*Autosaver)

// WithBus subscribes the autosaver to save/close events so snapshots
// are cleared when they stop being needed, and publishes snapshot
// failures.
func WithBus(bus *event.Bus) AutosaverOption {
	return func(a *Autosaver) { a.bus = bus }
}

// WithLogger sets the logger; defaults to the package default.
func WithLogger(logger *log.Logger) AutosaverOption {
	return func(a *Autosaver) { a.logger = logger }
}

// WithInterval sets the tick interval for Run.
func WithInterval(d time.Duration) AutosaverOption {
	return func(a *Autosaver) { a.interval = d }
}

// NewAutosaver creates an autosaver over a tab manager and store.
func NewAutosaver(store *Store, tabMgr *tabs.Manager, opts ...AutosaverOption) *Autosaver {
	a := &Autosaver{
		store:       store,
		tabs:        tabMgr,
		logger:      logging.Default(),
		interval:    30 * time.Second,
		snapshotRev: make(map[document.ID]buffer.Revision),
		failLogged:  make(map[document.ID]bool),
		pending:     make(map[string]TabEntry),
	}
	for _, opt := range opts {
		opt(a)
	}
	if sess, err := store.ReadSession(); err != nil {
		a.logger.Warn("previous session unreadable",
			logging.FieldDir, store.Dir(), logging.FieldError, err)
	} else if sess != nil {
		for _, tab := range sess.Tabs {
			if tab.BufferID != "" {
				a.pending[tab.BufferID] = tab
			}
		}
	}
	if a.bus != nil {
		a.bus.Subscribe(event.TopicDocumentSaved, func(_ event.Topic, payload any) {
			if id, ok := payload.(document.ID); ok {
				a.ClearSnapshot(id)
			}
		})
		a.bus.Subscribe(event.TopicDocumentClosed, func(_ event.Topic, payload any) {
			if id, ok := payload.(document.ID); ok {
				a.ClearSnapshot(id)
			}
		})
	}
	return a
}

// Run ticks until the context is cancelled.
func (a *Autosaver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Tick()
		}
	}
}

// snapshotJob is one document's captured state, read before any write
// starts so a tick sees a consistent picture.
type snapshotJob struct {
	id      document.ID
	rev     buffer.Revision
	content string
}

// Tick snapshots every document that needs it and rewrites
// session.json. Snapshot writes for distinct documents run in
// parallel. A write failure is logged once per document, never
// propagated to the editing path, and retried on the next tick.
func (a *Autosaver) Tick() {
	a.tickMu.Lock()
	defer a.tickMu.Unlock()

	docs := a.tabs.Documents()
	active := a.tabs.Active()

	sess := &Session{Timestamp: time.Now(), Tabs: make([]TabEntry, 0, len(docs))}
	var jobs []snapshotJob
	keep := make(map[string]bool)

	for _, doc := range docs {
		if active != nil && doc.ID() == active.ID() {
			sess.ActiveTab = len(sess.Tabs)
		}
		cursor := doc.Cursor()
		entry := TabEntry{
			Path:         doc.Path(),
			Language:     doc.Language().Name,
			Encoding:     doc.Encoding().String(),
			Modified:     doc.Dirty(),
			CursorLine:   cursor.Line,
			CursorColumn: cursor.Column,
			SavedAt:      time.Now(),
		}
		if doc.Path() == "" {
			entry.Title = doc.DisplayName()
		}

		// Content is only snapshotted for documents whose state would
		// be lost in a crash: untitled buffers and dirty files.
		if doc.Path() == "" || doc.Dirty() {
			entry.BufferID = string(doc.ID())
			keep[entry.BufferID] = true

			snap := doc.Buffer().Snapshot()
			a.mu.Lock()
			// An open document supersedes its recovered snapshot entry.
			delete(a.pending, string(doc.ID()))
			written := a.snapshotRev[doc.ID()] == snap.Revision()
			a.mu.Unlock()
			if !written {
				jobs = append(jobs, snapshotJob{
					id:      doc.ID(),
					rev:     snap.Revision(),
					content: snap.Text(),
				})
			}
		}
		sess.Tabs = append(sess.Tabs, entry)
	}

	// Unacknowledged snapshots from a previous session are carried
	// forward verbatim so they stay recoverable.
	a.mu.Lock()
	carried := make([]string, 0, len(a.pending))
	for id := range a.pending {
		carried = append(carried, id)
	}
	sort.Strings(carried)
	for _, id := range carried {
		keep[id] = true
		sess.Tabs = append(sess.Tabs, a.pending[id])
	}
	a.mu.Unlock()

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job snapshotJob) {
			defer wg.Done()
			a.writeSnapshot(job)
		}(job)
	}
	wg.Wait()

	if err := a.store.WriteSession(sess); err != nil {
		a.logger.Error("session write failed",
			logging.FieldDir, a.store.Dir(), logging.FieldError, err)
		return
	}
	if err := a.store.CleanupBuffers(keep); err != nil {
		a.logger.Warn("stale snapshot cleanup failed", logging.FieldError, err)
	}
}

func (a *Autosaver) writeSnapshot(job snapshotJob) {
	err := a.store.WriteBuffer(string(job.id), job.content)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		if !a.failLogged[job.id] {
			a.failLogged[job.id] = true
			a.logger.Error("snapshot write failed",
				logging.FieldDocument, string(job.id), logging.FieldError, err)
		}
		if a.bus != nil {
			a.bus.Publish(event.TopicSnapshotFailed, job.id)
		}
		return
	}
	// The snapshot reflects the captured revision; if the document
	// moved on mid-write the next tick rewrites it.
	a.snapshotRev[job.id] = job.rev
	delete(a.failLogged, job.id)
}

// ClearSnapshot removes a document's recovery snapshot. Called after
// an explicit save or an acknowledged close; a snapshot is never
// silently discarded.
func (a *Autosaver) ClearSnapshot(id document.ID) {
	if err := a.store.RemoveBuffer(string(id)); err != nil {
		a.logger.Warn("snapshot remove failed",
			logging.FieldDocument, string(id), logging.FieldError, err)
		return
	}
	a.mu.Lock()
	delete(a.snapshotRev, id)
	delete(a.failLogged, id)
	delete(a.pending, string(id))
	a.mu.Unlock()
}

// Pending is one recoverable snapshot found at startup.
type Pending struct {
	ID           string
	Path         string
	Title        string
	Language     string
	Content      string
	Timestamp    time.Time
	CursorLine   uint32
	CursorColumn uint32
}

// RecoverPending returns the snapshots a previous process left behind.
// An empty result means the last session ended cleanly or saved
// everything.
func RecoverPending(store *Store) ([]Pending, error) {
	sess, err := store.ReadSession()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	var pending []Pending
	for _, tab := range sess.Tabs {
		if tab.BufferID == "" {
			continue
		}
		content, err := store.ReadBuffer(tab.BufferID)
		if err != nil {
			logging.Default().Warn("unreadable recovery snapshot",
				logging.FieldDocument, tab.BufferID, logging.FieldError, err)
			continue
		}
		pending = append(pending, Pending{
			ID:           tab.BufferID,
			Path:         tab.Path,
			Title:        tab.Title,
			Language:     tab.Language,
			Content:      content,
			Timestamp:    tab.SavedAt,
			CursorLine:   tab.CursorLine,
			CursorColumn: tab.CursorColumn,
		})
	}
	return pending, nil
}
