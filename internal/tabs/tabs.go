// Package tabs manages the set of open documents. The manager owns the
// id table and active-tab pointer; per-document state lives in the
// documents themselves and is never touched under the table lock.
package tabs

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dshills/subtext/internal/document"
	"github.com/dshills/subtext/internal/event"
)

// ErrDirtyClose is returned by Close for a document with unsaved
// changes. It is a warning the host surfaces to the user, not a
// failure; CloseDiscard is the acknowledged follow-up.
var ErrDirtyClose = errors.New("document has unsaved changes")

// ErrUnknownDocument is returned for ids the manager does not hold.
var ErrUnknownDocument = errors.New("unknown document id")

// TabInfo is one row of the ordered tab list.
type TabInfo struct {
	ID    document.ID
	Name  string
	Path  string
	Dirty bool
}

// Manager tracks open documents in tab order.
type Manager struct {
	mu          sync.Mutex
	order       []document.ID
	docs        map[document.ID]*document.Document
	byPath      map[string]document.ID
	active      document.ID
	untitledSeq int

	bus     *event.Bus
	docOpts []document.Option
}

// Option configures a Manager.
type Option func(*Manager)

// WithBus wires document lifecycle events to a bus; the bus is also
// passed to every document the manager opens.
func WithBus(bus *event.Bus) Option {
	return func(m *Manager) { m.bus = bus }
}

// WithDocumentOptions sets options applied to every opened document.
func WithDocumentOptions(opts ...document.Option) Option {
	return func(m *Manager) { m.docOpts = opts }
}

// NewManager creates an empty tab manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		docs:   make(map[document.ID]*document.Document),
		byPath: make(map[string]document.ID),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) documentOptions(extra ...document.Option) []document.Option {
	opts := append([]document.Option(nil), m.docOpts...)
	if m.bus != nil {
		opts = append(opts, document.WithBus(m.bus))
	}
	return append(opts, extra...)
}

// Open opens path in a new tab and makes it active. A path already
// open returns the existing document instead of a duplicate; paths are
// compared in absolute form.
func (m *Manager) Open(path string) (*document.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	m.mu.Lock()
	if id, ok := m.byPath[abs]; ok {
		doc := m.docs[id]
		m.active = id
		m.mu.Unlock()
		return doc, nil
	}
	opts := m.documentOptions()
	m.mu.Unlock()

	// Disk I/O happens outside the table lock.
	doc, err := document.Open(abs, opts...)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// A concurrent Open of the same path may have won; keep the first.
	if id, ok := m.byPath[abs]; ok {
		existing := m.docs[id]
		m.active = id
		return existing, nil
	}
	m.addLocked(doc)
	m.byPath[abs] = doc.ID()
	return doc, nil
}

// NewUntitled creates an empty untitled tab and makes it active.
func (m *Manager) NewUntitled() *document.Document {
	m.mu.Lock()
	m.untitledSeq++
	name := fmt.Sprintf("untitled-%d", m.untitledSeq)
	opts := m.documentOptions(document.WithName(name))
	m.mu.Unlock()

	doc := document.New(opts...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLocked(doc)
	return doc
}

// Restore rebuilds a document from recovered snapshot content and
// adopts it as a tab. The document keeps its original id and receives
// the manager's configured options, exactly as an opened one would.
func (m *Manager) Restore(id document.ID, path, title, content string) *document.Document {
	m.mu.Lock()
	var extra []document.Option
	if title != "" {
		extra = append(extra, document.WithName(title))
	}
	opts := m.documentOptions(extra...)
	m.mu.Unlock()

	doc := document.Restore(id, path, content, opts...)
	m.Adopt(doc)
	return doc
}

// Adopt inserts an externally constructed document (session recovery)
// as a tab.
func (m *Manager) Adopt(doc *document.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLocked(doc)
	if p := doc.Path(); p != "" {
		m.byPath[p] = doc.ID()
	}
}

func (m *Manager) addLocked(doc *document.Document) {
	m.order = append(m.order, doc.ID())
	m.docs[doc.ID()] = doc
	m.active = doc.ID()
}

// Get returns the document for id.
func (m *Manager) Get(id document.ID) (*document.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	return doc, ok
}

// Active returns the active document, nil when no tabs are open.
func (m *Manager) Active() *document.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[m.active]
}

// SetActive switches the active tab.
func (m *Manager) SetActive(id document.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrUnknownDocument
	}
	m.active = id
	return nil
}

// Close closes a clean tab. A dirty document returns ErrDirtyClose and
// stays open.
func (m *Manager) Close(id document.ID) error {
	m.mu.Lock()
	doc, ok := m.docs[id]
	m.mu.Unlock()
	if !ok {
		return ErrUnknownDocument
	}
	if doc.Dirty() {
		return ErrDirtyClose
	}
	return m.remove(id)
}

// CloseDiscard closes a tab unconditionally, discarding unsaved
// changes. This is the path taken after the host confirms the
// ErrDirtyClose warning.
func (m *Manager) CloseDiscard(id document.ID) error {
	m.mu.Lock()
	_, ok := m.docs[id]
	m.mu.Unlock()
	if !ok {
		return ErrUnknownDocument
	}
	return m.remove(id)
}

func (m *Manager) remove(id document.ID) error {
	m.mu.Lock()
	doc := m.docs[id]
	delete(m.docs, id)
	for path, pid := range m.byPath {
		if pid == id {
			delete(m.byPath, path)
		}
	}
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	if m.active == id {
		m.active = ""
		if len(m.order) > 0 {
			m.active = m.order[len(m.order)-1]
		}
	}
	bus := m.bus
	m.mu.Unlock()

	if bus != nil && doc != nil {
		bus.Publish(event.TopicDocumentClosed, id)
	}
	return nil
}

// List returns the open tabs in order.
func (m *Manager) List() []TabInfo {
	m.mu.Lock()
	ordered := make([]*document.Document, 0, len(m.order))
	for _, id := range m.order {
		ordered = append(ordered, m.docs[id])
	}
	m.mu.Unlock()

	// Dirty consults per-document state, so read it off-lock.
	infos := make([]TabInfo, len(ordered))
	for i, doc := range ordered {
		infos[i] = TabInfo{
			ID:    doc.ID(),
			Name:  doc.DisplayName(),
			Path:  doc.Path(),
			Dirty: doc.Dirty(),
		}
	}
	return infos
}

// Documents returns every open document in tab order.
func (m *Manager) Documents() []*document.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*document.Document, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.docs[id])
	}
	return out
}

// Len returns the number of open tabs.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}
