// Package document ties one open file's moving parts together: the
// text buffer, undo log, highlighter, and search engine, plus the
// metadata needed to save it back the way it was found (path,
// encoding, line ending, permissions). All mutations route through the
// document so the undo log, highlight cache, and dirty flag never
// drift out of sync with the buffer.
package document

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/subtext/internal/engine/buffer"
	"github.com/dshills/subtext/internal/engine/history"
	"github.com/dshills/subtext/internal/event"
	"github.com/dshills/subtext/internal/fileio"
	"github.com/dshills/subtext/internal/highlight"
	"github.com/dshills/subtext/internal/search"
)

// ErrNoPath is returned by Save on a document that has never been
// given a backing path.
var ErrNoPath = errors.New("document has no backing path")

// ID uniquely identifies a document for its lifetime, independent of
// any backing path. Recovery snapshot files are keyed by it.
type ID string

// NewID generates a fresh document id.
func NewID() ID {
	return ID(uuid.NewString())
}

// BufferChanged is the payload published on event.TopicBufferChanged.
type BufferChanged struct {
	Doc    ID
	Change buffer.Change
}

// Document is the aggregate for one open file or untitled buffer.
type Document struct {
	id  ID
	buf *buffer.Buffer
	log *history.Log
	hl  *highlight.Engine
	se  *search.Engine
	bus *event.Bus

	fileOpts fileio.Options

	mu        sync.Mutex
	path      string
	name      string // display name for untitled documents
	language  *highlight.Language
	encoding  fileio.Encoding
	mode      fs.FileMode
	savedRev  buffer.Revision
	cursor    buffer.Point
	selection *buffer.Range
}

// Option configures a document at creation.
type Option func(*Document)

// WithBus wires lifecycle and change events to a bus.
func WithBus(bus *event.Bus) Option {
	return func(d *Document) { d.bus = bus }
}

// WithName sets the display name of an untitled document.
func WithName(name string) Option {
	return func(d *Document) { d.name = name }
}

// WithUndoOptions passes options through to the undo log.
func WithUndoOptions(opts ...history.Option) Option {
	return func(d *Document) { d.log = history.NewLog(opts...) }
}

// WithFileOptions sets decoding options used by Open and Reload.
func WithFileOptions(opts fileio.Options) Option {
	return func(d *Document) { d.fileOpts = opts }
}

// New creates an empty untitled document.
func New(opts ...Option) *Document {
	d := build("", opts)
	d.finish(buffer.New(), highlight.Plain)
	return d
}

// Open loads path from disk into a new document. Encoding and line
// ending are detected and recorded for save; the language is chosen
// from the filename and content.
func Open(path string, opts ...Option) (*Document, error) {
	d := build(path, opts)

	fc, err := fileio.ReadFile(path, d.fileOpts)
	if err != nil {
		return nil, err
	}

	d.encoding = fc.Encoding
	d.mode = fc.Mode
	d.finish(
		buffer.FromString(fc.Text, buffer.WithLineEnding(fc.LineEnding)),
		highlight.Detect(path, []byte(head(fc.Text))),
	)
	d.savedRev = d.buf.Revision()

	if d.bus != nil {
		d.bus.Publish(event.TopicDocumentOpened, d.id)
	}
	return d, nil
}

// Restore creates a document from recovered snapshot content, keeping
// the original id so a later snapshot overwrites the same file.
func Restore(id ID, path, content string, opts ...Option) *Document {
	d := build(path, opts)
	d.id = id
	d.finish(buffer.FromString(content), highlight.Detect(path, []byte(head(content))))
	// Recovered content is unsaved by definition: savedRev stays at a
	// revision the buffer can never report again.
	d.savedRev = d.buf.Revision() + 1
	return d
}

func build(path string, opts []Option) *Document {
	d := &Document{
		id:       NewID(),
		path:     path,
		encoding: fileio.EncodingUTF8,
		mode:     0644,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = history.NewLog()
	}
	return d
}

// finish attaches the buffer and the engines derived from it.
func (d *Document) finish(buf *buffer.Buffer, lang *highlight.Language) {
	d.buf = buf
	d.language = lang
	d.hl = highlight.NewEngine(lang)
	d.se = search.NewEngine(buf, d.log)
	d.wire()
}

// wire connects buffer change notifications to the highlighter and the
// event bus. Undo recording is not wired here: recording happens only
// in the mutation entry points, so replaying undo edits does not
// re-record.
func (d *Document) wire() {
	d.buf.OnChange(func(c buffer.Change) {
		d.hl.ApplyChange(c, d.buf.Snapshot())
		if d.bus != nil {
			d.bus.Publish(event.TopicBufferChanged, BufferChanged{Doc: d.id, Change: c})
			d.bus.Publish(event.TopicDocumentDirty, d.id)
		}
	})
}

// head returns the content prefix used for language detection.
func head(s string) string {
	const n = 1024
	if len(s) > n {
		return s[:n]
	}
	return s
}

// ID returns the document's stable identifier.
func (d *Document) ID() ID { return d.id }

// Path returns the backing path, empty for untitled documents.
func (d *Document) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

// DisplayName returns the base file name, or the untitled name for
// documents without a path.
func (d *Document) DisplayName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.path != "" {
		return filepath.Base(d.path)
	}
	if d.name != "" {
		return d.name
	}
	return "untitled"
}

// Buffer returns the text buffer.
func (d *Document) Buffer() *buffer.Buffer { return d.buf }

// History returns the undo log.
func (d *Document) History() *history.Log { return d.log }

// Highlighter returns the highlight engine.
func (d *Document) Highlighter() *highlight.Engine { return d.hl }

// Search returns the search engine.
func (d *Document) Search() *search.Engine { return d.se }

// Language returns the active language.
func (d *Document) Language() *highlight.Language {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.language
}

// SetLanguage overrides automatic language detection.
func (d *Document) SetLanguage(lang *highlight.Language) {
	if lang == nil {
		lang = highlight.Plain
	}
	d.mu.Lock()
	d.language = lang
	d.mu.Unlock()
	d.hl.SetLanguage(lang)
}

// Encoding returns the detected source encoding.
func (d *Document) Encoding() fileio.Encoding {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.encoding
}

// Dirty reports whether the buffer has moved past the last save.
func (d *Document) Dirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.Revision() != d.savedRev
}

// Revision returns the buffer's current revision.
func (d *Document) Revision() buffer.Revision {
	return d.buf.Revision()
}

// Cursor returns the stored cursor position.
func (d *Document) Cursor() buffer.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}

// SetCursor stores the cursor position.
func (d *Document) SetCursor(p buffer.Point) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursor = p
}

// Selection returns the stored selection, nil when none.
func (d *Document) Selection() *buffer.Range {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selection
}

// SetSelection stores the selection; nil clears it.
func (d *Document) SetSelection(r *buffer.Range) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selection = r
}

// InsertText inserts text at offset and records it for undo.
func (d *Document) InsertText(offset buffer.ByteOffset, text string) error {
	change, err := d.buf.Apply(buffer.NewInsert(offset, text))
	if err != nil {
		return err
	}
	d.log.Record(change)
	return nil
}

// DeleteRange deletes [start, end) and records it for undo.
func (d *Document) DeleteRange(start, end buffer.ByteOffset) error {
	change, err := d.buf.Apply(buffer.NewDelete(start, end))
	if err != nil {
		return err
	}
	d.log.Record(change)
	return nil
}

// ReplaceRange replaces [start, end) with text and records it for
// undo.
func (d *Document) ReplaceRange(start, end buffer.ByteOffset, text string) error {
	change, err := d.buf.Apply(buffer.Edit{
		Range:   buffer.Range{Start: start, End: end},
		NewText: text,
	})
	if err != nil {
		return err
	}
	d.log.Record(change)
	return nil
}

// Undo reverts the most recent undo unit. Returns false on an empty
// log; that is a no-op, not an error.
func (d *Document) Undo() (bool, error) {
	edits, ok := d.log.Undo()
	if !ok {
		return false, nil
	}
	for _, edit := range edits {
		if _, err := d.buf.Apply(edit); err != nil {
			return false, fmt.Errorf("apply undo edit: %w", err)
		}
	}
	return true, nil
}

// Redo re-applies the most recently undone unit.
func (d *Document) Redo() (bool, error) {
	edits, ok := d.log.Redo()
	if !ok {
		return false, nil
	}
	for _, edit := range edits {
		if _, err := d.buf.Apply(edit); err != nil {
			return false, fmt.Errorf("apply redo edit: %w", err)
		}
	}
	return true, nil
}

// Save writes the document to its backing path atomically, re-encoded
// to the source encoding and line endings, and clears the dirty flag.
func (d *Document) Save() error {
	d.mu.Lock()
	path := d.path
	enc := d.encoding
	mode := d.mode
	d.mu.Unlock()

	if path == "" {
		return ErrNoPath
	}

	// Announced before the write so a file watcher can distinguish our
	// own save from an external modification. Payload is the path.
	if d.bus != nil {
		d.bus.Publish(event.TopicDocumentSaving, path)
	}

	snap := d.buf.Snapshot()
	fc := &fileio.FileContent{
		Text:       snap.Text(),
		Encoding:   enc,
		LineEnding: snap.LineEnding(),
		Mode:       mode,
	}
	if err := fileio.WriteFile(path, fc); err != nil {
		return err
	}

	d.mu.Lock()
	d.savedRev = snap.Revision()
	d.mu.Unlock()

	if d.bus != nil {
		d.bus.Publish(event.TopicDocumentSaved, d.id)
	}
	return nil
}

// SaveAs rebinds the document to a new path and saves. The language is
// re-detected from the new name.
func (d *Document) SaveAs(path string) error {
	d.mu.Lock()
	d.path = path
	d.mu.Unlock()

	if err := d.Save(); err != nil {
		return err
	}

	lang := highlight.Detect(path, []byte(head(d.buf.Text())))
	d.SetLanguage(lang)
	return nil
}
