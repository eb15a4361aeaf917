package buffer

import (
	"errors"
	"strings"
	"sync"

	"github.com/dshills/subtext/internal/engine/rope"
)

// Errors returned by buffer operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
	ErrLineOutOfRange   = errors.New("line out of range")
)

// LineEnding specifies the line ending style of the backing file.
// Buffer content is always stored with LF internally; the recorded
// style is reapplied on save.
type LineEnding uint8

const (
	LineEndingLF   LineEnding = iota // Unix: \n
	LineEndingCRLF                   // Windows: \r\n
	LineEndingCR                     // Old Mac: \r
)

// Sequence returns the actual line ending characters.
func (le LineEnding) Sequence() string {
	switch le {
	case LineEndingCRLF:
		return "\r\n"
	case LineEndingCR:
		return "\r"
	default:
		return "\n"
	}
}

// DetectLineEnding inspects text and reports its dominant ending.
func DetectLineEnding(s string) LineEnding {
	if i := strings.IndexByte(s, '\n'); i > 0 && s[i-1] == '\r' {
		return LineEndingCRLF
	} else if i >= 0 {
		return LineEndingLF
	}
	if strings.IndexByte(s, '\r') >= 0 {
		return LineEndingCR
	}
	return LineEndingLF
}

// normalize converts all line endings in s to LF.
func normalize(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// ChangeListener receives a notification after every successful
// mutation. Listeners run synchronously on the mutating goroutine and
// must not mutate the buffer re-entrantly.
type ChangeListener func(Change)

// Buffer is a mutable text sequence addressable by byte offset and by
// line/column. All methods are safe for concurrent use; background
// readers should work from a Snapshot instead of holding the buffer.
type Buffer struct {
	mu         sync.RWMutex
	rope       rope.Rope
	revision   Revision
	lineEnding LineEnding
	listeners  []ChangeListener
}

// New creates an empty buffer.
func New(opts ...Option) *Buffer {
	b := &Buffer{lineEnding: LineEndingLF}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FromString creates a buffer with initial content. The source line
// ending style is detected and recorded; content is stored as LF.
func FromString(s string, opts ...Option) *Buffer {
	b := New(opts...)
	b.lineEnding = DetectLineEnding(s)
	b.rope = rope.FromString(normalize(s))
	return b
}

// OnChange registers a change listener.
func (b *Buffer) OnChange(fn ChangeListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Read operations

// Text returns the full buffer content. Prefer Slice or snapshots for
// large buffers.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.String()
}

// Len returns the total byte length.
func (b *Buffer) Len() ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.Len()
}

// Slice returns the text in [start, end).
func (b *Buffer) Slice(start, end ByteOffset) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if start < 0 || end < start || end > b.rope.Len() {
		return "", ErrRangeInvalid
	}
	return b.rope.Slice(start, end), nil
}

// LineCount returns the number of lines.
func (b *Buffer) LineCount() uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.LineCount()
}

// LineRange returns the byte range of line, excluding its newline.
func (b *Buffer) LineRange(line uint32) (Range, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if line >= b.rope.LineCount() {
		return Range{}, ErrLineOutOfRange
	}
	return Range{
		Start: b.rope.LineStartOffset(line),
		End:   b.rope.LineEndOffset(line),
	}, nil
}

// LineText returns the text of line without its newline.
func (b *Buffer) LineText(line uint32) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if line >= b.rope.LineCount() {
		return "", ErrLineOutOfRange
	}
	return b.rope.LineText(line), nil
}

// OffsetToPoint converts a byte offset to a line/column position.
func (b *Buffer) OffsetToPoint(offset ByteOffset) (Point, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if offset < 0 || offset > b.rope.Len() {
		return Point{}, ErrOffsetOutOfRange
	}
	p := b.rope.OffsetToPoint(offset)
	return Point{Line: p.Line, Column: p.Column}, nil
}

// PointToOffset converts a line/column position to a byte offset.
// The column is clamped to the line length; an out-of-range line is an
// error.
func (b *Buffer) PointToOffset(p Point) (ByteOffset, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if p.Line >= b.rope.LineCount() {
		return 0, ErrLineOutOfRange
	}
	return b.rope.PointToOffset(rope.Point{Line: p.Line, Column: p.Column}), nil
}

// Revision returns the current revision.
func (b *Buffer) Revision() Revision {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

// LineEnding returns the recorded source line ending style.
func (b *Buffer) LineEnding() LineEnding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lineEnding
}

// SetLineEnding changes the line ending style used on save.
func (b *Buffer) SetLineEnding(le LineEnding) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lineEnding = le
}

// IsEmpty returns true if the buffer holds no text.
func (b *Buffer) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.IsEmpty()
}

// Snapshot returns an immutable view of the current buffer state,
// safe for concurrent reads from other goroutines.
func (b *Buffer) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return &Snapshot{rope: b.rope, revision: b.revision, lineEnding: b.lineEnding}
}

// Write operations

// Insert inserts text at offset. Offsets outside [0, Len] fail with
// ErrOffsetOutOfRange.
func (b *Buffer) Insert(offset ByteOffset, text string) error {
	_, err := b.Apply(NewInsert(offset, text))
	return err
}

// Delete removes length bytes starting at offset. Ranges extending
// past the end of the buffer fail with ErrRangeInvalid; nothing is
// clamped.
func (b *Buffer) Delete(offset, length ByteOffset) error {
	if length < 0 {
		return ErrRangeInvalid
	}
	_, err := b.Apply(NewDelete(offset, offset+length))
	return err
}

// Apply validates and applies a single edit, returning the resulting
// change. Input text is normalized to LF line endings.
func (b *Buffer) Apply(edit Edit) (Change, error) {
	b.mu.Lock()

	n := b.rope.Len()
	if edit.Range.Start < 0 || edit.Range.Start > edit.Range.End || edit.Range.End > n {
		b.mu.Unlock()
		if edit.IsInsert() {
			return Change{}, ErrOffsetOutOfRange
		}
		return Change{}, ErrRangeInvalid
	}

	text := normalize(edit.NewText)
	oldText := b.rope.Slice(edit.Range.Start, edit.Range.End)
	b.rope = b.rope.Replace(edit.Range.Start, edit.Range.End, text)
	b.revision++

	change := Change{
		Offset:   edit.Range.Start,
		OldText:  oldText,
		NewText:  text,
		Revision: b.revision,
	}
	listeners := make([]ChangeListener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	// Notify outside the lock so listeners may read the buffer.
	for _, fn := range listeners {
		fn(change)
	}
	return change, nil
}
