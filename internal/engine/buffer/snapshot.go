package buffer

import "github.com/dshills/subtext/internal/engine/rope"

// Snapshot is a read-only view of a buffer at a specific revision. It
// never changes after creation and is safe for concurrent access, so
// background highlighting and autosave read from snapshots while the
// owner keeps editing.
type Snapshot struct {
	rope       rope.Rope
	revision   Revision
	lineEnding LineEnding
}

// Text returns the full snapshot content.
func (s *Snapshot) Text() string {
	return s.rope.String()
}

// Slice returns the text in [start, end), clamped to the valid range.
func (s *Snapshot) Slice(start, end ByteOffset) string {
	return s.rope.Slice(start, end)
}

// Len returns the total byte length.
func (s *Snapshot) Len() ByteOffset {
	return s.rope.Len()
}

// LineCount returns the number of lines.
func (s *Snapshot) LineCount() uint32 {
	return s.rope.LineCount()
}

// LineText returns the text of line without its newline.
func (s *Snapshot) LineText(line uint32) string {
	return s.rope.LineText(line)
}

// LineStartOffset returns the byte offset at which line begins.
func (s *Snapshot) LineStartOffset(line uint32) ByteOffset {
	return s.rope.LineStartOffset(line)
}

// LineEndOffset returns the byte offset of the end of line, before its
// newline.
func (s *Snapshot) LineEndOffset(line uint32) ByteOffset {
	return s.rope.LineEndOffset(line)
}

// OffsetToPoint converts a byte offset to a line/column position.
func (s *Snapshot) OffsetToPoint(offset ByteOffset) Point {
	p := s.rope.OffsetToPoint(offset)
	return Point{Line: p.Line, Column: p.Column}
}

// Revision returns the revision this snapshot was taken at.
func (s *Snapshot) Revision() Revision {
	return s.revision
}

// LineEnding returns the snapshot's recorded line ending style.
func (s *Snapshot) LineEnding() LineEnding {
	return s.lineEnding
}
