package buffer

import "fmt"

// Edit is a single atomic mutation: replace Range with NewText. An
// insertion has an empty range; a deletion has empty NewText.
type Edit struct {
	Range   Range
	NewText string
}

// NewInsert creates an Edit that inserts text at offset.
func NewInsert(offset ByteOffset, text string) Edit {
	return Edit{Range: Range{Start: offset, End: offset}, NewText: text}
}

// NewDelete creates an Edit that removes [start, end).
func NewDelete(start, end ByteOffset) Edit {
	return Edit{Range: Range{Start: start, End: end}}
}

// IsInsert returns true for a pure insertion.
func (e Edit) IsInsert() bool {
	return e.Range.IsEmpty() && e.NewText != ""
}

// IsDelete returns true for a pure deletion.
func (e Edit) IsDelete() bool {
	return !e.Range.IsEmpty() && e.NewText == ""
}

// Delta returns the change in buffer length caused by this edit.
func (e Edit) Delta() ByteOffset {
	return ByteOffset(len(e.NewText)) - e.Range.Len()
}

// String returns a human-readable representation of the edit.
func (e Edit) String() string {
	switch {
	case e.IsInsert():
		return fmt.Sprintf("Insert(%d, %q)", e.Range.Start, e.NewText)
	case e.IsDelete():
		return fmt.Sprintf("Delete%s", e.Range)
	default:
		return fmt.Sprintf("Replace%s with %q", e.Range, e.NewText)
	}
}

// Change describes an applied mutation. It is emitted to change
// listeners after every successful edit and carries enough information
// to build the inverse edit.
type Change struct {
	// Offset is the byte position at which the mutation happened.
	Offset ByteOffset

	// OldText is the text that was removed (empty for insertions).
	OldText string

	// NewText is the text that was added (empty for deletions).
	NewText string

	// Revision is the buffer revision after the change was applied.
	Revision Revision
}

// OldLen returns the byte length of the replaced text.
func (c Change) OldLen() ByteOffset {
	return ByteOffset(len(c.OldText))
}

// NewLen returns the byte length of the inserted text.
func (c Change) NewLen() ByteOffset {
	return ByteOffset(len(c.NewText))
}

// Delta returns the change in buffer length.
func (c Change) Delta() ByteOffset {
	return c.NewLen() - c.OldLen()
}

// Inverse returns the edit that undoes this change.
func (c Change) Inverse() Edit {
	return Edit{
		Range:   Range{Start: c.Offset, End: c.Offset + c.NewLen()},
		NewText: c.OldText,
	}
}

// AsEdit returns the edit that reproduces this change.
func (c Change) AsEdit() Edit {
	return Edit{
		Range:   Range{Start: c.Offset, End: c.Offset + c.OldLen()},
		NewText: c.NewText,
	}
}
