package history

import (
	"time"
	"unicode/utf8"

	"github.com/dshills/subtext/internal/engine/buffer"
)

// ByteOffset is an alias for buffer.ByteOffset for convenience.
type ByteOffset = buffer.ByteOffset

// Operation is a single reversible edit: at Offset, OldText was
// replaced by NewText. Coalesced keystrokes extend the same operation.
type Operation struct {
	Offset  ByteOffset
	OldText string
	NewText string

	// FirstAt and LastAt bound the wall-clock span of the (possibly
	// coalesced) operation.
	FirstAt time.Time
	LastAt  time.Time
}

func operationFromChange(c buffer.Change, at time.Time) *Operation {
	return &Operation{
		Offset:  c.Offset,
		OldText: c.OldText,
		NewText: c.NewText,
		FirstAt: at,
		LastAt:  at,
	}
}

// IsInsert returns true for a pure insertion.
func (op *Operation) IsInsert() bool {
	return op.OldText == "" && op.NewText != ""
}

// IsDelete returns true for a pure deletion.
func (op *Operation) IsDelete() bool {
	return op.OldText != "" && op.NewText == ""
}

// UndoEdit returns the edit that reverts this operation.
func (op *Operation) UndoEdit() buffer.Edit {
	return buffer.Edit{
		Range: buffer.Range{
			Start: op.Offset,
			End:   op.Offset + ByteOffset(len(op.NewText)),
		},
		NewText: op.OldText,
	}
}

// RedoEdit returns the edit that reapplies this operation.
func (op *Operation) RedoEdit() buffer.Edit {
	return buffer.Edit{
		Range: buffer.Range{
			Start: op.Offset,
			End:   op.Offset + ByteOffset(len(op.OldText)),
		},
		NewText: op.NewText,
	}
}

// singleRune reports whether s encodes exactly one rune.
func singleRune(s string) bool {
	_, size := utf8.DecodeRuneInString(s)
	return size == len(s) && size > 0
}
