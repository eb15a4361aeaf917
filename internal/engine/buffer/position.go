package buffer

import (
	"fmt"

	"github.com/dshills/subtext/internal/engine/rope"
)

// ByteOffset is a byte position in the buffer.
type ByteOffset = rope.ByteOffset

// Point is a zero-indexed line and byte-column position.
type Point struct {
	Line   uint32
	Column uint32
}

// String returns a human-readable representation of the point.
func (p Point) String() string {
	return fmt.Sprintf("(%d:%d)", p.Line, p.Column)
}

// Compare returns -1 if p < other, 0 if equal, 1 if p > other.
func (p Point) Compare(other Point) int {
	switch {
	case p.Line < other.Line:
		return -1
	case p.Line > other.Line:
		return 1
	case p.Column < other.Column:
		return -1
	case p.Column > other.Column:
		return 1
	}
	return 0
}

// Before returns true if p comes before other.
func (p Point) Before(other Point) bool {
	return p.Compare(other) < 0
}

// Revision identifies a buffer state. Each successful mutation
// advances the buffer's revision by one; snapshots and search matches
// carry the revision they were taken at so stale results can be
// detected.
type Revision uint64
