package buffer

import "fmt"

// Range is a half-open byte range [Start, End).
type Range struct {
	Start ByteOffset
	End   ByteOffset
}

// NewRange creates a range, swapping the ends if reversed.
func NewRange(start, end ByteOffset) Range {
	if start > end {
		start, end = end, start
	}
	return Range{Start: start, End: end}
}

// Len returns the byte length of the range.
func (r Range) Len() ByteOffset {
	return r.End - r.Start
}

// IsEmpty returns true if the range covers no bytes.
func (r Range) IsEmpty() bool {
	return r.Start >= r.End
}

// Contains returns true if offset lies within the range.
func (r Range) Contains(offset ByteOffset) bool {
	return offset >= r.Start && offset < r.End
}

// Overlaps returns true if the two ranges share any bytes.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// String returns a human-readable representation of the range.
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}
