package rope

import "sort"

// Point is a zero-indexed line and byte-column position.
type Point struct {
	Line   uint32
	Column uint32
}

// LineStartOffset returns the byte offset at which line begins.
// Lines past the end return Len().
func (r Rope) LineStartOffset(line uint32) ByteOffset {
	if line == 0 {
		return 0
	}
	if line > r.newlineCount() {
		return r.Len()
	}

	// Find the chunk containing the line-th newline (1-indexed).
	i := sort.Search(len(r.cumLines), func(i int) bool {
		return r.cumLines[i] >= line
	})
	within := line - r.linesBeforeChunk(i)
	pos := nthNewline(r.chunks[i].data, within)
	return r.chunkStart(i) + ByteOffset(pos) + 1
}

// LineEndOffset returns the byte offset of the end of line, before its
// terminating newline. The last line ends at Len().
func (r Rope) LineEndOffset(line uint32) ByteOffset {
	if line >= r.newlineCount() {
		return r.Len()
	}
	return r.LineStartOffset(line+1) - 1
}

// LineText returns the text of line without its newline.
func (r Rope) LineText(line uint32) string {
	return r.Slice(r.LineStartOffset(line), r.LineEndOffset(line))
}

// OffsetToPoint converts a byte offset to a line/column position.
// Offsets outside [0, Len()] are clamped.
func (r Rope) OffsetToPoint(offset ByteOffset) Point {
	if offset <= 0 {
		return Point{}
	}
	if offset > r.Len() {
		offset = r.Len()
	}

	var line uint32
	if offset == r.Len() {
		line = r.newlineCount()
		// An offset just past a trailing newline sits at the start of
		// the final empty line; otherwise it is past the last line's
		// text and the newline count already names that line.
	} else {
		i, p := r.locate(offset)
		line = r.linesBeforeChunk(i) + newlinesBefore(r.chunks[i].data, p)
	}

	return Point{
		Line:   line,
		Column: uint32(offset - r.LineStartOffset(line)),
	}
}

// PointToOffset converts a line/column position to a byte offset. The
// column is clamped to the line's length; lines past the end map to
// Len().
func (r Rope) PointToOffset(p Point) ByteOffset {
	if p.Line > r.newlineCount() {
		return r.Len()
	}
	start := r.LineStartOffset(p.Line)
	end := r.LineEndOffset(p.Line)
	offset := start + ByteOffset(p.Column)
	if offset > end {
		return end
	}
	return offset
}
