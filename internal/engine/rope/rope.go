package rope

import (
	"io"
	"sort"
	"strings"
)

// ByteOffset is a byte position within the rope.
type ByteOffset = int64

// Rope is an immutable chunked text value. The zero value is an empty
// rope. All operations return new Rope values; a Rope, once obtained,
// never changes and is safe for concurrent reads.
type Rope struct {
	chunks []chunk
	// Prefix sums over chunks. cumBytes[i] and cumLines[i] hold the
	// totals for chunks[0..i] inclusive.
	cumBytes []ByteOffset
	cumLines []uint32
}

// New creates an empty rope.
func New() Rope {
	return Rope{}
}

// FromString creates a rope holding s.
func FromString(s string) Rope {
	return fromChunks(splitText(s))
}

// FromReader creates a rope from the full contents of r.
func FromReader(r io.Reader) (Rope, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Rope{}, err
	}
	return FromString(string(data)), nil
}

func fromChunks(chunks []chunk) Rope {
	if len(chunks) == 0 {
		return Rope{}
	}
	cumBytes := make([]ByteOffset, len(chunks))
	cumLines := make([]uint32, len(chunks))
	var bytes ByteOffset
	var lines uint32
	for i, c := range chunks {
		bytes += ByteOffset(len(c.data))
		lines += c.newlines
		cumBytes[i] = bytes
		cumLines[i] = lines
	}
	return Rope{chunks: chunks, cumBytes: cumBytes, cumLines: cumLines}
}

// Len returns the total byte length.
func (r Rope) Len() ByteOffset {
	if len(r.cumBytes) == 0 {
		return 0
	}
	return r.cumBytes[len(r.cumBytes)-1]
}

// IsEmpty returns true if the rope contains no text.
func (r Rope) IsEmpty() bool {
	return r.Len() == 0
}

// newlineCount returns the total number of newlines.
func (r Rope) newlineCount() uint32 {
	if len(r.cumLines) == 0 {
		return 0
	}
	return r.cumLines[len(r.cumLines)-1]
}

// LineCount returns the number of lines (newlines + 1).
func (r Rope) LineCount() uint32 {
	return r.newlineCount() + 1
}

// String returns the full text. Use sparingly for large ropes.
func (r Rope) String() string {
	var sb strings.Builder
	sb.Grow(int(r.Len()))
	for _, c := range r.chunks {
		sb.WriteString(c.data)
	}
	return sb.String()
}

// locate finds the chunk containing offset and the position within it.
// offset must be in [0, Len()); callers handle the end position.
func (r Rope) locate(offset ByteOffset) (int, int) {
	i := sort.Search(len(r.cumBytes), func(i int) bool {
		return r.cumBytes[i] > offset
	})
	return i, int(offset - r.chunkStart(i))
}

// chunkStart returns the byte offset at which chunks[i] begins.
func (r Rope) chunkStart(i int) ByteOffset {
	if i == 0 {
		return 0
	}
	return r.cumBytes[i-1]
}

// linesBeforeChunk returns the number of newlines in chunks[0..i).
func (r Rope) linesBeforeChunk(i int) uint32 {
	if i == 0 {
		return 0
	}
	return r.cumLines[i-1]
}

// Slice returns the text in [start, end). Arguments are clamped to the
// valid range.
func (r Rope) Slice(start, end ByteOffset) string {
	start, end = r.clampRange(start, end)
	if start >= end {
		return ""
	}

	i, p := r.locate(start)
	j, q := r.locate(end - 1)
	q++ // end position within chunk j, exclusive

	if i == j {
		return r.chunks[i].data[p:q]
	}

	var sb strings.Builder
	sb.Grow(int(end - start))
	sb.WriteString(r.chunks[i].data[p:])
	for k := i + 1; k < j; k++ {
		sb.WriteString(r.chunks[k].data)
	}
	sb.WriteString(r.chunks[j].data[:q])
	return sb.String()
}

// ByteAt returns the byte at offset, or false if out of range.
func (r Rope) ByteAt(offset ByteOffset) (byte, bool) {
	if offset < 0 || offset >= r.Len() {
		return 0, false
	}
	i, p := r.locate(offset)
	return r.chunks[i].data[p], true
}

// Insert returns a rope with text inserted at offset. The offset is
// clamped to [0, Len()].
func (r Rope) Insert(offset ByteOffset, text string) Rope {
	if len(text) == 0 {
		return r
	}
	if offset < 0 {
		offset = 0
	}
	if offset > r.Len() {
		offset = r.Len()
	}

	if len(r.chunks) == 0 {
		return fromChunks(splitText(text))
	}

	var i, p int
	if offset == r.Len() {
		i = len(r.chunks) - 1
		p = len(r.chunks[i].data)
	} else {
		i, p = r.locate(offset)
	}

	target := r.chunks[i].data
	rechunked := splitText(target[:p] + text + target[p:])

	return r.splice(i, i+1, rechunked)
}

// Delete returns a rope with [start, end) removed. Arguments are
// clamped to the valid range.
func (r Rope) Delete(start, end ByteOffset) Rope {
	start, end = r.clampRange(start, end)
	if start >= end {
		return r
	}
	if start == 0 && end == r.Len() {
		return Rope{}
	}

	i, p := r.locate(start)
	j, q := r.locate(end - 1)
	q++

	var kept string
	if i == j {
		kept = r.chunks[i].data[:p] + r.chunks[i].data[q:]
	} else {
		kept = r.chunks[i].data[:p] + r.chunks[j].data[q:]
	}
	return r.splice(i, j+1, splitText(kept))
}

// Replace is Delete followed by Insert as a single operation.
func (r Rope) Replace(start, end ByteOffset, text string) Rope {
	return r.Delete(start, end).Insert(start, text)
}

// splice replaces chunks[from:to] with repl and rebuilds prefix sums.
func (r Rope) splice(from, to int, repl []chunk) Rope {
	out := make([]chunk, 0, len(r.chunks)-(to-from)+len(repl))
	out = append(out, r.chunks[:from]...)
	out = append(out, repl...)
	out = append(out, r.chunks[to:]...)
	return fromChunks(out)
}

func (r Rope) clampRange(start, end ByteOffset) (ByteOffset, ByteOffset) {
	n := r.Len()
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > n {
		start = n
	}
	return start, end
}
