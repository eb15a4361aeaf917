package rope

import (
	"math/rand"
	"strings"
	"testing"
)

func TestEmptyRope(t *testing.T) {
	r := New()

	if !r.IsEmpty() {
		t.Error("new rope should be empty")
	}
	if r.Len() != 0 {
		t.Errorf("expected length 0, got %d", r.Len())
	}
	if r.LineCount() != 1 {
		t.Errorf("expected 1 line, got %d", r.LineCount())
	}
	if r.String() != "" {
		t.Errorf("expected empty string, got %q", r.String())
	}
}

func TestFromString(t *testing.T) {
	text := "hello\nworld\n"
	r := FromString(text)

	if r.String() != text {
		t.Errorf("expected %q, got %q", text, r.String())
	}
	if r.Len() != int64(len(text)) {
		t.Errorf("expected length %d, got %d", len(text), r.Len())
	}
	if r.LineCount() != 3 {
		t.Errorf("expected 3 lines, got %d", r.LineCount())
	}
}

func TestFromStringLarge(t *testing.T) {
	text := strings.Repeat("0123456789abcdef\n", 10000)
	r := FromString(text)

	if r.String() != text {
		t.Error("large round-trip mismatch")
	}
	if r.LineCount() != 10001 {
		t.Errorf("expected 10001 lines, got %d", r.LineCount())
	}
	if len(r.chunks) < 2 {
		t.Error("large text should split into multiple chunks")
	}
	for _, c := range r.chunks {
		if len(c.data) > MaxChunkSize {
			t.Fatalf("chunk exceeds MaxChunkSize: %d", len(c.data))
		}
	}
}

func TestInsert(t *testing.T) {
	r := FromString("hello world")
	r = r.Insert(5, ",")

	if r.String() != "hello, world" {
		t.Errorf("expected 'hello, world', got %q", r.String())
	}
}

func TestInsertAtEnds(t *testing.T) {
	r := FromString("middle")
	r = r.Insert(0, "start ")
	r = r.Insert(r.Len(), " end")

	if r.String() != "start middle end" {
		t.Errorf("got %q", r.String())
	}
}

func TestInsertEmptyRope(t *testing.T) {
	r := New().Insert(0, "text")
	if r.String() != "text" {
		t.Errorf("got %q", r.String())
	}
}

func TestDelete(t *testing.T) {
	r := FromString("hello, world")
	r = r.Delete(5, 7)

	if r.String() != "helloworld" {
		t.Errorf("got %q", r.String())
	}
}

func TestDeleteAll(t *testing.T) {
	r := FromString("everything").Delete(0, 10)
	if !r.IsEmpty() {
		t.Errorf("expected empty rope, got %q", r.String())
	}
}

func TestDeleteAcrossChunks(t *testing.T) {
	text := strings.Repeat("x", MaxChunkSize*3)
	r := FromString(text)
	r = r.Delete(10, int64(MaxChunkSize*3-10))

	if r.Len() != 20 {
		t.Errorf("expected 20 bytes, got %d", r.Len())
	}
	if r.String() != strings.Repeat("x", 20) {
		t.Error("content mismatch after cross-chunk delete")
	}
}

func TestReplace(t *testing.T) {
	r := FromString("hello world")
	r = r.Replace(6, 11, "rope")

	if r.String() != "hello rope" {
		t.Errorf("got %q", r.String())
	}
}

func TestSlice(t *testing.T) {
	r := FromString("0123456789")

	tests := []struct {
		start, end int64
		want       string
	}{
		{0, 10, "0123456789"},
		{0, 0, ""},
		{3, 7, "3456"},
		{9, 10, "9"},
		{5, 5, ""},
	}
	for _, tt := range tests {
		if got := r.Slice(tt.start, tt.end); got != tt.want {
			t.Errorf("Slice(%d,%d) = %q, want %q", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestSliceAcrossChunks(t *testing.T) {
	text := strings.Repeat("abcdefgh", MaxChunkSize)
	r := FromString(text)

	start, end := int64(100), int64(len(text)-100)
	if r.Slice(start, end) != text[start:end] {
		t.Error("cross-chunk slice mismatch")
	}
}

func TestByteAt(t *testing.T) {
	r := FromString("abc")

	if b, ok := r.ByteAt(1); !ok || b != 'b' {
		t.Errorf("ByteAt(1) = %c, %v", b, ok)
	}
	if _, ok := r.ByteAt(3); ok {
		t.Error("ByteAt past end should return false")
	}
	if _, ok := r.ByteAt(-1); ok {
		t.Error("ByteAt(-1) should return false")
	}
}

func TestLineOffsets(t *testing.T) {
	r := FromString("ab\ncdef\n\nghi")

	starts := []int64{0, 3, 8, 9}
	ends := []int64{2, 7, 8, 12}
	for line := uint32(0); line < 4; line++ {
		if got := r.LineStartOffset(line); got != starts[line] {
			t.Errorf("LineStartOffset(%d) = %d, want %d", line, got, starts[line])
		}
		if got := r.LineEndOffset(line); got != ends[line] {
			t.Errorf("LineEndOffset(%d) = %d, want %d", line, got, ends[line])
		}
	}
}

func TestLineText(t *testing.T) {
	r := FromString("one\ntwo\nthree")

	for i, want := range []string{"one", "two", "three"} {
		if got := r.LineText(uint32(i)); got != want {
			t.Errorf("LineText(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestTrailingNewline(t *testing.T) {
	r := FromString("line\n")

	if r.LineCount() != 2 {
		t.Errorf("expected 2 lines, got %d", r.LineCount())
	}
	if r.LineText(1) != "" {
		t.Errorf("final line should be empty, got %q", r.LineText(1))
	}
}

func TestOffsetToPoint(t *testing.T) {
	r := FromString("ab\ncdef\n\nghi")

	tests := []struct {
		offset int64
		want   Point
	}{
		{0, Point{0, 0}},
		{2, Point{0, 2}},
		{3, Point{1, 0}},
		{7, Point{1, 4}},
		{8, Point{2, 0}},
		{9, Point{3, 0}},
		{12, Point{3, 3}},
	}
	for _, tt := range tests {
		if got := r.OffsetToPoint(tt.offset); got != tt.want {
			t.Errorf("OffsetToPoint(%d) = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestPointOffsetRoundTrip(t *testing.T) {
	r := FromString("ab\ncdef\n\nghi\n")

	for offset := int64(0); offset <= r.Len(); offset++ {
		p := r.OffsetToPoint(offset)
		if back := r.PointToOffset(p); back != offset {
			t.Errorf("offset %d -> %v -> %d", offset, p, back)
		}
	}
}

func TestPointToOffsetClampsColumn(t *testing.T) {
	r := FromString("ab\ncd")

	if got := r.PointToOffset(Point{Line: 0, Column: 99}); got != 2 {
		t.Errorf("expected clamp to line end 2, got %d", got)
	}
	if got := r.PointToOffset(Point{Line: 9, Column: 0}); got != r.Len() {
		t.Errorf("expected clamp to Len, got %d", got)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	r1 := FromString("original")
	r2 := r1.Insert(8, " extended")

	if r1.String() != "original" {
		t.Errorf("original rope mutated: %q", r1.String())
	}
	if r2.String() != "original extended" {
		t.Errorf("got %q", r2.String())
	}
}

func TestUTF8ChunkBoundaries(t *testing.T) {
	// Multi-byte runes across forced chunk splits must stay intact.
	text := strings.Repeat("héllo wörld ", 2000)
	r := FromString(text)

	if r.String() != text {
		t.Error("UTF-8 round-trip mismatch")
	}
	for _, c := range r.chunks {
		if !utf8Start(c.data[0]) {
			t.Fatal("chunk begins mid-rune")
		}
	}
}

func TestRandomEditsAgainstReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ref := []byte("seed text\nwith lines\n")
	r := FromString(string(ref))

	for i := 0; i < 500; i++ {
		if rng.Intn(2) == 0 || len(ref) == 0 {
			pos := rng.Intn(len(ref) + 1)
			ins := strings.Repeat("ab\n", rng.Intn(4)+1)
			ref = append(ref[:pos], append([]byte(ins), ref[pos:]...)...)
			r = r.Insert(int64(pos), ins)
		} else {
			start := rng.Intn(len(ref))
			end := start + rng.Intn(len(ref)-start)
			ref = append(ref[:start], ref[end:]...)
			r = r.Delete(int64(start), int64(end))
		}

		if r.String() != string(ref) {
			t.Fatalf("divergence after %d edits", i+1)
		}
		wantLines := uint32(strings.Count(string(ref), "\n")) + 1
		if r.LineCount() != wantLines {
			t.Fatalf("line count %d, want %d", r.LineCount(), wantLines)
		}
	}
}
