package buffer

import (
	"errors"
	"strings"
	"testing"
)

func TestNewBuffer(t *testing.T) {
	b := New()

	if !b.IsEmpty() {
		t.Error("new buffer should be empty")
	}
	if b.Len() != 0 {
		t.Errorf("expected length 0, got %d", b.Len())
	}
	if b.LineCount() != 1 {
		t.Errorf("expected 1 line, got %d", b.LineCount())
	}
}

func TestFromString(t *testing.T) {
	b := FromString("line1\nline2\nline3")

	if b.LineCount() != 3 {
		t.Errorf("expected 3 lines, got %d", b.LineCount())
	}
	for i, want := range []string{"line1", "line2", "line3"} {
		got, err := b.LineText(uint32(i))
		if err != nil {
			t.Fatalf("LineText(%d): %v", i, err)
		}
		if got != want {
			t.Errorf("LineText(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestFromStringNormalizesCRLF(t *testing.T) {
	b := FromString("a\r\nb\r\nc")

	if b.Text() != "a\nb\nc" {
		t.Errorf("expected normalized content, got %q", b.Text())
	}
	if b.LineEnding() != LineEndingCRLF {
		t.Error("source line ending style should be recorded")
	}
}

func TestInsert(t *testing.T) {
	b := FromString("Hello World")

	if err := b.Insert(5, ","); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if b.Text() != "Hello, World" {
		t.Errorf("got %q", b.Text())
	}
}

func TestInsertOutOfRange(t *testing.T) {
	b := FromString("Hello")

	if err := b.Insert(100, "X"); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Errorf("expected ErrOffsetOutOfRange, got %v", err)
	}
	if err := b.Insert(-1, "X"); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Errorf("expected ErrOffsetOutOfRange, got %v", err)
	}
	if b.Text() != "Hello" {
		t.Error("failed insert must not modify the buffer")
	}
}

func TestDelete(t *testing.T) {
	b := FromString("Hello, World!")

	if err := b.Delete(5, 2); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if b.Text() != "HelloWorld!" {
		t.Errorf("got %q", b.Text())
	}
}

func TestDeletePastEndFails(t *testing.T) {
	// Policy: ranges past the end fail, they are not clamped.
	b := FromString("Hello")

	if err := b.Delete(3, 100); !errors.Is(err, ErrRangeInvalid) {
		t.Errorf("expected ErrRangeInvalid, got %v", err)
	}
	if err := b.Delete(0, -1); !errors.Is(err, ErrRangeInvalid) {
		t.Errorf("expected ErrRangeInvalid, got %v", err)
	}
	if b.Text() != "Hello" {
		t.Error("failed delete must not modify the buffer")
	}
}

func TestSlice(t *testing.T) {
	b := FromString("Hello, World")

	got, err := b.Slice(7, 12)
	if err != nil {
		t.Fatalf("slice failed: %v", err)
	}
	if got != "World" {
		t.Errorf("got %q", got)
	}

	if _, err := b.Slice(5, 100); !errors.Is(err, ErrRangeInvalid) {
		t.Errorf("expected ErrRangeInvalid, got %v", err)
	}
}

func TestLineRange(t *testing.T) {
	b := FromString("ab\ncdef\ng")

	r, err := b.LineRange(1)
	if err != nil {
		t.Fatalf("LineRange failed: %v", err)
	}
	if r.Start != 3 || r.End != 7 {
		t.Errorf("LineRange(1) = %v, want [3,7)", r)
	}

	if _, err := b.LineRange(3); !errors.Is(err, ErrLineOutOfRange) {
		t.Errorf("expected ErrLineOutOfRange, got %v", err)
	}
}

func TestOffsetPointRoundTrip(t *testing.T) {
	b := FromString("ab\ncdef\n\nghi")

	for offset := ByteOffset(0); offset <= b.Len(); offset++ {
		p, err := b.OffsetToPoint(offset)
		if err != nil {
			t.Fatalf("OffsetToPoint(%d): %v", offset, err)
		}
		back, err := b.PointToOffset(p)
		if err != nil {
			t.Fatalf("PointToOffset(%v): %v", p, err)
		}
		if back != offset {
			t.Errorf("offset %d -> %v -> %d", offset, p, back)
		}
	}
}

func TestOffsetToPointOutOfRange(t *testing.T) {
	b := FromString("abc")

	if _, err := b.OffsetToPoint(4); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Errorf("expected ErrOffsetOutOfRange, got %v", err)
	}
}

func TestChangeNotification(t *testing.T) {
	b := FromString("hello")

	var changes []Change
	b.OnChange(func(c Change) {
		changes = append(changes, c)
	})

	if err := b.Insert(5, " world"); err != nil {
		t.Fatal(err)
	}
	if err := b.Delete(0, 5); err != nil {
		t.Fatal(err)
	}

	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}

	ins := changes[0]
	if ins.Offset != 5 || ins.OldLen() != 0 || ins.NewText != " world" {
		t.Errorf("unexpected insert change: %+v", ins)
	}

	del := changes[1]
	if del.Offset != 0 || del.OldText != "hello" || del.NewLen() != 0 {
		t.Errorf("unexpected delete change: %+v", del)
	}

	if ins.Revision >= del.Revision {
		t.Error("revisions must advance monotonically")
	}
}

func TestFailedEditEmitsNoChange(t *testing.T) {
	b := FromString("hello")

	called := false
	b.OnChange(func(Change) { called = true })

	_ = b.Insert(100, "x")
	if called {
		t.Error("failed edit must not notify listeners")
	}
}

func TestChangeInverseRoundTrip(t *testing.T) {
	b := FromString("foo bar baz")
	before := b.Text()

	change, err := b.Apply(Edit{Range: Range{Start: 4, End: 7}, NewText: "qux"})
	if err != nil {
		t.Fatal(err)
	}
	if b.Text() != "foo qux baz" {
		t.Errorf("got %q", b.Text())
	}

	if _, err := b.Apply(change.Inverse()); err != nil {
		t.Fatal(err)
	}
	if b.Text() != before {
		t.Errorf("inverse did not restore content: %q", b.Text())
	}
}

func TestSnapshotUnaffectedByEdits(t *testing.T) {
	b := FromString("stable")
	snap := b.Snapshot()

	if err := b.Insert(6, " changed"); err != nil {
		t.Fatal(err)
	}

	if snap.Text() != "stable" {
		t.Errorf("snapshot changed: %q", snap.Text())
	}
	if snap.Revision() == b.Revision() {
		t.Error("snapshot revision should lag the edited buffer")
	}
}

func TestLargeBufferEdits(t *testing.T) {
	text := strings.Repeat("0123456789\n", 100000) // ~1.1 MB
	b := FromString(text)

	mid := b.Len() / 2
	if err := b.Insert(mid, "X"); err != nil {
		t.Fatal(err)
	}
	if err := b.Delete(mid, 1); err != nil {
		t.Fatal(err)
	}
	if b.Len() != ByteOffset(len(text)) {
		t.Errorf("length drifted: %d vs %d", b.Len(), len(text))
	}
	if b.LineCount() != 100001 {
		t.Errorf("line count %d", b.LineCount())
	}
}
