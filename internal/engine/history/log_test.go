package history

import (
	"testing"
	"time"

	"github.com/dshills/subtext/internal/engine/buffer"
)

// record applies an edit to b and records the resulting change.
func record(t *testing.T, l *Log, b *buffer.Buffer, e buffer.Edit) {
	t.Helper()
	c, err := b.Apply(e)
	if err != nil {
		t.Fatalf("apply %v: %v", e, err)
	}
	l.Record(c)
}

// apply runs a batch of undo/redo edits against the buffer.
func apply(t *testing.T, b *buffer.Buffer, edits []buffer.Edit) {
	t.Helper()
	for _, e := range edits {
		if _, err := b.Apply(e); err != nil {
			t.Fatalf("apply %v: %v", e, err)
		}
	}
}

func TestUndoEmptyIsNoop(t *testing.T) {
	l := NewLog()

	if _, ok := l.Undo(); ok {
		t.Error("undo on empty log should report nothing to undo")
	}
	if _, ok := l.Redo(); ok {
		t.Error("redo on empty log should report nothing to redo")
	}
}

func TestUndoRestoresContent(t *testing.T) {
	b := buffer.FromString("hello")
	l := NewLog()

	record(t, l, b, buffer.NewInsert(5, " world"))
	if b.Text() != "hello world" {
		t.Fatalf("got %q", b.Text())
	}

	edits, ok := l.Undo()
	if !ok {
		t.Fatal("expected undo")
	}
	apply(t, b, edits)

	if b.Text() != "hello" {
		t.Errorf("undo did not restore content: %q", b.Text())
	}

	edits, ok = l.Redo()
	if !ok {
		t.Fatal("expected redo")
	}
	apply(t, b, edits)

	if b.Text() != "hello world" {
		t.Errorf("redo did not reapply edit: %q", b.Text())
	}
}

func TestRecordTruncatesRedoTail(t *testing.T) {
	b := buffer.FromString("")
	l := NewLog(WithCoalesceWindow(0)) // disable coalescing

	record(t, l, b, buffer.NewInsert(0, "a"))
	record(t, l, b, buffer.NewInsert(1, "b"))

	edits, _ := l.Undo()
	apply(t, b, edits)

	if !l.CanRedo() {
		t.Fatal("redo should be available after undo")
	}

	record(t, l, b, buffer.NewInsert(1, "c"))

	if l.CanRedo() {
		t.Error("new edit must discard the redo tail")
	}
}

func TestCoalescesTypingRun(t *testing.T) {
	b := buffer.FromString("")
	l := NewLog()

	record(t, l, b, buffer.NewInsert(0, "f"))
	record(t, l, b, buffer.NewInsert(1, "o"))
	record(t, l, b, buffer.NewInsert(2, "o"))

	if n := l.UndoCount(); n != 1 {
		t.Fatalf("typing run should coalesce to 1 unit, got %d", n)
	}

	edits, _ := l.Undo()
	apply(t, b, edits)

	if b.Text() != "" {
		t.Errorf("single undo should remove the whole run, got %q", b.Text())
	}
}

func TestNewlineStartsNewUnit(t *testing.T) {
	b := buffer.FromString("")
	l := NewLog()

	record(t, l, b, buffer.NewInsert(0, "a"))
	record(t, l, b, buffer.NewInsert(1, "\n"))
	record(t, l, b, buffer.NewInsert(2, "b"))

	if n := l.UndoCount(); n != 3 {
		t.Errorf("newline should break coalescing, got %d units", n)
	}
}

func TestNonContiguousInsertStartsNewUnit(t *testing.T) {
	b := buffer.FromString("xxxx")
	l := NewLog()

	record(t, l, b, buffer.NewInsert(4, "a"))
	record(t, l, b, buffer.NewInsert(0, "b")) // cursor jumped

	if n := l.UndoCount(); n != 2 {
		t.Errorf("cursor jump should break coalescing, got %d units", n)
	}
}

func TestCoalesceWindowExpires(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }

	b := buffer.FromString("")
	l := NewLog(WithClock(clock))

	record(t, l, b, buffer.NewInsert(0, "a"))
	now = now.Add(2 * time.Second)
	record(t, l, b, buffer.NewInsert(1, "b"))

	if n := l.UndoCount(); n != 2 {
		t.Errorf("stale keystroke should start a new unit, got %d units", n)
	}
}

func TestCoalesceMaxBytes(t *testing.T) {
	b := buffer.FromString("")
	l := NewLog(WithCoalesceMaxBytes(3))

	for i := 0; i < 5; i++ {
		record(t, l, b, buffer.NewInsert(buffer.ByteOffset(i), "x"))
	}

	if n := l.UndoCount(); n != 2 {
		t.Errorf("expected 2 units under 3-byte cap, got %d", n)
	}
}

func TestCoalescesBackspaceRun(t *testing.T) {
	b := buffer.FromString("abc")
	l := NewLog()

	record(t, l, b, buffer.NewDelete(2, 3))
	record(t, l, b, buffer.NewDelete(1, 2))
	record(t, l, b, buffer.NewDelete(0, 1))

	if n := l.UndoCount(); n != 1 {
		t.Fatalf("backspace run should coalesce to 1 unit, got %d", n)
	}

	edits, _ := l.Undo()
	apply(t, b, edits)

	if b.Text() != "abc" {
		t.Errorf("single undo should restore the whole run, got %q", b.Text())
	}
}

func TestCoalescesForwardDeleteRun(t *testing.T) {
	b := buffer.FromString("abc")
	l := NewLog()

	record(t, l, b, buffer.NewDelete(0, 1))
	record(t, l, b, buffer.NewDelete(0, 1))

	if n := l.UndoCount(); n != 1 {
		t.Fatalf("forward-delete run should coalesce to 1 unit, got %d", n)
	}

	edits, _ := l.Undo()
	apply(t, b, edits)

	if b.Text() != "abc" {
		t.Errorf("got %q", b.Text())
	}
}

func TestGroupIsOneUndoUnit(t *testing.T) {
	b := buffer.FromString("foo bar foo")
	l := NewLog()

	l.BeginGroup()
	// Replacements applied back-to-front, as replace-all does.
	record(t, l, b, buffer.Edit{Range: buffer.Range{Start: 8, End: 11}, NewText: "baz"})
	record(t, l, b, buffer.Edit{Range: buffer.Range{Start: 0, End: 3}, NewText: "baz"})
	l.EndGroup()

	if b.Text() != "baz bar baz" {
		t.Fatalf("got %q", b.Text())
	}
	if n := l.UndoCount(); n != 1 {
		t.Fatalf("group should be a single unit, got %d", n)
	}

	edits, _ := l.Undo()
	apply(t, b, edits)

	if b.Text() != "foo bar foo" {
		t.Errorf("group undo should restore everything: %q", b.Text())
	}

	edits, _ = l.Redo()
	apply(t, b, edits)

	if b.Text() != "baz bar baz" {
		t.Errorf("group redo should reapply everything: %q", b.Text())
	}
}

func TestEmptyGroupRecordsNothing(t *testing.T) {
	l := NewLog()

	l.BeginGroup()
	l.EndGroup()

	if l.CanUndo() {
		t.Error("empty group should not create an undo unit")
	}
}

func TestMaxEntriesDropsOldest(t *testing.T) {
	b := buffer.FromString("")
	l := NewLog(WithMaxEntries(2), WithCoalesceWindow(0))

	record(t, l, b, buffer.NewInsert(0, "a"))
	record(t, l, b, buffer.NewInsert(1, "b"))
	record(t, l, b, buffer.NewInsert(2, "c"))

	if n := l.UndoCount(); n != 2 {
		t.Errorf("expected bounded depth 2, got %d", n)
	}
}

func TestClear(t *testing.T) {
	b := buffer.FromString("")
	l := NewLog()

	record(t, l, b, buffer.NewInsert(0, "a"))
	l.Clear()

	if l.CanUndo() || l.CanRedo() {
		t.Error("clear should drop all state")
	}
}
