package document

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/subtext/internal/engine/buffer"
	"github.com/dshills/subtext/internal/engine/history"
	"github.com/dshills/subtext/internal/event"
	"github.com/dshills/subtext/internal/fileio"
	"github.com/dshills/subtext/internal/highlight"
	"github.com/dshills/subtext/internal/search"
)

func TestNewDocumentIsEmptyAndClean(t *testing.T) {
	d := New()
	if d.Buffer().Len() != 0 {
		t.Error("new document should be empty")
	}
	if d.Dirty() {
		t.Error("new document should be clean")
	}
	if d.Path() != "" {
		t.Errorf("path = %q", d.Path())
	}
	if d.DisplayName() != "untitled" {
		t.Errorf("display name = %q", d.DisplayName())
	}
}

func TestOpenDetectsLanguageAndStaysClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.go")
	if err := os.WriteFile(path, []byte("package main\n"), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if d.Language().Name != "go" {
		t.Errorf("language = %q", d.Language().Name)
	}
	if d.Dirty() {
		t.Error("freshly opened document should be clean")
	}
	if d.DisplayName() != "main.go" {
		t.Errorf("display name = %q", d.DisplayName())
	}
}

func TestEditMarksDirtySaveClears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := d.InsertText(5, " world"); err != nil {
		t.Fatal(err)
	}
	if !d.Dirty() {
		t.Fatal("edit should mark the document dirty")
	}

	if err := d.Save(); err != nil {
		t.Fatal(err)
	}
	if d.Dirty() {
		t.Error("save should clear the dirty flag")
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world\n" {
		t.Errorf("saved content = %q", got)
	}
}

func TestSaveWithoutPathFails(t *testing.T) {
	d := New()
	if err := d.Save(); !errors.Is(err, ErrNoPath) {
		t.Errorf("expected ErrNoPath, got %v", err)
	}
}

func TestSaveAsBindsPathAndRedetectsLanguage(t *testing.T) {
	d := New()
	if err := d.InsertText(0, "# heading\n"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "readme.md")
	if err := d.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	if d.Path() != path {
		t.Errorf("path = %q", d.Path())
	}
	if d.Language().Name != "markdown" {
		t.Errorf("language = %q", d.Language().Name)
	}
	if d.Dirty() {
		t.Error("save-as should leave the document clean")
	}
}

func TestSavePreservesEncodingAndLineEnding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dos.txt")
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a\r\nb\r\n")...)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatal(err)
	}

	d, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if d.Encoding() != fileio.EncodingUTF8BOM {
		t.Fatalf("encoding = %v", d.Encoding())
	}
	if d.Buffer().Text() != "a\nb\n" {
		t.Fatalf("internal form should be LF, got %q", d.Buffer().Text())
	}

	if err := d.Save(); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(raw) {
		t.Errorf("unmodified save should be byte-identical, got %v", got)
	}
}

func TestUndoRedoByteIdentity(t *testing.T) {
	// Coalescing off so every edit is its own undo unit and the state
	// walk below lines up one to one.
	d := New(WithUndoOptions(history.WithCoalesceMaxBytes(0)))
	if err := d.InsertText(0, "the quick brown fox\n"); err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(7))
	var states []string
	states = append(states, d.Buffer().Text())

	for i := 0; i < 30; i++ {
		n := d.Buffer().Len()
		switch rng.Intn(2) {
		case 0:
			off := buffer.ByteOffset(rng.Intn(int(n) + 1))
			if err := d.InsertText(off, "ab\n"); err != nil {
				t.Fatal(err)
			}
		case 1:
			if n == 0 {
				continue
			}
			start := buffer.ByteOffset(rng.Intn(int(n)))
			end := start + 1
			if err := d.DeleteRange(start, end); err != nil {
				t.Fatal(err)
			}
		}
		states = append(states, d.Buffer().Text())
	}

	// Walk all the way back, checking byte identity at every step.
	for i := len(states) - 2; i >= 0; i-- {
		ok, err := d.Undo()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("undo exhausted early at state %d", i)
		}
		if d.Buffer().Text() != states[i] {
			t.Fatalf("undo to state %d: got %q want %q", i, d.Buffer().Text(), states[i])
		}
	}

	// And forward again.
	for i := 1; i < len(states); i++ {
		ok, err := d.Redo()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("redo exhausted early at state %d", i)
		}
		if d.Buffer().Text() != states[i] {
			t.Fatalf("redo to state %d: got %q want %q", i, d.Buffer().Text(), states[i])
		}
	}
}

func TestUndoOnEmptyLogIsNoop(t *testing.T) {
	d := New()
	ok, err := d.Undo()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("undo on an empty log should report false")
	}
}

func TestUndoMakesDocumentDirty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	d, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := d.InsertText(1, "y"); err != nil {
		t.Fatal(err)
	}
	if err := d.Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Undo(); err != nil {
		t.Fatal(err)
	}
	if !d.Dirty() {
		t.Error("undo past the saved revision should mark dirty")
	}
}

func TestSearchReplaceAllRoutesThroughUndo(t *testing.T) {
	d := New()
	if err := d.InsertText(0, "foo bar foo"); err != nil {
		t.Fatal(err)
	}

	// Separate unit from the insert: replaceAll runs in a group.
	count, err := d.Search().ReplaceAll("foo", "baz", search.Options{CaseSensitive: true})
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 || d.Buffer().Text() != "baz bar baz" {
		t.Fatalf("count=%d text=%q", count, d.Buffer().Text())
	}

	ok, err := d.Undo()
	if err != nil || !ok {
		t.Fatalf("undo: %v %v", ok, err)
	}
	if d.Buffer().Text() != "foo bar foo" {
		t.Errorf("one undo should revert the whole replaceAll, got %q", d.Buffer().Text())
	}
}

func TestRestoreIsDirty(t *testing.T) {
	d := Restore(NewID(), "/somewhere/lost.txt", "recovered content")
	if !d.Dirty() {
		t.Error("restored document must be dirty until saved")
	}
	if d.Buffer().Text() != "recovered content" {
		t.Errorf("text = %q", d.Buffer().Text())
	}
}

// The saving announcement carries the path and precedes the disk
// write, so a file watcher marking self-writes sees it in time.
func TestSaveAnnouncesBeforeWriting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	bus := event.NewBus()
	var order []string
	bus.Subscribe(event.TopicDocumentSaving, func(_ event.Topic, payload any) {
		if payload.(string) != path {
			t.Errorf("saving payload = %v, want %q", payload, path)
		}
		order = append(order, "saving")
	})
	bus.Subscribe(event.TopicDocumentSaved, func(_ event.Topic, _ any) {
		order = append(order, "saved")
	})

	d, err := Open(path, WithBus(bus))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.InsertText(5, "!"); err != nil {
		t.Fatal(err)
	}
	if err := d.Save(); err != nil {
		t.Fatal(err)
	}

	if len(order) != 2 || order[0] != "saving" || order[1] != "saved" {
		t.Errorf("event order = %v, want [saving saved]", order)
	}
}

func TestChangeEventsReachTheBus(t *testing.T) {
	bus := event.NewBus()
	var changes []BufferChanged
	bus.Subscribe(event.TopicBufferChanged, func(_ event.Topic, payload any) {
		changes = append(changes, payload.(BufferChanged))
	})

	d := New(WithBus(bus))
	if err := d.InsertText(0, "hi"); err != nil {
		t.Fatal(err)
	}

	if len(changes) != 1 {
		t.Fatalf("expected 1 change event, got %d", len(changes))
	}
	if changes[0].Doc != d.ID() || changes[0].Change.NewText != "hi" {
		t.Errorf("payload = %+v", changes[0])
	}
}

func TestEditsFeedHighlighter(t *testing.T) {
	d := New()
	d.SetLanguage(highlight.Lookup("go"))

	if err := d.InsertText(0, "func main() {}\n"); err != nil {
		t.Fatal(err)
	}

	toks := d.Highlighter().TokensForLine(d.Buffer().Snapshot(), 0)
	found := false
	for _, tok := range toks {
		if tok.Type == highlight.TokenKeyword {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a keyword token, got %v", toks)
	}
}
