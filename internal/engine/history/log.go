package history

import (
	"strings"
	"sync"
	"time"

	"github.com/dshills/subtext/internal/engine/buffer"
)

// Coalescing defaults. Tests pin these values; they are overridable
// through options.
const (
	DefaultCoalesceWindow   = time.Second
	DefaultCoalesceMaxBytes = 64
	DefaultMaxEntries       = 1000
)

// unit is one undo/redo step: a single operation or a coalesced or
// grouped sequence, applied in order and reverted in reverse order.
type unit struct {
	ops []*Operation
}

func (u *unit) last() *Operation {
	return u.ops[len(u.ops)-1]
}

// Log records edits for one buffer. Recording a new edit truncates the
// redo tail. Undo and redo on an empty log are no-ops, not errors.
type Log struct {
	mu sync.Mutex

	undoStack []*unit
	redoStack []*unit

	grouping bool
	group    *unit

	coalesceWindow   time.Duration
	coalesceMaxBytes int
	maxEntries       int
	now              func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithCoalesceWindow sets the maximum time between keystrokes that may
// merge into one undo unit.
func WithCoalesceWindow(d time.Duration) Option {
	return func(l *Log) { l.coalesceWindow = d }
}

// WithCoalesceMaxBytes caps the size of a coalesced undo unit.
func WithCoalesceMaxBytes(n int) Option {
	return func(l *Log) { l.coalesceMaxBytes = n }
}

// WithMaxEntries bounds the undo depth; oldest units are dropped.
func WithMaxEntries(n int) Option {
	return func(l *Log) { l.maxEntries = n }
}

// WithClock overrides the time source. Used by tests to exercise the
// coalescing window.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// NewLog creates an undo log.
func NewLog(opts ...Option) *Log {
	l := &Log{
		coalesceWindow:   DefaultCoalesceWindow,
		coalesceMaxBytes: DefaultCoalesceMaxBytes,
		maxEntries:       DefaultMaxEntries,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record adds a change to the log and truncates the redo tail.
func (l *Log) Record(c buffer.Change) {
	if c.OldText == "" && c.NewText == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	at := l.now()
	op := operationFromChange(c, at)

	l.redoStack = nil

	if l.grouping {
		l.group.ops = append(l.group.ops, op)
		return
	}

	if l.tryCoalesce(op, at) {
		return
	}

	l.pushLocked(&unit{ops: []*Operation{op}})
}

// tryCoalesce merges op into the top undo unit when it continues a run
// of keystroke-sized edits. Returns true if merged.
func (l *Log) tryCoalesce(op *Operation, at time.Time) bool {
	if len(l.undoStack) == 0 {
		return false
	}
	top := l.undoStack[len(l.undoStack)-1]
	if len(top.ops) != 1 {
		return false
	}
	prev := top.last()
	if at.Sub(prev.LastAt) > l.coalesceWindow {
		return false
	}

	switch {
	case op.IsInsert() && prev.IsInsert():
		// Typing: each insert begins where the previous one ended.
		if !singleRune(op.NewText) || op.NewText == "\n" {
			return false
		}
		if strings.HasSuffix(prev.NewText, "\n") {
			return false
		}
		if op.Offset != prev.Offset+ByteOffset(len(prev.NewText)) {
			return false
		}
		if len(prev.NewText)+len(op.NewText) > l.coalesceMaxBytes {
			return false
		}
		prev.NewText += op.NewText
		prev.LastAt = at
		return true

	case op.IsDelete() && prev.IsDelete():
		if !singleRune(op.OldText) || op.OldText == "\n" {
			return false
		}
		if len(prev.OldText)+len(op.OldText) > l.coalesceMaxBytes {
			return false
		}
		switch {
		case op.Offset+ByteOffset(len(op.OldText)) == prev.Offset:
			// Backspace run: deletions walk backwards.
			prev.Offset = op.Offset
			prev.OldText = op.OldText + prev.OldText
			prev.LastAt = at
			return true
		case op.Offset == prev.Offset:
			// Forward-delete run: deletions stay in place.
			prev.OldText += op.OldText
			prev.LastAt = at
			return true
		}
	}
	return false
}

func (l *Log) pushLocked(u *unit) {
	l.undoStack = append(l.undoStack, u)
	if len(l.undoStack) > l.maxEntries {
		excess := len(l.undoStack) - l.maxEntries
		l.undoStack = l.undoStack[excess:]
	}
}

// Undo pops the most recent unit and returns the edits that revert it,
// in application order. Returns false when there is nothing to undo.
func (l *Log) Undo() ([]buffer.Edit, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.undoStack) == 0 {
		return nil, false
	}
	u := l.undoStack[len(l.undoStack)-1]
	l.undoStack = l.undoStack[:len(l.undoStack)-1]
	l.redoStack = append(l.redoStack, u)

	edits := make([]buffer.Edit, 0, len(u.ops))
	for i := len(u.ops) - 1; i >= 0; i-- {
		edits = append(edits, u.ops[i].UndoEdit())
	}
	return edits, true
}

// Redo reapplies the most recently undone unit. Returns false when the
// redo tail is empty.
func (l *Log) Redo() ([]buffer.Edit, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.redoStack) == 0 {
		return nil, false
	}
	u := l.redoStack[len(l.redoStack)-1]
	l.redoStack = l.redoStack[:len(l.redoStack)-1]
	l.undoStack = append(l.undoStack, u)

	edits := make([]buffer.Edit, 0, len(u.ops))
	for _, op := range u.ops {
		edits = append(edits, op.RedoEdit())
	}
	return edits, true
}

// BeginGroup starts collecting subsequent records into one undo unit.
// Nested calls are ignored.
func (l *Log) BeginGroup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.grouping {
		return
	}
	l.grouping = true
	l.group = &unit{}
}

// EndGroup closes the current group. An empty group records nothing.
func (l *Log) EndGroup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.grouping {
		return
	}
	l.grouping = false
	if len(l.group.ops) > 0 {
		l.pushLocked(l.group)
	}
	l.group = nil
}

// CanUndo returns true if undo is available.
func (l *Log) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (l *Log) CanRedo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.redoStack) > 0
}

// UndoCount returns the number of undo units available.
func (l *Log) UndoCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.undoStack)
}

// Clear removes all undo/redo state.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.undoStack = nil
	l.redoStack = nil
	l.grouping = false
	l.group = nil
}
