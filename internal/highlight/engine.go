package highlight

import (
	"context"
	"strings"
	"sync"

	"github.com/dshills/subtext/internal/engine/buffer"
)

// Engine tokenizes one document incrementally. It caches per-line
// token spans and the lexer state at the end of every scanned line.
// After an edit, re-scanning starts at the first modified line and
// stops as soon as a line's incoming state matches the previous run,
// so a localized edit re-tokenizes only its own neighborhood; the
// whole tail is re-scanned only when a multi-line construct boundary
// actually moved.
//
// The engine is fed changes by the document owner and reads text from
// buffer snapshots, so a background pass can never observe a buffer
// mid-mutation. Results computed from a superseded snapshot are
// discarded, not applied.
type Engine struct {
	mu   sync.Mutex
	lang *Language
	rev  buffer.Revision

	// states[l] is the lexer state at the end of line l; lines
	// [0, len(states)) are scanned and their spans are in tokens.
	states []LexerState
	tokens map[uint32][]span

	// pred holds the previous run's end states for the lines after an
	// edit, already shifted to their new line numbers. It drives the
	// propagation-stop check and is dropped on the next edit.
	pred           []LexerState
	predStart      uint32
	predIncoming   LexerState
	predIncomingOK bool
}

// NewEngine creates an engine for the given language table. A nil
// language means plain text.
func NewEngine(lang *Language) *Engine {
	if lang == nil {
		lang = Plain
	}
	return &Engine{lang: lang, tokens: make(map[uint32][]span)}
}

// Language returns the active language table.
func (e *Engine) Language() *Language {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lang
}

// SetLanguage switches the language table and discards all cached
// state.
func (e *Engine) SetLanguage(lang *Language) {
	if lang == nil {
		lang = Plain
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lang = lang
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.states = e.states[:0]
	e.tokens = make(map[uint32][]span)
	e.pred = nil
	e.predIncomingOK = false
}

// Invalidate discards cached state from line on. Conservative callers
// may invalidate more than necessary; ApplyChange is the precise path.
func (e *Engine) Invalidate(from uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if from < uint32(len(e.states)) {
		e.states = e.states[:from]
	}
	for l := range e.tokens {
		if l >= from {
			delete(e.tokens, l)
		}
	}
	e.pred = nil
	e.predIncomingOK = false
}

// ApplyChange invalidates the edited region and shifts cached lines
// below it to their new positions. snap must be the snapshot taken
// after the change was applied.
func (e *Engine) ApplyChange(c buffer.Change, snap *buffer.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rev = c.Revision

	startLine := snap.OffsetToPoint(c.Offset).Line
	oldNL := uint32(strings.Count(c.OldText, "\n"))
	newNL := uint32(strings.Count(c.NewText, "\n"))
	oldEndLine := startLine + oldNL
	newEndLine := startLine + newNL
	delta := int64(newNL) - int64(oldNL)

	// A new edit supersedes any pending prediction.
	e.pred = nil
	e.predIncomingOK = false

	if startLine < uint32(len(e.states)) {
		tailStart := oldEndLine + 1
		if tailStart < uint32(len(e.states)) {
			e.pred = append([]LexerState(nil), e.states[tailStart:]...)
			e.predStart = newEndLine + 1
			e.predIncoming = e.states[oldEndLine]
			e.predIncomingOK = true
		}
		e.states = e.states[:startLine]
	}

	// Shift span cache entries past the edit; drop edited lines.
	shifted := make(map[uint32][]span, len(e.tokens))
	for l, sp := range e.tokens {
		switch {
		case l < startLine:
			shifted[l] = sp
		case l <= oldEndLine:
			// edited region, discard
		default:
			shifted[uint32(int64(l)+delta)] = sp
		}
	}
	e.tokens = shifted
}

// TokensForLine returns the ordered token spans covering line, with
// absolute byte offsets. Lines outside the snapshot return nil.
func (e *Engine) TokensForLine(snap *buffer.Snapshot, line uint32) []Token {
	if line >= snap.LineCount() {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.syncLocked(snap)
	e.ensureLocked(snap, line)

	spans := e.tokens[line]
	if len(spans) == 0 {
		return nil
	}
	base := snap.LineStartOffset(line)
	out := make([]Token, len(spans))
	for i, sp := range spans {
		out[i] = Token{
			Start: base + buffer.ByteOffset(sp.start),
			End:   base + buffer.ByteOffset(sp.end),
			Type:  sp.typ,
		}
	}
	return out
}

// LineState returns the lexer state carried out of line, scanning up
// to it if needed.
func (e *Engine) LineState(snap *buffer.Snapshot, line uint32) LexerState {
	if line >= snap.LineCount() {
		return StateNormal
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.syncLocked(snap)
	e.ensureLocked(snap, line)

	if line < uint32(len(e.states)) {
		return e.states[line]
	}
	return StateNormal
}

// ScannedLines reports how many leading lines have cached results.
func (e *Engine) ScannedLines() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint32(len(e.states))
}

// syncLocked resynchronizes with a snapshot the engine has not been
// told about. The owner normally feeds every change through
// ApplyChange, making this a no-op.
func (e *Engine) syncLocked(snap *buffer.Snapshot) {
	if snap.Revision() != e.rev {
		e.resetLocked()
		e.rev = snap.Revision()
	}
}

// ensureLocked scans lines until target has cached results, adopting
// the previous run's tail as soon as the carried state stabilizes.
func (e *Engine) ensureLocked(snap *buffer.Snapshot, target uint32) {
	lineCount := snap.LineCount()
	if uint32(len(e.states)) > lineCount {
		// Defensive: document shrank without a change notification.
		e.states = e.states[:lineCount]
	}

	for uint32(len(e.states)) <= target {
		l := uint32(len(e.states))
		if l >= lineCount {
			return
		}

		if e.adoptLocked(l) {
			continue
		}

		in := StateNormal
		if l > 0 {
			in = e.states[l-1]
		}
		spans, end := scanLine(e.lang, snap.LineText(l), in)
		e.tokens[l] = spans
		e.states = append(e.states, end)
	}
}

// adoptLocked applies the propagation-stop rule at line l: when l's
// incoming state equals the previous run's, every following predicted
// line is still valid and is adopted without re-scanning. Returns true
// if states were adopted.
func (e *Engine) adoptLocked(l uint32) bool {
	if e.pred == nil || l < e.predStart {
		return false
	}
	k := l - e.predStart
	if k >= uint32(len(e.pred)) {
		e.pred = nil
		e.predIncomingOK = false
		return false
	}

	var oldIn LexerState
	ok := false
	if k == 0 {
		oldIn, ok = e.predIncoming, e.predIncomingOK
	} else {
		oldIn, ok = e.pred[k-1], true
	}
	if !ok {
		return false
	}

	cur := StateNormal
	if l > 0 {
		cur = e.states[l-1]
	}
	if cur != oldIn {
		return false
	}

	e.states = append(e.states, e.pred[k:]...)
	e.pred = nil
	e.predIncomingOK = false
	return true
}

// warmChunkLines is how many lines a background pass scans between
// cancellation checks.
const warmChunkLines = 256

// Warm runs a full background tokenization of snap and installs the
// result only if the buffer has not moved past the snapshot's
// revision; a superseded pass is discarded (last edit wins). Returns
// true if the result was installed.
func (e *Engine) Warm(ctx context.Context, snap *buffer.Snapshot) bool {
	e.mu.Lock()
	lang := e.lang
	e.mu.Unlock()

	lineCount := snap.LineCount()
	states := make([]LexerState, 0, lineCount)
	tokens := make(map[uint32][]span, lineCount)

	in := StateNormal
	for l := uint32(0); l < lineCount; l++ {
		if l%warmChunkLines == 0 && ctx.Err() != nil {
			return false
		}
		spans, end := scanLine(lang, snap.LineText(l), in)
		tokens[l] = spans
		states = append(states, end)
		in = end
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lang != lang || snap.Revision() != e.rev {
		return false
	}
	e.states = states
	e.tokens = tokens
	e.pred = nil
	e.predIncomingOK = false
	return true
}
