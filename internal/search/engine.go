package search

import (
	"sync"

	"github.com/dshills/subtext/internal/engine/buffer"
	"github.com/dshills/subtext/internal/engine/history"
)

// Engine performs search and replace against one document's buffer,
// recording replacements in its undo log. A cached match list is
// invalidated wholesale on any buffer mutation; stale matches are
// rejected, never silently applied.
type Engine struct {
	buf *buffer.Buffer
	log *history.Log

	mu      sync.Mutex
	cached  []Match
	isValid bool
}

// NewEngine creates a search engine bound to a buffer and undo log.
// It registers a change listener to invalidate cached matches.
func NewEngine(buf *buffer.Buffer, log *history.Log) *Engine {
	e := &Engine{buf: buf, log: log}
	buf.OnChange(func(buffer.Change) {
		e.mu.Lock()
		e.cached = nil
		e.isValid = false
		e.mu.Unlock()
	})
	return e
}

// Find returns a lazy match sequence over the current buffer content.
// An invalid regex pattern fails with a PatternError; nothing else is
// touched.
func (e *Engine) Find(pattern string, opts Options) (*Matches, error) {
	re, err := compile(pattern, opts)
	if err != nil {
		return nil, err
	}
	snap := e.buf.Snapshot()
	return &Matches{
		re:       re,
		text:     snap.Text(),
		revision: snap.Revision(),
		backward: opts.Backward,
	}, nil
}

// FindAll materializes every match and caches the list for the
// current-matches query. The cache is dropped on the next mutation.
func (e *Engine) FindAll(pattern string, opts Options) ([]Match, error) {
	matches, err := e.Find(pattern, opts)
	if err != nil {
		return nil, err
	}

	var all []Match
	for {
		m, ok := matches.Next()
		if !ok {
			break
		}
		all = append(all, m)
	}

	e.mu.Lock()
	e.cached = all
	e.isValid = true
	e.mu.Unlock()
	return all, nil
}

// Current returns the cached match list from the last FindAll, or
// false if a mutation has invalidated it.
func (e *Engine) Current() ([]Match, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.isValid {
		return nil, false
	}
	return e.cached, true
}

// Replace substitutes text for a single match. The match must still
// correspond to the current buffer revision; otherwise ErrStaleMatch
// is returned and the buffer is untouched.
func (e *Engine) Replace(m Match, text string) error {
	if m.Revision != e.buf.Revision() {
		return ErrStaleMatch
	}
	if m.Start < 0 || m.End < m.Start || m.End > e.buf.Len() {
		return ErrStaleMatch
	}

	change, err := e.buf.Apply(buffer.Edit{
		Range:   buffer.Range{Start: m.Start, End: m.End},
		NewText: text,
	})
	if err != nil {
		return err
	}
	e.log.Record(change)
	return nil
}

// ReplaceAll substitutes every match of pattern and returns the count.
// All substitutions form one undo unit: a single undo reverts them
// all. Zero matches is a no-op that records nothing. For regex
// patterns the replacement may reference capture groups ($1, ${name}).
func (e *Engine) ReplaceAll(pattern, replacement string, opts Options) (int, error) {
	re, err := compile(pattern, opts)
	if err != nil {
		return 0, err
	}

	snap := e.buf.Snapshot()
	text := snap.Text()

	locs := re.FindAllStringSubmatchIndex(text, -1)
	n := 0
	for _, loc := range locs {
		if loc[0] != loc[1] {
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}

	e.log.BeginGroup()
	defer e.log.EndGroup()

	// Apply back to front so earlier offsets stay valid.
	for i := len(locs) - 1; i >= 0; i-- {
		loc := locs[i]
		if loc[0] == loc[1] {
			continue
		}
		repl := replacement
		if opts.Regex {
			repl = string(re.ExpandString(nil, replacement, text, loc))
		}
		change, err := e.buf.Apply(buffer.Edit{
			Range:   buffer.Range{Start: buffer.ByteOffset(loc[0]), End: buffer.ByteOffset(loc[1])},
			NewText: repl,
		})
		if err != nil {
			return 0, err
		}
		e.log.Record(change)
	}
	return n, nil
}
