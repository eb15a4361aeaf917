// Package search provides literal and regex search/replace over a
// text buffer. Find is lazy: matches are produced one at a time in
// offset order, so "find next" on a large document never materializes
// the full match list. Replacements are recorded in the undo log;
// replace-all collapses into a single undo unit.
package search

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/dshills/subtext/internal/engine/buffer"
)

// ErrStaleMatch is returned when a match no longer corresponds to the
// current buffer content.
var ErrStaleMatch = errors.New("match is stale")

// PatternError reports an invalid search pattern. It wraps the regexp
// compiler's diagnostic.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Options controls matching behavior.
type Options struct {
	CaseSensitive bool
	Regex         bool
	WholeWord     bool
	Backward      bool
}

// Match is a located occurrence. Revision records the buffer state the
// match was computed against; replace operations use it to reject
// stale matches.
type Match struct {
	Start    buffer.ByteOffset
	End      buffer.ByteOffset
	Revision buffer.Revision
}

// compile translates pattern+options into a regexp. Literal patterns
// are quoted, so every metacharacter is safe.
func compile(pattern string, opts Options) (*regexp.Regexp, error) {
	p := pattern
	if !opts.Regex {
		p = regexp.QuoteMeta(p)
	}
	if opts.WholeWord {
		p = `\b(?:` + p + `)\b`
	}
	if !opts.CaseSensitive {
		p = `(?i)` + p
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	return re, nil
}

// Matches is a restartable lazy match sequence over an immutable
// snapshot. Forward iteration scans incrementally; backward iteration
// locates all occurrences on first use and replays them in descending
// order, since the regexp engine only scans forward.
type Matches struct {
	re       *regexp.Regexp
	text     string
	revision buffer.Revision

	pos      int // next scan position (forward)
	backward bool
	reversed [][]int // populated lazily for backward iteration
	rIdx     int
}

// Next returns the next match in order. The second return is false
// when the sequence is exhausted.
func (m *Matches) Next() (Match, bool) {
	if m.backward {
		return m.nextBackward()
	}
	return m.nextForward()
}

func (m *Matches) nextForward() (Match, bool) {
	for m.pos <= len(m.text) {
		loc := m.re.FindStringIndex(m.text[m.pos:])
		if loc == nil {
			m.pos = len(m.text) + 1
			return Match{}, false
		}
		start := m.pos + loc[0]
		end := m.pos + loc[1]
		if start == end {
			// Empty match: step forward one byte to guarantee progress.
			m.pos = start + 1
			continue
		}
		m.pos = end
		return Match{Start: buffer.ByteOffset(start), End: buffer.ByteOffset(end), Revision: m.revision}, true
	}
	return Match{}, false
}

func (m *Matches) nextBackward() (Match, bool) {
	if m.reversed == nil {
		m.reversed = m.re.FindAllStringIndex(m.text, -1)
		m.rIdx = len(m.reversed)
	}
	for m.rIdx > 0 {
		m.rIdx--
		loc := m.reversed[m.rIdx]
		if loc[0] == loc[1] {
			continue
		}
		return Match{Start: buffer.ByteOffset(loc[0]), End: buffer.ByteOffset(loc[1]), Revision: m.revision}, true
	}
	return Match{}, false
}

// Restart rewinds the sequence to its beginning.
func (m *Matches) Restart() {
	m.pos = 0
	m.rIdx = len(m.reversed)
}
