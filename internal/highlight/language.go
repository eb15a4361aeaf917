package highlight

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rule is a single lexical rule: a regex matched at the scan position.
// When several rules match at the same position, the highest Priority
// wins; equal priorities resolve by declaration order.
type Rule struct {
	Pattern  *regexp.Regexp
	Type     TokenType
	Priority int
}

// MultiLineRule describes a construct that may span lines, such as a
// block comment or a triple-quoted string. Start and End are literal
// delimiters. Multi-line constructs are checked before single-line
// rules so an opener beats any rule matching its first character.
type MultiLineRule struct {
	Start string
	End   string
	Type  TokenType
}

// Language is a tokenizer mode: pure data, so adding a language means
// adding a table, not code.
type Language struct {
	Name      string
	Rules     []Rule
	MultiLine []MultiLineRule

	// Keywords refines identifier matches: an identifier found in the
	// map is reported with the mapped type instead of TokenIdentifier.
	Keywords map[string]TokenType
}

// NewRule compiles pattern anchored at the scan position.
func NewRule(pattern string, typ TokenType, priority int) Rule {
	return Rule{
		Pattern:  regexp.MustCompile(`\A(?:` + pattern + `)`),
		Type:     typ,
		Priority: priority,
	}
}

// Plain is the fallback language: no rules, every line is one plain
// token. Unknown language names resolve to it, never to an error.
var Plain = &Language{Name: "plain"}

// scanLine tokenizes one line given the state carried in from the
// previous line. The returned spans cover the full line without
// overlap; gaps between rule matches become plain spans. The returned
// state is carried to the next line.
func scanLine(lang *Language, text string, in LexerState) ([]span, LexerState) {
	if len(text) == 0 {
		return nil, in
	}
	if len(lang.Rules) == 0 && len(lang.MultiLine) == 0 {
		return []span{{start: 0, end: uint32(len(text)), typ: TokenPlain}}, StateNormal
	}

	var spans []span
	plainStart := -1

	flushPlain := func(upTo int) {
		if plainStart >= 0 {
			spans = append(spans, span{start: uint32(plainStart), end: uint32(upTo), typ: TokenPlain})
			plainStart = -1
		}
	}

	pos := 0
	state := in

	// Finish a construct left open by a previous line.
	if state != StateNormal {
		idx := int(state) - 1
		if idx >= len(lang.MultiLine) {
			// State from another language mode; treat as plain.
			return []span{{start: 0, end: uint32(len(text)), typ: TokenPlain}}, StateNormal
		}
		ml := lang.MultiLine[idx]
		end := indexFrom(text, 0, ml.End)
		if end < 0 {
			return []span{{start: 0, end: uint32(len(text)), typ: ml.Type}}, state
		}
		pos = end + len(ml.End)
		if pos > 0 {
			spans = append(spans, span{start: 0, end: uint32(pos), typ: ml.Type})
		}
		state = StateNormal
	}

scan:
	for pos < len(text) {
		// Multi-line construct openers, in declaration order.
		for i, ml := range lang.MultiLine {
			if !hasPrefixAt(text, pos, ml.Start) {
				continue
			}
			flushPlain(pos)
			end := indexFrom(text, pos+len(ml.Start), ml.End)
			if end < 0 {
				spans = append(spans, span{start: uint32(pos), end: uint32(len(text)), typ: ml.Type})
				return spans, LexerState(i + 1)
			}
			stop := end + len(ml.End)
			spans = append(spans, span{start: uint32(pos), end: uint32(stop), typ: ml.Type})
			pos = stop
			continue scan
		}

		// Single-line rules: highest priority wins, declaration order
		// breaks ties.
		bestLen := 0
		bestType := TokenPlain
		bestPriority := -1
		var bestText string
		for _, rule := range lang.Rules {
			loc := rule.Pattern.FindStringIndex(text[pos:])
			if loc == nil || loc[1] == 0 {
				continue
			}
			if rule.Priority > bestPriority {
				bestPriority = rule.Priority
				bestLen = loc[1]
				bestType = rule.Type
				bestText = text[pos : pos+loc[1]]
			}
		}

		if bestPriority >= 0 {
			flushPlain(pos)
			typ := bestType
			if typ == TokenIdentifier {
				if kw, ok := lang.Keywords[bestText]; ok {
					typ = kw
				}
			}
			spans = append(spans, span{start: uint32(pos), end: uint32(pos + bestLen), typ: typ})
			pos += bestLen
			continue
		}

		// No rule matched: extend the current plain run by one rune.
		if plainStart < 0 {
			plainStart = pos
		}
		_, size := utf8.DecodeRuneInString(text[pos:])
		if size == 0 {
			size = 1
		}
		pos += size
	}

	flushPlain(len(text))
	return spans, StateNormal
}

func hasPrefixAt(s string, pos int, prefix string) bool {
	return len(s)-pos >= len(prefix) && s[pos:pos+len(prefix)] == prefix
}

// indexFrom finds needle in s at or after from, returning an absolute
// index or -1.
func indexFrom(s string, from int, needle string) int {
	i := strings.Index(s[from:], needle)
	if i < 0 {
		return -1
	}
	return from + i
}
