// Package highlight provides incremental, rule-table syntax
// tokenization. A language mode is data: an ordered table of
// prioritized lexical rules plus multi-line construct rules whose
// state carries from the end of one line to the start of the next.
// Re-tokenization after an edit propagates only while that carried
// state differs from the previous run.
package highlight

import "github.com/dshills/subtext/internal/engine/buffer"

// TokenType is the semantic category of a token. The set is closed;
// unknown constructs fall back to TokenPlain.
type TokenType uint8

const (
	TokenPlain TokenType = iota
	TokenKeyword
	TokenString
	TokenComment
	TokenNumber
	TokenOperator
	TokenIdentifier
	TokenConstant
	TokenTypeName

	tokenTypeCount
)

// String returns the category name.
func (t TokenType) String() string {
	switch t {
	case TokenPlain:
		return "plain"
	case TokenKeyword:
		return "keyword"
	case TokenString:
		return "string"
	case TokenComment:
		return "comment"
	case TokenNumber:
		return "number"
	case TokenOperator:
		return "operator"
	case TokenIdentifier:
		return "identifier"
	case TokenConstant:
		return "constant"
	case TokenTypeName:
		return "type"
	default:
		return "unknown"
	}
}

// Token is a labeled contiguous span of buffer text. Offsets are
// absolute byte offsets. Tokens for a line never overlap and together
// cover the line.
type Token struct {
	Start buffer.ByteOffset
	End   buffer.ByteOffset
	Type  TokenType
}

// span is a token span in line-local byte columns, the engine's
// internal cache representation. Line numbers shift on edits; columns
// within an untouched line do not.
type span struct {
	start, end uint32
	typ        TokenType
}

// LexerState is the tokenizer mode carried across line boundaries.
// StateNormal is outside every multi-line construct; state i+1 means
// the scanner is inside the language's i-th multi-line construct.
type LexerState uint8

// StateNormal is the default lexer state.
const StateNormal LexerState = 0
