package highlight

// Built-in language tables. Rule priorities: comments and strings
// outrank numbers, numbers outrank identifiers, identifiers outrank
// operators, so e.g. a "//" comment beats the "/" operator rule.
const (
	prComment    = 90
	prString     = 80
	prNumber     = 70
	prIdentifier = 50
	prOperator   = 30
)

func goLanguage() *Language {
	return &Language{
		Name: "go",
		MultiLine: []MultiLineRule{
			{Start: "/*", End: "*/", Type: TokenComment},
			{Start: "`", End: "`", Type: TokenString},
		},
		Rules: []Rule{
			NewRule(`//.*`, TokenComment, prComment),
			NewRule(`"(?:[^"\\]|\\.)*"`, TokenString, prString),
			NewRule(`'(?:[^'\\]|\\.)*'`, TokenString, prString),
			NewRule(`0[xX][0-9a-fA-F_]+|0[bB][01_]+|\d[\d_]*(?:\.[\d_]+)?(?:[eE][+-]?\d+)?i?`, TokenNumber, prNumber),
			NewRule(`[A-Za-z_][A-Za-z0-9_]*`, TokenIdentifier, prIdentifier),
			NewRule(`[-+*/%=<>!&|^~:;.,?(){}\[\]]+`, TokenOperator, prOperator),
		},
		Keywords: keywordSet(map[TokenType][]string{
			TokenKeyword: {
				"break", "case", "chan", "const", "continue", "default",
				"defer", "else", "fallthrough", "for", "func", "go", "goto",
				"if", "import", "interface", "map", "package", "range",
				"return", "select", "struct", "switch", "type", "var",
			},
			TokenConstant: {"true", "false", "nil", "iota"},
			TokenTypeName: {
				"bool", "byte", "complex64", "complex128", "error", "float32",
				"float64", "int", "int8", "int16", "int32", "int64", "rune",
				"string", "uint", "uint8", "uint16", "uint32", "uint64",
				"uintptr", "any",
			},
		}),
	}
}

func pythonLanguage() *Language {
	return &Language{
		Name: "python",
		MultiLine: []MultiLineRule{
			{Start: `"""`, End: `"""`, Type: TokenString},
			{Start: `'''`, End: `'''`, Type: TokenString},
		},
		Rules: []Rule{
			NewRule(`#.*`, TokenComment, prComment),
			NewRule(`"(?:[^"\\]|\\.)*"`, TokenString, prString),
			NewRule(`'(?:[^'\\]|\\.)*'`, TokenString, prString),
			NewRule(`0[xX][0-9a-fA-F_]+|0[bB][01_]+|\d[\d_]*(?:\.[\d_]+)?(?:[eE][+-]?\d+)?[jJ]?`, TokenNumber, prNumber),
			NewRule(`[A-Za-z_][A-Za-z0-9_]*`, TokenIdentifier, prIdentifier),
			NewRule(`[-+*/%=<>!&|^~:;.,@(){}\[\]]+`, TokenOperator, prOperator),
		},
		Keywords: keywordSet(map[TokenType][]string{
			TokenKeyword: {
				"and", "as", "assert", "async", "await", "break", "class",
				"continue", "def", "del", "elif", "else", "except", "finally",
				"for", "from", "global", "if", "import", "in", "is", "lambda",
				"nonlocal", "not", "or", "pass", "raise", "return", "try",
				"while", "with", "yield",
			},
			TokenConstant: {"True", "False", "None"},
			TokenTypeName: {"int", "float", "str", "bytes", "bool", "list", "dict", "set", "tuple"},
		}),
	}
}

func markdownLanguage() *Language {
	return &Language{
		Name: "markdown",
		MultiLine: []MultiLineRule{
			{Start: "```", End: "```", Type: TokenString},
		},
		Rules: []Rule{
			NewRule(`#{1,6}[ \t].*`, TokenKeyword, prComment),
			NewRule("`[^`]+`", TokenString, prString),
			NewRule(`\[[^\]]*\]\([^)]*\)`, TokenString, prString),
			NewRule(`\*\*[^*]+\*\*|\*[^*]+\*|__[^_]+__|_[^_]+_`, TokenKeyword, prNumber),
			NewRule(`>\s.*`, TokenComment, prIdentifier),
			NewRule(`[-*+]\s|\d+\.\s`, TokenOperator, prOperator),
		},
	}
}

func jsonLanguage() *Language {
	return &Language{
		Name: "json",
		Rules: []Rule{
			NewRule(`"(?:[^"\\]|\\.)*"`, TokenString, prString),
			NewRule(`-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?`, TokenNumber, prNumber),
			NewRule(`[A-Za-z]+`, TokenIdentifier, prIdentifier),
			NewRule(`[{}\[\]:,]+`, TokenOperator, prOperator),
		},
		Keywords: keywordSet(map[TokenType][]string{
			TokenConstant: {"true", "false", "null"},
		}),
	}
}

func keywordSet(groups map[TokenType][]string) map[string]TokenType {
	out := make(map[string]TokenType)
	for typ, words := range groups {
		for _, w := range words {
			out[w] = typ
		}
	}
	return out
}
