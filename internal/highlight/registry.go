package highlight

import (
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// builtin maps canonical language names to their rule tables.
var builtin = map[string]func() *Language{
	"go":       goLanguage,
	"python":   pythonLanguage,
	"markdown": markdownLanguage,
	"json":     jsonLanguage,
}

// Lookup returns the language table for name. Unknown names fall back
// to Plain, never to an error.
func Lookup(name string) *Language {
	if mk, ok := builtin[strings.ToLower(name)]; ok {
		return mk()
	}
	return Plain
}

// Detect identifies the language of a file from its name and content
// and returns its table. Detection that finds no built-in table falls
// back to Plain.
func Detect(filename string, content []byte) *Language {
	lang := enry.GetLanguage(filename, content)
	if lang == "" {
		return Plain
	}
	return Lookup(lang)
}

// DetectName returns the canonical language-mode name for a file, or
// "plain" when detection fails.
func DetectName(filename string, content []byte) string {
	lang := enry.GetLanguage(filename, content)
	if lang == "" {
		return Plain.Name
	}
	if _, ok := builtin[strings.ToLower(lang)]; ok {
		return strings.ToLower(lang)
	}
	return Plain.Name
}
