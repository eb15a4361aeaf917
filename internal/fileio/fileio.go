// Package fileio reads and writes document files. Opening detects the
// text encoding (UTF-8, BOM-marked UTF-8/UTF-16, optional Latin-1
// fallback) and decodes to UTF-8; undecodable content is rejected with
// an EncodingError rather than loaded as mojibake. Saving re-encodes
// to the source encoding, restores the original line endings, and
// writes atomically (temp file, fsync, rename).
package fileio

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/dshills/subtext/internal/engine/buffer"
)

// Encoding identifies how a file's bytes map to text.
type Encoding int

const (
	EncodingUTF8 Encoding = iota
	EncodingUTF8BOM
	EncodingUTF16LE
	EncodingUTF16BE
	EncodingLatin1
)

func (e Encoding) String() string {
	switch e {
	case EncodingUTF8:
		return "utf-8"
	case EncodingUTF8BOM:
		return "utf-8-bom"
	case EncodingUTF16LE:
		return "utf-16le"
	case EncodingUTF16BE:
		return "utf-16be"
	case EncodingLatin1:
		return "latin-1"
	default:
		return "unknown"
	}
}

// ParseEncoding maps a stored encoding name back to its constant.
func ParseEncoding(name string) (Encoding, bool) {
	switch name {
	case "utf-8", "":
		return EncodingUTF8, true
	case "utf-8-bom":
		return EncodingUTF8BOM, true
	case "utf-16le":
		return EncodingUTF16LE, true
	case "utf-16be":
		return EncodingUTF16BE, true
	case "latin-1":
		return EncodingLatin1, true
	default:
		return EncodingUTF8, false
	}
}

// EncodingError reports a file whose bytes could not be decoded as
// text under any accepted encoding.
type EncodingError struct {
	Path   string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot decode %s: %s", e.Path, e.Reason)
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// FileContent is a decoded file: UTF-8 text with LF line endings, plus
// everything needed to write it back byte-faithfully.
type FileContent struct {
	Text       string
	Encoding   Encoding
	LineEnding buffer.LineEnding
	Mode       fs.FileMode
}

// Options controls decoding behavior.
type Options struct {
	// AllowLatin1 permits falling back to Latin-1 for files that are
	// not valid UTF-8 and carry no BOM. Off by default so garbage
	// bytes fail loudly instead of loading as the wrong characters.
	AllowLatin1 bool
}

// ReadFile loads and decodes path. The returned text is normalized to
// LF; the original line ending and encoding are recorded for save.
func ReadFile(path string, opts Options) (*FileContent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	mode := fs.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	text, enc, err := Decode(raw, opts)
	if err != nil {
		if ee, ok := err.(*EncodingError); ok {
			ee.Path = path
		}
		return nil, err
	}

	le := buffer.DetectLineEnding(text)
	return &FileContent{
		Text:       normalizeLineEndings(text),
		Encoding:   enc,
		LineEnding: le,
		Mode:       mode,
	}, nil
}

// Decode converts raw file bytes to UTF-8 text, detecting the encoding
// from BOM and content. Line endings are left untouched.
func Decode(raw []byte, opts Options) (string, Encoding, error) {
	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		body := raw[len(bomUTF8):]
		if !utf8.Valid(body) {
			return "", 0, &EncodingError{Reason: "UTF-8 BOM but invalid UTF-8 content"}
		}
		return string(body), EncodingUTF8BOM, nil

	case bytes.HasPrefix(raw, bomUTF16LE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(raw)
		if err != nil {
			return "", 0, &EncodingError{Reason: "invalid UTF-16LE content"}
		}
		return string(out), EncodingUTF16LE, nil

	case bytes.HasPrefix(raw, bomUTF16BE):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(raw)
		if err != nil {
			return "", 0, &EncodingError{Reason: "invalid UTF-16BE content"}
		}
		return string(out), EncodingUTF16BE, nil

	case utf8.Valid(raw):
		return string(raw), EncodingUTF8, nil

	case opts.AllowLatin1:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return "", 0, &EncodingError{Reason: "invalid Latin-1 content"}
		}
		return string(out), EncodingLatin1, nil

	default:
		return "", 0, &EncodingError{Reason: "not valid UTF-8 and no BOM"}
	}
}

// Encode converts UTF-8 LF text back to the file's byte form: line
// endings restored, target encoding applied, BOM prepended where the
// encoding carries one.
func Encode(text string, enc Encoding, le buffer.LineEnding) ([]byte, error) {
	if seq := le.Sequence(); seq != "\n" {
		text = strings.ReplaceAll(text, "\n", seq)
	}

	switch enc {
	case EncodingUTF8:
		return []byte(text), nil
	case EncodingUTF8BOM:
		out := make([]byte, 0, len(bomUTF8)+len(text))
		out = append(out, bomUTF8...)
		return append(out, text...), nil
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	case EncodingLatin1:
		out, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
		if err != nil {
			return nil, &EncodingError{Reason: "content not representable in Latin-1"}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown encoding %d", enc)
	}
}

// WriteFile saves content to path atomically: encode, write to a temp
// file in the same directory, fsync, then rename over the target. A
// crash mid-save leaves either the old file or the new one, never a
// torn mix.
func WriteFile(path string, content *FileContent) error {
	data, err := Encode(content.Text, content.Encoding, content.LineEnding)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return WriteAtomic(path, data, content.Mode)
}

// WriteAtomic writes data to path via a same-directory temp file and
// rename.
func WriteAtomic(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if mode == 0 {
		mode = 0644
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

func normalizeLineEndings(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
