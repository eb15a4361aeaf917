package rope

import "strings"

// Chunk size constants control the granularity of text storage.
const (
	// MaxChunkSize is the largest chunk produced by re-chunking.
	MaxChunkSize = 4096

	// TargetChunkSize is the preferred chunk size when splitting text.
	TargetChunkSize = 2048
)

// chunk is a bounded, immutable run of text with a precomputed
// newline count.
type chunk struct {
	data     string
	newlines uint32
}

func newChunk(s string) chunk {
	return chunk{
		data:     s,
		newlines: uint32(strings.Count(s, "\n")),
	}
}

// splitText cuts s into chunks of at most MaxChunkSize bytes, aiming
// for TargetChunkSize. Cut points are moved back to UTF-8 boundaries
// so a multi-byte rune never straddles two chunks.
func splitText(s string) []chunk {
	if len(s) == 0 {
		return nil
	}
	if len(s) <= MaxChunkSize {
		return []chunk{newChunk(s)}
	}

	chunks := make([]chunk, 0, len(s)/TargetChunkSize+1)
	for len(s) > 0 {
		n := TargetChunkSize
		if n >= len(s) {
			chunks = append(chunks, newChunk(s))
			break
		}
		// Back up to a rune boundary.
		for n > 0 && !utf8Start(s[n]) {
			n--
		}
		if n == 0 {
			n = TargetChunkSize
		}
		chunks = append(chunks, newChunk(s[:n]))
		s = s[n:]
	}
	return chunks
}

// utf8Start reports whether b can begin a UTF-8 encoded rune.
func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}

// nthNewline returns the byte index of the nth newline in s
// (1-indexed), or -1 if s contains fewer than n newlines.
func nthNewline(s string, n uint32) int {
	if n == 0 {
		return -1
	}
	from := 0
	for {
		i := strings.IndexByte(s[from:], '\n')
		if i < 0 {
			return -1
		}
		n--
		if n == 0 {
			return from + i
		}
		from += i + 1
	}
}

// newlinesBefore counts newlines in s[:end].
func newlinesBefore(s string, end int) uint32 {
	return uint32(strings.Count(s[:end], "\n"))
}
