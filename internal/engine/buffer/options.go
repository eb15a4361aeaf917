package buffer

// Option configures a buffer at construction time.
type Option func(*Buffer)

// WithLineEnding sets the line ending style used on save.
func WithLineEnding(le LineEnding) Option {
	return func(b *Buffer) {
		b.lineEnding = le
	}
}
