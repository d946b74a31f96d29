package message

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Builder - implements io.Writer to assemble safe single-line text from byte parts.
// Invalid UTF-8 and control characters are dropped, any whitespace run
// (line breaks included) is folded into single space. Incomplete rune at
// the end of a part is kept until the next Write completes it.
type Builder struct {
	pending []byte
	str     strings.Builder
	space   bool
}

func (b *Builder) Write(p []byte) (int, error) {
	data := append(b.pending, p...)
	b.pending = nil
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size <= 1 {
			if !utf8.FullRune(data) {
				b.pending = append([]byte{}, data...)
				break
			}
			data = data[1:]
			continue
		}
		data = data[size:]
		switch {
		case unicode.IsSpace(r):
			b.space = true
		case unicode.IsControl(r):
		default:
			if b.space && b.str.Len() > 0 {
				b.str.WriteByte(' ')
			}
			b.space = false
			b.str.WriteRune(r)
		}
	}
	return len(p), nil
}

// Len - returns length (in bytes) of ready string.
func (b *Builder) Len() int {
	return b.str.Len()
}

// Total - returns ready length plus bytes of incomplete trailing rune.
func (b *Builder) Total() int {
	return b.str.Len() + len(b.pending)
}

// Flush - returns built string and resets the builder.
// Whitespace at both ends is never emitted.
func (b *Builder) Flush() string {
	defer func() {
		b.str.Reset()
		b.space = false
	}()
	return b.str.String()
}

// Sanitize - makes text safe to be carried inside single record.
func Sanitize(text string) string {
	b := Builder{}
	b.Write([]byte(text))
	return b.Flush()
}
