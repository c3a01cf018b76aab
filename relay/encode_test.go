package relay

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "printable ASCII passes through",
			input: []byte("hello, world! ~"),
			want:  "hello, world! ~",
		},
		{
			name:  "whitespace controls pass through",
			input: []byte("a\tb\rc\nd"),
			want:  "a\tb\rc\nd",
		},
		{
			name:  "other ASCII controls are hex escaped",
			input: []byte{0x00, 0x03, 0x1b, 0x7f},
			want:  `\x00\x03\x1b\x7f`,
		},
		{
			name:  "low code points pass through",
			input: []byte("é Ω ѓ"), // U+00E9, U+03A9, U+0453 all at or below 0x513
			want:  "é Ω ѓ",
		},
		{
			name:  "highest inline code point passes through",
			input: []byte(string(rune(0x513))),
			want:  string(rune(0x513)),
		},
		{
			name:  "first escaped BMP code point",
			input: []byte(string(rune(0x514))),
			want:  `\u0514`,
		},
		{
			name:  "BMP code point is unicode escaped",
			input: []byte("中"), // U+4E2D
			want:  `\u4e2d`,
		},
		{
			name:  "supplementary plane becomes a surrogate pair",
			input: []byte("😀"), // U+1F600
			want:  `\ud83d\ude00`,
		},
		{
			name:  "max code point surrogate pair",
			input: []byte(string(rune(0x10ffff))),
			want:  `\udbff\udfff`,
		},
		{
			name:  "invalid bytes are individually escaped",
			input: []byte{'a', 0xff, 0xfe, 'b'},
			want:  `a\xff\xfeb`,
		},
		{
			name:  "truncated multi-byte sequence is escaped per byte",
			input: []byte{0xe2, 0x82}, // € missing its last byte
			want:  `\xe2\x82`,
		},
		{
			name:  "mixed content",
			input: append([]byte("ok\r"), 0x01, 0xc3, 0xa9),
			want:  "ok\r\\x01é",
		},
		{
			name:  "empty input",
			input: nil,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.input))
		})
	}
}

// Render must be total and deterministic for every code point, and the
// escape policy must match the UTF-16 surrogate formula exactly.
func TestRender_CodePointPolicy(t *testing.T) {
	for cp := rune(0); cp <= utf8.MaxRune; cp++ {
		if cp >= 0xd800 && cp <= 0xdfff {
			continue // not encodable as UTF-8
		}

		input := []byte(string(cp))
		got := Render(input)

		switch {
		case cp == '\t' || cp == '\r' || cp == '\n' || (cp >= 0x20 && cp <= 0x7e):
			assert.Equal(t, string(cp), got, "printable %U must round-trip", cp)

		case cp < 0x80:
			assert.Equal(t, fmt.Sprintf(`\x%02x`, cp), got, "control %U", cp)

		case cp <= 0x513:
			assert.Equal(t, string(cp), got, "inline %U must round-trip", cp)

		case cp < 0x10000:
			assert.Equal(t, fmt.Sprintf(`\u%04x`, cp), got, "BMP escape %U", cp)

		default:
			v := cp - 0x10000
			want := fmt.Sprintf(`\u%04x\u%04x`, 0xd800+(v>>10), 0xdc00+(v&0x3ff))
			assert.Equal(t, want, got, "surrogate pair %U", cp)
		}
	}
}

func TestRender_AllInvalidBytes(t *testing.T) {
	// every possible stand-alone invalid byte must render as \xhh
	for b := 0x80; b <= 0xff; b++ {
		got := Render([]byte{byte(b)})
		assert.Equal(t, fmt.Sprintf(`\x%02x`, b), got)
	}
}

func BenchmarkRender(b *testing.B) {
	input := []byte(strings.Repeat("device output λ 中 😀 line\r\n", 64))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Render(input)
	}
}
