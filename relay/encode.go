package relay

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxInlineCodePoint is the highest code point the target console font is
// assumed to render directly. Everything above it is emitted as an escape
// sequence so raw device output stays diagnosable.
const maxInlineCodePoint = 0x513

// printable marks the ASCII bytes that are written to the display as-is:
// TAB, LF, CR and the printable range 0x20-0x7E. The remaining control
// characters are hex backslash-escaped.
var printable = [0x80]bool{
	'\t': true,
	'\n': true,
	'\r': true,
}

func init() {
	for c := 0x20; c <= 0x7e; c++ {
		printable[c] = true
	}
}

// Render maps a byte span to its display-safe escaped representation.
//
// It is pure and total: bytes that are not valid UTF-8 are individually
// replaced with a visible \xhh escape rather than aborting. Decoded code
// points follow the display policy: printable ASCII passes through, other
// ASCII becomes \xhh, code points up to maxInlineCodePoint pass through,
// the rest of the Basic Multilingual Plane becomes \uhhhh, and supplementary
// planes become their UTF-16 surrogate pair as \uhhhh\uhhhh.
func Render(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))

	for i := 0; i < len(b); {
		cp, size := utf8.DecodeRune(b[i:])
		if cp == utf8.RuneError && size <= 1 {
			// Malformed byte: keep it visible instead of dropping it.
			fmt.Fprintf(&sb, `\x%02x`, b[i])
			i++

			continue
		}

		renderRune(&sb, cp)
		i += size
	}

	return sb.String()
}

func renderRune(sb *strings.Builder, cp rune) {
	switch {
	case cp < 0x80:
		if printable[cp] {
			sb.WriteRune(cp)
		} else {
			fmt.Fprintf(sb, `\x%02x`, cp)
		}

	case cp <= maxInlineCodePoint:
		sb.WriteRune(cp)

	case cp < 0x10000:
		fmt.Fprintf(sb, `\u%04x`, cp)

	case cp <= utf8.MaxRune:
		// UTF-16 surrogate pair, RFC 2781 section 2.1.
		v := cp - 0x10000
		hi := 0xd800 + (v >> 10)
		lo := 0xdc00 + (v & 0x3ff)
		fmt.Fprintf(sb, `\u%04x\u%04x`, hi, lo)

	default:
		// Unreachable with a well-behaved decoder; degrade visibly.
		sb.WriteRune(utf8.RuneError)
	}
}
