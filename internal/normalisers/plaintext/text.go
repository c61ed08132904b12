package plaintext

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Clean removes control and non-printable runes, unifies line endings and
// squeezes runs of blank lines to a single blank line. Paragraph boundaries
// (blank lines) are preserved so they can be detected before Collapse.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if keepRune(r, size) {
			b.WriteRune(r)
		}
	}

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			line = ""
		} else {
			blank = 0
		}
		out = append(out, line)
	}

	return strings.Trim(strings.Join(out, "\n"), "\n")
}

// keepRune reports whether r survives cleaning. Newlines and tabs are kept
// as whitespace; invalid UTF-8 and other control or format runes are dropped.
func keepRune(r rune, size int) bool {
	switch {
	case r == utf8.RuneError && size <= 1:
		return false
	case r == '\n' || r == '\t':
		return true
	case unicode.IsSpace(r):
		return true
	case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
		return false
	default:
		return unicode.IsPrint(r) || unicode.IsGraphic(r)
	}
}

// Collapse squeezes every whitespace run, newlines included, to a single
// space and trims the ends. It destroys paragraph markers.
func Collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Normalize is Collapse(Clean(text)).
func Normalize(text string) string {
	return Collapse(Clean(text))
}
