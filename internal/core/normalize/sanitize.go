package normalize

import (
	"strings"
	"unicode/utf8"
)

// Sanitize drops invalid UTF-8 and control characters from dialog text, keeping tab and line breaks.
// Modem USSD replies arrive with stray NULs and C1 bytes that would otherwise break phrase matching
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.Map(keepRune, s)
}

func keepRune(r rune) rune {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return r
	case r < 0x20, r == 0x7F, r >= 0x80 && r <= 0x9F:
		return -1
	}
	return r
}
