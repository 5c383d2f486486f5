package core

import (
	"strings"
	"unicode"
)

// MaxPostLength is the platform limit for a single post.
const MaxPostLength = 280

// SanitizeText strips non-printable characters and truncates to maxLen runes.
// A maxLen of zero or less applies the platform default.
func SanitizeText(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = MaxPostLength
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsPrint(r) || r == '\n' {
			b.WriteRune(r)
		}
	}

	runes := []rune(b.String())
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}
	return strings.TrimSpace(string(runes))
}
