package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename makes a title safe for use in a transcript filename.
// Non-alphanumeric runes other than hyphen, underscore, and space become
// underscores. An empty result falls back to "untitled".
func SanitizeFilename(value string) string {
	value = norm.NFC.String(value)

	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	result := strings.TrimSpace(b.String())
	if result == "" {
		return "untitled"
	}
	return result
}
