package validate

import (
	"strings"
	"unicode"
)

// SanitizeLine cleans single-line input such as an objective or milestone title.
func SanitizeLine(s string) string {
	s = strings.TrimSpace(s)

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if !unicode.IsControl(r) {
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// SanitizeText cleans multi-line input such as a comment for safe storage.
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove null bytes (common injection attempt)
	text = strings.ReplaceAll(text, "\x00", "")

	// Normalize line endings
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	return StripControlChars(text)
}

// SanitizeLines applies SanitizeLine to each entry and drops empty ones.
func SanitizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = SanitizeLine(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// StripControlChars removes all control characters from a string.
func StripControlChars(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
