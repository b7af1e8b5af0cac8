package formatter

import (
	"strings"
	"unicode"
)

// CleanCaption collapses control characters and surrounding whitespace out of a
// user-supplied caption.
func CleanCaption(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' {
			continue
		}
		sb.WriteRune(r)
	}
	return strings.TrimSpace(sb.String())
}

// TruncateCaption bounds a caption to max runes, appending an ellipsis when it
// had to cut. max <= 0 means unbounded.
func TruncateCaption(s string, max int) string {
	s = CleanCaption(s)
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
