package util

import "strings"

// Truncate shortens s to at most limit characters, appending an ellipsis
// marker when anything was cut. Limits count runes so multi-byte text is
// never cut mid-character. Used for snippets and fallback summaries.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

// FirstNonEmptyLines returns up to max non-empty, trimmed lines of s.
func FirstNonEmptyLines(s string, max int) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
		if len(out) == max {
			break
		}
	}
	return out
}
