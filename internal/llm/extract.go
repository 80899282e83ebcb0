package llm

import "strings"

// ExtractArray isolates a JSON array embedded in surrounding prose by
// capturing the first '[' through the last ']'. Models occasionally wrap
// their reply in commentary or a markdown fence despite instructions; this
// is a best-effort recovery, not a parser: a well-formed array inside an
// unrelated code sample would fool it. When no bracketed span exists the
// input is returned unchanged so downstream JSON parsing fails explicitly.
func ExtractArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
