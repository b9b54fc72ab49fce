package nl2sql

import "strings"

// ExtractSQL pulls a single SELECT statement out of a model reply. Fences are
// dropped, collection starts at the first line beginning with SELECT or WITH
// and everything after the first statement terminator is discarded. The
// result is rejected unless it begins with SELECT.
func ExtractSQL(raw string) (string, bool) {
	text := strings.ReplaceAll(raw, "```sql", "")
	text = strings.TrimSpace(strings.ReplaceAll(text, "```", ""))

	lines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		if len(lines) > 0 || strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH") {
			lines = append(lines, line)
		}
	}

	candidate := strings.TrimSpace(strings.Join(lines, " "))
	candidate = strings.TrimSpace(strings.TrimRight(candidate, ";"))
	if idx := strings.Index(candidate, ";"); idx >= 0 {
		candidate = strings.TrimSpace(candidate[:idx])
	}
	if candidate == "" || !strings.HasPrefix(strings.ToUpper(candidate), "SELECT") {
		return "", false
	}
	return candidate, true
}
