package query

import (
	"errors"
	"fmt"
	"strings"
)

// DeniedKeywords are rejected anywhere in a candidate, including inside
// identifiers and string literals.
var DeniedKeywords = []string{
	"INSERT",
	"UPDATE",
	"DELETE",
	"DROP",
	"ALTER",
	"CREATE",
	"PRAGMA",
	"ATTACH",
	"DETACH",
}

var ErrNotSelect = errors.New("query must start with SELECT")

type DeniedKeywordError struct {
	Keyword string
}

func (e *DeniedKeywordError) Error() string {
	return fmt.Sprintf("query contains denied keyword %s", e.Keyword)
}

// Validate is a plain substring gate over the trimmed, uppercased candidate.
// It is not a tokenizer: a column named CREATED_AT is rejected too.
func Validate(candidate string) error {
	normalized := strings.ToUpper(strings.TrimSpace(candidate))
	if !strings.HasPrefix(normalized, "SELECT") {
		return ErrNotSelect
	}
	for _, keyword := range DeniedKeywords {
		if strings.Contains(normalized, keyword) {
			return &DeniedKeywordError{Keyword: keyword}
		}
	}
	return nil
}

func IsSafe(candidate string) bool {
	return Validate(candidate) == nil
}

// FirstStatement trims the text and keeps only what precedes the first
// statement terminator.
func FirstStatement(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	trimmed = strings.TrimSpace(strings.TrimRight(trimmed, ";"))
	if idx := strings.Index(trimmed, ";"); idx >= 0 {
		trimmed = strings.TrimSpace(trimmed[:idx])
	}
	return trimmed
}
