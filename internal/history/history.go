// Package history keeps a durable log of query cycles so sessions can list
// and replay earlier questions.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/duckask/duckask/internal/query"
)

const DefaultRecentLimit = 20

var ErrDisabled = errors.New("query history is disabled")

type Entry struct {
	ID                   string    `json:"id"`
	SessionID            string    `json:"session_id"`
	NaturalLanguageQuery string    `json:"natural_language_query"`
	SQL                  string    `json:"sql,omitempty"`
	Success              bool      `json:"success"`
	FailureKind          string    `json:"failure_kind,omitempty"`
	Error                string    `json:"error,omitempty"`
	RowCount             int       `json:"row_count"`
	Truncated            bool      `json:"truncated,omitempty"`
	DurationMs           int64     `json:"duration_ms"`
	CreatedAt            time.Time `json:"created_at"`
}

type Store interface {
	Record(ctx context.Context, entry Entry) (Entry, error)
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// FromResult captures the parts of a cycle result worth keeping. Row data
// is not stored.
func FromResult(sessionID string, result query.Result) Entry {
	return Entry{
		SessionID:            sessionID,
		NaturalLanguageQuery: result.NaturalLanguageQuery,
		SQL:                  result.Query,
		Success:              result.Success,
		FailureKind:          string(result.FailureKind),
		Error:                result.Error,
		RowCount:             result.RowCount,
		Truncated:            result.Truncated,
		DurationMs:           result.DurationMs,
	}
}

// Nop discards everything. It backs sessions with history turned off.
type Nop struct{}

func (Nop) Record(_ context.Context, entry Entry) (Entry, error) {
	return entry, nil
}

func (Nop) Recent(context.Context, int) ([]Entry, error) {
	return nil, ErrDisabled
}
