package query

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"time"
)

type FailureKind string

const (
	FailureGeneration FailureKind = "generation_error"
	FailureExtraction FailureKind = "extraction_failure"
	FailureValidation FailureKind = "validation_rejection"
	FailureExecution  FailureKind = "execution_error"
)

// Messages surfaced to callers. They are part of the observable contract.
const (
	MsgNoValidSQL       = "Failed to generate valid SQL query"
	MsgFailedValidation = "Generated query failed validation"
	MsgSelectOnly       = "Only SELECT queries are allowed"
)

type Field struct {
	Name  string
	Value any
}

// Row keeps the column order reported by the engine.
type Row []Field

func (r Row) Get(name string) (any, bool) {
	for _, field := range r {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, field := range r {
		names[i] = field.Name
	}
	return names
}

// At returns the value in column position i, or nil past the end of the row.
func (r Row) At(i int) any {
	if i < 0 || i >= len(r) {
		return nil
	}
	return r[i].Value
}

// UniqueNames suffixes repeated column names with _1, _2 and so on so each
// can serve as an object key. Names that are already unique are unchanged.
func UniqueNames(names []string) []string {
	taken := make(map[string]bool, len(names))
	for _, name := range names {
		taken[name] = true
	}
	out := make([]string, len(names))
	first := make(map[string]bool, len(names))
	for i, name := range names {
		if !first[name] {
			first[name] = true
			out[i] = name
			continue
		}
		for n := 1; ; n++ {
			candidate := name + "_" + strconv.Itoa(n)
			if !taken[candidate] {
				taken[candidate] = true
				out[i] = candidate
				break
			}
		}
	}
	return out
}

// MarshalJSON writes the row as an object whose keys follow column order.
// Repeated column names get the suffixes chosen by UniqueNames.
func (r Row) MarshalJSON() ([]byte, error) {
	names := UniqueNames(r.Names())
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(names[i])
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is the outcome of one query cycle. It is built once and not
// modified after it is handed to a caller.
type Result struct {
	Success              bool        `json:"success"`
	Data                 []Row       `json:"data"`
	RowCount             int         `json:"row_count"`
	Query                string      `json:"query,omitempty"`
	Error                string      `json:"error,omitempty"`
	NaturalLanguageQuery string      `json:"natural_language_query,omitempty"`
	Columns              []string    `json:"columns,omitempty"`
	Truncated            bool        `json:"truncated,omitempty"`
	FailureKind          FailureKind `json:"failure_kind,omitempty"`
	DurationMs           int64       `json:"duration_ms"`
}

func Failure(kind FailureKind, message, sqlText string) Result {
	return Result{
		Success:     false,
		Data:        []Row{},
		Query:       sqlText,
		Error:       message,
		FailureKind: kind,
	}
}

// Outcome is a stable label for metrics and history.
func (r Result) Outcome() string {
	if r.Success {
		return "success"
	}
	return string(r.FailureKind)
}

type Engine interface {
	Execute(ctx context.Context, sqlText string, maxRows int) Result
}

// Elapsed is a small helper for stamping DurationMs.
func Elapsed(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
