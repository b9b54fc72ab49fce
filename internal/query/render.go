package query

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	previewRows = 10
	ruleWidth   = 80
)

const (
	FormatNamePlain  = "plain"
	FormatNamePretty = "pretty"
	FormatNameJSON   = "json"
)

func ValidFormat(name string) bool {
	switch name {
	case FormatNamePlain, FormatNamePretty, FormatNameJSON:
		return true
	default:
		return false
	}
}

// Render writes result to w in the named format. Unknown names fall back to plain.
func Render(w io.Writer, result Result, format string) error {
	switch format {
	case FormatNamePretty:
		return FormatPretty(w, result)
	case FormatNameJSON:
		return FormatJSON(w, result)
	default:
		_, err := io.WriteString(w, FormatPlain(result))
		return err
	}
}

// FormatPlain renders the human readable summary printed by the REPL.
func FormatPlain(result Result) string {
	if !result.Success {
		return "Error: " + errorMessage(result)
	}
	if len(result.Data) == 0 {
		return "No results found."
	}

	columns := result.Headers()
	rule := strings.Repeat("-", ruleWidth)

	var b strings.Builder
	fmt.Fprintf(&b, "\nFound %d results:\n", result.RowCount)
	b.WriteString(rule + "\n")
	b.WriteString(strings.Join(columns, " | ") + "\n")
	b.WriteString(rule + "\n")
	for _, row := range result.Data[:min(previewRows, len(result.Data))] {
		values := make([]string, len(columns))
		for i := range columns {
			values[i] = FormatValue(row.At(i))
		}
		b.WriteString(strings.Join(values, " | ") + "\n")
	}
	if len(result.Data) > previewRows {
		fmt.Fprintf(&b, "\n... and %d more rows\n", len(result.Data)-previewRows)
	}
	return b.String()
}

func FormatPretty(w io.Writer, result Result) error {
	if !result.Success {
		_, err := fmt.Fprintf(w, "Error: %s\n", errorMessage(result))
		return err
	}
	if len(result.Data) == 0 {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}

	columns := result.Headers()
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(columns))
	for i, column := range columns {
		header[i] = column
	}
	t.AppendHeader(header)

	for _, row := range result.Data {
		out := make(table.Row, len(columns))
		for i := range columns {
			out[i] = FormatValue(row.At(i))
		}
		t.AppendRow(out)
	}
	t.Render()

	suffix := ""
	if result.Truncated {
		suffix = ", truncated"
	}
	_, err := fmt.Fprintf(w, "(%d rows%s)\n", result.RowCount, suffix)
	return err
}

func FormatJSON(w io.Writer, result Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func FormatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func errorMessage(result Result) string {
	if strings.TrimSpace(result.Error) == "" {
		return "Unknown error"
	}
	return result.Error
}

// Headers prefers the engine reported columns and falls back to the first row.
func (r Result) Headers() []string {
	if len(r.Columns) > 0 {
		return r.Columns
	}
	if len(r.Data) == 0 {
		return nil
	}
	return r.Data[0].Names()
}
