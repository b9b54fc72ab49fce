// Package export writes successful query results to an object store as
// json, csv or parquet.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/duckask/duckask/internal/query"
)

type Format string

const (
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want json, csv or parquet)", value)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	default:
		return "application/vnd.apache.parquet"
	}
}

func Encode(format Format, result query.Result) ([]byte, error) {
	switch format {
	case FormatJSON:
		return EncodeJSON(result)
	case FormatCSV:
		return EncodeCSV(result)
	case FormatParquet:
		return EncodeParquet(result)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// EncodeJSON writes the rows as an array of objects in column order.
func EncodeJSON(result query.Result) ([]byte, error) {
	rows := result.Data
	if rows == nil {
		rows = []query.Row{}
	}
	body, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json export: %w", err)
	}
	return append(body, '\n'), nil
}

// EncodeCSV writes a header line followed by one record per row. NULL
// becomes an empty field.
func EncodeCSV(result query.Result) ([]byte, error) {
	columns := result.Headers()
	buf := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buf)
	if err := writer.Write(columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range result.Data {
		record := make([]string, len(columns))
		for i := range columns {
			if value := row.At(i); value != nil {
				record[i] = query.FormatValue(value)
			}
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv export: %w", err)
	}
	return buf.Bytes(), nil
}

// parquetCell is the long format used for parquet exports. Result columns
// are only known at runtime, so every value is stored as text next to its
// row index and column name.
type parquetCell struct {
	RowIndex int64   `parquet:"row_index"`
	Column   string  `parquet:"column"`
	Value    *string `parquet:"value,optional"`
}

func EncodeParquet(result query.Result) ([]byte, error) {
	columns := query.UniqueNames(result.Headers())
	cells := make([]parquetCell, 0, len(result.Data)*len(columns))
	for index, row := range result.Data {
		for i, column := range columns {
			cell := parquetCell{RowIndex: int64(index), Column: column}
			if value := row.At(i); value != nil {
				text := query.FormatValue(value)
				cell.Value = &text
			}
			cells = append(cells, cell)
		}
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetCell](buf)
	if _, err := writer.Write(cells); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
