package duckdb

import (
	"context"
	"fmt"

	"github.com/duckask/duckask/internal/catalog"
)

// listTablesSQL orders tables by schema and then name, not by creation
// order, so the rendered schema and prompt are stable across sessions.
const listTablesSQL = `
SELECT table_schema, table_name
FROM information_schema.tables
WHERE table_catalog = current_database()
  AND table_schema NOT IN ('information_schema', 'pg_catalog')
  AND table_type IN ('BASE TABLE', 'VIEW')
ORDER BY table_schema, table_name`

const listColumnsSQL = `
SELECT table_schema, table_name, column_name, data_type
FROM information_schema.columns
WHERE table_catalog = current_database()
  AND table_schema NOT IN ('information_schema', 'pg_catalog')
ORDER BY table_schema, table_name, ordinal_position`

type tableKey struct {
	schema string
	name   string
}

// Describe reads every user table and view along with its columns.
func (e *Engine) Describe(ctx context.Context) (catalog.Description, error) {
	db, err := e.connect(ctx)
	if err != nil {
		return catalog.Description{}, &catalog.IntrospectionError{Op: "connect", Err: err}
	}
	defer func() { _ = db.Close() }()

	tableRows, err := db.QueryContext(ctx, listTablesSQL)
	if err != nil {
		return catalog.Description{}, &catalog.IntrospectionError{Op: "list tables", Err: err}
	}
	keys := make([]tableKey, 0)
	for tableRows.Next() {
		var key tableKey
		if err := tableRows.Scan(&key.schema, &key.name); err != nil {
			_ = tableRows.Close()
			return catalog.Description{}, &catalog.IntrospectionError{Op: "scan table", Err: err}
		}
		keys = append(keys, key)
	}
	if err := tableRows.Err(); err != nil {
		_ = tableRows.Close()
		return catalog.Description{}, &catalog.IntrospectionError{Op: "list tables", Err: err}
	}
	_ = tableRows.Close()

	columnRows, err := db.QueryContext(ctx, listColumnsSQL)
	if err != nil {
		return catalog.Description{}, &catalog.IntrospectionError{Op: "list columns", Err: err}
	}
	defer func() { _ = columnRows.Close() }()

	columns := make(map[tableKey][]catalog.Column, len(keys))
	for columnRows.Next() {
		var key tableKey
		var column catalog.Column
		if err := columnRows.Scan(&key.schema, &key.name, &column.Name, &column.Type); err != nil {
			return catalog.Description{}, &catalog.IntrospectionError{Op: "scan column", Err: err}
		}
		columns[key] = append(columns[key], column)
	}
	if err := columnRows.Err(); err != nil {
		return catalog.Description{}, &catalog.IntrospectionError{Op: "list columns", Err: err}
	}

	description := catalog.Description{Tables: make([]catalog.Table, 0, len(keys))}
	for _, key := range keys {
		description.Tables = append(description.Tables, catalog.Table{
			Name:    displayName(key),
			Columns: columns[key],
		})
	}
	if description.IsEmpty() {
		e.opts.Logger.Warn("database has no tables", "path", e.opts.Path)
	}
	return description, nil
}

func displayName(key tableKey) string {
	if key.schema == "" || key.schema == "main" {
		return key.name
	}
	return fmt.Sprintf("%s.%s", key.schema, key.name)
}
