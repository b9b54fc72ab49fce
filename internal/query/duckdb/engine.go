package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb/v2"

	"github.com/duckask/duckask/internal/query"
)

const (
	DefaultMaxRows        = 100
	defaultConnectTimeout = 30 * time.Second
	defaultQueryTimeout   = 10 * time.Second
)

var ErrDatabaseNotFound = errors.New("database file not found")

type Options struct {
	Path           string
	ReadOnly       bool
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
	Logger         *slog.Logger
}

type openFunc func(driverName, dsn string) (*sql.DB, error)

// Engine runs read-only statements against a DuckDB database file. Every
// call opens its own connection and closes it before returning.
type Engine struct {
	opts Options
	open openFunc
}

func NewEngine(opts Options) *Engine {
	return newEngine(opts, sql.Open)
}

func newEngine(opts Options, open openFunc) *Engine {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = defaultQueryTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{opts: opts, open: open}
}

// CheckDatabase reports ErrDatabaseNotFound when path does not name a file.
func CheckDatabase(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrDatabaseNotFound, path)
		}
		return fmt.Errorf("stat database %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrDatabaseNotFound, path)
	}
	return nil
}

func (e *Engine) DSN() string {
	if e.opts.ReadOnly {
		return e.opts.Path + "?access_mode=read_only"
	}
	return e.opts.Path
}

func (e *Engine) Path() string {
	return e.opts.Path
}

// Ping verifies that the database can be opened.
func (e *Engine) Ping(ctx context.Context) error {
	db, err := e.connect(ctx)
	if err != nil {
		return err
	}
	return db.Close()
}

func (e *Engine) connect(ctx context.Context) (*sql.DB, error) {
	db, err := e.open("duckdb", e.DSN())
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, e.opts.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect duckdb %q: %w", e.opts.Path, err)
	}
	return db, nil
}

// Execute runs the first statement of sqlText and keeps at most maxRows rows.
// Failures are reported inside the result, never as a Go error.
func (e *Engine) Execute(ctx context.Context, sqlText string, maxRows int) query.Result {
	start := time.Now()
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sqlText)), "SELECT") {
		result := query.Failure(query.FailureValidation, query.MsgSelectOnly, sqlText)
		result.DurationMs = query.Elapsed(start)
		return result
	}
	statement := query.FirstStatement(sqlText)

	fail := func(err error) query.Result {
		e.opts.Logger.Error("query execution failed", "error", err, "query", statement)
		result := query.Failure(query.FailureExecution, e.describeError(err), statement)
		result.DurationMs = query.Elapsed(start)
		return result
	}

	db, err := e.connect(ctx)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = db.Close() }()

	queryCtx, cancel := context.WithTimeout(ctx, e.opts.QueryTimeout)
	defer cancel()

	rows, err := db.QueryContext(queryCtx, statement)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return fail(fmt.Errorf("query columns: %w", err))
	}

	data := make([]query.Row, 0)
	truncated := false
	for rows.Next() {
		if len(data) == maxRows {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return fail(fmt.Errorf("scan row: %w", err))
		}
		row := make(query.Row, len(columns))
		for i, column := range columns {
			row[i] = query.Field{Name: column, Value: normalizeValue(values[i])}
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return fail(fmt.Errorf("iterate rows: %w", err))
	}
	if truncated {
		e.opts.Logger.Warn("query result truncated", "max_rows", maxRows, "query", statement)
	}

	return query.Result{
		Success:    true,
		Data:       data,
		RowCount:   len(data),
		Query:      statement,
		Columns:    columns,
		Truncated:  truncated,
		DurationMs: query.Elapsed(start),
	}
}

func (e *Engine) describeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("query exceeded timeout of %s", e.opts.QueryTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return "query canceled"
	}
	return err.Error()
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case duckdb.Decimal:
		return typed.Float64()
	case *big.Int:
		if typed == nil {
			return nil
		}
		return typed.String()
	case duckdb.Map:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[fmt.Sprint(key)] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return typed
	}
}
