package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/duckask/duckask/internal/query"
)

func TestExecuteReturnsOrderedRows(t *testing.T) {
	engine := NewEngine(Options{Path: seedDatabase(t,
		`CREATE TABLE users (id INTEGER, name VARCHAR)`,
		`INSERT INTO users VALUES (1, 'ada'), (2, 'grace')`,
	), ReadOnly: true})

	result := engine.Execute(context.Background(), "SELECT name, id FROM users ORDER BY id;  SELECT 2", 10)
	if !result.Success {
		t.Fatalf("Execute() error = %s", result.Error)
	}
	if result.Query != "SELECT name, id FROM users ORDER BY id" {
		t.Fatalf("Query = %q", result.Query)
	}
	if result.RowCount != 2 || len(result.Data) != 2 {
		t.Fatalf("RowCount = %d, rows = %d", result.RowCount, len(result.Data))
	}
	if got := result.Data[0].Names(); got[0] != "name" || got[1] != "id" {
		t.Fatalf("column order = %v", got)
	}
	if value, _ := result.Data[1].Get("name"); value != "grace" {
		t.Fatalf("name = %#v", value)
	}
	if value, _ := result.Data[0].Get("id"); value != int32(1) {
		t.Fatalf("id = %#v", value)
	}
	if result.Truncated {
		t.Fatal("result should not be truncated")
	}
}

func TestExecuteCapsRowsAtMax(t *testing.T) {
	engine := NewEngine(Options{Path: seedDatabase(t), ReadOnly: true})

	result := engine.Execute(context.Background(), "SELECT * FROM range(101) t(n)", 100)
	if !result.Success {
		t.Fatalf("Execute() error = %s", result.Error)
	}
	if result.RowCount != 100 {
		t.Fatalf("RowCount = %d, want 100", result.RowCount)
	}
	if !result.Truncated {
		t.Fatal("expected truncated result")
	}

	exact := engine.Execute(context.Background(), "SELECT * FROM range(100) t(n)", 100)
	if exact.RowCount != 100 || exact.Truncated {
		t.Fatalf("exact result = %d rows, truncated=%v", exact.RowCount, exact.Truncated)
	}
}

func TestExecuteRejectsNonSelect(t *testing.T) {
	engine := NewEngine(Options{Path: filepath.Join(t.TempDir(), "never-opened.duckdb"), ReadOnly: true})

	result := engine.Execute(context.Background(), "DROP TABLE users", 10)
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != query.MsgSelectOnly {
		t.Fatalf("Error = %q", result.Error)
	}
	if result.Data == nil || len(result.Data) != 0 {
		t.Fatalf("Data = %#v", result.Data)
	}
}

func TestExecuteReportsEngineErrors(t *testing.T) {
	engine := NewEngine(Options{Path: seedDatabase(t), ReadOnly: true})

	result := engine.Execute(context.Background(), "SELECT * FROM ghosts", 10)
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.FailureKind != query.FailureExecution {
		t.Fatalf("FailureKind = %q", result.FailureKind)
	}
	if result.Error == "" || result.Query != "SELECT * FROM ghosts" {
		t.Fatalf("result = %#v", result)
	}
}

func TestExecuteNormalizesValues(t *testing.T) {
	engine := NewEngine(Options{Path: seedDatabase(t), ReadOnly: true})

	result := engine.Execute(context.Background(), "SELECT CAST(1.5 AS DECIMAL(10,2)) AS d, 'x'::BLOB AS b, 12345::HUGEINT AS h, NULL AS n", 1)
	if !result.Success {
		t.Fatalf("Execute() error = %s", result.Error)
	}
	row := result.Data[0]
	if value, _ := row.Get("d"); value != 1.5 {
		t.Fatalf("d = %#v", value)
	}
	if value, _ := row.Get("b"); value != "x" {
		t.Fatalf("b = %#v", value)
	}
	if value, _ := row.Get("h"); value != "12345" {
		t.Fatalf("h = %#v", value)
	}
	if value, ok := row.Get("n"); !ok || value != nil {
		t.Fatalf("n = %#v, %v", value, ok)
	}
}

func TestExecuteMapsDriverErrorMessage(t *testing.T) {
	db, mock := newSQLMock(t)
	engine := newEngine(Options{Path: "mock.duckdb"}, func(string, string) (*sql.DB, error) { return db, nil })

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM ghosts")).
		WillReturnError(errors.New("Catalog Error: Table with name ghosts does not exist!"))

	result := engine.Execute(context.Background(), "SELECT * FROM ghosts;", 10)
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != "Catalog Error: Table with name ghosts does not exist!" {
		t.Fatalf("Error = %q", result.Error)
	}
	assertSQLMock(t, mock)
}

func TestExecuteStopsScanningAtMax(t *testing.T) {
	db, mock := newSQLMock(t)
	engine := newEngine(Options{Path: "mock.duckdb"}, func(string, string) (*sql.DB, error) { return db, nil })

	mock.ExpectQuery(regexp.QuoteMeta("SELECT n FROM numbers")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1).AddRow(2).AddRow(3))

	result := engine.Execute(context.Background(), "SELECT n FROM numbers", 2)
	if result.RowCount != 2 || !result.Truncated {
		t.Fatalf("RowCount = %d, truncated = %v", result.RowCount, result.Truncated)
	}
	assertSQLMock(t, mock)
}

func TestOpenFailureIsReportedInResult(t *testing.T) {
	engine := newEngine(Options{Path: "broken.duckdb"}, func(string, string) (*sql.DB, error) {
		return nil, errors.New("boom")
	})
	result := engine.Execute(context.Background(), "SELECT 1", 1)
	if result.Success || result.FailureKind != query.FailureExecution {
		t.Fatalf("result = %#v", result)
	}
	if err := engine.Ping(context.Background()); err == nil {
		t.Fatal("Ping() should fail")
	}
}

func TestDSN(t *testing.T) {
	if got := NewEngine(Options{Path: "a.duckdb", ReadOnly: true}).DSN(); got != "a.duckdb?access_mode=read_only" {
		t.Fatalf("DSN() = %q", got)
	}
	if got := NewEngine(Options{Path: "a.duckdb"}).DSN(); got != "a.duckdb" {
		t.Fatalf("DSN() = %q", got)
	}
}

func TestCheckDatabase(t *testing.T) {
	if err := CheckDatabase(filepath.Join(t.TempDir(), "missing.duckdb")); !errors.Is(err, ErrDatabaseNotFound) {
		t.Fatalf("CheckDatabase(missing) error = %v", err)
	}
	if err := CheckDatabase(t.TempDir()); !errors.Is(err, ErrDatabaseNotFound) {
		t.Fatalf("CheckDatabase(dir) error = %v", err)
	}
	if err := CheckDatabase(seedDatabase(t)); err != nil {
		t.Fatalf("CheckDatabase(file) error = %v", err)
	}
}

// seedDatabase writes a database file and closes it so the engine can reopen
// it read-only.
func seedDatabase(t *testing.T, statements ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.duckdb")
	db, err := sql.Open("duckdb", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	for _, statement := range append(statements, "CHECKPOINT") {
		if _, err := db.Exec(statement); err != nil {
			_ = db.Close()
			t.Fatalf("seed %q error = %v", statement, err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close seed db: %v", err)
	}
	return path
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
