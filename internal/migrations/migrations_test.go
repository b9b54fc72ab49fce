package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func TestLoadMigrationsSortsAndPairsUpDown(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/000002_two.up.sql":   {Data: []byte("SELECT 2;")},
		"sql/000002_two.down.sql": {Data: []byte("SELECT -2;")},
		"sql/000001_one.up.sql":   {Data: []byte("SELECT 1;")},
		"sql/000001_one.down.sql": {Data: []byte("SELECT -1;")},
	}

	items, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d", len(items))
	}
	if items[0].Version != 1 || items[1].Version != 2 {
		t.Fatalf("unexpected migration order: %+v", items)
	}
}

func TestLoadMigrationsErrorsWhenDownMissing(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/000001_one.up.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := loadMigrations(fsys)
	if err == nil {
		t.Fatal("expected error for missing down migration")
	}
	if !strings.Contains(err.Error(), "missing down SQL") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunnerAppliesAndRollsBackOnSQLite(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	runner := NewRunner(DialectSQLite)
	ctx := context.Background()

	applied, err := runner.Up(ctx, db, 0)
	if err != nil {
		t.Fatalf("runner.Up() error = %v", err)
	}
	if applied != 1 {
		t.Fatalf("runner.Up() applied %d, want 1", applied)
	}
	if again, err := runner.Up(ctx, db, 0); err != nil || again != 0 {
		t.Fatalf("second runner.Up() = %d, %v", again, err)
	}

	versions, err := runner.Applied(ctx, db)
	if err != nil {
		t.Fatalf("runner.Applied() error = %v", err)
	}
	if len(versions) != 1 || versions[0] != 1 {
		t.Fatalf("versions = %v", versions)
	}
	assertSQLiteTable(t, db, "query_history", true)

	rolledBack, err := runner.Down(ctx, db, 1)
	if err != nil {
		t.Fatalf("runner.Down() error = %v", err)
	}
	if rolledBack != 1 {
		t.Fatalf("runner.Down() rolled back %d, want 1", rolledBack)
	}
	assertSQLiteTable(t, db, "query_history", false)
}

func TestDialect(t *testing.T) {
	if got := DialectFor("postgres://u:p@localhost/db"); got != DialectPostgres {
		t.Fatalf("DialectFor(postgres) = %q", got)
	}
	if got := DialectFor("POSTGRESQL://localhost/db"); got != DialectPostgres {
		t.Fatalf("DialectFor(POSTGRESQL) = %q", got)
	}
	if got := DialectFor("duckask_history.db"); got != DialectSQLite {
		t.Fatalf("DialectFor(file) = %q", got)
	}
	if DialectSQLite.DriverName() != "sqlite" || DialectPostgres.DriverName() != "pgx" {
		t.Fatal("DriverName() mismatch")
	}

	query := "SELECT a FROM t WHERE b = $1 AND c = $2"
	if got := DialectSQLite.Rebind(query); got != "SELECT a FROM t WHERE b = ? AND c = ?" {
		t.Fatalf("Rebind(sqlite) = %q", got)
	}
	if got := DialectPostgres.Rebind(query); got != query {
		t.Fatalf("Rebind(postgres) = %q", got)
	}
}

func TestEmbeddedHistoryMigrationShape(t *testing.T) {
	body, err := embeddedFS.ReadFile("sql/000001_query_history.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, snippet := range []string{"CREATE TABLE IF NOT EXISTS query_history", "created_at_ms BIGINT NOT NULL", "query_history_created_idx"} {
		if !strings.Contains(string(body), snippet) {
			t.Fatalf("migration missing %q", snippet)
		}
	}
}

func assertSQLiteTable(t *testing.T, db *sql.DB, table string, expected bool) {
	t.Helper()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&count); err != nil {
		t.Fatalf("query table %q existence failed: %v", table, err)
	}
	if exists := count > 0; exists != expected {
		t.Fatalf("table %q exists = %v, want %v", table, exists, expected)
	}
}
