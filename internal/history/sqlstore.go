package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/duckask/duckask/internal/migrations"
)

const maxRecentLimit = 500

type SQLStore struct {
	db      *sql.DB
	dialect migrations.Dialect
	now     func() time.Time
	newID   func() string
}

// Open connects to dsn and brings the schema up to date. DSNs starting with
// postgres:// use pgx, anything else is a SQLite file path.
func Open(ctx context.Context, dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("history dsn is required")
	}
	dialect := migrations.DialectFor(dsn)
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	if dialect == migrations.DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history store: %w", err)
	}
	if _, err := migrations.NewRunner(dialect).Up(ctx, db, 0); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history store: %w", err)
	}
	return NewSQLStore(db, dialect), nil
}

func NewSQLStore(db *sql.DB, dialect migrations.Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Record(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = s.newID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	entry.CreatedAt = entry.CreatedAt.UTC().Truncate(time.Millisecond)

	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
INSERT INTO query_history (
    history_id, session_id, natural_language_query, generated_sql, success,
    failure_kind, error_message, row_count, truncated, duration_ms, created_at_ms
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`),
		entry.ID,
		entry.SessionID,
		entry.NaturalLanguageQuery,
		entry.SQL,
		entry.Success,
		entry.FailureKind,
		entry.Error,
		entry.RowCount,
		entry.Truncated,
		entry.DurationMs,
		entry.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert query history: %w", err)
	}
	return entry, nil
}

// Recent returns the newest entries first.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`
SELECT history_id, session_id, natural_language_query, generated_sql, success,
    failure_kind, error_message, row_count, truncated, duration_ms, created_at_ms
FROM query_history
ORDER BY created_at_ms DESC, history_id DESC
LIMIT $1`), limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		var createdAtMs int64
		if err := rows.Scan(
			&entry.ID,
			&entry.SessionID,
			&entry.NaturalLanguageQuery,
			&entry.SQL,
			&entry.Success,
			&entry.FailureKind,
			&entry.Error,
			&entry.RowCount,
			&entry.Truncated,
			&entry.DurationMs,
			&createdAtMs,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entry.CreatedAt = time.UnixMilli(createdAtMs).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}
