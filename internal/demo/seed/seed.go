// Package seed builds a small learning platform database for trying out
// questions without bringing your own data.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const DefaultUsers = 200

var ErrDatabaseExists = errors.New("database file already exists")

type Options struct {
	Path      string
	Users     int
	Seed      int64
	Overwrite bool
	Logger    *slog.Logger
}

type Summary struct {
	Users       int `json:"users"`
	Courses     int `json:"courses"`
	Enrollments int `json:"enrollments"`
}

var schemaStatements = []string{
	`CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	name VARCHAR NOT NULL,
	email VARCHAR NOT NULL,
	country VARCHAR,
	signed_up_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE courses (
	id INTEGER PRIMARY KEY,
	title VARCHAR NOT NULL,
	category VARCHAR NOT NULL,
	price DOUBLE NOT NULL
)`,
	`CREATE TABLE enrollments (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id),
	course_id INTEGER NOT NULL REFERENCES courses(id),
	enrolled_at TIMESTAMP NOT NULL,
	progress INTEGER NOT NULL,
	completed BOOLEAN NOT NULL,
	amount_paid DOUBLE NOT NULL
)`,
}

// Write creates the database at opts.Path and fills it with generated rows.
// An existing file is left alone unless Overwrite is set.
func Write(ctx context.Context, opts Options) (Summary, error) {
	if opts.Path == "" {
		return Summary{}, fmt.Errorf("database path is required")
	}
	if opts.Users <= 0 {
		opts.Users = DefaultUsers
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if _, err := os.Stat(opts.Path); err == nil {
		if !opts.Overwrite {
			return Summary{}, fmt.Errorf("%w: %s", ErrDatabaseExists, opts.Path)
		}
		if err := os.Remove(opts.Path); err != nil {
			return Summary{}, fmt.Errorf("remove existing database: %w", err)
		}
		_ = os.Remove(opts.Path + ".wal")
	}

	return write(ctx, opts, NewGenerator(opts.Seed).Generate(opts.Users))
}

func write(ctx context.Context, opts Options, dataset Dataset) (Summary, error) {
	db, err := sql.Open("duckdb", opts.Path)
	if err != nil {
		return Summary{}, fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, statement := range schemaStatements {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return Summary{}, fmt.Errorf("create schema: %w", err)
		}
	}

	for _, course := range dataset.Courses {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO courses (id, title, category, price) VALUES (?, ?, ?, ?)`,
			course.ID, course.Title, course.Category, course.Price,
		); err != nil {
			return Summary{}, fmt.Errorf("insert course %d: %w", course.ID, err)
		}
	}
	for _, user := range dataset.Users {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, name, email, country, signed_up_at) VALUES (?, ?, ?, ?, ?)`,
			user.ID, user.Name, user.Email, user.Country, user.SignedUpAt,
		); err != nil {
			return Summary{}, fmt.Errorf("insert user %d: %w", user.ID, err)
		}
	}
	for _, enrollment := range dataset.Enrollments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO enrollments (id, user_id, course_id, enrolled_at, progress, completed, amount_paid) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			enrollment.ID, enrollment.UserID, enrollment.CourseID, enrollment.EnrolledAt,
			enrollment.Progress, enrollment.Completed, enrollment.AmountPaid,
		); err != nil {
			return Summary{}, fmt.Errorf("insert enrollment %d: %w", enrollment.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Summary{}, fmt.Errorf("commit seed transaction: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return Summary{}, fmt.Errorf("checkpoint database: %w", err)
	}

	summary := Summary{
		Users:       len(dataset.Users),
		Courses:     len(dataset.Courses),
		Enrollments: len(dataset.Enrollments),
	}
	opts.Logger.Info("seeded demo database",
		slog.String("path", opts.Path),
		slog.Int("users", summary.Users),
		slog.Int("courses", summary.Courses),
		slog.Int("enrollments", summary.Enrollments),
	)
	return summary, nil
}
