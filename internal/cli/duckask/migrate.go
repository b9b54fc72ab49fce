package duckask

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/duckask/duckask/internal/migrations"
)

func newMigrateCommand(state *rootState) *cobra.Command {
	var (
		direction string
		steps     int
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the query history schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dsn := strings.TrimSpace(state.cfg.History.DSN)
			if dsn == "" {
				return fmt.Errorf("DUCKASK_HISTORY_DSN is required")
			}
			dialect := migrations.DialectFor(dsn)

			db, err := sql.Open(dialect.DriverName(), dsn)
			if err != nil {
				return fmt.Errorf("database open error: %w", err)
			}
			defer func() { _ = db.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("database ping error: %w", err)
			}

			runner := migrations.NewRunner(dialect)
			out := cmd.OutOrStdout()
			switch direction {
			case "up":
				applied, err := runner.Up(ctx, db, steps)
				if err != nil {
					return fmt.Errorf("migration up failed: %w", err)
				}
				_, _ = fmt.Fprintf(out, "applied %d migration(s)\n", applied)
			case "down":
				rolledBack, err := runner.Down(ctx, db, steps)
				if err != nil {
					return fmt.Errorf("migration down failed: %w", err)
				}
				_, _ = fmt.Fprintf(out, "rolled back %d migration(s)\n", rolledBack)
			default:
				return fmt.Errorf("invalid direction: %s", direction)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "up", "Migration direction: up|down")
	cmd.Flags().IntVar(&steps, "steps", 0, "Number of migration steps; 0 means all for up, 1 for down")

	return cmd
}
