package duckask

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duckask/duckask/internal/demo/seed"
)

func newSeedCommand(state *rootState) *cobra.Command {
	var (
		users     int
		seedValue int64
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a sample learning platform database to ask questions about",
		Example: `  duckask seed
  duckask seed --db demo.duckdb --users 1000 --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := seed.Write(cmd.Context(), seed.Options{
				Path:      state.cfg.Database.Path,
				Users:     users,
				Seed:      seedValue,
				Overwrite: overwrite,
				Logger:    state.logger,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s with %d users, %d courses and %d enrollments\n",
				state.cfg.Database.Path, summary.Users, summary.Courses, summary.Enrollments)
			return nil
		},
	}

	cmd.Flags().IntVar(&users, "users", seed.DefaultUsers, "Number of users to generate")
	cmd.Flags().Int64Var(&seedValue, "seed", 1, "Random seed; the same seed yields the same data")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing database file")

	return cmd
}
