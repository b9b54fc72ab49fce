package duckask

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duckask/duckask/internal/export"
	"github.com/duckask/duckask/internal/query"
)

func newAskCommand(state *rootState) *cobra.Command {
	var (
		rawSQL       bool
		exportFormat string
		exportName   string
	)

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Answer a single question and exit",
		Example: `  duckask ask how many users signed up last week
  duckask ask --format json "top 5 courses by enrollment"
  duckask ask --sql "SELECT COUNT(*) FROM users"
  duckask ask --export csv --name signups "signups per day"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.TrimSpace(strings.Join(args, " "))
			if input == "" {
				return fmt.Errorf("a question is required")
			}

			var format export.Format
			if exportFormat != "" {
				parsed, err := export.ParseFormat(exportFormat)
				if err != nil {
					return err
				}
				format = parsed
				if strings.TrimSpace(exportName) == "" {
					return fmt.Errorf("--name is required with --export")
				}
			}

			rt, err := state.openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			var result query.Result
			if rawSQL {
				result = rt.Agent.RunSQL(cmd.Context(), input)
			} else {
				result = rt.Agent.Ask(cmd.Context(), input)
			}

			out := cmd.OutOrStdout()
			if err := query.Render(out, result, state.format); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out)
			if !result.Success {
				return ErrQueryFailed
			}

			if format != "" {
				exporter, err := rt.Exporter(cmd.Context())
				if err != nil {
					return err
				}
				artifact, err := exporter.Export(cmd.Context(), result, format, exportName)
				if err != nil {
					return fmt.Errorf("export result: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "exported %d rows to %s\n", artifact.Rows, artifact.Location)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rawSQL, "sql", false, "Treat the arguments as a SELECT statement and skip generation")
	cmd.Flags().StringVar(&exportFormat, "export", "", "Also save the result: json, csv or parquet")
	cmd.Flags().StringVar(&exportName, "name", "", "Base name for the exported file")

	return cmd
}
