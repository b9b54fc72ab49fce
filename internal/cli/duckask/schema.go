package duckask

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duckask/duckask/internal/query"
	duckdbengine "github.com/duckask/duckask/internal/query/duckdb"
)

func newSchemaCommand(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the tables and columns questions are grounded on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := duckdbengine.CheckDatabase(state.cfg.Database.Path); err != nil {
				return err
			}
			engine := duckdbengine.NewEngine(duckdbengine.Options{
				Path:           state.cfg.Database.Path,
				ReadOnly:       state.cfg.Database.ReadOnly,
				ConnectTimeout: state.cfg.Database.Timeout,
				QueryTimeout:   state.cfg.Query.Timeout,
				Logger:         state.logger,
			})
			schema, err := engine.Describe(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if state.format == query.FormatNameJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(schema)
			}
			if schema.IsEmpty() {
				_, _ = fmt.Fprintln(out, "No tables found.")
				return nil
			}
			_, _ = fmt.Fprint(out, strings.TrimLeft(schema.Render(), "\n"))
			return nil
		},
	}
}
