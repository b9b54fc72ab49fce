// Package duckask is the command tree of the duckask binary. The bare
// command starts an interactive session; subcommands cover one-shot
// questions, the HTTP server, schema inspection and history migrations.
package duckask

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/duckask/duckask/internal/app"
	"github.com/duckask/duckask/internal/cli/repl"
	"github.com/duckask/duckask/internal/config"
	"github.com/duckask/duckask/internal/nl2sql"
	"github.com/duckask/duckask/internal/observability"
	duckdbengine "github.com/duckask/duckask/internal/query/duckdb"
)

// Version is set at build time.
var Version = "dev"

// ErrQueryFailed marks a command whose result was already printed but did
// not succeed. Callers exit non-zero without printing it again.
var ErrQueryFailed = errors.New("query failed")

type Options struct {
	// Lookup replaces the process environment and .env file.
	Lookup config.LookupFunc
	// Generator replaces the provider client built from configuration.
	Generator nl2sql.Generator
	// LogOutput receives log lines instead of stderr.
	LogOutput io.Writer
}

type rootState struct {
	opts Options

	dbPath  string
	format  string
	maxRows int

	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
}

func NewRootCmd(opts Options) *cobra.Command {
	state := &rootState{opts: opts}

	rootCmd := &cobra.Command{
		Use:   "duckask",
		Short: "Ask questions about a DuckDB database in plain English",
		Long: `duckask translates natural language questions into read-only SQL,
runs them against a DuckDB database file and prints the results.

Without a subcommand it starts an interactive session.`,
		Version: Version,
		Args:    cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "version", "completion", "__complete":
				return nil
			}
			return state.load(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if state.closeLog != nil {
				return state.closeLog()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd, state)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&state.dbPath, "db", "", "Path to the DuckDB database file (overrides DB_PATH)")
	rootCmd.PersistentFlags().StringVarP(&state.format, "format", "f", "plain", "Result format: plain, pretty or json")
	rootCmd.PersistentFlags().IntVar(&state.maxRows, "max-rows", 0, "Maximum rows kept per query (overrides DUCKASK_MAX_ROWS)")

	_ = rootCmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"plain", "pretty", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newAskCommand(state))
	rootCmd.AddCommand(newServeCommand(state))
	rootCmd.AddCommand(newSchemaCommand(state))
	rootCmd.AddCommand(newMigrateCommand(state))
	rootCmd.AddCommand(newSeedCommand(state))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the command tree against the process environment and returns
// the exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCmd(Options{})
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrQueryFailed) {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (s *rootState) load(cmd *cobra.Command) error {
	var (
		cfg config.Config
		err error
	)
	if s.opts.Lookup != nil {
		cfg, err = config.Load("duckask", s.opts.Lookup)
	} else {
		cfg, err = config.LoadFromEnv("duckask")
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("db") {
		cfg.Database.Path = s.dbPath
	}
	if cmd.Flags().Changed("max-rows") {
		if s.maxRows <= 0 {
			return fmt.Errorf("--max-rows must be positive, got %d", s.maxRows)
		}
		cfg.Query.MaxRows = s.maxRows
	}

	console := s.opts.LogOutput
	if console == nil {
		console = cmd.ErrOrStderr()
	}
	output, closeLog, err := observability.OpenLogOutput(cfg, console)
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.logger = observability.NewLogger(cfg, output)
	s.closeLog = closeLog
	return nil
}

func (s *rootState) openRuntime(ctx context.Context) (*app.Runtime, error) {
	var opts []app.Option
	if s.opts.Generator != nil {
		opts = append(opts, app.WithGenerator(s.opts.Generator))
	}
	return app.Open(ctx, s.cfg, s.logger, opts...)
}

func runInteractive(cmd *cobra.Command, state *rootState) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	state.logger.Info("initializing session", "database", state.cfg.Database.Path)
	rt, err := state.openRuntime(ctx)
	if err != nil {
		if errors.Is(err, duckdbengine.ErrDatabaseNotFound) {
			state.logger.Error("database not found", "path", state.cfg.Database.Path)
			abs, _ := filepath.Abs(state.cfg.Database.Path)
			_, _ = fmt.Fprintf(out, "Error: Database file '%s' not found.\n", state.cfg.Database.Path)
			_, _ = fmt.Fprintf(out, "Please ensure the database is located at: %s\n", abs)
			return ErrQueryFailed
		}
		state.logger.Error("failed to initialize session", "error", err)
		return fmt.Errorf("failed to initialize session: %w", err)
	}
	defer func() { _ = rt.Close() }()
	state.logger.Info("session initialized", "session_id", rt.Agent.SessionID(), "tables", len(rt.Agent.Schema().Tables))

	session := repl.New(rt.Agent, repl.Options{
		Out:         out,
		Format:      state.format,
		HistoryFile: readlineHistoryFile(),
		Logger:      state.logger,
		Exporter: func(ctx context.Context) (repl.Exporter, error) {
			exporter, err := rt.Exporter(ctx)
			if err != nil {
				return nil, err
			}
			return exporter, nil
		},
	})
	session.Banner(state.cfg.Database.Path)
	return session.Run(ctx)
}

func readlineHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".duckask_history")
}
