// Package repl is the interactive front end: it reads questions line by line,
// runs each through the agent and prints the outcome.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pterm/pterm"

	"github.com/duckask/duckask/internal/catalog"
	"github.com/duckask/duckask/internal/export"
	"github.com/duckask/duckask/internal/history"
	"github.com/duckask/duckask/internal/query"
)

const (
	DefaultPrompt = "You: "
	ruleWidth     = 80
)

var exitWords = map[string]struct{}{
	"exit": {},
	"quit": {},
	"bye":  {},
	"q":    {},
}

// Service is the part of agent.Agent a session drives.
type Service interface {
	Ask(ctx context.Context, question string) query.Result
	Schema() catalog.Description
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

type Exporter interface {
	Export(ctx context.Context, result query.Result, format export.Format, name string) (export.Artifact, error)
}

// ExporterFactory defers building the export target until .export is used.
type ExporterFactory func(ctx context.Context) (Exporter, error)

type Options struct {
	Out         io.Writer
	Format      string
	Prompt      string
	HistoryFile string
	Exporter    ExporterFactory
	Logger      *slog.Logger
}

type Session struct {
	service Service
	out     io.Writer
	opts    Options
	logger  *slog.Logger

	format  string
	last    query.Result
	hasLast bool
}

func New(service Service, opts Options) *Session {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Prompt == "" {
		opts.Prompt = DefaultPrompt
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if !query.ValidFormat(format) {
		format = query.FormatNamePlain
	}
	return &Session{service: service, out: out, opts: opts, logger: logger, format: format}
}

func (s *Session) Format() string {
	return s.format
}

// Banner prints the greeting shown before the first prompt.
func (s *Session) Banner(databasePath string) {
	rule := strings.Repeat("=", ruleWidth)
	_, _ = fmt.Fprintf(s.out, "\n%s\nDuckAsk - Natural Language Database Query Tool\n%s\n", rule, rule)
	_, _ = fmt.Fprintln(s.out, "Ask questions in English and get SQL results!")
	_, _ = fmt.Fprintln(s.out, "Type 'exit' or 'quit' to stop, '.help' for commands.")
	_, _ = fmt.Fprintln(s.out)
	pterm.Success.WithWriter(s.out).Printfln("Connected to database: %s", databasePath)
	_, _ = fmt.Fprintln(s.out)
}

// Run reads lines until an exit word, end of input or an interrupt.
func (s *Session) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.opts.Prompt,
		HistoryFile:     s.opts.HistoryFile,
		AutoComplete:    newCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initialize line editor: %w", err)
	}
	defer func() { _ = rl.Close() }()
	defer s.logger.Info("session ended")

	for {
		if err := ctx.Err(); err != nil {
			_, _ = fmt.Fprintln(s.out, "\n\nAgent shutting down...")
			return nil
		}
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			_, _ = fmt.Fprintln(s.out, "\n\nInterrupted by user.")
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line: %w", err)
		}
		if s.HandleLine(ctx, line) {
			return nil
		}
	}
}

// HandleLine processes one line of input and reports whether the session
// should end. Nothing that goes wrong inside a line ends the session.
func (s *Session) HandleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if _, ok := exitWords[strings.ToLower(line)]; ok {
		_, _ = fmt.Fprintln(s.out, "\nGoodbye!")
		return true
	}
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, ".") {
		s.handleCommand(ctx, line)
		return false
	}

	_, _ = fmt.Fprintln(s.out, "\nAgent: Processing your query...")
	result := s.service.Ask(ctx, line)
	if err := query.Render(s.out, result, s.format); err != nil {
		pterm.Error.WithWriter(s.out).Printfln("render result: %v", err)
	}
	_, _ = fmt.Fprintf(s.out, "\n\n%s\n\n", strings.Repeat("-", ruleWidth))

	if result.Success {
		s.last = result
		s.hasLast = true
	}
	return false
}

func (s *Session) handleCommand(ctx context.Context, line string) {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case ".help":
		printHelp(s.out)
	case ".schema":
		s.printSchema()
	case ".history":
		s.printHistory(ctx, args)
	case ".export":
		s.exportLast(ctx, args)
	case ".format":
		s.setFormat(args)
	default:
		pterm.Warning.WithWriter(s.out).Printfln("Unknown command: %s (type .help for commands)", command)
	}
}

func (s *Session) printSchema() {
	schema := s.service.Schema()
	if schema.IsEmpty() {
		pterm.Warning.WithWriter(s.out).Println("The database has no tables.")
		return
	}
	_, _ = fmt.Fprintln(s.out, strings.TrimLeft(schema.Render(), "\n"))
}

func (s *Session) printHistory(ctx context.Context, args []string) {
	limit := history.DefaultRecentLimit
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed <= 0 {
			pterm.Error.WithWriter(s.out).Println("Usage: .history [n]")
			return
		}
		limit = parsed
	}

	entries, err := s.service.Recent(ctx, limit)
	if err != nil {
		if errors.Is(err, history.ErrDisabled) {
			pterm.Warning.WithWriter(s.out).Println("Query history is disabled.")
			return
		}
		s.logger.Warn("failed to read query history", "error", err)
		pterm.Error.WithWriter(s.out).Printfln("Failed to read history: %v", err)
		return
	}
	if len(entries) == 0 {
		pterm.Info.WithWriter(s.out).Println("No queries recorded yet.")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(s.out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"When", "Question", "OK", "Rows", "SQL"})
	for _, entry := range entries {
		status := "yes"
		if !entry.Success {
			status = "no"
		}
		tw.AppendRow(table.Row{
			entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			entry.NaturalLanguageQuery,
			status,
			entry.RowCount,
			entry.SQL,
		})
	}
	tw.Render()
}

func (s *Session) exportLast(ctx context.Context, args []string) {
	if len(args) != 2 {
		pterm.Error.WithWriter(s.out).Println("Usage: .export <json|csv|parquet> <name>")
		return
	}
	format, err := export.ParseFormat(args[0])
	if err != nil {
		pterm.Error.WithWriter(s.out).Println(err.Error())
		return
	}
	if !s.hasLast {
		pterm.Warning.WithWriter(s.out).Println("Nothing to export yet. Ask a question first.")
		return
	}
	if s.opts.Exporter == nil {
		pterm.Warning.WithWriter(s.out).Println("Export is not configured.")
		return
	}

	exporter, err := s.opts.Exporter(ctx)
	if err != nil {
		s.logger.Error("failed to initialize export target", "error", err)
		pterm.Error.WithWriter(s.out).Printfln("Export unavailable: %v", err)
		return
	}
	artifact, err := exporter.Export(ctx, s.last, format, args[1])
	if err != nil {
		s.logger.Error("export failed", "error", err)
		pterm.Error.WithWriter(s.out).Printfln("Export failed: %v", err)
		return
	}
	s.logger.Info("exported result", "location", artifact.Location, "rows", artifact.Rows)
	pterm.Success.WithWriter(s.out).Printfln("Exported %d rows to %s", artifact.Rows, artifact.Location)
}

func (s *Session) setFormat(args []string) {
	if len(args) == 0 {
		pterm.Info.WithWriter(s.out).Printfln("Output format: %s", s.format)
		return
	}
	format := strings.ToLower(args[0])
	if !query.ValidFormat(format) {
		pterm.Error.WithWriter(s.out).Println("Usage: .format plain|pretty|json")
		return
	}
	s.format = format
	pterm.Success.WithWriter(s.out).Printfln("Output format set to %s", format)
}

func printHelp(w io.Writer) {
	help := `
Commands:
  .help                    Show this help message
  .schema                  Show the tables and columns questions can use
  .history [n]             List the last n questions (default 20)
  .export <format> <name>  Save the last result as json, csv or parquet
  .format <name>           Switch output between plain, pretty and json
  exit | quit | bye | q    Leave the session
`
	_, _ = fmt.Fprintln(w, help)
}

func newCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".schema"),
		readline.PcItem(".history"),
		readline.PcItem(".export",
			readline.PcItem("json"),
			readline.PcItem("csv"),
			readline.PcItem("parquet"),
		),
		readline.PcItem(".format",
			readline.PcItem("plain"),
			readline.PcItem("pretty"),
			readline.PcItem("json"),
		),
		readline.PcItem("exit"),
	)
}
