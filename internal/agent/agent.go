// Package agent runs question-to-result cycles against a single database.
//
// A session is grounded on a schema description and an optional block of
// operator context, both loaded once by New. Each call to Ask builds a
// prompt, asks the generator for SQL, extracts and validates a candidate and
// executes it under the configured row cap. Failures at any step come back
// as results with Success=false.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/duckask/duckask/internal/catalog"
	"github.com/duckask/duckask/internal/history"
	"github.com/duckask/duckask/internal/nl2sql"
	"github.com/duckask/duckask/internal/observability"
	"github.com/duckask/duckask/internal/query"
)

type Settings struct {
	Provider        string
	Model           string
	MaxTokens       int
	MaxRows         int
	ContextFile     string
	ContextMaxChars int
}

type Dependencies struct {
	Introspector catalog.Introspector
	Engine       query.Engine
	Generator    nl2sql.Generator
	History      history.Store
	Logger       *slog.Logger
	Settings     Settings
	SessionID    string
}

type Agent struct {
	mu sync.Mutex

	engine    query.Engine
	generator nl2sql.Generator
	history   history.Store
	logger    *slog.Logger
	settings  Settings
	sessionID string

	schema            catalog.Description
	renderedSchema    string
	additionalContext string
}

func New(ctx context.Context, deps Dependencies) (*Agent, error) {
	if deps.Introspector == nil {
		return nil, fmt.Errorf("introspector is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := deps.History
	if store == nil {
		store = history.Nop{}
	}
	settings := deps.Settings
	if settings.MaxRows <= 0 {
		settings.MaxRows = 100
	}
	sessionID := deps.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	schema, err := deps.Introspector.Describe(ctx)
	if err != nil {
		logger.Error("failed to load schema", "error", err)
		return nil, err
	}
	logger.Info("database schema loaded", "tables", len(schema.Tables))

	return &Agent{
		engine:            deps.Engine,
		generator:         deps.Generator,
		history:           store,
		logger:            logger,
		settings:          settings,
		sessionID:         sessionID,
		schema:            schema.Clone(),
		renderedSchema:    schema.Render(),
		additionalContext: nl2sql.LoadAdditionalContext(settings.ContextFile, settings.ContextMaxChars, logger),
	}, nil
}

func (a *Agent) Schema() catalog.Description {
	return a.schema.Clone()
}

func (a *Agent) RenderedSchema() string {
	return a.renderedSchema
}

func (a *Agent) AdditionalContext() string {
	return a.additionalContext
}

func (a *Agent) SessionID() string {
	return a.sessionID
}

func (a *Agent) MaxRows() int {
	return a.settings.MaxRows
}

// Ask runs one full cycle for question.
func (a *Agent) Ask(ctx context.Context, question string) query.Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	a.logger.Info("processing query", "question", question)

	result := a.ask(ctx, question)
	result.NaturalLanguageQuery = question
	return a.finish(ctx, result, start)
}

func (a *Agent) ask(ctx context.Context, question string) query.Result {
	prompt := nl2sql.BuildPrompt(a.renderedSchema, a.additionalContext, question)

	generationStart := time.Now()
	raw, err := a.generator.Generate(ctx, nl2sql.GenerationRequest{
		Model:     a.settings.Model,
		MaxTokens: a.settings.MaxTokens,
		Prompt:    prompt,
	})
	observability.ObserveGeneration(a.providerLabel(), time.Since(generationStart))
	if err != nil {
		a.logger.Error("generation failed", "error", err)
		return query.Failure(query.FailureGeneration, "API error: "+generationMessage(err), "")
	}

	candidate, ok := nl2sql.ExtractSQL(raw)
	if !ok {
		a.logger.Warn("failed to extract SQL from response")
		return query.Failure(query.FailureExtraction, query.MsgNoValidSQL, "")
	}
	a.logger.Debug("generated SQL", "query", candidate)

	if err := query.Validate(candidate); err != nil {
		a.logger.Warn("generated query failed validation", "query", candidate, "reason", err)
		return query.Failure(query.FailureValidation, query.MsgFailedValidation, candidate)
	}

	return a.engine.Execute(ctx, candidate, a.settings.MaxRows)
}

// RunSQL validates and executes caller supplied SQL without generation.
func (a *Agent) RunSQL(ctx context.Context, sqlText string) query.Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	candidate := strings.TrimSpace(sqlText)
	var result query.Result
	if err := query.Validate(candidate); err != nil {
		a.logger.Warn("submitted query failed validation", "query", candidate, "reason", err)
		result = query.Failure(query.FailureValidation, query.MsgFailedValidation, candidate)
	} else {
		result = a.engine.Execute(ctx, candidate, a.settings.MaxRows)
	}
	return a.finish(ctx, result, start)
}

// Recent lists earlier cycles from the history store.
func (a *Agent) Recent(ctx context.Context, limit int) ([]history.Entry, error) {
	return a.history.Recent(ctx, limit)
}

func (a *Agent) finish(ctx context.Context, result query.Result, start time.Time) query.Result {
	elapsed := time.Since(start)
	result.DurationMs = elapsed.Milliseconds()
	if result.Data == nil {
		result.Data = []query.Row{}
	}

	observability.ObserveQueryCycle(result.Outcome(), result.RowCount, result.Truncated, elapsed)
	if result.Success {
		a.logger.Info("query successful", "rows", result.RowCount, "truncated", result.Truncated, "duration_ms", result.DurationMs)
	} else {
		a.logger.Warn("query failed", "question", result.NaturalLanguageQuery, "failure_kind", result.FailureKind, "error", result.Error)
	}

	if _, err := a.history.Record(ctx, history.FromResult(a.sessionID, result)); err != nil {
		a.logger.Warn("failed to record query history", "error", err)
	}
	return result
}

func (a *Agent) providerLabel() string {
	if a.settings.Provider == "" {
		return "unknown"
	}
	return a.settings.Provider
}

// generationMessage strips the provider prefix so the user sees the
// upstream message.
func generationMessage(err error) string {
	var generationErr *nl2sql.GenerationError
	if errors.As(err, &generationErr) && generationErr.Err != nil {
		return generationErr.Err.Error()
	}
	return err.Error()
}
