// Package app assembles a query session from configuration. Both the
// interactive CLI and the HTTP server start from Open.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/duckask/duckask/internal/agent"
	"github.com/duckask/duckask/internal/config"
	"github.com/duckask/duckask/internal/export"
	"github.com/duckask/duckask/internal/history"
	"github.com/duckask/duckask/internal/nl2sql"
	duckdbengine "github.com/duckask/duckask/internal/query/duckdb"
	"github.com/duckask/duckask/internal/storage"
	"github.com/duckask/duckask/internal/storage/local"
	s3store "github.com/duckask/duckask/internal/storage/s3"
)

type Runtime struct {
	Config  config.Config
	Logger  *slog.Logger
	Engine  *duckdbengine.Engine
	History history.Store
	Agent   *agent.Agent

	historyStore *history.SQLStore

	exportOnce sync.Once
	exporter   *export.Exporter
	exportErr  error
}

type Option func(*options)

type options struct {
	generator nl2sql.Generator
}

// WithGenerator replaces the provider client built from configuration.
func WithGenerator(generator nl2sql.Generator) Option {
	return func(o *options) {
		o.generator = generator
	}
}

// Open checks that the database file exists, loads its schema and returns a
// ready session. History failures downgrade to a session without history.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := duckdbengine.CheckDatabase(cfg.Database.Path); err != nil {
		return nil, err
	}

	generator := o.generator
	if generator == nil {
		if err := cfg.RequireAPIKey(); err != nil {
			return nil, err
		}
		var err error
		generator, err = nl2sql.NewGenerator(nl2sql.Config{
			Provider:    cfg.AI.Provider,
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize generator: %w", err)
		}
	}

	engine := duckdbengine.NewEngine(duckdbengine.Options{
		Path:           cfg.Database.Path,
		ReadOnly:       cfg.Database.ReadOnly,
		ConnectTimeout: cfg.Database.Timeout,
		QueryTimeout:   cfg.Query.Timeout,
		Logger:         logger,
	})

	rt := &Runtime{
		Config:  cfg,
		Logger:  logger,
		Engine:  engine,
		History: history.Nop{},
	}
	if cfg.History.Enabled {
		store, err := history.Open(ctx, cfg.History.DSN)
		if err != nil {
			logger.Warn("query history unavailable", "dsn", cfg.History.DSN, "error", err)
		} else {
			rt.historyStore = store
			rt.History = store
		}
	}

	session, err := agent.New(ctx, agent.Dependencies{
		Introspector: engine,
		Engine:       engine,
		Generator:    generator,
		History:      rt.History,
		Logger:       logger,
		Settings: agent.Settings{
			Provider:        cfg.AI.Provider,
			Model:           cfg.AI.Model,
			MaxTokens:       cfg.AI.MaxTokens,
			MaxRows:         cfg.Query.MaxRows,
			ContextFile:     cfg.Context.File,
			ContextMaxChars: cfg.Context.MaxChars,
		},
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Agent = session
	return rt, nil
}

// HistoryStore returns the durable store, or nil when history is off.
func (r *Runtime) HistoryStore() *history.SQLStore {
	return r.historyStore
}

// Exporter builds the configured export target on first use.
func (r *Runtime) Exporter(ctx context.Context) (*export.Exporter, error) {
	r.exportOnce.Do(func() {
		store, err := OpenExportStore(ctx, r.Config)
		if err != nil {
			r.exportErr = err
			return
		}
		r.exporter = export.NewExporter(store)
	})
	return r.exporter, r.exportErr
}

func (r *Runtime) Close() error {
	if r.historyStore == nil {
		return nil
	}
	return r.historyStore.Close()
}

func OpenExportStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	switch cfg.Export.Target {
	case config.ExportTargetS3:
		store, err := s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize object store: %w", err)
		}
		return store, nil
	case config.ExportTargetLocal, "":
		store, err := local.New(cfg.Export.Dir)
		if err != nil {
			return nil, fmt.Errorf("initialize export directory: %w", err)
		}
		return store, nil
	default:
		return nil, errors.New("unsupported export target " + cfg.Export.Target)
	}
}
