package duckask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/duckask/duckask/internal/api"
	"github.com/duckask/duckask/internal/auth"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(state *rootState) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the question and query endpoints over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := state.cfg
			if cmd.Flags().Changed("addr") {
				cfg.HTTP.Address = addr
			}
			logger := state.logger

			rt, err := state.openRuntime(cmd.Context())
			if err != nil {
				logger.Error("failed to initialize session", slog.Any("error", err))
				return err
			}
			defer func() { _ = rt.Close() }()

			checks := []api.ReadinessCheck{
				api.CheckSchemaLoaded(rt.Agent),
				api.CheckPing("database", rt.Engine),
			}
			if store := rt.HistoryStore(); store != nil {
				checks = append(checks, api.CheckPing("history", store))
			}

			deps := api.Dependencies{
				Logger:           logger,
				Session:          rt.Agent,
				Readiness:        api.CombineReadinessChecks(checks...),
				DependencyTimout: time.Second,
			}
			if cfg.Auth.Required {
				validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
				if err != nil {
					logger.Error("failed to parse static auth keys", slog.Any("error", err))
					return fmt.Errorf("parse static auth keys: %w", err)
				}
				deps.AuthMiddleware = auth.Middleware(logger, validator)
			}

			server := &http.Server{
				Addr:         cfg.HTTP.Address,
				Handler:      api.NewHandler(cfg, deps),
				ReadTimeout:  cfg.HTTP.ReadTimeout,
				WriteTimeout: cfg.HTTP.WriteTimeout,
				IdleTimeout:  cfg.HTTP.IdleTimeout,
			}
			return serve(cmd.Context(), logger, server)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides DUCKASK_HTTP_ADDR)")

	return cmd
}

func serve(parent context.Context, logger *slog.Logger, server *http.Server) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting api server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	select {
	case err := <-serveErr:
		return err
	default:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		return err
	}
	return nil
}
