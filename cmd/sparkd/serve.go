package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sparkd/internal/config"
	"github.com/fyrsmithlabs/sparkd/internal/logging"
	"github.com/fyrsmithlabs/sparkd/internal/storage/postgres"
	"github.com/fyrsmithlabs/sparkd/internal/telemetry"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	logger, err := newLogger(cfg, tel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zl := logger.Underlying()

	if degraded, reason := tel.Degraded(); degraded {
		zl.Warn("telemetry degraded, continuing without export", zap.Error(reason))
	}

	a, err := buildApp(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer a.Close()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if a.sweeper != nil {
		a.sweeper.Start()
	}
	zl.Info("sparkd started",
		zap.String("version", version),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("assignments", cfg.Assignments.Backend),
		zap.Int("port", cfg.Server.Port))

	select {
	case <-ctx.Done():
		zl.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	var errs []error
	if a.sweeper != nil {
		if err := a.sweeper.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stopping sweeper: %w", err))
		}
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stopping http server: %w", err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stopping telemetry: %w", err))
	}
	return errors.Join(errs...)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Storage.Backend != config.BackendPostgres {
		return fmt.Errorf("migrate requires storage.backend=postgres, got %q", cfg.Storage.Backend)
	}
	logger, err := newLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := postgres.Open(cmd.Context(), cfg.Storage.PostgresDSN.Value(), postgres.Options{MaxOpenConns: 2})
	if err != nil {
		return err
	}
	defer db.Close()
	return postgres.Migrate(db.DB, logger.Underlying())
}

func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.Observability.EnableTelemetry
	tc.ServiceName = cfg.Observability.ServiceName
	tc.ServiceVersion = version
	tc.Endpoint = cfg.Observability.Endpoint
	return tc
}

func newLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	lc := logging.NewDefaultConfig()
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging.level: %w", err)
	}
	lc.Level = level
	lc.Format = cfg.Logging.Format
	lc.Fields["version"] = version

	provider := tel.LoggerProvider()
	lc.OTEL = provider != nil
	logger, err := logging.NewLogger(lc, provider)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}
