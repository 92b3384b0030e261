// Package main provides the entry point for the research assistant HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/helixir/research-assistant-service/internal/auth"
	"github.com/helixir/research-assistant-service/internal/bootstrap"
	"github.com/helixir/research-assistant-service/internal/config"
	"github.com/helixir/research-assistant-service/internal/database"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/repository"
	httpserver "github.com/helixir/research-assistant-service/internal/server/http"
	"github.com/helixir/research-assistant-service/internal/storage"
	"github.com/helixir/research-assistant-service/internal/temporal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("research-assistant-service server starting")

	metrics := observability.NewMetrics(observability.DefaultNamespace)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}

	featureService, err := bootstrap.NewFeatureService(ctx, cfg, db, store, logger, metrics)
	if err != nil {
		return fmt.Errorf("create feature service: %w", err)
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := auth.NewService(repository.NewPgUserRepository(db), tokens, logger)

	deps := httpserver.Deps{
		Auth:      authService,
		Features:  featureService,
		Projects:  repository.NewPgProjectRepository(db),
		Documents: repository.NewPgDocumentRepository(db),
		Sources:   repository.NewPgSourceRepository(db),
		Jobs:      repository.NewPgJobRepository(db),
		Store:     store,
		DB:        db,
		Metrics:   metrics,
		Logger:    logger,
	}

	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer func() {
			if closeErr := rdb.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close redis client")
			}
		}()
		deps.Redis = rdb
		logger.Info().
			Int("rate_limit", cfg.Redis.RateLimit).
			Dur("window", cfg.Redis.Window).
			Msg("inbound rate limiter enabled")
	}

	var jobClient *temporal.JobClient
	if cfg.Temporal.Enabled {
		temporalClient, err := temporal.NewClient(cfg.Temporal, logger)
		if err != nil {
			return fmt.Errorf("connect to temporal: %w", err)
		}
		jobClient = temporal.NewJobClient(temporalClient, cfg.Temporal.TaskQueue)
		defer jobClient.Close()
		deps.JobStarter = jobClient
		deps.Scheduler = jobClient
		logger.Info().
			Str("host_port", cfg.Temporal.HostPort).
			Str("namespace", cfg.Temporal.Namespace).
			Msg("temporal client connected")
	}

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		RateLimit:       cfg.Redis.RateLimit,
		RateWindow:      cfg.Redis.Window,
	}
	// Generated exports of the local backend are downloadable under the
	// same prefix the store uses to build their URLs.
	if cfg.Storage.Backend == config.StorageBackendLocal || cfg.Storage.Backend == "" {
		httpCfg.ExportsDir = filepath.Join(cfg.Storage.LocalDir, storage.ExportPrefix)
		httpCfg.ExportsRoute = storage.ExportsRoute(cfg.Storage.PublicBaseURL)
		if err := os.MkdirAll(httpCfg.ExportsDir, 0o755); err != nil {
			return fmt.Errorf("create exports directory: %w", err)
		}
	}

	httpSrv := httpserver.NewServer(httpCfg, deps)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().
		Str("http_address", httpCfg.Address).
		Bool("survey_jobs", jobClient != nil)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("research-assistant-service is ready")

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down research-assistant-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("research-assistant-service shutdown complete")
	return nil
}
