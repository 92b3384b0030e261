// Package main provides the entry point for the survey job Temporal worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/workflow"

	"github.com/helixir/research-assistant-service/internal/bootstrap"
	"github.com/helixir/research-assistant-service/internal/config"
	"github.com/helixir/research-assistant-service/internal/database"
	"github.com/helixir/research-assistant-service/internal/events"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/repository"
	"github.com/helixir/research-assistant-service/internal/storage"
	"github.com/helixir/research-assistant-service/internal/temporal"
	"github.com/helixir/research-assistant-service/internal/temporal/activities"
	"github.com/helixir/research-assistant-service/internal/temporal/workflows"
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
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("research-assistant-service worker starting")

	if !cfg.Temporal.Enabled {
		return fmt.Errorf("temporal is disabled; set temporal.enabled to run the worker")
	}

	metrics := observability.NewMetrics(observability.DefaultNamespace)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}

	featureService, err := bootstrap.NewFeatureService(ctx, cfg, db, store, logger, metrics)
	if err != nil {
		return fmt.Errorf("create feature service: %w", err)
	}

	publisher := events.New(cfg.Kafka, metrics, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()
	if cfg.Kafka.Enabled {
		logger.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Msg("job event publisher enabled")
	}

	temporalClient, err := temporal.NewClient(cfg.Temporal, logger)
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	defer temporalClient.Close()
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	w, err := temporal.NewWorker(temporalClient, temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue))
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}

	w.RegisterWorkflowWithOptions(workflows.SurveyJobWorkflow, workflow.RegisterOptions{
		Name: temporal.SurveyJobWorkflowName,
	})
	w.RegisterActivity(activities.NewJobActivities(repository.NewPgJobRepository(db), publisher, metrics))
	w.RegisterActivity(activities.NewSurveyActivities(featureService))

	logger.Info().
		Str("task_queue", cfg.Temporal.TaskQueue).
		Msg("starting temporal worker")

	if err := temporal.StartWorker(ctx, w); err != nil {
		return fmt.Errorf("worker error: %w", err)
	}

	logger.Info().Msg("worker stopped via signal")
	return nil
}
