// Command migrate manages the database schema of the research assistant service.
//
// Usage:
//
//	migrate up
//	migrate down
//	migrate steps -- -2
//	migrate version
//	migrate force 1
//	migrate up --path ./migrations
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/research-assistant-service/internal/config"
	"github.com/helixir/research-assistant-service/internal/database"
	"github.com/helixir/research-assistant-service/internal/observability"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var migrationsPath string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply or roll back database migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&migrationsPath, "path", "", "path to migration files (overrides database.migration_path)")

	withMigrator := func(fn func(m *database.Migrator, logger zerolog.Logger) error) func(*cobra.Command, []string) error {
		return func(_ *cobra.Command, _ []string) error {
			return runWithMigrator(migrationsPath, fn)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(m *database.Migrator, logger zerolog.Logger) error {
				logger.Info().Msg("running all pending migrations")
				if err := m.Up(); err != nil {
					return fmt.Errorf("migrate up: %w", err)
				}
				printVersion(m, logger)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(m *database.Migrator, logger zerolog.Logger) error {
				logger.Warn().Msg("rolling back all migrations")
				if err := m.Down(); err != nil {
					return fmt.Errorf("migrate down: %w", err)
				}
				printVersion(m, logger)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "steps N",
			Short: "Apply N migrations, or roll back when N is negative (use -- before a negative N)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil || n == 0 {
					return fmt.Errorf("steps must be a non-zero integer, got %q", args[0])
				}
				return runWithMigrator(migrationsPath, func(m *database.Migrator, logger zerolog.Logger) error {
					logger.Info().Int("steps", n).Msg("running migration steps")
					if err := m.Steps(n); err != nil {
						return fmt.Errorf("migrate steps: %w", err)
					}
					printVersion(m, logger)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(m *database.Migrator, logger zerolog.Logger) error {
				printVersion(m, logger)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "force V",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil || v < 0 {
					return fmt.Errorf("version must be a non-negative integer, got %q", args[0])
				}
				return runWithMigrator(migrationsPath, func(m *database.Migrator, logger zerolog.Logger) error {
					logger.Warn().Int("version", v).Msg("forcing migration version")
					if err := m.Force(v); err != nil {
						return fmt.Errorf("force version: %w", err)
					}
					printVersion(m, logger)
					return nil
				})
			},
		},
	)

	return root
}

// runWithMigrator loads configuration, opens a migrator and runs fn with it.
func runWithMigrator(pathOverride string, fn func(m *database.Migrator, logger zerolog.Logger) error) error {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	})
	logger = logger.With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if pathOverride != "" {
		migrationDir = pathOverride
	}

	migrator, err := database.NewMigratorFromDSN(cfg.Database.DSN(), migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	return fn(migrator, logger)
}

// printVersion logs the current migration version.
func printVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current migration version")
}
