package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/records/internal/config"
	"github.com/ehr/records/internal/domain/appmodel"
	"github.com/ehr/records/internal/domain/location"
	"github.com/ehr/records/internal/domain/patient"
	"github.com/ehr/records/internal/domain/wardview"
	"github.com/ehr/records/internal/platform/db"
	"github.com/ehr/records/internal/platform/eventbus"
	"github.com/ehr/records/internal/platform/middleware"
	"github.com/ehr/records/internal/platform/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "records",
		Short:        "Offline ward records: locations, patient lists and filters",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(locationsCmd())
	rootCmd.AddCommand(patientsCmd())
	rootCmd.AddCommand(filtersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return logger.Level(cfg.Level())
}

// openStore connects to the configured store. The caller closes it.
func openStore(ctx context.Context, cfg *config.Config) (db.Querier, error) {
	switch cfg.StoreDriver {
	case db.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		return db.NewPostgres(pool), nil
	default:
		return db.OpenSQLite(cfg.SQLitePath)
	}
}

// withStore loads config, opens the store and runs fn against it.
func withStore(fn func(ctx context.Context, cfg *config.Config, logger zerolog.Logger, q db.Querier) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	q, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer q.Close()
	return fn(ctx, cfg, logger, q)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ward read API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(runServer)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the local store schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, _ zerolog.Logger, q db.Querier) error {
				count, err := db.NewMigrator(q, db.Schema).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) to the %s store.\n", count, cfg.StoreDriver)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, _ *config.Config, _ zerolog.Logger, q db.Querier) error {
				statuses, err := db.NewMigrator(q, db.Schema).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-10s %-20s %s\n", "VERSION", "NAME", "STATUS")
				for _, s := range statuses {
					status := "pending"
					if s.Applied {
						status = "applied"
					}
					fmt.Fprintf(out, "%-10d %-20s %s\n", s.Version, s.Name, status)
				}
				return nil
			})
		},
	})

	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger, q db.Querier) error {
	if _, err := db.NewMigrator(q, db.Schema).Up(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	metrics := telemetry.New()
	model := appmodel.New(location.NewRepo(q), patient.NewRepo(q),
		appmodel.WithLogger(logger), appmodel.WithMetrics(metrics))
	defer model.Wait()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.MetricsMiddleware())

	h := wardview.NewHandler(model, cfg.Zones,
		wardview.WithLocale(cfg.Locale),
		wardview.WithLogger(logger),
		wardview.WithBusOptions(eventbus.WithLogger(logger), eventbus.WithObserver(metrics.Bus())),
	)
	h.RegisterRoutes(e.Group("/api/v1"))

	e.GET("/health", db.HealthHandler(q))
	e.GET("/metrics", metrics.PrometheusHandler())

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", q.Driver()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
