// Package main is the entry point for Meridian, an automated equity trading strategy.
// It collects daily bars, scores the universe, and places bounded rebalancing orders
// on a schedule.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/meridian/internal/config"
	"github.com/aristath/meridian/internal/di"
	"github.com/aristath/meridian/internal/scheduler"
	"github.com/aristath/meridian/internal/server"
	"github.com/aristath/meridian/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd creates the root command. Without a subcommand it serves.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "meridian",
		Short:         "Meridian - automated equity trading strategy",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newBackupCmd())
	rootCmd.AddCommand(newImportCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [JOB]",
		Short: "Run one job and exit",
		Long: `Run one registered job immediately and exit.
Jobs: collect_bars, generate_metrics, baselines, scoring, trading_cycle,
execute_orders, cleanup, check_database, backup (when configured).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(args[0])
		},
	}
}

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Upload a database backup and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(scheduler.JobBackup)
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [FILE]",
		Short: "Import bank tickers and bar history from a YAML universe file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args[0])
		},
	}
}

// bootstrap loads configuration, builds the logger and wires the container.
// The returned context is cancelled on SIGINT/SIGTERM or when the broker
// session cannot be established.
func bootstrap() (context.Context, context.CancelCauseFunc, *config.Config, *di.Container, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Error().Err(err).Msg("Failed to load configuration")
		return nil, nil, nil, nil, fallbackLog, err
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	ctx, cancel := context.WithCancelCause(context.Background())
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCtx.Done()
		stop()
		cancel(errors.New("interrupted"))
	}()

	container, err := di.Wire(ctx, cfg, func(err error) { cancel(err) }, log)
	if err != nil {
		cancel(err)
		log.Error().Err(err).Msg("Failed to wire dependencies")
		return nil, nil, nil, nil, log, err
	}

	return ctx, cancel, cfg, container, log, nil
}

// runServe starts the scheduler and the HTTP server and blocks until shutdown
func runServe() error {
	ctx, cancel, cfg, container, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer cancel(nil)
	defer container.Close()

	log.Info().Str("account", cfg.AccountID).Msg("Starting Meridian")

	// Every job needs the account; a failed bootstrap cancels ctx
	if _, err := container.Session.Account(ctx); err != nil {
		log.Error().Err(err).Msg("Broker session unavailable")
		return err
	}

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		AccountID: cfg.AccountID,
		DataDir:   cfg.DataDir,
		Tickers:   container.TickerRepo,
		Orders:    container.OrderRepo,
		History:   container.HistoryRepo,
		Jobs:      container.Scheduler,
		DB:        container.DB,
		Market:    container.Calendar,
		Metrics:   container.Metrics,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	container.Scheduler.Start()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	select {
	case <-ctx.Done():
		log.Info().Err(context.Cause(ctx)).Msg("Shutting down")
	case err = <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
	return err
}

// runOnce runs a single job through the scheduler so it is logged and timed
func runOnce(job string) error {
	ctx, cancel, _, container, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer cancel(nil)
	defer container.Close()

	if err := container.Scheduler.RunNow(ctx, job); err != nil {
		log.Error().Err(err).Str("job", job).Msg("Job failed")
		return err
	}
	return nil
}

// runImport loads a universe file into the store
func runImport(path string) error {
	ctx, cancel, _, container, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer cancel(nil)
	defer container.Close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open universe file: %w", err)
	}
	defer f.Close()

	result, err := container.Importer.Import(ctx, f)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("Import failed")
		return err
	}

	fmt.Printf("imported %d bank tickers and %d bars\n", result.BankTickers, result.Bars)
	return nil
}
