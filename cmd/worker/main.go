package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/casatico/stayfly/internal/appwiring"
	"github.com/casatico/stayfly/internal/config"
	"github.com/casatico/stayfly/internal/healthserver"
	"github.com/casatico/stayfly/internal/logging"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:     "stayfly-worker",
	Short:   "stayfly background worker: ingest, embed, and reprocess tasks",
	Version: version,
	RunE:    runWorker,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(logging.Config{Style: cfg.LogStyle, Level: cfg.LogLevel})
	defer func() { _ = logger.Sync() }()

	app, err := appwiring.Build(ctx, cfg, configPath, logger)
	if err != nil {
		return fmt.Errorf("wiring dependencies: %w", err)
	}
	defer app.Close()

	health := healthserver.New(logger)
	health.Register("store", app.Store.Ping)
	health.Start(cfg.HealthPort)

	app.Scheduler.Start()

	logger.Info("worker started", zap.Int("concurrency", cfg.TaskWorkerConcurrency))
	if err := app.Runner.Run(ctx); err != nil {
		return fmt.Errorf("task runner: %w", err)
	}
	logger.Info("worker shut down")
	return nil
}
