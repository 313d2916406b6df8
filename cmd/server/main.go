package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/casatico/stayfly/internal/apispec"
	"github.com/casatico/stayfly/internal/appwiring"
	"github.com/casatico/stayfly/internal/config"
	"github.com/casatico/stayfly/internal/healthserver"
	"github.com/casatico/stayfly/internal/httpapi"
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
	Use:     "stayfly-server",
	Short:   "stayfly HTTP API: ingestion and chat over real-estate and travel content",
	Version: version,
	RunE:    runServer,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(logging.Config{Style: cfg.LogStyle, Level: cfg.LogLevel})
	defer func() { _ = logger.Sync() }()

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(apispec.OpenAPIYAML)
	if err != nil {
		return fmt.Errorf("parsing bundled openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("validating bundled openapi document: %w", err)
	}

	app, err := appwiring.Build(ctx, cfg, configPath, logger)
	if err != nil {
		return fmt.Errorf("wiring dependencies: %w", err)
	}
	defer app.Close()

	health := healthserver.New(logger)
	health.Register("store", app.Store.Ping)
	health.Start(cfg.HealthPort)

	apiServer := &httpapi.Server{
		Store:        app.Store,
		Pipeline:     app.Pipeline,
		ApifyClient:  app.ApifyClient,
		Orchestrator: app.Orchestrator,
		Logger:       logger,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", cfg.HTTPPort),
		Handler:           apiServer.NewMux(),
		ReadHeaderTimeout: 40 * time.Second,
	}

	serverErrs := make(chan error, 1)
	go func() {
		logger.Info("starting http api server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrs <- err
			return
		}
		serverErrs <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErrs:
		if err != nil {
			return fmt.Errorf("http api server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	return nil
}
