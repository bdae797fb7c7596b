package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/archive"
	"github.com/yuki-noguchi/pdf-to-markdown/internal/config"
	"github.com/yuki-noguchi/pdf-to-markdown/internal/worker"
	"github.com/yuki-noguchi/pdf-to-markdown/internal/worker/apiclient"
	"github.com/yuki-noguchi/pdf-to-markdown/internal/worker/provider"
	"github.com/yuki-noguchi/pdf-to-markdown/internal/worker/storage"
	"github.com/yuki-noguchi/pdf-to-markdown/shared/database"
	"github.com/yuki-noguchi/pdf-to-markdown/shared/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize job store
	dbClient, err := database.NewClient(cfg.DatabaseClientConfig(), appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established",
		slog.String("driver", cfg.Database.Driver),
	)

	// Initialize the artifact archive
	arch, err := archive.New(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize archive: %w", err)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the conversion provider
	prov, err := provider.New(ctx, &cfg.Provider, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize conversion provider: %w", err)
	}

	appLogger.Info("Conversion provider ready",
		slog.String("kind", cfg.Provider.Kind),
	)

	// Wire the polling loop
	api := apiclient.New(cfg.Worker.APIBaseURL, cfg.Worker.ReadinessTimeout, appLogger.Logger)
	store := storage.NewStorage(dbClient.GetDB(), appLogger.Logger)
	pipeline := worker.NewPipeline(arch, prov, api, appLogger.Logger)
	poller := worker.NewPoller(store, pipeline, api, cfg.Worker.PollInterval, appLogger.Logger)

	// Start poller in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- poller.Start(ctx)
	}()

	appLogger.Info("Worker service started successfully",
		slog.Duration("poll_interval", cfg.Worker.PollInterval),
		slog.String("api_base_url", cfg.Worker.APIBaseURL),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		if err != nil {
			appLogger.Error("Worker error",
				slog.Any("error", err),
			)
			return err
		}
	}

	// Cancel context to stop the poller, then wait for an in-flight job
	// to finish or the shutdown timeout to expire.
	cancel()

	shutdownTimeout := cfg.Worker.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	select {
	case <-errChan:
	case <-time.After(shutdownTimeout):
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	// Cleanup function to close all resources
	cleanup := func() {
		if closer, ok := prov.(io.Closer); ok {
			closer.Close()
		}
		if dbClient != nil {
			dbClient.Close()
		}
	}
	cleanup()

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}
