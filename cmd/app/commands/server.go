package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/trustchecker/atrest/internal/app"
	"github.com/trustchecker/atrest/internal/config"
)

// RunServer boots field encryption and starts the admin HTTP server with graceful
// shutdown support. Secrets are preloaded, the master key is activated (a malformed
// key aborts startup) and the rotation watcher is started when enabled. Blocks
// until receiving SIGINT/SIGTERM or encountering a fatal error.
func RunServer(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Set Gin mode based on log level
	gin.SetMode(cfg.GetGinMode())

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Boot field encryption before serving anything
	if err := bootEncryption(ctx, container, cfg, logger); err != nil {
		return err
	}

	// Get HTTP server from container (this initializes all dependencies)
	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	// Get Metrics server from container
	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start servers in goroutines
	serverErr := make(chan error, 2)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErr <- fmt.Errorf("api server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				serverErr <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
		defer shutdownCancel()

		var shutdownErrors []error

		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
		}

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}

		if len(shutdownErrors) > 0 {
			return errors.Join(shutdownErrors...)
		}
	case err := <-serverErr:
		// Attempt graceful shutdown if one server fails
		logger.Error("server error, initiating shutdown", slog.Any("error", err))
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
		defer shutdownCancel()

		var shutdownErrors []error
		shutdownErrors = append(shutdownErrors, err)

		if server != nil {
			if shutErr := server.Shutdown(shutdownCtx); shutErr != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", shutErr))
			}
		}

		if metricsServer != nil {
			if shutErr := metricsServer.Shutdown(shutdownCtx); shutErr != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", shutErr))
			}
		}

		return errors.Join(shutdownErrors...)
	}

	return nil
}

// bootEncryption preloads secrets, activates the master key and starts the
// secrets rotation watcher.
func bootEncryption(ctx context.Context, container *app.Container, cfg *config.Config, logger *slog.Logger) error {
	vault, err := container.SecretsVault()
	if err != nil {
		return fmt.Errorf("failed to initialize secrets vault: %w", err)
	}

	result := vault.Preload(ctx)
	logger.Info("secrets preloaded",
		slog.Int("loaded", len(result.Loaded)),
		slog.Any("missing", result.Missing),
	)

	encryption, err := container.EncryptionUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize encryption use case: %w", err)
	}
	if err := encryption.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize field encryption: %w", err)
	}

	if cfg.SecretsWatcherEnabled && vault.StartRotationWatcher(context.WithoutCancel(ctx)) {
		logger.Info("secrets rotation watcher started",
			slog.Duration("interval", cfg.SecretsRotationCheckInterval),
		)
	}

	return nil
}
