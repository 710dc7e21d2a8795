package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tournevent/pickup/internal/server"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "pickup",
	Short:   "Pickup Bridge - carrier pickup orchestration service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pickup HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Optional .env for local development; env vars win.
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	storage, err := initStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("storage error: %w", err)
	}
	defer storage.Close()

	registry := initCarrierRegistry(cfg, storage, logger)
	manager, err := initSessionManager(cfg, registry, storage, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting Pickup Bridge",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.String("default_carrier", cfg.DefaultCarrier),
	)

	srv := server.New(server.Config{Port: cfg.Port}, manager, registry, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
