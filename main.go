package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thrillee/mnpgateway/internal/config"
	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/engine"
	"github.com/thrillee/mnpgateway/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.Setup(os.Stdout, cfg.LogLevel)
	slog.Info("Logging initialized", slog.String("level", cfg.LogLevel))

	dbpool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer dbpool.Close()
	if err := dbpool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	slog.Info("Database connection pool established")

	store := database.NewStore(dbpool)

	// --- Initialize Services ---
	eng, err := engine.New(cfg, store, nil, logger)
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}

	leases, closeLeases, err := engine.NewLeases(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to set up leases: %v", err)
	}
	defer closeLeases()

	if err := os.MkdirAll(cfg.Italy.OutboundDir, 0o755); err != nil {
		log.Fatalf("Failed to create ITA_OUTBOUND_DIR %s: %v", cfg.Italy.OutboundDir, err)
	}

	manager := eng.Workers(ctx, leases)

	// --- Start Components ---
	done := make(chan error, 1)
	go func() { done <- manager.Run(ctx) }()
	slog.Info("Gateway workers started",
		slog.String("time_zone", cfg.TimeZone),
		slog.Bool("ignore_working_hours", cfg.IgnoreWorkingHours))

	// --- Graceful Shutdown ---
	<-ctx.Done()
	slog.Info("Shutdown signal received, shutting down gracefully...")

	select {
	case err := <-done:
		if err != nil {
			slog.Error("Worker manager stopped with error", slog.Any("error", err))
		}
	case <-time.After(30 * time.Second):
		slog.Warn("Timed out waiting for in-flight jobs")
	}

	slog.Info("Closing database pool...")
	dbpool.Close()
	slog.Info("Gateway gracefully stopped")
}
