package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thrillee/mnpgateway/internal/api"
	"github.com/thrillee/mnpgateway/internal/auth"
	cfg "github.com/thrillee/mnpgateway/internal/config"
	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/engine"
	"github.com/thrillee/mnpgateway/internal/logging"
)

func main() {
	appCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	config, err := cfg.Load()
	if err != nil {
		log.Fatalf("Config load error: %v", err)
	}
	logger := logging.Setup(os.Stdout, config.LogLevel)
	if logging.ParseLevel(config.LogLevel) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	if len(config.GatewayAPI.BasicAuthUsers) == 0 {
		slog.Warn("API_BASIC_AUTH_USERS is empty, every protected endpoint will answer 401")
	}

	// --- Database ---
	slog.Info("Connecting to database...")
	dbpool, err := pgxpool.New(appCtx, config.DatabaseURL)
	if err != nil {
		slog.Error("DB connect error", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()
	if err := dbpool.Ping(appCtx); err != nil {
		slog.Error("DB ping error", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Database connection established")

	eng, err := engine.New(config, database.NewStore(dbpool), nil, logger)
	if err != nil {
		slog.Error("Engine setup error", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Gin Router Setup ---
	router := api.NewRouter(api.NewHandler(eng.Service, eng.Ingestor), api.RouterConfig{
		Users:          auth.Users(config.GatewayAPI.BasicAuthUsers),
		MaxUploadBytes: config.GatewayAPI.MaxUploadBytes,
		DB:             dbpool,
		Breakers:       eng.CN.BreakerStats,
	})

	// --- HTTP Server ---
	srv := &http.Server{
		Addr:         config.GatewayAPI.Addr,
		Handler:      router,
		ReadTimeout:  config.GatewayAPI.ReadTimeout,
		WriteTimeout: config.GatewayAPI.WriteTimeout,
		IdleTimeout:  config.GatewayAPI.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}

	go func() {
		slog.Info("Starting Gateway API Server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Gateway API ListenAndServe error", slog.Any("error", err))
			rootCancel()
		}
	}()

	// --- Wait for Shutdown ---
	<-appCtx.Done()
	slog.Info("Shutdown signal received for Gateway API server.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Gateway API server forced to shutdown", slog.Any("error", err))
	}

	slog.Info("Gateway API server stopped.")
}
