package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hoststack/otamock/internal/api"
	"github.com/hoststack/otamock/internal/broadcast"
	"github.com/hoststack/otamock/internal/config"
	"github.com/hoststack/otamock/internal/metrics"
	"github.com/hoststack/otamock/internal/server"
	"github.com/hoststack/otamock/internal/simulate"
	"github.com/hoststack/otamock/internal/store"
	"github.com/hoststack/otamock/internal/store/memory"
	"github.com/hoststack/otamock/internal/store/sqlite"
	"github.com/hoststack/otamock/internal/telemetry"
	"github.com/hoststack/otamock/internal/webhook"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	shutdownTracer, err := telemetry.InitTracer("otamock-gateway", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfgPath := os.Getenv("OTAMOCK_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", slog.String("error", err.Error()))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.Seed(ctx, st, cfg.Seed); err != nil {
		log.Fatalf("Failed to seed mock data: %v", err)
	}
	logger.Info("mock dataset seeded",
		slog.Int("properties", cfg.Seed.Properties),
		slog.Int("bookings", cfg.Seed.Bookings))

	hub := broadcast.NewHub(logger)
	queue := webhook.NewQueue(cfg.Webhook, hub, logger)
	go queue.Run(ctx)

	agg := metrics.New(logger)
	sim := simulate.New(cfg.Simulation, logger)

	timeout := time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second
	srv := server.New(cfg.Server.Port, timeout, logger, agg)
	api.New(st, hub, queue, agg, sim, logger).Mount(srv.Router)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		logger.Info("shutdown signal received, stopping gateway")
		hub.Shutdown()
		cancel()
	}()

	logger.Info("Gateway started successfully")
	logger.Info("Features enabled:")
	logger.Info("  - Simulation: latency, timeouts, error injection")
	logger.Info("  - Webhooks: async queue with retry")
	logger.Info("  - WebSocket: /ws subscription broadcast")
	logger.Info("  - Storage: " + cfg.Storage.Type)

	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Gateway shutdown complete")
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Type {
	case "sqlite":
		return sqlite.New(cfg.Storage.SQLite.Path)
	default:
		return memory.New(), nil
	}
}
