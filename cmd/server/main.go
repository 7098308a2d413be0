package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/checkout/service/checkout"
	"github.com/brojonat/checkout/service/config"
	"github.com/brojonat/checkout/service/db"
	"github.com/brojonat/checkout/service/gateway"
	"github.com/brojonat/checkout/service/metrics"
	natspkg "github.com/brojonat/checkout/service/nats"
	"github.com/brojonat/checkout/service/server"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"currency", cfg.Stripe.CurrencyCode,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Metrics register on the default registry served by promhttp.Handler.
	m := metrics.NewMetrics(nil)

	store := db.NewStore(dbPool, m)

	gw := gateway.NewClient(
		gateway.NewStripeAPI(cfg.Stripe.SecretKey),
		cfg.GatewayTimeout,
		m,
		logger.With("component", "gateway"),
	)

	svcCfg := checkout.Config{
		Gateway:  gw,
		Store:    store,
		Currency: cfg.Stripe.CurrencyCode,
		Metrics:  m,
		Logger:   logger.With("component", "checkout"),
	}

	// Event publishing is optional
	if cfg.NATSURL != "" {
		publisher, err := natspkg.NewPublisher(cfg.NATSURL, logger.With("component", "nats"))
		if err != nil {
			logger.Error("failed to connect to NATS", "url", cfg.NATSURL, "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		svcCfg.Notifier = natspkg.NewNotifier(publisher, m)
		logger.Info("transaction events enabled", "url", cfg.NATSURL, "stream", natspkg.StreamName)
	} else {
		logger.Warn("NATS_URL not set, transaction events disabled")
	}

	svc, err := checkout.NewService(svcCfg)
	if err != nil {
		logger.Error("failed to create checkout service", "error", err)
		os.Exit(1)
	}

	httpServer := server.New(cfg.ServerAddr, cfg, svc, store, m, logger)
	if err := httpServer.WithTemplates(); err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
