// Package main is the entry point for the LiteLLM Prometheus exporter.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blueberrycongee/litellm-exporter/internal/collector"
	"github.com/blueberrycongee/litellm-exporter/internal/config"
	"github.com/blueberrycongee/litellm-exporter/internal/metrics"
	"github.com/blueberrycongee/litellm-exporter/internal/scheduler"
	"github.com/blueberrycongee/litellm-exporter/internal/server"
	"github.com/blueberrycongee/litellm-exporter/internal/store"
)

// gatewayTables are the schema tables the collectors read. Missing tables mean
// the gateway has not run its migrations yet.
var gatewayTables = []string{
	"LiteLLM_SpendLogs",
	"LiteLLM_VerificationToken",
	"LiteLLM_UserTable",
	"LiteLLM_TeamTable",
	"LiteLLM_OrganizationTable",
	"LiteLLM_BudgetTable",
	"LiteLLM_ErrorLogs",
}

func main() {
	configPath := flag.String("config", "", "path to optional YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("starting litellm exporter",
		"port", cfg.Metrics.Port,
		"interval", cfg.Metrics.UpdateInterval.String(),
		"database", cfg.Database.Name)

	windows, err := cfg.ParseWindows()
	if err != nil {
		// Load already validated the windows; this cannot happen.
		logger.Error("invalid windows", "error", err)
		os.Exit(1)
	}

	pg, err := store.New(store.Config{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		Database:       cfg.Database.Name,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		SSLMode:        cfg.Database.SSLMode,
		MinConnections: cfg.Database.MinConnections,
		MaxConnections: cfg.Database.MaxConnections,
		QueryTimeout:   queryTimeout(cfg.Metrics.UpdateInterval),
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// At least one live connection is required to start; outages after this
	// point degrade to stale metrics instead of exiting.
	if err := pg.Connect(ctx, 30*time.Second); err != nil {
		logger.Error("failed to establish database connection", "error", err)
		os.Exit(1)
	}

	// Missing tables are reported, never fatal: the exporter serves empty
	// metrics until the gateway has migrated.
	go func() {
		if err := pg.WaitForTables(ctx, gatewayTables, 2*time.Minute); err != nil {
			logger.Warn("gateway tables not confirmed, collectors will retry", "error", err)
		}
	}()

	registry := metrics.NewLiteLLMRegistry()

	collectors := []collector.Collector{
		collector.NewSpend(pg, registry, windows.Spend, windows.Request),
		collector.NewTagSpend(pg, registry, windows.Spend),
		collector.NewRateLimit(pg, registry),
		collector.NewRates(pg, registry),
		collector.NewBudget(pg, registry),
		collector.NewKeys(pg, registry, windows.Spend),
		collector.NewErrors(pg, registry, windows.Error),
	}

	sched := scheduler.New(cfg.Metrics.UpdateInterval, collectors, registry, logger)
	go sched.Run(ctx)

	stopPoolStats := startPoolStats(ctx, pg, registry, logger, 30*time.Second)

	srv := server.New(cfg.Metrics.Port, server.NewPrometheusRegistry(registry), sched, logger)

	go func() {
		logger.Info("metrics server listening", "port", cfg.Metrics.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down exporter...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	stopPoolStats()
	if err := pg.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}
	logger.Info("exporter stopped")
}

// queryTimeout bounds each statement to the refresh interval so one slow query
// cannot span cycles, with a floor for very short intervals.
func queryTimeout(interval time.Duration) time.Duration {
	if interval < 5*time.Second {
		return 5 * time.Second
	}
	return interval
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
