package main

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/blueberrycongee/litellm-exporter/internal/metrics"
)

type dbStatsProvider interface {
	Stats() sql.DBStats
}

func writePoolStats(registry *metrics.Registry, stats sql.DBStats, logger *slog.Logger) {
	pairs := []struct {
		state string
		value float64
	}{
		{"active", float64(stats.InUse)},
		{"idle", float64(stats.Idle)},
		{"max", float64(stats.MaxOpenConnections)},
	}
	for _, p := range pairs {
		if err := registry.Set(metrics.DBConnections, map[string]string{"state": p.state}, p.value); err != nil {
			logger.Error("failed to record pool stats", "state", p.state, "error", err)
		}
	}
}

// startPoolStats publishes connection pool gauges on a fixed cadence,
// independent of the refresh cycle so a stuck refresh still shows pool
// pressure. The returned func stops the updater; calling it twice is safe.
func startPoolStats(ctx context.Context, provider dbStatsProvider, registry *metrics.Registry, logger *slog.Logger, interval time.Duration) func() {
	if provider == nil {
		return func() {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	writePoolStats(registry, provider.Stats(), logger)

	ticker := time.NewTicker(interval)
	stopCh := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() { close(stopCh) })
	}

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				writePoolStats(registry, provider.Stats(), logger)
			case <-ctx.Done():
				stop()
				return
			case <-stopCh:
				return
			}
		}
	}()

	logger.Debug("db pool stats updater started", "interval", interval.String())
	return stop
}
