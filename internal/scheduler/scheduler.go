// Package scheduler drives the refresh cycle: every interval it refreshes all
// collectors, isolating their failures from each other and from the HTTP
// surface.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/blueberrycongee/litellm-exporter/internal/collector"
	"github.com/blueberrycongee/litellm-exporter/internal/metrics"
)

// Scheduler owns the periodic refresh of a fixed collector set.
type Scheduler struct {
	interval   time.Duration
	collectors []collector.Collector
	registry   *metrics.Registry
	logger     *slog.Logger

	started atomic.Bool
	ready   atomic.Bool
}

// New returns a scheduler over the given collectors.
func New(interval time.Duration, collectors []collector.Collector, registry *metrics.Registry, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval:   interval,
		collectors: collectors,
		registry:   registry,
		logger:     logger.With("component", "scheduler"),
	}
}

// Run refreshes immediately, then on every tick until ctx is cancelled.
// Cycles run on this goroutine, so ticks never overlap: if a cycle outlasts
// the interval, the next one starts only after it completes.
func (s *Scheduler) Run(ctx context.Context) {
	s.started.Store(true)
	s.logger.Info("metrics collection started",
		"interval", s.interval.String(), "collectors", len(s.collectors))

	s.RunCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("metrics collection stopped")
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle refreshes every collector once, concurrently. Collectors are
// independent and I/O-bound; one failing or slow collector never blocks the
// others within the cycle.
func (s *Scheduler) RunCycle(ctx context.Context) {
	cycleID := uuid.NewString()
	start := time.Now()

	results := make([]collector.Result, len(s.collectors))
	var wg sync.WaitGroup
	for i, c := range s.collectors {
		wg.Add(1)
		go func(i int, c collector.Collector) {
			defer wg.Done()
			results[i] = c.Refresh(ctx)
		}(i, c)
	}
	wg.Wait()

	succeeded := 0
	for _, res := range results {
		s.record(res)
		if res.Success() {
			succeeded++
		} else {
			s.logger.Error("collector refresh failed",
				"cycle_id", cycleID, "collector", res.Collector,
				"duration", res.Duration.String(), "error", res.Err)
		}
	}
	if succeeded > 0 {
		s.ready.Store(true)
	}

	s.logger.Debug("refresh cycle completed",
		"cycle_id", cycleID, "succeeded", succeeded,
		"failed", len(results)-succeeded, "duration", time.Since(start).String())
}

func (s *Scheduler) record(res collector.Result) {
	labels := map[string]string{"collector": res.Collector}

	// Self-metric writes can only fail on a schema bug; log, don't crash.
	if err := s.registry.Observe(metrics.RefreshDuration, labels, res.Duration.Seconds()); err != nil {
		s.logger.Error("failed to record refresh duration", "error", err)
	}

	successVal := 0.0
	if res.Success() {
		successVal = 1.0
		if err := s.registry.Set(metrics.LastRefresh, labels, float64(time.Now().Unix())); err != nil {
			s.logger.Error("failed to record last refresh", "error", err)
		}
	}
	if err := s.registry.Set(metrics.RefreshSuccess, labels, successVal); err != nil {
		s.logger.Error("failed to record refresh success", "error", err)
	}
}

// Ready reports whether at least one collector refresh has succeeded.
func (s *Scheduler) Ready() bool {
	return s.ready.Load()
}

// Started reports whether Run has begun.
func (s *Scheduler) Started() bool {
	return s.started.Load()
}
