package collector

import (
	"context"
	"time"

	"github.com/blueberrycongee/litellm-exporter/internal/metrics"
	"github.com/blueberrycongee/litellm-exporter/internal/store"
	"github.com/blueberrycongee/litellm-exporter/internal/window"
)

// ErrorStore supplies error log aggregates.
type ErrorStore interface {
	ErrorRows(ctx context.Context, interval string) ([]store.ErrorRow, error)
}

// Errors refreshes error counts and per-minute error rates per
// model × error type over the error window.
type Errors struct {
	store    ErrorStore
	registry *metrics.Registry
	window   window.Window
}

// NewErrors returns the error collector.
func NewErrors(s ErrorStore, r *metrics.Registry, w window.Window) *Errors {
	return &Errors{store: s, registry: r, window: w}
}

// Name implements Collector.
func (c *Errors) Name() string { return "errors" }

// Refresh implements Collector.
func (c *Errors) Refresh(ctx context.Context) Result {
	start := time.Now()

	rows, err := c.store.ErrorRows(ctx, c.window.Interval())
	if err != nil {
		return failure(c.Name(), start, err)
	}

	minutes := c.window.Duration().Minutes()
	counts := newSampleSet()
	rates := newSampleSet()

	for _, row := range rows {
		labels := map[string]string{"model": row.Model, "error_type": row.ErrorType}
		counts.add(labels, float64(row.ErrorCount), row.Model, row.ErrorType)
		rates.add(labels, float64(row.ErrorCount)/minutes, row.Model, row.ErrorType)
	}

	if err := c.registry.SwapFamily(metrics.ErrorsTotal, counts.samples()); err != nil {
		return failure(c.Name(), start, err)
	}
	if err := c.registry.SwapFamily(metrics.ErrorRate, rates.samples()); err != nil {
		return failure(c.Name(), start, err)
	}

	return success(c.Name(), start, len(rows))
}
