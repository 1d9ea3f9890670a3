package collector

import (
	"context"
	"time"

	"github.com/blueberrycongee/litellm-exporter/internal/metrics"
	"github.com/blueberrycongee/litellm-exporter/internal/store"
)

// BudgetStore supplies entity budget rows.
type BudgetStore interface {
	BudgetRows(ctx context.Context) ([]store.BudgetRow, error)
}

// Budget refreshes max/soft budgets, utilization, and time-to-reset for
// users, teams, and organizations.
type Budget struct {
	store    BudgetStore
	registry *metrics.Registry
	now      func() time.Time
}

// NewBudget returns the budget collector.
func NewBudget(s BudgetStore, r *metrics.Registry) *Budget {
	return &Budget{store: s, registry: r, now: time.Now}
}

// Name implements Collector.
func (c *Budget) Name() string { return "budget" }

// Refresh implements Collector.
func (c *Budget) Refresh(ctx context.Context) Result {
	start := time.Now()

	rows, err := c.store.BudgetRows(ctx)
	if err != nil {
		return failure(c.Name(), start, err)
	}

	now := c.now()
	maxBudget := newSampleSet()
	softBudget := newSampleSet()
	utilization := newSampleSet()
	resetTime := newSampleSet()

	for _, row := range rows {
		if !row.EntityID.Valid {
			continue
		}
		id := row.EntityID.String
		alias := nullStr(row.EntityAlias, "none")
		labels := entityLabels(row.EntityType, id, alias)
		key := []string{row.EntityType, id, alias}

		if row.MaxBudget.Valid {
			maxBudget.set(labels, row.MaxBudget.Float64, key...)
			if row.MaxBudget.Float64 > 0 {
				utilization.set(labels, nullFloat(row.CurrentSpend)/row.MaxBudget.Float64*100, key...)
			}
		}
		if row.SoftBudget.Valid {
			softBudget.set(labels, row.SoftBudget.Float64, key...)
		}
		if row.ResetAt.Valid {
			// Past-due resets report zero, never a negative countdown.
			seconds := row.ResetAt.Time.Sub(now).Seconds()
			if seconds < 0 {
				seconds = 0
			}
			resetTime.set(labels, seconds, key...)
		}
	}

	swaps := []struct {
		name    string
		samples []metrics.Sample
	}{
		{metrics.MaxBudget, maxBudget.samples()},
		{metrics.SoftBudget, softBudget.samples()},
		{metrics.BudgetUtilization, utilization.samples()},
		{metrics.BudgetResetTime, resetTime.samples()},
	}
	for _, sw := range swaps {
		if err := c.registry.SwapFamily(sw.name, sw.samples); err != nil {
			return failure(c.Name(), start, err)
		}
	}

	return success(c.Name(), start, len(rows))
}
