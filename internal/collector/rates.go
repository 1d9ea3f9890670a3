package collector

import (
	"context"
	"time"

	"github.com/blueberrycongee/litellm-exporter/internal/metrics"
	"github.com/blueberrycongee/litellm-exporter/internal/store"
)

// RateStore supplies last-minute usage aggregates.
type RateStore interface {
	CurrentRateRows(ctx context.Context) ([]store.CurrentRateRow, error)
}

// Rates refreshes current TPM/RPM usage. The query buckets the last minute of
// spend logs, so the windowed sums already are per-minute rates. Families are
// fully replaced each cycle: entities with no recent traffic drop out instead
// of reporting a stale rate forever.
type Rates struct {
	store    RateStore
	registry *metrics.Registry
}

// NewRates returns the current rates collector.
func NewRates(s RateStore, r *metrics.Registry) *Rates {
	return &Rates{store: s, registry: r}
}

// Name implements Collector.
func (c *Rates) Name() string { return "rates" }

// Refresh implements Collector.
func (c *Rates) Refresh(ctx context.Context) Result {
	start := time.Now()

	rows, err := c.store.CurrentRateRows(ctx)
	if err != nil {
		return failure(c.Name(), start, err)
	}

	tpm := newSampleSet()
	rpm := newSampleSet()

	for _, row := range rows {
		if !row.EntityID.Valid {
			continue
		}
		model := nullStr(row.Model, "unknown")
		id := row.EntityID.String
		alias := nullStr(row.EntityAlias, "none")
		labels := map[string]string{
			"model":        model,
			"entity_type":  row.EntityType,
			"entity_id":    id,
			"entity_alias": alias,
		}
		key := []string{model, row.EntityType, id, alias}

		tpm.add(labels, nullInt(row.TotalTokens), key...)
		rpm.add(labels, float64(row.RequestCount), key...)
	}

	if err := c.registry.SwapFamily(metrics.CurrentTPM, tpm.samples()); err != nil {
		return failure(c.Name(), start, err)
	}
	if err := c.registry.SwapFamily(metrics.CurrentRPM, rpm.samples()); err != nil {
		return failure(c.Name(), start, err)
	}

	return success(c.Name(), start, len(rows))
}
