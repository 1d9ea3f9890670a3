package collector

import (
	"context"
	"time"

	"github.com/blueberrycongee/litellm-exporter/internal/metrics"
	"github.com/blueberrycongee/litellm-exporter/internal/store"
	"github.com/blueberrycongee/litellm-exporter/internal/window"
)

// KeyStore supplies verification token rows and their spend aggregates.
type KeyStore interface {
	KeyRows(ctx context.Context) ([]store.KeyRow, error)
	KeySpendRows(ctx context.Context, interval string) ([]store.KeySpendRow, error)
	KeyBudgetRows(ctx context.Context) ([]store.KeyBudgetRow, error)
}

// Keys refreshes per-key expiry, blocked status, spend, and budget families
// plus the active/expired key counts. Key spend is the spend-log aggregate over the
// spend window, not the token table's lifetime total.
type Keys struct {
	store    KeyStore
	registry *metrics.Registry
	window   window.Window
	now      func() time.Time
}

// NewKeys returns the key collector.
func NewKeys(s KeyStore, r *metrics.Registry, w window.Window) *Keys {
	return &Keys{store: s, registry: r, window: w, now: time.Now}
}

// Name implements Collector.
func (c *Keys) Name() string { return "keys" }

// Refresh implements Collector.
func (c *Keys) Refresh(ctx context.Context) Result {
	start := time.Now()

	keyRows, err := c.store.KeyRows(ctx)
	if err != nil {
		return failure(c.Name(), start, err)
	}
	spendRows, err := c.store.KeySpendRows(ctx, c.window.Interval())
	if err != nil {
		return failure(c.Name(), start, err)
	}
	budgetRows, err := c.store.KeyBudgetRows(ctx)
	if err != nil {
		return failure(c.Name(), start, err)
	}

	now := c.now()
	expiry := newSampleSet()
	blocked := newSampleSet()
	keySpend := newSampleSet()
	keyBudget := newSampleSet()
	keyBudgetSpend := newSampleSet()

	var active, expired float64
	for _, row := range keyRows {
		name := nullStr(row.KeyName, "none")
		alias := nullStr(row.KeyAlias, "none")
		labels := map[string]string{"key_name": name, "key_alias": alias}

		var blockedVal float64
		if row.Blocked.Valid && row.Blocked.Bool {
			blockedVal = 1
		}
		blocked.set(labels, blockedVal, name, alias)

		if row.Expires.Valid {
			seconds := row.Expires.Time.Sub(now).Seconds()
			if seconds > 0 {
				active++
				expiry.set(labels, seconds, name, alias)
			} else {
				expired++
			}
		} else {
			// Keys without an expiry never expire.
			active++
		}
	}

	for _, row := range spendRows {
		name := nullStr(row.KeyName, "none")
		alias := nullStr(row.KeyAlias, "none")
		keySpend.add(map[string]string{"key_name": name, "key_alias": alias},
			nullFloat(row.TotalSpend), name, alias)
	}

	for _, row := range budgetRows {
		name := nullStr(row.KeyName, "none")
		alias := nullStr(row.KeyAlias, "none")
		labels := map[string]string{"key_name": name, "key_alias": alias}
		if row.MaxBudget.Valid {
			keyBudget.set(labels, row.MaxBudget.Float64, name, alias)
		}
		if row.CurrentSpend.Valid {
			keyBudgetSpend.set(labels, row.CurrentSpend.Float64, name, alias)
		}
	}

	swaps := []struct {
		name    string
		samples []metrics.Sample
	}{
		{metrics.KeyExpiry, expiry.samples()},
		{metrics.KeyBlocked, blocked.samples()},
		{metrics.KeySpend, keySpend.samples()},
		{metrics.KeyBudget, keyBudget.samples()},
		{metrics.KeyBudgetSpend, keyBudgetSpend.samples()},
		{metrics.ActiveKeys, []metrics.Sample{{Labels: map[string]string{}, Value: active}}},
		{metrics.ExpiredKeys, []metrics.Sample{{Labels: map[string]string{}, Value: expired}}},
	}
	for _, sw := range swaps {
		if err := c.registry.SwapFamily(sw.name, sw.samples); err != nil {
			return failure(c.Name(), start, err)
		}
	}

	return success(c.Name(), start, len(keyRows)+len(spendRows)+len(budgetRows))
}
