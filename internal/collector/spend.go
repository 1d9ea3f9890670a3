package collector

import (
	"context"
	"time"

	"github.com/blueberrycongee/litellm-exporter/internal/metrics"
	"github.com/blueberrycongee/litellm-exporter/internal/store"
	"github.com/blueberrycongee/litellm-exporter/internal/window"
)

// SpendStore supplies the windowed spend aggregates.
type SpendStore interface {
	SpendRows(ctx context.Context, interval string) ([]store.SpendRow, error)
}

// Spend refreshes the spend, token, request, and cache families. Dollar and
// cache families are bounded by the spend window; request and token families
// by the request window. When both windows match, one query serves all
// families.
type Spend struct {
	store         SpendStore
	registry      *metrics.Registry
	spendWindow   window.Window
	requestWindow window.Window
}

// NewSpend returns the spend collector.
func NewSpend(s SpendStore, r *metrics.Registry, spendWindow, requestWindow window.Window) *Spend {
	return &Spend{store: s, registry: r, spendWindow: spendWindow, requestWindow: requestWindow}
}

// Name implements Collector.
func (c *Spend) Name() string { return "spend" }

// Refresh implements Collector.
func (c *Spend) Refresh(ctx context.Context) Result {
	start := time.Now()

	spendRows, err := c.store.SpendRows(ctx, c.spendWindow.Interval())
	if err != nil {
		return failure(c.Name(), start, err)
	}
	rowCount := len(spendRows)

	requestRows := spendRows
	if c.requestWindow != c.spendWindow {
		requestRows, err = c.store.SpendRows(ctx, c.requestWindow.Interval())
		if err != nil {
			return failure(c.Name(), start, err)
		}
		rowCount += len(requestRows)
	}

	// Both queries group by model AND entity, so one model spans many rows.
	// Model-level families are accumulated across all of them.
	modelSpend := newSampleSet()
	cacheHits := newSampleSet()
	cacheMisses := newSampleSet()
	userSpend := newSampleSet()
	teamSpend := newSampleSet()
	orgSpend := newSampleSet()

	for _, row := range spendRows {
		model := nullStr(row.Model, "unknown")
		spend := nullFloat(row.TotalSpend)
		modelKey := map[string]string{"model": model}

		modelSpend.add(modelKey, spend, model)
		cacheHits.add(modelKey, nullInt(row.CacheHits), model)
		cacheMisses.add(modelKey, nullInt(row.CacheMisses), model)

		if row.UserID.Valid {
			alias := nullStr(row.UserAlias, "none")
			userSpend.add(map[string]string{
				"user_id": row.UserID.String, "user_alias": alias, "model": model,
			}, spend, row.UserID.String, alias, model)
		}
		if row.TeamID.Valid {
			alias := nullStr(row.TeamAlias, "none")
			teamSpend.add(map[string]string{
				"team_id": row.TeamID.String, "team_alias": alias, "model": model,
			}, spend, row.TeamID.String, alias, model)
		}
		if row.OrgID.Valid {
			alias := nullStr(row.OrgAlias, "none")
			orgSpend.add(map[string]string{
				"organization_id": row.OrgID.String, "organization_alias": alias, "model": model,
			}, spend, row.OrgID.String, alias, model)
		}
	}

	modelTokens := newSampleSet()
	promptTokens := newSampleSet()
	completionTokens := newSampleSet()
	requests := newSampleSet()

	for _, row := range requestRows {
		model := nullStr(row.Model, "unknown")
		modelKey := map[string]string{"model": model}

		modelTokens.add(modelKey, nullInt(row.TotalTokens), model)
		promptTokens.add(modelKey, nullInt(row.PromptTokens), model)
		completionTokens.add(modelKey, nullInt(row.CompletionTokens), model)
		requests.add(modelKey, float64(row.RequestCount), model)
	}

	swaps := []struct {
		name    string
		samples []metrics.Sample
	}{
		{metrics.TotalSpend, modelSpend.samples()},
		{metrics.TotalTokens, modelTokens.samples()},
		{metrics.PromptTokens, promptTokens.samples()},
		{metrics.CompletionTokens, completionTokens.samples()},
		{metrics.RequestsTotal, requests.samples()},
		{metrics.UserSpend, userSpend.samples()},
		{metrics.TeamSpend, teamSpend.samples()},
		{metrics.OrgSpend, orgSpend.samples()},
	}
	for _, sw := range swaps {
		if err := c.registry.SwapFamily(sw.name, sw.samples); err != nil {
			return failure(c.Name(), start, err)
		}
	}

	// Cache families are counters: series are upserted rather than swapped so
	// a model that goes quiet keeps its count, and the registry clamps any
	// value below the one already held.
	for _, s := range cacheHits.samples() {
		if err := c.registry.Set(metrics.CacheHitsTotal, s.Labels, s.Value); err != nil {
			return failure(c.Name(), start, err)
		}
	}
	for _, s := range cacheMisses.samples() {
		if err := c.registry.Set(metrics.CacheMissesTotal, s.Labels, s.Value); err != nil {
			return failure(c.Name(), start, err)
		}
	}

	return success(c.Name(), start, rowCount)
}
