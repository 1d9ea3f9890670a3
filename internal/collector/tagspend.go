package collector

import (
	"context"
	"time"

	json "github.com/goccy/go-json"

	"github.com/blueberrycongee/litellm-exporter/internal/metrics"
	"github.com/blueberrycongee/litellm-exporter/internal/store"
	"github.com/blueberrycongee/litellm-exporter/internal/window"
)

// TagSpendStore supplies spend aggregates grouped by request tag array.
type TagSpendStore interface {
	TagSpendRows(ctx context.Context, interval string) ([]store.TagSpendRow, error)
}

// TagSpend refreshes per-tag spend and token totals. The spend logs store
// tags as a JSON array per request; a request carrying several tags
// contributes its full amount to each of them.
type TagSpend struct {
	store    TagSpendStore
	registry *metrics.Registry
	window   window.Window
}

// NewTagSpend returns the tag spend collector.
func NewTagSpend(s TagSpendStore, r *metrics.Registry, w window.Window) *TagSpend {
	return &TagSpend{store: s, registry: r, window: w}
}

// Name implements Collector.
func (c *TagSpend) Name() string { return "tagspend" }

// Refresh implements Collector.
func (c *TagSpend) Refresh(ctx context.Context) Result {
	start := time.Now()

	rows, err := c.store.TagSpendRows(ctx, c.window.Interval())
	if err != nil {
		return failure(c.Name(), start, err)
	}

	spend := newSampleSet()
	tokens := newSampleSet()

	for _, row := range rows {
		if !row.Tags.Valid || row.Tags.String == "" || row.Tags.String == "null" {
			continue
		}
		var tags []string
		if err := json.Unmarshal([]byte(row.Tags.String), &tags); err != nil {
			// A malformed tag array is that row's problem, not the cycle's.
			continue
		}
		for _, tag := range tags {
			if tag == "" {
				continue
			}
			labels := map[string]string{"tag": tag}
			spend.add(labels, nullFloat(row.TotalSpend), tag)
			tokens.add(labels, nullInt(row.TotalTokens), tag)
		}
	}

	if err := c.registry.SwapFamily(metrics.TagSpend, spend.samples()); err != nil {
		return failure(c.Name(), start, err)
	}
	if err := c.registry.SwapFamily(metrics.TagTokens, tokens.samples()); err != nil {
		return failure(c.Name(), start, err)
	}

	return success(c.Name(), start, len(rows))
}
