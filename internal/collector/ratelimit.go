package collector

import (
	"context"
	"time"

	"github.com/blueberrycongee/litellm-exporter/internal/metrics"
	"github.com/blueberrycongee/litellm-exporter/internal/store"
)

// RateLimitStore supplies configured entity limits.
type RateLimitStore interface {
	RateLimitRows(ctx context.Context) ([]store.RateLimitRow, error)
}

// RateLimit refreshes the configured TPM/RPM/parallel limits and the blocked
// status gauge for users and teams.
type RateLimit struct {
	store    RateLimitStore
	registry *metrics.Registry
}

// NewRateLimit returns the rate limit collector.
func NewRateLimit(s RateLimitStore, r *metrics.Registry) *RateLimit {
	return &RateLimit{store: s, registry: r}
}

// Name implements Collector.
func (c *RateLimit) Name() string { return "ratelimit" }

// Refresh implements Collector.
func (c *RateLimit) Refresh(ctx context.Context) Result {
	start := time.Now()

	rows, err := c.store.RateLimitRows(ctx)
	if err != nil {
		return failure(c.Name(), start, err)
	}

	tpm := newSampleSet()
	rpm := newSampleSet()
	parallel := newSampleSet()
	blocked := newSampleSet()

	for _, row := range rows {
		if !row.EntityID.Valid {
			continue
		}
		id := row.EntityID.String
		alias := nullStr(row.EntityAlias, "none")
		labels := entityLabels(row.EntityType, id, alias)
		key := []string{row.EntityType, id, alias}

		if row.TPMLimit.Valid {
			tpm.set(labels, float64(row.TPMLimit.Int64), key...)
		}
		if row.RPMLimit.Valid {
			rpm.set(labels, float64(row.RPMLimit.Int64), key...)
		}
		if row.MaxParallelRequests.Valid {
			parallel.set(labels, float64(row.MaxParallelRequests.Int64), key...)
		}

		var blockedVal float64
		if row.Blocked.Valid && row.Blocked.Bool {
			blockedVal = 1
		}
		blocked.set(labels, blockedVal, key...)
	}

	swaps := []struct {
		name    string
		samples []metrics.Sample
	}{
		{metrics.TPMLimit, tpm.samples()},
		{metrics.RPMLimit, rpm.samples()},
		{metrics.ParallelRequests, parallel.samples()},
		{metrics.BlockedStatus, blocked.samples()},
	}
	for _, sw := range swaps {
		if err := c.registry.SwapFamily(sw.name, sw.samples); err != nil {
			return failure(c.Name(), start, err)
		}
	}

	return success(c.Name(), start, len(rows))
}
