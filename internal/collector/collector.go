// Package collector implements the per-family metric collectors. Each
// collector owns its queries and its metric families: it maps result rows to
// label sets, builds the family's complete sample set, and swaps it into the
// registry in one step. A failing collector reports the error in its Result
// and leaves every family it owns untouched.
package collector

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/blueberrycongee/litellm-exporter/internal/metrics"
)

// Result is the outcome of one collector refresh.
type Result struct {
	Collector string
	Err       error
	Duration  time.Duration
	Rows      int
}

// Success reports whether the refresh completed.
func (r Result) Success() bool {
	return r.Err == nil
}

// Collector refreshes one metric family group from the database.
type Collector interface {
	Name() string
	Refresh(ctx context.Context) Result
}

// sampleSet accumulates labeled values. Adding the same label key twice sums
// the values: aggregates grouped by entity contribute rows for the same model,
// and the model-level series must be the total across all of them, not the
// last row seen.
type sampleSet struct {
	order []string
	byKey map[string]*metrics.Sample
}

func newSampleSet() *sampleSet {
	return &sampleSet{byKey: make(map[string]*metrics.Sample)}
}

func (s *sampleSet) add(labels map[string]string, value float64, keyParts ...string) {
	key := strings.Join(keyParts, "\xff")
	if existing, ok := s.byKey[key]; ok {
		existing.Value += value
		return
	}
	s.byKey[key] = &metrics.Sample{Labels: labels, Value: value}
	s.order = append(s.order, key)
}

// set stores a value without accumulation, for families where a duplicate key
// means the same fact reported twice rather than a partial aggregate.
func (s *sampleSet) set(labels map[string]string, value float64, keyParts ...string) {
	key := strings.Join(keyParts, "\xff")
	if existing, ok := s.byKey[key]; ok {
		existing.Value = value
		return
	}
	s.byKey[key] = &metrics.Sample{Labels: labels, Value: value}
	s.order = append(s.order, key)
}

func (s *sampleSet) samples() []metrics.Sample {
	out := make([]metrics.Sample, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.byKey[key])
	}
	return out
}

func nullStr(ns sql.NullString, fallback string) string {
	if ns.Valid && ns.String != "" {
		return ns.String
	}
	return fallback
}

func nullFloat(nf sql.NullFloat64) float64 {
	if nf.Valid {
		return nf.Float64
	}
	return 0
}

func nullInt(ni sql.NullInt64) float64 {
	if ni.Valid {
		return float64(ni.Int64)
	}
	return 0
}

func entityLabels(entityType, entityID, entityAlias string) map[string]string {
	return map[string]string{
		"entity_type":  entityType,
		"entity_id":    entityID,
		"entity_alias": entityAlias,
	}
}

func failure(name string, start time.Time, err error) Result {
	return Result{Collector: name, Err: err, Duration: time.Since(start)}
}

func success(name string, start time.Time, rows int) Result {
	return Result{Collector: name, Duration: time.Since(start), Rows: rows}
}
