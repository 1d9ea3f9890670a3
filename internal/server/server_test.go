package server

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/litellm-exporter/internal/collector"
	"github.com/blueberrycongee/litellm-exporter/internal/metrics"
	"github.com/blueberrycongee/litellm-exporter/internal/store"
	"github.com/blueberrycongee/litellm-exporter/internal/window"
)

type staticHealth bool

func (h staticHealth) Ready() bool { return bool(h) }

// stubSpendStore seeds the spend collector for the end-to-end scrape test.
type stubSpendStore struct {
	rows []store.SpendRow
}

func (s *stubSpendStore) SpendRows(context.Context, string) ([]store.SpendRow, error) {
	return s.rows, nil
}

type stubKeyStore struct {
	keys      []store.KeyRow
	keySpend  []store.KeySpendRow
	keyBudget []store.KeyBudgetRow
}

func (s *stubKeyStore) KeyRows(context.Context) ([]store.KeyRow, error) { return s.keys, nil }
func (s *stubKeyStore) KeySpendRows(context.Context, string) ([]store.KeySpendRow, error) {
	return s.keySpend, nil
}
func (s *stubKeyStore) KeyBudgetRows(context.Context) ([]store.KeyBudgetRow, error) {
	return s.keyBudget, nil
}

func ns(s string) sql.NullString   { return sql.NullString{String: s, Valid: true} }
func nf(f float64) sql.NullFloat64 { return sql.NullFloat64{Float64: f, Valid: true} }

func get(t *testing.T, handler http.Handler, path string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestHealthEndpoints(t *testing.T) {
	reg := metrics.NewLiteLLMRegistry()
	srv := New(9090, NewPrometheusRegistry(reg), staticHealth(false), nil)

	code, _ := get(t, srv.Handler, "/health/live")
	assert.Equal(t, http.StatusOK, code)

	code, body := get(t, srv.Handler, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "waiting")

	ready := New(9090, NewPrometheusRegistry(metrics.NewLiteLLMRegistry()), staticHealth(true), nil)
	code, _ = get(t, ready.Handler, "/health/ready")
	assert.Equal(t, http.StatusOK, code)
}

// A scrape before any refresh has completed returns 200 with whatever is
// available; a down database must never surface as a scrape error.
func TestMetricsAlwaysServes(t *testing.T) {
	reg := metrics.NewLiteLLMRegistry()
	srv := New(9090, NewPrometheusRegistry(reg), staticHealth(false), nil)

	code, body := get(t, srv.Handler, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	// Process-level series exist even with an empty sample registry.
	assert.Contains(t, body, "go_goroutines")
}

// Two keys spending on the same model produce their own litellm_key_spend
// series and a summed model-level total on the wire.
func TestScrapeEndToEnd(t *testing.T) {
	reg := metrics.NewLiteLLMRegistry()
	w := window.MustParse("30d")

	spendStore := &stubSpendStore{rows: []store.SpendRow{
		{Model: ns("gpt-4"), TotalSpend: nf(10.0), RequestCount: 4, UserID: ns("u1")},
		{Model: ns("gpt-4"), TotalSpend: nf(5.0), RequestCount: 2, UserID: ns("u2")},
	}}
	keyStore := &stubKeyStore{
		keys: []store.KeyRow{{KeyName: ns("k1")}, {KeyName: ns("k2")}},
		keySpend: []store.KeySpendRow{
			{KeyName: ns("k1"), TotalSpend: nf(10.0)},
			{KeyName: ns("k2"), TotalSpend: nf(5.0)},
		},
	}

	require.NoError(t, collector.NewSpend(spendStore, reg, w, w).Refresh(context.Background()).Err)
	require.NoError(t, collector.NewKeys(keyStore, reg, w).Refresh(context.Background()).Err)

	srv := New(9090, NewPrometheusRegistry(reg), staticHealth(true), nil)
	code, body := get(t, srv.Handler, "/metrics")
	require.Equal(t, http.StatusOK, code)

	assert.Contains(t, body, `litellm_key_spend{key_alias="none",key_name="k1"} 10`)
	assert.Contains(t, body, `litellm_key_spend{key_alias="none",key_name="k2"} 5`)
	assert.Contains(t, body, `litellm_total_spend{model="gpt-4"} 15`)
	assert.Contains(t, body, "litellm_active_keys 2")

	assert.Contains(t, body, "# TYPE litellm_total_spend gauge")
	assert.Contains(t, body, "# HELP litellm_key_spend")
}
