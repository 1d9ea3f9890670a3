package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.MustRegister(
		Desc{Name: "test_gauge", Help: "a gauge", Kind: KindGauge, Labels: []string{"model"}},
		Desc{Name: "test_counter", Help: "a counter", Kind: KindCounter, Labels: []string{"model"}},
		Desc{Name: "test_hist", Help: "a histogram", Kind: KindHistogram, Labels: []string{"collector"}, Buckets: []float64{0.1, 1, 10}},
	)
	return r
}

func TestRegisterDuplicate(t *testing.T) {
	r := newTestRegistry(t)
	err := r.Register(Desc{Name: "test_gauge", Kind: KindGauge, Labels: []string{"model"}})
	require.ErrorIs(t, err, ErrDuplicateMetric)
}

func TestRegisterHistogramRequiresBuckets(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Desc{Name: "h", Kind: KindHistogram})
	require.Error(t, err)
}

func TestSetLabelMismatch(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Set("test_gauge", map[string]string{"wrong": "x"}, 1)
	require.ErrorIs(t, err, ErrLabelMismatch)

	err = r.Set("test_gauge", map[string]string{"model": "gpt-4", "extra": "y"}, 1)
	require.ErrorIs(t, err, ErrLabelMismatch)

	err = r.Set("test_gauge", map[string]string{}, 1)
	require.ErrorIs(t, err, ErrLabelMismatch)
}

func TestSetUnknownMetric(t *testing.T) {
	r := newTestRegistry(t)
	err := r.Set("nope", map[string]string{"model": "gpt-4"}, 1)
	require.ErrorIs(t, err, ErrUnknownMetric)
}

func TestGaugeSetOverwrites(t *testing.T) {
	r := newTestRegistry(t)
	labels := map[string]string{"model": "gpt-4"}

	require.NoError(t, r.Set("test_gauge", labels, 10))
	require.NoError(t, r.Set("test_gauge", labels, 3))

	v, ok := r.Value("test_gauge", labels)
	require.True(t, ok)
	assert.Equal(t, 3.0, v)
}

func TestCounterNeverDecreases(t *testing.T) {
	r := newTestRegistry(t)
	labels := map[string]string{"model": "gpt-4"}

	require.NoError(t, r.Set("test_counter", labels, 10))
	require.NoError(t, r.Set("test_counter", labels, 7))

	v, ok := r.Value("test_counter", labels)
	require.True(t, ok)
	assert.Equal(t, 10.0, v)

	require.NoError(t, r.Set("test_counter", labels, 12))
	v, _ = r.Value("test_counter", labels)
	assert.Equal(t, 12.0, v)
}

func TestCounterClampSurvivesSwap(t *testing.T) {
	r := newTestRegistry(t)
	labels := map[string]string{"model": "gpt-4"}

	require.NoError(t, r.Set("test_counter", labels, 10))
	require.NoError(t, r.SwapFamily("test_counter", []Sample{{Labels: labels, Value: 4}}))

	v, ok := r.Value("test_counter", labels)
	require.True(t, ok)
	assert.Equal(t, 10.0, v)
}

func TestSwapFamilyDropsStaleSeries(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Set("test_gauge", map[string]string{"model": "old"}, 1))
	require.NoError(t, r.SwapFamily("test_gauge", []Sample{
		{Labels: map[string]string{"model": "new"}, Value: 2},
	}))

	_, ok := r.Value("test_gauge", map[string]string{"model": "old"})
	assert.False(t, ok, "stale series should be dropped by swap")

	v, ok := r.Value("test_gauge", map[string]string{"model": "new"})
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
}

func TestSwapFamilyValidatesBeforeReplacing(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Set("test_gauge", map[string]string{"model": "kept"}, 5))

	err := r.SwapFamily("test_gauge", []Sample{
		{Labels: map[string]string{"model": "a"}, Value: 1},
		{Labels: map[string]string{"bogus": "b"}, Value: 2},
	})
	require.ErrorIs(t, err, ErrLabelMismatch)

	// The family is untouched after a failed swap.
	v, ok := r.Value("test_gauge", map[string]string{"model": "kept"})
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
}

// A concurrent snapshot must observe a family either fully before or fully
// after a swap, never a partial mix of the two generations.
func TestSwapAtomicUnderConcurrentSnapshot(t *testing.T) {
	r := newTestRegistry(t)

	generationA := []Sample{
		{Labels: map[string]string{"model": "m1"}, Value: 1},
		{Labels: map[string]string{"model": "m2"}, Value: 1},
	}
	generationB := []Sample{
		{Labels: map[string]string{"model": "m1"}, Value: 2},
		{Labels: map[string]string{"model": "m2"}, Value: 2},
	}
	require.NoError(t, r.SwapFamily("test_gauge", generationA))

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			snap := r.Snapshot()["test_gauge"]
			if len(snap) != 2 {
				t.Errorf("snapshot has %d samples, want 2", len(snap))
				return
			}
			if snap[0].Value != snap[1].Value {
				t.Errorf("snapshot mixes generations: %v vs %v", snap[0].Value, snap[1].Value)
				return
			}
		}
	}()

	for i := 0; i < 500; i++ {
		gen := generationA
		if i%2 == 0 {
			gen = generationB
		}
		require.NoError(t, r.SwapFamily("test_gauge", gen))
	}
	close(done)
	wg.Wait()
}

func TestHistogramObserve(t *testing.T) {
	r := newTestRegistry(t)
	labels := map[string]string{"collector": "spend"}

	require.NoError(t, r.Observe("test_hist", labels, 0.05))
	require.NoError(t, r.Observe("test_hist", labels, 0.5))
	require.NoError(t, r.Observe("test_hist", labels, 100))

	expected := `
# HELP test_hist a histogram
# TYPE test_hist histogram
test_hist_bucket{collector="spend",le="0.1"} 1
test_hist_bucket{collector="spend",le="1"} 2
test_hist_bucket{collector="spend",le="10"} 2
test_hist_bucket{collector="spend",le="+Inf"} 3
test_hist_sum{collector="spend"} 100.55
test_hist_count{collector="spend"} 3
`
	require.NoError(t, testutil.CollectAndCompare(r, strings.NewReader(expected), "test_hist"))
}

func TestObserveOnGaugeRejected(t *testing.T) {
	r := newTestRegistry(t)
	err := r.Observe("test_gauge", map[string]string{"model": "gpt-4"}, 1)
	require.Error(t, err)

	err = r.Set("test_hist", map[string]string{"collector": "spend"}, 1)
	require.Error(t, err)
}

func TestCollectExposesSamples(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Set("test_gauge", map[string]string{"model": "gpt-4"}, 15))

	expected := `
# HELP test_gauge a gauge
# TYPE test_gauge gauge
test_gauge{model="gpt-4"} 15
`
	require.NoError(t, testutil.CollectAndCompare(r, strings.NewReader(expected), "test_gauge"))
}

func TestLiteLLMRegistryRegistersFullSet(t *testing.T) {
	r := NewLiteLLMRegistry()

	for _, name := range []string{
		TotalSpend, UserSpend, TeamSpend, OrgSpend, TagSpend, KeySpend,
		TotalTokens, PromptTokens, CompletionTokens, RequestsTotal,
		CacheHitsTotal, CacheMissesTotal, CurrentTPM, CurrentRPM,
		TPMLimit, RPMLimit, ParallelRequests, BudgetUtilization,
		MaxBudget, SoftBudget, BudgetResetTime, BlockedStatus,
		KeyBlocked, KeyExpiry, KeyBudget, KeyBudgetSpend, ActiveKeys, ExpiredKeys,
		ErrorsTotal, ErrorRate, RefreshSuccess, LastRefresh, DBConnections,
	} {
		err := r.Register(Desc{Name: name, Kind: KindGauge})
		assert.ErrorIs(t, err, ErrDuplicateMetric, "expected %s to be registered", name)
	}
}
