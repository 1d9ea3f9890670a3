package collector

import (
	"context"
	"database/sql"
	"time"

	"github.com/blueberrycongee/litellm-exporter/internal/store"
)

// stubStore satisfies every collector store interface from canned rows.
type stubStore struct {
	spendRows     []store.SpendRow
	spendErr      error
	// spendByInterval, when set, overrides spendRows per interval literal.
	spendByInterval map[string][]store.SpendRow
	tagRows       []store.TagSpendRow
	tagErr        error
	rateLimitRows []store.RateLimitRow
	rateLimitErr  error
	rateRows      []store.CurrentRateRow
	rateErr       error
	budgetRows    []store.BudgetRow
	budgetErr     error
	keyRows       []store.KeyRow
	keyErr        error
	keySpendRows  []store.KeySpendRow
	keySpendErr   error
	keyBudgetRows []store.KeyBudgetRow
	keyBudgetErr  error
	errorRows     []store.ErrorRow
	errorErr      error
}

func (s *stubStore) SpendRows(_ context.Context, interval string) ([]store.SpendRow, error) {
	if s.spendByInterval != nil {
		return s.spendByInterval[interval], s.spendErr
	}
	return s.spendRows, s.spendErr
}

func (s *stubStore) TagSpendRows(context.Context, string) ([]store.TagSpendRow, error) {
	return s.tagRows, s.tagErr
}

func (s *stubStore) RateLimitRows(context.Context) ([]store.RateLimitRow, error) {
	return s.rateLimitRows, s.rateLimitErr
}

func (s *stubStore) CurrentRateRows(context.Context) ([]store.CurrentRateRow, error) {
	return s.rateRows, s.rateErr
}

func (s *stubStore) BudgetRows(context.Context) ([]store.BudgetRow, error) {
	return s.budgetRows, s.budgetErr
}

func (s *stubStore) KeyRows(context.Context) ([]store.KeyRow, error) {
	return s.keyRows, s.keyErr
}

func (s *stubStore) KeySpendRows(context.Context, string) ([]store.KeySpendRow, error) {
	return s.keySpendRows, s.keySpendErr
}

func (s *stubStore) KeyBudgetRows(context.Context) ([]store.KeyBudgetRow, error) {
	return s.keyBudgetRows, s.keyBudgetErr
}

func (s *stubStore) ErrorRows(context.Context, string) ([]store.ErrorRow, error) {
	return s.errorRows, s.errorErr
}

func ns(s string) sql.NullString     { return sql.NullString{String: s, Valid: true} }
func nf(f float64) sql.NullFloat64   { return sql.NullFloat64{Float64: f, Valid: true} }
func ni(i int64) sql.NullInt64       { return sql.NullInt64{Int64: i, Valid: true} }
func nt(t time.Time) sql.NullTime    { return sql.NullTime{Time: t, Valid: true} }
func nb(b bool) sql.NullBool         { return sql.NullBool{Bool: b, Valid: true} }
