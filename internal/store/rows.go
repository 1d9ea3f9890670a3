package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SpendRow is one model × entity aggregate from the spend logs.
type SpendRow struct {
	Model            sql.NullString
	TotalSpend       sql.NullFloat64
	TotalTokens      sql.NullInt64
	PromptTokens     sql.NullInt64
	CompletionTokens sql.NullInt64
	RequestCount     int64
	CacheHits        sql.NullInt64
	CacheMisses      sql.NullInt64
	UserID           sql.NullString
	UserAlias        sql.NullString
	TeamID           sql.NullString
	TeamAlias        sql.NullString
	OrgID            sql.NullString
	OrgAlias         sql.NullString
}

// TagSpendRow is an aggregate over one distinct request_tags array. Tags holds
// the array as JSON text, e.g. `["prod", "batch"]`.
type TagSpendRow struct {
	Tags         sql.NullString
	TotalSpend   sql.NullFloat64
	TotalTokens  sql.NullInt64
	RequestCount int64
}

// RateLimitRow is one entity's configured limits and blocked status.
type RateLimitRow struct {
	EntityType          string
	EntityID            sql.NullString
	EntityAlias         sql.NullString
	TPMLimit            sql.NullInt64
	RPMLimit            sql.NullInt64
	MaxParallelRequests sql.NullInt64
	Blocked             sql.NullBool
}

// CurrentRateRow is one model × entity usage aggregate over the last minute.
type CurrentRateRow struct {
	Model        sql.NullString
	EntityType   string
	EntityID     sql.NullString
	EntityAlias  sql.NullString
	TotalTokens  sql.NullInt64
	RequestCount int64
}

// BudgetRow is one entity's budget configuration and current spend.
type BudgetRow struct {
	EntityType   string
	EntityID     sql.NullString
	EntityAlias  sql.NullString
	MaxBudget    sql.NullFloat64
	SoftBudget   sql.NullFloat64
	ResetAt      sql.NullTime
	CurrentSpend sql.NullFloat64
}

// KeyRow is one verification token.
type KeyRow struct {
	KeyName  sql.NullString
	KeyAlias sql.NullString
	Expires  sql.NullTime
	Blocked  sql.NullBool
	Spend    sql.NullFloat64
}

// KeySpendRow is one key's spend aggregate over the spend window.
type KeySpendRow struct {
	KeyName    sql.NullString
	KeyAlias   sql.NullString
	TotalSpend sql.NullFloat64
}

// KeyBudgetRow is one key's budget and in-cycle spend.
type KeyBudgetRow struct {
	KeyName      sql.NullString
	KeyAlias     sql.NullString
	MaxBudget    sql.NullFloat64
	CurrentSpend sql.NullFloat64
}

// ErrorRow is one model × exception type count over the error window.
type ErrorRow struct {
	Model      string
	ErrorType  string
	ErrorCount int64
}

// SpendRows returns model × entity spend aggregates bounded by the interval
// literal (e.g. "30 days").
func (p *Postgres) SpendRows(ctx context.Context, interval string) ([]SpendRow, error) {
	rows, cancel, err := p.query(ctx, querySpend, interval)
	if err != nil {
		return nil, fmt.Errorf("query spend: %w", err)
	}
	defer cancel()
	defer rows.Close()

	var out []SpendRow
	for rows.Next() {
		var r SpendRow
		if err := rows.Scan(
			&r.Model, &r.TotalSpend, &r.TotalTokens, &r.PromptTokens,
			&r.CompletionTokens, &r.RequestCount, &r.CacheHits, &r.CacheMisses,
			&r.UserID, &r.UserAlias, &r.TeamID, &r.TeamAlias, &r.OrgID, &r.OrgAlias,
		); err != nil {
			return nil, fmt.Errorf("scan spend row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TagSpendRows returns spend aggregates per distinct tag array.
func (p *Postgres) TagSpendRows(ctx context.Context, interval string) ([]TagSpendRow, error) {
	rows, cancel, err := p.query(ctx, queryTagSpend, interval)
	if err != nil {
		return nil, fmt.Errorf("query tag spend: %w", err)
	}
	defer cancel()
	defer rows.Close()

	var out []TagSpendRow
	for rows.Next() {
		var r TagSpendRow
		if err := rows.Scan(&r.Tags, &r.TotalSpend, &r.TotalTokens, &r.RequestCount); err != nil {
			return nil, fmt.Errorf("scan tag spend row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RateLimitRows returns configured limits for users and teams.
func (p *Postgres) RateLimitRows(ctx context.Context) ([]RateLimitRow, error) {
	rows, cancel, err := p.query(ctx, queryRateLimits)
	if err != nil {
		return nil, fmt.Errorf("query rate limits: %w", err)
	}
	defer cancel()
	defer rows.Close()

	var out []RateLimitRow
	for rows.Next() {
		var r RateLimitRow
		if err := rows.Scan(
			&r.EntityType, &r.EntityID, &r.EntityAlias,
			&r.TPMLimit, &r.RPMLimit, &r.MaxParallelRequests, &r.Blocked,
		); err != nil {
			return nil, fmt.Errorf("scan rate limit row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CurrentRateRows returns last-minute usage per model × entity.
func (p *Postgres) CurrentRateRows(ctx context.Context) ([]CurrentRateRow, error) {
	rows, cancel, err := p.query(ctx, queryCurrentRates)
	if err != nil {
		return nil, fmt.Errorf("query current rates: %w", err)
	}
	defer cancel()
	defer rows.Close()

	var out []CurrentRateRow
	for rows.Next() {
		var r CurrentRateRow
		if err := rows.Scan(
			&r.Model, &r.EntityType, &r.EntityID, &r.EntityAlias,
			&r.TotalTokens, &r.RequestCount,
		); err != nil {
			return nil, fmt.Errorf("scan current rate row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BudgetRows returns budgets for users, teams, and organizations.
func (p *Postgres) BudgetRows(ctx context.Context) ([]BudgetRow, error) {
	rows, cancel, err := p.query(ctx, queryBudgets)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer cancel()
	defer rows.Close()

	var out []BudgetRow
	for rows.Next() {
		var r BudgetRow
		if err := rows.Scan(
			&r.EntityType, &r.EntityID, &r.EntityAlias,
			&r.MaxBudget, &r.SoftBudget, &r.ResetAt, &r.CurrentSpend,
		); err != nil {
			return nil, fmt.Errorf("scan budget row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// KeyRows returns all verification tokens.
func (p *Postgres) KeyRows(ctx context.Context) ([]KeyRow, error) {
	rows, cancel, err := p.query(ctx, queryKeys)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer cancel()
	defer rows.Close()

	var out []KeyRow
	for rows.Next() {
		var r KeyRow
		if err := rows.Scan(&r.KeyName, &r.KeyAlias, &r.Expires, &r.Blocked, &r.Spend); err != nil {
			return nil, fmt.Errorf("scan key row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// KeySpendRows returns per-key spend aggregates bounded by the interval literal.
func (p *Postgres) KeySpendRows(ctx context.Context, interval string) ([]KeySpendRow, error) {
	rows, cancel, err := p.query(ctx, queryKeySpend, interval)
	if err != nil {
		return nil, fmt.Errorf("query key spend: %w", err)
	}
	defer cancel()
	defer rows.Close()

	var out []KeySpendRow
	for rows.Next() {
		var r KeySpendRow
		if err := rows.Scan(&r.KeyName, &r.KeyAlias, &r.TotalSpend); err != nil {
			return nil, fmt.Errorf("scan key spend row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// KeyBudgetRows returns budgets and in-cycle spend for keys that have one.
func (p *Postgres) KeyBudgetRows(ctx context.Context) ([]KeyBudgetRow, error) {
	rows, cancel, err := p.query(ctx, queryKeyBudgets)
	if err != nil {
		return nil, fmt.Errorf("query key budgets: %w", err)
	}
	defer cancel()
	defer rows.Close()

	var out []KeyBudgetRow
	for rows.Next() {
		var r KeyBudgetRow
		if err := rows.Scan(&r.KeyName, &r.KeyAlias, &r.MaxBudget, &r.CurrentSpend); err != nil {
			return nil, fmt.Errorf("scan key budget row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ErrorRows returns error counts per model × exception type bounded by the
// interval literal.
func (p *Postgres) ErrorRows(ctx context.Context, interval string) ([]ErrorRow, error) {
	rows, cancel, err := p.query(ctx, queryErrors, interval)
	if err != nil {
		return nil, fmt.Errorf("query errors: %w", err)
	}
	defer cancel()
	defer rows.Close()

	var out []ErrorRow
	for rows.Next() {
		var r ErrorRow
		if err := rows.Scan(&r.Model, &r.ErrorType, &r.ErrorCount); err != nil {
			return nil, fmt.Errorf("scan error row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
