// Package store provides read-only access to the LiteLLM gateway's PostgreSQL
// schema. It owns the bounded connection pool and the aggregate queries the
// collectors consume; it never writes to the database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq" // PostgreSQL driver
)

const defaultQueryTimeout = 30 * time.Second

// Config contains PostgreSQL connection settings.
type Config struct {
	Host           string
	Port           int
	Database       string
	User           string
	Password       string
	SSLMode        string
	MinConnections int
	MaxConnections int

	// QueryTimeout bounds each statement so a slow query cannot starve the
	// pool across refresh cycles.
	QueryTimeout time.Duration
}

// Postgres wraps the database handle. The underlying database/sql pool
// enforces the lease invariant: connections in use never exceed
// MaxConnections, and MinConnections stay idle when load permits.
type Postgres struct {
	db           *sql.DB
	queryTimeout time.Duration
	logger       *slog.Logger
}

// New opens the database handle and configures the pool. Opening is lazy and
// only invalid connection parameters fail here; Connect establishes the first
// live connection.
func New(cfg Config, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MinConnections)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Postgres{db: db, queryTimeout: cfg.QueryTimeout, logger: logger}, nil
}

// Connect establishes the first pool connection, backing off exponentially up
// to maxWait. Startup requires at least one live connection; outages after
// that degrade to stale metrics while the handle reconnects lazily.
func (p *Postgres) Connect(ctx context.Context, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = maxWait

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := p.db.PingContext(pingCtx); err != nil {
			p.logger.Warn("database not reachable, retrying", "error", err)
			return err
		}
		return nil
	}
	if err := backoff.Retry(ping, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("establish database connection: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database handle and its pooled connections.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Stats returns the connection pool statistics.
func (p *Postgres) Stats() sql.DBStats {
	return p.db.Stats()
}

// TableExists reports whether a table is present in the public schema.
func (p *Postgres) TableExists(ctx context.Context, table string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	var exists bool
	err := p.db.QueryRowContext(ctx, queryTableExists, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return exists, nil
}

// WaitForTables waits until every named table exists, backing off
// exponentially up to maxWait. Missing tables are reported, not fatal: the
// gateway may simply not have run its migrations yet, and the exporter
// degrades to empty metrics until it has.
func (p *Postgres) WaitForTables(ctx context.Context, tables []string, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = maxWait

	check := func() error {
		var missing []string
		for _, table := range tables {
			ok, err := p.TableExists(ctx, table)
			if err != nil {
				return err
			}
			if !ok {
				missing = append(missing, table)
			}
		}
		if len(missing) > 0 {
			p.logger.Info("waiting for database tables", "missing", missing)
			return fmt.Errorf("tables not ready: %v", missing)
		}
		return nil
	}

	return backoff.Retry(check, backoff.WithContext(bo, ctx))
}

// queryRetries bounds in-statement retries; a persistently failing query
// fails the tick and the next cycle tries again.
const queryRetries = 4

// query runs a statement under the configured per-query deadline, retrying
// transient failures a few times within it.
func (p *Postgres) query(ctx context.Context, q string, args ...any) (*sql.Rows, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout)

	var rows *sql.Rows
	run := func() error {
		var err error
		rows, err = p.db.QueryContext(ctx, q, args...)
		return err
	}
	if err := retryTransient(ctx, run); err != nil {
		cancel()
		return nil, nil, err
	}
	return rows, cancel, nil
}

// retryTransient runs fn with capped exponential backoff, quick attempts that
// fit inside the statement deadline.
func retryTransient(ctx context.Context, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = time.Second
	return backoff.Retry(fn, backoff.WithContext(backoff.WithMaxRetries(bo, queryRetries), ctx))
}
