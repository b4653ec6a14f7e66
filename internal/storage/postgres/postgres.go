// Package postgres implements the storage interfaces over PostgreSQL.
// Amounts are NUMERIC(78,0) columns moved through their decimal string
// form.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cosmossdk.io/math"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"emission-engine/internal/observability"
	"emission-engine/internal/storage/migrations"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// Query runs a query through the pool, recording latency and errors.
func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	start := time.Now()
	rows, err := p.Pool.Query(ctx, sql, args...)
	observeQuery(queryOp(sql), start, err)
	return rows, err
}

// QueryRow runs a single-row query; metrics are recorded when the row is
// scanned, where the driver surfaces the error.
func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &observedRow{
		row:   p.Pool.QueryRow(ctx, sql, args...),
		op:    queryOp(sql),
		start: time.Now(),
	}
}

// Exec runs a statement through the pool, recording latency and errors.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := p.Pool.Exec(ctx, sql, args...)
	observeQuery(queryOp(sql), start, err)
	return tag, err
}

type observedRow struct {
	row   pgx.Row
	op    string
	start time.Time
}

func (r *observedRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	observeQuery(r.op, r.start, err)
	return err
}

// observeQuery records one query. Missing rows and constraint violations are
// domain conditions, not driver failures, and stay out of the error counter.
func observeQuery(op string, start time.Time, err error) {
	if isNotFoundError(err) || isDuplicateKeyError(err) {
		err = nil
	}
	observability.RecordDBQuery("postgres", op, time.Since(start).Seconds(), err)
}

// queryOp extracts the leading SQL verb for the metrics label.
func queryOp(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}

// Migrate applies the embedded schema.
func (p *Pool) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, "postgres", func(ctx context.Context, sql string) error {
		_, err := p.Exec(ctx, sql)
		return err
	})
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation = "23505" // unique_violation
)

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}

	return false
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// parseAmount converts a NUMERIC column's text form into math.Int.
func parseAmount(s string) (math.Int, error) {
	v, ok := math.NewIntFromString(s)
	if !ok {
		return math.Int{}, fmt.Errorf("malformed amount %q", s)
	}
	return v, nil
}
