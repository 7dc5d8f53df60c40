// Package pgsink copies processed chart tables into Postgres in long form:
// one row per (run, entity, period, metric).
package pgsink

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okian/macrochart/internal/adapters/sink"
	"github.com/okian/macrochart/internal/domain/series"
	"github.com/okian/macrochart/pkg/metrics"
)

// Table is the destination table.
const Table = "chart_results"

// ErrNoDatabase is returned when no connection string is configured.
var ErrNoDatabase = errors.New("database url not configured")

// Columns of Table in copy order.
var Columns = []string{"run_id", "chart", "entity", "period_end", "grain", "metric", "value", "state"}

const schema = `CREATE TABLE IF NOT EXISTS chart_results (
	run_id     text             NOT NULL,
	chart      text             NOT NULL,
	entity     text             NOT NULL,
	period_end date             NOT NULL,
	grain      text             NOT NULL,
	metric     text             NOT NULL,
	value      double precision,
	state      text             NOT NULL,
	PRIMARY KEY (run_id, entity, period_end, metric)
)`

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Sink writes chart results through db.
type Sink struct {
	db DBTX
}

// New wraps an open pool or transaction.
func New(db DBTX) *Sink { return &Sink{db: db} }

// Connect opens a pool for url, verifies it and creates Table if needed.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, *Sink, error) {
	if url == "" {
		return nil, nil, ErrNoDatabase
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	s := New(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pool, s, nil
}

// EnsureSchema creates Table if it does not exist.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create %s: %w", Table, err)
	}
	return nil
}

// Name implements sink.Sink.
func (s *Sink) Name() string { return "postgres" }

// Write replaces any earlier rows of the same run and copies t.
func (s *Sink) Write(ctx context.Context, run sink.Run, t *series.TidyTable) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM "+Table+" WHERE run_id = $1", run.ID); err != nil {
		return fmt.Errorf("clear run %s: %w", run.ID, err)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{Table}, Columns, pgx.CopyFromRows(Records(run, t)))
	if err != nil {
		return fmt.Errorf("copy %s: %w", Table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	metrics.RecordArtifact("postgres")
	metrics.RecordRowsLoaded("postgres", int(n))
	return nil
}

// Records flattens t into copy rows matching Columns. Missing and
// undefined values have a NULL value and are told apart by state.
func Records(run sink.Run, t *series.TidyTable) [][]any {
	cols := t.Columns()
	out := make([][]any, 0, t.Len()*len(cols))
	for _, r := range t.Rows() {
		for i, v := range r.Values {
			var value any
			if f, ok := v.Float(); ok {
				value = f
			}
			out = append(out, []any{
				run.ID, run.Chart, r.Key.Entity, r.Key.Period.End, r.Key.Period.Grain.String(),
				cols[i], value, v.State().String(),
			})
		}
	}
	return out
}
