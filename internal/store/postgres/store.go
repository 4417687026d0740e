// Package postgres provides the Postgres-backed record store.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jswiatek/ekw-sourcer/internal/register"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements register.RecordStore on two tables:
//
//	CREATE TABLE evidence_records (
//	    book_id         TEXT PRIMARY KEY,
//	    department_code TEXT NOT NULL,
//	    sequence_no     BIGINT NOT NULL,
//	    control_digit   SMALLINT NOT NULL,
//	    register_number TEXT,
//	    register_type   TEXT,
//	    court           TEXT,
//	    written_at      TEXT,
//	    location        TEXT,
//	    owner           TEXT,
//	    sections        JSONB,
//	    run_id          UUID,
//	    fetched_at      TIMESTAMPTZ NOT NULL,
//	    injected_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE failure_records (
//	    book_id         TEXT NOT NULL,
//	    department_code TEXT NOT NULL,
//	    reason          TEXT NOT NULL,
//	    attempts        INT NOT NULL,
//	    run_id          UUID,
//	    failed_at       TIMESTAMPTZ NOT NULL,
//	    injected_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    PRIMARY KEY (book_id, failed_at)
//	);
//
// Evidence writes are idempotent by book id; failure writes are append-only.
type Store struct {
	pool pool
}

// New connects a Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: p}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveEvidence upserts an evidence record keyed by book id. Re-running a
// sourcing pass over an already-stored identifier overwrites the row instead
// of duplicating it.
func (s *Store) SaveEvidence(ctx context.Context, record register.EvidenceRecord) error {
	sectionsJSON, err := json.Marshal(record.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}
	query := `
INSERT INTO evidence_records (
	book_id,
	department_code,
	sequence_no,
	control_digit,
	register_number,
	register_type,
	court,
	written_at,
	location,
	owner,
	sections,
	run_id,
	fetched_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)
ON CONFLICT (book_id) DO UPDATE SET
	register_number = EXCLUDED.register_number,
	register_type = EXCLUDED.register_type,
	court = EXCLUDED.court,
	written_at = EXCLUDED.written_at,
	location = EXCLUDED.location,
	owner = EXCLUDED.owner,
	sections = EXCLUDED.sections,
	run_id = EXCLUDED.run_id,
	fetched_at = EXCLUDED.fetched_at,
	injected_at = NOW()`

	args := []any{
		record.ID.String(),
		record.ID.Department,
		record.ID.Sequence,
		record.ID.ControlDigit,
		record.RegisterNumber,
		record.RegisterType,
		record.Court,
		record.WrittenAt,
		record.Location,
		record.Owner,
		sectionsJSON,
		record.RunID,
		record.FetchedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert evidence record: %w", err)
	}
	return nil
}

// SaveFailure appends a failure record.
func (s *Store) SaveFailure(ctx context.Context, record register.FailureRecord) error {
	query := `
INSERT INTO failure_records (
	book_id,
	department_code,
	reason,
	attempts,
	run_id,
	failed_at
) VALUES (
	$1,$2,$3,$4,$5,$6
)`
	args := []any{
		record.ID.String(),
		record.ID.Department,
		string(record.Reason),
		record.Attempts,
		record.RunID,
		record.FailedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert failure record: %w", err)
	}
	return nil
}

// LastSequence returns the highest stored sequence number for a department,
// used to resume a department instead of probing from the start.
func (s *Store) LastSequence(ctx context.Context, department string) (int64, bool, error) {
	query := `SELECT COALESCE(MAX(sequence_no), -1) FROM evidence_records WHERE department_code = $1`
	var last int64
	if err := s.pool.QueryRow(ctx, query, department).Scan(&last); err != nil {
		return 0, false, fmt.Errorf("query last sequence: %w", err)
	}
	if last < 0 {
		return 0, false, nil
	}
	return last, true, nil
}
