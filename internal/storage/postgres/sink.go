// Package postgres provides a Postgres-backed ingest.Sink.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
)

const defaultTable = "jobs"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool and target table.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	// CreateTable issues CREATE TABLE IF NOT EXISTS on startup.
	CreateTable bool
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// Sink writes canonical records into one table. A unique constraint on
// (job_source, source_id) makes concurrent writers from other processes
// collapse into ingest.ErrDuplicate.
type Sink struct {
	pool  pool
	table string
}

// NewSink connects to Postgres using cfg.
func NewSink(ctx context.Context, cfg Config) (*Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres.dsn is required")
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
	s, err := NewSinkWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	if cfg.CreateTable {
		if err := s.EnsureTable(ctx); err != nil {
			p.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewSinkWithPool constructs a sink from an existing pool (primarily for testing).
func NewSinkWithPool(p pool, table string) (*Sink, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Sink{pool: p, table: table}, nil
}

// EnsureTable creates the records table when it does not exist.
func (s *Sink) EnsureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	internal_id  TEXT PRIMARY KEY,
	source_id    TEXT NOT NULL,
	job_source   TEXT NOT NULL,
	link         TEXT NOT NULL,
	company_name TEXT NOT NULL,
	job_category TEXT NOT NULL,
	title        TEXT NOT NULL,
	content      TEXT NOT NULL,
	province     TEXT NOT NULL,
	city         TEXT NOT NULL,
	experience   TEXT NOT NULL,
	job_type     TEXT NOT NULL,
	level        TEXT NOT NULL,
	salary_min   BIGINT NOT NULL,
	salary_max   BIGINT NOT NULL,
	education    TEXT NOT NULL,
	work_policy  TEXT NOT NULL,
	industry     TEXT NOT NULL,
	gender       TEXT NOT NULL,
	tags         TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (job_source, source_id)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// ListExistingKeys returns the key of every stored row.
func (s *Sink) ListExistingKeys(ctx context.Context) ([]ingest.DedupKey, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT job_source, source_id FROM %s", s.table))
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var keys []ingest.DedupKey
	for rows.Next() {
		var name, id string
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, ingest.NewDedupKey(name, id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}

// Append inserts rec. A conflicting key yields ingest.ErrDuplicate.
func (s *Sink) Append(ctx context.Context, rec ingest.Record) error {
	placeholders := make([]string, len(ingest.Columns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (job_source, source_id) DO NOTHING",
		s.table, strings.Join(ingest.Columns, ", "), strings.Join(placeholders, ","),
	)
	tag, err := s.pool.Exec(ctx, query, rowValues(rec)...)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", rec.Key(), err)
	}
	if tag.RowsAffected() == 0 {
		return ingest.ErrDuplicate
	}
	return nil
}

// Close releases the pool.
func (s *Sink) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// rowValues follows the order of ingest.Columns.
func rowValues(rec ingest.Record) []any {
	return []any{
		rec.InternalID,
		rec.SourceID,
		rec.SourceName,
		rec.Link,
		rec.CompanyName,
		rec.Category,
		rec.Title,
		rec.Content,
		rec.Province,
		rec.City,
		rec.Experience,
		rec.JobType,
		rec.Level,
		rec.SalaryMin,
		rec.SalaryMax,
		rec.Education,
		rec.WorkPolicy,
		rec.Industry,
		rec.Gender,
		rec.TagString(),
	}
}
