package ledger

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/convertfix/audit-service/internal/audit"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool behind the ledger.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres is the durable completion ledger.
type Postgres struct {
	pool  pgPool
	table string
}

// NewPostgres creates a Postgres-backed ledger using the provided config.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("ledger.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "audit_completions"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
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
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// NewPostgresWithPool constructs a ledger from an existing pool
// (primarily for testing).
func NewPostgresWithPool(pool pgPool, table string) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "audit_completions"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (p *Postgres) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}

// Completed reports whether a completion row exists for the job.
func (p *Postgres) Completed(ctx context.Context, jobID string) (bool, error) {
	if p == nil || p.pool == nil {
		return false, fmt.Errorf("ledger is not configured")
	}
	if jobID == "" {
		return false, fmt.Errorf("job id is required")
	}
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE job_id = $1)`, p.table)
	var exists bool
	if err := p.pool.QueryRow(ctx, query, jobID).Scan(&exists); err != nil {
		return false, fmt.Errorf("query completion: %w", err)
	}
	return exists, nil
}

// MarkCompleted inserts the completion record. Conflicts on job_id are
// ignored so redelivered jobs stay idempotent.
func (p *Postgres) MarkCompleted(ctx context.Context, rec audit.CompletionRecord) error {
	if p == nil || p.pool == nil {
		return fmt.Errorf("ledger is not configured")
	}
	if rec.JobID == "" {
		return fmt.Errorf("record job id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	job_id,
	url,
	email,
	tier,
	score,
	report_uri,
	completed_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7
) ON CONFLICT (job_id) DO NOTHING`, p.table)

	args := []any{
		rec.JobID,
		rec.URL,
		rec.Email,
		string(rec.Tier),
		rec.Score,
		rec.ReportURI,
		rec.CompletedAt,
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}
