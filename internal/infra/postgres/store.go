// Package postgres provides a PostgreSQL-backed domain.Store for shared
// deployments. Writers lock the aggregate row with SELECT ... FOR UPDATE.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutu-network/tally/internal/domain"
)

// PgConnection is the subset of *pgxpool.Pool the store needs.
// pgxmock pools satisfy it in tests.
type PgConnection interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements domain.Store on PostgreSQL.
type Store struct {
	conn PgConnection
}

var _ domain.Store = (*Store)(nil)

// Open connects to dsn, verifies the connection and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{conn: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewWithConn wraps an existing connection. Migrations are not run.
func NewWithConn(conn PgConnection) *Store {
	return &Store{conn: conn}
}

// Close releases the pool.
func (s *Store) Close() error {
	s.conn.Close()
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.conn.Ping(ctx); err != nil {
		return dbErr("ping", err)
	}
	return nil
}

// Update runs fn in a read-write transaction. Rolled back on any error.
func (s *Store) Update(ctx context.Context, fn func(tx domain.StoreTx) error) error {
	return s.run(ctx, true, fn)
}

// View runs fn in a transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(tx domain.StoreTx) error) error {
	return s.run(ctx, false, fn)
}

func (s *Store) run(ctx context.Context, write bool, fn func(tx domain.StoreTx) error) error {
	pgTx, err := s.conn.Begin(ctx)
	if err != nil {
		return dbErr("begin tx", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = pgTx.Rollback(ctx)
		}
	}()

	if err := fn(&tx{tx: pgTx, write: write}); err != nil {
		return err
	}
	if !write {
		return nil
	}
	if err := pgTx.Commit(ctx); err != nil {
		return dbErr("commit tx", err)
	}
	committed = true
	return nil
}

// Migrate creates the schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := s.conn.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS user_stats (
		id                     SMALLINT PRIMARY KEY CHECK (id = 1),
		total_points           INTEGER NOT NULL DEFAULT 0 CHECK (total_points >= 0),
		level                  INTEGER NOT NULL DEFAULT 1,
		points_to_next_level   INTEGER NOT NULL DEFAULT 100,
		total_tasks_completed  INTEGER NOT NULL DEFAULT 0,
		total_tasks_created    INTEGER NOT NULL DEFAULT 0,
		current_streak_days    INTEGER NOT NULL DEFAULT 0,
		longest_streak_days    INTEGER NOT NULL DEFAULT 0,
		last_completion_date   DATE,
		daily_goal             INTEGER NOT NULL DEFAULT 3,
		weekly_goal            INTEGER NOT NULL DEFAULT 20,
		monthly_goal           INTEGER NOT NULL DEFAULT 80,
		achievements_unlocked  INTEGER NOT NULL DEFAULT 0,
		updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS daily_activity (
		date                     DATE PRIMARY KEY,
		tasks_completed          INTEGER NOT NULL DEFAULT 0,
		tasks_created            INTEGER NOT NULL DEFAULT 0,
		base_points_earned       INTEGER NOT NULL DEFAULT 0,
		streak_bonus_earned      INTEGER NOT NULL DEFAULT 0,
		daily_goal_bonus_earned  INTEGER NOT NULL DEFAULT 0,
		extra_bonus_earned       INTEGER NOT NULL DEFAULT 0,
		total_points_earned      INTEGER NOT NULL DEFAULT 0,
		daily_goal_met           BOOLEAN NOT NULL DEFAULT false,
		streak_active            BOOLEAN NOT NULL DEFAULT false,
		overdue_penalty_applied  INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS completions (
		id           TEXT PRIMARY KEY,
		task_id      TEXT,
		day          DATE NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL,
		size         TEXT NOT NULL,
		category     TEXT NOT NULL DEFAULT '',
		points       INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_completions_day ON completions(day)`,

	`CREATE TABLE IF NOT EXISTS achievements (
		name        TEXT PRIMARY KEY,
		unlocked_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS penalty_log (
		task_id    TEXT NOT NULL,
		day        DATE NOT NULL,
		points     INTEGER NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (task_id, day)
	)`,

	`CREATE TABLE IF NOT EXISTS points_ledger (
		id          BIGSERIAL PRIMARY KEY,
		timestamp   TIMESTAMPTZ NOT NULL,
		kind        TEXT NOT NULL,
		amount      INTEGER NOT NULL,
		ref         TEXT,
		description TEXT,
		balance     INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS tracked_goals (
		id           TEXT PRIMARY KEY,
		period       TEXT NOT NULL,
		metric       TEXT NOT NULL,
		target       INTEGER NOT NULL CHECK (target > 0),
		current      INTEGER NOT NULL DEFAULT 0,
		period_start DATE NOT NULL,
		period_end   DATE NOT NULL,
		active       BOOLEAN NOT NULL DEFAULT true,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_goals_active ON tracked_goals(active)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_goals_one_active
		ON tracked_goals(period, metric) WHERE active`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id         BIGSERIAL PRIMARY KEY,
		type       TEXT NOT NULL,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		shown      BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notif_created ON notifications(created_at)`,
}

// ─── Transaction ────────────────────────────────────────────────────────────

// tx implements domain.StoreTx over a pgx.Tx. write selects row locking.
type tx struct {
	tx    pgx.Tx
	write bool
}

var _ domain.StoreTx = (*tx)(nil)

// ─── Helpers ────────────────────────────────────────────────────────────────

// PostgreSQL error codes the store distinguishes.
const (
	codeUniqueViolation   = "23505"
	codeCheckViolation    = "23514"
	codeSerializationFail = "40001"
)

// dbErr tags a driver error as a persistence failure. Constraint
// violations are validation failures instead.
func dbErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation, codeCheckViolation:
			return fmt.Errorf("%w: %s: %s", domain.ErrValidation, op, pgErr.Message)
		case codeSerializationFail:
			return fmt.Errorf("%w: %s: serialization failure: %w", domain.ErrPersistence, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func day(t time.Time) time.Time {
	return domain.Day(t)
}

func nullableDay(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	d := domain.Day(t)
	return &d
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
