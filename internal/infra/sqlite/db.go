// Package sqlite provides SQLite-based persistent storage for tally.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/tutu-network/tally/internal/domain"
)

// DB wraps a SQLite connection with WAL mode and migrations.
// It implements domain.Store.
type DB struct {
	db *sql.DB
}

var _ domain.Store = (*DB)(nil)

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
// Transactions take the write lock up front (_txlock=immediate) so two
// processes never deadlock upgrading a read lock.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := "file:" + dbPath +
		"?_txlock=immediate" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer. One connection also serializes every
	// transaction issued by this process.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Update runs fn in a write transaction. Rolled back on any error.
func (d *DB) Update(ctx context.Context, fn func(tx domain.StoreTx) error) error {
	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", domain.ErrPersistence, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&tx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx: %w", domain.ErrPersistence, err)
	}
	committed = true
	return nil
}

// View runs fn in a transaction that is always rolled back.
func (d *DB) View(ctx context.Context, fn func(tx domain.StoreTx) error) error {
	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", domain.ErrPersistence, err)
	}
	defer sqlTx.Rollback()
	return fn(&tx{tx: sqlTx})
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Singleton aggregate. The CHECK keeps it to one row.
		`CREATE TABLE IF NOT EXISTS user_stats (
			id                     INTEGER PRIMARY KEY CHECK (id = 1),
			total_points           INTEGER NOT NULL DEFAULT 0 CHECK (total_points >= 0),
			level                  INTEGER NOT NULL DEFAULT 1,
			points_to_next_level   INTEGER NOT NULL DEFAULT 100,
			total_tasks_completed  INTEGER NOT NULL DEFAULT 0,
			total_tasks_created    INTEGER NOT NULL DEFAULT 0,
			current_streak_days    INTEGER NOT NULL DEFAULT 0,
			longest_streak_days    INTEGER NOT NULL DEFAULT 0,
			last_completion_date   TEXT,
			daily_goal             INTEGER NOT NULL DEFAULT 3,
			weekly_goal            INTEGER NOT NULL DEFAULT 20,
			monthly_goal           INTEGER NOT NULL DEFAULT 80,
			achievements_unlocked  INTEGER NOT NULL DEFAULT 0,
			updated_at             INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS daily_activity (
			date                     TEXT PRIMARY KEY,
			tasks_completed          INTEGER NOT NULL DEFAULT 0,
			tasks_created            INTEGER NOT NULL DEFAULT 0,
			base_points_earned       INTEGER NOT NULL DEFAULT 0,
			streak_bonus_earned      INTEGER NOT NULL DEFAULT 0,
			daily_goal_bonus_earned  INTEGER NOT NULL DEFAULT 0,
			extra_bonus_earned       INTEGER NOT NULL DEFAULT 0,
			total_points_earned      INTEGER NOT NULL DEFAULT 0,
			daily_goal_met           BOOLEAN NOT NULL DEFAULT 0,
			streak_active            BOOLEAN NOT NULL DEFAULT 0,
			overdue_penalty_applied  INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS completions (
			id           TEXT PRIMARY KEY,
			task_id      TEXT,
			day          TEXT NOT NULL,
			completed_at INTEGER NOT NULL,
			size         TEXT NOT NULL,
			category     TEXT NOT NULL DEFAULT '',
			points       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_completions_day ON completions(day)`,

		// Unlock state, keyed by catalogue name
		`CREATE TABLE IF NOT EXISTS achievements (
			name        TEXT PRIMARY KEY,
			unlocked_at INTEGER NOT NULL
		)`,

		// One row per (task, day) keeps penalty passes idempotent
		`CREATE TABLE IF NOT EXISTS penalty_log (
			task_id    TEXT NOT NULL,
			day        TEXT NOT NULL,
			points     INTEGER NOT NULL,
			applied_at INTEGER NOT NULL,
			PRIMARY KEY (task_id, day)
		)`,

		`CREATE TABLE IF NOT EXISTS points_ledger (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			kind        TEXT NOT NULL,
			amount      INTEGER NOT NULL,
			ref         TEXT,
			description TEXT,
			balance     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_ts ON points_ledger(timestamp)`,

		`CREATE TABLE IF NOT EXISTS tracked_goals (
			id           TEXT PRIMARY KEY,
			period       TEXT NOT NULL,
			metric       TEXT NOT NULL,
			target       INTEGER NOT NULL,
			current      INTEGER NOT NULL DEFAULT 0,
			period_start TEXT NOT NULL,
			period_end   TEXT NOT NULL,
			active       BOOLEAN NOT NULL DEFAULT 1,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_goals_active ON tracked_goals(active)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_goals_one_active
			ON tracked_goals(period, metric) WHERE active`,

		// Notification log (policy: max per day, quiet hours)
		`CREATE TABLE IF NOT EXISTS notifications (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			shown      BOOLEAN DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notif_created ON notifications(created_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Transaction ────────────────────────────────────────────────────────────

// tx implements domain.StoreTx over a *sql.Tx.
type tx struct {
	tx *sql.Tx
}

var _ domain.StoreTx = (*tx)(nil)

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// dbErr tags a driver error as a persistence failure.
func dbErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func formatDay(t time.Time) string {
	return domain.Day(t).Format(domain.DateLayout)
}

func parseDay(s string) (time.Time, error) {
	return domain.ParseDay(s)
}

func nullableDay(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDay(t), Valid: true}
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
