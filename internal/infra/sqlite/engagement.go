package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tutu-network/tally/internal/domain"
)

// ─── Achievements ───────────────────────────────────────────────────────────

// Achievements returns every unlocked achievement record.
func (t *tx) Achievements(ctx context.Context) ([]domain.AchievementRecord, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT name, unlocked_at FROM achievements ORDER BY unlocked_at ASC, name ASC`)
	if err != nil {
		return nil, dbErr("list achievements", err)
	}
	defer rows.Close()

	var out []domain.AchievementRecord
	for rows.Next() {
		var a domain.AchievementRecord
		var unlockedAt int64
		if err := rows.Scan(&a.Name, &unlockedAt); err != nil {
			return nil, dbErr("scan achievement", err)
		}
		a.Unlocked = true
		a.UnlockedAt = time.Unix(unlockedAt, 0)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list achievements", err)
	}
	return out, nil
}

// UnlockAchievement records an achievement as unlocked.
// Returns false if already unlocked (idempotent).
func (t *tx) UnlockAchievement(ctx context.Context, name string, at time.Time) (bool, error) {
	result, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO achievements (name, unlocked_at) VALUES (?, ?)`,
		name, at.Unix(),
	)
	if err != nil {
		return false, dbErr("unlock achievement", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil // true = newly unlocked
}

// ─── Penalties ──────────────────────────────────────────────────────────────

// MarkPenalty records a penalty for (taskID, day).
// Returns false if that pair was already penalized.
func (t *tx) MarkPenalty(ctx context.Context, taskID string, day time.Time, points int) (bool, error) {
	result, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO penalty_log (task_id, day, points, applied_at) VALUES (?, ?, ?, ?)`,
		taskID, formatDay(day), points, time.Now().Unix(),
	)
	if err != nil {
		return false, dbErr("mark penalty", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ─── Points Ledger ──────────────────────────────────────────────────────────

// AppendLedger inserts a ledger entry and returns its ID.
func (t *tx) AppendLedger(ctx context.Context, e domain.LedgerEntry) (int64, error) {
	result, err := t.tx.ExecContext(ctx,
		`INSERT INTO points_ledger (timestamp, kind, amount, ref, description, balance)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Timestamp.Unix(), string(e.Kind), e.Amount,
		nullableString(e.Ref), nullableString(e.Description), e.Balance,
	)
	if err != nil {
		return 0, dbErr("append ledger", err)
	}
	return result.LastInsertId()
}

// LedgerEntries returns the most recent entries, newest first.
func (t *tx) LedgerEntries(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, timestamp, kind, amount, ref, description, balance
		 FROM points_ledger ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, dbErr("list ledger", err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var ts int64
		var kind string
		var ref, desc sql.NullString
		if err := rows.Scan(&e.ID, &ts, &kind, &e.Amount, &ref, &desc, &e.Balance); err != nil {
			return nil, dbErr("scan ledger", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		e.Kind = domain.LedgerKind(kind)
		e.Ref = ref.String
		e.Description = desc.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list ledger", err)
	}
	return out, nil
}

// LedgerSum returns the signed sum of all ledger amounts.
func (t *tx) LedgerSum(ctx context.Context) (int, error) {
	var sum int
	err := t.tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM points_ledger`).Scan(&sum)
	if err != nil {
		return 0, dbErr("sum ledger", err)
	}
	return sum, nil
}

// ─── Tracked Goals ──────────────────────────────────────────────────────────

// InsertGoal creates a tracked goal.
func (t *tx) InsertGoal(ctx context.Context, g domain.TrackedGoal) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO tracked_goals (id, period, metric, target, current, period_start, period_end, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, string(g.Period), string(g.Metric), g.Target, g.Current,
		formatDay(g.PeriodStart), formatDay(g.PeriodEnd), g.Active, g.CreatedAt.Unix(),
	)
	if err != nil {
		return dbErr("insert goal", err)
	}
	return nil
}

// DeactivateGoals deactivates active goals with the same period and metric.
func (t *tx) DeactivateGoals(ctx context.Context, period domain.GoalPeriod, metric domain.GoalMetric) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE tracked_goals SET active = 0 WHERE period = ? AND metric = ? AND active = 1`,
		string(period), string(metric),
	)
	if err != nil {
		return dbErr("deactivate goals", err)
	}
	return nil
}

// ActiveGoals returns active goals, newest first.
func (t *tx) ActiveGoals(ctx context.Context) ([]domain.TrackedGoal, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, period, metric, target, current, period_start, period_end, active, created_at
		 FROM tracked_goals WHERE active = 1 ORDER BY created_at DESC, id ASC`,
	)
	if err != nil {
		return nil, dbErr("list goals", err)
	}
	defer rows.Close()

	var out []domain.TrackedGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, dbErr("scan goal", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list goals", err)
	}
	return out, nil
}

// UpdateGoalProgress stores the refreshed current value.
func (t *tx) UpdateGoalProgress(ctx context.Context, id string, current int) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE tracked_goals SET current = ? WHERE id = ?`, current, id)
	if err != nil {
		return dbErr("update goal", err)
	}
	return nil
}

// ExpireGoals deactivates goals whose period ended before day.
func (t *tx) ExpireGoals(ctx context.Context, day time.Time) (int, error) {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE tracked_goals SET active = 0 WHERE active = 1 AND period_end < ?`, formatDay(day))
	if err != nil {
		return 0, dbErr("expire goals", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// DeleteGoal removes a tracked goal.
func (t *tx) DeleteGoal(ctx context.Context, id string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM tracked_goals WHERE id = ?`, id)
	if err != nil {
		return dbErr("delete goal", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return domain.ErrGoalNotFound
	}
	return nil
}

func scanGoal(s scanner) (domain.TrackedGoal, error) {
	var g domain.TrackedGoal
	var period, metric, start, end string
	var createdAt int64
	err := s.Scan(&g.ID, &period, &metric, &g.Target, &g.Current, &start, &end, &g.Active, &createdAt)
	if err != nil {
		return g, err
	}
	g.Period = domain.GoalPeriod(period)
	g.Metric = domain.GoalMetric(metric)
	g.CreatedAt = time.Unix(createdAt, 0)
	if g.PeriodStart, err = parseDay(start); err != nil {
		return g, err
	}
	g.PeriodEnd, err = parseDay(end)
	return g, err
}

// ─── Notifications ──────────────────────────────────────────────────────────

// InsertNotification creates a notification and returns its ID.
func (t *tx) InsertNotification(ctx context.Context, n domain.Notification) (int64, error) {
	result, err := t.tx.ExecContext(ctx,
		`INSERT INTO notifications (type, title, body, created_at, shown) VALUES (?, ?, ?, ?, ?)`,
		string(n.Type), n.Title, n.Body, n.CreatedAt.Unix(), n.Shown,
	)
	if err != nil {
		return 0, dbErr("insert notification", err)
	}
	return result.LastInsertId()
}

// PendingNotifications returns unshown notifications, oldest first.
func (t *tx) PendingNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, type, title, body, created_at, shown FROM notifications
		 WHERE shown = 0 ORDER BY created_at ASC, id ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, dbErr("list notifications", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var typ string
		var createdAt int64
		if err := rows.Scan(&n.ID, &typ, &n.Title, &n.Body, &createdAt, &n.Shown); err != nil {
			return nil, dbErr("scan notification", err)
		}
		n.Type = domain.NotificationType(typ)
		n.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list notifications", err)
	}
	return out, nil
}

// MarkNotificationShown marks a notification as shown.
func (t *tx) MarkNotificationShown(ctx context.Context, id int64) error {
	result, err := t.tx.ExecContext(ctx, `UPDATE notifications SET shown = 1 WHERE id = ?`, id)
	if err != nil {
		return dbErr("mark notification", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// NotificationCount counts notifications created in [from, to).
func (t *tx) NotificationCount(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE created_at >= ? AND created_at < ?`,
		from.Unix(), to.Unix(),
	).Scan(&count)
	if err != nil {
		return 0, dbErr("count notifications", err)
	}
	return count, nil
}
