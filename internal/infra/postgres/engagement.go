package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tutu-network/tally/internal/domain"
)

// ─── Achievements ───────────────────────────────────────────────────────────

const (
	querySelectAchievements = `SELECT name, unlocked_at FROM achievements ORDER BY unlocked_at ASC, name ASC`
	queryUnlockAchievement  = `INSERT INTO achievements (name, unlocked_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`
)

// Achievements returns every unlocked achievement record.
func (t *tx) Achievements(ctx context.Context) ([]domain.AchievementRecord, error) {
	rows, err := t.tx.Query(ctx, querySelectAchievements)
	if err != nil {
		return nil, dbErr("list achievements", err)
	}
	defer rows.Close()

	var out []domain.AchievementRecord
	for rows.Next() {
		a := domain.AchievementRecord{Unlocked: true}
		if err := rows.Scan(&a.Name, &a.UnlockedAt); err != nil {
			return nil, dbErr("scan achievement", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list achievements", err)
	}
	return out, nil
}

// UnlockAchievement records an unlock. Returns false if already unlocked.
func (t *tx) UnlockAchievement(ctx context.Context, name string, at time.Time) (bool, error) {
	ct, err := t.tx.Exec(ctx, queryUnlockAchievement, name, at)
	if err != nil {
		return false, dbErr("unlock achievement", err)
	}
	return ct.RowsAffected() > 0, nil
}

// ─── Penalties ──────────────────────────────────────────────────────────────

const queryMarkPenalty = `INSERT INTO penalty_log (task_id, day, points) VALUES ($1, $2, $3)
	ON CONFLICT (task_id, day) DO NOTHING`

// MarkPenalty records a penalty for (taskID, d). Returns false if that
// pair was already penalized.
func (t *tx) MarkPenalty(ctx context.Context, taskID string, d time.Time, points int) (bool, error) {
	ct, err := t.tx.Exec(ctx, queryMarkPenalty, taskID, day(d), points)
	if err != nil {
		return false, dbErr("mark penalty", err)
	}
	return ct.RowsAffected() > 0, nil
}

// ─── Points Ledger ──────────────────────────────────────────────────────────

const (
	queryAppendLedger = `INSERT INTO points_ledger (timestamp, kind, amount, ref, description, balance)
	VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	querySelectLedger = `SELECT id, timestamp, kind, amount, ref, description, balance
	FROM points_ledger ORDER BY id DESC LIMIT $1`

	queryLedgerSum = `SELECT COALESCE(SUM(amount), 0) FROM points_ledger`
)

// AppendLedger inserts a ledger entry and returns its ID.
func (t *tx) AppendLedger(ctx context.Context, e domain.LedgerEntry) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, queryAppendLedger,
		e.Timestamp, string(e.Kind), e.Amount,
		nullableString(e.Ref), nullableString(e.Description), e.Balance,
	).Scan(&id)
	if err != nil {
		return 0, dbErr("append ledger", err)
	}
	return id, nil
}

// LedgerEntries returns the most recent entries, newest first.
func (t *tx) LedgerEntries(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := t.tx.Query(ctx, querySelectLedger, limit)
	if err != nil {
		return nil, dbErr("list ledger", err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var kind string
		var ref, desc *string
		if err := rows.Scan(&e.ID, &e.Timestamp, &kind, &e.Amount, &ref, &desc, &e.Balance); err != nil {
			return nil, dbErr("scan ledger", err)
		}
		e.Kind = domain.LedgerKind(kind)
		e.Ref = deref(ref)
		e.Description = deref(desc)
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
	if err := t.tx.QueryRow(ctx, queryLedgerSum).Scan(&sum); err != nil {
		return 0, dbErr("sum ledger", err)
	}
	return sum, nil
}

// ─── Tracked Goals ──────────────────────────────────────────────────────────

const (
	goalColumns = `id, period, metric, target, current, period_start, period_end, active, created_at`

	queryInsertGoal = `INSERT INTO tracked_goals (` + goalColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	queryDeactivateGoals = `UPDATE tracked_goals SET active = false WHERE period = $1 AND metric = $2 AND active`

	querySelectActiveGoals = `SELECT ` + goalColumns + ` FROM tracked_goals
	WHERE active ORDER BY created_at DESC, id ASC`

	queryUpdateGoalProgress = `UPDATE tracked_goals SET current = $1 WHERE id = $2`
	queryExpireGoals        = `UPDATE tracked_goals SET active = false WHERE active AND period_end < $1`
	queryDeleteGoal         = `DELETE FROM tracked_goals WHERE id = $1`
)

// InsertGoal creates a tracked goal.
func (t *tx) InsertGoal(ctx context.Context, g domain.TrackedGoal) error {
	_, err := t.tx.Exec(ctx, queryInsertGoal,
		g.ID, string(g.Period), string(g.Metric), g.Target, g.Current,
		day(g.PeriodStart), day(g.PeriodEnd), g.Active, g.CreatedAt,
	)
	if err != nil {
		return dbErr("insert goal", err)
	}
	return nil
}

// DeactivateGoals deactivates active goals with the same period and metric.
func (t *tx) DeactivateGoals(ctx context.Context, period domain.GoalPeriod, metric domain.GoalMetric) error {
	if _, err := t.tx.Exec(ctx, queryDeactivateGoals, string(period), string(metric)); err != nil {
		return dbErr("deactivate goals", err)
	}
	return nil
}

// ActiveGoals returns active goals, newest first.
func (t *tx) ActiveGoals(ctx context.Context) ([]domain.TrackedGoal, error) {
	rows, err := t.tx.Query(ctx, querySelectActiveGoals)
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
	if _, err := t.tx.Exec(ctx, queryUpdateGoalProgress, current, id); err != nil {
		return dbErr("update goal", err)
	}
	return nil
}

// ExpireGoals deactivates goals whose period ended before d.
func (t *tx) ExpireGoals(ctx context.Context, d time.Time) (int, error) {
	ct, err := t.tx.Exec(ctx, queryExpireGoals, day(d))
	if err != nil {
		return 0, dbErr("expire goals", err)
	}
	return int(ct.RowsAffected()), nil
}

// DeleteGoal removes a tracked goal.
func (t *tx) DeleteGoal(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx, queryDeleteGoal, id)
	if err != nil {
		return dbErr("delete goal", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrGoalNotFound
	}
	return nil
}

func scanGoal(row pgx.Row) (domain.TrackedGoal, error) {
	var g domain.TrackedGoal
	var period, metric string
	err := row.Scan(&g.ID, &period, &metric, &g.Target, &g.Current,
		&g.PeriodStart, &g.PeriodEnd, &g.Active, &g.CreatedAt)
	if err != nil {
		return g, err
	}
	g.Period = domain.GoalPeriod(period)
	g.Metric = domain.GoalMetric(metric)
	g.PeriodStart = day(g.PeriodStart)
	g.PeriodEnd = day(g.PeriodEnd)
	return g, nil
}

// ─── Notifications ──────────────────────────────────────────────────────────

const (
	queryInsertNotification = `INSERT INTO notifications (type, title, body, created_at, shown)
	VALUES ($1, $2, $3, $4, $5) RETURNING id`

	querySelectPending = `SELECT id, type, title, body, created_at, shown FROM notifications
	WHERE NOT shown ORDER BY created_at ASC, id ASC LIMIT $1`

	queryMarkShown         = `UPDATE notifications SET shown = true WHERE id = $1`
	queryCountNotification = `SELECT COUNT(*) FROM notifications WHERE created_at >= $1 AND created_at < $2`
)

// InsertNotification creates a notification and returns its ID.
func (t *tx) InsertNotification(ctx context.Context, n domain.Notification) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, queryInsertNotification,
		string(n.Type), n.Title, n.Body, n.CreatedAt, n.Shown,
	).Scan(&id)
	if err != nil {
		return 0, dbErr("insert notification", err)
	}
	return id, nil
}

// PendingNotifications returns unshown notifications, oldest first.
func (t *tx) PendingNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := t.tx.Query(ctx, querySelectPending, limit)
	if err != nil {
		return nil, dbErr("list notifications", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var typ string
		if err := rows.Scan(&n.ID, &typ, &n.Title, &n.Body, &n.CreatedAt, &n.Shown); err != nil {
			return nil, dbErr("scan notification", err)
		}
		n.Type = domain.NotificationType(typ)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list notifications", err)
	}
	return out, nil
}

// MarkNotificationShown marks a notification as shown.
func (t *tx) MarkNotificationShown(ctx context.Context, id int64) error {
	ct, err := t.tx.Exec(ctx, queryMarkShown, id)
	if err != nil {
		return dbErr("mark notification", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// NotificationCount counts notifications created in [from, to).
func (t *tx) NotificationCount(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	if err := t.tx.QueryRow(ctx, queryCountNotification, from, to).Scan(&count); err != nil {
		return 0, dbErr("count notifications", err)
	}
	return count, nil
}
