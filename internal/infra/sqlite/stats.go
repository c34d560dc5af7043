package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tutu-network/tally/internal/domain"
)

// ─── User Stats ─────────────────────────────────────────────────────────────

const statsColumns = `total_points, level, points_to_next_level, total_tasks_completed,
	total_tasks_created, current_streak_days, longest_streak_days, last_completion_date,
	daily_goal, weekly_goal, monthly_goal, achievements_unlocked`

// Stats returns the singleton aggregate, inserting the defaults on first use.
func (t *tx) Stats(ctx context.Context) (domain.UserStats, error) {
	def := domain.DefaultUserStats()
	_, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_stats (id, level, points_to_next_level, daily_goal, weekly_goal, monthly_goal, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?)`,
		def.Level, def.PointsToNextLevel, def.DailyGoal, def.WeeklyGoal, def.MonthlyGoal, time.Now().Unix(),
	)
	if err != nil {
		return domain.UserStats{}, dbErr("init user_stats", err)
	}

	row := t.tx.QueryRowContext(ctx, `SELECT `+statsColumns+` FROM user_stats WHERE id = 1`)
	s, err := scanStats(row)
	if err != nil {
		return domain.UserStats{}, dbErr("get user_stats", err)
	}
	return s, nil
}

// SaveStats overwrites the singleton aggregate.
func (t *tx) SaveStats(ctx context.Context, s domain.UserStats) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE user_stats SET
			total_points=?, level=?, points_to_next_level=?, total_tasks_completed=?,
			total_tasks_created=?, current_streak_days=?, longest_streak_days=?, last_completion_date=?,
			daily_goal=?, weekly_goal=?, monthly_goal=?, achievements_unlocked=?, updated_at=?
		 WHERE id = 1`,
		s.TotalPoints, s.Level, s.PointsToNextLevel, s.TotalTasksCompleted,
		s.TotalTasksCreated, s.CurrentStreakDays, s.LongestStreakDays, nullableDay(s.LastCompletionDate),
		s.DailyGoal, s.WeeklyGoal, s.MonthlyGoal, s.AchievementsUnlocked, time.Now().Unix(),
	)
	if err != nil {
		return dbErr("save user_stats", err)
	}
	return nil
}

func scanStats(s scanner) (domain.UserStats, error) {
	var st domain.UserStats
	var last sql.NullString
	err := s.Scan(&st.TotalPoints, &st.Level, &st.PointsToNextLevel, &st.TotalTasksCompleted,
		&st.TotalTasksCreated, &st.CurrentStreakDays, &st.LongestStreakDays, &last,
		&st.DailyGoal, &st.WeeklyGoal, &st.MonthlyGoal, &st.AchievementsUnlocked)
	if err != nil {
		return st, err
	}
	if last.Valid {
		st.LastCompletionDate, err = parseDay(last.String)
	}
	return st, err
}

// ─── Daily Activity ─────────────────────────────────────────────────────────

const activityColumns = `date, tasks_completed, tasks_created, base_points_earned,
	streak_bonus_earned, daily_goal_bonus_earned, extra_bonus_earned, total_points_earned,
	daily_goal_met, streak_active, overdue_penalty_applied`

// Activity returns the record for day, or nil, nil if none exists.
func (t *tx) Activity(ctx context.Context, day time.Time) (*domain.DailyActivity, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM daily_activity WHERE date = ?`, formatDay(day))
	a, err := scanActivity(row)
	if isNoRows(err) {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, dbErr("get daily_activity", err)
	}
	return &a, nil
}

// SaveActivity upserts the record keyed by its date.
func (t *tx) SaveActivity(ctx context.Context, a domain.DailyActivity) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO daily_activity (`+activityColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET
			tasks_completed=excluded.tasks_completed,
			tasks_created=excluded.tasks_created,
			base_points_earned=excluded.base_points_earned,
			streak_bonus_earned=excluded.streak_bonus_earned,
			daily_goal_bonus_earned=excluded.daily_goal_bonus_earned,
			extra_bonus_earned=excluded.extra_bonus_earned,
			total_points_earned=excluded.total_points_earned,
			daily_goal_met=excluded.daily_goal_met,
			streak_active=excluded.streak_active,
			overdue_penalty_applied=excluded.overdue_penalty_applied`,
		formatDay(a.Date), a.TasksCompleted, a.TasksCreated, a.BasePointsEarned,
		a.StreakBonusEarned, a.DailyGoalBonusEarned, a.ExtraBonusEarned, a.TotalPointsEarned,
		a.DailyGoalMet, a.StreakActive, a.OverduePenaltyApplied,
	)
	if err != nil {
		return dbErr("save daily_activity", err)
	}
	return nil
}

// ActivityRange returns stored records between from and to inclusive, oldest first.
func (t *tx) ActivityRange(ctx context.Context, from, to time.Time) ([]domain.DailyActivity, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM daily_activity
		 WHERE date >= ? AND date <= ? ORDER BY date ASC`,
		formatDay(from), formatDay(to),
	)
	if err != nil {
		return nil, dbErr("list daily_activity", err)
	}
	defer rows.Close()

	var out []domain.DailyActivity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, dbErr("scan daily_activity", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list daily_activity", err)
	}
	return out, nil
}

// DailyGoalsMet counts the dates on which the daily goal was reached.
func (t *tx) DailyGoalsMet(ctx context.Context) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM daily_activity WHERE daily_goal_met = 1`).Scan(&n)
	if err != nil {
		return 0, dbErr("count daily goals", err)
	}
	return n, nil
}

func scanActivity(s scanner) (domain.DailyActivity, error) {
	var a domain.DailyActivity
	var date string
	err := s.Scan(&date, &a.TasksCompleted, &a.TasksCreated, &a.BasePointsEarned,
		&a.StreakBonusEarned, &a.DailyGoalBonusEarned, &a.ExtraBonusEarned, &a.TotalPointsEarned,
		&a.DailyGoalMet, &a.StreakActive, &a.OverduePenaltyApplied)
	if err != nil {
		return a, err
	}
	a.Date, err = parseDay(date)
	return a, err
}

// ─── Completion Log ─────────────────────────────────────────────────────────

// InsertCompletion appends one completion to the log.
func (t *tx) InsertCompletion(ctx context.Context, c domain.CompletionRecord) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO completions (id, task_id, day, completed_at, size, category, points)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, nullableString(c.TaskID), formatDay(c.Day), c.CompletedAt.Unix(),
		string(c.Size), c.Category, c.Points,
	)
	if err != nil {
		return dbErr("insert completion", err)
	}
	return nil
}

// Completions returns completions whose day is between from and to inclusive.
func (t *tx) Completions(ctx context.Context, from, to time.Time) ([]domain.CompletionRecord, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, task_id, day, completed_at, size, category, points FROM completions
		 WHERE day >= ? AND day <= ? ORDER BY completed_at ASC`,
		formatDay(from), formatDay(to),
	)
	if err != nil {
		return nil, dbErr("list completions", err)
	}
	defer rows.Close()

	var out []domain.CompletionRecord
	for rows.Next() {
		var c domain.CompletionRecord
		var taskID sql.NullString
		var day, size string
		var completedAt int64
		if err := rows.Scan(&c.ID, &taskID, &day, &completedAt, &size, &c.Category, &c.Points); err != nil {
			return nil, dbErr("scan completion", err)
		}
		c.TaskID = taskID.String
		c.Size = domain.TaskSize(size)
		c.CompletedAt = time.Unix(completedAt, 0)
		if c.Day, err = parseDay(day); err != nil {
			return nil, dbErr("scan completion", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list completions", err)
	}
	return out, nil
}

// CompletionCounts tallies late, early and weekend completions.
// Hours are taken in the process's local time zone, weekdays from the
// calendar day of the completion.
func (t *tx) CompletionCounts(ctx context.Context) (domain.CompletionCounts, error) {
	var counts domain.CompletionCounts
	err := t.tx.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN CAST(strftime('%H', completed_at, 'unixepoch', 'localtime') AS INTEGER) >= 22 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN CAST(strftime('%H', completed_at, 'unixepoch', 'localtime') AS INTEGER) < 6 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN strftime('%w', day) IN ('0', '6') THEN 1 ELSE 0 END), 0)
		 FROM completions`,
	).Scan(&counts.Late, &counts.Early, &counts.Weekend)
	if err != nil {
		return counts, dbErr("count completions", err)
	}
	return counts, nil
}
