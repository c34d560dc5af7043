package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tutu-network/tally/internal/domain"
)

// ─── User Stats ─────────────────────────────────────────────────────────────

const (
	statsColumns = `total_points, level, points_to_next_level, total_tasks_completed,
	total_tasks_created, current_streak_days, longest_streak_days, last_completion_date,
	daily_goal, weekly_goal, monthly_goal, achievements_unlocked`

	queryInitStats = `INSERT INTO user_stats (id, level, points_to_next_level, daily_goal, weekly_goal, monthly_goal)
	VALUES (1, $1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`

	querySelectStats          = `SELECT ` + statsColumns + ` FROM user_stats WHERE id = 1`
	querySelectStatsForUpdate = querySelectStats + ` FOR UPDATE`

	queryUpdateStats = `UPDATE user_stats SET
	total_points = $1, level = $2, points_to_next_level = $3, total_tasks_completed = $4,
	total_tasks_created = $5, current_streak_days = $6, longest_streak_days = $7, last_completion_date = $8,
	daily_goal = $9, weekly_goal = $10, monthly_goal = $11, achievements_unlocked = $12, updated_at = now()
	WHERE id = 1`
)

// Stats returns the singleton aggregate, inserting the defaults on first
// use. In a write transaction the row stays locked until commit.
func (t *tx) Stats(ctx context.Context) (domain.UserStats, error) {
	def := domain.DefaultUserStats()
	if _, err := t.tx.Exec(ctx, queryInitStats,
		def.Level, def.PointsToNextLevel, def.DailyGoal, def.WeeklyGoal, def.MonthlyGoal,
	); err != nil {
		return domain.UserStats{}, dbErr("init user_stats", err)
	}

	q := querySelectStats
	if t.write {
		q = querySelectStatsForUpdate
	}
	s, err := scanStats(t.tx.QueryRow(ctx, q))
	if err != nil {
		return domain.UserStats{}, dbErr("get user_stats", err)
	}
	return s, nil
}

// SaveStats overwrites the singleton aggregate.
func (t *tx) SaveStats(ctx context.Context, s domain.UserStats) error {
	_, err := t.tx.Exec(ctx, queryUpdateStats,
		s.TotalPoints, s.Level, s.PointsToNextLevel, s.TotalTasksCompleted,
		s.TotalTasksCreated, s.CurrentStreakDays, s.LongestStreakDays, nullableDay(s.LastCompletionDate),
		s.DailyGoal, s.WeeklyGoal, s.MonthlyGoal, s.AchievementsUnlocked,
	)
	if err != nil {
		return dbErr("save user_stats", err)
	}
	return nil
}

func scanStats(row pgx.Row) (domain.UserStats, error) {
	var st domain.UserStats
	var last *time.Time
	err := row.Scan(&st.TotalPoints, &st.Level, &st.PointsToNextLevel, &st.TotalTasksCompleted,
		&st.TotalTasksCreated, &st.CurrentStreakDays, &st.LongestStreakDays, &last,
		&st.DailyGoal, &st.WeeklyGoal, &st.MonthlyGoal, &st.AchievementsUnlocked)
	if err != nil {
		return st, err
	}
	if last != nil {
		st.LastCompletionDate = day(*last)
	}
	return st, nil
}

// ─── Daily Activity ─────────────────────────────────────────────────────────

const (
	activityColumns = `date, tasks_completed, tasks_created, base_points_earned,
	streak_bonus_earned, daily_goal_bonus_earned, extra_bonus_earned, total_points_earned,
	daily_goal_met, streak_active, overdue_penalty_applied`

	querySelectActivity = `SELECT ` + activityColumns + ` FROM daily_activity WHERE date = $1`

	queryUpsertActivity = `INSERT INTO daily_activity (` + activityColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (date) DO UPDATE SET
		tasks_completed = EXCLUDED.tasks_completed,
		tasks_created = EXCLUDED.tasks_created,
		base_points_earned = EXCLUDED.base_points_earned,
		streak_bonus_earned = EXCLUDED.streak_bonus_earned,
		daily_goal_bonus_earned = EXCLUDED.daily_goal_bonus_earned,
		extra_bonus_earned = EXCLUDED.extra_bonus_earned,
		total_points_earned = EXCLUDED.total_points_earned,
		daily_goal_met = EXCLUDED.daily_goal_met,
		streak_active = EXCLUDED.streak_active,
		overdue_penalty_applied = EXCLUDED.overdue_penalty_applied`

	querySelectActivityRange = `SELECT ` + activityColumns + ` FROM daily_activity
	WHERE date >= $1 AND date <= $2 ORDER BY date ASC`

	queryCountGoalsMet = `SELECT COUNT(*) FROM daily_activity WHERE daily_goal_met`
)

// Activity returns the record for d, or nil, nil if none exists.
func (t *tx) Activity(ctx context.Context, d time.Time) (*domain.DailyActivity, error) {
	a, err := scanActivity(t.tx.QueryRow(ctx, querySelectActivity, day(d)))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, dbErr("get daily_activity", err)
	}
	return &a, nil
}

// SaveActivity upserts the record keyed by its date.
func (t *tx) SaveActivity(ctx context.Context, a domain.DailyActivity) error {
	_, err := t.tx.Exec(ctx, queryUpsertActivity,
		day(a.Date), a.TasksCompleted, a.TasksCreated, a.BasePointsEarned,
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
	rows, err := t.tx.Query(ctx, querySelectActivityRange, day(from), day(to))
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
	if err := t.tx.QueryRow(ctx, queryCountGoalsMet).Scan(&n); err != nil {
		return 0, dbErr("count daily goals", err)
	}
	return n, nil
}

func scanActivity(row pgx.Row) (domain.DailyActivity, error) {
	var a domain.DailyActivity
	err := row.Scan(&a.Date, &a.TasksCompleted, &a.TasksCreated, &a.BasePointsEarned,
		&a.StreakBonusEarned, &a.DailyGoalBonusEarned, &a.ExtraBonusEarned, &a.TotalPointsEarned,
		&a.DailyGoalMet, &a.StreakActive, &a.OverduePenaltyApplied)
	if err != nil {
		return a, err
	}
	a.Date = day(a.Date)
	return a, nil
}

// ─── Completion Log ─────────────────────────────────────────────────────────

const (
	queryInsertCompletion = `INSERT INTO completions (id, task_id, day, completed_at, size, category, points)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	querySelectCompletions = `SELECT id, task_id, day, completed_at, size, category, points FROM completions
	WHERE day >= $1 AND day <= $2 ORDER BY completed_at ASC`

	// Hours use the session time zone, weekdays the calendar day.
	queryCompletionCounts = `SELECT
		COUNT(*) FILTER (WHERE EXTRACT(HOUR FROM completed_at) >= 22),
		COUNT(*) FILTER (WHERE EXTRACT(HOUR FROM completed_at) < 6),
		COUNT(*) FILTER (WHERE EXTRACT(DOW FROM day) IN (0, 6))
	FROM completions`
)

// InsertCompletion appends one completion to the log.
func (t *tx) InsertCompletion(ctx context.Context, c domain.CompletionRecord) error {
	_, err := t.tx.Exec(ctx, queryInsertCompletion,
		c.ID, nullableString(c.TaskID), day(c.Day), c.CompletedAt,
		string(c.Size), c.Category, c.Points,
	)
	if err != nil {
		return dbErr("insert completion", err)
	}
	return nil
}

// Completions returns completions whose day is between from and to inclusive.
func (t *tx) Completions(ctx context.Context, from, to time.Time) ([]domain.CompletionRecord, error) {
	rows, err := t.tx.Query(ctx, querySelectCompletions, day(from), day(to))
	if err != nil {
		return nil, dbErr("list completions", err)
	}
	defer rows.Close()

	var out []domain.CompletionRecord
	for rows.Next() {
		var c domain.CompletionRecord
		var taskID *string
		var size string
		if err := rows.Scan(&c.ID, &taskID, &c.Day, &c.CompletedAt, &size, &c.Category, &c.Points); err != nil {
			return nil, dbErr("scan completion", err)
		}
		c.TaskID = deref(taskID)
		c.Size = domain.TaskSize(size)
		c.Day = day(c.Day)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list completions", err)
	}
	return out, nil
}

// CompletionCounts tallies late, early and weekend completions.
func (t *tx) CompletionCounts(ctx context.Context) (domain.CompletionCounts, error) {
	var counts domain.CompletionCounts
	err := t.tx.QueryRow(ctx, queryCompletionCounts).Scan(&counts.Late, &counts.Early, &counts.Weekend)
	if err != nil {
		return counts, dbErr("count completions", err)
	}
	return counts, nil
}
