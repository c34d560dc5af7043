package domain

import (
	"context"
	"time"
)

// ─── Store Interfaces ───────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Store is the persistence boundary for every aggregate the engine owns.
// Implemented by infra/sqlite.DB and infra/postgres.Store.
type Store interface {
	// Update runs fn inside one transaction. Any error from fn or from
	// commit rolls back everything fn wrote.
	Update(ctx context.Context, fn func(tx StoreTx) error) error

	// View runs fn inside a transaction that is always rolled back.
	View(ctx context.Context, fn func(tx StoreTx) error) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}

// StoreTx is the set of operations available inside a transaction.
type StoreTx interface {
	// Stats returns the aggregate, creating the default row on first use.
	// Writers holding the transaction have exclusive access to the row.
	Stats(ctx context.Context) (UserStats, error)
	SaveStats(ctx context.Context, s UserStats) error

	// Activity returns the record for day, or nil if none exists.
	Activity(ctx context.Context, day time.Time) (*DailyActivity, error)
	SaveActivity(ctx context.Context, a DailyActivity) error
	// ActivityRange returns stored records with from <= date <= to, oldest first.
	ActivityRange(ctx context.Context, from, to time.Time) ([]DailyActivity, error)
	// DailyGoalsMet counts records with daily_goal_met = true.
	DailyGoalsMet(ctx context.Context) (int, error)

	InsertCompletion(ctx context.Context, c CompletionRecord) error
	Completions(ctx context.Context, from, to time.Time) ([]CompletionRecord, error)
	CompletionCounts(ctx context.Context) (CompletionCounts, error)

	Achievements(ctx context.Context) ([]AchievementRecord, error)
	// UnlockAchievement returns false if the name was already unlocked.
	UnlockAchievement(ctx context.Context, name string, at time.Time) (bool, error)

	// MarkPenalty records a penalty for (taskID, day).
	// Returns false if one was already recorded.
	MarkPenalty(ctx context.Context, taskID string, day time.Time, points int) (bool, error)

	AppendLedger(ctx context.Context, e LedgerEntry) (int64, error)
	LedgerEntries(ctx context.Context, limit int) ([]LedgerEntry, error)
	LedgerSum(ctx context.Context) (int, error)

	InsertGoal(ctx context.Context, g TrackedGoal) error
	DeactivateGoals(ctx context.Context, period GoalPeriod, metric GoalMetric) error
	ActiveGoals(ctx context.Context) ([]TrackedGoal, error)
	UpdateGoalProgress(ctx context.Context, id string, current int) error
	// ExpireGoals deactivates active goals whose period ended before day.
	ExpireGoals(ctx context.Context, day time.Time) (int, error)
	DeleteGoal(ctx context.Context, id string) error

	InsertNotification(ctx context.Context, n Notification) (int64, error)
	PendingNotifications(ctx context.Context, limit int) ([]Notification, error)
	MarkNotificationShown(ctx context.Context, id int64) error
	// NotificationCount counts notifications created in [from, to).
	NotificationCount(ctx context.Context, from, to time.Time) (int, error)
}
