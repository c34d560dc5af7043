// Package domain holds the pure types of the tally scoring engine.
// Task completions turn into points, levels, streaks, goal progress,
// and achievements. Nothing here touches storage or the network.
package domain

import (
	"strings"
	"time"
)

// ─── Calendar Days ──────────────────────────────────────────────────────────

// DateLayout is the wire and storage format for calendar days.
const DateLayout = "2006-01-02"

// Day returns midnight UTC of the calendar date t falls on in its own location.
// All day arithmetic in the engine works on values returned by Day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from a to b (b - a).
// Computed on Unix seconds so spans beyond time.Duration's range stay exact.
func DaysBetween(a, b time.Time) int {
	return int((Day(b).Unix() - Day(a).Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// ParseDay parses a YYYY-MM-DD string into a Day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// ─── Completion Events ──────────────────────────────────────────────────────

// TaskSize categorizes a task for base point purposes.
type TaskSize string

const (
	SizeSmall  TaskSize = "small"
	SizeMedium TaskSize = "medium"
	SizeLarge  TaskSize = "large"
)

// ParseTaskSize normalizes user input. Unknown sizes map to medium.
func ParseTaskSize(s string) TaskSize {
	switch TaskSize(strings.ToLower(strings.TrimSpace(s))) {
	case SizeSmall:
		return SizeSmall
	case SizeLarge:
		return SizeLarge
	default:
		return SizeMedium
	}
}

// CompletionEvent is produced by the task subsystem when a task is completed.
// It is consumed once by the scoring engine and never stored as-is.
type CompletionEvent struct {
	TaskID        string    `json:"task_id,omitempty"`
	Size          TaskSize  `json:"size"`
	Category      string    `json:"category,omitempty"`
	CategoryBonus bool      `json:"category_bonus"` // category is bonus eligible
	Overdue       bool      `json:"overdue"`
	Date          time.Time `json:"date"`         // calendar day of completion; zero = today
	CompletedAt   time.Time `json:"completed_at"` // wall clock; zero = now
}

// PointBreakdown itemizes the points of a single completion.
type PointBreakdown struct {
	Base           int `json:"base"`
	StreakBonus    int `json:"streak_bonus"`
	DailyGoalBonus int `json:"daily_goal_bonus"`
	CategoryBonus  int `json:"category_bonus"`
	OverdueBonus   int `json:"overdue_bonus"`
}

// Bonus returns the sum of all bonus parts.
func (p PointBreakdown) Bonus() int {
	return p.StreakBonus + p.DailyGoalBonus + p.CategoryBonus + p.OverdueBonus
}

// Total returns base plus bonuses.
func (p PointBreakdown) Total() int {
	return p.Base + p.Bonus()
}

// CompletionResult is returned to the caller of Complete.
type CompletionResult struct {
	ID               string         `json:"id"`
	Points           PointBreakdown `json:"points"`
	BasePoints       int            `json:"base_points"`
	BonusPoints      int            `json:"bonus_points"`
	TotalPoints      int            `json:"total_points"`
	Streak           int            `json:"streak"`
	Level            int            `json:"level"`
	LeveledUp        bool           `json:"leveled_up"`
	DailyGoalMet     bool           `json:"daily_goal_met"`
	DailyGoalCrossed bool           `json:"daily_goal_crossed"`
	Stats            UserStats      `json:"stats"`
}

// CompletionRecord is the persisted log line of a completion.
// Analytics reads it for category and time-of-day distributions.
type CompletionRecord struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id,omitempty"`
	Day         time.Time `json:"day"`
	CompletedAt time.Time `json:"completed_at"`
	Size        TaskSize  `json:"size"`
	Category    string    `json:"category,omitempty"`
	Points      int       `json:"points"`
}

// CompletionCounts aggregates the completion log for special achievements.
type CompletionCounts struct {
	Late    int `json:"late"`    // completed at or after 22:00
	Early   int `json:"early"`   // completed before 06:00
	Weekend int `json:"weekend"` // completed on Saturday or Sunday
}

// ─── User Aggregate ─────────────────────────────────────────────────────────

// Default goal values for a fresh aggregate.
const (
	DefaultDailyGoal   = 3
	DefaultWeeklyGoal  = 20
	DefaultMonthlyGoal = 80
)

// UserStats is the singleton aggregate. Exactly one row exists.
// Level and PointsToNextLevel are derived from TotalPoints.
type UserStats struct {
	TotalPoints          int       `json:"total_points"`
	Level                int       `json:"level"`
	PointsToNextLevel    int       `json:"points_to_next_level"`
	TotalTasksCompleted  int       `json:"total_tasks_completed"`
	TotalTasksCreated    int       `json:"total_tasks_created"`
	CurrentStreakDays    int       `json:"current_streak_days"`
	LongestStreakDays    int       `json:"longest_streak_days"`
	LastCompletionDate   time.Time `json:"last_completion_date"` // zero = never
	DailyGoal            int       `json:"daily_goal"`
	WeeklyGoal           int       `json:"weekly_goal"`
	MonthlyGoal          int       `json:"monthly_goal"`
	AchievementsUnlocked int       `json:"achievements_unlocked"`
}

// DefaultUserStats returns the aggregate created at first run.
func DefaultUserStats() UserStats {
	return UserStats{
		Level:             1,
		PointsToNextLevel: 100,
		DailyGoal:         DefaultDailyGoal,
		WeeklyGoal:        DefaultWeeklyGoal,
		MonthlyGoal:       DefaultMonthlyGoal,
	}
}

// HasCompleted reports whether any completion was ever recorded.
func (s UserStats) HasCompleted() bool {
	return !s.LastCompletionDate.IsZero()
}

// Goals returns the configured goal triple.
func (s UserStats) Goals() Goals {
	return Goals{Daily: s.DailyGoal, Weekly: s.WeeklyGoal, Monthly: s.MonthlyGoal}
}

// DailyActivity is the per-date record. Total equals the sum of its parts.
type DailyActivity struct {
	Date                  time.Time `json:"date"`
	TasksCompleted        int       `json:"tasks_completed"`
	TasksCreated          int       `json:"tasks_created"`
	BasePointsEarned      int       `json:"base_points_earned"`
	StreakBonusEarned     int       `json:"streak_bonus_earned"`
	DailyGoalBonusEarned  int       `json:"daily_goal_bonus_earned"`
	ExtraBonusEarned      int       `json:"extra_bonus_earned"` // category + overdue recovery
	TotalPointsEarned     int       `json:"total_points_earned"`
	DailyGoalMet          bool      `json:"daily_goal_met"`
	StreakActive          bool      `json:"streak_active"`
	OverduePenaltyApplied int       `json:"overdue_penalty_applied"`
}

// NewDailyActivity returns an empty record for day.
func NewDailyActivity(day time.Time) DailyActivity {
	return DailyActivity{Date: Day(day)}
}

// ─── Achievements ───────────────────────────────────────────────────────────

// RequirementType names the aggregate statistic an achievement watches.
type RequirementType string

const (
	ReqTasksCompleted    RequirementType = "tasks_completed"
	ReqStreakDays        RequirementType = "streak_days"
	ReqPointsEarned      RequirementType = "points_earned"
	ReqDailyGoalsMet     RequirementType = "daily_goals_met"
	ReqLevelReached      RequirementType = "level_reached"
	ReqLateCompletions   RequirementType = "late_completions"
	ReqEarlyCompletions  RequirementType = "early_completions"
	ReqWeekendCompletion RequirementType = "weekend_completions"
)

// AchievementDef is one entry of the static catalogue.
type AchievementDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
	Requirement RequirementType `json:"requirement_type"`
	Value       int             `json:"requirement_value"`
	BonusPoints int             `json:"bonus_points"`
}

// AchievementRecord is the persisted unlock state for one definition.
// Once Unlocked is true it never goes back.
type AchievementRecord struct {
	Name       string    `json:"name"`
	Unlocked   bool      `json:"is_unlocked"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// UnlockedAchievement is a definition together with its unlock time.
type UnlockedAchievement struct {
	AchievementDef
	UnlockedAt time.Time `json:"unlocked_at"`
}

// AchievementProgress joins a definition with the current statistic.
type AchievementProgress struct {
	AchievementDef
	Current    int       `json:"current"`
	Percentage float64   `json:"percentage"`
	Completed  bool      `json:"completed"`
	Unlocked   bool      `json:"unlocked"`
	UnlockedAt time.Time `json:"unlocked_at,omitempty"`
}

// AchievementSummary is the dashboard view of the catalogue.
type AchievementSummary struct {
	TotalUnlocked int                  `json:"total_unlocked"`
	TotalPossible int                  `json:"total_possible"`
	CompletionPct float64              `json:"completion_percentage"`
	RecentUnlocks int                  `json:"recent_unlocks"`
	NextMilestone *AchievementProgress `json:"next_milestone,omitempty"`
}

// AchievementStats is the snapshot fed to requirement checks.
type AchievementStats struct {
	UserStats
	DailyGoalsMet int
	Completions   CompletionCounts
}

// ─── Penalties ──────────────────────────────────────────────────────────────

// MaxPenaltyPerTask caps the per-task deduction.
const MaxPenaltyPerTask = 5

// OverdueTask is the external view of an incomplete task with a due date.
type OverdueTask struct {
	ID        string    `json:"id" validate:"required"`
	DueDate   time.Time `json:"due_date" validate:"required"`
	Completed bool      `json:"completed"`
}

// AppliedPenalty records the penalty for one task.
type AppliedPenalty struct {
	TaskID      string `json:"task_id"`
	DaysOverdue int    `json:"days_overdue"`
	Points      int    `json:"points"`
}

// PenaltyReport is the outcome of one penalty pass.
// Total is the nominal penalty; Deducted is what actually left total_points
// after clamping at zero.
type PenaltyReport struct {
	Total    int              `json:"total"`
	Deducted int              `json:"deducted"`
	Applied  []AppliedPenalty `json:"applied"`
	Skipped  int              `json:"skipped"` // already penalized today, completed, or not yet due
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

// LedgerKind categorizes a points movement.
type LedgerKind string

const (
	LedgerCompletion  LedgerKind = "completion"
	LedgerPenalty     LedgerKind = "penalty"
	LedgerAchievement LedgerKind = "achievement"
)

// LedgerEntry is one signed movement of total_points.
// SUM(amount) == user_stats.total_points is an invariant.
type LedgerEntry struct {
	ID          int64      `json:"id"`
	Timestamp   time.Time  `json:"timestamp"`
	Kind        LedgerKind `json:"kind"`
	Amount      int        `json:"amount"`
	Ref         string     `json:"ref,omitempty"`
	Description string     `json:"description,omitempty"`
	Balance     int        `json:"balance"`
}

// ─── Notification Types ─────────────────────────────────────────────────────

// NotificationType categorizes notifications.
type NotificationType string

const (
	NotifyAchievement NotificationType = "achievement"
	NotifyLevelUp     NotificationType = "level_up"
	NotifyDailyGoal   NotificationType = "daily_goal"
)

// Notification is a user-facing message.
type Notification struct {
	ID        int64            `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
	Shown     bool             `json:"shown"`
}

// NotificationPolicy governs how often notifications are created.
// Empty quiet hours disable the quiet window.
type NotificationPolicy struct {
	MaxPerDay  int    `json:"max_per_day" toml:"max_per_day"`
	QuietStart string `json:"quiet_start" toml:"quiet_start"` // "22:00"
	QuietEnd   string `json:"quiet_end" toml:"quiet_end"`     // "08:00"
}

// DefaultNotificationPolicy returns the default policy.
func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{MaxPerDay: 5}
}
