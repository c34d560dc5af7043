package domain

import "time"

// ─── Goal Types ─────────────────────────────────────────────────────────────

// Goals is the daily/weekly/monthly task-count triple stored on the aggregate.
type Goals struct {
	Daily   int `json:"daily"`
	Weekly  int `json:"weekly"`
	Monthly int `json:"monthly"`
}

// Goal floors used when suggesting lower targets.
const (
	MinDailyGoal   = 1
	MinWeeklyGoal  = 7
	MinMonthlyGoal = 30
)

// GoalUpdate is a partial goal change. Zero fields are left untouched.
type GoalUpdate struct {
	Daily   int `json:"daily,omitempty" validate:"omitempty,gte=1"`
	Weekly  int `json:"weekly,omitempty" validate:"omitempty,gte=1"`
	Monthly int `json:"monthly,omitempty" validate:"omitempty,gte=1"`
}

// IsEmpty reports whether the update changes nothing.
func (u GoalUpdate) IsEmpty() bool {
	return u.Daily == 0 && u.Weekly == 0 && u.Monthly == 0
}

// Apply returns g with the non-zero fields of u applied.
func (u GoalUpdate) Apply(g Goals) Goals {
	if u.Daily != 0 {
		g.Daily = u.Daily
	}
	if u.Weekly != 0 {
		g.Weekly = u.Weekly
	}
	if u.Monthly != 0 {
		g.Monthly = u.Monthly
	}
	return g
}

// GoalPeriod names a goal window.
type GoalPeriod string

const (
	PeriodDaily   GoalPeriod = "daily"
	PeriodWeekly  GoalPeriod = "weekly"
	PeriodMonthly GoalPeriod = "monthly"
)

// DailyProgress is today's view of the daily goal.
type DailyProgress struct {
	Date        time.Time `json:"date"`
	Completed   int       `json:"completed"`
	Goal        int       `json:"goal"`
	GoalMet     bool      `json:"goal_met"`
	BonusEarned int       `json:"bonus_earned"`
	Remaining   int       `json:"remaining"`
}

// PeriodProgress is the weekly or monthly view of a task-count goal.
type PeriodProgress struct {
	Period              GoalPeriod `json:"period"`
	Start               time.Time  `json:"start"`
	End                 time.Time  `json:"end"`
	Current             int        `json:"current"`
	Goal                int        `json:"goal"`
	Percentage          float64    `json:"percentage"`
	GoalMet             bool       `json:"goal_met"`
	DaysRemaining       int        `json:"days_remaining"`
	AverageNeededPerDay float64    `json:"average_needed_per_day"`
}

// GoalSuggestion is an advisory goal change. It is never applied automatically.
type GoalSuggestion struct {
	Period    GoalPeriod `json:"period"`
	Current   int        `json:"current"`
	Suggested int        `json:"suggested"`
	Average   float64    `json:"average"` // observed average per period
	Reason    string     `json:"reason"`
}

// ─── Tracked Goals ──────────────────────────────────────────────────────────

// GoalMetric is what a tracked goal measures.
type GoalMetric string

const (
	MetricTasksCompleted    GoalMetric = "tasks_completed"
	MetricPointsEarned      GoalMetric = "points_earned"
	MetricStreakDays        GoalMetric = "streak_days"
	MetricProductivityScore GoalMetric = "productivity_score"
)

// ValidGoalMetric reports whether m is a known metric.
func ValidGoalMetric(m GoalMetric) bool {
	switch m {
	case MetricTasksCompleted, MetricPointsEarned, MetricStreakDays, MetricProductivityScore:
		return true
	}
	return false
}

// TrackedGoal is a user-defined weekly or monthly target on a metric.
type TrackedGoal struct {
	ID          string     `json:"id"`
	Period      GoalPeriod `json:"period"`
	Metric      GoalMetric `json:"metric"`
	Target      int        `json:"target"`
	Current     int        `json:"current"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProgressPct returns completion percentage (0-100).
func (g TrackedGoal) ProgressPct() float64 {
	if g.Target <= 0 {
		return 0
	}
	pct := float64(g.Current) / float64(g.Target) * 100.0
	if pct > 100.0 {
		pct = 100.0
	}
	return pct
}

// Completed reports whether the target is reached.
func (g TrackedGoal) Completed() bool {
	return g.Current >= g.Target
}

// InPeriod reports whether day falls inside the goal window.
func (g TrackedGoal) InPeriod(day time.Time) bool {
	d := Day(day)
	return !d.Before(g.PeriodStart) && !d.After(g.PeriodEnd)
}

// DaysRemaining counts days left in the window including today.
func (g TrackedGoal) DaysRemaining(today time.Time) int {
	d := Day(today)
	if d.After(g.PeriodEnd) {
		return 0
	}
	return DaysBetween(d, g.PeriodEnd) + 1
}

// GoalsSummary aggregates the current tracked goals.
type GoalsSummary struct {
	TotalGoals      int           `json:"total_goals"`
	CompletedGoals  int           `json:"completed_goals"`
	InProgressGoals int           `json:"in_progress_goals"`
	CompletionRate  float64       `json:"completion_rate"`
	AverageProgress float64       `json:"average_progress"`
	Goals           []TrackedGoal `json:"goals"`
}

// ─── Status ─────────────────────────────────────────────────────────────────

// Status is the one-screen overview of the aggregate.
type Status struct {
	Stats         UserStats     `json:"stats"`
	LevelProgress float64       `json:"level_progress"`
	MaxLevel      bool          `json:"max_level"`
	Today         DailyActivity `json:"today"`
	Daily         DailyProgress `json:"daily"`
}
