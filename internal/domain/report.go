package domain

import "time"

// ─── Analytics Report ───────────────────────────────────────────────────────
// Derived, read-only output of the analytics reporter.

// Trend classifies the recent direction of daily task counts.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// Report summarizes an inclusive date range.
type Report struct {
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Days   int       `json:"days"`
	Totals Totals    `json:"totals"`

	AvgTasksPerDay  float64 `json:"avg_tasks_per_day"`
	AvgPointsPerDay float64 `json:"avg_points_per_day"`
	Trend           Trend   `json:"trend"`
	TrendSlope      float64 `json:"trend_slope"`

	Categories   CategoryBreakdown `json:"categories"`
	TimeOfDay    CompletionPattern `json:"time_of_day"`
	Goals        GoalAchievement   `json:"goals"`
	Weekly       WeeklyPattern     `json:"weekly"`
	Productivity ProductivityScore `json:"productivity"`
	Insights     []string          `json:"insights"`
}

// Totals are plain sums over the range.
type Totals struct {
	TasksCompleted    int `json:"tasks_completed"`
	TasksCreated      int `json:"tasks_created"`
	BasePoints        int `json:"base_points"`
	StreakBonus       int `json:"streak_bonus"`
	DailyGoalBonus    int `json:"daily_goal_bonus"`
	ExtraBonus        int `json:"extra_bonus"`
	PointsEarned      int `json:"points_earned"`
	PenaltiesIncurred int `json:"penalties_incurred"`
	ActiveDays        int `json:"active_days"`
}

// CategoryStat is one row of the category distribution.
type CategoryStat struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Points     int     `json:"points"`
}

// CategoryBreakdown is the category distribution of completions.
type CategoryBreakdown struct {
	Stats          []CategoryStat `json:"stats"`
	MostProductive string         `json:"most_productive,omitempty"` // highest points
	MostFrequent   string         `json:"most_frequent,omitempty"`   // highest count
}

// CompletionPattern is the time-of-day and weekday distribution.
type CompletionPattern struct {
	ByHour      [24]int `json:"by_hour"`
	ByWeekday   [7]int  `json:"by_weekday"` // index = time.Weekday
	PeakHour    int     `json:"peak_hour"`  // -1 when no completions
	PeakWeekday string  `json:"peak_weekday,omitempty"`
	AverageHour float64 `json:"average_hour"`
}

// GoalAchievement summarizes daily-goal hits inside the range.
type GoalAchievement struct {
	DaysMet       int     `json:"days_met"`
	Rate          float64 `json:"rate"` // percent of days in range
	BestStreak    int     `json:"best_streak"`
	AverageStreak float64 `json:"average_streak"`
	CurrentStreak int     `json:"current_streak"` // run ending on the last day of the range
}

// WeeklyPattern averages task counts per weekday.
type WeeklyPattern struct {
	Averages    [7]float64 `json:"averages"` // index = time.Weekday
	BestDay     string     `json:"best_day,omitempty"`
	Consistency int        `json:"consistency"` // percent of active days
}

// ProductivityScore is the 0-100 composite, four parts of 25 each.
type ProductivityScore struct {
	Consistency float64 `json:"consistency"`
	Volume      float64 `json:"volume"`
	Goals       float64 `json:"goals"`
	Trend       float64 `json:"trend"`
	Total       float64 `json:"total"`
}
