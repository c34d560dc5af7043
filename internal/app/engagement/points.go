package engagement

import (
	"strings"

	"github.com/tutu-network/tally/internal/domain"
)

// ─── Point Table ────────────────────────────────────────────────────────────
// All bonus math is integer percent arithmetic, rounded down.

const (
	// DailyGoalBonusPercent is paid on the completion that crosses the daily goal.
	DailyGoalBonusPercent = 50
	// CategoryBonusPoints is added for bonus-eligible categories.
	CategoryBonusPoints = 1
	// OverdueRecoveryPoints is added for finishing an overdue task.
	OverdueRecoveryPoints = 1
)

var basePoints = map[domain.TaskSize]int{
	domain.SizeSmall:  1,
	domain.SizeMedium: 3,
	domain.SizeLarge:  5,
}

// DefaultBonusCategories are the category names that earn CategoryBonusPoints.
var DefaultBonusCategories = []string{"Work", "Finance", "Health"}

// BasePoints returns the base value of a task size.
// Unknown sizes are worth the same as medium.
func BasePoints(size domain.TaskSize) int {
	if p, ok := basePoints[size]; ok {
		return p
	}
	return basePoints[domain.SizeMedium]
}

// StreakTier is one step of the streak multiplier table.
type StreakTier struct {
	Days    int // minimum streak length
	Percent int // bonus as a percent of base points
}

// streakTiers is ordered from the highest threshold down.
var streakTiers = []StreakTier{
	{Days: 100, Percent: 100},
	{Days: 60, Percent: 80},
	{Days: 30, Percent: 60},
	{Days: 14, Percent: 40},
	{Days: 7, Percent: 25},
	{Days: 3, Percent: 10},
}

// StreakTiers returns a copy of the multiplier table, highest first.
func StreakTiers() []StreakTier {
	out := make([]StreakTier, len(streakTiers))
	copy(out, streakTiers)
	return out
}

// StreakBonusPercent returns the percent of the highest tier reached by streak.
func StreakBonusPercent(streak int) int {
	for _, t := range streakTiers {
		if streak >= t.Days {
			return t.Percent
		}
	}
	return 0
}

// StreakBonus returns floor(base * percent / 100) for the streak's tier.
func StreakBonus(base, streak int) int {
	return base * StreakBonusPercent(streak) / 100
}

// DailyGoalBonus returns floor(base * 50 / 100).
func DailyGoalBonus(base int) int {
	return base * DailyGoalBonusPercent / 100
}

// IsBonusCategory reports whether category is in list, ignoring case.
func IsBonusCategory(category string, list []string) bool {
	category = strings.TrimSpace(category)
	if category == "" {
		return false
	}
	for _, c := range list {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}
