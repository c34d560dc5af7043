package engagement

import (
	"time"

	"github.com/tutu-network/tally/internal/domain"
)

// ─── Streak Tracker ─────────────────────────────────────────────────────────
// A streak counts consecutive calendar days with at least one completion.

// NextStreak returns the streak length after a completion on current,
// given the previous completion date (zero = never) and the stored streak.
//
//	never completed        → 1
//	same day               → unchanged
//	next day               → +1
//	any other gap of <= 1  → unchanged
//	gap of 2 days or more  → 1
func NextStreak(last, current time.Time, streak int) int {
	if last.IsZero() {
		return 1
	}
	gap := domain.DaysBetween(last, current)
	switch {
	case gap == 0:
		return streak
	case gap == 1:
		return streak + 1
	case gap <= 1:
		return streak
	default:
		return 1
	}
}

// ApplyStreak advances the streak fields of s for a completion on day.
// Keeps LongestStreakDays >= CurrentStreakDays.
func ApplyStreak(s *domain.UserStats, day time.Time) {
	s.CurrentStreakDays = NextStreak(s.LastCompletionDate, day, s.CurrentStreakDays)
	if s.CurrentStreakDays > s.LongestStreakDays {
		s.LongestStreakDays = s.CurrentStreakDays
	}
	s.LastCompletionDate = domain.Day(day)
}

// LiveStreak returns the stored streak if it is still unbroken on day
// (last completion today or yesterday), otherwise 0.
func LiveStreak(s domain.UserStats, day time.Time) int {
	if !s.HasCompleted() {
		return 0
	}
	if domain.DaysBetween(s.LastCompletionDate, day) <= 1 {
		return s.CurrentStreakDays
	}
	return 0
}
