package engagement

import "github.com/tutu-network/tally/internal/domain"

// ─── Level Calculator ───────────────────────────────────────────────────────

// levelThresholds[i] is the cumulative point total that reaches level i+2.
// Level 1 starts at 0. Past the last entry the level saturates.
var levelThresholds = []int{
	100, 250, 500, 1000, 1750, 2750, 4000, 5500, 7500, 10000,
	13000, 16500, 20500, 25000, 30000, 35500, 41500, 48000, 55000, 62500,
	70500, 79000, 88000, 97500, 107500, 118000, 129000, 140500, 152500, 165000,
}

// MaxLevel is the highest reachable level.
var MaxLevel = len(levelThresholds) + 1

// PointsForLevel returns the cumulative points at which level starts.
func PointsForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return levelThresholds[level-2]
}

// LevelFor returns the level for a point total and the points still needed
// for the next level. At MaxLevel the remaining points are 0.
func LevelFor(points int) (level, toNext int) {
	level = 1
	for _, t := range levelThresholds {
		if points < t {
			return level, t - points
		}
		level++
	}
	return MaxLevel, 0
}

// LevelProgressPct returns progress through the current level (0.0–100.0).
func LevelProgressPct(points int) float64 {
	level, _ := LevelFor(points)
	if level >= MaxLevel {
		return 100.0
	}
	start := PointsForLevel(level)
	span := PointsForLevel(level+1) - start
	if span <= 0 {
		return 100.0
	}
	progress := float64(points-start) / float64(span) * 100.0
	if progress < 0 {
		progress = 0
	}
	return progress
}

// applyLevel recomputes the derived level fields from TotalPoints.
func applyLevel(s *domain.UserStats) {
	s.Level, s.PointsToNextLevel = LevelFor(s.TotalPoints)
}
