package engagement

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tutu-network/tally/internal/domain"
	"github.com/tutu-network/tally/internal/infra/metrics"
)

// recentUnlockWindow bounds AchievementSummary.RecentUnlocks.
const recentUnlockWindow = 30 * 24 * time.Hour

// AchievementService evaluates the catalogue against the aggregate.
// Unlocks are permanent and each pays its bonus exactly once.
type AchievementService struct {
	*base
	definitions []domain.AchievementDef
	notify      *NotificationService
}

// CheckAndUnlock evaluates every locked achievement against current stats.
// Returns the newly unlocked achievements in catalogue order; calling it
// again without new activity returns nothing.
func (a *AchievementService) CheckAndUnlock(ctx context.Context) ([]domain.UnlockedAchievement, error) {
	unlocked, _, err := a.checkAndUnlock(ctx)
	return unlocked, err
}

// checkAndUnlock runs the evaluation in its own transaction.
func (a *AchievementService) checkAndUnlock(ctx context.Context) ([]domain.UnlockedAchievement, domain.UserStats, error) {
	now := a.now()
	var newly []domain.UnlockedAchievement
	var final domain.UserStats

	err := a.update(ctx, "check_achievements", func(tx domain.StoreTx) error {
		var err error
		newly, final, err = a.unlockTx(ctx, tx, now)
		return err
	})
	if err != nil {
		return nil, domain.UserStats{}, err
	}
	a.unlocked(ctx, newly, final)
	return newly, final, nil
}

// unlockTx evaluates the catalogue inside tx. Bonus points can push a points
// or level requirement over its threshold, so the catalogue is re-scanned
// until a pass unlocks nothing.
func (a *AchievementService) unlockTx(ctx context.Context, tx domain.StoreTx, now time.Time) ([]domain.UnlockedAchievement, domain.UserStats, error) {
	snap, records, err := loadSnapshot(ctx, tx)
	if err != nil {
		return nil, domain.UserStats{}, err
	}
	unlocked := make(map[string]bool, len(records))
	for _, r := range records {
		unlocked[r.Name] = true
	}

	var newly []domain.UnlockedAchievement
	for {
		progressed := false
		for _, def := range a.definitions {
			if unlocked[def.Name] || !Satisfied(def, snap) {
				continue
			}
			unlocked[def.Name] = true
			isNew, err := tx.UnlockAchievement(ctx, def.Name, now)
			if err != nil {
				return nil, domain.UserStats{}, err
			}
			if !isNew {
				continue
			}

			snap.TotalPoints += def.BonusPoints
			snap.AchievementsUnlocked++
			applyLevel(&snap.UserStats)
			if def.BonusPoints > 0 {
				if _, err := tx.AppendLedger(ctx, domain.LedgerEntry{
					Timestamp:   now,
					Kind:        domain.LedgerAchievement,
					Amount:      def.BonusPoints,
					Ref:         def.Name,
					Description: "achievement unlocked: " + def.Name,
					Balance:     snap.TotalPoints,
				}); err != nil {
					return nil, domain.UserStats{}, err
				}
			}
			newly = append(newly, domain.UnlockedAchievement{AchievementDef: def, UnlockedAt: now})
			progressed = true
		}
		if !progressed {
			break
		}
	}

	if len(newly) > 0 {
		if err := tx.SaveStats(ctx, snap.UserStats); err != nil {
			return nil, domain.UserStats{}, err
		}
	}
	return newly, snap.UserStats, nil
}

// unlocked runs the post-commit side effects of an achievement pass.
func (a *AchievementService) unlocked(ctx context.Context, newly []domain.UnlockedAchievement, final domain.UserStats) {
	for _, u := range newly {
		metrics.AchievementsUnlocked.Inc()
		metrics.PointsAwarded.WithLabelValues("achievement").Add(float64(u.BonusPoints))
		a.log.Info("achievement unlocked", zap.String("name", u.Name), zap.Int("bonus", u.BonusPoints))
		a.notify.Send(ctx, domain.Notification{
			Type:  domain.NotifyAchievement,
			Title: fmt.Sprintf("%s %s", u.Icon, u.Name),
			Body:  fmt.Sprintf("%s (+%d points)", u.Description, u.BonusPoints),
		})
	}
	if len(newly) > 0 {
		metrics.ObserveStats(final)
	}
}

func loadSnapshot(ctx context.Context, tx domain.StoreTx) (domain.AchievementStats, []domain.AchievementRecord, error) {
	var snap domain.AchievementStats
	stats, err := tx.Stats(ctx)
	if err != nil {
		return snap, nil, err
	}
	goalsMet, err := tx.DailyGoalsMet(ctx)
	if err != nil {
		return snap, nil, err
	}
	counts, err := tx.CompletionCounts(ctx)
	if err != nil {
		return snap, nil, err
	}
	records, err := tx.Achievements(ctx)
	if err != nil {
		return snap, nil, err
	}
	snap = domain.AchievementStats{UserStats: stats, DailyGoalsMet: goalsMet, Completions: counts}
	return snap, records, nil
}

// Progress returns every definition with its current value, in catalogue order.
func (a *AchievementService) Progress(ctx context.Context) ([]domain.AchievementProgress, error) {
	var out []domain.AchievementProgress
	err := a.view(ctx, "achievement_progress", func(tx domain.StoreTx) error {
		snap, records, err := loadSnapshot(ctx, tx)
		if err != nil {
			return err
		}
		byName := make(map[string]domain.AchievementRecord, len(records))
		for _, r := range records {
			byName[r.Name] = r
		}
		out = make([]domain.AchievementProgress, 0, len(a.definitions))
		for _, def := range a.definitions {
			out = append(out, progressFor(def, snap, byName[def.Name]))
		}
		return nil
	})
	return out, err
}

func progressFor(def domain.AchievementDef, snap domain.AchievementStats, rec domain.AchievementRecord) domain.AchievementProgress {
	current := RequirementValue(def.Requirement, snap)
	pct := 100.0
	if def.Value > 0 {
		pct = float64(current) / float64(def.Value) * 100.0
		if pct > 100.0 {
			pct = 100.0
		}
	}
	return domain.AchievementProgress{
		AchievementDef: def,
		Current:        current,
		Percentage:     pct,
		Completed:      current >= def.Value,
		Unlocked:       rec.Unlocked,
		UnlockedAt:     rec.UnlockedAt,
	}
}

// Summary returns unlock totals, recent unlocks and the closest locked milestone.
func (a *AchievementService) Summary(ctx context.Context) (domain.AchievementSummary, error) {
	progress, err := a.Progress(ctx)
	if err != nil {
		return domain.AchievementSummary{}, err
	}
	return summarize(progress, a.now()), nil
}

func summarize(progress []domain.AchievementProgress, now time.Time) domain.AchievementSummary {
	sum := domain.AchievementSummary{TotalPossible: len(progress)}
	cutoff := now.Add(-recentUnlockWindow)
	for i := range progress {
		p := progress[i]
		if p.Unlocked {
			sum.TotalUnlocked++
			if !p.UnlockedAt.Before(cutoff) {
				sum.RecentUnlocks++
			}
			continue
		}
		if p.Completed || p.Current <= 0 {
			continue
		}
		if sum.NextMilestone == nil || p.Percentage > sum.NextMilestone.Percentage {
			sum.NextMilestone = &progress[i]
		}
	}
	if sum.TotalPossible > 0 {
		sum.CompletionPct = float64(sum.TotalUnlocked) / float64(sum.TotalPossible) * 100.0
	}
	return sum
}

// Definitions returns all achievement definitions (for display).
func (a *AchievementService) Definitions() []domain.AchievementDef {
	return a.definitions
}

// RequirementValue extracts the statistic a requirement type watches.
func RequirementValue(req domain.RequirementType, s domain.AchievementStats) int {
	switch req {
	case domain.ReqTasksCompleted:
		return s.TotalTasksCompleted
	case domain.ReqStreakDays:
		return s.CurrentStreakDays
	case domain.ReqPointsEarned:
		return s.TotalPoints
	case domain.ReqDailyGoalsMet:
		return s.DailyGoalsMet
	case domain.ReqLevelReached:
		return s.Level
	case domain.ReqLateCompletions:
		return s.Completions.Late
	case domain.ReqEarlyCompletions:
		return s.Completions.Early
	case domain.ReqWeekendCompletion:
		return s.Completions.Weekend
	}
	return 0
}

// Satisfied reports whether the statistic meets the definition's value.
func Satisfied(def domain.AchievementDef, s domain.AchievementStats) bool {
	return RequirementValue(def.Requirement, s) >= def.Value
}

// ─── Achievement Catalogue ──────────────────────────────────────────────────
// Evaluation order is declaration order.

// AllAchievements returns the full achievement catalogue.
func AllAchievements() []domain.AchievementDef {
	return []domain.AchievementDef{
		// Tasks completed
		{Name: "First Steps", Description: "Complete your first task", Icon: "🎯", Requirement: domain.ReqTasksCompleted, Value: 1, BonusPoints: 10},
		{Name: "Getting Started", Description: "Complete 10 tasks", Icon: "🚀", Requirement: domain.ReqTasksCompleted, Value: 10, BonusPoints: 25},
		{Name: "Productive", Description: "Complete 50 tasks", Icon: "⚡", Requirement: domain.ReqTasksCompleted, Value: 50, BonusPoints: 50},
		{Name: "Century Club", Description: "Complete 100 tasks", Icon: "💯", Requirement: domain.ReqTasksCompleted, Value: 100, BonusPoints: 100},
		{Name: "Task Master", Description: "Complete 500 tasks", Icon: "👑", Requirement: domain.ReqTasksCompleted, Value: 500, BonusPoints: 250},
		{Name: "Legendary", Description: "Complete 1000 tasks", Icon: "🏆", Requirement: domain.ReqTasksCompleted, Value: 1000, BonusPoints: 500},
		{Name: "Unstoppable", Description: "Complete 2500 tasks", Icon: "🚀", Requirement: domain.ReqTasksCompleted, Value: 2500, BonusPoints: 1000},

		// Streaks
		{Name: "Day One", Description: "Maintain a 1-day streak", Icon: "📅", Requirement: domain.ReqStreakDays, Value: 1, BonusPoints: 5},
		{Name: "Consistency", Description: "Maintain a 3-day streak", Icon: "📅", Requirement: domain.ReqStreakDays, Value: 3, BonusPoints: 15},
		{Name: "Week Warrior", Description: "Maintain a 7-day streak", Icon: "🔥", Requirement: domain.ReqStreakDays, Value: 7, BonusPoints: 35},
		{Name: "Fortnight Force", Description: "Maintain a 14-day streak", Icon: "🌟", Requirement: domain.ReqStreakDays, Value: 14, BonusPoints: 70},
		{Name: "Month Champion", Description: "Maintain a 30-day streak", Icon: "🏆", Requirement: domain.ReqStreakDays, Value: 30, BonusPoints: 150},
		{Name: "Streak Master", Description: "Maintain a 60-day streak", Icon: "🔥", Requirement: domain.ReqStreakDays, Value: 60, BonusPoints: 300},
		{Name: "Century Streak", Description: "Maintain a 100-day streak", Icon: "💯", Requirement: domain.ReqStreakDays, Value: 100, BonusPoints: 500},

		// Points
		{Name: "Point Hunter", Description: "Earn 500 points", Icon: "💰", Requirement: domain.ReqPointsEarned, Value: 500, BonusPoints: 50},
		{Name: "Point Collector", Description: "Earn 1000 points", Icon: "💎", Requirement: domain.ReqPointsEarned, Value: 1000, BonusPoints: 100},
		{Name: "Point Hoarder", Description: "Earn 2500 points", Icon: "💎", Requirement: domain.ReqPointsEarned, Value: 2500, BonusPoints: 250},
		{Name: "Point Master", Description: "Earn 5000 points", Icon: "💍", Requirement: domain.ReqPointsEarned, Value: 5000, BonusPoints: 500},
		{Name: "Point Millionaire", Description: "Earn 10000 points", Icon: "👑", Requirement: domain.ReqPointsEarned, Value: 10000, BonusPoints: 1000},

		// Daily goals
		{Name: "Goal Getter", Description: "Hit your daily goal for the first time", Icon: "🎯", Requirement: domain.ReqDailyGoalsMet, Value: 1, BonusPoints: 20},
		{Name: "Consistent Achiever", Description: "Hit daily goal 7 times", Icon: "⭐", Requirement: domain.ReqDailyGoalsMet, Value: 7, BonusPoints: 50},
		{Name: "Goal Crusher", Description: "Hit daily goal 30 times", Icon: "💪", Requirement: domain.ReqDailyGoalsMet, Value: 30, BonusPoints: 150},
		{Name: "Goal Master", Description: "Hit daily goal 100 times", Icon: "🏆", Requirement: domain.ReqDailyGoalsMet, Value: 100, BonusPoints: 500},

		// Levels
		{Name: "Level Up", Description: "Reach level 5", Icon: "📈", Requirement: domain.ReqLevelReached, Value: 5, BonusPoints: 50},
		{Name: "High Achiever", Description: "Reach level 10", Icon: "🌟", Requirement: domain.ReqLevelReached, Value: 10, BonusPoints: 100},
		{Name: "Elite Status", Description: "Reach level 20", Icon: "👑", Requirement: domain.ReqLevelReached, Value: 20, BonusPoints: 250},

		// Special
		{Name: "Night Owl", Description: "Complete a task after 10 PM", Icon: "🦉", Requirement: domain.ReqLateCompletions, Value: 1, BonusPoints: 15},
		{Name: "Early Bird", Description: "Complete a task before 6 AM", Icon: "🐦", Requirement: domain.ReqEarlyCompletions, Value: 1, BonusPoints: 15},
		{Name: "Weekend Warrior", Description: "Complete 10 tasks on weekends", Icon: "🏃", Requirement: domain.ReqWeekendCompletion, Value: 10, BonusPoints: 50},
	}
}
