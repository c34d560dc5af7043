package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutu-network/tally/internal/domain"
	"github.com/tutu-network/tally/internal/infra/metrics"
)

// ─── Scoring Engine ─────────────────────────────────────────────────────────

// ScoringService turns completion events into points and keeps the
// aggregate, the day record, the completion log and the ledger in step.
type ScoringService struct {
	*base
	bonusCategories []string
	notify          *NotificationService
}

// Complete scores one task completion.
//
// Validation happens before anything is written: a date after today is
// ErrFutureCompletion, a date before the last recorded completion is
// ErrBackdatedCompletion. On any error no state changes.
func (s *ScoringService) Complete(ctx context.Context, ev domain.CompletionEvent) (domain.CompletionResult, error) {
	c, err := s.prepare(ev)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	var res domain.CompletionResult
	err = s.update(ctx, "complete", func(tx domain.StoreTx) error {
		var err error
		res, err = s.scoreTx(ctx, tx, c)
		return err
	})
	if err != nil {
		return domain.CompletionResult{}, err
	}
	s.completed(ctx, res, c.size)
	return res, nil
}

// completion is a validated event ready to be scored.
type completion struct {
	ev            domain.CompletionEvent
	day           time.Time
	completedAt   time.Time
	size          domain.TaskSize
	categoryBonus bool
}

// prepare resolves the completion day and time. An explicit CompletedAt
// must fall on the event's Date; with no Date it picks the day.
func (s *ScoringService) prepare(ev domain.CompletionEvent) (completion, error) {
	now := s.now()
	today := domain.Day(now)
	day := today
	switch {
	case !ev.Date.IsZero():
		day = domain.Day(ev.Date)
		if !ev.CompletedAt.IsZero() && !domain.Day(ev.CompletedAt).Equal(day) {
			return completion{}, domain.ErrCompletionTimeDay
		}
	case !ev.CompletedAt.IsZero():
		day = domain.Day(ev.CompletedAt)
	}
	if day.After(today) {
		return completion{}, domain.ErrFutureCompletion
	}
	completedAt := ev.CompletedAt
	if completedAt.IsZero() {
		completedAt = now
		if !day.Equal(today) {
			// Keep the wall-clock time but move it onto the reported day.
			completedAt = time.Date(day.Year(), day.Month(), day.Day(),
				now.Hour(), now.Minute(), now.Second(), 0, now.Location())
		}
	}
	return completion{
		ev:            ev,
		day:           day,
		completedAt:   completedAt,
		size:          domain.ParseTaskSize(string(ev.Size)),
		categoryBonus: ev.CategoryBonus || IsBonusCategory(ev.Category, s.bonusCategories),
	}, nil
}

// scoreTx applies one completion inside tx: aggregate, day record,
// completion log, ledger entry and streak.
func (s *ScoringService) scoreTx(ctx context.Context, tx domain.StoreTx, c completion) (domain.CompletionResult, error) {
	day := c.day
	stats, err := tx.Stats(ctx)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	if stats.HasCompleted() && day.Before(stats.LastCompletionDate) {
		return domain.CompletionResult{}, domain.ErrBackdatedCompletion
	}

	act, err := tx.Activity(ctx, day)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	if act == nil {
		fresh := domain.NewDailyActivity(day)
		act = &fresh
	}

	bp := BasePoints(c.size)
	tasksToday := act.TasksCompleted + 1
	goalMet, goalBonus := DailyProgress(tasksToday, stats.DailyGoal, act.DailyGoalMet, bp)
	crossed := goalMet && !act.DailyGoalMet

	// A streak already broken by a gap pays no bonus.
	pts := domain.PointBreakdown{
		Base:           bp,
		StreakBonus:    StreakBonus(bp, LiveStreak(stats, day)),
		DailyGoalBonus: goalBonus,
	}
	if c.categoryBonus {
		pts.CategoryBonus = CategoryBonusPoints
	}
	if c.ev.Overdue {
		pts.OverdueBonus = OverdueRecoveryPoints
	}
	total := pts.Total()

	oldLevel := stats.Level
	stats.TotalTasksCompleted++
	stats.TotalPoints += total
	applyLevel(&stats)
	ApplyStreak(&stats, day)

	act.TasksCompleted = tasksToday
	act.BasePointsEarned += pts.Base
	act.StreakBonusEarned += pts.StreakBonus
	act.DailyGoalBonusEarned += pts.DailyGoalBonus
	act.ExtraBonusEarned += pts.CategoryBonus + pts.OverdueBonus
	act.TotalPointsEarned += total
	act.DailyGoalMet = goalMet
	act.StreakActive = true

	rec := domain.CompletionRecord{
		ID:          uuid.NewString(),
		TaskID:      c.ev.TaskID,
		Day:         day,
		CompletedAt: c.completedAt,
		Size:        c.size,
		Category:    c.ev.Category,
		Points:      total,
	}

	if err := tx.SaveStats(ctx, stats); err != nil {
		return domain.CompletionResult{}, err
	}
	if err := tx.SaveActivity(ctx, *act); err != nil {
		return domain.CompletionResult{}, err
	}
	if err := tx.InsertCompletion(ctx, rec); err != nil {
		return domain.CompletionResult{}, err
	}
	if _, err := tx.AppendLedger(ctx, domain.LedgerEntry{
		Timestamp:   c.completedAt,
		Kind:        domain.LedgerCompletion,
		Amount:      total,
		Ref:         rec.ID,
		Description: completionDescription(c.ev.TaskID, c.size),
		Balance:     stats.TotalPoints,
	}); err != nil {
		return domain.CompletionResult{}, err
	}

	return domain.CompletionResult{
		ID:               rec.ID,
		Points:           pts,
		BasePoints:       pts.Base,
		BonusPoints:      pts.Bonus(),
		TotalPoints:      total,
		Streak:           stats.CurrentStreakDays,
		Level:            stats.Level,
		LeveledUp:        stats.Level > oldLevel,
		DailyGoalMet:     goalMet,
		DailyGoalCrossed: crossed,
		Stats:            stats,
	}, nil
}

// completed runs the post-commit side effects of a completion.
func (s *ScoringService) completed(ctx context.Context, res domain.CompletionResult, size domain.TaskSize) {
	s.record(res, size)
	s.log.Info("task completed",
		zap.String("id", res.ID),
		zap.String("size", string(size)),
		zap.Int("points", res.TotalPoints),
		zap.Int("streak", res.Streak),
		zap.Int("level", res.Level),
	)

	if res.LeveledUp {
		s.notify.Send(ctx, domain.Notification{
			Type:  domain.NotifyLevelUp,
			Title: fmt.Sprintf("Level %d reached", res.Level),
			Body:  fmt.Sprintf("You now have %d points.", res.Stats.TotalPoints),
		})
	}
	if res.DailyGoalCrossed {
		s.notify.Send(ctx, domain.Notification{
			Type:  domain.NotifyDailyGoal,
			Title: "Daily goal met",
			Body:  fmt.Sprintf("%d tasks done today. Bonus: +%d points.", res.Stats.DailyGoal, res.Points.DailyGoalBonus),
		})
	}
}

func (s *ScoringService) record(res domain.CompletionResult, size domain.TaskSize) {
	metrics.CompletionsTotal.WithLabelValues(string(size)).Inc()
	metrics.PointsAwarded.WithLabelValues("base").Add(float64(res.Points.Base))
	metrics.PointsAwarded.WithLabelValues("streak").Add(float64(res.Points.StreakBonus))
	metrics.PointsAwarded.WithLabelValues("daily_goal").Add(float64(res.Points.DailyGoalBonus))
	metrics.PointsAwarded.WithLabelValues("category").Add(float64(res.Points.CategoryBonus))
	metrics.PointsAwarded.WithLabelValues("overdue").Add(float64(res.Points.OverdueBonus))
	metrics.ObserveStats(res.Stats)
}

func completionDescription(taskID string, size domain.TaskSize) string {
	if taskID == "" {
		return string(size) + " task"
	}
	return fmt.Sprintf("%s task %s", size, taskID)
}

// RecordCreated counts a newly created task on day (zero = today).
func (s *ScoringService) RecordCreated(ctx context.Context, day time.Time) (domain.DailyActivity, error) {
	today := s.today()
	if day.IsZero() {
		day = today
	}
	day = domain.Day(day)
	if day.After(today) {
		return domain.DailyActivity{}, domain.ErrFutureCompletion
	}

	var out domain.DailyActivity
	err := s.update(ctx, "record_created", func(tx domain.StoreTx) error {
		stats, err := tx.Stats(ctx)
		if err != nil {
			return err
		}
		act, err := tx.Activity(ctx, day)
		if err != nil {
			return err
		}
		if act == nil {
			fresh := domain.NewDailyActivity(day)
			act = &fresh
		}
		stats.TotalTasksCreated++
		act.TasksCreated++
		if err := tx.SaveStats(ctx, stats); err != nil {
			return err
		}
		if err := tx.SaveActivity(ctx, *act); err != nil {
			return err
		}
		out = *act
		return nil
	})
	return out, err
}

// Stats returns the current aggregate.
func (s *ScoringService) Stats(ctx context.Context) (domain.UserStats, error) {
	var stats domain.UserStats
	err := s.view(ctx, "stats", func(tx domain.StoreTx) error {
		var err error
		stats, err = tx.Stats(ctx)
		return err
	})
	return stats, err
}

// Status returns the aggregate with today's activity and level progress.
func (s *ScoringService) Status(ctx context.Context) (domain.Status, error) {
	today := s.today()
	var st domain.Status
	err := s.view(ctx, "status", func(tx domain.StoreTx) error {
		stats, err := tx.Stats(ctx)
		if err != nil {
			return err
		}
		act, err := tx.Activity(ctx, today)
		if err != nil {
			return err
		}
		if act == nil {
			fresh := domain.NewDailyActivity(today)
			act = &fresh
		}
		st = domain.Status{
			Stats:         stats,
			LevelProgress: LevelProgressPct(stats.TotalPoints),
			MaxLevel:      stats.Level >= MaxLevel,
			Today:         *act,
			Daily:         dailyView(*act, stats.DailyGoal),
		}
		return nil
	})
	return st, err
}
