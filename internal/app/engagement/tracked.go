package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutu-network/tally/internal/domain"
)

// ─── Tracked Goals ──────────────────────────────────────────────────────────
// A tracked goal targets one metric over the current week or month.
// Goals expire when their window closes; at most one active goal exists
// per (period, metric).

// TrackGoal creates a goal for the window containing today, replacing any
// active goal with the same period and metric.
func (g *GoalService) TrackGoal(ctx context.Context, period domain.GoalPeriod, metric domain.GoalMetric, target int) (domain.TrackedGoal, error) {
	if period != domain.PeriodWeekly && period != domain.PeriodMonthly {
		return domain.TrackedGoal{}, domain.ErrInvalidGoalPeriod
	}
	if !domain.ValidGoalMetric(metric) {
		return domain.TrackedGoal{}, fmt.Errorf("%w: %q", domain.ErrInvalidGoalMetric, metric)
	}
	if target < 1 {
		return domain.TrackedGoal{}, domain.ErrInvalidGoal
	}

	today := g.today()
	start, end, err := PeriodBounds(period, today)
	if err != nil {
		return domain.TrackedGoal{}, err
	}
	goal := domain.TrackedGoal{
		ID:          uuid.NewString(),
		Period:      period,
		Metric:      metric,
		Target:      target,
		PeriodStart: start,
		PeriodEnd:   end,
		Active:      true,
		CreatedAt:   g.now(),
	}

	err = g.update(ctx, "track_goal", func(tx domain.StoreTx) error {
		// Reading the aggregate takes the writer lock before the swap.
		if _, err := tx.Stats(ctx); err != nil {
			return err
		}
		if err := tx.DeactivateGoals(ctx, period, metric); err != nil {
			return err
		}
		current, err := metricValue(ctx, tx, goal, today)
		if err != nil {
			return err
		}
		goal.Current = current
		return tx.InsertGoal(ctx, goal)
	})
	if err != nil {
		return domain.TrackedGoal{}, err
	}
	g.log.Info("goal tracked",
		zap.String("id", goal.ID),
		zap.String("period", string(period)),
		zap.String("metric", string(metric)),
		zap.Int("target", target),
	)
	return goal, nil
}

// TrackedGoals expires finished windows, refreshes progress and returns
// the goals active today.
func (g *GoalService) TrackedGoals(ctx context.Context) ([]domain.TrackedGoal, error) {
	today := g.today()
	var out []domain.TrackedGoal
	err := g.update(ctx, "refresh_goals", func(tx domain.StoreTx) error {
		out = nil
		expired, err := tx.ExpireGoals(ctx, today)
		if err != nil {
			return err
		}
		if expired > 0 {
			g.log.Debug("tracked goals expired", zap.Int("count", expired))
		}
		active, err := tx.ActiveGoals(ctx)
		if err != nil {
			return err
		}
		for _, goal := range active {
			if !goal.InPeriod(today) {
				continue
			}
			current, err := metricValue(ctx, tx, goal, today)
			if err != nil {
				return err
			}
			if current != goal.Current {
				if err := tx.UpdateGoalProgress(ctx, goal.ID, current); err != nil {
					return err
				}
				goal.Current = current
			}
			out = append(out, goal)
		}
		return nil
	})
	return out, err
}

// TrackedSummary aggregates the active tracked goals.
func (g *GoalService) TrackedSummary(ctx context.Context) (domain.GoalsSummary, error) {
	goals, err := g.TrackedGoals(ctx)
	if err != nil {
		return domain.GoalsSummary{}, err
	}
	sum := domain.GoalsSummary{TotalGoals: len(goals), Goals: goals}
	if len(goals) == 0 {
		sum.Goals = []domain.TrackedGoal{}
		return sum, nil
	}
	var progress float64
	for _, goal := range goals {
		if goal.Completed() {
			sum.CompletedGoals++
		}
		progress += goal.ProgressPct()
	}
	sum.InProgressGoals = sum.TotalGoals - sum.CompletedGoals
	sum.CompletionRate = float64(sum.CompletedGoals) / float64(sum.TotalGoals) * 100.0
	sum.AverageProgress = progress / float64(sum.TotalGoals)
	return sum, nil
}

// UntrackGoal deletes a tracked goal.
func (g *GoalService) UntrackGoal(ctx context.Context, id string) error {
	return g.update(ctx, "untrack_goal", func(tx domain.StoreTx) error {
		return tx.DeleteGoal(ctx, id)
	})
}

// metricValue measures goal.Metric inside the goal window up to today.
func metricValue(ctx context.Context, tx domain.StoreTx, goal domain.TrackedGoal, today time.Time) (int, error) {
	switch goal.Metric {
	case domain.MetricTasksCompleted, domain.MetricPointsEarned:
		to := goal.PeriodEnd
		if today.Before(to) {
			to = today
		}
		activity, err := tx.ActivityRange(ctx, goal.PeriodStart, to)
		if err != nil {
			return 0, err
		}
		sum := 0
		for _, a := range activity {
			if goal.Metric == domain.MetricTasksCompleted {
				sum += a.TasksCompleted
			} else {
				sum += a.TotalPointsEarned
			}
		}
		return sum, nil
	case domain.MetricStreakDays, domain.MetricProductivityScore:
		stats, err := tx.Stats(ctx)
		if err != nil {
			return 0, err
		}
		if goal.Metric == domain.MetricStreakDays {
			return LiveStreak(stats, today), nil
		}
		return QuickProductivityScore(stats, today), nil
	}
	return 0, fmt.Errorf("%w: %q", domain.ErrInvalidGoalMetric, goal.Metric)
}

// QuickProductivityScore is a 0–100 score from lifetime totals:
// up to 40 for tasks, 30 for the live streak and 30 for level.
func QuickProductivityScore(stats domain.UserStats, today time.Time) int {
	tasks := min(40, stats.TotalTasksCompleted*2)
	streak := min(30, LiveStreak(stats, today)*3)
	level := min(30, stats.Level*5)
	return tasks + streak + level
}
