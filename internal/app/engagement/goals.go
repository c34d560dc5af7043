package engagement

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tutu-network/tally/internal/domain"
)

// ─── Goal Tracker ───────────────────────────────────────────────────────────

// SuggestionWindowDays is how much history SuggestAdjustments looks at.
const SuggestionWindowDays = 30

// GoalService reports progress against the daily, weekly and monthly goals
// and manages tracked goals.
type GoalService struct {
	*base
}

// DailyProgress reports whether tasksToday meets dailyGoal, and the bonus
// owed for the completion worth taskPoints that crossed it. alreadyMet
// means the bonus was paid earlier today; it is never paid twice.
func DailyProgress(tasksToday, dailyGoal int, alreadyMet bool, taskPoints int) (met bool, bonus int) {
	if alreadyMet {
		return true, 0
	}
	if tasksToday < dailyGoal {
		return false, 0
	}
	return true, DailyGoalBonus(taskPoints)
}

// PeriodProgress summarizes activity records against a task-count goal.
// daysRemaining includes today; a window that has ended averages over one day.
func PeriodProgress(activity []domain.DailyActivity, goal, daysRemaining int) domain.PeriodProgress {
	current := 0
	for _, a := range activity {
		current += a.TasksCompleted
	}
	p := domain.PeriodProgress{
		Current:       current,
		Goal:          goal,
		GoalMet:       current >= goal,
		DaysRemaining: max(daysRemaining, 0),
	}
	if goal > 0 {
		p.Percentage = min(100.0, float64(current)/float64(goal)*100.0)
	} else {
		p.Percentage = 100.0
	}
	if left := goal - current; left > 0 {
		p.AverageNeededPerDay = float64(left) / float64(max(daysRemaining, 1))
	}
	return p
}

// WeekBounds returns Monday and Sunday of the week containing day.
func WeekBounds(day time.Time) (start, end time.Time) {
	d := domain.Day(day)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	start = d.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// MonthBounds returns the first and last day of the month containing day.
func MonthBounds(day time.Time) (start, end time.Time) {
	d := domain.Day(day)
	start = time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

// PeriodBounds dispatches to WeekBounds or MonthBounds.
func PeriodBounds(period domain.GoalPeriod, day time.Time) (start, end time.Time, err error) {
	switch period {
	case domain.PeriodDaily:
		d := domain.Day(day)
		return d, d, nil
	case domain.PeriodWeekly:
		start, end = WeekBounds(day)
	case domain.PeriodMonthly:
		start, end = MonthBounds(day)
	default:
		return time.Time{}, time.Time{}, domain.ErrInvalidGoalPeriod
	}
	return start, end, nil
}

// SuggestAdjustments compares recent activity with the configured goals.
// A goal more than 20% under the observed average gets a raise suggestion,
// one more than 20% over it a lowering suggestion. Suggested values are
// floor(average * 1.1), never below the per-period floor. windowDays is the
// length of the window recent was drawn from; missing days count as zero.
func SuggestAdjustments(recent []domain.DailyActivity, windowDays int, goals domain.Goals) []domain.GoalSuggestion {
	if windowDays <= 0 {
		return nil
	}
	total := 0
	for _, a := range recent {
		total += a.TasksCompleted
	}

	periods := []struct {
		period domain.GoalPeriod
		days   int
		goal   int
		floor  int
	}{
		{domain.PeriodDaily, 1, goals.Daily, domain.MinDailyGoal},
		{domain.PeriodWeekly, 7, goals.Weekly, domain.MinWeeklyGoal},
		{domain.PeriodMonthly, 30, goals.Monthly, domain.MinMonthlyGoal},
	}

	var out []domain.GoalSuggestion
	for _, p := range periods {
		// Average per period is num / windowDays; keep the comparisons integral.
		num := total * p.days
		avg := float64(num) / float64(windowDays)
		suggested := max(num*110/(windowDays*100), p.floor)

		var reason string
		switch {
		case num*100 > p.goal*windowDays*120:
			reason = fmt.Sprintf("you average %.1f tasks per %s period, well above your goal of %d", avg, p.period, p.goal)
		case num*100 < p.goal*windowDays*80:
			reason = fmt.Sprintf("you average %.1f tasks per %s period, well below your goal of %d", avg, p.period, p.goal)
		default:
			continue
		}
		if suggested == p.goal {
			continue
		}
		out = append(out, domain.GoalSuggestion{
			Period:    p.period,
			Current:   p.goal,
			Suggested: suggested,
			Average:   avg,
			Reason:    reason,
		})
	}
	return out
}

func dailyView(act domain.DailyActivity, goal int) domain.DailyProgress {
	return domain.DailyProgress{
		Date:        act.Date,
		Completed:   act.TasksCompleted,
		Goal:        goal,
		GoalMet:     act.DailyGoalMet || act.TasksCompleted >= goal,
		BonusEarned: act.DailyGoalBonusEarned,
		Remaining:   max(goal-act.TasksCompleted, 0),
	}
}

// Goals returns the configured goal triple.
func (g *GoalService) Goals(ctx context.Context) (domain.Goals, error) {
	var goals domain.Goals
	err := g.view(ctx, "get_goals", func(tx domain.StoreTx) error {
		stats, err := tx.Stats(ctx)
		goals = stats.Goals()
		return err
	})
	return goals, err
}

// SetGoals applies a partial update. Values below 1 are ErrInvalidGoal.
// Changing the daily goal does not revisit days already recorded.
func (g *GoalService) SetGoals(ctx context.Context, upd domain.GoalUpdate) (domain.Goals, error) {
	if err := validate.Struct(upd); err != nil {
		return domain.Goals{}, fmt.Errorf("%w: %v", domain.ErrInvalidGoal, err)
	}

	var goals domain.Goals
	err := g.update(ctx, "set_goals", func(tx domain.StoreTx) error {
		stats, err := tx.Stats(ctx)
		if err != nil {
			return err
		}
		goals = upd.Apply(stats.Goals())
		stats.DailyGoal, stats.WeeklyGoal, stats.MonthlyGoal = goals.Daily, goals.Weekly, goals.Monthly
		return tx.SaveStats(ctx, stats)
	})
	if err != nil {
		return domain.Goals{}, err
	}
	g.log.Info("goals updated",
		zap.Int("daily", goals.Daily), zap.Int("weekly", goals.Weekly), zap.Int("monthly", goals.Monthly))
	return goals, nil
}

// Daily returns today's progress against the daily goal.
func (g *GoalService) Daily(ctx context.Context) (domain.DailyProgress, error) {
	today := g.today()
	var out domain.DailyProgress
	err := g.view(ctx, "daily_progress", func(tx domain.StoreTx) error {
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
		out = dailyView(*act, stats.DailyGoal)
		return nil
	})
	return out, err
}

// Weekly returns progress for the current Monday–Sunday week.
func (g *GoalService) Weekly(ctx context.Context) (domain.PeriodProgress, error) {
	return g.period(ctx, domain.PeriodWeekly)
}

// Monthly returns progress for the current calendar month.
func (g *GoalService) Monthly(ctx context.Context) (domain.PeriodProgress, error) {
	return g.period(ctx, domain.PeriodMonthly)
}

func (g *GoalService) period(ctx context.Context, period domain.GoalPeriod) (domain.PeriodProgress, error) {
	today := g.today()
	start, end, err := PeriodBounds(period, today)
	if err != nil {
		return domain.PeriodProgress{}, err
	}

	var out domain.PeriodProgress
	err = g.view(ctx, "period_progress", func(tx domain.StoreTx) error {
		stats, err := tx.Stats(ctx)
		if err != nil {
			return err
		}
		activity, err := tx.ActivityRange(ctx, start, end)
		if err != nil {
			return err
		}
		goal := stats.WeeklyGoal
		if period == domain.PeriodMonthly {
			goal = stats.MonthlyGoal
		}
		out = PeriodProgress(activity, goal, domain.DaysBetween(today, end)+1)
		out.Period, out.Start, out.End = period, start, end
		return nil
	})
	return out, err
}

// Suggest returns advisory goal changes from the last SuggestionWindowDays days.
func (g *GoalService) Suggest(ctx context.Context) ([]domain.GoalSuggestion, error) {
	today := g.today()
	from := today.AddDate(0, 0, -(SuggestionWindowDays - 1))
	var out []domain.GoalSuggestion
	err := g.view(ctx, "suggest_goals", func(tx domain.StoreTx) error {
		stats, err := tx.Stats(ctx)
		if err != nil {
			return err
		}
		recent, err := tx.ActivityRange(ctx, from, today)
		if err != nil {
			return err
		}
		out = SuggestAdjustments(recent, SuggestionWindowDays, stats.Goals())
		return nil
	})
	return out, err
}
