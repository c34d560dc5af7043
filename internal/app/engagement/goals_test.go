package engagement_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tutu-network/tally/internal/app/engagement"
	"github.com/tutu-network/tally/internal/domain"
)

// ═══════════════════════════════════════════════════════════════════════════
// Goal Tracker Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestWeekBounds(t *testing.T) {
	// 2025-01-01 is a Wednesday.
	start, end := engagement.WeekBounds(at(2025, 1, 1, 15))
	if !start.Equal(at(2024, 12, 30, 0)) || !end.Equal(at(2025, 1, 5, 0)) {
		t.Errorf("WeekBounds = %v..%v, want Mon Dec 30..Sun Jan 5", start, end)
	}
	// Sunday belongs to the week that started the Monday before.
	start, _ = engagement.WeekBounds(at(2025, 1, 5, 0))
	if !start.Equal(at(2024, 12, 30, 0)) {
		t.Errorf("Sunday week start = %v", start)
	}
}

func TestMonthBounds(t *testing.T) {
	start, end := engagement.MonthBounds(at(2024, 2, 10, 0))
	if !start.Equal(at(2024, 2, 1, 0)) || !end.Equal(at(2024, 2, 29, 0)) {
		t.Errorf("MonthBounds(Feb 2024) = %v..%v", start, end)
	}
}

func TestPeriodBounds_Invalid(t *testing.T) {
	_, _, err := engagement.PeriodBounds("yearly", at(2025, 1, 1, 0))
	if !errors.Is(err, domain.ErrInvalidGoalPeriod) {
		t.Errorf("err = %v, want ErrInvalidGoalPeriod", err)
	}
}

func TestPeriodProgress(t *testing.T) {
	activity := []domain.DailyActivity{
		{TasksCompleted: 4}, {TasksCompleted: 6},
	}
	p := engagement.PeriodProgress(activity, 20, 5)
	if p.Current != 10 || p.GoalMet || p.Percentage != 50 {
		t.Errorf("progress = %+v", p)
	}
	if p.AverageNeededPerDay != 2 {
		t.Errorf("average needed = %.2f, want 2", p.AverageNeededPerDay)
	}

	p = engagement.PeriodProgress(activity, 8, 0)
	if !p.GoalMet || p.Percentage != 100 || p.AverageNeededPerDay != 0 {
		t.Errorf("met progress = %+v", p)
	}
}

func uniformActivity(days, perDay int) []domain.DailyActivity {
	out := make([]domain.DailyActivity, days)
	for i := range out {
		out[i] = domain.DailyActivity{Date: at(2025, 1, 1, 0).AddDate(0, 0, i), TasksCompleted: perDay}
	}
	return out
}

func TestSuggestAdjustments(t *testing.T) {
	goals := domain.Goals{Daily: 3, Weekly: 20, Monthly: 80}

	tests := []struct {
		name   string
		recent []domain.DailyActivity
		want   map[domain.GoalPeriod]int
	}{
		{
			name:   "well above",
			recent: uniformActivity(30, 10),
			want:   map[domain.GoalPeriod]int{domain.PeriodDaily: 11, domain.PeriodWeekly: 77, domain.PeriodMonthly: 330},
		},
		{
			name:   "idle lowers to floors",
			recent: nil,
			want:   map[domain.GoalPeriod]int{domain.PeriodDaily: 1, domain.PeriodWeekly: 7, domain.PeriodMonthly: 30},
		},
		{
			name:   "on target",
			recent: uniformActivity(30, 3),
			want:   map[domain.GoalPeriod]int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engagement.SuggestAdjustments(tt.recent, 30, goals)
			if len(got) != len(tt.want) {
				t.Fatalf("suggestions = %+v, want %v", got, tt.want)
			}
			for _, s := range got {
				if s.Suggested != tt.want[s.Period] {
					t.Errorf("%s suggested = %d, want %d", s.Period, s.Suggested, tt.want[s.Period])
				}
				if s.Reason == "" {
					t.Errorf("%s suggestion has no reason", s.Period)
				}
			}
		})
	}
}

func TestSuggestAdjustments_NoWindow(t *testing.T) {
	if got := engagement.SuggestAdjustments(nil, 0, domain.Goals{Daily: 3}); got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestGoals_SetAndGet(t *testing.T) {
	eng, _, _ := testEngine(t, at(2025, 1, 1, 10))
	ctx := context.Background()

	goals, err := eng.Goals.SetGoals(ctx, domain.GoalUpdate{Daily: 5})
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	want := domain.Goals{Daily: 5, Weekly: 20, Monthly: 80}
	if goals != want {
		t.Errorf("goals = %+v, want %+v", goals, want)
	}
	got, err := eng.Goals.Goals(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != want {
		t.Errorf("stored goals = %+v, want %+v", got, want)
	}

	_, err = eng.Goals.SetGoals(ctx, domain.GoalUpdate{Weekly: -2})
	if !errors.Is(err, domain.ErrInvalidGoal) {
		t.Errorf("negative goal err = %v, want ErrInvalidGoal", err)
	}
}

func TestGoals_DailyWeeklyMonthly(t *testing.T) {
	eng, clk, _ := testEngine(t, at(2024, 12, 30, 10))
	ctx := context.Background()

	complete(t, eng, domain.SizeSmall)
	complete(t, eng, domain.SizeSmall)
	clk.set(at(2025, 1, 1, 10))
	complete(t, eng, domain.SizeSmall)

	daily, err := eng.Goals.Daily(ctx)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if daily.Completed != 1 || daily.Remaining != 2 || daily.GoalMet {
		t.Errorf("daily = %+v", daily)
	}

	weekly, err := eng.Goals.Weekly(ctx)
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if weekly.Current != 3 || weekly.Goal != 20 || weekly.DaysRemaining != 5 {
		t.Errorf("weekly = %+v", weekly)
	}
	if weekly.AverageNeededPerDay != 3.4 {
		t.Errorf("weekly average needed = %.2f, want 3.4", weekly.AverageNeededPerDay)
	}

	monthly, err := eng.Goals.Monthly(ctx)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if monthly.Current != 1 || monthly.DaysRemaining != 31 || monthly.Period != domain.PeriodMonthly {
		t.Errorf("monthly = %+v", monthly)
	}
}

func TestGoals_Suggest(t *testing.T) {
	eng, _, _ := testEngine(t, at(2025, 1, 1, 10))

	got, err := eng.Goals.Suggest(context.Background())
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	// No activity at all: every goal is well above the observed average.
	if len(got) != 3 {
		t.Errorf("suggestions = %d, want 3", len(got))
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Tracked Goal Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestTrackGoal_Validation(t *testing.T) {
	eng, _, _ := testEngine(t, at(2025, 1, 1, 10))
	ctx := context.Background()

	tests := []struct {
		name   string
		period domain.GoalPeriod
		metric domain.GoalMetric
		target int
		want   error
	}{
		{"daily period", domain.PeriodDaily, domain.MetricTasksCompleted, 5, domain.ErrInvalidGoalPeriod},
		{"unknown metric", domain.PeriodWeekly, "steps", 5, domain.ErrInvalidGoalMetric},
		{"zero target", domain.PeriodWeekly, domain.MetricTasksCompleted, 0, domain.ErrInvalidGoal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.Goals.TrackGoal(ctx, tt.period, tt.metric, tt.target)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTrackGoal_Lifecycle(t *testing.T) {
	eng, clk, _ := testEngine(t, at(2025, 1, 1, 10))
	ctx := context.Background()

	complete(t, eng, domain.SizeMedium)
	goal, err := eng.Goals.TrackGoal(ctx, domain.PeriodWeekly, domain.MetricTasksCompleted, 2)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if goal.Current != 1 || !goal.PeriodStart.Equal(at(2024, 12, 30, 0)) {
		t.Errorf("goal = %+v", goal)
	}

	// Re-tracking the same period and metric replaces the goal.
	goal, err = eng.Goals.TrackGoal(ctx, domain.PeriodWeekly, domain.MetricTasksCompleted, 3)
	if err != nil {
		t.Fatalf("retrack: %v", err)
	}
	if _, err := eng.Goals.TrackGoal(ctx, domain.PeriodMonthly, domain.MetricPointsEarned, 10); err != nil {
		t.Fatalf("track points: %v", err)
	}

	complete(t, eng, domain.SizeMedium)
	goals, err := eng.Goals.TrackedGoals(ctx)
	if err != nil {
		t.Fatalf("tracked: %v", err)
	}
	if len(goals) != 2 {
		t.Fatalf("tracked goals = %d, want 2", len(goals))
	}
	for _, g := range goals {
		switch g.Metric {
		case domain.MetricTasksCompleted:
			if g.ID != goal.ID || g.Current != 2 || g.Target != 3 {
				t.Errorf("tasks goal = %+v", g)
			}
		case domain.MetricPointsEarned:
			if g.Current != 6 {
				t.Errorf("points goal current = %d, want 6", g.Current)
			}
		}
	}

	sum, err := eng.Goals.TrackedSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	// Points goal of 10 is not met at 6; tasks goal of 3 is not met at 2.
	if sum.TotalGoals != 2 || sum.CompletedGoals != 0 || sum.InProgressGoals != 2 {
		t.Errorf("summary = %+v", sum)
	}

	// Next week the weekly goal has expired; the monthly one remains.
	clk.set(at(2025, 1, 6, 10))
	goals, err = eng.Goals.TrackedGoals(ctx)
	if err != nil {
		t.Fatalf("tracked next week: %v", err)
	}
	if len(goals) != 1 || goals[0].Period != domain.PeriodMonthly {
		t.Errorf("goals next week = %+v", goals)
	}

	if err := eng.Goals.UntrackGoal(ctx, goals[0].ID); err != nil {
		t.Fatalf("untrack: %v", err)
	}
	if err := eng.Goals.UntrackGoal(ctx, goals[0].ID); !errors.Is(err, domain.ErrGoalNotFound) {
		t.Errorf("untrack twice err = %v, want ErrGoalNotFound", err)
	}
}

func TestTrackGoal_StreakAndProductivity(t *testing.T) {
	eng, clk, _ := testEngine(t, at(2025, 1, 1, 10))
	ctx := context.Background()

	for range 3 {
		complete(t, eng, domain.SizeSmall)
		clk.nextDay(1)
	}
	clk.nextDay(-1)

	streak, err := eng.Goals.TrackGoal(ctx, domain.PeriodMonthly, domain.MetricStreakDays, 7)
	if err != nil {
		t.Fatalf("track streak: %v", err)
	}
	if streak.Current != 3 {
		t.Errorf("streak current = %d, want 3", streak.Current)
	}

	prod, err := eng.Goals.TrackGoal(ctx, domain.PeriodMonthly, domain.MetricProductivityScore, 50)
	if err != nil {
		t.Fatalf("track productivity: %v", err)
	}
	// 3 tasks * 2 + 3 streak * 3 + level 1 * 5.
	if prod.Current != 20 {
		t.Errorf("productivity current = %d, want 20", prod.Current)
	}
}

func TestQuickProductivityScore_Caps(t *testing.T) {
	s := domain.UserStats{
		TotalTasksCompleted: 500,
		CurrentStreakDays:   40,
		LastCompletionDate:  at(2025, 1, 1, 0),
		Level:               12,
	}
	if got := engagement.QuickProductivityScore(s, at(2025, 1, 1, 0)); got != 100 {
		t.Errorf("score = %d, want 100", got)
	}
	if got := engagement.QuickProductivityScore(s, at(2025, 1, 5, 0)); got != 70 {
		t.Errorf("score with broken streak = %d, want 70", got)
	}
}

func TestTrackGoal_ConcurrentReplace(t *testing.T) {
	eng, _, _ := testEngine(t, at(2025, 1, 1, 10))
	ctx := context.Background()

	var wg sync.WaitGroup
	for target := 1; target <= 10; target++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := eng.Goals.TrackGoal(ctx, domain.PeriodWeekly, domain.MetricTasksCompleted, target); err != nil {
				t.Errorf("track %d: %v", target, err)
			}
		}()
	}
	wg.Wait()

	goals, err := eng.Goals.TrackedGoals(ctx)
	if err != nil {
		t.Fatalf("tracked: %v", err)
	}
	if len(goals) != 1 {
		t.Errorf("active goals = %d, want 1", len(goals))
	}
}
