package engagement

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tutu-network/tally/internal/domain"
)

// ─── Analytics Reporter ─────────────────────────────────────────────────────

// trendWindow is how many trailing days feed the trend slope.
const trendWindow = 7

// trendThreshold separates a stable slope from a moving one.
const trendThreshold = 0.1

// MaxReportDays bounds the span of one report, about ten years.
const MaxReportDays = 3660

// AnalyticsService builds read-only reports from stored activity.
type AnalyticsService struct {
	*base
}

// Report summarizes the inclusive range [from, to]. Days without a stored
// record count as zero activity. from after to is ErrInvalidDateRange and
// a span over MaxReportDays is ErrRangeTooLong.
func (a *AnalyticsService) Report(ctx context.Context, from, to time.Time) (domain.Report, error) {
	from, to = domain.Day(from), domain.Day(to)
	if from.After(to) {
		return domain.Report{}, domain.ErrInvalidDateRange
	}
	if domain.DaysBetween(from, to)+1 > MaxReportDays {
		return domain.Report{}, domain.ErrRangeTooLong
	}

	var rep domain.Report
	err := a.view(ctx, "report", func(tx domain.StoreTx) error {
		stats, err := tx.Stats(ctx)
		if err != nil {
			return err
		}
		activity, err := tx.ActivityRange(ctx, from, to)
		if err != nil {
			return err
		}
		completions, err := tx.Completions(ctx, from, to)
		if err != nil {
			return err
		}
		rep = BuildReport(from, to, activity, completions, stats)
		return nil
	})
	return rep, err
}

// LastDays reports on the trailing window of days ending today.
func (a *AnalyticsService) LastDays(ctx context.Context, days int) (domain.Report, error) {
	if days < 1 {
		return domain.Report{}, fmt.Errorf("%w: days must be at least 1", domain.ErrValidation)
	}
	if days > MaxReportDays {
		return domain.Report{}, domain.ErrRangeTooLong
	}
	today := a.today()
	return a.Report(ctx, today.AddDate(0, 0, -(days-1)), today)
}

// DenseSeries returns one record per day of [from, to], filling gaps with
// empty records.
func DenseSeries(from, to time.Time, activity []domain.DailyActivity) []domain.DailyActivity {
	byDate := make(map[time.Time]domain.DailyActivity, len(activity))
	for _, act := range activity {
		byDate[domain.Day(act.Date)] = act
	}
	n := domain.DaysBetween(from, to) + 1
	out := make([]domain.DailyActivity, 0, max(n, 0))
	for d := domain.Day(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		if act, ok := byDate[d]; ok {
			out = append(out, act)
			continue
		}
		out = append(out, domain.NewDailyActivity(d))
	}
	return out
}

// BuildReport computes a report from already loaded data. It is pure.
func BuildReport(from, to time.Time, activity []domain.DailyActivity, completions []domain.CompletionRecord, stats domain.UserStats) domain.Report {
	series := DenseSeries(from, to, activity)
	rep := domain.Report{From: from, To: to, Days: len(series)}

	for _, act := range series {
		t := &rep.Totals
		t.TasksCompleted += act.TasksCompleted
		t.TasksCreated += act.TasksCreated
		t.BasePoints += act.BasePointsEarned
		t.StreakBonus += act.StreakBonusEarned
		t.DailyGoalBonus += act.DailyGoalBonusEarned
		t.ExtraBonus += act.ExtraBonusEarned
		t.PointsEarned += act.TotalPointsEarned
		t.PenaltiesIncurred += act.OverduePenaltyApplied
		if act.TasksCompleted > 0 {
			t.ActiveDays++
		}
	}
	if rep.Days > 0 {
		rep.AvgTasksPerDay = float64(rep.Totals.TasksCompleted) / float64(rep.Days)
		rep.AvgPointsPerDay = float64(rep.Totals.PointsEarned) / float64(rep.Days)
	}

	recent := series
	if len(recent) > trendWindow {
		recent = recent[len(recent)-trendWindow:]
	}
	counts := make([]int, len(recent))
	for i, act := range recent {
		counts[i] = act.TasksCompleted
	}
	rep.Trend, rep.TrendSlope = TrendOf(counts)

	rep.Categories = Categories(completions)
	rep.TimeOfDay = Pattern(completions)
	rep.Goals = GoalStreaks(series)
	rep.Weekly = Weekly(series)
	rep.Productivity = Productivity(series, rep.Trend)
	rep.Insights = Insights(rep, stats, to)
	return rep
}

// TrendOf fits a least-squares line to values and classifies its slope.
// Fewer than two values are stable.
func TrendOf(values []int) (domain.Trend, float64) {
	n := float64(len(values))
	if len(values) < 2 {
		return domain.TrendStable, 0
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, v := range values {
		x, y := float64(i), float64(v)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return domain.TrendStable, 0
	}
	slope := (n*sumXY - sumX*sumY) / denom
	switch {
	case slope > trendThreshold:
		return domain.TrendImproving, slope
	case slope < -trendThreshold:
		return domain.TrendDeclining, slope
	default:
		return domain.TrendStable, slope
	}
}

// Categories groups completions by category. Blank categories are "Uncategorized".
func Categories(completions []domain.CompletionRecord) domain.CategoryBreakdown {
	byName := map[string]*domain.CategoryStat{}
	for _, c := range completions {
		name := strings.TrimSpace(c.Category)
		if name == "" {
			name = "Uncategorized"
		}
		st, ok := byName[name]
		if !ok {
			st = &domain.CategoryStat{Category: name}
			byName[name] = st
		}
		st.Count++
		st.Points += c.Points
	}

	out := domain.CategoryBreakdown{Stats: make([]domain.CategoryStat, 0, len(byName))}
	for _, st := range byName {
		st.Percentage = float64(st.Count) / float64(len(completions)) * 100.0
		out.Stats = append(out.Stats, *st)
	}
	sort.Slice(out.Stats, func(i, j int) bool {
		if out.Stats[i].Count != out.Stats[j].Count {
			return out.Stats[i].Count > out.Stats[j].Count
		}
		return out.Stats[i].Category < out.Stats[j].Category
	})
	if len(out.Stats) == 0 {
		return out
	}
	out.MostFrequent = out.Stats[0].Category
	best := out.Stats[0]
	for _, st := range out.Stats[1:] {
		if st.Points > best.Points {
			best = st
		}
	}
	out.MostProductive = best.Category
	return out
}

// Pattern computes the hour and weekday histograms of completions.
func Pattern(completions []domain.CompletionRecord) domain.CompletionPattern {
	p := domain.CompletionPattern{PeakHour: -1}
	if len(completions) == 0 {
		return p
	}
	hourSum := 0
	for _, c := range completions {
		h := c.CompletedAt.Hour()
		p.ByHour[h]++
		p.ByWeekday[c.Day.Weekday()]++
		hourSum += h
	}
	p.AverageHour = float64(hourSum) / float64(len(completions))

	peak := 0
	for h, n := range p.ByHour {
		if n > p.ByHour[peak] {
			peak = h
		}
	}
	p.PeakHour = peak

	wd := 0
	for d, n := range p.ByWeekday {
		if n > p.ByWeekday[wd] {
			wd = d
		}
	}
	p.PeakWeekday = time.Weekday(wd).String()
	return p
}

// GoalStreaks counts daily-goal hits and runs of consecutive hits.
func GoalStreaks(series []domain.DailyActivity) domain.GoalAchievement {
	var g domain.GoalAchievement
	if len(series) == 0 {
		return g
	}
	var runs []int
	run := 0
	for _, act := range series {
		if act.DailyGoalMet {
			g.DaysMet++
			run++
			continue
		}
		if run > 0 {
			runs = append(runs, run)
		}
		run = 0
	}
	if run > 0 {
		runs = append(runs, run)
	}
	g.CurrentStreak = run
	g.Rate = float64(g.DaysMet) / float64(len(series)) * 100.0

	total := 0
	for _, r := range runs {
		total += r
		g.BestStreak = max(g.BestStreak, r)
	}
	if len(runs) > 0 {
		g.AverageStreak = float64(total) / float64(len(runs))
	}
	return g
}

// Weekly averages task counts per weekday and measures consistency.
func Weekly(series []domain.DailyActivity) domain.WeeklyPattern {
	var w domain.WeeklyPattern
	if len(series) == 0 {
		return w
	}
	var sums, days [7]int
	active := 0
	for _, act := range series {
		wd := act.Date.Weekday()
		sums[wd] += act.TasksCompleted
		days[wd]++
		if act.TasksCompleted > 0 {
			active++
		}
	}
	best := -1
	for d := range 7 {
		if days[d] > 0 {
			w.Averages[d] = float64(sums[d]) / float64(days[d])
		}
		if w.Averages[d] > 0 && (best < 0 || w.Averages[d] > w.Averages[best]) {
			best = d
		}
	}
	if best >= 0 {
		w.BestDay = time.Weekday(best).String()
	}
	w.Consistency = active * 100 / len(series)
	return w
}

// Productivity is the four-part 0–100 score over a dense series.
func Productivity(series []domain.DailyActivity, trend domain.Trend) domain.ProductivityScore {
	var p domain.ProductivityScore
	if len(series) == 0 {
		return p
	}
	n := float64(len(series))
	active, tasks, met := 0, 0, 0
	for _, act := range series {
		tasks += act.TasksCompleted
		if act.TasksCompleted > 0 {
			active++
		}
		if act.DailyGoalMet {
			met++
		}
	}
	p.Consistency = min(25, float64(active)/n*25)
	p.Volume = min(25, float64(tasks)/n*5)
	p.Goals = min(25, float64(met)/n*25)
	switch trend {
	case domain.TrendImproving:
		p.Trend = 25
	case domain.TrendDeclining:
		p.Trend = 5
	default:
		p.Trend = 15
	}
	p.Total = p.Consistency + p.Volume + p.Goals + p.Trend
	return p
}

// Insights turns a report and the aggregate into short advice strings.
func Insights(rep domain.Report, stats domain.UserStats, asOf time.Time) []string {
	var out []string
	if streak := LiveStreak(stats, asOf); streak > 3 {
		out = append(out, fmt.Sprintf("Great job maintaining a %d-day streak!", streak))
	}
	if stats.TotalTasksCompleted > 20 {
		out = append(out, "You're building great productivity habits!")
	}
	if stats.Level > 1 {
		out = append(out, fmt.Sprintf("You've reached level %d - keep up the momentum!", stats.Level))
	}
	switch rep.Trend {
	case domain.TrendImproving:
		out = append(out, "Your daily output is trending up.")
	case domain.TrendDeclining:
		out = append(out, "Your daily output is trending down. A smaller daily goal may help.")
	}
	if rep.Weekly.BestDay != "" {
		out = append(out, fmt.Sprintf("%s is your most productive day.", rep.Weekly.BestDay))
	}
	if rep.Categories.MostProductive != "" {
		out = append(out, fmt.Sprintf("%s tasks earn you the most points.", rep.Categories.MostProductive))
	}
	if rep.Totals.PenaltiesIncurred > 0 {
		out = append(out, fmt.Sprintf("Overdue tasks cost you %d points in this period.", rep.Totals.PenaltiesIncurred))
	}
	if len(out) == 0 {
		out = append(out, "Start completing tasks to see personalized insights!")
	}
	return out
}
