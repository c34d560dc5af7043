package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tutu-network/tally/internal/daemon"
	"github.com/tutu-network/tally/internal/domain"
)

func init() {
	goalsSetCmd.Flags().IntVar(&goalDaily, "daily", 0, "Daily task goal")
	goalsSetCmd.Flags().IntVar(&goalWeekly, "weekly", 0, "Weekly task goal")
	goalsSetCmd.Flags().IntVar(&goalMonthly, "monthly", 0, "Monthly task goal")

	goalsCmd.AddCommand(goalsSetCmd, goalsSuggestCmd, goalsTrackCmd, goalsTrackedCmd, goalsUntrackCmd)
	rootCmd.AddCommand(goalsCmd)
}

var (
	goalDaily   int
	goalWeekly  int
	goalMonthly int
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Show daily, weekly and monthly goal progress",
	Args:  cobra.NoArgs,
	RunE:  runGoals,
}

var goalsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change goal values",
	Args:  cobra.NoArgs,
	RunE:  runGoalsSet,
}

var goalsSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest goal adjustments from recent activity",
	Args:  cobra.NoArgs,
	RunE:  runGoalsSuggest,
}

var goalsTrackCmd = &cobra.Command{
	Use:     "track PERIOD METRIC TARGET",
	Short:   "Track a weekly or monthly goal on a metric",
	Long:    "PERIOD is weekly or monthly. METRIC is tasks_completed, points_earned, streak_days or productivity_score.",
	Example: "  tally goals track weekly points_earned 150",
	Args:    cobra.ExactArgs(3),
	RunE:    runGoalsTrack,
}

var goalsTrackedCmd = &cobra.Command{
	Use:   "tracked",
	Short: "List tracked goals",
	Args:  cobra.NoArgs,
	RunE:  runGoalsTracked,
}

var goalsUntrackCmd = &cobra.Command{
	Use:   "untrack ID",
	Short: "Delete a tracked goal",
	Args:  cobra.ExactArgs(1),
	RunE:  runGoalsUntrack,
}

func runGoals(cmd *cobra.Command, args []string) error {
	return withDaemon(func(d *daemon.Daemon) error {
		ctx := cmd.Context()
		daily, err := d.Engine.Goals.Daily(ctx)
		if err != nil {
			return err
		}
		weekly, err := d.Engine.Goals.Weekly(ctx)
		if err != nil {
			return err
		}
		monthly, err := d.Engine.Goals.Monthly(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out(cmd), map[string]any{"daily": daily, "weekly": weekly, "monthly": monthly})
		}

		w := newTable(out(cmd))
		fmt.Fprintf(w, "Today\t%s\n", ratioBar(daily.Completed, daily.Goal))
		fmt.Fprintf(w, "This week\t%s\t%s left, %.1f/day needed\n",
			ratioBar(weekly.Current, weekly.Goal), plural(weekly.DaysRemaining, "day"), weekly.AverageNeededPerDay)
		fmt.Fprintf(w, "This month\t%s\t%s left, %.1f/day needed\n",
			ratioBar(monthly.Current, monthly.Goal), plural(monthly.DaysRemaining, "day"), monthly.AverageNeededPerDay)
		return w.Flush()
	})
}

func runGoalsSet(cmd *cobra.Command, args []string) error {
	upd := domain.GoalUpdate{Daily: goalDaily, Weekly: goalWeekly, Monthly: goalMonthly}
	if upd.IsEmpty() {
		return fmt.Errorf("nothing to change: pass --daily, --weekly or --monthly")
	}
	return withDaemon(func(d *daemon.Daemon) error {
		g, err := d.Engine.Goals.SetGoals(cmd.Context(), upd)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out(cmd), g)
		}
		fmt.Fprintf(out(cmd), "Goals: %d/day, %d/week, %d/month\n", g.Daily, g.Weekly, g.Monthly)
		return nil
	})
}

func runGoalsSuggest(cmd *cobra.Command, args []string) error {
	return withDaemon(func(d *daemon.Daemon) error {
		sugg, err := d.Engine.Goals.Suggest(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out(cmd), sugg)
		}
		if len(sugg) == 0 {
			fmt.Fprintln(out(cmd), "Your goals fit your recent activity.")
			return nil
		}
		w := newTable(out(cmd))
		fmt.Fprintln(w, "PERIOD\tCURRENT\tSUGGESTED\tREASON")
		for _, s := range sugg {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", s.Period, s.Current, s.Suggested, s.Reason)
		}
		return w.Flush()
	})
}

func runGoalsTrack(cmd *cobra.Command, args []string) error {
	target, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid target %q", args[2])
	}
	return withDaemon(func(d *daemon.Daemon) error {
		g, err := d.Engine.Goals.TrackGoal(cmd.Context(), domain.GoalPeriod(args[0]), domain.GoalMetric(args[1]), target)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out(cmd), g)
		}
		fmt.Fprintf(out(cmd), "Tracking %s %s goal %s (%s to %s)\n",
			g.Period, g.Metric, g.ID, g.PeriodStart.Format("2006-01-02"), g.PeriodEnd.Format("2006-01-02"))
		return nil
	})
}

func runGoalsTracked(cmd *cobra.Command, args []string) error {
	return withDaemon(func(d *daemon.Daemon) error {
		sum, err := d.Engine.Goals.TrackedSummary(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out(cmd), sum)
		}
		if sum.TotalGoals == 0 {
			fmt.Fprintln(out(cmd), "No tracked goals. Run 'tally goals track' to add one.")
			return nil
		}
		w := newTable(out(cmd))
		fmt.Fprintln(w, "ID\tPERIOD\tMETRIC\tPROGRESS\tENDS")
		for _, g := range sum.Goals {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", g.ID, g.Period, g.Metric,
				ratioBar(g.Current, g.Target), g.PeriodEnd.Format("2006-01-02"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "%d of %d completed\n", sum.CompletedGoals, sum.TotalGoals)
		return nil
	})
}

func runGoalsUntrack(cmd *cobra.Command, args []string) error {
	return withDaemon(func(d *daemon.Daemon) error {
		if err := d.Engine.Goals.UntrackGoal(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "Deleted goal %s\n", args[0])
		return nil
	})
}
