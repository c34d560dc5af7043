package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutu-network/tally/internal/daemon"
	"github.com/tutu-network/tally/internal/domain"
)

func init() {
	reportCmd.Flags().IntVarP(&reportDays, "days", "d", 7, "Report the last N days")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "Start day (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "End day (YYYY-MM-DD)")
	rootCmd.AddCommand(reportCmd)

	rootCmd.AddCommand(statusCmd)
}

var (
	reportDays int
	reportFrom string
	reportTo   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize productivity over a date range",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show points, level, streak and today's progress",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runReport(cmd *cobra.Command, args []string) error {
	from, err := parseDayFlag("from", reportFrom)
	if err != nil {
		return err
	}
	to, err := parseDayFlag("to", reportTo)
	if err != nil {
		return err
	}

	return withDaemon(func(d *daemon.Daemon) error {
		var rep domain.Report
		switch {
		case from.IsZero() && to.IsZero():
			rep, err = d.Engine.Analytics.LastDays(cmd.Context(), reportDays)
		case from.IsZero() || to.IsZero():
			return fmt.Errorf("--from and --to must be used together")
		default:
			rep, err = d.Engine.Analytics.Report(cmd.Context(), from, to)
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out(cmd), rep)
		}
		return printReport(cmd, rep)
	})
}

func printReport(cmd *cobra.Command, rep domain.Report) error {
	o := out(cmd)
	fmt.Fprintf(o, "Report %s to %s (%s)\n\n", rep.From.Format(time.DateOnly), rep.To.Format(time.DateOnly), plural(rep.Days, "day"))

	t := rep.Totals
	w := newTable(o)
	fmt.Fprintf(w, "Tasks completed\t%d\t(%.1f/day)\n", t.TasksCompleted, rep.AvgTasksPerDay)
	fmt.Fprintf(w, "Tasks created\t%d\t\n", t.TasksCreated)
	fmt.Fprintf(w, "Points earned\t%d\t(base %d, streak %d, goal %d, extra %d)\n",
		t.PointsEarned, t.BasePoints, t.StreakBonus, t.DailyGoalBonus, t.ExtraBonus)
	fmt.Fprintf(w, "Penalties\t-%d\t\n", t.PenaltiesIncurred)
	fmt.Fprintf(w, "Active days\t%d\t\n", t.ActiveDays)
	fmt.Fprintf(w, "Daily goal met\t%d\t(%.0f%%, best run %d)\n", rep.Goals.DaysMet, rep.Goals.Rate, rep.Goals.BestStreak)
	fmt.Fprintf(w, "Trend\t%s\t\n", rep.Trend)
	fmt.Fprintf(w, "Productivity\t%.0f/100\t\n", rep.Productivity.Total)
	if err := w.Flush(); err != nil {
		return err
	}

	if len(rep.Categories.Stats) > 0 {
		fmt.Fprintln(o)
		w = newTable(o)
		fmt.Fprintln(w, "CATEGORY\tTASKS\tSHARE\tPOINTS")
		for _, c := range rep.Categories.Stats {
			fmt.Fprintf(w, "%s\t%d\t%.0f%%\t%d\n", c.Category, c.Count, c.Percentage, c.Points)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if len(rep.Insights) > 0 {
		fmt.Fprintln(o)
		for _, in := range rep.Insights {
			fmt.Fprintf(o, "* %s\n", in)
		}
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withDaemon(func(d *daemon.Daemon) error {
		st, err := d.Engine.Scoring.Status(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out(cmd), st)
		}

		s := st.Stats
		w := newTable(out(cmd))
		fmt.Fprintf(w, "Points\t%d\n", s.TotalPoints)
		if st.MaxLevel {
			fmt.Fprintf(w, "Level\t%d (max)\n", s.Level)
		} else {
			fmt.Fprintf(w, "Level\t%d  %s  %d to next\n", s.Level, progressBar(st.LevelProgress), s.PointsToNextLevel)
		}
		fmt.Fprintf(w, "Streak\t%s (longest %d)\n", plural(s.CurrentStreakDays, "day"), s.LongestStreakDays)
		fmt.Fprintf(w, "Today\t%s  +%d points\n", ratioBar(st.Daily.Completed, st.Daily.Goal), st.Today.TotalPointsEarned)
		fmt.Fprintf(w, "Completed\t%d of %d created\n", s.TotalTasksCompleted, s.TotalTasksCreated)
		fmt.Fprintf(w, "Achievements\t%d\n", s.AchievementsUnlocked)
		return w.Flush()
	})
}
