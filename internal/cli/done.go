package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutu-network/tally/internal/daemon"
	"github.com/tutu-network/tally/internal/domain"
)

func init() {
	doneCmd.Flags().StringVarP(&doneSize, "size", "s", "medium", "Task size: small, medium or large")
	doneCmd.Flags().StringVarP(&doneCategory, "category", "c", "", "Task category")
	doneCmd.Flags().BoolVar(&doneBonus, "bonus", false, "Treat the category as bonus eligible")
	doneCmd.Flags().BoolVar(&doneOverdue, "overdue", false, "The task was completed after its due date")
	doneCmd.Flags().StringVar(&doneDate, "date", "", "Completion day (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(doneCmd)

	createdCmd.Flags().StringVar(&createdDate, "date", "", "Creation day (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(createdCmd)
}

var (
	doneSize     string
	doneCategory string
	doneBonus    bool
	doneOverdue  bool
	doneDate     string
	createdDate  string
)

var doneCmd = &cobra.Command{
	Use:   "done [TASK_ID]",
	Short: "Record a completed task and award points",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDone,
}

var createdCmd = &cobra.Command{
	Use:   "created",
	Short: "Count a newly created task",
	Args:  cobra.NoArgs,
	RunE:  runCreated,
}

func runDone(cmd *cobra.Command, args []string) error {
	day, err := parseDayFlag("date", doneDate)
	if err != nil {
		return err
	}
	ev := domain.CompletionEvent{
		Size:          domain.ParseTaskSize(doneSize),
		Category:      doneCategory,
		CategoryBonus: doneBonus,
		Overdue:       doneOverdue,
		Date:          day,
	}
	if len(args) == 1 {
		ev.TaskID = args[0]
	}

	return withDaemon(func(d *daemon.Daemon) error {
		res, unlocked, err := d.Engine.Complete(cmd.Context(), ev)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out(cmd), map[string]any{"result": res, "achievements": unlocked})
		}
		printCompletion(cmd, res, unlocked)
		return nil
	})
}

func printCompletion(cmd *cobra.Command, res domain.CompletionResult, unlocked []domain.UnlockedAchievement) {
	w := out(cmd)
	p := res.Points
	fmt.Fprintf(w, "+%d points (base %d", res.TotalPoints, p.Base)
	if p.StreakBonus > 0 {
		fmt.Fprintf(w, ", streak +%d", p.StreakBonus)
	}
	if p.DailyGoalBonus > 0 {
		fmt.Fprintf(w, ", daily goal +%d", p.DailyGoalBonus)
	}
	if p.CategoryBonus > 0 {
		fmt.Fprintf(w, ", category +%d", p.CategoryBonus)
	}
	if p.OverdueBonus > 0 {
		fmt.Fprintf(w, ", recovery +%d", p.OverdueBonus)
	}
	fmt.Fprintln(w, ")")

	fmt.Fprintf(w, "Streak: %s  Level: %d  Total: %d\n", plural(res.Streak, "day"), res.Level, res.Stats.TotalPoints)
	if res.LeveledUp {
		fmt.Fprintf(w, "Level up! You reached level %d.\n", res.Level)
	}
	if res.DailyGoalCrossed {
		fmt.Fprintln(w, "Daily goal reached!")
	}
	for _, a := range unlocked {
		fmt.Fprintf(w, "Achievement unlocked: %s %s (+%d)\n", a.Icon, a.Name, a.BonusPoints)
	}
}

func runCreated(cmd *cobra.Command, args []string) error {
	day, err := parseDayFlag("date", createdDate)
	if err != nil {
		return err
	}
	return withDaemon(func(d *daemon.Daemon) error {
		act, err := d.Engine.Scoring.RecordCreated(cmd.Context(), day)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out(cmd), act)
		}
		fmt.Fprintf(out(cmd), "%s created on %s\n", plural(act.TasksCreated, "task"), act.Date.Format(time.DateOnly))
		return nil
	})
}
