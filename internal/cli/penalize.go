package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tutu-network/tally/internal/daemon"
)

func init() {
	rootCmd.AddCommand(penalizeCmd)
}

var penalizeCmd = &cobra.Command{
	Use:   "penalize ID=YYYY-MM-DD...",
	Short: "Deduct points for overdue tasks",
	Long: `Deduct one point per day overdue, at most 5 per task.
Each task is penalized at most once per day, and points never drop below zero.`,
	Example: "  tally penalize report=2025-01-03 taxes=2025-01-05",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runPenalize,
}

func runPenalize(cmd *cobra.Command, args []string) error {
	tasks, err := parseOverdue(args)
	if err != nil {
		return err
	}
	return withDaemon(func(d *daemon.Daemon) error {
		report, err := d.Engine.Penalties.Apply(cmd.Context(), tasks)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out(cmd), report)
		}

		if len(report.Applied) == 0 {
			fmt.Fprintln(out(cmd), "No penalties applied.")
			return nil
		}
		w := newTable(out(cmd))
		fmt.Fprintln(w, "TASK\tDAYS OVERDUE\tPENALTY")
		for _, p := range report.Applied {
			fmt.Fprintf(w, "%s\t%d\t-%d\n", p.TaskID, p.DaysOverdue, p.Points)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "Deducted %d of %d points (%d skipped)\n", report.Deducted, report.Total, report.Skipped)
		return nil
	})
}
