package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tutu-network/tally/internal/daemon"
	"github.com/tutu-network/tally/internal/domain"
)

func init() {
	achievementsCmd.Flags().BoolVarP(&achievementsAll, "all", "a", false, "Include locked achievements")
	achievementsCmd.AddCommand(achievementsCheckCmd)
	rootCmd.AddCommand(achievementsCmd)
}

var achievementsAll bool

var achievementsCmd = &cobra.Command{
	Use:     "achievements",
	Aliases: []string{"ach"},
	Short:   "Show achievement progress",
	Args:    cobra.NoArgs,
	RunE:    runAchievements,
}

var achievementsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Unlock any achievements whose requirements are met",
	Args:  cobra.NoArgs,
	RunE:  runAchievementsCheck,
}

func runAchievements(cmd *cobra.Command, args []string) error {
	return withDaemon(func(d *daemon.Daemon) error {
		progress, err := d.Engine.Achievements.Progress(cmd.Context())
		if err != nil {
			return err
		}
		sum, err := d.Engine.Achievements.Summary(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out(cmd), map[string]any{"summary": sum, "achievements": progress})
		}
		return printAchievements(cmd, progress, sum)
	})
}

func printAchievements(cmd *cobra.Command, progress []domain.AchievementProgress, sum domain.AchievementSummary) error {
	fmt.Fprintf(out(cmd), "Unlocked %d of %d (%.0f%%)\n\n", sum.TotalUnlocked, sum.TotalPossible, sum.CompletionPct)

	w := newTable(out(cmd))
	fmt.Fprintln(w, "\tNAME\tPROGRESS\tBONUS\tUNLOCKED")
	for _, p := range progress {
		if !achievementsAll && !p.Unlocked {
			continue
		}
		when := "-"
		if p.Unlocked {
			when = p.UnlockedAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t+%d\t%s\n", p.Icon, p.Name, min(p.Current, p.Value), p.Value, p.BonusPoints, when)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if sum.NextMilestone != nil {
		m := sum.NextMilestone
		fmt.Fprintf(out(cmd), "\nNext: %s %s  %s\n", m.Icon, m.Name, ratioBar(m.Current, m.Value))
	}
	return nil
}

func runAchievementsCheck(cmd *cobra.Command, args []string) error {
	return withDaemon(func(d *daemon.Daemon) error {
		unlocked, err := d.Engine.Achievements.CheckAndUnlock(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out(cmd), unlocked)
		}
		if len(unlocked) == 0 {
			fmt.Fprintln(out(cmd), "No new achievements.")
			return nil
		}
		for _, a := range unlocked {
			fmt.Fprintf(out(cmd), "Achievement unlocked: %s %s (+%d)\n", a.Icon, a.Name, a.BonusPoints)
		}
		return nil
	})
}
