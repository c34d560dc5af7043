package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tutu-network/tally/internal/app/ledger"
	"github.com/tutu-network/tally/internal/daemon"
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries")
	historyCmd.Flags().BoolVar(&historyVerify, "verify", false, "Check that the ledger matches the point total")
	rootCmd.AddCommand(historyCmd)

	notificationsCmd.Flags().IntVarP(&notifLimit, "limit", "n", 20, "Number of notifications")
	notificationsCmd.Flags().BoolVar(&notifMark, "mark-shown", false, "Mark listed notifications as shown")
	rootCmd.AddCommand(notificationsCmd)
}

var (
	historyLimit  int
	historyVerify bool
	notifLimit    int
	notifMark     bool
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"ledger"},
	Short:   "Show the points ledger",
	Args:    cobra.NoArgs,
	RunE:    runHistory,
}

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notify"},
	Short:   "Show pending notifications",
	Args:    cobra.NoArgs,
	RunE:    runNotifications,
}

func runHistory(cmd *cobra.Command, args []string) error {
	return withDaemon(func(d *daemon.Daemon) error {
		if historyVerify {
			rec, err := d.Ledger.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(out(cmd), rec)
			}
			if !rec.Balanced {
				return fmt.Errorf("%w: ledger %d, total %d", ledger.ErrUnbalanced, rec.LedgerSum, rec.TotalPoints)
			}
			fmt.Fprintf(out(cmd), "Ledger balanced at %d points\n", rec.TotalPoints)
			return nil
		}

		entries, err := d.Ledger.History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out(cmd), entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out(cmd), "No points recorded yet. Run 'tally done' to get started.")
			return nil
		}
		w := newTable(out(cmd))
		fmt.Fprintln(w, "TIME\tKIND\tAMOUNT\tBALANCE\tDESCRIPTION")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%+d\t%d\t%s\n",
				e.Timestamp.Local().Format("2006-01-02 15:04"), e.Kind, e.Amount, e.Balance, e.Description)
		}
		return w.Flush()
	})
}

func runNotifications(cmd *cobra.Command, args []string) error {
	return withDaemon(func(d *daemon.Daemon) error {
		notifs, err := d.Engine.Notifications.Pending(cmd.Context(), notifLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			if err := printJSON(out(cmd), notifs); err != nil {
				return err
			}
		} else if len(notifs) == 0 {
			fmt.Fprintln(out(cmd), "No new notifications.")
		} else {
			for _, n := range notifs {
				fmt.Fprintf(out(cmd), "[%s] %s\n", n.CreatedAt.Local().Format("Jan 2 15:04"), n.Title)
				if n.Body != "" {
					fmt.Fprintf(out(cmd), "    %s\n", n.Body)
				}
			}
		}

		if notifMark {
			for _, n := range notifs {
				if err := d.Engine.Notifications.MarkShown(cmd.Context(), n.ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
