// Package cli implements the tally command-line interface using Cobra.
// Each subcommand maps to one scoring engine operation.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "tally",
	Short: "tally: points, streaks and levels for your task list",
	Long: `tally turns completed tasks into points.
Streaks, daily goals and achievements add bonuses, overdue tasks cost points,
and reports show how your productivity is trending.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
