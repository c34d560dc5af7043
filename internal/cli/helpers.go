package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutu-network/tally/internal/daemon"
	"github.com/tutu-network/tally/internal/domain"
)

// withDaemon opens the daemon for the duration of fn.
func withDaemon(fn func(d *daemon.Daemon) error) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(d)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// parseDayFlag parses an optional YYYY-MM-DD flag value.
func parseDayFlag(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	d, err := domain.ParseDay(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", name, v)
	}
	return d, nil
}

// parseOverdue parses "ID=YYYY-MM-DD" arguments.
func parseOverdue(args []string) ([]domain.OverdueTask, error) {
	tasks := make([]domain.OverdueTask, 0, len(args))
	for _, a := range args {
		id, due, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid task %q: expected ID=YYYY-MM-DD", a)
		}
		d, err := domain.ParseDay(due)
		if err != nil {
			return nil, fmt.Errorf("invalid due date in %q: %w", a, err)
		}
		tasks = append(tasks, domain.OverdueTask{ID: strings.TrimSpace(id), DueDate: d})
	}
	return tasks, nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
