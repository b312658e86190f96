package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/harrison/projdock/internal/store"
)

// NewStatsCommand creates the 'projdock stats' command
func NewStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database and usage statistics",
		Long: `Summarize stored projects, tags and local usage events. With --purge,
events older than telemetry.keep_days are deleted first.`,
		Args: cobra.NoArgs,
		RunE: withStore(runStats),
	}

	cmd.Flags().Int("days", 30, "Count events from the last N days (0 = all time)")
	cmd.Flags().Bool("purge", false, "Delete events older than telemetry.keep_days")

	return cmd
}

func runStats(cmd *cobra.Command, _ []string, a *app, st *store.Store) error {
	ctx := cmd.Context()
	days, _ := cmd.Flags().GetInt("days")
	purge, _ := cmd.Flags().GetBool("purge")
	if days < 0 {
		return fmt.Errorf("--days must be >= 0, got %d", days)
	}

	if purge {
		n, err := a.telemetry.Purge(ctx)
		if err != nil {
			return err
		}
		if a.cfg.Telemetry.KeepDays <= 0 {
			fmt.Fprintln(a.out, "telemetry.keep_days is 0; nothing purged")
		} else {
			fmt.Fprintf(a.out, "Purged %d event(s) older than %d days\n", n, a.cfg.Telemetry.KeepDays)
		}
	}

	projects, err := st.ListProjects(ctx, store.ProjectFilter{})
	if err != nil {
		return err
	}
	pinned := 0
	for i := range projects {
		if projects[i].Pinned {
			pinned++
		}
	}
	fmt.Fprintf(a.out, "Projects: %d (%d pinned)\n", len(projects), pinned)

	tags, err := st.TagCounts(ctx)
	if err != nil {
		return err
	}
	if len(tags) > 0 {
		fmt.Fprintln(a.out, "\nTags:")
		writeCounts(a, tags)
	}

	if !a.telemetry.Enabled() {
		fmt.Fprintln(a.out, "\nTelemetry is disabled")
		return nil
	}
	counts, err := a.telemetry.Counts(ctx, days)
	if err != nil {
		return err
	}
	if days > 0 {
		fmt.Fprintf(a.out, "\nEvents (last %d days):\n", days)
	} else {
		fmt.Fprintln(a.out, "\nEvents:")
	}
	if len(counts) == 0 {
		fmt.Fprintln(a.out, "  none")
		return nil
	}
	writeCounts(a, counts)
	return nil
}

// writeCounts prints name/count pairs, highest first
func writeCounts(a *app, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		fmt.Fprintf(a.out, "  %-16s %d\n", name, counts[name])
	}
}
