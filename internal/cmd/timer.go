package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/projdock/internal/models"
	"github.com/harrison/projdock/internal/store"
	"github.com/harrison/projdock/internal/telemetry"
)

// NewTimerCommand creates the 'projdock timer' parent command
func NewTimerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timer",
		Short: "Track time spent on projects",
		Long: `A single stopwatch. Starting a timer while one is running is an error;
stop it first.`,
	}

	cmd.AddCommand(newTimerStartCommand())
	cmd.AddCommand(newTimerStopCommand())
	cmd.AddCommand(newTimerStatusCommand())
	cmd.AddCommand(newTimerReportCommand())

	return cmd
}

func newTimerStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start [number]",
		Short: "Start the timer, optionally for a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, a *app, st *store.Store) error {
			ctx := cmd.Context()
			label, _ := cmd.Flags().GetString("label")

			var p *models.Project
			if len(args) == 1 {
				var err error
				if p, err = a.resolveProject(ctx, st, args[0]); err != nil {
					return err
				}
			}
			var projectID int64
			if p != nil {
				projectID = p.ID
			}

			session, err := st.StartTimer(ctx, projectID, label)
			if errors.Is(err, store.ErrTimerRunning) {
				running, _ := st.ActiveTimer(ctx)
				if running != nil {
					return fmt.Errorf("timer already running since %s (run \"projdock timer stop\" first)",
						running.StartedAt.Local().Format("15:04"))
				}
			}
			if err != nil {
				return err
			}

			a.record(ctx, telemetry.EventTimerStart, map[string]any{"project": projectID != 0})
			what := "timer"
			if p != nil {
				what = p.DisplayName()
			}
			fmt.Fprintf(a.out, "Started %s at %s\n", what, session.StartedAt.Local().Format("15:04"))
			return nil
		}),
	}
	cmd.Flags().String("label", "", "Label for the session")
	return cmd
}

func newTimerStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running timer",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, _ []string, a *app, st *store.Store) error {
			ctx := cmd.Context()
			session, err := st.StopTimer(ctx)
			if errors.Is(err, store.ErrNoActiveTimer) {
				return errors.New("no timer is running")
			}
			if err != nil {
				return err
			}
			d := session.Duration(time.Now())
			a.record(ctx, telemetry.EventTimerStop, map[string]any{"seconds": int64(d.Seconds())})
			fmt.Fprintf(a.out, "Stopped after %s\n", formatElapsed(d))
			return nil
		}),
	}
}

func newTimerStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running timer",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, _ []string, a *app, st *store.Store) error {
			ctx := cmd.Context()
			session, err := st.ActiveTimer(ctx)
			if errors.Is(err, store.ErrNoActiveTimer) {
				fmt.Fprintln(a.out, "No timer running")
				return nil
			}
			if err != nil {
				return err
			}

			line := fmt.Sprintf("Running %s (since %s)", formatElapsed(session.Duration(time.Now())),
				session.StartedAt.Local().Format("2006-01-02 15:04"))
			if session.ProjectID != 0 {
				if p, err := st.GetProject(ctx, session.ProjectID); err == nil {
					line += "  " + p.DisplayName()
				}
			}
			if session.Label != "" {
				line += "  [" + session.Label + "]"
			}
			fmt.Fprintln(a.out, line)
			return nil
		}),
	}
}

func newTimerReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Total tracked time per project",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, _ []string, a *app, st *store.Store) error {
			days, _ := cmd.Flags().GetInt("days")
			if days < 0 {
				return fmt.Errorf("--days must be >= 0, got %d", days)
			}
			since := time.Time{}
			if days > 0 {
				since = time.Now().AddDate(0, 0, -days)
			}

			totals, err := st.TimerReport(cmd.Context(), since)
			if err != nil {
				return err
			}
			if len(totals) == 0 {
				fmt.Fprintln(a.out, "No tracked time")
				return nil
			}

			var sum time.Duration
			for _, t := range totals {
				name := t.Folder
				if t.ProjectID == 0 || name == "" {
					name = "(no project)"
				}
				fmt.Fprintf(a.out, "%10s  %3d session(s)  %s\n", formatElapsed(t.Duration), t.Sessions, name)
				sum += t.Duration
			}
			fmt.Fprintf(a.out, "%10s  total\n", formatElapsed(sum))
			return nil
		}),
	}
	cmd.Flags().Int("days", 7, "Report the last N days (0 = all time)")
	return cmd
}

// formatElapsed renders a duration as 1h05m or 12m30s
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
