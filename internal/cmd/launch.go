package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harrison/projdock/internal/models"
	"github.com/harrison/projdock/internal/store"
	"github.com/harrison/projdock/internal/telemetry"
)

// NewLaunchCommand creates the 'projdock launch' parent command
func NewLaunchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "launch",
		Aliases: []string{"ql"},
		Short:   "Named shortcuts to folders, files and URLs",
	}

	cmd.AddCommand(newLaunchAddCommand())
	cmd.AddCommand(newLaunchListCommand())
	cmd.AddCommand(newLaunchRemoveCommand())
	cmd.AddCommand(newLaunchRunCommand())

	return cmd
}

func newLaunchAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "add <name> <target>",
		Short:   "Add or replace a shortcut",
		Example: `  projdock launch add standards "P:\Standards\CAD"
  projdock launch add timesheet https://intranet.example.com/timesheet`,
		Args: cobra.ExactArgs(2),
		RunE: withStore(func(cmd *cobra.Command, args []string, a *app, st *store.Store) error {
			q := &models.QuickLaunch{Name: args[0], Target: args[1]}
			if err := st.PutQuickLaunch(cmd.Context(), q); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved %s -> %s\n", q.Name, q.Target)
			return nil
		}),
	}
}

func newLaunchListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List shortcuts",
		Args:    cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, _ []string, a *app, st *store.Store) error {
			entries, err := st.ListQuickLaunch(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.out, "No quick launch entries")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, q := range entries {
				fmt.Fprintf(tw, "%s\t%s\n", q.Name, q.Target)
			}
			return tw.Flush()
		}),
	}
}

func newLaunchRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   "Delete a shortcut",
		Args:    cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, a *app, st *store.Store) error {
			err := st.DeleteQuickLaunch(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no quick launch entry named %q", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s\n", args[0])
			return nil
		}),
	}
}

func newLaunchRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <name>",
		Short: "Open a shortcut's target",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, a *app, st *store.Store) error {
			ctx := cmd.Context()
			q, err := st.GetQuickLaunch(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no quick launch entry named %q", args[0])
			}
			if err != nil {
				return err
			}
			if err := a.opener.Open(ctx, q.Target); err != nil {
				return err
			}
			a.record(ctx, telemetry.EventQuickLaunch, map[string]any{"name": q.Name})
			fmt.Fprintf(a.out, "Opened %s\n", q.Target)
			return nil
		}),
	}
}
