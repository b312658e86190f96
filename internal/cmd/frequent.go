package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/projdock/internal/display"
	"github.com/harrison/projdock/internal/store"
)

// NewFrequentCommand creates the 'projdock frequent' command
func NewFrequentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frequent",
		Short: "List the most opened projects",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, _ []string, a *app, st *store.Store) error {
			limit, _ := cmd.Flags().GetInt("limit")
			frequent, err := st.FrequentProjects(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(frequent) == 0 {
				fmt.Fprintln(a.out, "No projects opened yet")
				return nil
			}
			for i := range frequent {
				f := &frequent[i]
				fmt.Fprintf(a.out, "%4d  %s  %s\n", f.Count,
					f.LastOpened.Local().Format("2006-01-02"),
					display.ProjectLine(&f.Project, nil, a.colorize))
			}
			return nil
		}),
	}
	cmd.Flags().IntP("limit", "n", 10, "Number of projects")
	return cmd
}
