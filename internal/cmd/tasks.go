package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/projdock/internal/models"
	"github.com/harrison/projdock/internal/store"
	"github.com/harrison/projdock/internal/telemetry"
)

// shortIDLen is how much of a task UUID is printed; any unique prefix works
// as an argument
const shortIDLen = 8

// NewTasksCommand creates the 'projdock tasks' parent command
func NewTasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "Quick to-do list, optionally linked to projects",
	}

	cmd.AddCommand(newTasksAddCommand())
	cmd.AddCommand(newTasksListCommand())
	cmd.AddCommand(newTasksDoneCommand())
	cmd.AddCommand(newTasksRemoveCommand())

	return cmd
}

func newTasksAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a task",
		Example: `  projdock tasks add send panel schedule to contractor --project 638.001 --due 2025-03-14
  projdock tasks add renew plotter lease`,
		Args: cobra.MinimumNArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, a *app, st *store.Store) error {
			ctx := cmd.Context()
			number, _ := cmd.Flags().GetString("project")
			due, _ := cmd.Flags().GetString("due")

			task := &models.Task{Title: joinArgs(args)}
			if number != "" {
				p, err := a.resolveProject(ctx, st, number)
				if err != nil {
					return err
				}
				task.ProjectID = p.ID
			}
			if due != "" {
				t, err := parseDate(due)
				if err != nil {
					return err
				}
				task.DueAt = &t
			}

			if err := st.AddTask(ctx, task); err != nil {
				return err
			}
			a.record(ctx, telemetry.EventTaskAdd, map[string]any{
				"project": task.ProjectID != 0,
				"due":     task.DueAt != nil,
			})
			fmt.Fprintf(a.out, "Added %s  %s\n", shortID(task.ID), task.Title)
			return nil
		}),
	}
	cmd.Flags().String("project", "", "Link the task to a project number")
	cmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	return cmd
}

func newTasksListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List open tasks",
		Args:    cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, _ []string, a *app, st *store.Store) error {
			ctx := cmd.Context()
			all, _ := cmd.Flags().GetBool("all")

			tasks, err := st.ListTasks(ctx, all)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(a.out, "No tasks")
				return nil
			}

			projects := map[int64]*models.Project{}
			now := time.Now()
			for i := range tasks {
				t := &tasks[i]
				mark := "[ ]"
				if t.Done {
					mark = "[x]"
				}

				var extra []string
				if t.DueAt != nil {
					due := "due " + t.DueAt.Format("2006-01-02")
					if t.Overdue(now) {
						due = "OVERDUE " + t.DueAt.Format("2006-01-02")
						if a.colorize {
							due = color.New(color.FgRed, color.Bold).Sprint(due)
						}
					}
					extra = append(extra, due)
				}
				if t.ProjectID != 0 {
					p, ok := projects[t.ProjectID]
					if !ok {
						p, _ = st.GetProject(ctx, t.ProjectID)
						projects[t.ProjectID] = p
					}
					if p != nil {
						extra = append(extra, p.FullNumber)
					}
				}

				line := fmt.Sprintf("%s %s  %s", mark, shortID(t.ID), t.Title)
				if len(extra) > 0 {
					line += "  (" + strings.Join(extra, ", ") + ")"
				}
				fmt.Fprintln(a.out, line)
			}
			return nil
		}),
	}
	cmd.Flags().BoolP("all", "a", false, "Include completed tasks")
	return cmd
}

func newTasksDoneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task complete (any unique id prefix)",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, a *app, st *store.Store) error {
			task, err := st.CompleteTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Completed %s  %s\n", shortID(task.ID), task.Title)
			return nil
		}),
	}
}

func newTasksRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Delete a task (any unique id prefix)",
		Args:    cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, a *app, st *store.Store) error {
			if err := st.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s\n", args[0])
			return nil
		}),
	}
}

// parseDate reads YYYY-MM-DD in local time, due at the end of that day
func parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d.Add(24*time.Hour - time.Second).UTC(), nil
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}
