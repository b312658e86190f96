package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/projdock/internal/display"
	"github.com/harrison/projdock/internal/filelock"
	"github.com/harrison/projdock/internal/models"
	"github.com/harrison/projdock/internal/store"
)

// NewProjectsCommand creates the 'projdock projects' parent command
func NewProjectsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"proj"},
		Short:   "List and manage stored projects",
		Long: `Commands for listing stored projects and managing their tags, pins and
metadata. Projects are addressed by number: the full number
("2024638.001"), its digits ("2024638001"), or a unique short number
("638.001").`,
	}

	cmd.AddCommand(newProjectsListCommand())
	cmd.AddCommand(newProjectsShowCommand())
	cmd.AddCommand(newProjectsTagCommand())
	cmd.AddCommand(newProjectsUntagCommand())
	cmd.AddCommand(newProjectsPinCommand(true))
	cmd.AddCommand(newProjectsPinCommand(false))
	cmd.AddCommand(newProjectsOpenCommand())
	cmd.AddCommand(newProjectsMetaCommand())
	cmd.AddCommand(newProjectsExportCommand())

	return cmd
}

func addProjectFilterFlags(cmd *cobra.Command) {
	cmd.Flags().Int("year", 0, "Only projects from this year")
	cmd.Flags().String("tag", "", "Only projects with this tag")
	cmd.Flags().Bool("pinned", false, "Only pinned projects")
	cmd.Flags().String("root", "", "Only projects under this root")
	cmd.Flags().IntP("limit", "n", 0, "Maximum projects (0 = all)")
}

func projectFilterFromFlags(cmd *cobra.Command) store.ProjectFilter {
	var f store.ProjectFilter
	f.Year, _ = cmd.Flags().GetInt("year")
	f.Tag, _ = cmd.Flags().GetString("tag")
	f.Tag = strings.TrimPrefix(f.Tag, "#")
	f.PinnedOnly, _ = cmd.Flags().GetBool("pinned")
	f.Root, _ = cmd.Flags().GetString("root")
	f.Limit, _ = cmd.Flags().GetInt("limit")
	return f
}

func newProjectsListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored projects newest first",
		Args:    cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, _ []string, a *app, st *store.Store) error {
			projects, err := st.ListProjects(cmd.Context(), projectFilterFromFlags(cmd))
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(a.out, "No projects found")
				return nil
			}
			for i := range projects {
				fmt.Fprintln(a.out, display.ProjectLine(&projects[i], nil, a.colorize))
			}
			return nil
		}),
	}
	addProjectFilterFlags(cmd)
	return cmd
}

func newProjectsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <number>",
		Short: "Show a project's details, metadata and document summary",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, a *app, st *store.Store) error {
			ctx := cmd.Context()
			p, err := a.resolveProject(ctx, st, args[0])
			if err != nil {
				return err
			}

			launches, err := st.LaunchCounts(ctx)
			if err != nil {
				return err
			}
			meta, err := st.GetMetadata(ctx, p.ID)
			if err != nil {
				return err
			}

			w := a.out
			fmt.Fprintln(w, display.ProjectLine(p, nil, a.colorize))
			fmt.Fprintf(w, "Path:     %s\n", p.Path)
			fmt.Fprintf(w, "Root:     %s\n", p.Root)
			fmt.Fprintf(w, "Year:     %d\n", p.Year)
			if len(p.Tags) > 0 {
				fmt.Fprintf(w, "Tags:     %s\n", strings.Join(p.Tags, ", "))
			}
			fmt.Fprintf(w, "Pinned:   %t\n", p.Pinned)
			fmt.Fprintf(w, "Launches: %d\n", launches[p.ID])
			if !p.ModifiedAt.IsZero() {
				fmt.Fprintf(w, "Modified: %s\n", p.ModifiedAt.Local().Format("2006-01-02 15:04"))
			}

			if len(meta) > 0 {
				keys := make([]string, 0, len(meta))
				for k := range meta {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				fmt.Fprintln(w, "Metadata:")
				for _, k := range keys {
					fmt.Fprintf(w, "  %s = %s\n", k, meta[k])
				}
			}

			idx, err := st.GetDocumentIndex(ctx, p.ID)
			switch {
			case errors.Is(err, store.ErrNotFound):
				fmt.Fprintln(w, `Documents: not indexed (run "projdock docs `+p.FullNumber+`")`)
			case err != nil:
				return err
			default:
				display.WriteIndexSummary(w, idx)
			}
			return nil
		}),
	}
}

func newProjectsTagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tag <number> <tag>...",
		Short: "Add tags to a project",
		Args:  cobra.MinimumNArgs(2),
		RunE: withStore(func(cmd *cobra.Command, args []string, a *app, st *store.Store) error {
			ctx := cmd.Context()
			p, err := a.resolveProject(ctx, st, args[0])
			if err != nil {
				return err
			}
			if err := st.AddTags(ctx, p.ID, args[1:]...); err != nil {
				return err
			}
			updated, err := st.GetProject(ctx, p.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, display.ProjectLine(updated, nil, a.colorize))
			return nil
		}),
	}
}

func newProjectsUntagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "untag <number> <tag>...",
		Short: "Remove tags from a project",
		Args:  cobra.MinimumNArgs(2),
		RunE: withStore(func(cmd *cobra.Command, args []string, a *app, st *store.Store) error {
			ctx := cmd.Context()
			p, err := a.resolveProject(ctx, st, args[0])
			if err != nil {
				return err
			}
			n, err := st.RemoveTags(ctx, p.ID, args[1:]...)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %d tag(s) from %s\n", n, p.FullNumber)
			return nil
		}),
	}
}

func newProjectsPinCommand(pin bool) *cobra.Command {
	use, short, verb := "pin <number>...", "Pin projects to the top of empty searches", "Pinned"
	if !pin {
		use, short, verb = "unpin <number>...", "Unpin projects", "Unpinned"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, a *app, st *store.Store) error {
			ctx := cmd.Context()
			for _, number := range args {
				p, err := a.resolveProject(ctx, st, number)
				if err != nil {
					return err
				}
				if err := st.SetPinned(ctx, p.ID, pin); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s %s\n", verb, p.DisplayName())
			}
			return nil
		}),
	}
}

func newProjectsOpenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "open <number>",
		Short: "Open a project folder and count the launch",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, a *app, st *store.Store) error {
			ctx := cmd.Context()
			p, err := a.resolveProject(ctx, st, args[0])
			if err != nil {
				return err
			}
			if err := a.openProject(ctx, st, p); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Opened %s\n", p.Path)
			return nil
		}),
	}
}

func newProjectsMetaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meta <number> [key [value...]]",
		Short: "Show, set or delete project metadata",
		Long: `With only a number, print the project's metadata. With a key, print
that value. With a key and value, set it. --delete removes the key.`,
		Example: `  projdock projects meta 2024638.001 client "Palm Beach County"
  projdock projects meta 2024638.001 client
  projdock projects meta 2024638.001 client --delete`,
		Args: cobra.MinimumNArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, a *app, st *store.Store) error {
			ctx := cmd.Context()
			del, _ := cmd.Flags().GetBool("delete")

			p, err := a.resolveProject(ctx, st, args[0])
			if err != nil {
				return err
			}

			switch {
			case del:
				if len(args) != 2 {
					return errors.New("--delete needs exactly one key")
				}
				if err := st.DeleteMetadata(ctx, p.ID, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted %s from %s\n", args[1], p.FullNumber)
				return nil

			case len(args) >= 3:
				value := strings.Join(args[2:], " ")
				if err := st.SetMetadata(ctx, p.ID, args[1], value); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s = %s\n", args[1], value)
				return nil
			}

			meta, err := st.GetMetadata(ctx, p.ID)
			if err != nil {
				return err
			}
			if len(args) == 2 {
				value, ok := meta[args[1]]
				if !ok {
					return fmt.Errorf("%s has no %q metadata: %w", p.FullNumber, args[1], store.ErrNotFound)
				}
				fmt.Fprintln(a.out, value)
				return nil
			}

			keys := make([]string, 0, len(meta))
			for k := range meta {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(a.out, "%s = %s\n", k, meta[k])
			}
			return nil
		}),
	}
	cmd.Flags().Bool("delete", false, "Delete the key")
	return cmd
}

// exportedProject is one record of 'projects export'
type exportedProject struct {
	Number     string            `json:"number"`
	Name       string            `json:"name"`
	Year       int               `json:"year"`
	Path       string            `json:"path"`
	Root       string            `json:"root"`
	Tags       []string          `json:"tags"`
	Pinned     bool              `json:"pinned"`
	Launches   int               `json:"launches"`
	Type       string            `json:"type,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	ModifiedAt *time.Time        `json:"modified_at,omitempty"`
}

func newProjectsExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored projects as JSON",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, _ []string, a *app, st *store.Store) error {
			ctx := cmd.Context()
			output, _ := cmd.Flags().GetString("output")

			projects, err := st.ListProjects(ctx, projectFilterFromFlags(cmd))
			if err != nil {
				return err
			}
			launches, err := st.LaunchCounts(ctx)
			if err != nil {
				return err
			}
			types, err := st.ProjectTypes(ctx)
			if err != nil {
				return err
			}

			records := make([]exportedProject, 0, len(projects))
			for i := range projects {
				p := &projects[i]
				meta, err := st.GetMetadata(ctx, p.ID)
				if err != nil {
					return err
				}
				rec := exportedProject{
					Number:   p.FullNumber,
					Name:     p.Name,
					Year:     p.Year,
					Path:     p.Path,
					Root:     p.Root,
					Tags:     p.Tags,
					Pinned:   p.Pinned,
					Launches: launches[p.ID],
					Type:     string(types[p.ID]),
					Metadata: meta,
				}
				if rec.Tags == nil {
					rec.Tags = []string{}
				}
				if !p.ModifiedAt.IsZero() {
					t := p.ModifiedAt
					rec.ModifiedAt = &t
				}
				records = append(records, rec)
			}

			data, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return fmt.Errorf("encode export: %w", err)
			}
			data = append(data, '\n')

			if output == "" || output == "-" {
				_, err := a.out.Write(data)
				return err
			}
			if err := filelock.LockAndWrite(ctx, output, data); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(a.out, "Exported %d project(s) to %s\n", len(records), output)
			return nil
		}),
	}
	addProjectFilterFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	return cmd
}

// projectLabel is the short form used in task and timer listings
func projectLabel(p *models.Project) string {
	if p == nil {
		return ""
	}
	return p.DisplayName()
}
