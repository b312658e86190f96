package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/projdock/internal/display"
	"github.com/harrison/projdock/internal/models"
	"github.com/harrison/projdock/internal/search"
	"github.com/harrison/projdock/internal/store"
	"github.com/harrison/projdock/internal/telemetry"
)

// NewSearchCommand creates the 'projdock search' command
func NewSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search projects by number, name or tag",
		Long: `Rank stored projects against a free-text query.

Every word must match the project number, name or a tag. Filters:
  #tag          project tag
  year:2024     project year
  type:revit    project type (cad, revit, hybrid, unknown)

With no query, pinned projects come first, then the most launched, then
the newest.`,
		Example: `  projdock search palm beach
  projdock search 638 year:2024
  projdock search clinic #healthcare type:revit`,
		RunE: withStore(runSearch),
	}

	cmd.Flags().IntP("limit", "n", 0, "Maximum results (default: search.limit)")
	cmd.Flags().Bool("scores", false, "Show score and launch count columns")
	cmd.Flags().Bool("open", false, "Open the top result")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string, a *app, st *store.Store) error {
	ctx := cmd.Context()
	limit := a.cfg.Search.Limit
	if cmd.Flags().Changed("limit") {
		limit, _ = cmd.Flags().GetInt("limit")
	}
	showScores, _ := cmd.Flags().GetBool("scores")
	open, _ := cmd.Flags().GetBool("open")

	text := joinArgs(args)
	q := search.ParseQuery(text)

	projects, opts, err := searchInputs(ctx, st, a, limit)
	if err != nil {
		return err
	}
	results := search.Projects(q, projects, opts)

	a.record(ctx, telemetry.EventSearch, map[string]any{
		"terms":   len(q.Terms),
		"filters": q.HasFilters(),
		"results": len(results),
	})

	if len(results) == 0 {
		fmt.Fprintf(a.out, "No projects match %q\n", text)
		if s := search.Suggest(q, projects, 3); len(s) > 0 {
			fmt.Fprintf(a.out, "Did you mean: %s?\n", strings.Join(s, ", "))
		}
		if len(projects) == 0 {
			fmt.Fprintln(a.out, `The database is empty; run "projdock scan" first.`)
		}
		return nil
	}

	display.WriteProjects(a.out, results, a.colorize, showScores)

	if open {
		return a.openProject(ctx, st, &results[0].Project)
	}
	return nil
}

// searchInputs loads the candidate projects and the launch and type maps the
// scorer needs
func searchInputs(ctx context.Context, st *store.Store, a *app, limit int) ([]models.Project, search.ProjectOptions, error) {
	projects, err := st.ListProjects(ctx, store.ProjectFilter{})
	if err != nil {
		return nil, search.ProjectOptions{}, err
	}
	launches, err := st.LaunchCounts(ctx)
	if err != nil {
		return nil, search.ProjectOptions{}, err
	}
	types, err := st.ProjectTypes(ctx)
	if err != nil {
		return nil, search.ProjectOptions{}, err
	}
	return projects, search.ProjectOptions{
		Limit:    limit,
		Fuzzy:    a.cfg.Search.Fuzzy,
		Launches: launches,
		Types:    types,
	}, nil
}
