package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/projdock/internal/models"
	"github.com/harrison/projdock/internal/store"
	"github.com/harrison/projdock/internal/tui"
)

// NewPickCommand creates the 'projdock pick' command
func NewPickCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pick",
		Aliases: []string{"p"},
		Short:   "Interactive project search",
		Long: `Open the search overlay. Type to filter, up/down to move, enter to open
the selected project, esc to quit. The selected project's documents are
shown below the list.`,
		Args: cobra.NoArgs,
		RunE: withStore(runPick),
	}

	cmd.Flags().IntP("limit", "n", 0, "Maximum results (default: search.limit)")

	return cmd
}

func runPick(cmd *cobra.Command, _ []string, a *app, st *store.Store) error {
	ctx := cmd.Context()
	limit := a.cfg.Search.Limit
	if cmd.Flags().Changed("limit") {
		limit, _ = cmd.Flags().GetInt("limit")
	}

	projects, opts, err := searchInputs(ctx, st, a, limit)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Fprintln(a.out, `The database is empty; run "projdock scan" first.`)
		return nil
	}

	chosen, err := tui.Run(ctx, tui.Options{
		Projects: projects,
		Launches: opts.Launches,
		Types:    opts.Types,
		Limit:    opts.Limit,
		Fuzzy:    opts.Fuzzy,
		Debounce: a.cfg.Search.Debounce,
		LoadDocuments: func(ctx context.Context, p *models.Project) ([]models.Document, error) {
			idx, err := loadDocumentIndex(ctx, a, st, p, false)
			if err != nil {
				return nil, err
			}
			return idx.Files, nil
		},
		Open: func(ctx context.Context, p *models.Project) error {
			return a.openProject(ctx, st, p)
		},
		In:  cmd.InOrStdin(),
		Out: a.errOut,
	})
	if err != nil {
		return err
	}
	if chosen != nil {
		fmt.Fprintln(a.out, chosen.Path)
	}
	return nil
}
