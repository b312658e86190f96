package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/projdock/internal/display"
	"github.com/harrison/projdock/internal/search"
	"github.com/harrison/projdock/internal/store"
	"github.com/harrison/projdock/internal/telemetry"
)

// NewDocsCommand creates the 'projdock docs' command
func NewDocsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs <number> [query...]",
		Short: "List or search a project's documents",
		Long: `Show a project's document layout and files. The index is read from the
database; a project that was never indexed is scanned on demand.

Query words match file names and relative paths. Filters:
  ext:pdf           file extension
  disc:electrical   discipline folder (or disc:e, disc:m, disc:p)`,
		Example: `  projdock docs 2024638.001
  projdock docs 638.001 panel schedule ext:pdf
  projdock docs 638.001 disc:m --open`,
		Args: cobra.MinimumNArgs(1),
		RunE: withStore(runDocs),
	}

	cmd.Flags().Bool("rescan", false, "Rescan the project folder before listing")
	cmd.Flags().Bool("open", false, "Open the top result")
	cmd.Flags().IntP("limit", "n", 0, "Maximum results (default: search.limit)")

	return cmd
}

func runDocs(cmd *cobra.Command, args []string, a *app, st *store.Store) error {
	ctx := cmd.Context()
	rescan, _ := cmd.Flags().GetBool("rescan")
	open, _ := cmd.Flags().GetBool("open")
	limit := a.cfg.Search.Limit
	if cmd.Flags().Changed("limit") {
		limit, _ = cmd.Flags().GetInt("limit")
	}

	p, err := a.resolveProject(ctx, st, args[0])
	if err != nil {
		return err
	}
	idx, err := loadDocumentIndex(ctx, a, st, p, rescan)
	if err != nil {
		return err
	}

	text := joinArgs(args[1:])
	q := search.ParseQuery(text)
	results := search.Documents(q, idx.Files, search.DocumentOptions{Limit: limit, Fuzzy: a.cfg.Search.Fuzzy})

	if q.Empty() {
		fmt.Fprintln(a.out, display.ProjectLine(p, nil, a.colorize))
		display.WriteIndexSummary(a.out, idx)
		fmt.Fprintln(a.out)
	}
	if len(results) == 0 {
		if text == "" {
			fmt.Fprintln(a.out, "No documents found")
		} else {
			fmt.Fprintf(a.out, "No documents match %q\n", text)
		}
		return nil
	}
	display.WriteDocuments(a.out, results, a.colorize)

	if open {
		doc := &results[0].Document
		if err := a.opener.Open(ctx, doc.Path); err != nil {
			return err
		}
		a.record(ctx, telemetry.EventOpenDoc, map[string]any{
			"number":    p.FullNumber,
			"extension": doc.Extension,
			"revit":     doc.Revit,
		})
		fmt.Fprintf(a.out, "Opened %s\n", doc.Path)
	}
	return nil
}
