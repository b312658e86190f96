package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/projdock/internal/cheatsheet"
)

// NewCheatsCommand creates the 'projdock cheats' parent command
func NewCheatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cheats",
		Aliases: []string{"cheat"},
		Short:   "Browse markdown cheat sheets",
		Long: `Cheat sheets are markdown files in cheatsheet_dir (default
<home>/cheatsheets). Headings become sections; list items, paragraphs and
code lines become entries.`,
	}

	cmd.AddCommand(newCheatsListCommand())
	cmd.AddCommand(newCheatsShowCommand())
	cmd.AddCommand(newCheatsFindCommand())

	return cmd
}

// loadSheets reads cheatsheet_dir, logging files that failed to parse
func loadSheets(a *app) []*cheatsheet.Sheet {
	sheets, errs := cheatsheet.LoadDir(a.cfg.CheatsheetDir)
	for _, err := range errs {
		a.log.LogWarn(fmt.Sprintf("cheats: %v", err))
	}
	return sheets
}

func newCheatsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List cheat sheets",
		Args:    cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			sheets := loadSheets(a)
			if len(sheets) == 0 {
				fmt.Fprintf(a.out, "No cheat sheets in %s\n", a.cfg.CheatsheetDir)
				return nil
			}
			for _, s := range sheets {
				entries := 0
				for _, sec := range s.Sections {
					entries += len(sec.Entries)
				}
				fmt.Fprintf(a.out, "%-20s %s (%d entries)\n", s.Name, s.Title, entries)
			}
			return nil
		}),
	}
}

func newCheatsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a cheat sheet (any unique name prefix)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			s, err := cheatsheet.Get(loadSheets(a), args[0])
			if err != nil {
				return err
			}
			cheatsheet.Render(a.out, s)
			return nil
		}),
	}
}

func newCheatsFindCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "find <query...>",
		Short: "Search entries across every cheat sheet",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			query := joinArgs(args)
			hits := cheatsheet.Find(loadSheets(a), query)
			if len(hits) == 0 {
				fmt.Fprintf(a.out, "No entries match %q\n", query)
				return nil
			}
			for _, h := range hits {
				where := h.Sheet
				if h.Section != "" {
					where += " / " + h.Section
				}
				fmt.Fprintf(a.out, "%s: %s\n", where, h.Entry)
			}
			return nil
		}),
	}
}
