package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for projdock
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projdock",
		Short: "Project drive launcher and search",
		Long: `projdock indexes the numbered project folders on the shared project
drive and finds them again with ranked, fuzzy search.

It scans the configured roots, classifies each project's documents
(CAD discipline folders, Revit models, or both), and keeps projects,
tags, launch counts, tasks and timer sessions in a local SQLite
database.

Configuration is read from $PROJDOCK_HOME/config.yaml (default
~/.projdock/config.yaml).`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "Path to config file (default: $PROJDOCK_HOME/config.yaml)")
	pf.String("db", "", "Path to the SQLite database (overrides db_path)")
	pf.String("log-level", "", "Log level: trace, debug, info, warn, error")
	pf.BoolP("verbose", "v", false, "Shorthand for --log-level debug")

	cmd.AddCommand(NewScanCommand())
	cmd.AddCommand(NewSearchCommand())
	cmd.AddCommand(NewProjectsCommand())
	cmd.AddCommand(NewDocsCommand())
	cmd.AddCommand(NewFrequentCommand())
	cmd.AddCommand(NewTasksCommand())
	cmd.AddCommand(NewTimerCommand())
	cmd.AddCommand(NewLaunchCommand())
	cmd.AddCommand(NewCheatsCommand())
	cmd.AddCommand(NewStatsCommand())
	cmd.AddCommand(NewWatchCommand())
	cmd.AddCommand(NewPickCommand())
	cmd.AddCommand(NewConfigCommand())

	return cmd
}
