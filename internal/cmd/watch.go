package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/projdock/internal/store"
	"github.com/harrison/projdock/internal/watch"
)

// NewWatchCommand creates the 'projdock watch' command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rescan automatically when project folders change",
		Long: `Scan once, then watch the drive roots and their grouping folders. When
project folders are created, removed or renamed the database is rescanned.
Bursts of changes are coalesced; at most one scan runs at a time. Stop with
Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: withStore(runWatch),
	}

	cmd.Flags().StringSlice("root", nil, "Watch these roots instead of the configured ones")
	cmd.Flags().Duration("debounce", watch.DefaultDebounceDelay, "Quiet period before a rescan")
	cmd.Flags().Bool("docs", false, "Index documents on every rescan")

	return cmd
}

func runWatch(cmd *cobra.Command, _ []string, a *app, st *store.Store) error {
	ctx := cmd.Context()
	roots, _ := cmd.Flags().GetStringSlice("root")
	delay, _ := cmd.Flags().GetDuration("debounce")
	docs, _ := cmd.Flags().GetBool("docs")
	if len(roots) == 0 {
		roots = a.cfg.Roots
	}
	if len(roots) == 0 {
		return errors.New("no project roots configured: add roots to config.yaml or pass --root")
	}
	if delay <= 0 {
		return fmt.Errorf("--debounce must be positive, got %s", delay)
	}

	opts := scanOptions{roots: roots, docs: docs, wait: true}
	if _, err := runScan(ctx, a, st, opts); err != nil {
		return err
	}

	w, err := watch.New(roots, a.cfg.ScanDepth, a.log)
	if err != nil {
		return err
	}
	defer w.Close()
	w.SetDebounceDelay(delay)

	a.log.LogInfo(fmt.Sprintf("watching %d folder(s) under %s", len(w.Watched()), strings.Join(roots, ", ")))
	fmt.Fprintln(a.out, "Watching for changes (Ctrl+C to stop)")

	r := watch.NewRescanner(func(ctx context.Context, c watch.Change) error {
		for _, p := range c.Paths {
			a.log.LogDebug(fmt.Sprintf("watch: changed %s", p))
		}
		_, err := runScan(ctx, a, st, opts)
		return err
	})
	return watch.Run(ctx, w.Changes(), w.Errors(), r, a.log)
}
