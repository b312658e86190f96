package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/harrison/projdock/internal/display"
	"github.com/harrison/projdock/internal/filelock"
	"github.com/harrison/projdock/internal/logger"
	"github.com/harrison/projdock/internal/models"
	"github.com/harrison/projdock/internal/scanner"
	"github.com/harrison/projdock/internal/store"
	"github.com/harrison/projdock/internal/telemetry"
)

// documentWorkers bounds concurrent per-project document scans
const documentWorkers = 4

// maxWarnedErrors is how many scan errors are listed on the console
const maxWarnedErrors = 5

type scanOptions struct {
	roots []string
	depth *int // nil = config scan_depth
	docs  bool // Also index every project's documents
	wait  bool // Wait for a running scan instead of failing
}

type scanOutcome struct {
	result  *scanner.ProjectScanResult
	sync    store.SyncResult
	indexed int
	errs    []error
}

// NewScanCommand creates the 'projdock scan' command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the project drive and update the database",
		Long: `Walk every configured root, parse project folder names, and sync the
results into the database. Projects that disappeared from a scanned root
are removed along with their tags and launch counts.

With --docs each project's documents are indexed as well (discipline
folders, Revit models, project type).`,
		Args: cobra.NoArgs,
		RunE: withStore(runScanCommand),
	}

	cmd.Flags().StringSlice("root", nil, "Scan these roots instead of the configured ones")
	cmd.Flags().Int("depth", 0, "Grouping folder levels to descend, 0 = top level only (default: scan_depth)")
	cmd.Flags().Bool("docs", false, "Index each project's documents")
	cmd.Flags().Bool("wait", false, "Wait for a scan already running in another process")

	return cmd
}

func runScanCommand(cmd *cobra.Command, _ []string, a *app, st *store.Store) error {
	roots, _ := cmd.Flags().GetStringSlice("root")
	docs, _ := cmd.Flags().GetBool("docs")
	wait, _ := cmd.Flags().GetBool("wait")

	opts := scanOptions{roots: roots, docs: docs, wait: wait}
	if cmd.Flags().Changed("depth") {
		depth, _ := cmd.Flags().GetInt("depth")
		if depth < 0 {
			return fmt.Errorf("--depth must be >= 0, got %d", depth)
		}
		opts.depth = &depth
	}

	outcome, err := runScan(cmd.Context(), a, st, opts)
	if err != nil {
		return err
	}
	if docs {
		fmt.Fprintf(a.out, "Indexed documents for %d project(s)\n", outcome.indexed)
	}
	return nil
}

// runScan scans, syncs and reports. It holds the scan lock next to the
// database so two processes never sync at once.
func runScan(ctx context.Context, a *app, st *store.Store, opts scanOptions) (*scanOutcome, error) {
	roots := opts.roots
	if len(roots) == 0 {
		roots = a.cfg.Roots
	}
	if len(roots) == 0 {
		return nil, errors.New("no project roots configured: add roots to config.yaml or pass --root")
	}
	depth := a.cfg.ScanDepth
	if opts.depth != nil {
		depth = *opts.depth
	}

	outcome := &scanOutcome{}
	err := filelock.WithLock(ctx, scanLockPath(a), opts.wait, func() error {
		progress := display.NewProgressIndicator(a.errOut, len(roots), a.colorize)
		progress.Start("Scanning project roots")

		res, err := scanner.ScanProjects(ctx, roots, scanner.ProjectOptions{
			Depth: depth,
			Progress: func(root string, found int) {
				progress.Step(fmt.Sprintf("%s: %d project(s)", root, found))
			},
		})
		if err != nil {
			return fmt.Errorf("scan projects: %w", err)
		}
		progress.Complete("roots scanned")
		outcome.result = res
		outcome.errs = append(outcome.errs, res.Errors...)

		sync, err := st.SyncProjects(ctx, res.Roots, res.Projects)
		if err != nil {
			return fmt.Errorf("sync projects: %w", err)
		}
		outcome.sync = sync

		if opts.docs {
			n, errs, err := indexDocuments(ctx, a, st, res.Projects)
			if err != nil {
				return err
			}
			outcome.indexed = n
			outcome.errs = append(outcome.errs, errs...)
		}
		return nil
	})
	if errors.Is(err, filelock.ErrLocked) {
		return nil, errors.New("another scan is running (use --wait to queue behind it)")
	}
	if err != nil {
		return nil, err
	}

	res := outcome.result
	summary := logger.ScanSummary{
		Roots:     len(res.Roots),
		Projects:  len(res.Projects),
		Added:     outcome.sync.Added,
		Updated:   outcome.sync.Updated,
		Removed:   outcome.sync.Removed,
		Unchanged: outcome.sync.Unchanged,
		Errors:    len(outcome.errs),
		Duration:  res.Duration,
	}
	a.console.LogScanSummary(summary)
	if a.fileLog != nil {
		a.fileLog.LogInfo(fmt.Sprintf("scan: %d projects (+%d ~%d -%d) in %s",
			summary.Projects, summary.Added, summary.Updated, summary.Removed, res.Duration.Round(time.Millisecond)))
	}
	for _, e := range outcome.errs {
		a.log.LogDebug(fmt.Sprintf("scan: %v", e))
	}
	if w, ok := display.WarnScanErrors(outcome.errs, maxWarnedErrors); ok {
		w.Display(a.errOut, a.colorize)
	}

	a.record(ctx, telemetry.EventScan, map[string]any{
		"roots":    summary.Roots,
		"projects": summary.Projects,
		"added":    summary.Added,
		"removed":  summary.Removed,
		"errors":   summary.Errors,
		"ms":       res.Duration.Milliseconds(),
	})
	return outcome, nil
}

// indexDocuments scans and stores the document index of every project
func indexDocuments(ctx context.Context, a *app, st *store.Store, projects []models.Project) (int, []error, error) {
	opts := a.documentOptions()
	bar := display.NewProgressBar(len(projects), 30, a.colorize)
	bar.SetPrefix("Indexing documents ")

	var (
		mu      sync.Mutex
		errs    []error
		indexed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(documentWorkers)
	for i := range projects {
		p := &projects[i]
		g.Go(func() error {
			idx, err := scanner.ScanDocuments(gctx, p.Path, opts)
			mu.Lock()
			defer mu.Unlock()
			bar.Increment()
			if a.colorize {
				bar.Draw(a.errOut)
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				errs = append(errs, fmt.Errorf("index %s: %w", p.FolderName, err))
				return nil
			}
			errs = append(errs, idx.Errors...)
			if err := st.SaveDocumentIndex(gctx, p.ID, idx); err != nil {
				return fmt.Errorf("save document index for %s: %w", p.FolderName, err)
			}
			indexed++
			return nil
		})
	}
	err := g.Wait()
	if a.colorize && len(projects) > 0 {
		fmt.Fprintln(a.errOut)
	}
	if err != nil {
		return indexed, errs, err
	}
	return indexed, errs, nil
}

// loadDocumentIndex returns the stored index, scanning the project when none
// is stored or rescan is set
func loadDocumentIndex(ctx context.Context, a *app, st *store.Store, p *models.Project, rescan bool) (*models.DocumentIndex, error) {
	if !rescan {
		idx, err := st.GetDocumentIndex(ctx, p.ID)
		if err == nil {
			return idx, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	idx, err := scanner.ScanDocuments(ctx, p.Path, a.documentOptions())
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", p.FolderName, err)
	}
	for _, e := range idx.Errors {
		a.log.LogDebug(fmt.Sprintf("docs: %v", e))
	}
	if err := st.SaveDocumentIndex(ctx, p.ID, idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func scanLockPath(a *app) string {
	if a.cfg.DBPath == store.MemoryPath {
		return filepath.Join(a.home, "scan.lock")
	}
	return a.cfg.DBPath + ".scan.lock"
}
