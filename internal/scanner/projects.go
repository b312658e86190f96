// Package scanner discovers project folders on the drive roots and indexes the
// documents inside a single project.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harrison/projdock/internal/models"
	"github.com/harrison/projdock/internal/naming"
)

// DefaultGroupingDepth is how many levels of non-project folders (year
// groupings such as "2024" or "Projects 2024") are descended by default.
const DefaultGroupingDepth = 2

// systemDirs are never treated as projects or descended into
var systemDirs = map[string]bool{
	"$recycle.bin":              true,
	"system volume information": true,
	"recycler":                  true,
	"found.000":                 true,
}

// ProjectOptions configures ScanProjects
type ProjectOptions struct {
	// Depth is the number of non-matching folder levels to descend below each
	// root. Zero scans only the root's immediate children.
	Depth int
	// Progress, when set, is called after each root finishes
	Progress func(root string, found int)
	// Now overrides the scan timestamp (tests)
	Now func() time.Time
}

// ProjectScanResult is the outcome of a multi-root project scan
type ProjectScanResult struct {
	Roots    []string
	Projects []models.Project
	Errors   []error
	Duration time.Duration
}

// ScanProjects walks every root concurrently and returns the projects found,
// de-duplicated by path and sorted newest number first. Unreadable
// subdirectories are collected in Errors; an unreadable root fails the scan.
func ScanProjects(ctx context.Context, roots []string, opts ProjectOptions) (*ProjectScanResult, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("no project roots configured")
	}
	if opts.Depth < 0 {
		return nil, fmt.Errorf("invalid scan depth %d", opts.Depth)
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	started := now()

	// Results are kept per root so overlapping roots resolve to the first
	// listed root regardless of which walk finishes first.
	var (
		found    = make([][]models.Project, len(roots))
		rootErrs = make([][]error, len(roots))
		absRoots = make([]string, len(roots))
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", root, err)
		}
		absRoots[i] = abs

		g.Go(func() error {
			w := &rootWalker{root: abs, depth: opts.Depth, scannedAt: started.UTC()}
			if err := w.walk(gctx, abs, 0); err != nil {
				return err
			}

			found[i] = w.projects
			rootErrs[i] = w.errs

			if opts.Progress != nil {
				opts.Progress(abs, len(w.projects))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	var (
		projects []models.Project
		errs     []error
	)
	for i := range roots {
		projects = append(projects, found[i]...)
		errs = append(errs, rootErrs[i]...)
	}
	projects = dedupeProjects(projects)
	SortProjects(projects)

	return &ProjectScanResult{
		Roots:    absRoots,
		Projects: projects,
		Errors:   errs,
		Duration: now().Sub(started),
	}, nil
}

type rootWalker struct {
	root      string
	depth     int
	scannedAt time.Time
	projects  []models.Project
	errs      []error
}

func (w *rootWalker) walk(ctx context.Context, dir string, level int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if level == 0 {
			return fmt.Errorf("read root %s: %w", dir, err)
		}
		w.errs = append(w.errs, fmt.Errorf("read %s: %w", dir, err))
		return nil
	}

	for _, e := range entries {
		if !e.IsDir() || skipDir(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())

		parsed, err := naming.Parse(e.Name())
		if err != nil {
			if level < w.depth {
				if err := w.walk(ctx, path, level+1); err != nil {
					return err
				}
			}
			continue
		}

		p := models.Project{
			FolderName:  e.Name(),
			Path:        path,
			Root:        w.root,
			Year:        parsed.Year,
			FullNumber:  parsed.FullNumber,
			ShortNumber: parsed.ShortNumber,
			Name:        parsed.Name,
			ScannedAt:   w.scannedAt,
		}
		if info, err := e.Info(); err == nil {
			p.ModifiedAt = info.ModTime().UTC()
		} else {
			w.errs = append(w.errs, fmt.Errorf("stat %s: %w", path, err))
		}
		w.projects = append(w.projects, p)
	}
	return nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || systemDirs[strings.ToLower(name)]
}

// dedupeProjects drops repeated paths, which happen when one root is nested
// inside another. Comparison is case-insensitive to match Windows drives.
func dedupeProjects(in []models.Project) []models.Project {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, p := range in {
		key := strings.ToLower(filepath.Clean(p.Path))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// SortProjects orders projects newest first, falling back to path for
// stability.
func SortProjects(projects []models.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		if c := models.CompareNewest(&projects[i], &projects[j]); c != 0 {
			return c < 0
		}
		return projects[i].Path < projects[j].Path
	})
}

// GroupingDirs returns every directory whose children ScanProjects inspects:
// each root plus the non-project folders it descends into within depth.
func GroupingDirs(roots []string, depth int) ([]string, []error) {
	var (
		dirs []string
		errs []error
	)
	var walk func(dir string, level int)
	walk = func(dir string, level int) {
		dirs = append(dirs, dir)
		if level >= depth {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", dir, err))
			return
		}
		for _, e := range entries {
			if !e.IsDir() || !IsGroupingDir(e.Name()) {
				continue
			}
			walk(filepath.Join(dir, e.Name()), level+1)
		}
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve root %s: %w", root, err))
			continue
		}
		walk(abs, 0)
	}
	return dirs, errs
}

// IsGroupingDir reports whether a folder name is descended into rather than
// parsed as a project
func IsGroupingDir(name string) bool {
	return !skipDir(name) && !naming.Matches(name)
}
