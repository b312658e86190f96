package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harrison/projdock/internal/fileutil"
	"github.com/harrison/projdock/internal/models"
)

// locateDepth is how deep below the project root discipline and Revit
// folders are looked for ("Electrical" or "CAD\Electrical").
const locateDepth = 2

var (
	// Numbered Revit backups: "Tower.0001.rvt"
	revitBackupRe = regexp.MustCompile(`(?i)\.\d{4}\.rvt$`)
	// "R2024", "Revit 2024", "Revit_2024"
	revitVersionRe = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:R|Revit[\s_-]*)(20\d{2})(?:$|[^a-z0-9])`)
	// Any release year inside a version.txt marker
	markerYearRe = regexp.MustCompile(`(?:^|[^A-Za-z0-9])(20\d{2})(?:$|[^A-Za-z0-9])`)
	// Cloud workshared folders and files
	revitCloudRe = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:BIM[\s_-]?360|ACC|Autodesk[\s_-]Docs)(?:$|[^a-z0-9])`)
)

// DefaultDisciplineAliases maps each discipline to the folder names that
// identify it. Matching is case-insensitive on whole words of the folder name.
func DefaultDisciplineAliases() map[models.Discipline][]string {
	return map[models.Discipline][]string{
		models.DisciplineElectrical: {"electrical", "elec"},
		models.DisciplineMechanical: {"mechanical", "mech", "hvac"},
		models.DisciplinePlumbing:   {"plumbing", "plumb"},
	}
}

// DefaultRevitFolderNames are the folder names treated as the Revit folder
func DefaultRevitFolderNames() []string {
	return []string{"Revit File", "Revit Files", "Revit"}
}

// DocumentOptions configures ScanDocuments
type DocumentOptions struct {
	// Extensions limits the file list (empty = all files). Classification
	// always considers every file.
	Extensions []string
	// ExcludeDirs are directory names skipped anywhere in the project
	ExcludeDirs []string
	// MaxDepth bounds each walk (0 = unlimited)
	MaxDepth int
	// IncludeOther also lists files outside discipline and Revit folders
	IncludeOther bool
	// DisciplineAliases overrides DefaultDisciplineAliases
	DisciplineAliases map[models.Discipline][]string
	// RevitFolderNames overrides DefaultRevitFolderNames
	RevitFolderNames []string
	// Now overrides the scan timestamp (tests)
	Now func() time.Time
}

// DefaultDocumentOptions returns options with the default aliases and Revit
// folder names.
func DefaultDocumentOptions() DocumentOptions {
	return DocumentOptions{
		DisciplineAliases: DefaultDisciplineAliases(),
		RevitFolderNames:  DefaultRevitFolderNames(),
		ExcludeDirs:       []string{"Backup", "_backup", "Incoming", "Superseded"},
	}
}

// layout is what locate finds below the project root
type layout struct {
	disciplines map[models.Discipline]string
	revit       string
}

// ScanDocuments indexes a project folder: it finds the discipline and Revit
// folders, walks them concurrently, summarizes the Revit models, and
// classifies the project type.
func ScanDocuments(ctx context.Context, projectPath string, opts DocumentOptions) (*models.DocumentIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(projectPath)
	if err != nil {
		return nil, fmt.Errorf("access project %s: %w", projectPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path is not a directory: %s", projectPath)
	}
	root, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("resolve project %s: %w", projectPath, err)
	}

	if opts.DisciplineAliases == nil {
		opts.DisciplineAliases = DefaultDisciplineAliases()
	}
	if len(opts.RevitFolderNames) == 0 {
		opts.RevitFolderNames = DefaultRevitFolderNames()
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	idx := &models.DocumentIndex{
		ProjectPath: root,
		Disciplines: make(map[models.Discipline]string),
		Counts:      make(map[models.Discipline]int),
		ScannedAt:   now().UTC(),
	}

	lay, locateErrs := locate(root, opts)
	idx.Errors = append(idx.Errors, locateErrs...)
	for d, dir := range lay.disciplines {
		idx.Disciplines[d] = dir
	}

	extFilter := fileutil.NormalizeExtensions(opts.Extensions)
	keep := func(ext string) bool { return len(extFilter) == 0 || extFilter[ext] }

	var mu sync.Mutex
	collect := func(docs []models.Document, errs []error) {
		mu.Lock()
		defer mu.Unlock()
		idx.Files = append(idx.Files, docs...)
		idx.Errors = append(idx.Errors, errs...)
	}

	g, gctx := errgroup.WithContext(ctx)

	for d, dir := range lay.disciplines {
		g.Go(func() error {
			res, err := fileutil.ScanDirectory(gctx, dir, fileutil.ScanOptions{
				Recursive:   true,
				ExcludeDirs: opts.ExcludeDirs,
				MaxDepth:    opts.MaxDepth,
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				collect(nil, []error{err})
				return nil
			}

			docs := make([]models.Document, 0, len(res.Files))
			for _, f := range res.Files {
				if keep(f.Ext) {
					docs = append(docs, toDocument(root, f, d, false))
				}
			}
			mu.Lock()
			idx.Counts[d] = len(res.Files)
			mu.Unlock()
			collect(docs, res.Errors)
			return nil
		})
	}

	if lay.revit != "" {
		g.Go(func() error {
			revit, docs, errs, err := scanRevit(gctx, root, lay.revit, opts, keep)
			if err != nil {
				return err
			}
			mu.Lock()
			idx.Revit = revit
			mu.Unlock()
			collect(docs, errs)
			return nil
		})
	}

	if opts.IncludeOther {
		g.Go(func() error {
			docs, errs, err := scanOther(gctx, root, lay, opts, keep)
			if err != nil {
				return err
			}
			collect(docs, errs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	hasCAD := false
	for _, n := range idx.Counts {
		if n > 0 {
			hasCAD = true
			break
		}
	}
	idx.Type = models.ClassifyProject(hasCAD, idx.Revit.Present())

	sort.Slice(idx.Files, func(i, j int) bool {
		return idx.Files[i].RelPath < idx.Files[j].RelPath
	})

	return idx, nil
}

// locate finds discipline and Revit folders within locateDepth levels. The
// shallowest match wins; ties go to the alphabetically first folder.
func locate(root string, opts DocumentOptions) (layout, []error) {
	lay := layout{disciplines: make(map[models.Discipline]string)}
	var errs []error

	revitNames := make(map[string]bool, len(opts.RevitFolderNames))
	for _, n := range opts.RevitFolderNames {
		revitNames[strings.ToLower(n)] = true
	}
	excluded := make(map[string]bool, len(opts.ExcludeDirs))
	for _, n := range opts.ExcludeDirs {
		excluded[strings.ToLower(n)] = true
	}

	level := []string{root}
	for depth := 1; depth <= locateDepth && len(level) > 0; depth++ {
		var next []string
		for _, dir := range level {
			entries, err := fileutil.ListDirs(dir)
			if err != nil {
				if dir != root {
					errs = append(errs, err)
				}
				continue
			}
			for _, e := range entries {
				name := e.Name()
				path := filepath.Join(dir, name)
				lower := strings.ToLower(name)
				if excluded[lower] {
					continue
				}
				if revitNames[lower] {
					if lay.revit == "" {
						lay.revit = path
					}
					continue
				}
				if d, ok := matchDiscipline(name, opts.DisciplineAliases); ok {
					if _, seen := lay.disciplines[d]; !seen {
						lay.disciplines[d] = path
					}
					continue
				}
				next = append(next, path)
			}
		}
		level = next
	}
	return lay, errs
}

// matchDiscipline matches a folder name against the aliases, either as the
// whole name or as one of its words ("E - Electrical", "Mech Drawings").
func matchDiscipline(name string, aliases map[models.Discipline][]string) (models.Discipline, bool) {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '.' || r == '(' || r == ')'
	})
	whole := strings.ToLower(strings.TrimSpace(name))

	for _, d := range models.Disciplines {
		for _, alias := range aliases[d] {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias == "" {
				continue
			}
			if whole == alias {
				return d, true
			}
			for _, w := range words {
				if w == alias {
					return d, true
				}
			}
		}
	}
	return models.DisciplineNone, false
}

// scanRevit walks the Revit folder, collecting models and markers
func scanRevit(ctx context.Context, root, dir string, opts DocumentOptions, keep func(string) bool) (models.RevitInfo, []models.Document, []error, error) {
	info := models.RevitInfo{Folder: dir}
	var (
		markerVersion string
		nameVersion   string
	)

	observe := func(rel string) {
		if m := revitVersionRe.FindStringSubmatch(rel); m != nil && m[1] > nameVersion {
			nameVersion = m[1]
		}
		if revitCloudRe.MatchString(rel) {
			info.Cloud = true
		}
	}

	res, err := fileutil.ScanDirectory(ctx, dir, fileutil.ScanOptions{
		Recursive:     true,
		IncludeHidden: true,
		ExcludeDirs:   opts.ExcludeDirs,
		MaxDepth:      opts.MaxDepth,
		SkipDir: func(rel string) bool {
			observe(rel)
			return false
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return info, nil, nil, ctx.Err()
		}
		return info, nil, []error{err}, nil
	}

	errs := res.Errors
	docs := make([]models.Document, 0, len(res.Files))
	for _, f := range res.Files {
		lower := strings.ToLower(f.Name)
		switch {
		case lower == "version.txt":
			if v, err := readMarkerVersion(f.Path); err != nil {
				errs = append(errs, err)
			} else if v != "" {
				markerVersion = v
			}
			continue
		case lower == "cloud.txt" || lower == ".cloud":
			info.Cloud = true
			continue
		case strings.HasPrefix(f.Name, "."):
			continue
		}

		observe(f.RelPath)
		if f.Ext == ".rvt" && !revitBackupRe.MatchString(f.Name) {
			info.Models = append(info.Models, filepath.ToSlash(f.RelPath))
		}
		if keep(f.Ext) {
			docs = append(docs, toDocument(root, f, models.DisciplineNone, true))
		}
	}

	info.Version = markerVersion
	if info.Version == "" {
		info.Version = nameVersion
	}
	sort.Strings(info.Models)
	return info, docs, errs, nil
}

func readMarkerVersion(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read version marker: %w", err)
	}
	if m := markerYearRe.FindSubmatch(data); m != nil {
		return string(m[1]), nil
	}
	return "", nil
}

// scanOther lists files outside discipline and Revit folders
func scanOther(ctx context.Context, root string, lay layout, opts DocumentOptions, keep func(string) bool) ([]models.Document, []error, error) {
	claimed := make(map[string]bool, len(lay.disciplines)+1)
	for _, dir := range lay.disciplines {
		claimed[dir] = true
	}
	if lay.revit != "" {
		claimed[lay.revit] = true
	}

	res, err := fileutil.ScanDirectory(ctx, root, fileutil.ScanOptions{
		Recursive:   true,
		ExcludeDirs: opts.ExcludeDirs,
		MaxDepth:    opts.MaxDepth,
		SkipDir: func(rel string) bool {
			return claimed[filepath.Join(root, rel)]
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, []error{err}, nil
	}

	docs := make([]models.Document, 0, len(res.Files))
	for _, f := range res.Files {
		if keep(f.Ext) {
			docs = append(docs, toDocument(root, f, models.DisciplineNone, false))
		}
	}
	return docs, res.Errors, nil
}

func toDocument(root string, f fileutil.Entry, d models.Discipline, revit bool) models.Document {
	rel, err := filepath.Rel(root, f.Path)
	if err != nil {
		rel = f.RelPath
	}
	return models.Document{
		Path:       f.Path,
		RelPath:    filepath.ToSlash(rel),
		Name:       f.Name,
		Extension:  f.Ext,
		Size:       f.Size,
		ModTime:    f.ModTime.UTC(),
		Discipline: d,
		Revit:      revit,
	}
}
