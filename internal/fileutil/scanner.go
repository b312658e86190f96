package fileutil

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ScanOptions configures the directory scanning behavior
type ScanOptions struct {
	// Pattern is a regex pattern to match filenames (without extension)
	Pattern string
	// Extensions is a list of file extensions to include (e.g., ".pdf", "dwg")
	Extensions []string
	// Recursive enables recursive directory scanning
	Recursive bool
	// ExcludeDirs is a list of directory names to skip (case-insensitive)
	ExcludeDirs []string
	// MaxDepth limits recursion depth (0 = unlimited, 1 = current dir only)
	MaxDepth int
	// IncludeHidden includes files and directories starting with "."
	IncludeHidden bool
	// SkipDir is consulted for every subdirectory with its path relative to
	// the scan root; returning true prunes it.
	SkipDir func(rel string) bool
}

// Entry is a matched file with the metadata the scanners need
type Entry struct {
	Path    string    // Absolute path
	RelPath string    // Path relative to the scan root
	Name    string    // Base name
	Ext     string    // Lower-cased extension including the dot
	Size    int64     // Size in bytes
	ModTime time.Time // Modification time
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Files contains all matched files, sorted by relative path
	Files []Entry
	// Errors contains any errors encountered during scanning
	Errors []error
}

// Paths returns the absolute paths of all matched files
func (r *ScanResult) Paths() []string {
	paths := make([]string, len(r.Files))
	for i, f := range r.Files {
		paths[i] = f.Path
	}
	return paths
}

// NormalizeExtensions lower-cases extensions and ensures a leading dot
func NormalizeExtensions(exts []string) map[string]bool {
	extMap := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[ext] = true
	}
	return extMap
}

// ScanDirectory scans a directory for files matching the provided options.
// Unreadable entries are collected in ScanResult.Errors and scanning
// continues; a missing root or a cancelled context is returned as an error.
func ScanDirectory(ctx context.Context, dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory %s: %w", dir, err)
	}

	result := &ScanResult{
		Files:  make([]Entry, 0),
		Errors: make([]error, 0),
	}

	var patternRegex *regexp.Regexp
	if opts.Pattern != "" {
		patternRegex, err = regexp.Compile(opts.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
	}

	extMap := NormalizeExtensions(opts.Extensions)

	excludeMap := make(map[string]bool, len(opts.ExcludeDirs))
	for _, d := range opts.ExcludeDirs {
		excludeMap[strings.ToLower(d)] = true
	}

	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			if d != nil && d.IsDir() && path != absDir {
				return filepath.SkipDir
			}
			return nil
		}

		if path == absDir {
			return nil
		}

		relPath, relErr := filepath.Rel(absDir, path)
		if relErr != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to resolve path %s: %w", path, relErr))
			return nil
		}
		hidden := strings.HasPrefix(d.Name(), ".")

		if d.IsDir() {
			if excludeMap[strings.ToLower(d.Name())] || (hidden && !opts.IncludeHidden) {
				return filepath.SkipDir
			}
			if !opts.Recursive {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 {
				depth := strings.Count(relPath, string(filepath.Separator)) + 1
				if depth >= opts.MaxDepth {
					return filepath.SkipDir
				}
			}
			if opts.SkipDir != nil && opts.SkipDir(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if hidden && !opts.IncludeHidden {
			return nil
		}

		filename := d.Name()
		ext := strings.ToLower(filepath.Ext(filename))
		if len(extMap) > 0 && !extMap[ext] {
			return nil
		}

		if patternRegex != nil {
			nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))
			if !patternRegex.MatchString(nameWithoutExt) {
				return nil
			}
		}

		fi, infoErr := d.Info()
		if infoErr != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to stat %s: %w", path, infoErr))
			return nil
		}

		result.Files = append(result.Files, Entry{
			Path:    path,
			RelPath: relPath,
			Name:    filename,
			Ext:     ext,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].RelPath < result.Files[j].RelPath
	})

	return result, nil
}

// ListDirs returns the immediate subdirectories of dir, sorted by name.
// Hidden directories are omitted.
func ListDirs(dir string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	dirs := make([]fs.DirEntry, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dirs = append(dirs, e)
	}
	return dirs, nil
}
