// Package fileutil provides the directory walking shared by the project and
// document scanners.
//
// ScanDirectory walks a tree with extension and regex filtering, depth
// limits, case-insensitive directory exclusion, and an optional SkipDir hook
// for pruning by relative path. Every matched file comes back as an Entry
// carrying its relative path, lower-cased extension, size, and modification
// time, sorted by relative path for deterministic output.
//
// Scanning is error tolerant: a permission error on a subdirectory is
// appended to ScanResult.Errors and the walk continues. Only a missing root,
// an invalid pattern, or a cancelled context abort the scan.
//
// Recursive scan of drawings, skipping backups:
//
//	result, err := fileutil.ScanDirectory(ctx, `P:\2024638.001 Palm Beach\Electrical`, fileutil.ScanOptions{
//	    Extensions:  []string{".dwg", ".pdf"},
//	    Recursive:   true,
//	    ExcludeDirs: []string{"Backup", "_archive"},
//	})
//	if err != nil {
//	    return err
//	}
//	for _, f := range result.Files {
//	    fmt.Println(f.RelPath, f.Size)
//	}
//
// Immediate children only:
//
//	result, err := fileutil.ScanDirectory(ctx, dir, fileutil.ScanOptions{})
//
// The walk uses only the standard library; there is no directory walker in
// the dependency set that adds cancellation and error collection on top of
// filepath.WalkDir.
package fileutil
