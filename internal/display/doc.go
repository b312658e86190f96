// Package display formats projdock's terminal output.
//
// It covers three kinds of output:
//
// # Progress
//
// ProgressIndicator prints one line per scanned drive root, and ProgressBar
// renders a single-line bar while project documents are indexed:
//
//	progress := display.NewProgressIndicator(os.Stderr, len(roots), colorize)
//	progress.Start("Scanning drive roots")
//	for _, root := range roots {
//	    progress.Step(root)
//	}
//	progress.Complete("roots scanned")
//
// # Warnings
//
// Warning renders a titled block with optional files and a suggestion.
// WarnScanErrors builds one from the errors a scan collected.
//
// # Results
//
// WriteProjects and WriteDocuments print ranked search results with the
// matched spans highlighted, in color on a terminal and with [brackets]
// otherwise.
//
// All functions take an io.Writer so commands and tests can capture output.
package display
