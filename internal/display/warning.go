package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related paths (optional)
	Suggestion string   // Action to take (optional)
}

// Display writes the warning, in yellow when colorize is set
func (w Warning) Display(out io.Writer, colorize bool) {
	var b strings.Builder

	b.WriteString("Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		if len(w.Files) == 1 {
			b.WriteString("    Affected path:\n")
		} else {
			b.WriteString("    Affected paths:\n")
		}
		for i, file := range w.Files {
			fmt.Fprintf(&b, "      %d. %s\n", i+1, file)
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	text := b.String()
	if colorize {
		text = color.New(color.FgYellow).Sprint(text)
	}
	fmt.Fprint(out, text)
}

// WarnScanErrors builds a warning listing up to limit scan errors. It
// returns false when there is nothing to report.
func WarnScanErrors(errs []error, limit int) (Warning, bool) {
	if len(errs) == 0 {
		return Warning{}, false
	}
	if limit <= 0 || limit > len(errs) {
		limit = len(errs)
	}

	w := Warning{
		Title:      fmt.Sprintf("%d folder(s) could not be read", len(errs)),
		Suggestion: "Check drive permissions, or run with --verbose for details",
	}
	for _, err := range errs[:limit] {
		w.Files = append(w.Files, err.Error())
	}
	if rest := len(errs) - limit; rest > 0 {
		w.Message = fmt.Sprintf("Showing the first %d; %d more in the log", limit, rest)
	}
	return w, true
}
