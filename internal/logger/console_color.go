package logger

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
)

// colorScheme defines consistent colors for summary metrics.
// Green: additions, Red: removals and errors, Yellow: updates, Cyan: labels
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}

func colorLevel(level string) string {
	switch strings.ToUpper(level) {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// formatColorizedMetric renders "label: value" with a colored label and a
// value colored by c (scheme.value when c is nil).
func formatColorizedMetric(label string, value interface{}, c *color.Color, scheme *colorScheme) string {
	if c == nil {
		c = scheme.value
	}
	return fmt.Sprintf("%s: %s", scheme.label.Sprint(label), c.Sprintf("%v", value))
}

// ScanSummary is the outcome of a scan and database sync
type ScanSummary struct {
	Roots     int
	Projects  int
	Added     int
	Updated   int
	Removed   int
	Unchanged int
	Errors    int
	Duration  time.Duration
}

// LogScanSummary writes a one-line scan summary at INFO level.
// Format: "[HH:MM:SS] Scan complete: projects: N | added: A | ... | took: D"
func (cl *ConsoleLogger) LogScanSummary(s ScanSummary) {
	if cl.writer == nil || !enabled(cl.logLevel, "info") {
		return
	}

	ts := cl.now().Format("15:04:05")
	if !cl.colorOutput {
		cl.writeLine(fmt.Sprintf("[%s] Scan complete: roots: %d | projects: %d | added: %d | updated: %d | removed: %d | unchanged: %d | errors: %d | took: %s",
			ts, s.Roots, s.Projects, s.Added, s.Updated, s.Removed, s.Unchanged, s.Errors, formatDuration(s.Duration)))
		return
	}

	scheme := newColorScheme()
	errColor := scheme.value
	if s.Errors > 0 {
		errColor = scheme.fail
	}
	parts := []string{
		formatColorizedMetric("roots", s.Roots, nil, scheme),
		formatColorizedMetric("projects", s.Projects, nil, scheme),
		formatColorizedMetric("added", s.Added, scheme.success, scheme),
		formatColorizedMetric("updated", s.Updated, scheme.warn, scheme),
		formatColorizedMetric("removed", s.Removed, scheme.fail, scheme),
		formatColorizedMetric("unchanged", s.Unchanged, nil, scheme),
		formatColorizedMetric("errors", s.Errors, errColor, scheme),
		formatColorizedMetric("took", formatDuration(s.Duration), nil, scheme),
	}
	cl.writeLine(fmt.Sprintf("[%s] Scan complete: %s", ts, strings.Join(parts, " | ")))
}

// formatDuration renders durations as "350ms", "4.2s" or "2m5s"
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}
