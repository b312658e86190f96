package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/projdock/internal/models"
	"github.com/harrison/projdock/internal/search"
)

// Highlighter returns the wrap used for matched spans
func Highlighter(colorize bool) func(string) string {
	if colorize {
		c := color.New(color.FgYellow, color.Bold)
		return func(s string) string { return c.Sprint(s) }
	}
	return search.Brackets
}

// ProjectLine renders one project: number, name, tags, with highlights
func ProjectLine(p *models.Project, spans []search.Span, colorize bool) string {
	return FormatProject(p, spans, Highlighter(colorize))
}

// FormatProject renders a project line, passing matched spans through wrap
func FormatProject(p *models.Project, spans []search.Span, wrap func(string) string) string {
	var b strings.Builder
	b.WriteString(search.Highlight(p.FullNumber, search.SpansFor(spans, search.FieldNumber, 0), wrap))
	if p.Name != "" {
		b.WriteString("  ")
		b.WriteString(search.Highlight(p.Name, search.SpansFor(spans, search.FieldName, 0), wrap))
	}
	for i, tag := range p.Tags {
		b.WriteString(" #")
		b.WriteString(search.Highlight(tag, search.SpansFor(spans, search.FieldTag, i), wrap))
	}
	if p.Pinned {
		b.WriteString(" *")
	}
	return b.String()
}

// WriteProjects prints ranked project results, one per line. showScore adds
// the score and launch count columns.
func WriteProjects(w io.Writer, results []search.ProjectResult, colorize, showScore bool) {
	for i := range results {
		r := &results[i]
		line := ProjectLine(&r.Project, r.Spans, colorize)
		if showScore {
			fmt.Fprintf(w, "%4d %3d  %s\n", r.Score, r.Launches, line)
		} else {
			fmt.Fprintln(w, line)
		}
	}
}

// WriteDocuments prints document results as "<discipline>  <relpath>"
func WriteDocuments(w io.Writer, results []search.DocumentResult, colorize bool) {
	wrap := Highlighter(colorize)
	for i := range results {
		d := &results[i].Document
		label := d.Discipline.Label()
		if d.Revit {
			label = "Revit"
		}
		path := search.Highlight(d.RelPath, pathSpans(d, results[i].Spans), wrap)
		fmt.Fprintf(w, "%-10s  %s\n", label, path)
	}
}

// WriteIndexSummary prints a project's type, Revit info and discipline counts
func WriteIndexSummary(w io.Writer, idx *models.DocumentIndex) {
	fmt.Fprintf(w, "Type: %s\n", idx.Type)
	if idx.Revit.Present() {
		version := idx.Revit.Version
		if version == "" {
			version = "unknown"
		}
		cloud := ""
		if idx.Revit.Cloud {
			cloud = " (cloud)"
		}
		fmt.Fprintf(w, "Revit: %s, version %s%s, %d model(s)\n", idx.Revit.Folder, version, cloud, len(idx.Revit.Models))
		for _, m := range idx.Revit.Models {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
	for _, d := range models.Disciplines {
		folder, ok := idx.Disciplines[d]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s: %s (%d files)\n", d.Label(), folder, idx.Counts[d])
	}
}

// pathSpans maps name and path spans onto RelPath; name spans index the base
// name at the end of RelPath
func pathSpans(d *models.Document, spans []search.Span) []search.Span {
	offset := len(d.RelPath) - len(d.Name)
	out := make([]search.Span, 0, len(spans))
	for _, s := range spans {
		switch s.Field {
		case search.FieldPath:
			out = append(out, search.Span{Start: s.Start, End: s.End})
		case search.FieldName:
			if offset >= 0 {
				out = append(out, search.Span{Start: s.Start + offset, End: s.End + offset})
			}
		}
	}
	return out
}
