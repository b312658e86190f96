package display

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/harrison/projdock/internal/models"
	"github.com/harrison/projdock/internal/search"
)

func TestProgressIndicator(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressIndicator(&buf, 2, false)

	p.Start("Scanning drive roots")
	p.Step("/mnt/projects")
	p.Step("/mnt/archive")
	p.Complete("roots scanned")

	assert.Equal(t, "Scanning drive roots:\n  [1/2] /mnt/projects\n  [2/2] /mnt/archive\n✓ 2 roots scanned\n", buf.String())
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		steps   int
		width   int
		want    string
		percent int
	}{
		{name: "empty", total: 0, steps: 0, width: 10, want: "[          ] 0/0 (0%)", percent: 0},
		{name: "half", total: 4, steps: 2, width: 10, want: "[=====     ] 2/4 (50%)", percent: 50},
		{name: "complete", total: 3, steps: 3, width: 6, want: "[======] 3/3 (100%)", percent: 100},
		{name: "overflow clamps", total: 2, steps: 5, width: 4, want: "[====] 5/2 (100%)", percent: 100},
		{name: "default width", total: 10, steps: 1, width: 0, want: "[=         ] 1/10 (10%)", percent: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, tt.width, false)
			for i := 0; i < tt.steps; i++ {
				pb.Increment()
			}
			assert.Equal(t, tt.want, pb.Render())
			assert.Equal(t, tt.percent, pb.Percentage())
		})
	}
}

func TestProgressBar_PrefixAndDraw(t *testing.T) {
	pb := NewProgressBar(2, 2, false)
	pb.SetPrefix("Indexing ")
	pb.Increment()

	var buf bytes.Buffer
	pb.Draw(&buf)
	assert.Equal(t, "\rIndexing [= ] 1/2 (50%)", buf.String())
}

func TestWarningDisplay(t *testing.T) {
	var buf bytes.Buffer
	Warning{
		Title:      "Drive root missing",
		Message:    "The root is not mounted",
		Files:      []string{"/mnt/projects"},
		Suggestion: "Mount the drive and rescan",
	}.Display(&buf, false)

	assert.Equal(t, "Warning: Drive root missing\n"+
		"    The root is not mounted\n"+
		"    Affected path:\n"+
		"      1. /mnt/projects\n"+
		"    Suggestion:\n"+
		"    Mount the drive and rescan\n", buf.String())

	buf.Reset()
	Warning{Title: "Two", Files: []string{"a", "b"}}.Display(&buf, false)
	assert.Contains(t, buf.String(), "Affected paths:\n      1. a\n      2. b\n")
}

func TestWarnScanErrors(t *testing.T) {
	_, ok := WarnScanErrors(nil, 5)
	assert.False(t, ok)

	var errs []error
	for i := 0; i < 4; i++ {
		errs = append(errs, fmt.Errorf("read dir /mnt/p/%d: %w", i, errors.New("permission denied")))
	}

	w, ok := WarnScanErrors(errs, 2)
	assert.True(t, ok)
	assert.Equal(t, "4 folder(s) could not be read", w.Title)
	assert.Len(t, w.Files, 2)
	assert.Contains(t, w.Message, "2 more")

	w, _ = WarnScanErrors(errs, 0)
	assert.Len(t, w.Files, 4)
	assert.Empty(t, w.Message)
}

func TestProjectLine(t *testing.T) {
	p := &models.Project{FullNumber: "2024638.001", Name: "Riverside Clinic", Tags: []string{"health", "phase2"}, Pinned: true}
	spans := []search.Span{
		{Field: search.FieldNumber, Start: 4, End: 7},
		{Field: search.FieldName, Start: 0, End: 5},
		{Field: search.FieldTag, Index: 1, Start: 0, End: 5},
	}

	assert.Equal(t, "2024[638].001  [River]side Clinic #health #[phase]2 *", ProjectLine(p, spans, false))
	assert.Equal(t, "2024638.001", ProjectLine(&models.Project{FullNumber: "2024638.001"}, nil, false))
}

func TestHighlighter(t *testing.T) {
	assert.Equal(t, "[638]", Highlighter(false)("638"))

	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	wrapped := Highlighter(true)("638")
	assert.Contains(t, wrapped, "638")
	assert.Contains(t, wrapped, "\x1b[")
	assert.NotContains(t, wrapped, "[638]")

	line := ProjectLine(&models.Project{FullNumber: "2024638"}, []search.Span{{Field: search.FieldNumber, Start: 4, End: 7}}, true)
	assert.Equal(t, "2024"+wrapped, line)
}

func TestWriteProjects(t *testing.T) {
	results := []search.ProjectResult{
		{Project: models.Project{FullNumber: "2024701", Name: "Harbor Tower"}, Score: 100, Launches: 3,
			Spans: []search.Span{{Field: search.FieldNumber, Start: 0, End: 7}}},
	}

	var buf bytes.Buffer
	WriteProjects(&buf, results, false, true)
	assert.Equal(t, " 100   3  [2024701]  Harbor Tower\n", buf.String())

	buf.Reset()
	WriteProjects(&buf, results, false, false)
	assert.Equal(t, "[2024701]  Harbor Tower\n", buf.String())
}

func TestWriteDocuments(t *testing.T) {
	results := []search.DocumentResult{
		{
			Document: models.Document{RelPath: "Electrical/E101 Power.dwg", Name: "E101 Power.dwg", Discipline: models.DisciplineElectrical},
			Spans:    []search.Span{{Field: search.FieldName, Start: 0, End: 4}, {Field: search.FieldPath, Start: 0, End: 4}},
		},
		{
			Document: models.Document{RelPath: "Revit File/Central.rvt", Name: "Central.rvt", Revit: true},
		},
	}

	var buf bytes.Buffer
	WriteDocuments(&buf, results, false)
	assert.Equal(t, "Electrical  [Elec]trical/[E101] Power.dwg\nRevit       Revit File/Central.rvt\n", buf.String())
}

func TestWriteIndexSummary(t *testing.T) {
	idx := &models.DocumentIndex{
		Type:        models.ProjectTypeHybrid,
		Disciplines: map[models.Discipline]string{models.DisciplineMechanical: "/p/Mech"},
		Counts:      map[models.Discipline]int{models.DisciplineMechanical: 4},
		Revit:       models.RevitInfo{Folder: "/p/Revit File", Models: []string{"A.rvt"}, Version: "2024", Cloud: true},
		ScannedAt:   time.Now(),
	}

	var buf bytes.Buffer
	WriteIndexSummary(&buf, idx)
	assert.Equal(t, "Type: hybrid\n"+
		"Revit: /p/Revit File, version 2024 (cloud), 1 model(s)\n"+
		"  A.rvt\n"+
		"Mechanical: /p/Mech (4 files)\n", buf.String())
}
