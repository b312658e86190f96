package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/harrison/projdock/internal/models"
)

func fixtureDocuments() []models.Document {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return []models.Document{
		{RelPath: "Electrical/E-101.dwg", Name: "E-101.dwg", Extension: ".dwg", Discipline: models.DisciplineElectrical, ModTime: base},
		{RelPath: "Electrical/E-101.pdf", Name: "E-101.pdf", Extension: ".pdf", Discipline: models.DisciplineElectrical, ModTime: base.Add(time.Hour)},
		{RelPath: "Electrical/Panel Schedules.xlsx", Name: "Panel Schedules.xlsx", Extension: ".xlsx", Discipline: models.DisciplineElectrical, ModTime: base},
		{RelPath: "Mechanical/M-101.dwg", Name: "M-101.dwg", Extension: ".dwg", Discipline: models.DisciplineMechanical, ModTime: base.Add(2 * time.Hour)},
		{RelPath: "Revit File/Tower.rvt", Name: "Tower.rvt", Extension: ".rvt", Revit: true, ModTime: base.Add(3 * time.Hour)},
		{RelPath: "Admin/Schedule/Kickoff.pdf", Name: "Kickoff.pdf", Extension: ".pdf", ModTime: base},
	}
}

func docPaths(results []DocumentResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Document.RelPath
	}
	return out
}

func TestDocuments(t *testing.T) {
	docs := fixtureDocuments()

	tests := []struct {
		name  string
		query string
		opts  DocumentOptions
		want  []string
	}{
		{
			name:  "empty query newest first",
			query: "",
			want: []string{
				"Revit File/Tower.rvt", "Mechanical/M-101.dwg", "Electrical/E-101.pdf",
				"Admin/Schedule/Kickoff.pdf", "Electrical/E-101.dwg", "Electrical/Panel Schedules.xlsx",
			},
		},
		{
			name:  "stem exact ranks by modification time",
			query: "e-101",
			want:  []string{"Electrical/E-101.pdf", "Electrical/E-101.dwg"},
		},
		{
			name:  "extension filter",
			query: "ext:pdf",
			want:  []string{"Electrical/E-101.pdf", "Admin/Schedule/Kickoff.pdf"},
		},
		{
			name:  "discipline filter",
			query: "disc:m",
			want:  []string{"Mechanical/M-101.dwg"},
		},
		{
			name:  "revit type filter",
			query: "type:revit",
			want:  []string{"Revit File/Tower.rvt"},
		},
		{
			name:  "cad type filter keeps discipline files",
			query: "type:cad ext:dwg",
			want:  []string{"Mechanical/M-101.dwg", "Electrical/E-101.dwg"},
		},
		{
			name:  "name word beats path substring",
			query: "schedule",
			want:  []string{"Electrical/Panel Schedules.xlsx", "Admin/Schedule/Kickoff.pdf"},
		},
		{
			name:  "limit",
			query: "101",
			opts:  DocumentOptions{Limit: 1},
			want:  []string{"Mechanical/M-101.dwg"},
		},
		{
			name:  "no match",
			query: "lighting",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Documents(ParseQuery(tt.query), docs, tt.opts)
			assert.Equal(t, tt.want, docPaths(got))
		})
	}
}

func TestDocuments_Spans(t *testing.T) {
	docs := fixtureDocuments()

	got := Documents(ParseQuery("panel"), docs, DocumentOptions{})
	assert.Equal(t, []string{"Electrical/Panel Schedules.xlsx"}, docPaths(got))
	assert.Equal(t, ScoreDocPrefix, got[0].Score)
	assert.Equal(t, []Span{{Field: FieldName, Start: 0, End: 5}}, got[0].Spans)

	got = Documents(ParseQuery("admin"), docs, DocumentOptions{})
	assert.Equal(t, ScorePathContains, got[0].Score)
	assert.Equal(t, []Span{{Field: FieldPath, Start: 0, End: 5}}, got[0].Spans)
}

func TestDocuments_Fuzzy(t *testing.T) {
	docs := fixtureDocuments()

	assert.Empty(t, Documents(ParseQuery("kckf"), docs, DocumentOptions{}))

	got := Documents(ParseQuery("kckf"), docs, DocumentOptions{Fuzzy: true})
	assert.Equal(t, []string{"Admin/Schedule/Kickoff.pdf"}, docPaths(got))
}
