package cheatsheet

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const revitSheet = `# Revit Shortcuts

Quick reference for the office template.

## Views

- VV visibility graphics
- WT tile windows
  - TW tab views

## Modify

- AL align
- TR trim/extend
- **MV** move with ` + "`copy`" + ` toggle

## Journal

` + "```" + `
%LOCALAPPDATA%\Autodesk\Revit
` + "```" + `
`

func TestParse(t *testing.T) {
	sheet, err := NewParser().Parse("revit", strings.NewReader(revitSheet))
	require.NoError(t, err)

	assert.Equal(t, "revit", sheet.Name)
	assert.Equal(t, "Revit Shortcuts", sheet.Title)
	require.Len(t, sheet.Sections, 4)

	intro := sheet.Sections[0]
	assert.Empty(t, intro.Heading)
	assert.Equal(t, []string{"Quick reference for the office template."}, intro.Entries)

	views := sheet.Sections[1]
	assert.Equal(t, "Views", views.Heading)
	assert.Equal(t, 2, views.Level)
	assert.Equal(t, []string{"VV visibility graphics", "WT tile windows", "TW tab views"}, views.Entries)

	modify := sheet.Sections[2]
	assert.Equal(t, []string{"AL align", "TR trim/extend", "MV move with copy toggle"}, modify.Entries)

	journal := sheet.Sections[3]
	assert.Equal(t, []string{`%LOCALAPPDATA%\Autodesk\Revit`}, journal.Entries)
}

func TestParse_NoTitle(t *testing.T) {
	sheet, err := NewParser().Parse("plot", strings.NewReader("## Pens\n\n- ctb per discipline\n"))
	require.NoError(t, err)

	assert.Equal(t, "plot", sheet.Title)
	require.Len(t, sheet.Sections, 1)
	assert.Equal(t, "Pens", sheet.Sections[0].Heading)
}

func TestParse_Empty(t *testing.T) {
	sheet, err := NewParser().Parse("empty", strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "empty", sheet.Title)
	assert.Empty(t, sheet.Sections)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "revit.md"), []byte(revitSheet), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AutoCAD.MD"), []byte("# AutoCAD\n\n- XR xref manager\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a sheet"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "drafts.md"), 0o755))

	sheets, errs := LoadDir(dir)
	assert.Empty(t, errs)
	require.Len(t, sheets, 2)
	assert.Equal(t, "AutoCAD", sheets[0].Name)
	assert.Equal(t, "revit", sheets[1].Name)
	assert.Equal(t, filepath.Join(dir, "revit.md"), sheets[1].Path)
}

func TestLoadDir_Missing(t *testing.T) {
	sheets, errs := LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.Nil(t, sheets)
	assert.Nil(t, errs)
}

func TestGet(t *testing.T) {
	sheets := []*Sheet{{Name: "revit"}, {Name: "revit-families"}, {Name: "AutoCAD"}}

	tests := []struct {
		name    string
		query   string
		want    string
		wantErr string
	}{
		{name: "exact wins over prefix", query: "Revit", want: "revit"},
		{name: "unique prefix", query: "auto", want: "AutoCAD"},
		{name: "ambiguous prefix", query: "rev", wantErr: "ambiguous"},
		{name: "unknown", query: "rhino", wantErr: "no cheat sheet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Get(sheets, tt.query)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestFind(t *testing.T) {
	sheet, err := NewParser().Parse("revit", strings.NewReader(revitSheet))
	require.NoError(t, err)
	sheets := []*Sheet{sheet}

	hits := Find(sheets, "TRIM")
	require.Len(t, hits, 1)
	assert.Equal(t, Hit{Sheet: "revit", Section: "Modify", Entry: "TR trim/extend"}, hits[0])

	// words may match the heading
	hits = Find(sheets, "views tile")
	require.Len(t, hits, 1)
	assert.Equal(t, "WT tile windows", hits[0].Entry)

	assert.Len(t, Find(sheets, "modify"), 3)
	assert.Empty(t, Find(sheets, "   "))
	assert.Empty(t, Find(sheets, "rhino"))
}

func TestRender(t *testing.T) {
	sheet, err := NewParser().Parse("revit", strings.NewReader(revitSheet))
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	Render(buf, sheet)
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Revit Shortcuts\n"))
	assert.Contains(t, out, "\n## Views\n  VV visibility graphics\n")
	assert.Contains(t, out, "  MV move with copy toggle\n")
}
