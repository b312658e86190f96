package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/projdock/internal/display"
	"github.com/harrison/projdock/internal/models"
	"github.com/harrison/projdock/internal/search"
)

func testProjects() []models.Project {
	return []models.Project{
		{ID: 1, FullNumber: "2024701", ShortNumber: "701", Year: 2024, Name: "Harbor Tower", Path: "/drive/2024701 Harbor Tower"},
		{ID: 2, FullNumber: "2024638.001", ShortNumber: "638.001", Year: 2024, Name: "Riverside Clinic", Path: "/drive/2024638.001 Riverside Clinic"},
		{ID: 3, FullNumber: "2023112", ShortNumber: "112", Year: 2023, Name: "Library", Path: "/drive/2023112 Library", Pinned: true},
	}
}

// awaitQuery feeds debounced results into the model until one for query arrives
func awaitQuery(t *testing.T, m *Model, query string) tea.Cmd {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case r := <-m.debouncer.Results():
			_, cmd := m.Update(resultsMsg(r))
			if r.Query == query {
				return cmd
			}
		case <-deadline:
			t.Fatalf("no results for %q", query)
			return nil
		}
	}
}

func typeText(m *Model, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestModel_BrowseThenSearch(t *testing.T) {
	m := NewModel(context.Background(), Options{Projects: testProjects(), Fuzzy: true})
	t.Cleanup(m.debouncer.Close)

	m.Init()
	awaitQuery(t, m, "")
	require.Len(t, m.results, 3)
	assert.Equal(t, int64(3), m.Selected().ID, "pinned project browses first")

	typeText(m, "harbor")
	assert.Equal(t, "harbor", m.input.Value())
	awaitQuery(t, m, "harbor")
	require.Len(t, m.results, 1)
	assert.Equal(t, "Harbor Tower", m.Selected().Name)
	assert.Contains(t, m.View(), "Harbor")
}

func TestModel_NoMatchesSuggests(t *testing.T) {
	m := NewModel(context.Background(), Options{Projects: testProjects()})
	t.Cleanup(m.debouncer.Close)

	typeText(m, "harbour")
	awaitQuery(t, m, "harbour")
	assert.Empty(t, m.results)
	assert.Nil(t, m.Selected())
	assert.Contains(t, m.status, "harbor")
	assert.Contains(t, m.View(), "no matching projects")
}

func TestModel_MoveSelection(t *testing.T) {
	m := NewModel(context.Background(), Options{Projects: testProjects()})
	t.Cleanup(m.debouncer.Close)
	m.Init()
	awaitQuery(t, m, "")

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, m.cursor, "cursor stops at the last result")
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, m.cursor)
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.cursor)
}

func TestModel_NewSelectionCancelsDocumentLoad(t *testing.T) {
	release := make(chan struct{})
	loaded := make(chan int64, 4)

	load := func(ctx context.Context, p *models.Project) ([]models.Document, error) {
		loaded <- p.ID
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return []models.Document{{RelPath: "Electrical/E-101.dwg", Discipline: models.DisciplineElectrical}}, nil
		}
	}

	m := NewModel(context.Background(), Options{Projects: testProjects(), LoadDocuments: load})
	t.Cleanup(m.debouncer.Close)
	m.Init()
	awaitQuery(t, m, "")

	first := m.move(1)
	require.NotNil(t, first)
	firstMsg := make(chan tea.Msg, 1)
	go func() { firstMsg <- first() }()
	<-loaded

	second := m.move(1)
	require.NotNil(t, second)

	// the first load was cancelled and its result is ignored
	msg := <-firstMsg
	assert.ErrorIs(t, msg.(docsMsg).err, context.Canceled)
	m.Update(msg)
	assert.True(t, m.docLoading)

	secondMsg := make(chan tea.Msg, 1)
	go func() { secondMsg <- second() }()
	assert.Equal(t, int64(2), <-loaded)
	close(release)
	m.Update(<-secondMsg)

	assert.False(t, m.docLoading)
	require.Len(t, m.docs, 1)
	assert.Contains(t, m.View(), "Documents (1)")
	assert.Contains(t, m.View(), "E-101.dwg")
}

func TestModel_DocumentLoadError(t *testing.T) {
	load := func(ctx context.Context, p *models.Project) ([]models.Document, error) {
		return nil, errors.New("drive offline")
	}
	m := NewModel(context.Background(), Options{Projects: testProjects(), LoadDocuments: load})
	t.Cleanup(m.debouncer.Close)
	m.Init()
	awaitQuery(t, m, "")

	cmd := m.move(1)
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.Contains(t, m.View(), "documents unavailable: drive offline")
}

func TestModel_EnterOpens(t *testing.T) {
	var opened []int64
	open := func(ctx context.Context, p *models.Project) error {
		opened = append(opened, p.ID)
		return nil
	}
	m := NewModel(context.Background(), Options{Projects: testProjects(), Open: open})
	m.Init()
	awaitQuery(t, m, "")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	_, cmd = m.Update(cmd())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	assert.Equal(t, []int64{3}, opened)
	require.NotNil(t, m.Chosen())
	assert.Equal(t, "Library", m.Chosen().Name)
	assert.Empty(t, m.View())
}

func TestModel_OpenFailureKeepsRunning(t *testing.T) {
	open := func(ctx context.Context, p *models.Project) error {
		return errors.New("path not found")
	}
	m := NewModel(context.Background(), Options{Projects: testProjects(), Open: open})
	t.Cleanup(m.debouncer.Close)
	m.Init()
	awaitQuery(t, m, "")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(cmd())
	assert.Nil(t, m.Chosen())
	assert.Contains(t, m.View(), "open failed: path not found")
}

func TestModel_EscQuits(t *testing.T) {
	m := NewModel(context.Background(), Options{Projects: testProjects()})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Nil(t, m.Chosen())

	_, ok := <-m.debouncer.Results()
	assert.False(t, ok, "results channel closed on quit")
}

func TestModel_EnterWithoutResults(t *testing.T) {
	m := NewModel(context.Background(), Options{})
	t.Cleanup(m.debouncer.Close)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestHighlight(t *testing.T) {
	assert.Contains(t, highlight("harbor"), "harbor")

	line := display.FormatProject(&models.Project{FullNumber: "2024701", Name: "Harbor Tower"},
		[]search.Span{{Field: search.FieldName, Start: 0, End: 6}}, highlight)
	assert.Contains(t, line, "Harbor")
	assert.Contains(t, line, "Tower")
}
