// Package tui is the interactive search overlay: type to search projects,
// move with the arrow keys, enter to open.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harrison/projdock/internal/display"
	"github.com/harrison/projdock/internal/models"
	"github.com/harrison/projdock/internal/search"
)

const (
	maxVisibleResults = 10
	maxVisibleDocs    = 8
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	normalStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	inputStyle     = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
)

// highlight wraps a matched span for the result list
func highlight(s string) string {
	return highlightStyle.Render(s)
}

var keys = struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Quit  key.Binding
}{
	Up:    key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "up")),
	Down:  key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "down")),
	Enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Quit:  key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
}

// Options wires the picker to its data and actions
type Options struct {
	Projects []models.Project
	Launches map[int64]int
	Types    map[int64]models.ProjectType
	Limit    int
	Fuzzy    bool
	Debounce time.Duration

	// LoadDocuments returns the selected project's files. It must honor ctx;
	// a new selection cancels the previous load.
	LoadDocuments func(ctx context.Context, p *models.Project) ([]models.Document, error)
	// Open opens the project and records the launch
	Open func(ctx context.Context, p *models.Project) error

	In  io.Reader
	Out io.Writer
}

type resultsMsg search.Result[[]search.ProjectResult]

type docsMsg struct {
	seq  uint64
	docs []models.Document
	err  error
}

type openedMsg struct {
	project models.Project
	err     error
}

// Model is the bubbletea model for the search overlay
type Model struct {
	opts      Options
	input     textinput.Model
	debouncer *search.Debouncer[[]search.ProjectResult]
	ctx       context.Context

	results []search.ProjectResult
	cursor  int
	offset  int

	docs       []models.Document
	docsErr    error
	docSeq     uint64
	docCancel  context.CancelFunc
	docLoading bool

	status  string
	chosen  *models.Project
	closing bool
}

// NewModel creates the picker model
func NewModel(ctx context.Context, opts Options) *Model {
	ti := textinput.New()
	ti.Placeholder = "number, name, #tag, year:2024, type:revit"
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.Width = 60
	ti.Focus()

	m := &Model{opts: opts, input: ti, ctx: ctx}
	m.debouncer = search.NewDebouncer(opts.Debounce, m.search)
	return m
}

// search runs on the debouncer's goroutine; it reads only immutable options
func (m *Model) search(ctx context.Context, text string) ([]search.ProjectResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return search.Projects(search.ParseQuery(text), m.opts.Projects, search.ProjectOptions{
		Limit:    m.opts.Limit,
		Fuzzy:    m.opts.Fuzzy,
		Launches: m.opts.Launches,
		Types:    m.opts.Types,
	}), nil
}

func (m *Model) waitForResults() tea.Cmd {
	results := m.debouncer.Results()
	return func() tea.Msg {
		r, ok := <-results
		if !ok {
			return nil
		}
		return resultsMsg(r)
	}
}

// Init starts the cursor blink and the initial browse search
func (m *Model) Init() tea.Cmd {
	m.debouncer.Submit("")
	return tea.Batch(textinput.Blink, m.waitForResults())
}

// Update handles keys, search results and document loads
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, m.quit()
		case key.Matches(msg, keys.Up):
			return m, m.move(-1)
		case key.Matches(msg, keys.Down):
			return m, m.move(1)
		case key.Matches(msg, keys.Enter):
			return m, m.open()
		}

		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != before {
			m.debouncer.Submit(m.input.Value())
		}
		return m, cmd

	case resultsMsg:
		if msg.Err != nil {
			if !errors.Is(msg.Err, context.Canceled) {
				m.status = fmt.Sprintf("search failed: %v", msg.Err)
			}
			return m, m.waitForResults()
		}
		m.results = msg.Value
		m.cursor, m.offset = 0, 0
		m.status = ""
		if len(m.results) == 0 && strings.TrimSpace(msg.Query) != "" {
			if s := search.Suggest(search.ParseQuery(msg.Query), m.opts.Projects, 3); len(s) > 0 {
				m.status = "no matches; did you mean " + strings.Join(s, ", ") + "?"
			}
		}
		return m, tea.Batch(m.waitForResults(), m.loadDocuments())

	case docsMsg:
		if msg.seq != m.docSeq {
			return m, nil
		}
		m.docLoading = false
		if m.docCancel != nil {
			m.docCancel()
			m.docCancel = nil
		}
		if errors.Is(msg.err, context.Canceled) {
			return m, nil
		}
		m.docs, m.docsErr = msg.docs, msg.err
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("open failed: %v", msg.err)
			return m, nil
		}
		p := msg.project
		m.chosen = &p
		return m, m.quit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) move(delta int) tea.Cmd {
	if len(m.results) == 0 {
		return nil
	}
	next := min(max(m.cursor+delta, 0), len(m.results)-1)
	if next == m.cursor {
		return nil
	}
	m.cursor = next
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+maxVisibleResults {
		m.offset = m.cursor - maxVisibleResults + 1
	}
	return m.loadDocuments()
}

// loadDocuments cancels any running load and starts one for the selection
func (m *Model) loadDocuments() tea.Cmd {
	if m.docCancel != nil {
		m.docCancel()
		m.docCancel = nil
	}
	m.docSeq++
	m.docs, m.docsErr = nil, nil
	m.docLoading = false

	p := m.Selected()
	if p == nil || m.opts.LoadDocuments == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.docCancel = cancel
	m.docLoading = true
	seq := m.docSeq
	project := *p
	load := m.opts.LoadDocuments
	return func() tea.Msg {
		docs, err := load(ctx, &project)
		return docsMsg{seq: seq, docs: docs, err: err}
	}
}

func (m *Model) open() tea.Cmd {
	p := m.Selected()
	if p == nil {
		return nil
	}
	project := *p
	if m.opts.Open == nil {
		return func() tea.Msg { return openedMsg{project: project} }
	}
	open := m.opts.Open
	ctx := m.ctx
	return func() tea.Msg {
		return openedMsg{project: project, err: open(ctx, &project)}
	}
}

func (m *Model) quit() tea.Cmd {
	m.closing = true
	if m.docCancel != nil {
		m.docCancel()
		m.docCancel = nil
	}
	m.debouncer.Close()
	return tea.Quit
}

// Selected returns the highlighted project, or nil with no results
func (m *Model) Selected() *models.Project {
	if m.cursor < 0 || m.cursor >= len(m.results) {
		return nil
	}
	return &m.results[m.cursor].Project
}

// Chosen returns the project opened with enter, or nil if the user quit
func (m *Model) Chosen() *models.Project {
	return m.chosen
}

// View renders the overlay
func (m *Model) View() string {
	if m.closing {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("projdock"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d projects", len(m.opts.Projects))))
	b.WriteString("\n")
	b.WriteString(inputStyle.Render(m.input.View()))
	b.WriteString("\n")

	if len(m.results) == 0 {
		b.WriteString(dimStyle.Render("  no matching projects"))
		b.WriteString("\n")
	}
	end := min(m.offset+maxVisibleResults, len(m.results))
	for i := m.offset; i < end; i++ {
		r := &m.results[i]
		line := display.FormatProject(&r.Project, r.Spans, highlight)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("› ") + line)
		} else {
			b.WriteString("  " + normalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	if len(m.results) > end {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  … %d more", len(m.results)-end)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.documentsView())

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ select • enter open • esc quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) documentsView() string {
	if m.Selected() == nil || m.opts.LoadDocuments == nil {
		return ""
	}
	var b strings.Builder
	switch {
	case m.docLoading:
		b.WriteString(dimStyle.Render("  loading documents…"))
		b.WriteString("\n")
	case m.docsErr != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("  documents unavailable: %v", m.docsErr)))
		b.WriteString("\n")
	default:
		b.WriteString(titleStyle.Render(fmt.Sprintf("Documents (%d)", len(m.docs))))
		b.WriteString("\n")
		for i, d := range m.docs {
			if i == maxVisibleDocs {
				b.WriteString(dimStyle.Render(fmt.Sprintf("  … %d more", len(m.docs)-maxVisibleDocs)))
				b.WriteString("\n")
				break
			}
			label := d.Discipline.Label()
			if d.Revit {
				label = "Revit"
			}
			b.WriteString(dimStyle.Render(fmt.Sprintf("  %-10s ", label)))
			b.WriteString(normalStyle.Render(d.RelPath))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Run shows the overlay and returns the project opened with enter, nil if
// the user quit
func Run(ctx context.Context, opts Options) (*models.Project, error) {
	m := NewModel(ctx, opts)

	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.In != nil {
		progOpts = append(progOpts, tea.WithInput(opts.In))
	}
	if opts.Out != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Out))
	}

	final, err := tea.NewProgram(m, progOpts...).Run()
	if err != nil {
		m.debouncer.Close()
		return nil, fmt.Errorf("run search overlay: %w", err)
	}
	return final.(*Model).Chosen(), nil
}
