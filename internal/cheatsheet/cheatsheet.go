// Package cheatsheet loads markdown cheat sheets and searches their entries.
//
// A sheet is one .md file. Headings open sections; list items, paragraphs
// and code blocks become the entries of the current section. The first
// level-1 heading is the sheet title.
package cheatsheet

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Sheet is a parsed cheat sheet
type Sheet struct {
	Name     string // File name without extension
	Path     string
	Title    string // First level-1 heading, or Name
	Sections []Section
}

// Section is a heading and the entries below it
type Section struct {
	Heading string // "" for entries before the first heading
	Level   int
	Entries []string
}

// Hit is one entry matching a Find query
type Hit struct {
	Sheet   string
	Section string
	Entry   string
}

// Parser parses cheat sheet markdown
type Parser struct {
	markdown goldmark.Markdown
}

// NewParser creates a parser with CommonMark settings
func NewParser() *Parser {
	return &Parser{markdown: goldmark.New()}
}

// Parse reads one sheet
func (p *Parser) Parse(name string, r io.Reader) (*Sheet, error) {
	source, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read cheat sheet %s: %w", name, err)
	}

	sheet := &Sheet{Name: name}
	doc := p.markdown.Parser().Parse(text.NewReader(source))

	var current *Section
	section := func() *Section {
		if current == nil {
			sheet.Sections = append(sheet.Sections, Section{})
			current = &sheet.Sections[len(sheet.Sections)-1]
		}
		return current
	}
	addEntry := func(entry string) {
		if entry == "" {
			return
		}
		s := section()
		s.Entries = append(s.Entries, entry)
	}

	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			heading := nodeText(node, source)
			if node.Level == 1 && sheet.Title == "" {
				sheet.Title = heading
				return ast.WalkSkipChildren, nil
			}
			sheet.Sections = append(sheet.Sections, Section{Heading: heading, Level: node.Level})
			current = &sheet.Sections[len(sheet.Sections)-1]
			return ast.WalkSkipChildren, nil

		case *ast.ListItem:
			addEntry(nodeText(node, source))
			return ast.WalkContinue, nil

		case *ast.Paragraph:
			if node.Parent() != nil && node.Parent().Kind() == ast.KindDocument {
				addEntry(nodeText(node, source))
			}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock:
			addEntry(blockLines(node, source))
			return ast.WalkSkipChildren, nil

		case *ast.CodeBlock:
			addEntry(blockLines(node, source))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk cheat sheet %s: %w", name, err)
	}

	// Drop sections that never received entries or a heading
	kept := sheet.Sections[:0]
	for _, s := range sheet.Sections {
		if s.Heading != "" || len(s.Entries) > 0 {
			kept = append(kept, s)
		}
	}
	sheet.Sections = kept

	if sheet.Title == "" {
		sheet.Title = name
	}
	return sheet, nil
}

// ParseFile parses the sheet at path
func (p *Parser) ParseFile(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cheat sheet: %w", err)
	}
	defer f.Close()

	sheet, err := p.Parse(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), f)
	if err != nil {
		return nil, err
	}
	sheet.Path = path
	return sheet, nil
}

// LoadDir parses every .md file directly inside dir, sorted by name. A
// missing directory yields no sheets. Files that fail to parse are reported
// in the returned error slice and skipped.
func LoadDir(dir string) ([]*Sheet, []error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, []error{fmt.Errorf("read cheat sheet directory: %w", err)}
	}

	p := NewParser()
	var (
		sheets []*Sheet
		errs   []error
	)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			continue
		}
		sheet, err := p.ParseFile(filepath.Join(dir, e.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sheets = append(sheets, sheet)
	}

	sort.Slice(sheets, func(i, j int) bool {
		return strings.ToLower(sheets[i].Name) < strings.ToLower(sheets[j].Name)
	})
	return sheets, errs
}

// Get returns the sheet whose name matches exactly (case-insensitive), or
// the only sheet whose name starts with name.
func Get(sheets []*Sheet, name string) (*Sheet, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	var prefixed []*Sheet
	for _, s := range sheets {
		lower := strings.ToLower(s.Name)
		if lower == name {
			return s, nil
		}
		if strings.HasPrefix(lower, name) {
			prefixed = append(prefixed, s)
		}
	}
	switch len(prefixed) {
	case 0:
		return nil, fmt.Errorf("no cheat sheet named %q", name)
	case 1:
		return prefixed[0], nil
	default:
		names := make([]string, len(prefixed))
		for i, s := range prefixed {
			names[i] = s.Name
		}
		return nil, fmt.Errorf("cheat sheet %q is ambiguous: %s", name, strings.Join(names, ", "))
	}
}

// Find returns entries containing every word of query (case-insensitive).
// A word may also match the section heading.
func Find(sheets []*Sheet, query string) []Hit {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil
	}

	var hits []Hit
	for _, sheet := range sheets {
		for _, sec := range sheet.Sections {
			heading := strings.ToLower(sec.Heading)
			for _, entry := range sec.Entries {
				lower := strings.ToLower(entry)
				if matchesAll(words, lower, heading) {
					hits = append(hits, Hit{Sheet: sheet.Name, Section: sec.Heading, Entry: entry})
				}
			}
		}
	}
	return hits
}

// Render writes a sheet as plain text
func Render(w io.Writer, s *Sheet) {
	fmt.Fprintln(w, s.Title)
	for _, sec := range s.Sections {
		if sec.Heading != "" {
			fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("#", max(sec.Level, 1)), sec.Heading)
		}
		for _, e := range sec.Entries {
			fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(e, "\n", "\n    "))
		}
	}
}

func matchesAll(words []string, entry, heading string) bool {
	for _, w := range words {
		if !strings.Contains(entry, w) && !strings.Contains(heading, w) {
			return false
		}
	}
	return true
}

// nodeText collects the inline text below n. Nested lists are skipped so a
// list item yields only its own text.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(parent ast.Node) {
		for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				b.Write(t.Segment.Value(source))
				if t.SoftLineBreak() || t.HardLineBreak() {
					b.WriteByte(' ')
				}
			case *ast.String:
				b.Write(t.Value)
			case *ast.List:
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func blockLines(n ast.Node, source []byte) string {
	lines := n.Lines()
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimRight(b.String(), "\n")
}
