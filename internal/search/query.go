// Package search scores projects and documents against free-text queries and
// returns ranked results with highlight spans.
package search

import (
	"strconv"
	"strings"

	"github.com/harrison/projdock/internal/models"
)

// Query is a parsed search string.
//
// Free tokens become Terms. Filter tokens narrow the candidate set:
//
//	#hospital        tag filter
//	year:2024        project year
//	type:revit       project type (cad, revit, hybrid, unknown)
//	ext:pdf          document extension (repeatable)
//	disc:e           document discipline (full name or prefix)
//
// A filter with an invalid value is treated as a free term.
type Query struct {
	Raw        string
	Terms      []string // Lower-cased free tokens
	Tags       []string
	Year       int
	Type       models.ProjectType // Empty when no type filter
	Extensions []string           // Normalized ".pdf" style
	Discipline models.Discipline
	// HasDiscipline distinguishes "disc:" filters from the zero Discipline
	HasDiscipline bool
}

// ParseQuery splits text on whitespace and extracts filter tokens
func ParseQuery(text string) Query {
	q := Query{Raw: text}

	for _, tok := range strings.Fields(text) {
		lower := strings.ToLower(tok)

		if strings.HasPrefix(lower, "#") && len(lower) > 1 {
			q.Tags = append(q.Tags, strings.TrimPrefix(tok, "#"))
			continue
		}

		key, value, ok := strings.Cut(lower, ":")
		if ok && value != "" {
			switch key {
			case "year":
				if y, err := strconv.Atoi(value); err == nil {
					if y < 100 {
						y += 2000
					}
					q.Year = y
					continue
				}
			case "type":
				if pt, ok := models.ParseProjectType(value); ok {
					q.Type = pt
					continue
				}
			case "ext":
				for _, ext := range strings.Split(value, ",") {
					ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
					if ext != "" {
						q.Extensions = append(q.Extensions, "."+ext)
					}
				}
				if len(q.Extensions) > 0 {
					continue
				}
			case "disc":
				if d, ok := models.ParseDiscipline(value); ok {
					q.Discipline = d
					q.HasDiscipline = true
					continue
				}
			}
		}

		q.Terms = append(q.Terms, lower)
	}

	return q
}

// Empty reports whether the query has neither terms nor filters
func (q Query) Empty() bool {
	return len(q.Terms) == 0 && !q.HasFilters()
}

// HasFilters reports whether any filter token was given
func (q Query) HasFilters() bool {
	return len(q.Tags) > 0 || q.Year != 0 || q.Type != "" ||
		len(q.Extensions) > 0 || q.HasDiscipline
}

// String re-renders the query in canonical form
func (q Query) String() string {
	var parts []string
	parts = append(parts, q.Terms...)
	for _, t := range q.Tags {
		parts = append(parts, "#"+t)
	}
	if q.Year != 0 {
		parts = append(parts, "year:"+strconv.Itoa(q.Year))
	}
	if q.Type != "" {
		parts = append(parts, "type:"+string(q.Type))
	}
	for _, e := range q.Extensions {
		parts = append(parts, "ext:"+strings.TrimPrefix(e, "."))
	}
	if q.HasDiscipline {
		parts = append(parts, "disc:"+string(q.Discipline))
	}
	return strings.Join(parts, " ")
}
