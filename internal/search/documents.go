package search

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/harrison/projdock/internal/models"
)

// Document score weights
const (
	ScoreDocExact  = 100 // Term equals the file name or its stem
	ScoreDocPrefix = 80  // File name starts with the term
)

// DocumentOptions tunes document search
type DocumentOptions struct {
	Limit int
	Fuzzy bool
}

// DocumentResult is a scored document
type DocumentResult struct {
	Document models.Document
	Score    int
	Spans    []Span
}

// Documents scores a project's files against the query. Terms match the
// file name and relative path; ext:, disc: and type: filters apply. With no
// terms the filtered files are returned newest first.
func Documents(q Query, docs []models.Document, opts DocumentOptions) []DocumentResult {
	exts := make(map[string]bool, len(q.Extensions))
	for _, e := range q.Extensions {
		exts[strings.ToLower(e)] = true
	}

	results := make([]DocumentResult, 0)
	for i := range docs {
		d := &docs[i]
		if len(exts) > 0 && !exts[d.Extension] {
			continue
		}
		if q.HasDiscipline && d.Discipline != q.Discipline {
			continue
		}
		if !documentTypeFilter(q.Type, d) {
			continue
		}

		total := 0
		var spans []Span
		matched := true
		for _, term := range q.Terms {
			m := scoreDocumentTerm(term, d, opts.Fuzzy)
			if m.score == 0 {
				matched = false
				break
			}
			total += m.score
			spans = append(spans, m.spans...)
		}
		if !matched {
			continue
		}

		results = append(results, DocumentResult{Document: *d, Score: total, Spans: spans})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Document.ModTime.Equal(b.Document.ModTime) {
			return a.Document.ModTime.After(b.Document.ModTime)
		}
		return a.Document.RelPath < b.Document.RelPath
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}

// documentTypeFilter maps project types onto files: revit keeps files from
// the Revit folder, cad keeps discipline files.
func documentTypeFilter(t models.ProjectType, d *models.Document) bool {
	switch t {
	case models.ProjectTypeRevit:
		return d.Revit
	case models.ProjectTypeCAD:
		return d.Discipline != models.DisciplineNone
	default:
		return true
	}
}

func scoreDocumentTerm(term string, d *models.Document, useFuzzy bool) match {
	var m match
	name := d.Name
	lower := strings.ToLower(name)
	stem := strings.TrimSuffix(lower, strings.ToLower(filepath.Ext(name)))

	switch {
	case term == lower:
		m.offer(ScoreDocExact, Span{Field: FieldName, Start: 0, End: len(name)})
	case term == stem:
		m.offer(ScoreDocExact, Span{Field: FieldName, Start: 0, End: len(stem)})
	case strings.HasPrefix(lower, term):
		m.offer(ScoreDocPrefix, Span{Field: FieldName, Start: 0, End: len(term)})
	}
	if m.score > 0 {
		return m
	}

	scoreWords(&m, term, name, FieldName)
	if m.score == 0 {
		if i := indexFold(d.RelPath, term); i >= 0 {
			m.offer(ScorePathContains, Span{Field: FieldPath, Start: i, End: i + len(term)})
		}
	}
	if useFuzzy && m.score == 0 {
		scoreFuzzy(&m, term, name, FieldName)
	}
	return m
}
