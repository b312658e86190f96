package search

import (
	"sort"
	"strings"
)

// SpansFor returns the spans that point into one field (and tag index)
func SpansFor(spans []Span, field Field, index int) []Span {
	var out []Span
	for _, s := range spans {
		if s.Field == field && s.Index == index {
			out = append(out, s)
		}
	}
	return out
}

// MergeSpans sorts spans and merges overlapping or touching ranges. Spans
// from different fields are merged independently.
func MergeSpans(spans []Span) []Span {
	if len(spans) < 2 {
		return spans
	}
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})

	out := []Span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &out[len(out)-1]
		if s.Field == last.Field && s.Index == last.Index && s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// Highlight wraps each span of text with wrap. Spans are clamped to text,
// empty or inverted spans are ignored, and overlapping spans merge. The
// caller passes spans for a single field (see SpansFor).
func Highlight(text string, spans []Span, wrap func(string) string) string {
	if len(spans) == 0 || wrap == nil {
		return text
	}

	valid := make([]Span, 0, len(spans))
	for _, s := range spans {
		s.Field, s.Index = "", 0
		s.Start = max(s.Start, 0)
		s.End = min(s.End, len(text))
		if s.Start < s.End {
			valid = append(valid, s)
		}
	}
	valid = MergeSpans(valid)

	var b strings.Builder
	pos := 0
	for _, s := range valid {
		b.WriteString(text[pos:s.Start])
		b.WriteString(wrap(text[s.Start:s.End]))
		pos = s.End
	}
	b.WriteString(text[pos:])
	return b.String()
}

// Brackets is a plain-text wrap for Highlight
func Brackets(s string) string {
	return "[" + s + "]"
}
