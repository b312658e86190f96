package search

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/harrison/projdock/internal/models"
)

// Score weights for a single query term
const (
	ScoreNumberExact    = 100
	ScoreNumberPrefix   = 80
	ScoreNumberContains = 50
	ScoreWordExact      = 60
	ScoreWordPrefix     = 45
	ScoreNameContains   = 30
	ScoreTagExact       = 40
	ScoreTagPrefix      = 25
	ScoreFuzzyMin       = 10
	ScoreFuzzyMax       = 20
	ScorePathContains   = 20

	PinnedBonus    = 25
	LaunchBoostMax = 30
)

// Field identifies the text a Span points into
type Field string

const (
	FieldNumber Field = "number" // Project.FullNumber
	FieldName   Field = "name"   // Project.Name or Document.Name
	FieldTag    Field = "tag"    // Project.Tags[Index]
	FieldPath   Field = "path"   // Document.RelPath
)

// Span is a matched byte range [Start, End) in a field
type Span struct {
	Field Field
	Index int // Tag index for FieldTag, otherwise 0
	Start int
	End   int
}

// ProjectOptions tunes project search
type ProjectOptions struct {
	Limit    int                          // Maximum results (0 = unlimited)
	Fuzzy    bool                         // Enable subsequence matching on names
	Launches map[int64]int                // Project ID -> launch count
	Types    map[int64]models.ProjectType // Project ID -> scanned type, for type: filters
}

// ProjectResult is a scored project
type ProjectResult struct {
	Project  models.Project
	Score    int
	Launches int
	Spans    []Span
}

// match is the best way a single term matched a candidate
type match struct {
	score int
	spans []Span
}

func (m *match) offer(score int, spans ...Span) {
	if score > m.score {
		m.score = score
		m.spans = spans
	}
}

// Projects scores candidates against the query. Every term must match at
// least one field; filters must all hold. Results are sorted by score, then
// launch count, then newest number.
func Projects(q Query, projects []models.Project, opts ProjectOptions) []ProjectResult {
	results := make([]ProjectResult, 0)

	for i := range projects {
		p := &projects[i]
		if !projectFilters(q, p, opts) {
			continue
		}

		launches := opts.Launches[p.ID]
		total := 0
		var spans []Span
		matched := true
		for _, term := range q.Terms {
			m := scoreProjectTerm(term, p, opts.Fuzzy)
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

		if p.Pinned {
			total += PinnedBonus
		}
		total += LaunchBoost(launches)

		results = append(results, ProjectResult{
			Project:  *p,
			Score:    total,
			Launches: launches,
			Spans:    spans,
		})
	}

	if len(q.Terms) == 0 {
		sortBrowse(results)
	} else {
		sortRanked(results)
	}

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}

// LaunchBoost converts a launch count into a score bonus
func LaunchBoost(count int) int {
	return min(2*count, LaunchBoostMax)
}

func projectFilters(q Query, p *models.Project, opts ProjectOptions) bool {
	if q.Year != 0 && p.Year != q.Year {
		return false
	}
	for _, tag := range q.Tags {
		if !p.HasTag(tag) {
			return false
		}
	}
	if q.Type != "" {
		pt, ok := opts.Types[p.ID]
		if !ok {
			pt = models.ProjectTypeUnknown
		}
		if pt != q.Type {
			return false
		}
	}
	return true
}

func sortRanked(results []ProjectResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Launches != b.Launches {
			return a.Launches > b.Launches
		}
		return models.CompareNewest(&a.Project, &b.Project) < 0
	})
}

// sortBrowse orders an empty query: pinned, then most launched, then newest
func sortBrowse(results []ProjectResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		if a.Project.Pinned != b.Project.Pinned {
			return a.Project.Pinned
		}
		if a.Launches != b.Launches {
			return a.Launches > b.Launches
		}
		return models.CompareNewest(&a.Project, &b.Project) < 0
	})
}

func scoreProjectTerm(term string, p *models.Project, useFuzzy bool) match {
	var m match
	scoreNumber(&m, term, p)
	if m.score >= ScoreNumberExact {
		return m
	}
	scoreWords(&m, term, p.Name, FieldName)
	scoreTags(&m, term, p.Tags)
	if useFuzzy && m.score == 0 {
		scoreFuzzy(&m, term, p.Name, FieldName)
	}
	return m
}

// scoreNumber matches against the full number, the short number (a suffix
// of the full number), and the digit-only key.
func scoreNumber(m *match, term string, p *models.Project) {
	full := strings.ToLower(p.FullNumber)
	if full == "" {
		return
	}
	short := strings.ToLower(p.ShortNumber)
	shortOff := -1
	if short != "" && strings.HasSuffix(full, short) {
		shortOff = len(full) - len(short)
	}
	numSpan := func(start, end int) Span { return Span{Field: FieldNumber, Start: start, End: end} }

	key := p.Key()
	termKey := models.NumberKey(term)
	numeric := termKey != "" && isNumberish(term)

	switch {
	case term == full:
		m.offer(ScoreNumberExact, numSpan(0, len(full)))
	case term == short && shortOff >= 0:
		m.offer(ScoreNumberExact, numSpan(shortOff, len(full)))
	case numeric && termKey == key:
		m.offer(ScoreNumberExact, numSpan(0, len(full)))
	}
	if m.score >= ScoreNumberExact {
		return
	}

	switch {
	case strings.HasPrefix(full, term):
		m.offer(ScoreNumberPrefix, numSpan(0, len(term)))
	case shortOff >= 0 && strings.HasPrefix(short, term):
		m.offer(ScoreNumberPrefix, numSpan(shortOff, shortOff+len(term)))
	case numeric && strings.HasPrefix(key, termKey):
		if s, e, ok := digitRange(full, 0, len(termKey)); ok {
			m.offer(ScoreNumberPrefix, numSpan(s, e))
		}
	}
	if m.score >= ScoreNumberPrefix {
		return
	}

	if i := strings.Index(full, term); i >= 0 {
		m.offer(ScoreNumberContains, numSpan(i, i+len(term)))
	} else if numeric && len(termKey) >= 2 {
		if i := strings.Index(key, termKey); i >= 0 {
			if s, e, ok := digitRange(full, i, i+len(termKey)); ok {
				m.offer(ScoreNumberContains, numSpan(s, e))
			}
		}
	}
}

// isNumberish reports whether a term is only digits and number punctuation
func isNumberish(term string) bool {
	for _, r := range term {
		if !unicode.IsDigit(r) && r != '.' && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// digitRange maps the digit positions [from, to) of s onto byte offsets
func digitRange(s string, from, to int) (start, end int, ok bool) {
	digit := 0
	start = -1
	for i, r := range s {
		if !unicode.IsDigit(r) {
			continue
		}
		if digit == from {
			start = i
		}
		digit++
		if digit == to {
			return start, i + utf8.RuneLen(r), start >= 0
		}
	}
	return 0, 0, false
}

// word is a run of letters and digits with its byte offset
type word struct {
	text  string // lower-cased
	start int
	end   int
}

func splitWords(s string) []word {
	var words []word
	start := -1
	for i, r := range s {
		alnum := unicode.IsLetter(r) || unicode.IsDigit(r)
		switch {
		case alnum && start < 0:
			start = i
		case !alnum && start >= 0:
			words = append(words, word{text: strings.ToLower(s[start:i]), start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, word{text: strings.ToLower(s[start:]), start: start, end: len(s)})
	}
	return words
}

func scoreWords(m *match, term, text string, field Field) {
	if text == "" {
		return
	}
	for _, w := range splitWords(text) {
		switch {
		case w.text == term:
			m.offer(ScoreWordExact, Span{Field: field, Start: w.start, End: w.end})
		case strings.HasPrefix(w.text, term):
			m.offer(ScoreWordPrefix, Span{Field: field, Start: w.start, End: w.start + len(term)})
		}
	}
	if m.score >= ScoreNameContains {
		return
	}
	if i := indexFold(text, term); i >= 0 {
		m.offer(ScoreNameContains, Span{Field: field, Start: i, End: i + len(term)})
	}
}

func scoreTags(m *match, term string, tags []string) {
	for i, tag := range tags {
		lower := strings.ToLower(tag)
		switch {
		case lower == term:
			m.offer(ScoreTagExact, Span{Field: FieldTag, Index: i, Start: 0, End: len(tag)})
		case strings.HasPrefix(lower, term):
			m.offer(ScoreTagPrefix, Span{Field: FieldTag, Index: i, Start: 0, End: len(term)})
		}
	}
}

// scoreFuzzy runs a subsequence match and scales the score by how tightly
// the matched characters cluster.
func scoreFuzzy(m *match, term, text string, field Field) {
	if utf8.RuneCountInString(term) < 2 || text == "" {
		return
	}
	matches := fuzzy.Find(term, []string{text})
	if len(matches) == 0 || len(matches[0].MatchedIndexes) == 0 {
		return
	}
	idx := matches[0].MatchedIndexes

	first := idx[0]
	last := idx[len(idx)-1]
	_, lastLen := utf8.DecodeRuneInString(text[last:])
	width := last + lastLen - first
	score := ScoreFuzzyMin + (ScoreFuzzyMax-ScoreFuzzyMin)*len(term)/max(width, len(term))

	spans := make([]Span, 0, len(idx))
	for _, b := range idx {
		_, n := utf8.DecodeRuneInString(text[b:])
		spans = append(spans, Span{Field: field, Start: b, End: b + n})
	}
	m.offer(score, MergeSpans(spans)...)
}

// indexFold is a case-insensitive strings.Index returning a byte offset in s.
// The term is already lower-cased.
func indexFold(s, term string) int {
	lower := strings.ToLower(s)
	if len(lower) != len(s) {
		// Lower-casing changed byte lengths; fall back to a rune scan.
		for i := range s {
			if strings.HasPrefix(strings.ToLower(s[i:]), term) {
				return i
			}
		}
		return -1
	}
	return strings.Index(lower, term)
}
