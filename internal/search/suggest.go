package search

import (
	"sort"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/harrison/projdock/internal/models"
)

// minSuggestLen skips short words that are too close to everything
const minSuggestLen = 3

// editOptions counts a substitution as one edit, like a typo
var editOptions = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// Suggest returns up to n project name words closest to the query's terms by
// edit distance. It is meant for "did you mean" hints after a search with no
// results. Distances larger than a third of the term length are discarded.
func Suggest(q Query, projects []models.Project, n int) []string {
	if n <= 0 || len(q.Terms) == 0 {
		return nil
	}

	vocab := make(map[string]bool)
	for i := range projects {
		for _, w := range splitWords(projects[i].Name) {
			if len([]rune(w.text)) >= minSuggestLen {
				vocab[w.text] = true
			}
		}
		for _, tag := range projects[i].Tags {
			for _, w := range splitWords(tag) {
				if len([]rune(w.text)) >= minSuggestLen {
					vocab[w.text] = true
				}
			}
		}
	}

	type candidate struct {
		word string
		dist int
	}
	best := make(map[string]int)
	for _, term := range q.Terms {
		tr := []rune(term)
		if len(tr) < minSuggestLen {
			continue
		}
		limit := max(1, len(tr)/3)
		for w := range vocab {
			if w == term {
				continue
			}
			d := levenshtein.DistanceForStrings(tr, []rune(w), editOptions)
			if d > limit {
				continue
			}
			if prev, ok := best[w]; !ok || d < prev {
				best[w] = d
			}
		}
	}

	cands := make([]candidate, 0, len(best))
	for w, d := range best {
		cands = append(cands, candidate{word: w, dist: d})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].word < cands[j].word
	})

	out := make([]string, 0, min(n, len(cands)))
	for _, c := range cands {
		if len(out) == n {
			break
		}
		out = append(out, c.word)
	}
	return out
}
