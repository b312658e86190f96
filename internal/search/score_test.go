package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/projdock/internal/models"
)

func fixtureProjects() []models.Project {
	return []models.Project{
		{ID: 1, FullNumber: "2024638.001", ShortNumber: "638.001", Name: "Palm Beach Project", Year: 2024, Tags: []string{"hospital"}},
		{ID: 2, FullNumber: "2024638.002", ShortNumber: "638.002", Name: "Palm Beach Garage", Year: 2024},
		{ID: 3, FullNumber: "2023101", ShortNumber: "101", Name: "Jupiter Medical Center", Year: 2023, Tags: []string{"Hospital", "phase-2"}},
		{ID: 4, FullNumber: "2022_417", ShortNumber: "417", Name: "Riverside Tower", Year: 2022, Pinned: true},
		{ID: 5, FullNumber: "24-640", ShortNumber: "640", Name: "West Palm Offices", Year: 2024},
	}
}

func resultIDs(results []ProjectResult) []int64 {
	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.Project.ID
	}
	return ids
}

func TestProjects_Ranking(t *testing.T) {
	projects := fixtureProjects()

	tests := []struct {
		name    string
		query   string
		opts    ProjectOptions
		wantIDs []int64
	}{
		{
			name:    "short number prefix, newest sub-job first",
			query:   "638",
			wantIDs: []int64{2, 1},
		},
		{
			name:    "name word with launch boost",
			query:   "palm",
			opts:    ProjectOptions{Launches: map[int64]int{1: 3}},
			wantIDs: []int64{1, 5, 2},
		},
		{
			name:    "all terms must match",
			query:   "palm garage",
			wantIDs: []int64{2},
		},
		{
			name:    "tag filter without terms",
			query:   "#HOSPITAL",
			wantIDs: []int64{1, 3},
		},
		{
			name:    "year filter",
			query:   "year:2023",
			wantIDs: []int64{3},
		},
		{
			name:    "type filter uses scanned types",
			query:   "type:revit",
			opts:    ProjectOptions{Types: map[int64]models.ProjectType{2: models.ProjectTypeRevit}},
			wantIDs: []int64{2},
		},
		{
			name:    "type unknown matches unscanned projects",
			query:   "type:unknown palm",
			opts:    ProjectOptions{Types: map[int64]models.ProjectType{2: models.ProjectTypeRevit}},
			wantIDs: []int64{5, 1},
		},
		{
			name:    "no match",
			query:   "warehouse",
			wantIDs: []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Projects(ParseQuery(tt.query), projects, tt.opts)
			assert.Equal(t, tt.wantIDs, resultIDs(got))
		})
	}
}

func TestProjects_EmptyQueryBrowseOrder(t *testing.T) {
	projects := fixtureProjects()
	opts := ProjectOptions{Launches: map[int64]int{3: 5}}

	got := Projects(ParseQuery(""), projects, opts)
	assert.Equal(t, []int64{4, 3, 5, 2, 1}, resultIDs(got))
	assert.Equal(t, PinnedBonus, got[0].Score)
	assert.Equal(t, 10, got[1].Score)
	assert.Equal(t, 5, got[1].Launches)

	opts.Limit = 2
	got = Projects(ParseQuery(""), projects, opts)
	assert.Equal(t, []int64{4, 3}, resultIDs(got))
}

func TestProjects_ScoresAndSpans(t *testing.T) {
	projects := fixtureProjects()

	tests := []struct {
		name      string
		query     string
		id        int64
		wantScore int
		wantSpans []Span
	}{
		{
			name:      "full number exact",
			query:     "2024638.001",
			id:        1,
			wantScore: ScoreNumberExact,
			wantSpans: []Span{{Field: FieldNumber, Start: 0, End: 11}},
		},
		{
			name:      "digit key exact",
			query:     "2024638001",
			id:        1,
			wantScore: ScoreNumberExact,
			wantSpans: []Span{{Field: FieldNumber, Start: 0, End: 11}},
		},
		{
			name:      "short number exact",
			query:     "640",
			id:        5,
			wantScore: ScoreNumberExact,
			wantSpans: []Span{{Field: FieldNumber, Start: 3, End: 6}},
		},
		{
			name:      "full number prefix",
			query:     "2024638",
			id:        1,
			wantScore: ScoreNumberPrefix,
			wantSpans: []Span{{Field: FieldNumber, Start: 0, End: 7}},
		},
		{
			name:      "digit key prefix with different punctuation",
			query:     "2024-638",
			id:        2,
			wantScore: ScoreNumberPrefix,
			wantSpans: []Span{{Field: FieldNumber, Start: 0, End: 7}},
		},
		{
			name:      "short number exact on pinned project",
			query:     "417",
			id:        4,
			wantScore: ScoreNumberExact + PinnedBonus,
			wantSpans: []Span{{Field: FieldNumber, Start: 5, End: 8}},
		},
		{
			name:      "number contains",
			query:     "3101",
			id:        3,
			wantScore: ScoreNumberContains,
			wantSpans: []Span{{Field: FieldNumber, Start: 3, End: 7}},
		},
		{
			name:      "name word exact",
			query:     "tower",
			id:        4,
			wantScore: ScoreWordExact + PinnedBonus,
			wantSpans: []Span{{Field: FieldName, Start: 10, End: 15}},
		},
		{
			name:      "name word prefix",
			query:     "med",
			id:        3,
			wantScore: ScoreWordPrefix,
			wantSpans: []Span{{Field: FieldName, Start: 8, End: 11}},
		},
		{
			name:      "name substring",
			query:     "side",
			id:        4,
			wantScore: ScoreNameContains + PinnedBonus,
			wantSpans: []Span{{Field: FieldName, Start: 5, End: 9}},
		},
		{
			name:      "tag prefix",
			query:     "phase",
			id:        3,
			wantScore: ScoreTagPrefix,
			wantSpans: []Span{{Field: FieldTag, Index: 1, Start: 0, End: 5}},
		},
		{
			name:      "tag exact",
			query:     "phase-2",
			id:        3,
			wantScore: ScoreTagExact,
			wantSpans: []Span{{Field: FieldTag, Index: 1, Start: 0, End: 7}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Projects(ParseQuery(tt.query), projects, ProjectOptions{})
			var found *ProjectResult
			for i := range got {
				if got[i].Project.ID == tt.id {
					found = &got[i]
				}
			}
			require.NotNil(t, found, "project %d not in results", tt.id)
			assert.Equal(t, tt.wantScore, found.Score)
			assert.Equal(t, tt.wantSpans, found.Spans)
		})
	}
}

func TestProjects_Fuzzy(t *testing.T) {
	projects := fixtureProjects()

	got := Projects(ParseQuery("plmbch"), projects, ProjectOptions{})
	assert.Empty(t, got)

	got = Projects(ParseQuery("plmbch"), projects, ProjectOptions{Fuzzy: true})
	require.Len(t, got, 2)
	for _, r := range got {
		assert.GreaterOrEqual(t, r.Score, ScoreFuzzyMin)
		assert.LessOrEqual(t, r.Score, ScoreFuzzyMax)
		assert.NotEmpty(t, r.Spans)
		for _, s := range r.Spans {
			assert.Equal(t, FieldName, s.Field)
		}
	}
}

func TestLaunchBoost(t *testing.T) {
	assert.Equal(t, 0, LaunchBoost(0))
	assert.Equal(t, 8, LaunchBoost(4))
	assert.Equal(t, LaunchBoostMax, LaunchBoost(100))
}

func TestDigitRange(t *testing.T) {
	start, end, ok := digitRange("2024-638.001", 4, 7)
	assert.True(t, ok)
	assert.Equal(t, 5, start)
	assert.Equal(t, 8, end)

	_, _, ok = digitRange("2024", 2, 9)
	assert.False(t, ok)
}
