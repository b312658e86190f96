package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighlight(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		spans []Span
		want  string
	}{
		{
			name:  "single span",
			text:  "Palm Beach",
			spans: []Span{{Start: 0, End: 4}},
			want:  "[Palm] Beach",
		},
		{
			name:  "overlapping spans merge",
			text:  "Palm Beach",
			spans: []Span{{Start: 2, End: 6}, {Start: 0, End: 3}},
			want:  "[Palm B]each",
		},
		{
			name:  "touching spans merge",
			text:  "Palm Beach",
			spans: []Span{{Start: 0, End: 2}, {Start: 2, End: 4}},
			want:  "[Palm] Beach",
		},
		{
			name:  "clamped to text",
			text:  "Palm Beach",
			spans: []Span{{Start: -3, End: 2}, {Start: 7, End: 50}},
			want:  "[Pa]lm Be[ach]",
		},
		{
			name:  "inverted and empty spans ignored",
			text:  "Palm Beach",
			spans: []Span{{Start: 5, End: 3}, {Start: 4, End: 4}},
			want:  "Palm Beach",
		},
		{
			name: "no spans",
			text: "Palm Beach",
			want: "Palm Beach",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Highlight(tt.text, tt.spans, Brackets))
		})
	}

	t.Run("nil wrap", func(t *testing.T) {
		assert.Equal(t, "Palm", Highlight("Palm", []Span{{Start: 0, End: 2}}, nil))
	})
}

func TestSpansFor(t *testing.T) {
	spans := []Span{
		{Field: FieldNumber, Start: 0, End: 3},
		{Field: FieldTag, Index: 1, Start: 0, End: 2},
		{Field: FieldTag, Index: 0, Start: 0, End: 4},
		{Field: FieldName, Start: 5, End: 9},
	}
	assert.Equal(t, []Span{{Field: FieldTag, Index: 1, Start: 0, End: 2}}, SpansFor(spans, FieldTag, 1))
	assert.Equal(t, []Span{{Field: FieldName, Start: 5, End: 9}}, SpansFor(spans, FieldName, 0))
	assert.Empty(t, SpansFor(spans, FieldPath, 0))
}

func TestMergeSpans(t *testing.T) {
	got := MergeSpans([]Span{
		{Field: FieldName, Start: 4, End: 6},
		{Field: FieldNumber, Start: 0, End: 2},
		{Field: FieldName, Start: 0, End: 5},
		{Field: FieldName, Start: 8, End: 9},
	})
	assert.Equal(t, []Span{
		{Field: FieldName, Start: 0, End: 6},
		{Field: FieldName, Start: 8, End: 9},
		{Field: FieldNumber, Start: 0, End: 2},
	}, got)
}
