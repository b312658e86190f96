package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest(t *testing.T) {
	projects := fixtureProjects()

	tests := []struct {
		name  string
		query string
		n     int
		want  []string
	}{
		{name: "name typo", query: "jupitr", n: 3, want: []string{"jupiter"}},
		{name: "tag typo", query: "hospitl", n: 3, want: []string{"hospital"}},
		{name: "ties sorted alphabetically", query: "medcal centr", n: 3, want: []string{"center", "medical"}},
		{name: "limited", query: "medcal centr", n: 1, want: []string{"center"}},
		{name: "too far", query: "warehouse", n: 3, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Suggest(ParseQuery(tt.query), projects, tt.n))
		})
	}

	assert.Nil(t, Suggest(ParseQuery(""), projects, 3))
	assert.Nil(t, Suggest(ParseQuery("palm"), projects, 0))
	assert.Empty(t, Suggest(ParseQuery("ab"), projects, 3))
}
