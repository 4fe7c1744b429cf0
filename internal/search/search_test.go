package search

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aryannaik/cellar/internal/wine"
)

var cellar = wine.Dataset{
	{ID: "1", Name: "Château Margaux", Country: "France", Region: "Bordeaux", Vintage: 2010, Style: "Red", Status: wine.StatusInCellar, FromCellar: true, Grapes: "Cabernet Sauvignon, Merlot"},
	{ID: "2", Name: "Cloudy Bay", Country: "New Zealand", Region: "Marlborough", Vintage: 2022, Style: "White", Status: wine.StatusConsumed, Grapes: "Sauvignon Blanc"},
	{ID: "3", Name: "Tignanello", Country: "Italy", Region: "Tuscany", Vintage: 2010, Style: "red", Status: wine.StatusInCellar, FromCellar: true, Notes: "gift from Marco"},
}

func ids(d wine.Dataset) []string {
	out := make([]string, len(d))
	for i, w := range d {
		out[i] = w.ID
	}
	return out
}

func TestParseFilter(t *testing.T) {
	q, _ := url.ParseQuery("country=France&vintage=2010&status=in_cellar&fromCellar=true&search=+margaux+&style=Red")
	f := ParseFilter(q)

	assert.Equal(t, "France", f.Country)
	assert.Equal(t, 2010, f.Vintage)
	assert.Equal(t, wine.StatusInCellar, f.Status)
	assert.Equal(t, "margaux", f.Search)
	assert.Equal(t, "Red", f.Style)
	if assert.NotNil(t, f.FromCellar) {
		assert.True(t, *f.FromCellar)
	}

	q, _ = url.ParseQuery("vintage=NV&fromCellar=maybe")
	f = ParseFilter(q)
	assert.Zero(t, f.Vintage)
	assert.Nil(t, f.FromCellar)
}

func TestFilter_Apply(t *testing.T) {
	no := false

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter keeps everything in order", Filter{}, []string{"1", "2", "3"}},
		{"style is case insensitive", Filter{Style: "RED"}, []string{"1", "3"}},
		{"vintage", Filter{Vintage: 2010}, []string{"1", "3"}},
		{"country and status", Filter{Country: "italy", Status: wine.StatusInCellar}, []string{"3"}},
		{"journal entries", Filter{FromCellar: &no}, []string{"2"}},
		{"search spans fields", Filter{Search: "sauvignon"}, []string{"1", "2"}},
		{"search requires every term", Filter{Search: "sauvignon blanc"}, []string{"2"}},
		{"search looks at notes", Filter{Search: "MARCO"}, []string{"3"}},
		{"no match", Filter{Country: "Chile"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.filter.Apply(cellar)))
		})
	}
}

func TestRank(t *testing.T) {
	results := Rank(cellar, "red tuscany")
	assert.Equal(t, "3", results[0].Wine.ID)
	assert.Equal(t, float32(1), results[0].Score)
	assert.Equal(t, "1", results[1].Wine.ID)
	assert.Equal(t, float32(0.5), results[1].Score)
	assert.Equal(t, "2", results[2].Wine.ID)
}
