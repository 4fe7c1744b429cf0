package search

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/aryannaik/cellar/internal/wine"
)

// Filter narrows a dataset. Zero values match everything.
type Filter struct {
	Country    string
	Style      string
	Vintage    int
	Status     wine.Status
	Search     string
	FromCellar *bool
}

// ParseFilter reads a Filter from query parameters. Unparseable numeric or
// boolean values are ignored rather than rejected.
func ParseFilter(q url.Values) Filter {
	f := Filter{
		Country: strings.TrimSpace(q.Get("country")),
		Style:   strings.TrimSpace(q.Get("style")),
		Status:  wine.Status(strings.TrimSpace(q.Get("status"))),
		Search:  strings.TrimSpace(q.Get("search")),
	}
	if v, err := strconv.Atoi(q.Get("vintage")); err == nil {
		f.Vintage = v
	}
	if b, err := strconv.ParseBool(q.Get("fromCellar")); err == nil {
		f.FromCellar = &b
	}
	return f
}

// Match reports whether w passes every set criterion. Every search term must
// appear somewhere in the record's text fields.
func (f Filter) Match(w wine.Wine) bool {
	if f.Country != "" && !strings.EqualFold(f.Country, w.Country) {
		return false
	}
	if f.Style != "" && !strings.EqualFold(f.Style, w.Style) {
		return false
	}
	if f.Vintage != 0 && f.Vintage != w.Vintage {
		return false
	}
	if f.Status != "" && !strings.EqualFold(string(f.Status), string(w.Status)) {
		return false
	}
	if f.FromCellar != nil && *f.FromCellar != w.FromCellar {
		return false
	}
	if f.Search != "" {
		text := searchText(w)
		for _, term := range tokenize(f.Search) {
			if !strings.Contains(text, term) {
				return false
			}
		}
	}
	return true
}

// Apply returns the matching records in dataset order.
func (f Filter) Apply(d wine.Dataset) wine.Dataset {
	out := make(wine.Dataset, 0, len(d))
	for _, w := range d {
		if f.Match(w) {
			out = append(out, w)
		}
	}
	return out
}

// Result is a record with its relevance to a query.
type Result struct {
	Wine  wine.Wine `json:"wine"`
	Score float32   `json:"score"`
}

// Rank orders records by the fraction of query terms they contain. Ties keep
// dataset order.
func Rank(d wine.Dataset, query string) []Result {
	terms := tokenize(query)
	results := make([]Result, 0, len(d))
	for _, w := range d {
		results = append(results, Result{Wine: w, Score: keywordScore(w, terms)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func searchText(w wine.Wine) string {
	return strings.ToLower(strings.Join([]string{
		w.Name, w.Country, w.Region, w.Grapes, w.Style, w.Notes, w.Location,
	}, " "))
}

// keywordScore returns 0-1 based on what fraction of query terms appear in the record.
func keywordScore(w wine.Wine, terms []string) float32 {
	if len(terms) == 0 {
		return 0
	}

	text := searchText(w)
	matched := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			matched++
		}
	}
	return float32(matched) / float32(len(terms))
}

// tokenize splits a query into lowercase terms.
func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}
