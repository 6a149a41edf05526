package httpserver

import (
	"net/url"
	"testing"
)

func FuzzBuildMovieFilters(f *testing.F) {
	seeds := []string{
		"title=Inception&genres=Action&year=2010",
		"search=nolan&ordering=-year",
		"start=1990&end=1999",
		"year=abc",
		"ordering=bogus",
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return
		}
		filters, err := buildMovieFilters(values)
		if err != nil {
			return
		}
		if filters.Search != nil && filters.OrderBy != nil {
			t.Fatalf("search and ordering must be mutually exclusive: %q", raw)
		}
		if filters.Year != nil && (filters.YearStart != nil || filters.YearEnd != nil) {
			t.Fatalf("exact year must suppress bounds: %q", raw)
		}
	})
}
