package httpserver

import (
	"net/url"
	"testing"

	"github.com/fresh-tomatoes/catalog-api/internal/repository"
)

func TestBuildMovieFilters(t *testing.T) {
	values, _ := url.ParseQuery("title= Incep &genres=Action&cast= DiCaprio &director=Nolan&rating=PG-13&year=2010")

	filters, err := buildMovieFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Title == nil || *filters.Title != "Incep" {
		t.Fatalf("title not trimmed: %+v", filters.Title)
	}
	if filters.Genre == nil || *filters.Genre != "Action" {
		t.Fatalf("genre parse failed: %+v", filters.Genre)
	}
	if filters.Cast == nil || *filters.Cast != "DiCaprio" {
		t.Fatalf("cast not trimmed")
	}
	if filters.Director == nil || *filters.Director != "Nolan" {
		t.Fatalf("director parse failed")
	}
	if filters.Rating == nil || *filters.Rating != "PG-13" {
		t.Fatalf("rating parse failed")
	}
	if filters.Year == nil || *filters.Year != 2010 {
		t.Fatalf("year parse failed: %+v", filters.Year)
	}
}

func TestBuildMovieFilters_GenreAlias(t *testing.T) {
	values, _ := url.ParseQuery("genre=Drama")
	filters, err := buildMovieFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Genre == nil || *filters.Genre != "Drama" {
		t.Fatalf("genre alias not honored: %+v", filters.Genre)
	}

	// The plural form wins when both are present.
	values, _ = url.ParseQuery("genres=Action&genre=Drama")
	filters, err = buildMovieFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Genre == nil || *filters.Genre != "Action" {
		t.Fatalf("genres should take precedence: %+v", filters.Genre)
	}
}

func TestBuildMovieFilters_YearBounds(t *testing.T) {
	values, _ := url.ParseQuery("start=1990&end=1999")
	filters, err := buildMovieFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.YearStart == nil || *filters.YearStart != 1990 {
		t.Fatalf("start parse failed")
	}
	if filters.YearEnd == nil || *filters.YearEnd != 1999 {
		t.Fatalf("end parse failed")
	}

	// An exact year overrides the bounds entirely.
	values, _ = url.ParseQuery("year=2005&start=1990&end=1999")
	filters, err = buildMovieFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Year == nil || *filters.Year != 2005 {
		t.Fatalf("year parse failed")
	}
	if filters.YearStart != nil || filters.YearEnd != nil {
		t.Fatalf("bounds should be ignored when year is set")
	}
}

func TestBuildMovieFilters_InvalidNumbers(t *testing.T) {
	for _, raw := range []string{"year=abc", "start=x", "end=199x"} {
		values, _ := url.ParseQuery(raw)
		if _, err := buildMovieFilters(values); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestBuildMovieFilters_Ordering(t *testing.T) {
	tests := []struct {
		raw   string
		field repository.MovieOrderField
		desc  bool
	}{
		{"ordering=year", repository.OrderYear, false},
		{"ordering=-year", repository.OrderYear, true},
		{"ordering=userRating", repository.OrderUserRating, false},
		{"ordering=-userRating", repository.OrderUserRating, true},
		{"ordering=runtime", repository.OrderRuntime, false},
		{"ordering=-votes", repository.OrderVotes, true},
	}
	for _, tt := range tests {
		values, _ := url.ParseQuery(tt.raw)
		filters, err := buildMovieFilters(values)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.raw, err)
		}
		if filters.OrderBy == nil {
			t.Fatalf("%q: ordering missing", tt.raw)
		}
		if filters.OrderBy.Field != tt.field || filters.OrderBy.Desc != tt.desc {
			t.Fatalf("%q: got %+v", tt.raw, filters.OrderBy)
		}
	}
}

func TestBuildMovieFilters_OrderingUnknownIgnored(t *testing.T) {
	values, _ := url.ParseQuery("ordering=title")
	filters, err := buildMovieFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.OrderBy != nil {
		t.Fatalf("unknown ordering should be ignored, got %+v", filters.OrderBy)
	}
}

func TestBuildMovieFilters_SearchWinsOverOrdering(t *testing.T) {
	values, _ := url.ParseQuery("search=nolan&ordering=-year")
	filters, err := buildMovieFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Search == nil || *filters.Search != "nolan" {
		t.Fatalf("search parse failed")
	}
	if filters.OrderBy != nil {
		t.Fatalf("search must disable the ordering parameter")
	}
}
