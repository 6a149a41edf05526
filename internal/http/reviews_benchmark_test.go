package httpserver

import (
	"net/http"
	"testing"

	"github.com/fresh-tomatoes/catalog-api/internal/repository"
)

func BenchmarkHandleUpsertReview(b *testing.B) {
	srv := buildTestServer(b)
	_, token := newSessionUser(b, srv, false)
	movie := seedMovie(b, srv, repository.MovieImport{
		ID: 1, Title: "Benchmark Movie", Year: 2020, Directors: []string{"Someone"},
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := doJSON(srv, http.MethodPost, "/reviews", token, map[string]interface{}{
			"movie": movie.ID, "userRating": 7.5, "overwrite": true,
		})
		if rec.Code != http.StatusCreated {
			b.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
		}
	}
}
