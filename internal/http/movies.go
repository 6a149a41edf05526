package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fresh-tomatoes/catalog-api/internal/domain"
	"github.com/fresh-tomatoes/catalog-api/internal/repository"
)

type namedRefResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// movieResponse is the catalog summary shape. Identifiers are strings
// to avoid precision loss in consumers; absent runtime and rating tag
// render as "--" placeholders.
type movieResponse struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Year       int                `json:"year"`
	Runtime    interface{}        `json:"runtime"`
	Rating     namedRefResponse   `json:"rating"`
	Directors  []namedRefResponse `json:"directors"`
	UserRating float64            `json:"userRating"`
	Votes      int64              `json:"votes"`
	Genres     []namedRefResponse `json:"genres"`
	Cast       []namedRefResponse `json:"cast"`
	Poster     *string            `json:"poster"`
}

// movieWriteRequest covers create and update payloads. References
// accept bare identifiers or embedded objects; both normalize to plain
// ids during decoding.
type movieWriteRequest struct {
	Title      *string         `json:"title"`
	Year       *int            `json:"year"`
	Runtime    *int            `json:"runtime"`
	Poster     *string         `json:"poster" validate:"omitempty,url"`
	Rating     *domain.Ref     `json:"rating"`
	Genres     *domain.RefList `json:"genres"`
	Directors  *domain.RefList `json:"directors"`
	Cast       *domain.RefList `json:"cast"`
	UserRating *float64        `json:"userRating" validate:"omitempty,gte=0,lte=10"`
	Votes      *int64          `json:"votes" validate:"omitempty,gte=0"`
}

// movieOrderings is the allow-list for the ordering parameter. Values
// outside the list are ignored, matching the original API's behavior.
var movieOrderings = map[string]repository.MovieOrderField{
	"year":       repository.OrderYear,
	"userRating": repository.OrderUserRating,
	"runtime":    repository.OrderRuntime,
	"votes":      repository.OrderVotes,
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := s.parsePageParams(query)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	filters, err := buildMovieFilters(query)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	filters.Page = page.Page
	filters.PageSize = page.Size

	result, err := s.repo.Movies.List(r.Context(), filters)
	if err != nil {
		s.logger.Error("list movies", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list movies")
		return
	}

	items := make([]movieResponse, 0, len(result.Items))
	for _, movie := range result.Items {
		items = append(items, toMovieResponse(movie))
	}
	s.respondJSON(w, http.StatusOK, paginate(r, page, result.Total, items))
}

// buildMovieFilters translates catalog query parameters into the filter
// engine's input. A malformed numeric value fails the whole query; the
// presence of a search term decides the ordering and wins over the
// ordering parameter.
func buildMovieFilters(query url.Values) (repository.MovieListFilters, error) {
	var filters repository.MovieListFilters

	if val := strings.TrimSpace(query.Get("title")); val != "" {
		filters.Title = &val
	}
	genre := strings.TrimSpace(query.Get("genres"))
	if genre == "" {
		genre = strings.TrimSpace(query.Get("genre"))
	}
	if genre != "" {
		filters.Genre = &genre
	}
	if val := strings.TrimSpace(query.Get("cast")); val != "" {
		filters.Cast = &val
	}
	if val := strings.TrimSpace(query.Get("director")); val != "" {
		filters.Director = &val
	}
	if val := strings.TrimSpace(query.Get("rating")); val != "" {
		filters.Rating = &val
	}

	if val := strings.TrimSpace(query.Get("year")); val != "" {
		year, err := strconv.Atoi(val)
		if err != nil {
			return filters, fmt.Errorf("invalid year value")
		}
		filters.Year = &year
	} else {
		if val := strings.TrimSpace(query.Get("start")); val != "" {
			start, err := strconv.Atoi(val)
			if err != nil {
				return filters, fmt.Errorf("invalid start value")
			}
			filters.YearStart = &start
		}
		if val := strings.TrimSpace(query.Get("end")); val != "" {
			end, err := strconv.Atoi(val)
			if err != nil {
				return filters, fmt.Errorf("invalid end value")
			}
			filters.YearEnd = &end
		}
	}

	if val := strings.TrimSpace(query.Get("search")); val != "" {
		filters.Search = &val
		return filters, nil
	}

	if val := strings.TrimSpace(query.Get("ordering")); val != "" {
		desc := strings.HasPrefix(val, "-")
		name := strings.TrimPrefix(val, "-")
		if field, ok := movieOrderings[name]; ok {
			filters.OrderBy = &repository.MovieOrdering{Field: field, Desc: desc}
		}
	}
	return filters, nil
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	if _, err := s.guard.ResolveStaff(r.Context(), sessionToken(r)); err != nil {
		s.respondAuthError(w, err)
		return
	}

	var req movieWriteRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if msg, ok := validateMovieWrite(req, true); !ok {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", msg)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	params := repository.MovieCreateParams{
		Title:   strings.TrimSpace(*req.Title),
		Year:    *req.Year,
		Runtime: req.Runtime,
		Poster:  req.Poster,
	}
	if req.Rating != nil {
		params.RatingID = &req.Rating.ID
	}
	if req.Genres != nil {
		params.GenreIDs = req.Genres.IDs()
	}
	if req.Directors != nil {
		params.DirectorIDs = req.Directors.IDs()
	}
	if req.Cast != nil {
		params.CastIDs = req.Cast.IDs()
	}
	if req.UserRating != nil {
		params.UserRating = *req.UserRating
	}
	if req.Votes != nil {
		params.Votes = *req.Votes
	}

	movie, err := s.repo.Movies.Create(r.Context(), params)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Referenced entity does not exist")
			return
		}
		if errors.Is(err, repository.ErrInvalidValue) {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Field values violate catalog constraints")
			return
		}
		s.logger.Error("create movie", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create movie")
		return
	}
	s.respondJSON(w, http.StatusCreated, toMovieResponse(movie))
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "movieID"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	movie, err := s.repo.Movies.GetByID(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Error("get movie", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch movie")
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	s.updateMovie(w, r, true)
}

func (s *Server) handlePatchMovie(w http.ResponseWriter, r *http.Request) {
	s.updateMovie(w, r, false)
}

func (s *Server) updateMovie(w http.ResponseWriter, r *http.Request, full bool) {
	if _, err := s.guard.ResolveStaff(r.Context(), sessionToken(r)); err != nil {
		s.respondAuthError(w, err)
		return
	}
	id, err := parseIDParam(chi.URLParam(r, "movieID"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req movieWriteRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if full {
		if msg, ok := validateMovieWrite(req, true); !ok {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", msg)
			return
		}
	} else if msg, ok := validateMovieWrite(req, false); !ok {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", msg)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	params := repository.MovieUpdateParams{
		Title:      req.Title,
		Year:       req.Year,
		Runtime:    req.Runtime,
		Poster:     req.Poster,
		UserRating: req.UserRating,
		Votes:      req.Votes,
	}
	if req.Rating != nil {
		params.RatingID = &req.Rating.ID
	}
	if req.Genres != nil {
		ids := req.Genres.IDs()
		params.GenreIDs = &ids
	}
	if req.Directors != nil {
		ids := req.Directors.IDs()
		params.DirectorIDs = &ids
	}
	if req.Cast != nil {
		ids := req.Cast.IDs()
		params.CastIDs = &ids
	}

	movie, err := s.repo.Movies.Update(r.Context(), id, params)
	if err != nil {
		switch {
		case isNotFound(err):
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		case errors.Is(err, repository.ErrInvalidReference):
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Referenced entity does not exist")
		case errors.Is(err, repository.ErrInvalidValue):
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Field values violate catalog constraints")
		default:
			s.logger.Error("update movie", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update movie")
		}
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	if _, err := s.guard.ResolveStaff(r.Context(), sessionToken(r)); err != nil {
		s.respondAuthError(w, err)
		return
	}
	id, err := parseIDParam(chi.URLParam(r, "movieID"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if err := s.repo.Movies.Delete(r.Context(), id); err != nil {
		if isNotFound(err) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Error("delete movie", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete movie")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validateMovieWrite checks presence and ranges the validator tags
// can't express. With required set the payload must carry the full
// entity.
func validateMovieWrite(req movieWriteRequest, required bool) (string, bool) {
	if required {
		if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
			return "title is required", false
		}
		if req.Year == nil {
			return "year is required", false
		}
		if req.Directors == nil || len(*req.Directors) == 0 {
			return "directors is required", false
		}
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return "title cannot be empty", false
	}
	if req.Year != nil && (*req.Year < domain.MinYear || *req.Year > domain.MaxYear) {
		return fmt.Sprintf("year must be between %d and %d", domain.MinYear, domain.MaxYear), false
	}
	if req.Runtime != nil && *req.Runtime <= 0 {
		return "runtime must be positive", false
	}
	if req.Votes != nil && req.UserRating != nil && *req.Votes == 0 && *req.UserRating != 0 {
		return "userRating must be 0 when votes is 0", false
	}
	return "", true
}

func toMovieResponse(movie domain.Movie) movieResponse {
	resp := movieResponse{
		ID:         formatID(movie.ID),
		Title:      movie.Title,
		Year:       movie.Year,
		Runtime:    "--",
		Rating:     namedRefResponse{ID: "-1", Name: "--"},
		Directors:  toNamedRefs(movie.Directors),
		UserRating: movie.UserRating,
		Votes:      movie.Votes,
		Genres:     toNamedRefs(movie.Genres),
		Cast:       toNamedRefs(movie.Cast),
		Poster:     movie.Poster,
	}
	if movie.Runtime != nil {
		resp.Runtime = *movie.Runtime
	}
	if movie.Rating != nil {
		resp.Rating = namedRefResponse{ID: formatID(movie.Rating.ID), Name: movie.Rating.Name}
	}
	return resp
}

func toNamedRefs(refs []domain.NamedRef) []namedRefResponse {
	out := make([]namedRefResponse, 0, len(refs))
	for _, ref := range refs {
		out = append(out, namedRefResponse{ID: formatID(ref.ID), Name: ref.Name})
	}
	return out
}
