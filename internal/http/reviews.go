package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fresh-tomatoes/catalog-api/internal/auth"
	"github.com/fresh-tomatoes/catalog-api/internal/domain"
	"github.com/fresh-tomatoes/catalog-api/internal/repository"
)

type reviewUserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type reviewMovieRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// reviewResponse nests the owner and movie summaries the way the list
// and detail endpoints expose them. Identifiers are strings.
type reviewResponse struct {
	ID         string         `json:"id"`
	User       reviewUserRef  `json:"user"`
	Movie      reviewMovieRef `json:"movie"`
	UserRating float64        `json:"userRating"`
	Comment    string         `json:"comment"`
}

// reviewUpsertRequest is the submission payload. The user field is
// read-only: the review always belongs to the authenticated caller, and
// a submitted value is ignored.
type reviewUpsertRequest struct {
	User       *domain.Ref `json:"user"`
	Movie      *domain.Ref `json:"movie"`
	UserRating *float64    `json:"userRating" validate:"required,gte=0,lte=10"`
	Comment    string      `json:"comment"`
	Overwrite  bool        `json:"overwrite"`
}

// reviewUpdateRequest edits a review in place. The movie reference is
// immutable and the owner cannot be reassigned; both fields are decoded
// only so those attempts can be rejected explicitly.
type reviewUpdateRequest struct {
	User       *domain.Ref `json:"user"`
	Movie      *domain.Ref `json:"movie"`
	UserRating *float64    `json:"userRating" validate:"omitempty,gte=0,lte=10"`
	Comment    *string     `json:"comment"`
	Overwrite  *bool       `json:"overwrite"`
}

// handleUpsertReview submits a review. A first review for the (caller,
// movie) pair is created and folded into the movie's aggregate rating.
// A resubmission without overwrite returns the existing review with a
// conflict status and changes nothing; with overwrite it updates the
// review in place and still feeds the new rating into the aggregate.
func (s *Server) handleUpsertReview(w http.ResponseWriter, r *http.Request) {
	identity, err := s.guard.Resolve(r.Context(), sessionToken(r))
	if err != nil {
		s.respondAuthError(w, err)
		return
	}

	var req reviewUpsertRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if req.Movie == nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "movie is required")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	review, _, err := s.repo.Reviews.Upsert(r.Context(), repository.ReviewUpsertParams{
		UserID:     identity.UserID,
		MovieID:    req.Movie.ID,
		UserRating: *req.UserRating,
		Comment:    strings.TrimSpace(req.Comment),
		Overwrite:  req.Overwrite,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			s.respondConflictingReview(w, review)
		case isNotFound(err):
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Movie not found")
		default:
			s.logger.Error("upsert review", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit review")
		}
		return
	}
	if _, _, err := s.repo.Movies.ApplyReviewRating(r.Context(), review.MovieID, review.UserRating); err != nil {
		s.logger.Error("apply review rating",
			zap.Int64("movie_id", review.MovieID),
			zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update movie rating")
		return
	}
	s.respondJSON(w, http.StatusCreated, toReviewResponse(review))
}

// respondConflictingReview reports a duplicate submission alongside the
// review that already exists, so the client can resubmit with overwrite.
func (s *Server) respondConflictingReview(w http.ResponseWriter, existing domain.Review) {
	s.respondJSON(w, http.StatusConflict, struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Review  reviewResponse `json:"review"`
	}{
		Code:    "CONFLICT",
		Message: "A review for this movie already exists",
		Review:  toReviewResponse(existing),
	})
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := s.parsePageParams(query)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var filters repository.ReviewListFilters
	if val := strings.TrimSpace(query.Get("movie_id")); val != "" {
		id, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid movie_id value")
			return
		}
		filters.MovieID = &id
	}
	if val := strings.TrimSpace(query.Get("title")); val != "" {
		filters.MovieTitle = &val
	}
	if val := strings.TrimSpace(query.Get("user_id")); val != "" {
		id, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user_id value")
			return
		}
		filters.UserID = &id
	}
	if val := strings.TrimSpace(query.Get("username")); val != "" {
		filters.Username = &val
	}
	switch strings.TrimSpace(query.Get("ordering")) {
	case "userRating":
		filters.OrderBy = &repository.ReviewOrdering{}
	case "-userRating":
		filters.OrderBy = &repository.ReviewOrdering{Desc: true}
	}
	filters.Page = page.Page
	filters.PageSize = page.Size

	result, err := s.repo.Reviews.List(r.Context(), filters)
	if err != nil {
		s.logger.Error("list reviews", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list reviews")
		return
	}
	s.respondJSON(w, http.StatusOK, paginate(r, page, result.Total, toReviewResponses(result.Items)))
}

// handleListMyReviews lists the authenticated caller's own reviews.
func (s *Server) handleListMyReviews(w http.ResponseWriter, r *http.Request) {
	identity, err := s.guard.Resolve(r.Context(), sessionToken(r))
	if err != nil {
		s.respondAuthError(w, err)
		return
	}
	page, err := s.parsePageParams(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.repo.Reviews.List(r.Context(), repository.ReviewListFilters{
		UserID:   &identity.UserID,
		Page:     page.Page,
		PageSize: page.Size,
	})
	if err != nil {
		s.logger.Error("list own reviews", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list reviews")
		return
	}
	s.respondJSON(w, http.StatusOK, paginate(r, page, result.Total, toReviewResponses(result.Items)))
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "reviewID"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	review, err := s.repo.Reviews.Get(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Error("get review", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch review")
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponse(review))
}

// handleUpdateReview edits a review's rating or comment. Only the owner
// may edit. A payload that tries to move the review to another movie is
// invalid for everyone, owner or not; a payload that tries to hand the
// review to another user is a permission error.
func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	identity, err := s.guard.Resolve(r.Context(), sessionToken(r))
	if err != nil {
		s.respondAuthError(w, err)
		return
	}
	id, err := parseIDParam(chi.URLParam(r, "reviewID"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	review, err := s.repo.Reviews.Get(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Error("get review", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch review")
		return
	}

	var req reviewUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if req.Movie != nil && req.Movie.ID != review.MovieID {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "The movie of a review cannot be changed")
		return
	}
	if req.User != nil && req.User.ID != review.UserID {
		s.respondError(w, http.StatusForbidden, "FORBIDDEN", "A review cannot be reassigned to another user")
		return
	}
	if err := auth.RequireOwner(identity, review.UserID); err != nil {
		s.respondAuthError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	updated, err := s.repo.Reviews.Update(r.Context(), id, repository.ReviewUpdateParams{
		UserRating: req.UserRating,
		Comment:    req.Comment,
	})
	if err != nil {
		if isNotFound(err) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Error("update review", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update review")
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponse(updated))
}

// handleDeleteReview removes a review. The owner or a staff caller may
// delete; the movie's aggregate rating is left as it stands.
func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	identity, err := s.guard.Resolve(r.Context(), sessionToken(r))
	if err != nil {
		s.respondAuthError(w, err)
		return
	}
	id, err := parseIDParam(chi.URLParam(r, "reviewID"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	review, err := s.repo.Reviews.Get(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Error("get review", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch review")
		return
	}
	if err := auth.RequireOwnerOrStaff(identity, review.UserID); err != nil {
		s.respondAuthError(w, err)
		return
	}
	if err := s.repo.Reviews.Delete(r.Context(), id); err != nil {
		if isNotFound(err) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Error("delete review", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete review")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toReviewResponse(review domain.Review) reviewResponse {
	return reviewResponse{
		ID:         formatID(review.ID),
		User:       reviewUserRef{ID: formatID(review.UserID), Username: review.Username},
		Movie:      reviewMovieRef{ID: formatID(review.MovieID), Title: review.MovieTitle},
		UserRating: review.UserRating,
		Comment:    review.Comment,
	}
}

func toReviewResponses(reviews []domain.Review) []reviewResponse {
	out := make([]reviewResponse, 0, len(reviews))
	for _, review := range reviews {
		out = append(out, toReviewResponse(review))
	}
	return out
}
