package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/fresh-tomatoes/catalog-api/internal/auth"
	"github.com/fresh-tomatoes/catalog-api/internal/domain"
	"github.com/fresh-tomatoes/catalog-api/internal/repository"
	"github.com/fresh-tomatoes/catalog-api/internal/session"
)

type userResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Tel      string `json:"tel"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Username string `json:"username"`
	Email    string `json:"email" validate:"required,email"`
	Tel      string `json:"tel"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userUpdateRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Tel      *string `json:"tel"`
	Password *string `json:"password"`
}

// handleRegister creates an account. The username defaults to the email
// address when omitted; a taken username or email is a conflict.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = req.Email
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register user")
		return
	}

	user, err := s.repo.Users.Create(r.Context(), repository.UserCreateParams{
		Name:         strings.TrimSpace(req.Name),
		Username:     username,
		Email:        req.Email,
		Tel:          strings.TrimSpace(req.Tel),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.respondError(w, http.StatusConflict, "CONFLICT", "An account with this username or email already exists")
			return
		}
		s.logger.Error("create user", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register user")
		return
	}
	s.respondJSON(w, http.StatusCreated, toUserResponse(user))
}

// handleLogin verifies credentials and issues a session token. The
// token is returned in the body and set as a cookie; a bad username and
// a bad password are indistinguishable to the caller.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	user, err := s.repo.Users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if isNotFound(err) {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials")
			return
		}
		s.logger.Error("login lookup", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to log in")
		return
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials")
		return
	}

	token, err := s.sessions.Issue(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("issue session", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to log in")
		return
	}
	s.setSessionCookie(w, token)
	s.respondJSON(w, http.StatusCreated, struct {
		Token string `json:"token"`
	}{Token: token})
}

// handleLogout revokes the presented session token. Presenting no token
// or an already-revoked one is an authentication failure; a second
// logout with the same token therefore fails.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token == "" {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	if err := s.sessions.Revoke(r.Context(), token); err != nil {
		if errors.Is(err, session.ErrTokenNotFound) {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		s.logger.Error("revoke session", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to log out")
		return
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	identity, err := s.guard.Resolve(r.Context(), sessionToken(r))
	if err != nil {
		s.respondAuthError(w, err)
		return
	}
	user, err := s.repo.Users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		if isNotFound(err) {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		s.logger.Error("get account", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch account")
		return
	}
	s.respondJSON(w, http.StatusOK, toUserResponse(user))
}

// handleUpdateMe edits the authenticated caller's own profile. A new
// password goes through the same strength policy as registration.
func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	identity, err := s.guard.Resolve(r.Context(), sessionToken(r))
	if err != nil {
		s.respondAuthError(w, err)
		return
	}

	var req userUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	params := repository.UserUpdateParams{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Tel:      req.Tel,
	}
	if req.Password != nil {
		if err := auth.ValidatePassword(*req.Password); err != nil {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			s.logger.Error("hash password", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update account")
			return
		}
		params.PasswordHash = &hash
	}

	user, err := s.repo.Users.Update(r.Context(), identity.UserID, params)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			s.respondError(w, http.StatusConflict, "CONFLICT", "An account with this username or email already exists")
		case isNotFound(err):
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		default:
			s.logger.Error("update account", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update account")
		}
		return
	}
	s.respondJSON(w, http.StatusOK, toUserResponse(user))
}

// handleDeleteMe removes the caller's account. Their reviews go with it
// and the current session is revoked on a best-effort basis.
func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	identity, err := s.guard.Resolve(r.Context(), token)
	if err != nil {
		s.respondAuthError(w, err)
		return
	}
	if err := s.repo.Users.Delete(r.Context(), identity.UserID); err != nil {
		if isNotFound(err) {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		s.logger.Error("delete account", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete account")
		return
	}
	if err := s.sessions.Revoke(r.Context(), token); err != nil && !errors.Is(err, session.ErrTokenNotFound) {
		s.logger.Warn("revoke session after account deletion", zap.Error(err))
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   s.cfg.SessionTTLHours * 3600,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:       formatID(user.ID),
		Name:     user.Name,
		Username: user.Username,
		Email:    user.Email,
		Tel:      user.Tel,
	}
}
