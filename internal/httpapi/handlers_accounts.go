package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"libcirc/internal/accounts"
	"libcirc/lending"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      accounts.User `json:"user"`
}

// handleLogin verifies credentials and issues a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDomainError(w, err)
		return
	}

	user, err := s.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	token, expiresAt, err := s.auth.IssueToken(user)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

func userIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, accounts.ErrUserNotFound
	}

	return id, nil
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var params accounts.CreateUserParams
	if err := decodeJSON(r, &params); err != nil {
		respondDomainError(w, err)
		return
	}

	user, err := s.accounts.CreateUser(r.Context(), params)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var role lending.Role

	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, err := lending.ParseRole(raw)
		if err != nil {
			respondDomainError(w, err)
			return
		}

		role = parsed
	}

	users, err := s.accounts.ListUsers(r.Context(), role)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	user, err := s.accounts.GetUser(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err = s.accounts.DeleteUser(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
