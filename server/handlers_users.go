package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/amazingshop/user-service/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// userResponse is the safe outward projection of an account: no password
// hash, no refresh-token state, no federated subject id.
type userResponse struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	Role              users.Role `json:"role"`
	ProfilePictureURL *string    `json:"profilePictureUrl,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func toUserResponse(u *users.User) userResponse {
	return userResponse{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		Role:              u.Role,
		ProfilePictureURL: u.ProfilePictureURL,
		CreatedAt:         u.CreatedAt,
	}
}

type updateUserRequest struct {
	Email             *string `json:"email,omitempty"`
	ProfilePictureURL *string `json:"profilePictureUrl,omitempty"`
}

// CurrentUserHandler returns the authenticated account.
func (s *Server) CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		writeJSON(w, http.StatusOK, toUserResponse(principal))
	}
}

// UpdateCurrentUserHandler updates the authenticated account. Only email and
// profile picture may change through this endpoint.
func (s *Server) UpdateCurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())

		var req updateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Malformed request body")
			return
		}

		if req.Email != nil {
			if err := users.ValidateEmail(*req.Email); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
				return
			}
			principal.Email = *req.Email
		}
		if req.ProfilePictureURL != nil {
			principal.ProfilePictureURL = req.ProfilePictureURL
		}

		if err := s.users.Save(principal); err != nil {
			if errors.Is(err, users.ErrEmailTaken) {
				writeError(w, http.StatusConflict, "conflict", err.Error())
				return
			}
			log.Err(err).Msg("profile update failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Profile update failed")
			return
		}

		writeJSON(w, http.StatusOK, toUserResponse(principal))
	}
}

// ListUsersHandler returns accounts page by page. Admin only.
func (s *Server) ListUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset := queryInt(r, "offset", 0)
		limit := queryInt(r, "limit", 100)

		userList, err := s.users.List(offset, limit)
		if err != nil {
			log.Err(err).Msg("user listing failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Listing failed")
			return
		}

		responses := make([]userResponse, 0, len(userList))
		for _, u := range userList {
			responses = append(responses, toUserResponse(u))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"users":  responses,
			"offset": offset,
			"limit":  limit,
		})
	}
}

// GetUserHandler returns a single account by id. Admin only.
func (s *Server) GetUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.users.GetByID(r.PathValue("id"))
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "User not found")
				return
			}
			log.Err(err).Msg("user lookup failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

// PromoteUserHandler grants the admin role. Admin only.
func (s *Server) PromoteUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.users.GetByID(r.PathValue("id"))
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "User not found")
				return
			}
			log.Err(err).Msg("user lookup failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Lookup failed")
			return
		}

		user.Role = users.RoleAdmin
		if err := s.users.Save(user); err != nil {
			log.Err(err).Msg("promotion failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Promotion failed")
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

// DeleteUserHandler removes an account. Admin only.
func (s *Server) DeleteUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.users.Delete(r.PathValue("id")); err != nil {
			if errors.Is(err, users.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "User not found")
				return
			}
			log.Err(err).Msg("user deletion failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Deletion failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
