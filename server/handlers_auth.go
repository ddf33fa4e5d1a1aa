package server

import (
	"encoding/json"
	"net/http"

	"github.com/amazingshop/user-service/federated"
	"github.com/amazingshop/user-service/session"
	"github.com/amazingshop/user-service/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type oauth2LoginRequest struct {
	IDToken  string `json:"idToken"`
	Provider string `json:"provider,omitempty"`
}

// SignupHandler registers a credential-based account and returns its first
// token pair.
func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Malformed request body")
			return
		}
		if err := users.ValidateNewUser(req.Username, req.Email, req.Password); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		pair, err := s.sessions.Register(req.Username, req.Email, req.Password)
		if err != nil {
			if errors.Is(err, users.ErrUsernameTaken) || errors.Is(err, users.ErrEmailTaken) {
				writeError(w, http.StatusConflict, "conflict", err.Error())
				return
			}
			log.Err(err).Msg("signup failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Registration failed")
			return
		}

		writeJSON(w, http.StatusCreated, pair)
	}
}

// LoginHandler exchanges username/password for a token pair. Credential
// failures and unknown accounts map to the same unauthorized response so
// account existence is not leaked.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Malformed request body")
			return
		}

		pair, err := s.sessions.Login(req.Username, req.Password)
		if err != nil {
			if errors.Is(err, session.ErrInvalidCredentials) || errors.Is(err, session.ErrAccountNotFound) {
				writeError(w, http.StatusUnauthorized, "invalid_grant", "Invalid username or password")
				return
			}
			log.Err(err).Msg("login failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Login failed")
			return
		}

		writeJSON(w, http.StatusOK, pair)
	}
}

// RefreshHandler rotates a refresh token into a new token pair.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "refreshToken is required")
			return
		}

		pair, err := s.sessions.Refresh(req.RefreshToken)
		if err != nil {
			if isSessionAuthFailure(err) {
				writeError(w, http.StatusUnauthorized, "invalid_grant", "Refresh token rejected")
				return
			}
			log.Err(err).Msg("refresh failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Refresh failed")
			return
		}

		writeJSON(w, http.StatusOK, pair)
	}
}

// LogoutHandler clears the server-side refresh-token slot. Logging out an
// already-ended session succeeds.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "refreshToken is required")
			return
		}

		if err := s.sessions.Logout(req.RefreshToken); err != nil {
			if isSessionAuthFailure(err) {
				writeError(w, http.StatusUnauthorized, "invalid_grant", "Refresh token rejected")
				return
			}
			log.Err(err).Msg("logout failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Logout failed")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// GoogleLoginHandler verifies a Google ID token, reconciles the verified
// identity against local accounts and issues a token pair.
func (s *Server) GoogleLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.verifier == nil {
			writeError(w, http.StatusServiceUnavailable, "unsupported", "Federated login is not configured")
			return
		}

		var req oauth2LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "idToken is required")
			return
		}

		identity, err := s.verifier.Verify(r.Context(), req.IDToken)
		if err != nil {
			log.Debug().Err(err).Msg("federated identity token rejected")
			writeError(w, http.StatusUnauthorized, "invalid_grant", "Identity token verification failed")
			return
		}

		user, err := s.binder.FindOrCreate(identity)
		if err != nil {
			if errors.Is(err, federated.ErrProviderConflict) {
				writeError(w, http.StatusConflict, "conflict", "Email already bound to a different provider")
				return
			}
			log.Err(err).Msg("federated account reconciliation failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "Federated login failed")
			return
		}

		pair, err := s.sessions.IssueFor(user.Username)
		if err != nil {
			log.Err(err).Msg("token issuance failed after federated login")
			writeError(w, http.StatusInternalServerError, "internal_error", "Federated login failed")
			return
		}

		writeJSON(w, http.StatusOK, pair)
	}
}

func (s *Server) HealthHandler(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": service,
			"status":  "ok",
		})
	}
}

// isSessionAuthFailure matches every session-lifecycle failure that maps to
// an unauthorized response. Unknown accounts are deliberately included so
// their existence is not leaked.
func isSessionAuthFailure(err error) bool {
	return errors.Is(err, session.ErrInvalidOrExpiredToken) ||
		errors.Is(err, session.ErrWrongTokenType) ||
		errors.Is(err, session.ErrAccountNotFound) ||
		errors.Is(err, session.ErrTokenMismatch) ||
		errors.Is(err, session.ErrTokenExpiredServerSide)
}
