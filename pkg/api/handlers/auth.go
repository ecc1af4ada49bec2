package handlers

import (
	"errors"
	"net/http"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/api/middleware"
	"github.com/marmos91/dittodrive/pkg/identity"
)

// AuthHandler handles sign-in, sign-out and the current user.
type AuthHandler struct {
	provider identity.Provider
}

// NewAuthHandler creates an auth handler backed by provider.
func NewAuthHandler(provider identity.Provider) *AuthHandler {
	return &AuthHandler{provider: provider}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds identity.Credentials
	if !decodeJSONBody(w, r, &creds) {
		return
	}
	if creds.Email == "" || creds.Password == "" {
		BadRequest(w, "Email and password are required")
		return
	}

	session, err := h.provider.SignIn(r.Context(), creds)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			Unauthorized(w, "Invalid email or password")
			return
		}
		writeError(w, r, err)
		return
	}

	logger.InfoCtx(r.Context(), "User signed in", logger.KeyUserID, session.User.ID)
	writeJSON(w, http.StatusOK, session)
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.provider.SignOut(r.Context(), middleware.TokenFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}
