// Package middleware provides HTTP middleware for the dittodrive API.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/telemetry"
	"github.com/marmos91/dittodrive/pkg/identity"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "token"
)

// UserFromContext returns the signed-in user, or nil on anonymous requests.
func UserFromContext(ctx context.Context) *identity.User {
	user, ok := ctx.Value(userContextKey).(*identity.User)
	if !ok {
		return nil
	}
	return user
}

// TokenFromContext returns the bearer token the request was authenticated
// with.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// WithUser stores user and token in ctx.
func WithUser(ctx context.Context, user *identity.User, token string) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, tokenContextKey, token)
}

// extractBearerToken extracts the token from a Bearer Authorization header.
func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RequireUser resolves the bearer token through provider and rejects the
// request with 401 when it does not identify a user.
func RequireUser(provider identity.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearerToken(r)
			if !ok {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "Authorization header required")
				return
			}

			user, err := provider.CurrentUser(r.Context(), token)
			if err != nil {
				logger.WarnCtx(r.Context(), "Identity lookup failed", logger.KeyError, err)
				writeProblem(w, http.StatusBadGateway, "Bad Gateway", "Identity provider unavailable")
				return
			}
			if user == nil {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
				return
			}

			ctx := WithUser(r.Context(), user, token)
			if lc := logger.FromContext(ctx); lc != nil {
				ctx = logger.WithContext(ctx, lc.WithUser(user.ID))
			}
			telemetry.SetAttributes(ctx, telemetry.UserID(user.ID))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeProblem writes an RFC 7807 body. It mirrors handlers.WriteProblem,
// which this package cannot import.
func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "about:blank",
		"title":  title,
		"status": status,
		"detail": detail,
	})
}
