// Package identity signs users in and resolves session tokens to users.
//
// Users live in a SQL database reached through GORM (SQLite by default,
// PostgreSQL for shared deployments). Sessions are HS256 JWTs; signing out
// records the token id in revoked_tokens so the token stops resolving even
// though it has not expired.
package identity

import (
	"context"
	"time"
)

// Credentials identify a user at sign-in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

// Provider is the identity collaborator used by the API.
type Provider interface {
	// SignIn checks credentials and opens a session.
	// Returns ErrInvalidCredentials when they don't match.
	SignIn(ctx context.Context, creds Credentials) (*Session, error)

	// CurrentUser resolves a session token. Returns nil, nil when the token
	// is empty, invalid, expired or signed out.
	CurrentUser(ctx context.Context, token string) (*User, error)

	// SignOut ends the session the token belongs to. Signing out an invalid
	// or already revoked token is not an error.
	SignOut(ctx context.Context, token string) error
}
