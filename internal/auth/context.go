package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuthContext represents the authentication context available in a request.
// This is a transient context that is injected into the request by the auth middleware.
type AuthContext struct {
	UserID         uuid.UUID
	Email          string
	EmailConfirmed bool
	Token          string
	ExpiresAt      time.Time
}

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// AuthContextKey is the key for storing AuthContext in request context
	AuthContextKey ContextKey = "authContext"
)

// WithAuthContext returns a copy of ctx carrying authCtx.
func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, authCtx)
}

// GetAuthContext extracts the AuthContext from a request context.
// Returns nil if no auth context is available (request had no valid token).
func GetAuthContext(ctx context.Context) *AuthContext {
	authCtx, ok := ctx.Value(AuthContextKey).(*AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}
