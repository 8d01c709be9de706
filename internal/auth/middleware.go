package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formflow/backend/utils"
)

// Middleware extracts and injects the authentication context.
// This middleware:
// 1. Extracts the Authorization header
// 2. Verifies the bearer token
// 3. Injects the user into the request context
//
// If any step fails the request proceeds without auth context.
// Handlers that need a user are wrapped with RequireAuth.
func Middleware(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			slog.Debug("no authorization header provided")
			c.Next()
			return
		}

		token, ok := BearerToken(authHeader)
		if !ok {
			slog.Warn("malformed authorization header", "auth_header_length", len(authHeader))
			c.Next()
			return
		}

		claims, userID, err := verifier.Verify(token)
		if err != nil {
			slog.Warn("failed to verify access token", "error", err)
			c.Next()
			return
		}

		authCtx := &AuthContext{
			UserID:         userID,
			Email:          claims.Email,
			EmailConfirmed: claims.EmailConfirmed,
			Token:          token,
		}
		if claims.ExpiresAt != nil {
			authCtx.ExpiresAt = claims.ExpiresAt.Time
		}
		c.Request = c.Request.WithContext(WithAuthContext(c.Request.Context(), authCtx))

		slog.Debug("auth context injected successfully", "user_id", userID)
		c.Next()
	}
}

// RequireAuth rejects requests without an auth context with 401 Unauthorized.
// It must run after Middleware.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetAuthContext(c.Request.Context()) == nil {
			slog.Warn("authentication required but not provided",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			utils.RespondError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		c.Next()
	}
}
