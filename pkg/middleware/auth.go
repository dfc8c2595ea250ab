package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/splittab/splittab/internal/auth"
	"github.com/splittab/splittab/internal/models"
	"github.com/splittab/splittab/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// UserIDKey is the context key for the authenticated user ID
const UserIDKey ContextKey = "user_id"

// Auth returns middleware that verifies the Bearer token and injects the
// caller's user ID into the request context.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				response.Unauthorized(w, "Authorization header required")
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			userID, err := jwtManager.Verify(token)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts the authenticated user ID from the request context.
func GetUserID(ctx context.Context) (models.UserID, bool) {
	userID, ok := ctx.Value(UserIDKey).(models.UserID)
	return userID, ok
}
