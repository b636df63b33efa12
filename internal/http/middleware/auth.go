package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cifan-festival/submission-service/internal/utils/jwt"
	"github.com/cifan-festival/submission-service/internal/utils/response"
)

type contextKey string

const (
	UserIDKey        contextKey = "userID"
	EmailVerifiedKey contextKey = "emailVerified"
)

// AuthMiddleware validates the bearer token and stores the user identity in
// the request context. Every guarded route composes on top of this.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("Authorization header required")))
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("Invalid authorization header format")))
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == "" {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("Token not provided")))
				return
			}

			claims, err := jwt.ParseToken(token, jwtSecret)
			if err != nil {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("Invalid token")))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, EmailVerifiedKey, claims.EmailVerified)
			r = r.WithContext(ctx)

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserIDFromContext extracts the user ID from the request context.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// IsEmailVerified extracts the email verification flag from the request
// context.
func IsEmailVerified(ctx context.Context) bool {
	verified, _ := ctx.Value(EmailVerifiedKey).(bool)
	return verified
}
