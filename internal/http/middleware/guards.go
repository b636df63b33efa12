package middleware

import (
	"errors"
	"net/http"

	"github.com/cifan-festival/submission-service/internal/storage"
	"github.com/cifan-festival/submission-service/internal/utils/response"
)

// Guard is one access predicate in a route's guard list. Guards compose
// left to right via Chain; each one either passes the request along or
// answers with a remediation hint the client can navigate to.
type Guard func(http.Handler) http.Handler

// Chain applies guards in order around the final handler.
func Chain(h http.Handler, guards ...Guard) http.Handler {
	for i := len(guards) - 1; i >= 0; i-- {
		h = guards[i](h)
	}
	return h
}

// guardError answers 403 with the client-side route that remedies the
// unmet precondition.
func guardError(w http.ResponseWriter, message, remediation string) {
	w.Header().Set("X-Remediation", remediation)
	response.WriteJSON(w, http.StatusForbidden, response.Response{
		Status: response.StatusError,
		Error:  message,
		Data:   map[string]string{"redirect": remediation},
	})
}

// RequireVerifiedEmail rejects requests whose session was issued before the
// user verified their address.
func RequireVerifiedEmail() Guard {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsEmailVerified(r.Context()) {
				guardError(w, "email address must be verified", "#auth/verify-email")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCompleteProfile rejects requests from users who have not finished
// profile setup. Runs after AuthMiddleware.
func RequireCompleteProfile(store storage.DocumentStore) Guard {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("user not authenticated")))
				return
			}

			profile, err := store.Profile(r.Context(), userID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					guardError(w, "profile setup required", "#profile/setup")
					return
				}
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(
					errors.New("failed to load profile")))
				return
			}

			if !profile.IsComplete {
				guardError(w, "profile setup required", "#profile/setup")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
