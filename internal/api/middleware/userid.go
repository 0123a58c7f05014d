package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/calmhive/taskmirror/internal/api/shared"
)

// UserIDHeader carries the caller's identity. Authentication is handled
// by an upstream gateway; this service trusts the header it forwards.
const UserIDHeader = "X-User-ID"

// RequireUserID extracts the user ID from the X-User-ID header and stores
// it in the request context. Requests without a valid UUID in the header
// are rejected with 401 before reaching any handler.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(UserIDHeader)
		if raw == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing user ID")
			return
		}

		userID, err := uuid.Parse(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid user ID")
			return
		}

		ctx := shared.SetUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
