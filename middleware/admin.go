package middleware

import (
	"context"
	"log"
	"net/http"
)

type RoleChecker interface {
	HasRole(ctx context.Context, userID string, role string) (bool, error)
}

// RequireRole rejects authenticated users that lack role. It must run after
// ClerkAuthMiddleware.
func RequireRole(checker RoleChecker, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clerkID, ok := GetClerkID(r.Context())
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "User not authenticated")
				return
			}

			allowed, err := checker.HasRole(r.Context(), clerkID, role)
			if err != nil {
				log.Printf("Role check for %s failed: %v", clerkID, err)
				respondWithError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if !allowed {
				respondWithError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
