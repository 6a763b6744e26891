package middleware

import (
	"context"
	"errors"
	"net/http"

	"steel-store/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminChecker reports whether a user holds the admin flag
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// RequireAdmin middleware ensures the authenticated user is an admin. The
// flag is read from the store on every request so a revoked admin loses
// access immediately.
func RequireAdmin(checker AdminChecker, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r.Context())
			if !ok {
				logger.Warn("User ID not found in context")
				RespondWithError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			isAdmin, err := checker.IsAdmin(r.Context(), userID)
			if errors.Is(err, domain.ErrNotFound) {
				logger.Warn("Token subject no longer exists", zap.String("user_id", userID.String()))
				RespondWithError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if err != nil {
				logger.Error("Failed to check admin flag",
					zap.Error(err),
					zap.String("user_id", userID.String()),
				)
				RespondWithError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			if !isAdmin {
				logger.Warn("Non-admin user attempted to access admin endpoint",
					zap.String("user_id", userID.String()),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
