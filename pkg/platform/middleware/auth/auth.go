package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"encantar/pkg/platform/httputil"
	"encantar/pkg/requestcontext"
)

// TokenValidator validates an access token and returns its subject.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*Claims, error)
}

// AdminChecker confirms the token subject still exists and is active.
type AdminChecker interface {
	IsActiveAdmin(ctx context.Context, id uuid.UUID) (bool, error)
}

// Claims are the fields the middleware needs from a validated token.
type Claims struct {
	AdminID uuid.UUID
	Login   string
}

// RequireAuth rejects requests without a valid bearer token for an active
// administrator, and stores the admin id in the request context.
func RequireAuth(validator TokenValidator, admins AdminChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteErrorCode(w, http.StatusUnauthorized, "unauthorized", "access token required")
				return
			}

			claims, err := validator.ValidateAccessToken(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteErrorCode(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			active, err := admins.IsActiveAdmin(ctx, claims.AdminID)
			if err != nil {
				logger.ErrorContext(ctx, "failed to load administrator for token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteErrorCode(w, http.StatusInternalServerError, "internal_error", "")
				return
			}
			if !active {
				logger.WarnContext(ctx, "unauthorized access - inactive administrator",
					"admin_id", claims.AdminID,
					"request_id", requestID,
				)
				httputil.WriteErrorCode(w, http.StatusUnauthorized, "unauthorized", "user not found or inactive")
				return
			}

			ctx = requestcontext.WithAdminID(ctx, claims.AdminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
