package testutil

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"encantar/pkg/requestcontext"
)

// WithAdmin adds an authenticated administrator to the request context,
// the state RequireAuth leaves behind.
func WithAdmin(req *http.Request, adminID uuid.UUID) *http.Request {
	return req.WithContext(requestcontext.WithAdminID(req.Context(), adminID))
}

// AdminContext returns a context carrying an administrator and a fixed time.
func AdminContext(adminID uuid.UUID, now time.Time) context.Context {
	ctx := requestcontext.WithAdminID(context.Background(), adminID)
	return requestcontext.WithTime(ctx, now)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
