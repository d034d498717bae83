package httputil

import (
	"log/slog"
	"net/http"

	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/requestcontext"
)

// Fail logs err, at error level for internal failures and warn otherwise,
// then writes the error envelope.
func Fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, msg string) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		logger.ErrorContext(ctx, msg, "error", err, "path", r.URL.Path, "request_id", requestcontext.RequestID(ctx))
	} else {
		logger.WarnContext(ctx, msg, "error", err, "path", r.URL.Path, "request_id", requestcontext.RequestID(ctx))
	}
	WriteError(w, err)
}

// Decode reads a JSON body into dst, writing the error response on failure.
func Decode(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	if err := DecodeJSON(r, dst); err != nil {
		Fail(w, r, logger, err, "invalid request body")
		return false
	}
	return true
}
