package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"encantar/internal/dashboard/models"
	"encantar/internal/platform/middleware"
	"encantar/pkg/platform/httputil"
)

type Service interface {
	Stats(ctx context.Context) (*models.Stats, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
	guards middleware.Guards
}

func New(svc Service, logger *slog.Logger, guards middleware.Guards) *Handler {
	return &Handler{svc: svc, logger: logger, guards: guards.Normalize()}
}

func (h *Handler) Register(r chi.Router) {
	r.With(h.guards.Auth, h.guards.CacheShort).Get("/api/dashboard", h.HandleStats)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to load dashboard")
		return
	}
	httputil.WriteData(w, stats)
}
