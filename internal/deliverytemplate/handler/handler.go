package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"encantar/internal/deliverytemplate/models"
	"encantar/internal/platform/middleware"
	"encantar/pkg/domain"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/httputil"
)

type Service interface {
	List(ctx context.Context, f models.ListFilter, p pagination.Params) (*pagination.Page[models.View], error)
	Get(ctx context.Context, id uuid.UUID) (*models.View, error)
	Create(ctx context.Context, req *models.CreateRequest) (*models.View, error)
	Update(ctx context.Context, id uuid.UUID, req *models.UpdateRequest) (*models.View, error)
	Delete(ctx context.Context, id uuid.UUID) error
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
	r.Route("/api/delivery-templates", func(r chi.Router) {
		r.Use(h.guards.Auth)
		r.With(h.guards.CacheShort).Get("/", h.HandleList)
		r.With(h.guards.CacheShort).Get("/{id}", h.HandleGet)
		r.Post("/", h.HandleCreate)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ListFilter{Search: q.Get("search"), Active: domain.ParseActiveFilter(q.Get("active"))}
	page, err := h.svc.List(r.Context(), filter, pagination.Parse(r, pagination.Options{SortColumns: models.SortColumns}))
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to list delivery templates")
		return
	}
	httputil.WritePage(w, page)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to load delivery template")
		return
	}
	httputil.WriteData(w, v)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRequest
	if !httputil.Decode(w, r, h.logger, &req) {
		return
	}
	v, err := h.svc.Create(r.Context(), &req)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to create delivery template")
		return
	}
	httputil.WriteCreated(w, v, "delivery template created")
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req models.UpdateRequest
	if !httputil.Decode(w, r, h.logger, &req) {
		return
	}
	v, err := h.svc.Update(r.Context(), id, &req)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to update delivery template")
		return
	}
	httputil.WriteMessage(w, v, "delivery template updated")
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to delete delivery template")
		return
	}
	httputil.WriteMessage(w, nil, "delivery template deleted")
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid delivery template id")
		return uuid.Nil, false
	}
	return id, true
}
