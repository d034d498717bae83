package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"encantar/internal/item/models"
	"encantar/internal/platform/middleware"
	"encantar/pkg/domain"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/httputil"
)

type Service interface {
	List(ctx context.Context, f models.ListFilter, p pagination.Params) (*pagination.Page[models.Item], error)
	ListActive(ctx context.Context) ([]models.Summary, error)
	Units(ctx context.Context) ([]models.Unit, error)
	MostUsed(ctx context.Context, limit int) ([]models.WithUsage, error)
	Search(ctx context.Context, name string, limit int) ([]models.Summary, error)
	ListByUnit(ctx context.Context, unit string) ([]models.Item, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Item, error)
	Stats(ctx context.Context, id uuid.UUID) (*models.Stats, error)
	Create(ctx context.Context, req *models.CreateRequest) (*models.Item, error)
	Update(ctx context.Context, id uuid.UUID, req *models.UpdateRequest) (*models.Item, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) (*models.Item, error)
	Inactivate(ctx context.Context, id uuid.UUID) (*models.Item, error)
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
	r.Route("/api/items", func(r chi.Router) {
		r.Use(h.guards.Auth)
		r.With(h.guards.CacheShort).Get("/", h.HandleList)
		r.With(h.guards.CacheMedium).Get("/active", h.HandleActive)
		r.With(h.guards.CacheMedium).Get("/units", h.HandleUnits)
		r.With(h.guards.CacheShort).Get("/most-used", h.HandleMostUsed)
		r.Get("/search", h.HandleSearch)
		r.With(h.guards.CacheShort).Get("/by-unit", h.HandleByUnit)
		r.With(h.guards.CacheShort).Get("/{id}", h.HandleGet)
		r.With(h.guards.CacheShort).Get("/{id}/stats", h.HandleStats)
		r.Post("/", h.HandleCreate)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Patch("/{id}/reactivate", h.HandleReactivate)
		r.Patch("/{id}/inactivate", h.HandleInactivate)
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ListFilter{
		Search: q.Get("search"),
		Active: domain.ParseActiveFilter(q.Get("active")),
	}
	if raw := strings.TrimSpace(q.Get("unit")); raw != "" {
		unit, err := models.ParseUnit(raw)
		if err != nil {
			httputil.Fail(w, r, h.logger, err, "invalid unit filter")
			return
		}
		filter.Unit = unit
	}
	params := pagination.Parse(r, pagination.Options{SortColumns: models.SortColumns})

	page, err := h.svc.List(r.Context(), filter, params)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to list items")
		return
	}
	httputil.WritePage(w, page)
}

func (h *Handler) HandleActive(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListActive(r.Context())
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to list active items")
		return
	}
	httputil.WriteData(w, out)
}

func (h *Handler) HandleUnits(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Units(r.Context())
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to list units")
		return
	}
	httputil.WriteData(w, out)
}

func (h *Handler) HandleMostUsed(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit")
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid limit")
		return
	}
	out, err := h.svc.MostUsed(r.Context(), limit)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to rank items")
		return
	}
	httputil.WriteData(w, out)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit")
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid limit")
		return
	}
	out, err := h.svc.Search(r.Context(), r.URL.Query().Get("name"), limit)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "item search failed")
		return
	}
	httputil.WriteData(w, out)
}

func (h *Handler) HandleByUnit(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListByUnit(r.Context(), r.URL.Query().Get("unit"))
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to list items by unit")
		return
	}
	httputil.WriteData(w, out)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	it, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to load item")
		return
	}
	httputil.WriteData(w, it)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.Stats(r.Context(), id)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to load item stats")
		return
	}
	httputil.WriteData(w, stats)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRequest
	if !httputil.Decode(w, r, h.logger, &req) {
		return
	}
	it, err := h.svc.Create(r.Context(), &req)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to create item")
		return
	}
	httputil.WriteCreated(w, it, "item created")
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
	it, err := h.svc.Update(r.Context(), id, &req)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to update item")
		return
	}
	httputil.WriteMessage(w, it, "item updated")
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to delete item")
		return
	}
	httputil.WriteMessage(w, nil, "item deleted")
}

func (h *Handler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	it, err := h.svc.Reactivate(r.Context(), id)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to reactivate item")
		return
	}
	httputil.WriteMessage(w, it, "item reactivated")
}

func (h *Handler) HandleInactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	it, err := h.svc.Inactivate(r.Context(), id)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to inactivate item")
		return
	}
	httputil.WriteMessage(w, it, "item inactivated")
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid item id")
		return uuid.Nil, false
	}
	return id, true
}
