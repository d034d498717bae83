package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"encantar/internal/beneficiary/models"
	"encantar/internal/platform/middleware"
	"encantar/pkg/domain"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/httputil"
)

type Service interface {
	List(ctx context.Context, f models.ListFilter, p pagination.Params) (*pagination.Page[models.WithCount], error)
	Search(ctx context.Context, term string, limit int) ([]models.Summary, error)
	ListActive(ctx context.Context) ([]models.Summary, error)
	Top(ctx context.Context, limit int) ([]models.WithCount, error)
	Get(ctx context.Context, id uuid.UUID) (*models.WithCount, error)
	Create(ctx context.Context, req *models.CreateRequest) (*models.Beneficiary, error)
	Update(ctx context.Context, id uuid.UUID, req *models.UpdateRequest) (*models.Beneficiary, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Handler serves /api/beneficiaries.
type Handler struct {
	svc    Service
	logger *slog.Logger
	guards middleware.Guards
}

func New(svc Service, logger *slog.Logger, guards middleware.Guards) *Handler {
	return &Handler{svc: svc, logger: logger, guards: guards.Normalize()}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/api/beneficiaries", func(r chi.Router) {
		r.Use(h.guards.Auth)
		r.With(h.guards.CacheShort).Get("/", h.HandleList)
		r.Get("/search", h.HandleSearch)
		r.With(h.guards.CacheMedium).Get("/active", h.HandleActive)
		r.With(h.guards.CacheShort).Get("/top", h.HandleTop)
		r.With(h.guards.CacheShort).Get("/{id}", h.HandleGet)
		r.Post("/", h.HandleCreate)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	from, to, err := httputil.QueryDayRange(r)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid beneficiary list filter")
		return
	}
	q := r.URL.Query()
	filter := models.ListFilter{
		Search: q.Get("search"),
		Active: domain.ParseActiveFilter(q.Get("active")),
		From:   from,
		To:     to,
	}
	params := pagination.Parse(r, pagination.Options{SortColumns: models.SortColumns})

	page, err := h.svc.List(r.Context(), filter, params)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to list beneficiaries")
		return
	}
	httputil.WritePage(w, page)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit")
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid search limit")
		return
	}
	out, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "beneficiary search failed")
		return
	}
	httputil.WriteData(w, out)
}

func (h *Handler) HandleActive(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListActive(r.Context())
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to list active beneficiaries")
		return
	}
	httputil.WriteData(w, out)
}

func (h *Handler) HandleTop(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit")
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid top limit")
		return
	}
	out, err := h.svc.Top(r.Context(), limit)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to rank beneficiaries")
		return
	}
	httputil.WriteData(w, out)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid beneficiary id")
		return
	}
	b, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to load beneficiary")
		return
	}
	httputil.WriteData(w, b)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRequest
	if !httputil.Decode(w, r, h.logger, &req) {
		return
	}
	b, err := h.svc.Create(r.Context(), &req)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to create beneficiary")
		return
	}
	httputil.WriteCreated(w, b, "beneficiary created")
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid beneficiary id")
		return
	}
	var req models.UpdateRequest
	if !httputil.Decode(w, r, h.logger, &req) {
		return
	}
	b, err := h.svc.Update(r.Context(), id, &req)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to update beneficiary")
		return
	}
	httputil.WriteMessage(w, b, "beneficiary updated")
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid beneficiary id")
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to delete beneficiary")
		return
	}
	httputil.WriteMessage(w, nil, "beneficiary deactivated")
}
