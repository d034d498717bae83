package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	beneficiarymodels "encantar/internal/beneficiary/models"
	"encantar/internal/delivery/models"
	itemmodels "encantar/internal/item/models"
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
	UpdateStatus(ctx context.Context, id uuid.UUID, req *models.StatusRequest) (*models.View, error)
	SearchBeneficiaries(ctx context.Context, q string) ([]beneficiarymodels.Summary, error)
	SearchItems(ctx context.Context, q string) ([]itemmodels.Summary, error)
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
	r.Route("/api/deliveries", func(r chi.Router) {
		r.Use(h.guards.Auth)
		r.With(h.guards.CacheShort).Get("/", h.HandleList)
		r.Get("/beneficiaries/search", h.HandleSearchBeneficiaries)
		r.Get("/items/search", h.HandleSearchItems)
		r.With(h.guards.CacheShort).Get("/{id}", h.HandleGet)
		r.Post("/", h.HandleCreate)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Patch("/{id}/status", h.HandleStatus)
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid delivery filter")
		return
	}
	page, err := h.svc.List(r.Context(), filter, pagination.Parse(r, pagination.Options{SortColumns: models.SortColumns}))
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to list deliveries")
		return
	}
	httputil.WritePage(w, page)
}

func parseFilter(r *http.Request) (models.ListFilter, error) {
	q := r.URL.Query()
	var f models.ListFilter
	var err error
	if f.RouteID, err = domain.ParseOptionalID(q.Get("route_id"), "route_id"); err != nil {
		return f, err
	}
	if f.BeneficiaryID, err = domain.ParseOptionalID(q.Get("beneficiary_id"), "beneficiary_id"); err != nil {
		return f, err
	}
	if raw := q.Get("status"); raw != "" {
		if f.Status, err = models.ParseStatus(raw); err != nil {
			return f, err
		}
	}
	if f.From, f.To, err = httputil.QueryDayRange(r); err != nil {
		return f, err
	}
	f.Search = q.Get("search")
	return f, nil
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to load delivery")
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
		httputil.Fail(w, r, h.logger, err, "failed to create delivery")
		return
	}
	httputil.WriteCreated(w, v, "delivery created")
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
		httputil.Fail(w, r, h.logger, err, "failed to update delivery")
		return
	}
	httputil.WriteMessage(w, v, "delivery updated")
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to delete delivery")
		return
	}
	httputil.WriteMessage(w, nil, "delivery deleted")
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req models.StatusRequest
	if !httputil.Decode(w, r, h.logger, &req) {
		return
	}
	v, err := h.svc.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to update delivery status")
		return
	}
	httputil.WriteMessage(w, v, "delivery status updated")
}

func (h *Handler) HandleSearchBeneficiaries(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.SearchBeneficiaries(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "beneficiary search failed")
		return
	}
	httputil.WriteData(w, out)
}

func (h *Handler) HandleSearchItems(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.SearchItems(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "item search failed")
		return
	}
	httputil.WriteData(w, out)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid delivery id")
		return uuid.Nil, false
	}
	return id, true
}
