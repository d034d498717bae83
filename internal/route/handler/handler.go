package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	deliverymodels "encantar/internal/delivery/models"
	"encantar/internal/platform/middleware"
	"encantar/internal/route/models"
	"encantar/internal/route/service"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/httputil"
	"encantar/pkg/requestcontext"
)

type Service interface {
	List(ctx context.Context, f models.ListFilter, p pagination.Params) (*pagination.Page[models.WithCount], error)
	Get(ctx context.Context, id uuid.UUID) (*models.Detail, error)
	Create(ctx context.Context, req *models.CreateRequest) (*models.Route, error)
	Update(ctx context.Context, id uuid.UUID, req *models.UpdateRequest) (*models.Route, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateDeliveriesStatus(ctx context.Context, id uuid.UUID, req *deliverymodels.StatusRequest) (*models.StatusResult, error)
	Sheet(ctx context.Context, id uuid.UUID) (*models.Sheet, error)
	RenderSheet(ctx context.Context, id, templateID uuid.UUID) (*service.RenderedSheet, error)
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
	r.Route("/api/routes", func(r chi.Router) {
		r.Use(h.guards.Auth)
		r.With(h.guards.CacheShort).Get("/", h.HandleList)
		r.With(h.guards.CacheShort).Get("/{id}", h.HandleGet)
		r.Get("/{id}/sheet", h.HandleSheet)
		r.Get("/{id}/sheet/{templateId}", h.HandleRenderSheet)
		r.Post("/", h.HandleCreate)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Patch("/{id}/deliveries/status", h.HandleDeliveriesStatus)
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := models.ParseServiceDate(q.Get("service_date_from"))
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid service_date_from")
		return
	}
	to, err := models.ParseServiceDate(q.Get("service_date_to"))
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid service_date_to")
		return
	}
	filter := models.ListFilter{Search: q.Get("search"), ServiceDateFrom: from, ServiceDateTo: to}
	p := pagination.Parse(r, pagination.Options{MaxLimit: models.MaxPageLimit, SortColumns: models.SortColumns})

	page, err := h.svc.List(r.Context(), filter, p)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to list routes")
		return
	}
	httputil.WritePage(w, page)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to load route")
		return
	}
	httputil.WriteData(w, d)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRequest
	if !httputil.Decode(w, r, h.logger, &req) {
		return
	}
	rt, err := h.svc.Create(r.Context(), &req)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to create route")
		return
	}
	httputil.WriteCreated(w, rt, "route created")
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.UpdateRequest
	if !httputil.Decode(w, r, h.logger, &req) {
		return
	}
	rt, err := h.svc.Update(r.Context(), id, &req)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to update route")
		return
	}
	httputil.WriteMessage(w, rt, "route updated")
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to delete route")
		return
	}
	httputil.WriteMessage(w, nil, "route deleted")
}

func (h *Handler) HandleDeliveriesStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req deliverymodels.StatusRequest
	if !httputil.Decode(w, r, h.logger, &req) {
		return
	}
	res, err := h.svc.UpdateDeliveriesStatus(r.Context(), id, &req)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to update route deliveries")
		return
	}
	httputil.WriteMessage(w, res, fmt.Sprintf("%d deliveries updated", res.Updated))
}

func (h *Handler) HandleSheet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	sh, err := h.svc.Sheet(r.Context(), id)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to build route sheet")
		return
	}
	httputil.WriteData(w, sh)
}

// HandleRenderSheet serves the sheet as HTML. download=1 turns it into an
// attachment.
func (h *Handler) HandleRenderSheet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	templateID, ok := h.pathID(w, r, "templateId")
	if !ok {
		return
	}
	out, err := h.svc.RenderSheet(r.Context(), id, templateID)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to render route sheet")
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/html; charset=utf-8")
	hdr.Set("Cache-Control", "no-store")
	if d := r.URL.Query().Get("download"); d == "1" || d == "true" {
		hdr.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, out.FileName))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(out.HTML)); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write route sheet", "error", err, "request_id", requestcontext.RequestID(r.Context()))
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := httputil.PathID(r, name)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid route path parameter")
		return uuid.Nil, false
	}
	return id, true
}
