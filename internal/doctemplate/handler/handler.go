package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"encantar/internal/doctemplate/models"
	"encantar/internal/platform/middleware"
	"encantar/pkg/domain"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/httputil"
)

type Service interface {
	List(ctx context.Context, f models.ListFilter, p pagination.Params) (*pagination.Page[models.Template], error)
	Get(ctx context.Context, id uuid.UUID) (*models.Template, error)
	ListActive(ctx context.Context) ([]models.Summary, error)
	Search(ctx context.Context, name string) ([]models.Summary, error)
	Create(ctx context.Context, req *models.CreateRequest) (*models.Template, error)
	Update(ctx context.Context, id uuid.UUID, req *models.UpdateRequest) (*models.Template, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Toggle(ctx context.Context, id uuid.UUID) (*models.Template, error)
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
	r.Route("/api/document-templates", func(r chi.Router) {
		r.Use(h.guards.Auth)
		r.With(h.guards.CacheShort).Get("/", h.HandleList)
		r.With(h.guards.CacheMedium).Get("/active", h.HandleActive)
		r.Get("/search", h.HandleSearch)
		r.With(h.guards.CacheShort).Get("/{id}", h.HandleGet)
		r.Post("/", h.HandleCreate)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Patch("/{id}/toggle", h.HandleToggle)
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ListFilter{Search: q.Get("search"), Active: domain.ParseActiveFilter(q.Get("active"))}
	page, err := h.svc.List(r.Context(), filter, pagination.Parse(r, pagination.Options{SortColumns: models.SortColumns}))
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to list document templates")
		return
	}
	httputil.WritePage(w, page)
}

func (h *Handler) HandleActive(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListActive(r.Context())
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to list active document templates")
		return
	}
	httputil.WriteData(w, out)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Search(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "document template search failed")
		return
	}
	httputil.WriteData(w, out)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid document template id")
		return
	}
	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to load document template")
		return
	}
	httputil.WriteData(w, t)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRequest
	if !httputil.Decode(w, r, h.logger, &req) {
		return
	}
	t, err := h.svc.Create(r.Context(), &req)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to create document template")
		return
	}
	httputil.WriteCreated(w, t, "document template created")
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid document template id")
		return
	}
	var req models.UpdateRequest
	if !httputil.Decode(w, r, h.logger, &req) {
		return
	}
	t, err := h.svc.Update(r.Context(), id, &req)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to update document template")
		return
	}
	httputil.WriteMessage(w, t, "document template updated")
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid document template id")
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to delete document template")
		return
	}
	httputil.WriteMessage(w, nil, "document template deleted")
}

func (h *Handler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "invalid document template id")
		return
	}
	t, err := h.svc.Toggle(r.Context(), id)
	if err != nil {
		httputil.Fail(w, r, h.logger, err, "failed to toggle document template")
		return
	}
	msg := "document template deactivated"
	if t.Active {
		msg = "document template activated"
	}
	httputil.WriteMessage(w, t, msg)
}
