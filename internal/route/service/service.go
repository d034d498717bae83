package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"encantar/internal/audit"
	deliverymodels "encantar/internal/delivery/models"
	"encantar/internal/platform/cache"
	"encantar/internal/route/metrics"
	"encantar/internal/route/models"
	"encantar/pkg/domain"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/requestcontext"
)

type Store interface {
	List(ctx context.Context, f models.ListFilter, p pagination.Params) ([]models.WithCount, int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.WithCount, error)
	Deliveries(ctx context.Context, routeID uuid.UUID) ([]models.Delivery, error)
	Create(ctx context.Context, r *models.Route) error
	Update(ctx context.Context, r *models.Route) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateDeliveryStatus(ctx context.Context, routeID uuid.UUID, status deliverymodels.Status, now time.Time, actor *uuid.UUID) (int, error)
}

// TemplateRenderer turns sheet data into HTML through a stored document
// template. Inactive templates are reported as not found.
type TemplateRenderer interface {
	RenderActive(ctx context.Context, id uuid.UUID, data any) (string, error)
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, entity cache.Entity)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

var tracer = otel.Tracer("encantar/route")

var errRouteHasDeliveries = dErrors.New(dErrors.CodeConflict, "route has deliveries and cannot be deleted")

// Service manages routes and their printable sheets.
type Service struct {
	store          Store
	renderer       TemplateRenderer
	cache          CacheInvalidator
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithCache(c CacheInvalidator) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithRenderer(r TemplateRenderer) Option {
	return func(s *Service) {
		s.renderer = r
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, cache: cache.Noop{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, f models.ListFilter, p pagination.Params) (*pagination.Page[models.WithCount], error) {
	ctx, span := tracer.Start(ctx, "route.List")
	defer span.End()

	f.Search = strings.TrimSpace(f.Search)
	if f.ServiceDateFrom != nil && f.ServiceDateTo != nil && f.ServiceDateTo.Before(f.ServiceDateFrom.Time) {
		return nil, dErrors.New(dErrors.CodeValidation, "service_date_to must not be before service_date_from")
	}
	rows, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list routes")
	}
	span.SetAttributes(attribute.Int("result.total", total))
	return pagination.NewPage(rows, total, p), nil
}

// Get returns the route with every delivery, beneficiary and item line.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Detail, error) {
	ctx, span := tracer.Start(ctx, "route.Get")
	defer span.End()

	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load route")
	}
	deliveries, err := s.store.Deliveries(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load route deliveries")
	}
	return &models.Detail{Route: r.Route, Deliveries: deliveries}, nil
}

func (s *Service) Create(ctx context.Context, req *models.CreateRequest) (*models.Route, error) {
	ctx, span := tracer.Start(ctx, "route.Create")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	actor := requestcontext.AdminID(ctx)
	r, err := models.NewRoute(uuid.New(), req.Name, requestcontext.Now(ctx), actor)
	if err != nil {
		return nil, toValidation(err)
	}
	r.Description = models.Optional(req.Description)
	r.Notes = models.Optional(req.Notes)
	r.ServiceDate, _ = models.ParseServiceDate(req.ServiceDate)

	if err := s.store.Create(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create route")
	}
	s.afterMutation(ctx, cache.EntityRoutes, "create", audit.ActionCreated, r.ID, "name", r.Name)
	return r, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *models.UpdateRequest) (*models.Route, error) {
	ctx, span := tracer.Start(ctx, "route.Update")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load route")
	}
	r := current.Route
	req.Apply(&r)
	if err := r.Check(); err != nil {
		return nil, toValidation(err)
	}
	r.Touch(requestcontext.Now(ctx), requestcontext.AdminID(ctx))

	if err := s.store.Update(ctx, &r); err != nil {
		return nil, notFoundOr(err, "failed to update route")
	}
	s.afterMutation(ctx, cache.EntityRoutes, "update", audit.ActionUpdated, r.ID)
	return &r, nil
}

// Delete removes a route that has no deliveries.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "route.Delete")
	defer span.End()

	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "failed to load route")
	}
	if current.DeliveryCount > 0 {
		s.metrics.IncrementDeleteRejected()
		return errRouteHasDeliveries
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.IncrementDeleteRejected()
			return errRouteHasDeliveries
		}
		return notFoundOr(err, "failed to delete route")
	}
	s.afterMutation(ctx, cache.EntityRoutes, "delete", audit.ActionDeleted, id, "name", current.Name)
	return nil
}

// UpdateDeliveriesStatus moves every delivery of the route to one status.
func (s *Service) UpdateDeliveriesStatus(ctx context.Context, id uuid.UUID, req *deliverymodels.StatusRequest) (*models.StatusResult, error) {
	ctx, span := tracer.Start(ctx, "route.UpdateDeliveriesStatus")
	defer span.End()

	status, err := deliverymodels.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "failed to load route")
	}
	actor := requestcontext.AdminID(ctx)
	n, err := s.store.UpdateDeliveryStatus(ctx, id, status, requestcontext.Now(ctx), domain.ActorRef(actor))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update delivery status")
	}
	span.SetAttributes(attribute.Int("deliveries.updated", n))
	s.metrics.AddBulkStatus(n)
	s.afterMutation(ctx, cache.EntityDeliveries, "bulk_status", audit.ActionStatusChanged, id,
		"status", string(status),
		"updated", n,
	)
	return &models.StatusResult{Updated: n}, nil
}

// Sheet builds the printable data of a route.
func (s *Service) Sheet(ctx context.Context, id uuid.UUID) (*models.Sheet, error) {
	ctx, span := tracer.Start(ctx, "route.Sheet")
	defer span.End()

	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementSheet("json")
	return models.BuildSheet(d, requestcontext.Now(ctx)), nil
}

// RenderedSheet is a sheet rendered to HTML.
type RenderedSheet struct {
	FileName string
	HTML     string
}

// RenderSheet renders the route sheet through an active document template.
func (s *Service) RenderSheet(ctx context.Context, id, templateID uuid.UUID) (*RenderedSheet, error) {
	ctx, span := tracer.Start(ctx, "route.RenderSheet")
	defer span.End()
	span.SetAttributes(attribute.String("template.id", templateID.String()))

	if s.renderer == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "sheet rendering is not configured")
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	html, err := s.renderer.RenderActive(ctx, templateID, models.BuildSheet(d, requestcontext.Now(ctx)))
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementSheet("html")
	return &RenderedSheet{FileName: models.FileName(d.Name), HTML: html}, nil
}

func (s *Service) afterMutation(ctx context.Context, entity cache.Entity, op string, action audit.Action, id uuid.UUID, attrs ...any) {
	s.cache.Invalidate(ctx, entity)
	s.metrics.IncrementMutation(op)
	s.logAudit(ctx, action, append([]any{
		"entity_id", id.String(),
		"actor_id", requestcontext.AdminID(ctx),
	}, attrs...)...)
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(action), "entity", string(audit.EntityRoute), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.FromAttrs(action, audit.EntityRoute, attributes)); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record audit event", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "route not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func toValidation(err error) error {
	if de, ok := dErrors.As(err); ok && de.Code == dErrors.CodeInvariantViolation {
		return dErrors.New(dErrors.CodeValidation, de.Message)
	}
	return err
}
