package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"encantar/internal/audit"
	"encantar/internal/deliverytemplate/metrics"
	"encantar/internal/deliverytemplate/models"
	"encantar/internal/item/lines"
	itemmodels "encantar/internal/item/models"
	"encantar/internal/platform/cache"
	"encantar/pkg/domain"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/requestcontext"
)

type Store interface {
	List(ctx context.Context, f models.ListFilter, p pagination.Params) ([]models.View, int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.View, error)
	Create(ctx context.Context, t *models.Template) error
	Update(ctx context.Context, t *models.Template) error
	ReplaceLines(ctx context.Context, templateID uuid.UUID, ls []lines.Line) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ItemFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]itemmodels.Item, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, entity cache.Entity)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

var tracer = otel.Tracer("encantar/deliverytemplate")

var errNotFound = dErrors.New(dErrors.CodeNotFound, "delivery template not found")

// Service manages delivery templates.
type Service struct {
	store          Store
	items          ItemFinder
	tx             TxRunner
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

func WithTxRunner(r TxRunner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

func New(store Store, items ItemFinder, opts ...Option) *Service {
	s := &Service{store: store, items: items, tx: inlineTx{}, cache: cache.Noop{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, f models.ListFilter, p pagination.Params) (*pagination.Page[models.View], error) {
	ctx, span := tracer.Start(ctx, "deliverytemplate.List")
	defer span.End()

	f.Search = strings.TrimSpace(f.Search)
	if f.Active == "" {
		f.Active = domain.ActiveAll
	}
	rows, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list delivery templates")
	}
	span.SetAttributes(attribute.Int("result.total", total))
	return pagination.NewPage(rows, total, p), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.View, error) {
	v, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load delivery template")
	}
	return v, nil
}

func (s *Service) Create(ctx context.Context, req *models.CreateRequest) (*models.View, error) {
	ctx, span := tracer.Start(ctx, "deliverytemplate.Create")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := models.NewTemplate(uuid.New(), req.Name, requestcontext.Now(ctx), requestcontext.AdminID(ctx))
	if err != nil {
		return nil, toValidation(err)
	}
	if req.Description != "" {
		t.Description = &req.Description
	}
	if req.Active != nil {
		t.Active = *req.Active
	}
	if err := lines.Resolve(ctx, s.items, req.Items); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, t); err != nil {
			return err
		}
		return s.store.ReplaceLines(ctx, t.ID, req.Items)
	})
	if err != nil {
		return nil, writeErr(err, "failed to create delivery template")
	}

	s.metrics.ObserveLines(len(req.Items))
	s.afterMutation(ctx, "create", audit.ActionCreated, t.ID, "name", t.Name, "lines", len(req.Items))
	return s.Get(ctx, t.ID)
}

// Update applies a partial update. Supplied items replace every line.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *models.UpdateRequest) (*models.View, error) {
	ctx, span := tracer.Start(ctx, "deliverytemplate.Update")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load delivery template")
	}
	t := current.Template
	req.Apply(&t)
	if err := t.Check(); err != nil {
		return nil, toValidation(err)
	}
	if req.Items != nil {
		if err := lines.Resolve(ctx, s.items, *req.Items); err != nil {
			return nil, err
		}
	}
	t.Touch(requestcontext.Now(ctx), requestcontext.AdminID(ctx))

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Update(ctx, &t); err != nil {
			return err
		}
		if req.Items == nil {
			return nil
		}
		return s.store.ReplaceLines(ctx, t.ID, *req.Items)
	})
	if err != nil {
		return nil, writeErr(err, "failed to update delivery template")
	}

	if req.Items != nil {
		s.metrics.ObserveLines(len(*req.Items))
	}
	s.afterMutation(ctx, "update", audit.ActionUpdated, t.ID, "lines_replaced", req.Items != nil)
	return s.Get(ctx, t.ID)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return notFoundOr(err, "failed to delete delivery template")
	}
	s.afterMutation(ctx, "delete", audit.ActionDeleted, id)
	return nil
}

func (s *Service) afterMutation(ctx context.Context, op string, action audit.Action, id uuid.UUID, attrs ...any) {
	s.cache.Invalidate(ctx, cache.EntityDeliveryTemplates)
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
	args := append(attributes, "event", string(action), "entity", string(audit.EntityDeliveryTemplate), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.FromAttrs(action, audit.EntityDeliveryTemplate, attributes)); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record audit event", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
}

type inlineTx struct{}

func (inlineTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func writeErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeBadRequest, "an item in this template no longer exists")
	}
	return notFoundOr(err, msg)
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return errNotFound
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func toValidation(err error) error {
	if de, ok := dErrors.As(err); ok && de.Code == dErrors.CodeInvariantViolation {
		return dErrors.New(dErrors.CodeValidation, de.Message)
	}
	return err
}
