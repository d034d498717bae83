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
	"encantar/internal/item/metrics"
	"encantar/internal/item/models"
	"encantar/internal/platform/cache"
	"encantar/pkg/domain"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/requestcontext"
)

type Store interface {
	List(ctx context.Context, f models.ListFilter, p pagination.Params) ([]models.Item, int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	ExistsByName(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
	Create(ctx context.Context, it *models.Item) error
	Update(ctx context.Context, it *models.Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	InUse(ctx context.Context, id uuid.UUID) (bool, error)
	ListActive(ctx context.Context) ([]models.Summary, error)
	Units(ctx context.Context) ([]models.Unit, error)
	MostUsed(ctx context.Context, limit int) ([]models.WithUsage, error)
	Search(ctx context.Context, name string, limit int) ([]models.Summary, error)
	ListByUnit(ctx context.Context, unit models.Unit) ([]models.Item, error)
	Totals(ctx context.Context, id uuid.UUID) (models.Totals, error)
	RecentDeliveries(ctx context.Context, id uuid.UUID, limit int) ([]models.RecentDelivery, error)
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, entity cache.Entity)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	MinSearchLength = 2
	DefaultLimit    = 10
	MaxLimit        = 50
	RecentLimit     = 10
)

var tracer = otel.Tracer("encantar/item")

// Service manages the item catalog.
type Service struct {
	store          Store
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

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, cache: cache.Noop{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, f models.ListFilter, p pagination.Params) (*pagination.Page[models.Item], error) {
	ctx, span := tracer.Start(ctx, "item.List")
	defer span.End()

	f.Search = strings.TrimSpace(f.Search)
	if f.Active == "" {
		f.Active = domain.ActiveAll
	}
	rows, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list items")
	}
	span.SetAttributes(attribute.Int("result.total", total))
	return pagination.NewPage(rows, total, p), nil
}

func (s *Service) ListActive(ctx context.Context) ([]models.Summary, error) {
	out, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active items")
	}
	return out, nil
}

func (s *Service) Units(ctx context.Context) ([]models.Unit, error) {
	out, err := s.store.Units(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list units")
	}
	return out, nil
}

func (s *Service) MostUsed(ctx context.Context, limit int) ([]models.WithUsage, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	out, err := s.store.MostUsed(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rank items")
	}
	return out, nil
}

func (s *Service) Search(ctx context.Context, name string, limit int) ([]models.Summary, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < MinSearchLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "name must be at least %d characters", MinSearchLength)
	}
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	out, err := s.store.Search(ctx, name, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search items")
	}
	return out, nil
}

func (s *Service) ListByUnit(ctx context.Context, raw string) ([]models.Item, error) {
	unit, err := models.ParseUnit(raw)
	if err != nil {
		return nil, err
	}
	out, err := s.store.ListByUnit(ctx, unit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list items by unit")
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	it, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load item")
	}
	return it, nil
}

// Stats reports delivery totals and the latest delivery lines for an item.
func (s *Service) Stats(ctx context.Context, id uuid.UUID) (*models.Stats, error) {
	ctx, span := tracer.Start(ctx, "item.Stats")
	defer span.End()

	it, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load item")
	}
	totals, err := s.store.Totals(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load item totals")
	}
	recent, err := s.store.RecentDeliveries(ctx, id, RecentLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load item deliveries")
	}
	return &models.Stats{
		Item:             it,
		TotalDeliveries:  totals.Deliveries,
		TotalQuantity:    totals.Quantity,
		RecentDeliveries: recent,
	}, nil
}

func (s *Service) Create(ctx context.Context, req *models.CreateRequest) (*models.Item, error) {
	ctx, span := tracer.Start(ctx, "item.Create")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	actor := requestcontext.AdminID(ctx)
	it, err := models.NewItem(uuid.New(), req.Name, models.Unit(req.Unit), requestcontext.Now(ctx), actor)
	if err != nil {
		return nil, toValidation(err)
	}
	if req.Description != "" {
		it.Description = &req.Description
	}
	if err := s.ensureUnique(ctx, it.Name, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, it); err != nil {
		return nil, writeErr(err, "failed to create item")
	}

	s.cache.Invalidate(ctx, cache.EntityItems)
	s.metrics.IncrementMutation("create")
	s.logAudit(ctx, audit.ActionCreated,
		"entity_id", it.ID.String(),
		"actor_id", actor,
		"name", it.Name,
	)
	return it, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *models.UpdateRequest) (*models.Item, error) {
	ctx, span := tracer.Start(ctx, "item.Update")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	it, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load item")
	}
	previousName := it.Name
	req.Apply(it)
	if err := it.Check(); err != nil {
		return nil, toValidation(err)
	}
	if !strings.EqualFold(previousName, it.Name) {
		if err := s.ensureUnique(ctx, it.Name, it.ID); err != nil {
			return nil, err
		}
	}
	actor := requestcontext.AdminID(ctx)
	it.Touch(requestcontext.Now(ctx), actor)
	if err := s.store.Update(ctx, it); err != nil {
		return nil, writeErr(err, "failed to update item")
	}

	s.cache.Invalidate(ctx, cache.EntityItems)
	s.metrics.IncrementMutation("update")
	s.logAudit(ctx, audit.ActionUpdated,
		"entity_id", it.ID.String(),
		"actor_id", actor,
	)
	return it, nil
}

// Delete removes an item that no delivery or delivery template references.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "item.Delete")
	defer span.End()

	if _, err := s.store.FindByID(ctx, id); err != nil {
		return notFoundOr(err, "failed to load item")
	}
	used, err := s.store.InUse(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check item usage")
	}
	if used {
		s.metrics.IncrementInUse()
		return dErrors.New(dErrors.CodeConflict, "item is in use")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.IncrementInUse()
			return dErrors.New(dErrors.CodeConflict, "item is in use")
		}
		return notFoundOr(err, "failed to delete item")
	}

	s.cache.Invalidate(ctx, cache.EntityItems)
	s.metrics.IncrementMutation("delete")
	s.logAudit(ctx, audit.ActionDeleted,
		"entity_id", id.String(),
		"actor_id", requestcontext.AdminID(ctx),
	)
	return nil
}

func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return s.setActive(ctx, id, true)
}

func (s *Service) Inactivate(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return s.setActive(ctx, id, false)
}

func (s *Service) setActive(ctx context.Context, id uuid.UUID, active bool) (*models.Item, error) {
	it, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load item")
	}
	actor := requestcontext.AdminID(ctx)
	if err := it.SetActive(active, requestcontext.Now(ctx), actor); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, it); err != nil {
		return nil, writeErr(err, "failed to update item")
	}

	action, op := audit.ActionActivated, "reactivate"
	if !active {
		action, op = audit.ActionDeactivated, "inactivate"
	}
	s.cache.Invalidate(ctx, cache.EntityItems)
	s.metrics.IncrementMutation(op)
	s.logAudit(ctx, action,
		"entity_id", it.ID.String(),
		"actor_id", actor,
	)
	return it, nil
}

func (s *Service) ensureUnique(ctx context.Context, name string, exclude uuid.UUID) error {
	exists, err := s.store.ExistsByName(ctx, name, exclude)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check item name")
	}
	if exists {
		return errNameTaken
	}
	return nil
}

var errNameTaken = dErrors.New(dErrors.CodeConflict, "an item with this name already exists")

func (s *Service) logAudit(ctx context.Context, action audit.Action, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(action), "entity", string(audit.EntityItem), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.FromAttrs(action, audit.EntityItem, attributes)); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record audit event", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
}

func clampLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultLimit, nil
	}
	if limit < 1 || limit > MaxLimit {
		return 0, dErrors.Newf(dErrors.CodeValidation, "limit must be between 1 and %d", MaxLimit)
	}
	return limit, nil
}

// writeErr maps store write failures; a unique index race still reports the
// name conflict.
func writeErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		return errNameTaken
	}
	return notFoundOr(err, msg)
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "item not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func toValidation(err error) error {
	if de, ok := dErrors.As(err); ok && de.Code == dErrors.CodeInvariantViolation {
		return dErrors.New(dErrors.CodeValidation, de.Message)
	}
	return err
}
