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
	beneficiarymodels "encantar/internal/beneficiary/models"
	"encantar/internal/delivery/metrics"
	"encantar/internal/delivery/models"
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
	BeneficiaryExists(ctx context.Context, id uuid.UUID) (bool, error)
	RouteExists(ctx context.Context, id uuid.UUID) (bool, error)
	Create(ctx context.Context, d *models.Delivery) error
	Update(ctx context.Context, d *models.Delivery) error
	ReplaceLines(ctx context.Context, deliveryID uuid.UUID, ls []lines.Line) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, now time.Time, actor *uuid.UUID) error
}

type ItemFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]itemmodels.Item, error)
}

// TxRunner runs fn in one database transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BeneficiarySearcher and ItemSearcher back the delivery form autocomplete.
type BeneficiarySearcher interface {
	Search(ctx context.Context, term string, limit int) ([]beneficiarymodels.Summary, error)
}

type ItemSearcher interface {
	Search(ctx context.Context, name string, limit int) ([]itemmodels.Summary, error)
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, entity cache.Entity)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const SearchLimit = 10

var tracer = otel.Tracer("encantar/delivery")

var (
	errBeneficiaryMissing = dErrors.New(dErrors.CodeBadRequest, "beneficiary not found")
	errRouteMissing       = dErrors.New(dErrors.CodeBadRequest, "route not found")
	errNotFound           = dErrors.New(dErrors.CodeNotFound, "delivery not found")
)

// Service manages deliveries and their item lines.
type Service struct {
	store          Store
	items          ItemFinder
	tx             TxRunner
	beneficiaries  BeneficiarySearcher
	itemSearch     ItemSearcher
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

func WithSearch(beneficiaries BeneficiarySearcher, items ItemSearcher) Option {
	return func(s *Service) {
		s.beneficiaries = beneficiaries
		s.itemSearch = items
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
	ctx, span := tracer.Start(ctx, "delivery.List")
	defer span.End()

	f.Search = strings.TrimSpace(f.Search)
	rows, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deliveries")
	}
	span.SetAttributes(attribute.Int("result.total", total))
	return pagination.NewPage(rows, total, p), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.View, error) {
	v, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load delivery")
	}
	return v, nil
}

func (s *Service) Create(ctx context.Context, req *models.CreateRequest) (*models.View, error) {
	ctx, span := tracer.Start(ctx, "delivery.Create")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	actor := requestcontext.AdminID(ctx)
	d, err := models.NewDelivery(uuid.New(), req.BeneficiaryID, req.RouteID, models.Status(req.Status), requestcontext.Now(ctx), actor)
	if err != nil {
		return nil, toValidation(err)
	}
	if req.Notes != "" {
		d.Notes = &req.Notes
	}
	if err := s.checkReferences(ctx, d.BeneficiaryID, d.RouteID); err != nil {
		return nil, err
	}
	if err := s.resolveLines(ctx, req.Items); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, d); err != nil {
			return err
		}
		return s.store.ReplaceLines(ctx, d.ID, req.Items)
	})
	if err != nil {
		return nil, writeErr(err, "failed to create delivery")
	}

	s.metrics.ObserveLines(len(req.Items))
	s.afterMutation(ctx, "create", audit.ActionCreated, d.ID,
		"beneficiary_id", d.BeneficiaryID.String(),
		"route_id", d.RouteID.String(),
		"lines", len(req.Items),
	)
	return s.Get(ctx, d.ID)
}

// Update applies a partial update. Supplied items replace the existing lines
// in the same transaction as the row update.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *models.UpdateRequest) (*models.View, error) {
	ctx, span := tracer.Start(ctx, "delivery.Update")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load delivery")
	}
	d := current.Delivery
	req.Apply(&d)
	if err := d.Check(); err != nil {
		return nil, toValidation(err)
	}

	var beneficiaryID, routeID uuid.UUID
	if d.BeneficiaryID != current.BeneficiaryID {
		beneficiaryID = d.BeneficiaryID
	}
	if d.RouteID != current.RouteID {
		routeID = d.RouteID
	}
	if err := s.checkReferences(ctx, beneficiaryID, routeID); err != nil {
		return nil, err
	}
	if req.Items != nil {
		if err := s.resolveLines(ctx, *req.Items); err != nil {
			return nil, err
		}
	}
	d.Touch(requestcontext.Now(ctx), requestcontext.AdminID(ctx))

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Update(ctx, &d); err != nil {
			return err
		}
		if req.Items == nil {
			return nil
		}
		return s.store.ReplaceLines(ctx, d.ID, *req.Items)
	})
	if err != nil {
		return nil, writeErr(err, "failed to update delivery")
	}

	s.afterMutation(ctx, "update", audit.ActionUpdated, d.ID, "lines_replaced", req.Items != nil)
	return s.Get(ctx, d.ID)
}

// Delete removes the delivery and its lines.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "delivery.Delete")
	defer span.End()

	if err := s.store.Delete(ctx, id); err != nil {
		return notFoundOr(err, "failed to delete delivery")
	}
	s.afterMutation(ctx, "delete", audit.ActionDeleted, id)
	return nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req *models.StatusRequest) (*models.View, error) {
	ctx, span := tracer.Start(ctx, "delivery.UpdateStatus")
	defer span.End()

	status, err := models.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	actor := requestcontext.AdminID(ctx)
	if err := s.store.UpdateStatus(ctx, id, status, requestcontext.Now(ctx), domain.ActorRef(actor)); err != nil {
		return nil, notFoundOr(err, "failed to update delivery status")
	}
	s.metrics.IncrementStatus(string(status))
	s.afterMutation(ctx, "status", audit.ActionStatusChanged, id, "status", string(status))
	return s.Get(ctx, id)
}

func (s *Service) SearchBeneficiaries(ctx context.Context, q string) ([]beneficiarymodels.Summary, error) {
	if s.beneficiaries == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "beneficiary search is not configured")
	}
	return s.beneficiaries.Search(ctx, q, SearchLimit)
}

func (s *Service) SearchItems(ctx context.Context, q string) ([]itemmodels.Summary, error) {
	if s.itemSearch == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "item search is not configured")
	}
	return s.itemSearch.Search(ctx, q, SearchLimit)
}

// checkReferences verifies the beneficiary and route exist. uuid.Nil skips a
// check.
func (s *Service) checkReferences(ctx context.Context, beneficiaryID, routeID uuid.UUID) error {
	if beneficiaryID != uuid.Nil {
		ok, err := s.store.BeneficiaryExists(ctx, beneficiaryID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check beneficiary")
		}
		if !ok {
			s.metrics.IncrementRejected("beneficiary")
			return errBeneficiaryMissing
		}
	}
	if routeID != uuid.Nil {
		ok, err := s.store.RouteExists(ctx, routeID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check route")
		}
		if !ok {
			s.metrics.IncrementRejected("route")
			return errRouteMissing
		}
	}
	return nil
}

func (s *Service) resolveLines(ctx context.Context, ls []lines.Line) error {
	if err := lines.Resolve(ctx, s.items, ls); err != nil {
		if dErrors.HasCode(err, dErrors.CodeBadRequest) {
			s.metrics.IncrementRejected("items")
		}
		return err
	}
	return nil
}

// afterMutation invalidates deliveries; the cache dependency map fans that out
// to routes, beneficiaries, items and the dashboard.
func (s *Service) afterMutation(ctx context.Context, op string, action audit.Action, id uuid.UUID, attrs ...any) {
	s.cache.Invalidate(ctx, cache.EntityDeliveries)
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
	args := append(attributes, "event", string(action), "entity", string(audit.EntityDelivery), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.FromAttrs(action, audit.EntityDelivery, attributes)); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record audit event", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
}

type inlineTx struct{}

func (inlineTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return errNotFound
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// writeErr maps a foreign key race (a reference deleted between check and
// write) to a bad request.
func writeErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeBadRequest, "beneficiary, route or item no longer exists")
	case errors.Is(err, sentinel.ErrNotFound):
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
