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
	"encantar/internal/beneficiary/metrics"
	"encantar/internal/beneficiary/models"
	"encantar/internal/platform/cache"
	"encantar/pkg/domain"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/requestcontext"
)

type Store interface {
	List(ctx context.Context, f models.ListFilter, p pagination.Params) ([]models.WithCount, int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.WithCount, error)
	ExistsByNameAndAddress(ctx context.Context, name, address string, exclude uuid.UUID) (bool, error)
	Create(ctx context.Context, b *models.Beneficiary) error
	Update(ctx context.Context, b *models.Beneficiary) error
	Search(ctx context.Context, term string, limit int) ([]models.Summary, error)
	ListActive(ctx context.Context) ([]models.Summary, error)
	Top(ctx context.Context, limit int) ([]models.WithCount, error)
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
)

var tracer = otel.Tracer("encantar/beneficiary")

// Service manages beneficiaries.
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

func (s *Service) List(ctx context.Context, f models.ListFilter, p pagination.Params) (*pagination.Page[models.WithCount], error) {
	ctx, span := tracer.Start(ctx, "beneficiary.List")
	defer span.End()

	f.Search = strings.TrimSpace(f.Search)
	if f.Active == "" {
		f.Active = domain.ActiveAll
	}
	rows, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list beneficiaries")
	}
	span.SetAttributes(attribute.Int("result.total", total))
	return pagination.NewPage(rows, total, p), nil
}

// Search is the autocomplete lookup over active beneficiaries.
func (s *Service) Search(ctx context.Context, term string, limit int) ([]models.Summary, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < MinSearchLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "search term must be at least %d characters", MinSearchLength)
	}
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	out, err := s.store.Search(ctx, term, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search beneficiaries")
	}
	s.metrics.ObserveSearch(len(out))
	return out, nil
}

func (s *Service) ListActive(ctx context.Context) ([]models.Summary, error) {
	out, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active beneficiaries")
	}
	return out, nil
}

// Top ranks active beneficiaries by delivery count.
func (s *Service) Top(ctx context.Context, limit int) ([]models.WithCount, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	out, err := s.store.Top(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rank beneficiaries")
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.WithCount, error) {
	b, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load beneficiary")
	}
	return b, nil
}

func (s *Service) Create(ctx context.Context, req *models.CreateRequest) (*models.Beneficiary, error) {
	ctx, span := tracer.Start(ctx, "beneficiary.Create")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	actor := requestcontext.AdminID(ctx)
	b, err := models.NewBeneficiary(uuid.New(), req.Name, req.Address, requestcontext.Now(ctx), actor)
	if err != nil {
		return nil, toValidation(err)
	}
	b.Phone = models.Optional(req.Phone)
	b.Email = models.Optional(req.Email)
	b.Notes = models.Optional(req.Notes)
	b.BirthDate = req.BirthDate

	if err := s.ensureUnique(ctx, b.Name, b.Address, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create beneficiary")
	}

	s.cache.Invalidate(ctx, cache.EntityBeneficiaries)
	s.metrics.IncrementMutation("create")
	s.logAudit(ctx, audit.ActionCreated,
		"entity_id", b.ID.String(),
		"actor_id", actor,
		"name", b.Name,
	)
	return b, nil
}

// Update applies a partial update. The duplicate check ignores the record
// being updated.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *models.UpdateRequest) (*models.Beneficiary, error) {
	ctx, span := tracer.Start(ctx, "beneficiary.Update")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load beneficiary")
	}
	b := current.Beneficiary
	req.Apply(&b)
	if err := b.Check(); err != nil {
		return nil, toValidation(err)
	}
	if req.Name != nil || req.Address != nil {
		if err := s.ensureUnique(ctx, b.Name, b.Address, b.ID); err != nil {
			return nil, err
		}
	}
	actor := requestcontext.AdminID(ctx)
	b.Touch(requestcontext.Now(ctx), actor)

	if err := s.store.Update(ctx, &b); err != nil {
		return nil, notFoundOr(err, "failed to update beneficiary")
	}

	s.cache.Invalidate(ctx, cache.EntityBeneficiaries)
	s.metrics.IncrementMutation("update")
	s.logAudit(ctx, audit.ActionUpdated,
		"entity_id", b.ID.String(),
		"actor_id", actor,
	)
	return &b, nil
}

// Delete deactivates the beneficiary.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "beneficiary.Delete")
	defer span.End()

	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "failed to load beneficiary")
	}
	b := current.Beneficiary
	actor := requestcontext.AdminID(ctx)
	if err := b.Deactivate(requestcontext.Now(ctx), actor); err != nil {
		return err
	}
	if err := s.store.Update(ctx, &b); err != nil {
		return notFoundOr(err, "failed to deactivate beneficiary")
	}

	s.cache.Invalidate(ctx, cache.EntityBeneficiaries)
	s.metrics.IncrementMutation("deactivate")
	s.logAudit(ctx, audit.ActionDeactivated,
		"entity_id", b.ID.String(),
		"actor_id", actor,
	)
	return nil
}

func (s *Service) ensureUnique(ctx context.Context, name, address string, exclude uuid.UUID) error {
	exists, err := s.store.ExistsByNameAndAddress(ctx, name, address, exclude)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check duplicate beneficiary")
	}
	if exists {
		s.metrics.IncrementDuplicates()
		return dErrors.New(dErrors.CodeConflict, "a beneficiary with this name and address already exists")
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(action), "entity", string(audit.EntityBeneficiary), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.FromAttrs(action, audit.EntityBeneficiary, attributes)); err != nil && s.logger != nil {
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

func notFoundOr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "beneficiary not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func toValidation(err error) error {
	if de, ok := dErrors.As(err); ok && de.Code == dErrors.CodeInvariantViolation {
		return dErrors.New(dErrors.CodeValidation, de.Message)
	}
	return err
}
