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
	"encantar/internal/doctemplate/metrics"
	"encantar/internal/doctemplate/models"
	"encantar/internal/doctemplate/render"
	"encantar/internal/platform/cache"
	"encantar/pkg/domain"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/requestcontext"
)

type Store interface {
	List(ctx context.Context, f models.ListFilter, p pagination.Params) ([]models.Template, int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
	ExistsByName(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
	Create(ctx context.Context, t *models.Template) error
	Update(ctx context.Context, t *models.Template) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListActive(ctx context.Context) ([]models.Summary, error)
	Search(ctx context.Context, name string, limit int) ([]models.Summary, error)
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, entity cache.Entity)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	MinSearchLength = 2
	SearchLimit     = 10
)

var tracer = otel.Tracer("encantar/doctemplate")

var errNameTaken = dErrors.New(dErrors.CodeConflict, "a document template with this name already exists")

// Service manages document templates and renders them.
type Service struct {
	store          Store
	cache          CacheInvalidator
	renderer       *render.Renderer
	sanitizer      *render.Sanitizer
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
	sanitizer := render.NewSanitizer()
	s := &Service{
		store:     store,
		cache:     cache.Noop{},
		sanitizer: sanitizer,
		renderer:  render.NewRenderer(sanitizer),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, f models.ListFilter, p pagination.Params) (*pagination.Page[models.Template], error) {
	ctx, span := tracer.Start(ctx, "doctemplate.List")
	defer span.End()

	f.Search = strings.TrimSpace(f.Search)
	if f.Active == "" {
		f.Active = domain.ActiveAll
	}
	rows, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list document templates")
	}
	return pagination.NewPage(rows, total, p), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	t, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load document template")
	}
	return t, nil
}

func (s *Service) ListActive(ctx context.Context) ([]models.Summary, error) {
	out, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active document templates")
	}
	return out, nil
}

func (s *Service) Search(ctx context.Context, name string) ([]models.Summary, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < MinSearchLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "name must be at least %d characters", MinSearchLength)
	}
	out, err := s.store.Search(ctx, name, SearchLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search document templates")
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, req *models.CreateRequest) (*models.Template, error) {
	ctx, span := tracer.Start(ctx, "doctemplate.Create")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	content, err := s.prepareContent(ctx, req.Content)
	if err != nil {
		return nil, err
	}
	actor := requestcontext.AdminID(ctx)
	t, err := models.NewTemplate(uuid.New(), req.Name, content, requestcontext.Now(ctx), actor)
	if err != nil {
		return nil, toValidation(err)
	}
	if req.Description != "" {
		t.Description = &req.Description
	}
	if req.Active != nil {
		t.Active = *req.Active
	}
	if err := s.ensureUnique(ctx, t.Name, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, writeErr(err, "failed to create document template")
	}

	s.afterMutation(ctx, "create", audit.ActionCreated, t.ID, "name", t.Name)
	return t, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *models.UpdateRequest) (*models.Template, error) {
	ctx, span := tracer.Start(ctx, "doctemplate.Update")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Content != nil {
		content, err := s.prepareContent(ctx, *req.Content)
		if err != nil {
			return nil, err
		}
		req.Content = &content
	}
	t, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load document template")
	}
	req.Apply(t)
	if err := t.Check(); err != nil {
		return nil, toValidation(err)
	}
	if req.Name != nil {
		if err := s.ensureUnique(ctx, t.Name, t.ID); err != nil {
			return nil, err
		}
	}
	t.Touch(requestcontext.Now(ctx), requestcontext.AdminID(ctx))
	if err := s.store.Update(ctx, t); err != nil {
		return nil, writeErr(err, "failed to update document template")
	}

	s.afterMutation(ctx, "update", audit.ActionUpdated, t.ID)
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return notFoundOr(err, "failed to delete document template")
	}
	s.afterMutation(ctx, "delete", audit.ActionDeleted, id)
	return nil
}

// Toggle flips the active flag.
func (s *Service) Toggle(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	t, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load document template")
	}
	t.Active = !t.Active
	t.Touch(requestcontext.Now(ctx), requestcontext.AdminID(ctx))
	if err := s.store.Update(ctx, t); err != nil {
		return nil, notFoundOr(err, "failed to toggle document template")
	}

	action := audit.ActionDeactivated
	if t.Active {
		action = audit.ActionActivated
	}
	s.afterMutation(ctx, "toggle", action, t.ID)
	return t, nil
}

// RenderActive renders data through an active template. Missing and inactive
// templates are both not found.
func (s *Service) RenderActive(ctx context.Context, id uuid.UUID, data any) (string, error) {
	ctx, span := tracer.Start(ctx, "doctemplate.Render")
	defer span.End()
	span.SetAttributes(attribute.String("template.id", id.String()))

	start := time.Now()
	t, err := s.store.FindByID(ctx, id)
	if err != nil {
		return "", notFoundOr(err, "failed to load document template")
	}
	if !t.Active {
		return "", errNotFound
	}
	out, err := s.renderer.Render(t.Content, data)
	if err != nil {
		s.metrics.ObserveRender("error", start)
		return "", err
	}
	s.metrics.ObserveRender("ok", start)
	return out, nil
}

// EnsureDefault creates the standard route sheet when no template carries its
// name. It reports whether a template was created.
func (s *Service) EnsureDefault(ctx context.Context) (bool, error) {
	exists, err := s.store.ExistsByName(ctx, models.DefaultName, uuid.Nil)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check default template")
	}
	if exists {
		return false, nil
	}
	desc := "Printable sheet listing each beneficiary of a route with their items"
	if _, err := s.Create(ctx, &models.CreateRequest{
		Name:        models.DefaultName,
		Description: desc,
		Content:     models.DefaultContent,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// prepareContent rejects unsafe markup, sanitizes the rest and checks that the
// result still parses as Handlebars.
func (s *Service) prepareContent(ctx context.Context, raw string) (string, error) {
	if err := render.CheckContent(raw); err != nil {
		s.metrics.IncrementRejected()
		s.logger.WarnContext(ctx, "document template rejected", "error", err, "request_id", requestcontext.RequestID(ctx))
		return "", err
	}
	content := strings.TrimSpace(s.sanitizer.Template(raw))
	if err := s.renderer.Validate(content); err != nil {
		return "", err
	}
	return content, nil
}

func (s *Service) ensureUnique(ctx context.Context, name string, exclude uuid.UUID) error {
	exists, err := s.store.ExistsByName(ctx, name, exclude)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check document template name")
	}
	if exists {
		return errNameTaken
	}
	return nil
}

func (s *Service) afterMutation(ctx context.Context, op string, action audit.Action, id uuid.UUID, attrs ...any) {
	s.cache.Invalidate(ctx, cache.EntityDocTemplates)
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
	args := append(attributes, "event", string(action), "entity", string(audit.EntityDocTemplate), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.FromAttrs(action, audit.EntityDocTemplate, attributes)); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record audit event", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
}

var errNotFound = dErrors.New(dErrors.CodeNotFound, "document template not found")

func writeErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		return errNameTaken
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
