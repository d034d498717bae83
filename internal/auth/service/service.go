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
	"go.opentelemetry.io/otel/trace"

	"encantar/internal/audit"
	"encantar/internal/auth/metrics"
	"encantar/internal/auth/models"
	"encantar/internal/auth/secrets"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/requestcontext"
)

type AdminStore interface {
	Create(ctx context.Context, admin *models.Admin) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	FindByLogin(ctx context.Context, login string) (*models.Admin, error)
	IsActiveAdmin(ctx context.Context, id uuid.UUID) (bool, error)
	FirstActive(ctx context.Context) (*models.Admin, error)
	Count(ctx context.Context) (int, error)
}

type InviteStore interface {
	Create(ctx context.Context, invite *models.Invite) error
	FindByToken(ctx context.Context, token string) (*models.Invite, string, error)
	FindActiveByCreator(ctx context.Context, adminID uuid.UUID, now time.Time) (*models.Invite, error)
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type TokenIssuer interface {
	Issue(admin *models.Admin) (*models.TokenPair, error)
	ValidateRefreshToken(token string) (uuid.UUID, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	defaultInviteTTL = 15 * time.Minute
	// Invites stay queryable for a day after expiry so the register page can
	// tell "expired" apart from "unknown".
	inviteGracePeriod = 24 * time.Hour
)

var tracer = otel.Tracer("encantar/auth")

// Service owns administrator authentication and invitations.
type Service struct {
	admins         AdminStore
	invites        InviteStore
	tokens         TokenIssuer
	tx             TxRunner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	inviteTTL      time.Duration
	frontendURL    string

	hash        func(password string) (string, error)
	verify      func(password, hash string) (bool, error)
	verifyDummy func(password string)
	newToken    func() (string, error)
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

func WithInviteTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.inviteTTL = ttl
		}
	}
}

// WithFrontendURL sets the base of the invite links handed back to admins.
func WithFrontendURL(url string) Option {
	return func(s *Service) {
		s.frontendURL = strings.TrimRight(url, "/")
	}
}

// WithPasswordHasher replaces bcrypt, for tests that must not pay its cost.
func WithPasswordHasher(hash func(string) (string, error), verify func(string, string) (bool, error)) Option {
	return func(s *Service) {
		s.hash = hash
		s.verify = verify
		s.verifyDummy = func(string) {}
	}
}

func WithTokenGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		s.newToken = gen
	}
}

func New(admins AdminStore, invites InviteStore, tokens TokenIssuer, tx TxRunner, opts ...Option) *Service {
	s := &Service{
		admins:      admins,
		invites:     invites,
		tokens:      tokens,
		tx:          tx,
		logger:      slog.Default(),
		inviteTTL:   defaultInviteTTL,
		hash:        secrets.Hash,
		verify:      secrets.Verify,
		verifyDummy: secrets.VerifyDummy,
		newToken:    secrets.GenerateToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login checks credentials and issues a token pair. Unknown logins still pay
// for a bcrypt comparison so response time does not reveal which logins exist.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()
	start := time.Now()

	req.Normalize()
	if req.Login == "" || req.Password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "login and password are required")
	}

	admin, err := s.admins.FindByLogin(ctx, req.Login)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin")
		}
		s.verifyDummy(req.Password)
		s.failedLogin(ctx, req.Login, "invalid_credentials", start)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid login or password")
	}

	ok, err := s.verify(req.Password, admin.PasswordHash)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	if !ok {
		s.failedLogin(ctx, req.Login, "invalid_credentials", start)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid login or password")
	}
	if !admin.Active {
		s.failedLogin(ctx, req.Login, "disabled", start)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "account disabled")
	}

	result, err := s.issue(admin)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("admin.id", admin.ID.String()))
	s.metrics.ObserveLogin("success", start)
	s.logAudit(ctx, audit.ActionLogin, audit.EntityAdmin,
		"entity_id", admin.ID.String(),
		"actor_id", admin.ID,
		"login", admin.Login,
	)
	return result, nil
}

// Register redeems an invite and creates the administrator in one transaction.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResult, error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	if _, err := s.admins.FindByLogin(ctx, req.Login); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "login is already in use")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check login")
	}

	invite, _, err := s.invites.FindByToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid invite")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load invite")
	}
	if err := invite.CanRedeem(now, req.Email, req.Phone); err != nil {
		return nil, err
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	admin, err := models.NewAdmin(uuid.New(), req.Name, req.Login, hash, now)
	if err != nil {
		return nil, toValidation(err)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.admins.Create(ctx, admin); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "login is already in use")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create admin")
		}
		if err := s.invites.MarkUsed(ctx, invite.ID, now); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeBadRequest, "invite has already been used")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark invite used")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result, err := s.issue(admin)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementRegistrations()
	s.logAudit(ctx, audit.ActionRegistered, audit.EntityAdmin,
		"entity_id", admin.ID.String(),
		"actor_id", admin.ID,
		"invite_id", invite.ID.String(),
		"invited_by", invite.CreatedByID.String(),
	)
	return result, nil
}

// Refresh trades a valid refresh token for a new pair, provided the admin is
// still active.
func (s *Service) Refresh(ctx context.Context, req *models.RefreshRequest) (*models.AuthResult, error) {
	ctx, span := tracer.Start(ctx, "auth.Refresh")
	defer span.End()

	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "refresh_token is required")
	}
	adminID, err := s.tokens.ValidateRefreshToken(token)
	if err != nil {
		return nil, err
	}
	admin, err := s.admins.FindByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin")
	}
	if !admin.Active {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "account disabled")
	}

	result, err := s.issue(admin)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.ActionTokenRefreshed, audit.EntityAdmin,
		"entity_id", admin.ID.String(),
		"actor_id", admin.ID,
	)
	return result, nil
}

// Me returns the authenticated administrator.
func (s *Service) Me(ctx context.Context) (*models.AdminResponse, error) {
	adminID := requestcontext.AdminID(ctx)
	if adminID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	admin, err := s.admins.FindByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "admin not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin")
	}
	resp := models.ToAdminResponse(admin)
	return &resp, nil
}

// Logout only records the event; tokens are stateless and expire on their own.
func (s *Service) Logout(ctx context.Context) {
	adminID := requestcontext.AdminID(ctx)
	s.logAudit(ctx, audit.ActionLogout, audit.EntityAdmin,
		"entity_id", adminID.String(),
	)
}

// CreateInvite issues a single-use invite for the current admin, who may hold
// only one active invite at a time.
func (s *Service) CreateInvite(ctx context.Context, req *models.CreateInviteRequest) (*models.InviteResult, error) {
	ctx, span := tracer.Start(ctx, "auth.CreateInvite")
	defer span.End()

	adminID := requestcontext.AdminID(ctx)
	if adminID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	existing, err := s.invites.FindActiveByCreator(ctx, adminID, now)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check active invites")
	}
	if existing != nil {
		return nil, dErrors.New(dErrors.CodeConflict, "an active invite already exists")
	}

	token, err := s.newToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate invite token")
	}
	invite, err := models.NewInvite(uuid.New(), token, optional(req.Email), optional(req.Phone), adminID, now, s.inviteTTL)
	if err != nil {
		return nil, toValidation(err)
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create invite")
	}

	s.metrics.IncrementInvitesCreated()
	s.logAudit(ctx, audit.ActionInviteCreated, audit.EntityInvite,
		"entity_id", invite.ID.String(),
		"expires_at", invite.ExpiresAt,
	)
	return s.inviteResult(invite), nil
}

// ActiveInvite returns the current admin's active invite, or nil.
func (s *Service) ActiveInvite(ctx context.Context) (*models.InviteResult, error) {
	adminID := requestcontext.AdminID(ctx)
	if adminID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	invite, err := s.invites.FindActiveByCreator(ctx, adminID, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active invite")
	}
	return s.inviteResult(invite), nil
}

// ValidateInvite answers the public register page for a token.
func (s *Service) ValidateInvite(ctx context.Context, token string) (*models.InviteValidation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid invite")
	}
	invite, creator, err := s.invites.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid invite")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load invite")
	}
	now := requestcontext.Now(ctx)
	if invite.Used {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invite has already been used")
	}
	if !invite.IsActive(now) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invite has expired")
	}
	return &models.InviteValidation{
		Valid:         true,
		ExpiresAt:     invite.ExpiresAt,
		RequiresEmail: invite.Email != nil,
		RequiresPhone: invite.Phone != nil,
		InvitedBy:     creator,
	}, nil
}

// PurgeExpiredInvites deletes invites that expired more than a day ago. It is
// the body of the scheduled cleanup job.
func (s *Service) PurgeExpiredInvites(ctx context.Context) error {
	cutoff := requestcontext.Now(ctx).Add(-inviteGracePeriod)
	n, err := s.invites.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge expired invites")
	}
	s.metrics.AddInvitesPurged(n)
	if n > 0 {
		s.logAudit(ctx, audit.ActionInvitesPurged, audit.EntityInvite,
			"deleted", n,
			"cutoff", cutoff,
		)
	}
	return nil
}

// Bootstrap creates the first administrator of an empty installation so it
// can issue invites. With admins already present it returns the oldest active
// one and reports created=false.
func (s *Service) Bootstrap(ctx context.Context, name, login, password string) (*models.Admin, bool, error) {
	ctx, span := tracer.Start(ctx, "auth.Bootstrap")
	defer span.End()

	n, err := s.admins.Count(ctx)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count admins")
	}
	if n > 0 {
		admin, err := s.admins.FirstActive(ctx)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, false, dErrors.New(dErrors.CodeNotFound, "no active admin")
			}
			return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin")
		}
		return admin, false, nil
	}

	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, false, dErrors.New(dErrors.CodeValidation, "login and password are required")
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	admin, err := models.NewAdmin(uuid.New(), strings.TrimSpace(name), login, hash, requestcontext.Now(ctx))
	if err != nil {
		return nil, false, toValidation(err)
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create admin")
	}
	s.logAudit(ctx, audit.ActionBootstrapped, audit.EntityAdmin,
		"entity_id", admin.ID.String(),
		"actor_id", admin.ID,
		"login", admin.Login,
	)
	return admin, true, nil
}

// IsActiveAdmin backs the RequireAuth middleware.
func (s *Service) IsActiveAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.admins.IsActiveAdmin(ctx, id)
}

func (s *Service) issue(admin *models.Admin) (*models.AuthResult, error) {
	pair, err := s.tokens.Issue(admin)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue tokens")
	}
	return &models.AuthResult{User: models.ToAdminResponse(admin), TokenPair: *pair}, nil
}

func (s *Service) inviteResult(invite *models.Invite) *models.InviteResult {
	return &models.InviteResult{
		Token:     invite.Token,
		ExpiresAt: invite.ExpiresAt,
		InviteURL: s.frontendURL + "/register?token=" + invite.Token,
	}
}

func (s *Service) failedLogin(ctx context.Context, login, reason string, start time.Time) {
	s.metrics.ObserveLogin(reason, start)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("auth.failure", reason))
	s.logAudit(ctx, audit.ActionLoginFailed, audit.EntityAdmin,
		"login", login,
		"reason", reason,
	)
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, entity audit.Entity, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(action), "entity", string(entity), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	event := audit.FromAttrs(action, entity, attributes)
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record audit event",
			"event", string(action),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func toValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		if de, ok := dErrors.As(err); ok {
			return dErrors.New(dErrors.CodeValidation, de.Message)
		}
	}
	return err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
