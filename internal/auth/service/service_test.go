package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks AdminStore,InviteStore,TokenIssuer,TxRunner,AuditPublisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"encantar/internal/audit"
	"encantar/internal/auth/models"
	"encantar/internal/auth/service/mocks"
	"encantar/internal/platform/logger"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/requestcontext"
)

// =============================================================================
// Auth Service Test Suite
// =============================================================================
// Justification: credential checks, invite redemption and the one-active-invite
// rule are decided here, above the stores. Mocks keep each branch explicit.

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	admins  *mocks.MockAdminStore
	invites *mocks.MockInviteStore
	tokens  *mocks.MockTokenIssuer
	tx      *mocks.MockTxRunner
	auditor *mocks.MockAuditPublisher
	service *Service
	now     time.Time
	adminID uuid.UUID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.admins = mocks.NewMockAdminStore(s.ctrl)
	s.invites = mocks.NewMockInviteStore(s.ctrl)
	s.tokens = mocks.NewMockTokenIssuer(s.ctrl)
	s.tx = mocks.NewMockTxRunner(s.ctrl)
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.adminID = uuid.New()

	s.service = New(s.admins, s.invites, s.tokens, s.tx,
		WithLogger(logger.Discard()),
		WithAuditPublisher(s.auditor),
		WithFrontendURL("https://app.example.org/"),
		WithPasswordHasher(
			func(p string) (string, error) { return "hashed:" + p, nil },
			func(p, h string) (bool, error) { return h == "hashed:"+p, nil },
		),
		WithTokenGenerator(func() (string, error) { return "invite-token", nil }),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) authedCtx() context.Context {
	return requestcontext.WithAdminID(s.ctx(), s.adminID)
}

func (s *ServiceSuite) admin(active bool) *models.Admin {
	return &models.Admin{
		ID:           s.adminID,
		Name:         "Maria",
		Login:        "maria",
		PasswordHash: "hashed:secret1",
		Active:       active,
	}
}

func (s *ServiceSuite) pair() *models.TokenPair {
	return &models.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900}
}

func (s *ServiceSuite) runTxInline() {
	s.tx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) })
}

// =============================================================================
// Login
// =============================================================================

func (s *ServiceSuite) TestLogin() {
	s.Run("valid credentials issue tokens", func() {
		s.admins.EXPECT().FindByLogin(gomock.Any(), "maria").Return(s.admin(true), nil)
		s.tokens.EXPECT().Issue(gomock.Any()).Return(s.pair(), nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				s.Equal(audit.ActionLogin, e.Action)
				s.Equal(s.adminID, e.ActorID)
				s.Equal(s.adminID.String(), e.EntityID)
				return nil
			})

		res, err := s.service.Login(s.ctx(), &models.LoginRequest{Login: "  maria ", Password: "secret1"})
		s.Require().NoError(err)
		s.Equal("access", res.AccessToken)
		s.Equal("maria", res.User.Login)
	})

	s.Run("unknown login is unauthorized", func() {
		s.admins.EXPECT().FindByLogin(gomock.Any(), "ghost").Return(nil, sentinel.ErrNotFound)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		_, err := s.service.Login(s.ctx(), &models.LoginRequest{Login: "ghost", Password: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.ErrorIs(err, dErrors.New(dErrors.CodeUnauthorized, "invalid login or password"))
	})

	s.Run("wrong password is unauthorized", func() {
		s.admins.EXPECT().FindByLogin(gomock.Any(), "maria").Return(s.admin(true), nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		_, err := s.service.Login(s.ctx(), &models.LoginRequest{Login: "maria", Password: "nope"})
		s.ErrorIs(err, dErrors.New(dErrors.CodeUnauthorized, "invalid login or password"))
	})

	s.Run("inactive admin is rejected after the password check", func() {
		s.admins.EXPECT().FindByLogin(gomock.Any(), "maria").Return(s.admin(false), nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		_, err := s.service.Login(s.ctx(), &models.LoginRequest{Login: "maria", Password: "secret1"})
		s.ErrorIs(err, dErrors.New(dErrors.CodeUnauthorized, "account disabled"))
	})

	s.Run("missing fields fail validation", func() {
		_, err := s.service.Login(s.ctx(), &models.LoginRequest{Login: " "})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("store failure is internal", func() {
		s.admins.EXPECT().FindByLogin(gomock.Any(), "maria").Return(nil, errors.New("db down"))

		_, err := s.service.Login(s.ctx(), &models.LoginRequest{Login: "maria", Password: "secret1"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

// =============================================================================
// Register
// =============================================================================

func (s *ServiceSuite) TestRegister() {
	email := "new@example.org"
	inviteID := uuid.New()
	validInvite := func() *models.Invite {
		return &models.Invite{
			ID:          inviteID,
			Token:       "tok",
			Email:       &email,
			ExpiresAt:   s.now.Add(10 * time.Minute),
			CreatedByID: s.adminID,
		}
	}
	req := func() *models.RegisterRequest {
		return &models.RegisterRequest{
			Name:     "Joana",
			Login:    "joana",
			Password: "secret1",
			Token:    "tok",
			Email:    "New@Example.org",
		}
	}

	s.Run("valid invite creates admin and consumes invite", func() {
		s.admins.EXPECT().FindByLogin(gomock.Any(), "joana").Return(nil, sentinel.ErrNotFound)
		s.invites.EXPECT().FindByToken(gomock.Any(), "tok").Return(validInvite(), "Maria", nil)
		s.runTxInline()
		s.admins.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, a *models.Admin) error {
				s.Equal("joana", a.Login)
				s.Equal("hashed:secret1", a.PasswordHash)
				s.True(a.Active)
				return nil
			})
		s.invites.EXPECT().MarkUsed(gomock.Any(), inviteID, s.now).Return(nil)
		s.tokens.EXPECT().Issue(gomock.Any()).Return(s.pair(), nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		res, err := s.service.Register(s.ctx(), req())
		s.Require().NoError(err)
		s.Equal("Joana", res.User.Name)
		s.Equal("refresh", res.RefreshToken)
	})

	s.Run("taken login is a conflict", func() {
		s.admins.EXPECT().FindByLogin(gomock.Any(), "joana").Return(s.admin(true), nil)

		_, err := s.service.Register(s.ctx(), req())
		s.ErrorIs(err, dErrors.New(dErrors.CodeConflict, "login is already in use"))
	})

	s.Run("unknown invite is a bad request", func() {
		s.admins.EXPECT().FindByLogin(gomock.Any(), "joana").Return(nil, sentinel.ErrNotFound)
		s.invites.EXPECT().FindByToken(gomock.Any(), "tok").Return(nil, "", sentinel.ErrNotFound)

		_, err := s.service.Register(s.ctx(), req())
		s.ErrorIs(err, dErrors.New(dErrors.CodeBadRequest, "invalid invite"))
	})

	s.Run("expired invite is rejected", func() {
		inv := validInvite()
		inv.ExpiresAt = s.now.Add(-time.Second)
		s.admins.EXPECT().FindByLogin(gomock.Any(), "joana").Return(nil, sentinel.ErrNotFound)
		s.invites.EXPECT().FindByToken(gomock.Any(), "tok").Return(inv, "Maria", nil)

		_, err := s.service.Register(s.ctx(), req())
		s.ErrorIs(err, dErrors.New(dErrors.CodeBadRequest, "invite has expired"))
	})

	s.Run("email mismatch is rejected", func() {
		r := req()
		r.Email = "other@example.org"
		s.admins.EXPECT().FindByLogin(gomock.Any(), "joana").Return(nil, sentinel.ErrNotFound)
		s.invites.EXPECT().FindByToken(gomock.Any(), "tok").Return(validInvite(), "Maria", nil)

		_, err := s.service.Register(s.ctx(), r)
		s.ErrorIs(err, dErrors.New(dErrors.CodeBadRequest, "email does not match the invite"))
	})

	s.Run("concurrent redemption surfaces as used invite", func() {
		s.admins.EXPECT().FindByLogin(gomock.Any(), "joana").Return(nil, sentinel.ErrNotFound)
		s.invites.EXPECT().FindByToken(gomock.Any(), "tok").Return(validInvite(), "Maria", nil)
		s.runTxInline()
		s.admins.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.invites.EXPECT().MarkUsed(gomock.Any(), inviteID, s.now).Return(sentinel.ErrAlreadyUsed)

		_, err := s.service.Register(s.ctx(), req())
		s.ErrorIs(err, dErrors.New(dErrors.CodeBadRequest, "invite has already been used"))
	})

	s.Run("invalid fields fail before touching stores", func() {
		r := req()
		r.Password = "123"

		_, err := s.service.Register(s.ctx(), r)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// =============================================================================
// Refresh, Me, Logout
// =============================================================================

func (s *ServiceSuite) TestRefresh() {
	s.Run("active admin gets a new pair", func() {
		s.tokens.EXPECT().ValidateRefreshToken("rt").Return(s.adminID, nil)
		s.admins.EXPECT().FindByID(gomock.Any(), s.adminID).Return(s.admin(true), nil)
		s.tokens.EXPECT().Issue(gomock.Any()).Return(s.pair(), nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		res, err := s.service.Refresh(s.ctx(), &models.RefreshRequest{RefreshToken: "rt"})
		s.Require().NoError(err)
		s.Equal(900, res.ExpiresIn)
	})

	s.Run("invalid token propagates unauthorized", func() {
		s.tokens.EXPECT().ValidateRefreshToken("bad").Return(uuid.Nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))

		_, err := s.service.Refresh(s.ctx(), &models.RefreshRequest{RefreshToken: "bad"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("deactivated admin cannot refresh", func() {
		s.tokens.EXPECT().ValidateRefreshToken("rt").Return(s.adminID, nil)
		s.admins.EXPECT().FindByID(gomock.Any(), s.adminID).Return(s.admin(false), nil)

		_, err := s.service.Refresh(s.ctx(), &models.RefreshRequest{RefreshToken: "rt"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("deleted admin cannot refresh", func() {
		s.tokens.EXPECT().ValidateRefreshToken("rt").Return(s.adminID, nil)
		s.admins.EXPECT().FindByID(gomock.Any(), s.adminID).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.Refresh(s.ctx(), &models.RefreshRequest{RefreshToken: "rt"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestMeAndLogout() {
	s.Run("me returns the public view", func() {
		s.admins.EXPECT().FindByID(gomock.Any(), s.adminID).Return(s.admin(true), nil)

		me, err := s.service.Me(s.authedCtx())
		s.Require().NoError(err)
		s.Equal("maria", me.Login)
	})

	s.Run("me without admin is unauthorized", func() {
		_, err := s.service.Me(s.ctx())
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("logout records an audit event", func() {
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				s.Equal(audit.ActionLogout, e.Action)
				return nil
			})
		s.service.Logout(s.authedCtx())
	})
}

// =============================================================================
// Invites
// =============================================================================

func (s *ServiceSuite) TestCreateInvite() {
	s.Run("creates invite with link", func() {
		s.invites.EXPECT().FindActiveByCreator(gomock.Any(), s.adminID, s.now).Return(nil, sentinel.ErrNotFound)
		s.invites.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, inv *models.Invite) error {
				s.Equal("invite-token", inv.Token)
				s.Equal(s.now.Add(15*time.Minute), inv.ExpiresAt)
				s.Require().NotNil(inv.Phone)
				s.Equal("11987654321", *inv.Phone)
				s.Nil(inv.Email)
				return nil
			})
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		res, err := s.service.CreateInvite(s.authedCtx(), &models.CreateInviteRequest{Phone: "(11) 98765-4321"})
		s.Require().NoError(err)
		s.Equal("https://app.example.org/register?token=invite-token", res.InviteURL)
	})

	s.Run("second active invite conflicts", func() {
		s.invites.EXPECT().FindActiveByCreator(gomock.Any(), s.adminID, s.now).Return(&models.Invite{}, nil)

		_, err := s.service.CreateInvite(s.authedCtx(), &models.CreateInviteRequest{Email: "a@b.org"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("contact is required", func() {
		s.invites.EXPECT().FindActiveByCreator(gomock.Any(), s.adminID, s.now).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.CreateInvite(s.authedCtx(), &models.CreateInviteRequest{})
		s.ErrorIs(err, dErrors.New(dErrors.CodeValidation, "email or phone is required to create an invite"))
	})
}

func (s *ServiceSuite) TestActiveInvite() {
	s.Run("none returns nil without error", func() {
		s.invites.EXPECT().FindActiveByCreator(gomock.Any(), s.adminID, s.now).Return(nil, sentinel.ErrNotFound)

		res, err := s.service.ActiveInvite(s.authedCtx())
		s.NoError(err)
		s.Nil(res)
	})

	s.Run("returns the current invite", func() {
		s.invites.EXPECT().FindActiveByCreator(gomock.Any(), s.adminID, s.now).
			Return(&models.Invite{Token: "abc", ExpiresAt: s.now.Add(time.Minute)}, nil)

		res, err := s.service.ActiveInvite(s.authedCtx())
		s.Require().NoError(err)
		s.Equal("abc", res.Token)
	})
}

func (s *ServiceSuite) TestValidateInvite() {
	phone := "11987654321"

	s.Run("active invite is valid", func() {
		s.invites.EXPECT().FindByToken(gomock.Any(), "tok").
			Return(&models.Invite{Phone: &phone, ExpiresAt: s.now.Add(time.Minute)}, "Maria", nil)

		res, err := s.service.ValidateInvite(s.ctx(), "tok")
		s.Require().NoError(err)
		s.True(res.Valid)
		s.True(res.RequiresPhone)
		s.False(res.RequiresEmail)
		s.Equal("Maria", res.InvitedBy)
	})

	s.Run("expired invite is a bad request", func() {
		s.invites.EXPECT().FindByToken(gomock.Any(), "tok").
			Return(&models.Invite{Phone: &phone, ExpiresAt: s.now.Add(-time.Minute)}, "Maria", nil)

		_, err := s.service.ValidateInvite(s.ctx(), "tok")
		s.ErrorIs(err, dErrors.New(dErrors.CodeBadRequest, "invite has expired"))
	})

	s.Run("unknown token is a bad request", func() {
		s.invites.EXPECT().FindByToken(gomock.Any(), "zzz").Return(nil, "", sentinel.ErrNotFound)

		_, err := s.service.ValidateInvite(s.ctx(), "zzz")
		s.ErrorIs(err, dErrors.New(dErrors.CodeBadRequest, "invalid invite"))
	})
}

func (s *ServiceSuite) TestPurgeExpiredInvites() {
	s.Run("deletes invites expired a day ago", func() {
		s.invites.EXPECT().DeleteExpiredBefore(gomock.Any(), s.now.Add(-24*time.Hour)).Return(int64(3), nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				s.Equal(audit.ActionInvitesPurged, e.Action)
				s.Equal(int64(3), e.Details["deleted"])
				return nil
			})

		s.NoError(s.service.PurgeExpiredInvites(s.ctx()))
	})

	s.Run("nothing to delete stays quiet", func() {
		s.invites.EXPECT().DeleteExpiredBefore(gomock.Any(), gomock.Any()).Return(int64(0), nil)
		s.NoError(s.service.PurgeExpiredInvites(s.ctx()))
	})
}

// =============================================================================
// Bootstrap
// =============================================================================

func (s *ServiceSuite) TestBootstrap() {
	s.Run("empty installation creates the first admin", func() {
		s.admins.EXPECT().Count(gomock.Any()).Return(0, nil)
		s.admins.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, a *models.Admin) error {
				s.Equal("admin", a.Login)
				s.Equal("hashed:admin", a.PasswordHash)
				s.True(a.Active)
				s.Equal(s.now, a.CreatedAt)
				return nil
			})
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				s.Equal(audit.ActionBootstrapped, e.Action)
				return nil
			})

		admin, created, err := s.service.Bootstrap(s.ctx(), "Administrator", " admin ", "admin")
		s.Require().NoError(err)
		s.True(created)
		s.Equal("admin", admin.Login)
	})

	s.Run("existing admins are reused", func() {
		s.admins.EXPECT().Count(gomock.Any()).Return(2, nil)
		s.admins.EXPECT().FirstActive(gomock.Any()).Return(s.admin(true), nil)

		admin, created, err := s.service.Bootstrap(s.ctx(), "Administrator", "admin", "admin")
		s.Require().NoError(err)
		s.False(created)
		s.Equal(s.adminID, admin.ID)
	})

	s.Run("no active admin left is not found", func() {
		s.admins.EXPECT().Count(gomock.Any()).Return(1, nil)
		s.admins.EXPECT().FirstActive(gomock.Any()).Return(nil, sentinel.ErrNotFound)

		_, _, err := s.service.Bootstrap(s.ctx(), "Administrator", "admin", "admin")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing password fails validation", func() {
		s.admins.EXPECT().Count(gomock.Any()).Return(0, nil)

		_, _, err := s.service.Bootstrap(s.ctx(), "Administrator", "admin", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("count failure is internal", func() {
		s.admins.EXPECT().Count(gomock.Any()).Return(0, errors.New("conn reset"))

		_, _, err := s.service.Bootstrap(s.ctx(), "Administrator", "admin", "admin")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
