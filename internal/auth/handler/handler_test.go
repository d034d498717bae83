package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"encantar/internal/auth/handler/mocks"
	"encantar/internal/auth/models"
	"encantar/internal/platform/logger"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/testutil"
)

// =============================================================================
// Auth Handler Test Suite
// =============================================================================
// Justification: the handler owns decoding, route guards and the envelope
// shape. Service behavior is mocked.

type HandlerSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	service    *mocks.MockService
	router     chi.Router
	guardCalls int
	limitCalls int
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.guardCalls, s.limitCalls = 0, 0

	guard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.guardCalls++
			next.ServeHTTP(w, r)
		})
	}
	limit := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.limitCalls++
			next.ServeHTTP(w, r)
		})
	}

	s.router = chi.NewRouter()
	New(s.service, logger.Discard(), guard, limit).Register(s.router)
}

func (s *HandlerSuite) TestLogin() {
	s.Run("success wraps tokens in the envelope", func() {
		s.service.EXPECT().Login(gomock.Any(), &models.LoginRequest{Login: "maria", Password: "secret1"}).
			Return(&models.AuthResult{
				User:      models.AdminResponse{ID: uuid.New(), Login: "maria"},
				TokenPair: models.TokenPair{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900},
			}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login",
			map[string]string{"login": "maria", "password": "secret1"}))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		env := testutil.DecodeData[models.AuthResult](s.T(), rr)
		s.True(env.Success)
		s.Equal("a", env.Data.AccessToken)
		s.Equal("maria", env.Data.User.Login)
		s.Equal(1, s.limitCalls)
		s.Equal(0, s.guardCalls)
	})

	s.Run("bad credentials map to 401", func() {
		s.service.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid login or password"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login",
			map[string]string{"login": "maria", "password": "x"}))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("malformed body is a bad request", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRawJSONRequest(s.T(), http.MethodPost, "/api/auth/login", "{"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("unknown fields are rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRawJSONRequest(s.T(), http.MethodPost, "/api/auth/login",
			`{"login":"maria","password":"x","admin":true}`))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *HandlerSuite) TestRegister() {
	s.service.EXPECT().Register(gomock.Any(), gomock.Any()).
		Return(&models.AuthResult{User: models.AdminResponse{Login: "joana"}}, nil)

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/register",
		map[string]string{"name": "Joana", "login": "joana", "password": "secret1", "token": "tok"}))

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	s.Equal("admin registered", testutil.DecodeData[models.AuthResult](s.T(), rr).Message)
	s.Equal(1, s.limitCalls)
}

func (s *HandlerSuite) TestSessionEndpointsAreGuarded() {
	s.service.EXPECT().Me(gomock.Any()).Return(&models.AdminResponse{Login: "maria"}, nil)
	s.service.EXPECT().Logout(gomock.Any())

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/auth/me", nil))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/logout", nil))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Equal("logout successful", testutil.DecodeData[any](s.T(), rr).Message)

	s.Equal(2, s.guardCalls)
}

func (s *HandlerSuite) TestInvites() {
	s.Run("create returns 201", func() {
		s.service.EXPECT().CreateInvite(gomock.Any(), &models.CreateInviteRequest{Email: "a@b.org"}).
			Return(&models.InviteResult{Token: "tok", ExpiresAt: time.Now()}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/invites",
			map[string]string{"email": "a@b.org"}))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		s.Equal("tok", testutil.DecodeData[models.InviteResult](s.T(), rr).Data.Token)
	})

	s.Run("no active invite renders data null", func() {
		s.service.EXPECT().ActiveInvite(gomock.Any()).Return(nil, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/invites/active", nil))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.JSONEq(`{"success":true,"data":null}`, rr.Body.String())
	})

	s.Run("public validation is not guarded", func() {
		before := s.guardCalls
		s.service.EXPECT().ValidateInvite(gomock.Any(), "abc123").
			Return(nil, dErrors.New(dErrors.CodeBadRequest, "invite has expired"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/invites/abc123", nil))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
		s.Equal("invite has expired", testutil.DecodeError(s.T(), rr).ErrorDescription)
		s.Equal(before, s.guardCalls)
	})
}

func (s *HandlerSuite) TestInternalErrorsHideDetails() {
	s.service.EXPECT().Refresh(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.Wrap(assertErr, dErrors.CodeInternal, "failed to load admin"))

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/refresh",
		map[string]string{"refresh_token": "rt"}))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
	s.Empty(testutil.DecodeError(s.T(), rr).ErrorDescription)
}

var assertErr = dErrors.New(dErrors.CodeInternal, "boom")
