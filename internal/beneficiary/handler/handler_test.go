package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"encantar/internal/beneficiary/handler/mocks"
	"encantar/internal/beneficiary/models"
	"encantar/internal/platform/logger"
	"encantar/internal/platform/middleware"
	"encantar/pkg/domain"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/pagination"
	"encantar/pkg/testutil"
)

// =============================================================================
// Beneficiary Handler Test Suite
// =============================================================================
// Justification: query parsing, id validation and envelopes live in the
// handler. The service is mocked.

type HandlerSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	service    *mocks.MockService
	router     chi.Router
	authCalls  int
	cacheCalls int
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.authCalls, s.cacheCalls = 0, 0

	counting := func(n *int) middleware.Func {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				*n++
				next.ServeHTTP(w, r)
			})
		}
	}
	s.router = chi.NewRouter()
	New(s.service, logger.Discard(), middleware.Guards{
		Auth:        counting(&s.authCalls),
		CacheShort:  counting(&s.cacheCalls),
		CacheMedium: counting(&s.cacheCalls),
	}).Register(s.router)
}

func (s *HandlerSuite) get(path string) *testutil.PageEnvelope[models.WithCount] {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, path, nil))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	env := testutil.DecodePage[models.WithCount](s.T(), rr)
	return &env
}

func (s *HandlerSuite) TestList() {
	s.Run("parses filters and paging", func() {
		s.service.EXPECT().List(gomock.Any(), gomock.Any(), pagination.Params{Page: 2, Limit: 5, SortBy: "name", SortOrder: "asc"}).
			DoAndReturn(func(_ any, f models.ListFilter, p pagination.Params) (*pagination.Page[models.WithCount], error) {
				s.Equal("ana", f.Search)
				s.Equal(domain.ActiveOnly, f.Active)
				s.Require().NotNil(f.From)
				s.Require().NotNil(f.To)
				return pagination.NewPage([]models.WithCount{{Beneficiary: models.Beneficiary{Name: "Ana"}}}, 6, p), nil
			})

		env := s.get("/api/beneficiaries?search=ana&active=true&start_date=2025-01-01&end_date=2025-01-31&page=2&limit=5&sortBy=name&sortOrder=asc")
		s.True(env.Success)
		s.Len(env.Data, 1)
		s.Equal(6, env.Pagination.Total)
		s.True(env.Pagination.HasPrev)
		s.Equal(1, s.authCalls)
		s.Equal(1, s.cacheCalls)
	})

	s.Run("unknown active value means all", func() {
		s.service.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, f models.ListFilter, p pagination.Params) (*pagination.Page[models.WithCount], error) {
				s.Equal(domain.ActiveAll, f.Active)
				return pagination.NewPage([]models.WithCount{}, 0, p), nil
			})
		s.get("/api/beneficiaries?active=maybe")
	})

	s.Run("inverted date range is a validation error", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet,
			"/api/beneficiaries?start_date=2025-02-01&end_date=2025-01-01", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *HandlerSuite) TestSearch() {
	s.Run("passes term and limit", func() {
		s.service.EXPECT().Search(gomock.Any(), "ana", 5).Return([]models.Summary{{Name: "Ana"}}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/beneficiaries/search?q=ana&limit=5", nil))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Equal("Ana", testutil.DecodeData[[]models.Summary](s.T(), rr).Data[0].Name)
	})

	s.Run("non numeric limit fails", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/beneficiaries/search?q=ana&limit=x", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *HandlerSuite) TestGet() {
	s.Run("invalid id never reaches the service", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/beneficiaries/not-a-uuid", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})

	s.Run("missing beneficiary is 404", func() {
		id := uuid.New()
		s.service.EXPECT().Get(gomock.Any(), id).Return(nil, dErrors.New(dErrors.CodeNotFound, "beneficiary not found"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/beneficiaries/"+id.String(), nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *HandlerSuite) TestMutations() {
	id := uuid.New()

	s.Run("create returns 201", func() {
		s.service.EXPECT().Create(gomock.Any(), &models.CreateRequest{Name: "Ana", Address: "Rua A, 1"}).
			Return(&models.Beneficiary{ID: id, Name: "Ana"}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/beneficiaries",
			map[string]string{"name": "Ana", "address": "Rua A, 1"}))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		s.Equal("beneficiary created", testutil.DecodeData[models.Beneficiary](s.T(), rr).Message)
	})

	s.Run("duplicate is 409", func() {
		s.service.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "a beneficiary with this name and address already exists"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/beneficiaries",
			map[string]string{"name": "Ana", "address": "Rua A, 1"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("update passes only sent fields", func() {
		s.service.EXPECT().Update(gomock.Any(), id, gomock.Any()).
			DoAndReturn(func(_ any, _ uuid.UUID, req *models.UpdateRequest) (*models.Beneficiary, error) {
				s.Nil(req.Name)
				s.Require().NotNil(req.Notes)
				s.Equal("gate code 12", *req.Notes)
				return &models.Beneficiary{ID: id}, nil
			})
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut, "/api/beneficiaries/"+id.String(),
			map[string]string{"notes": "gate code 12"}))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})

	s.Run("delete deactivates", func() {
		s.service.EXPECT().Delete(gomock.Any(), id).Return(nil)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodDelete, "/api/beneficiaries/"+id.String(), nil))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Equal("beneficiary deactivated", testutil.DecodeData[any](s.T(), rr).Message)
	})
}
