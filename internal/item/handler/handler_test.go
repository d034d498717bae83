package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"encantar/internal/item/handler/mocks"
	"encantar/internal/item/models"
	"encantar/internal/platform/logger"
	"encantar/internal/platform/middleware"
	"encantar/pkg/domain"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/pagination"
	"encantar/pkg/testutil"
)

// =============================================================================
// Item Handler Test Suite
// =============================================================================

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	New(s.service, logger.Discard(), middleware.Guards{}).Register(s.router)
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), method, path, body))
}

func (s *HandlerSuite) TestList() {
	s.Run("unit and active filters", func() {
		s.service.EXPECT().List(gomock.Any(), models.ListFilter{Search: "ri", Active: domain.ActiveInactive, Unit: models.UnitKG}, gomock.Any()).
			DoAndReturn(func(_ any, _ models.ListFilter, p pagination.Params) (*pagination.Page[models.Item], error) {
				return pagination.NewPage([]models.Item{{Name: "Rice"}}, 1, p), nil
			})
		rr := s.do(http.MethodGet, "/api/items?search=ri&active=false&unit=kg", nil)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Equal(1, testutil.DecodePage[models.Item](s.T(), rr).Pagination.Total)
	})

	s.Run("bad unit filter", func() {
		rr := s.do(http.MethodGet, "/api/items?unit=TON", nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *HandlerSuite) TestStaticRoutesBeatIDRoute() {
	s.service.EXPECT().Units(gomock.Any()).Return([]models.Unit{models.UnitKG, models.UnitUN}, nil)
	rr := s.do(http.MethodGet, "/api/items/units", nil)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Equal([]models.Unit{models.UnitKG, models.UnitUN}, testutil.DecodeData[[]models.Unit](s.T(), rr).Data)

	s.service.EXPECT().MostUsed(gomock.Any(), 3).Return([]models.WithUsage{}, nil)
	testutil.AssertStatus(s.T(), s.do(http.MethodGet, "/api/items/most-used?limit=3", nil), http.StatusOK)

	s.service.EXPECT().Search(gomock.Any(), "ric", 0).Return([]models.Summary{}, nil)
	testutil.AssertStatus(s.T(), s.do(http.MethodGet, "/api/items/search?name=ric", nil), http.StatusOK)
}

func (s *HandlerSuite) TestDeleteInUse() {
	id := uuid.New()
	s.service.EXPECT().Delete(gomock.Any(), id).Return(dErrors.New(dErrors.CodeConflict, "item is in use"))

	rr := s.do(http.MethodDelete, "/api/items/"+id.String(), nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	s.Equal("item is in use", testutil.DecodeError(s.T(), rr).ErrorDescription)
}

func (s *HandlerSuite) TestActivation() {
	id := uuid.New()
	s.service.EXPECT().Inactivate(gomock.Any(), id).Return(&models.Item{ID: id}, nil)
	rr := s.do(http.MethodPatch, "/api/items/"+id.String()+"/inactivate", nil)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Equal("item inactivated", testutil.DecodeData[models.Item](s.T(), rr).Message)

	s.service.EXPECT().Reactivate(gomock.Any(), id).
		Return(nil, dErrors.New(dErrors.CodeBadRequest, "item is already active"))
	rr = s.do(http.MethodPatch, "/api/items/"+id.String()+"/reactivate", nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *HandlerSuite) TestCreate() {
	s.service.EXPECT().Create(gomock.Any(), &models.CreateRequest{Name: "Rice", Unit: "KG"}).
		Return(&models.Item{Name: "Rice", Unit: models.UnitKG}, nil)
	rr := s.do(http.MethodPost, "/api/items", map[string]string{"name": "Rice", "unit": "KG"})
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
}
