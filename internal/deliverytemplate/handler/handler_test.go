package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"encantar/internal/deliverytemplate/handler/mocks"
	"encantar/internal/deliverytemplate/models"
	"encantar/internal/platform/logger"
	"encantar/internal/platform/middleware"
	"encantar/pkg/domain"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/pagination"
	"encantar/pkg/testutil"
)

// =============================================================================
// Delivery Template Handler Test Suite
// =============================================================================
// Justification: query parsing and envelope shape belong to the handler.

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

func (s *HandlerSuite) TestList() {
	s.service.EXPECT().List(gomock.Any(), models.ListFilter{Search: "basic", Active: domain.ActiveInactive}, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ models.ListFilter, p pagination.Params) (*pagination.Page[models.View], error) {
			s.Equal("created_at", p.SortBy)
			return pagination.NewPage([]models.View{{Template: models.Template{Name: "Basic"}}}, 1, p), nil
		})

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet,
		"/api/delivery-templates?search=basic&active=false&sortBy=created_at", nil))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	page := testutil.DecodePage[models.View](s.T(), rr)
	s.Equal(1, page.Pagination.Total)
	s.Equal("Basic", page.Data[0].Name)
}

func (s *HandlerSuite) TestCreate() {
	s.service.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *models.CreateRequest) (*models.View, error) {
			s.Require().Len(req.Items, 1)
			s.Equal(4, req.Items[0].Quantity)
			return &models.View{Template: models.Template{ID: uuid.New(), Name: req.Name}}, nil
		})

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/delivery-templates", map[string]any{
		"name":  "Basic",
		"items": []map[string]any{{"item_id": uuid.NewString(), "quantity": 4}},
	}))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	s.Equal("delivery template created", testutil.DecodeData[models.View](s.T(), rr).Message)
}

func (s *HandlerSuite) TestDelete() {
	s.Run("not found", func() {
		id := uuid.New()
		s.service.EXPECT().Delete(gomock.Any(), id).Return(dErrors.New(dErrors.CodeNotFound, "delivery template not found"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodDelete, "/api/delivery-templates/"+id.String(), nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("malformed id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodDelete, "/api/delivery-templates/nope", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})
}
