package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,ItemFinder,TxRunner,BeneficiarySearcher,ItemSearcher,CacheInvalidator,AuditPublisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"encantar/internal/audit"
	beneficiarymodels "encantar/internal/beneficiary/models"
	"encantar/internal/delivery/models"
	"encantar/internal/delivery/service/mocks"
	"encantar/internal/item/lines"
	itemmodels "encantar/internal/item/models"
	"encantar/internal/platform/cache"
	"encantar/internal/platform/logger"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/requestcontext"
)

// =============================================================================
// Delivery Service Test Suite
// =============================================================================
// Justification: reference checks, line validation and the transactional
// create/update live in the service. Store, items and the tx runner are mocked.

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	items   *mocks.MockItemFinder
	tx      *mocks.MockTxRunner
	benSrch *mocks.MockBeneficiarySearcher
	itmSrch *mocks.MockItemSearcher
	cache   *mocks.MockCacheInvalidator
	auditor *mocks.MockAuditPublisher
	service *Service
	adminID uuid.UUID
	now     time.Time
	rice    itemmodels.Item
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.items = mocks.NewMockItemFinder(s.ctrl)
	s.tx = mocks.NewMockTxRunner(s.ctrl)
	s.benSrch = mocks.NewMockBeneficiarySearcher(s.ctrl)
	s.itmSrch = mocks.NewMockItemSearcher(s.ctrl)
	s.cache = mocks.NewMockCacheInvalidator(s.ctrl)
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)
	s.adminID = uuid.New()
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.rice = itemmodels.Item{ID: uuid.New(), Name: "Rice", Unit: itemmodels.UnitKG, Active: true}
	s.service = New(s.store, s.items,
		WithTxRunner(s.tx),
		WithSearch(s.benSrch, s.itmSrch),
		WithCache(s.cache),
		WithAuditPublisher(s.auditor),
		WithLogger(logger.Discard()),
	)
}

func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(requestcontext.WithAdminID(context.Background(), s.adminID), s.now)
}

func (s *ServiceSuite) runTxInline() {
	s.tx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) })
}

func (s *ServiceSuite) expectMutation(action audit.Action) {
	s.cache.EXPECT().Invalidate(gomock.Any(), cache.EntityDeliveries)
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e audit.Event) error {
			s.Equal(action, e.Action)
			s.Equal(audit.EntityDelivery, e.Entity)
			s.Equal(s.adminID, e.ActorID)
			return nil
		})
}

func (s *ServiceSuite) createRequest() *models.CreateRequest {
	return &models.CreateRequest{
		BeneficiaryID: uuid.New(),
		RouteID:       uuid.New(),
		Items:         []lines.Line{{ItemID: s.rice.ID, Quantity: 2}},
	}
}

func (s *ServiceSuite) TestCreate() {
	s.Run("writes row and lines in one transaction", func() {
		req := s.createRequest()
		var created uuid.UUID
		s.store.EXPECT().BeneficiaryExists(gomock.Any(), req.BeneficiaryID).Return(true, nil)
		s.store.EXPECT().RouteExists(gomock.Any(), req.RouteID).Return(true, nil)
		s.items.EXPECT().FindByIDs(gomock.Any(), []uuid.UUID{s.rice.ID}).Return([]itemmodels.Item{s.rice}, nil)
		s.runTxInline()
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, d *models.Delivery) error {
				s.Equal(models.StatusPending, d.Status)
				s.Equal(s.adminID, *d.CreatedByID)
				created = d.ID
				return nil
			})
		s.store.EXPECT().ReplaceLines(gomock.Any(), gomock.Any(), req.Items).Return(nil)
		s.expectMutation(audit.ActionCreated)
		s.store.EXPECT().FindByID(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, id uuid.UUID) (*models.View, error) {
				s.Equal(created, id)
				return &models.View{Delivery: models.Delivery{ID: id}}, nil
			})

		v, err := s.service.Create(s.ctx(), req)
		s.Require().NoError(err)
		s.Equal(created, v.ID)
	})

	s.Run("unknown beneficiary is a bad request", func() {
		req := s.createRequest()
		s.store.EXPECT().BeneficiaryExists(gomock.Any(), req.BeneficiaryID).Return(false, nil)

		_, err := s.service.Create(s.ctx(), req)
		s.ErrorIs(err, errBeneficiaryMissing)
	})

	s.Run("unknown route is a bad request", func() {
		req := s.createRequest()
		s.store.EXPECT().BeneficiaryExists(gomock.Any(), req.BeneficiaryID).Return(true, nil)
		s.store.EXPECT().RouteExists(gomock.Any(), req.RouteID).Return(false, nil)

		_, err := s.service.Create(s.ctx(), req)
		s.ErrorIs(err, errRouteMissing)
	})

	s.Run("inactive item is named", func() {
		req := s.createRequest()
		inactive := s.rice
		inactive.Active = false
		s.store.EXPECT().BeneficiaryExists(gomock.Any(), gomock.Any()).Return(true, nil)
		s.store.EXPECT().RouteExists(gomock.Any(), gomock.Any()).Return(true, nil)
		s.items.EXPECT().FindByIDs(gomock.Any(), gomock.Any()).Return([]itemmodels.Item{inactive}, nil)

		_, err := s.service.Create(s.ctx(), req)
		s.ErrorIs(err, dErrors.New(dErrors.CodeBadRequest, "inactive items cannot be delivered: Rice"))
	})

	s.Run("duplicate lines fail before any lookup", func() {
		req := s.createRequest()
		req.Items = append(req.Items, lines.Line{ItemID: s.rice.ID, Quantity: 1})

		_, err := s.service.Create(s.ctx(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("failed line insert surfaces as internal", func() {
		req := s.createRequest()
		s.store.EXPECT().BeneficiaryExists(gomock.Any(), gomock.Any()).Return(true, nil)
		s.store.EXPECT().RouteExists(gomock.Any(), gomock.Any()).Return(true, nil)
		s.items.EXPECT().FindByIDs(gomock.Any(), gomock.Any()).Return([]itemmodels.Item{s.rice}, nil)
		s.runTxInline()
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.store.EXPECT().ReplaceLines(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

		_, err := s.service.Create(s.ctx(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestUpdate() {
	current := &models.View{Delivery: models.Delivery{
		ID:            uuid.New(),
		BeneficiaryID: uuid.New(),
		RouteID:       uuid.New(),
		Status:        models.StatusPending,
	}}

	s.Run("notes only skips reference and line checks", func() {
		notes := "leave at the gate"
		s.store.EXPECT().FindByID(gomock.Any(), current.ID).Return(current, nil)
		s.runTxInline()
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, d *models.Delivery) error {
				s.Equal(notes, *d.Notes)
				s.Equal(s.now, d.UpdatedAt)
				return nil
			})
		s.expectMutation(audit.ActionUpdated)
		s.store.EXPECT().FindByID(gomock.Any(), current.ID).Return(current, nil)

		_, err := s.service.Update(s.ctx(), current.ID, &models.UpdateRequest{Notes: &notes})
		s.Require().NoError(err)
	})

	s.Run("new items replace the lines", func() {
		items := []lines.Line{{ItemID: s.rice.ID, Quantity: 5}}
		routeID := uuid.New()
		s.store.EXPECT().FindByID(gomock.Any(), current.ID).Return(current, nil)
		s.store.EXPECT().RouteExists(gomock.Any(), routeID).Return(true, nil)
		s.items.EXPECT().FindByIDs(gomock.Any(), gomock.Any()).Return([]itemmodels.Item{s.rice}, nil)
		s.runTxInline()
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		s.store.EXPECT().ReplaceLines(gomock.Any(), current.ID, items).Return(nil)
		s.expectMutation(audit.ActionUpdated)
		s.store.EXPECT().FindByID(gomock.Any(), current.ID).Return(current, nil)

		_, err := s.service.Update(s.ctx(), current.ID, &models.UpdateRequest{RouteID: &routeID, Items: &items})
		s.Require().NoError(err)
	})

	s.Run("empty item list is rejected", func() {
		items := []lines.Line{}
		_, err := s.service.Update(s.ctx(), current.ID, &models.UpdateRequest{Items: &items})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing delivery is not found", func() {
		id := uuid.New()
		s.store.EXPECT().FindByID(gomock.Any(), id).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Update(s.ctx(), id, &models.UpdateRequest{})
		s.ErrorIs(err, errNotFound)
	})
}

func (s *ServiceSuite) TestStatusAndDelete() {
	s.Run("status change stamps the actor", func() {
		id := uuid.New()
		s.store.EXPECT().UpdateStatus(gomock.Any(), id, models.StatusCompleted, s.now, &s.adminID).Return(nil)
		s.expectMutation(audit.ActionStatusChanged)
		s.store.EXPECT().FindByID(gomock.Any(), id).Return(&models.View{Delivery: models.Delivery{ID: id, Status: models.StatusCompleted}}, nil)

		v, err := s.service.UpdateStatus(s.ctx(), id, &models.StatusRequest{Status: "completed"})
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, v.Status)
	})

	s.Run("invalid status", func() {
		_, err := s.service.UpdateStatus(s.ctx(), uuid.New(), &models.StatusRequest{Status: "gone"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("delete missing delivery", func() {
		id := uuid.New()
		s.store.EXPECT().Delete(gomock.Any(), id).Return(sentinel.ErrNotFound)
		s.ErrorIs(s.service.Delete(s.ctx(), id), errNotFound)
	})

	s.Run("delete invalidates", func() {
		id := uuid.New()
		s.store.EXPECT().Delete(gomock.Any(), id).Return(nil)
		s.expectMutation(audit.ActionDeleted)
		s.NoError(s.service.Delete(s.ctx(), id))
	})
}

func (s *ServiceSuite) TestAutocomplete() {
	s.benSrch.EXPECT().Search(gomock.Any(), "an", SearchLimit).Return([]beneficiarymodels.Summary{{Name: "Ana"}}, nil)
	out, err := s.service.SearchBeneficiaries(s.ctx(), "an")
	s.Require().NoError(err)
	s.Len(out, 1)

	s.itmSrch.EXPECT().Search(gomock.Any(), "ri", SearchLimit).Return([]itemmodels.Summary{{Name: "Rice"}}, nil)
	items, err := s.service.SearchItems(s.ctx(), "ri")
	s.Require().NoError(err)
	s.Len(items, 1)
}
