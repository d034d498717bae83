package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,ItemFinder,TxRunner,CacheInvalidator,AuditPublisher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"encantar/internal/audit"
	"encantar/internal/deliverytemplate/models"
	"encantar/internal/deliverytemplate/service/mocks"
	"encantar/internal/item/lines"
	itemmodels "encantar/internal/item/models"
	"encantar/internal/platform/cache"
	"encantar/internal/platform/logger"
	"encantar/pkg/domain"
	dErrors "encantar/pkg/domain-errors"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/requestcontext"
)

// =============================================================================
// Delivery Template Service Test Suite
// =============================================================================
// Justification: line validation and the transactional line replacement are
// service rules. Store, item lookup and transaction runner are mocked.

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	items   *mocks.MockItemFinder
	tx      *mocks.MockTxRunner
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
	s.cache = mocks.NewMockCacheInvalidator(s.ctrl)
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)
	s.adminID = uuid.New()
	s.now = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	s.rice = itemmodels.Item{ID: uuid.New(), Name: "Rice", Unit: itemmodels.UnitKG, Active: true}
	s.service = New(s.store, s.items,
		WithTxRunner(s.tx),
		WithCache(s.cache),
		WithAuditPublisher(s.auditor),
		WithLogger(logger.Discard()),
	)
}

func (s *ServiceSuite) ctx() context.Context {
	ctx := requestcontext.WithAdminID(context.Background(), s.adminID)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *ServiceSuite) expectTx() {
	s.tx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		})
}

func (s *ServiceSuite) expectSideEffects(action audit.Action) {
	s.cache.EXPECT().Invalidate(gomock.Any(), cache.EntityDeliveryTemplates)
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e audit.Event) error {
			s.Equal(action, e.Action)
			s.Equal(audit.EntityDeliveryTemplate, e.Entity)
			return nil
		})
}

func (s *ServiceSuite) TestCreate() {
	s.Run("stores template and lines in one transaction", func() {
		ls := []lines.Line{{ItemID: s.rice.ID, Quantity: 5}}
		var created uuid.UUID
		s.items.EXPECT().FindByIDs(gomock.Any(), []uuid.UUID{s.rice.ID}).Return([]itemmodels.Item{s.rice}, nil)
		s.expectTx()
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, t *models.Template) error {
				s.Equal("Basic basket", t.Name)
				s.True(t.Active)
				s.Equal(s.now, t.CreatedAt)
				created = t.ID
				return nil
			})
		s.store.EXPECT().ReplaceLines(gomock.Any(), gomock.Any(), ls).Return(nil)
		s.expectSideEffects(audit.ActionCreated)
		s.store.EXPECT().FindByID(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, id uuid.UUID) (*models.View, error) {
				s.Equal(created, id)
				return &models.View{Template: models.Template{ID: id, Name: "Basic basket"}}, nil
			})

		v, err := s.service.Create(s.ctx(), &models.CreateRequest{Name: " Basic basket ", Items: ls})
		s.Require().NoError(err)
		s.Equal("Basic basket", v.Name)
	})

	s.Run("inactive item is rejected before writing", func() {
		inactive := s.rice
		inactive.Active = false
		s.items.EXPECT().FindByIDs(gomock.Any(), gomock.Any()).Return([]itemmodels.Item{inactive}, nil)

		_, err := s.service.Create(s.ctx(), &models.CreateRequest{
			Name:  "Basic basket",
			Items: []lines.Line{{ItemID: s.rice.ID, Quantity: 1}},
		})
		s.ErrorIs(err, dErrors.New(dErrors.CodeBadRequest, "inactive items cannot be delivered: Rice"))
	})

	s.Run("short name fails validation", func() {
		_, err := s.service.Create(s.ctx(), &models.CreateRequest{
			Name:  "ab",
			Items: []lines.Line{{ItemID: s.rice.ID, Quantity: 1}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("item deleted mid-write is a bad request", func() {
		s.items.EXPECT().FindByIDs(gomock.Any(), gomock.Any()).Return([]itemmodels.Item{s.rice}, nil)
		s.expectTx()
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.store.EXPECT().ReplaceLines(gomock.Any(), gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)

		_, err := s.service.Create(s.ctx(), &models.CreateRequest{
			Name:  "Basic basket",
			Items: []lines.Line{{ItemID: s.rice.ID, Quantity: 1}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestUpdate() {
	current := &models.View{Template: models.Template{ID: uuid.New(), Name: "Basic basket", Active: true}}

	s.Run("without items keeps lines", func() {
		off := false
		s.store.EXPECT().FindByID(gomock.Any(), current.ID).Return(current, nil)
		s.expectTx()
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, t *models.Template) error {
				s.False(t.Active)
				s.Equal(s.now, t.UpdatedAt)
				return nil
			})
		s.expectSideEffects(audit.ActionUpdated)
		s.store.EXPECT().FindByID(gomock.Any(), current.ID).Return(current, nil)

		_, err := s.service.Update(s.ctx(), current.ID, &models.UpdateRequest{Active: &off})
		s.Require().NoError(err)
	})

	s.Run("items replace every line", func() {
		ls := []lines.Line{{ItemID: s.rice.ID, Quantity: 2}}
		s.store.EXPECT().FindByID(gomock.Any(), current.ID).Return(current, nil)
		s.items.EXPECT().FindByIDs(gomock.Any(), gomock.Any()).Return([]itemmodels.Item{s.rice}, nil)
		s.expectTx()
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		s.store.EXPECT().ReplaceLines(gomock.Any(), current.ID, ls).Return(nil)
		s.expectSideEffects(audit.ActionUpdated)
		s.store.EXPECT().FindByID(gomock.Any(), current.ID).Return(current, nil)

		_, err := s.service.Update(s.ctx(), current.ID, &models.UpdateRequest{Items: &ls})
		s.Require().NoError(err)
	})

	s.Run("empty items fail validation", func() {
		ls := []lines.Line{}
		_, err := s.service.Update(s.ctx(), current.ID, &models.UpdateRequest{Items: &ls})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing template", func() {
		id := uuid.New()
		s.store.EXPECT().FindByID(gomock.Any(), id).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.Update(s.ctx(), id, &models.UpdateRequest{})
		s.ErrorIs(err, errNotFound)
	})
}

func (s *ServiceSuite) TestDelete() {
	s.Run("hard deletes", func() {
		id := uuid.New()
		s.store.EXPECT().Delete(gomock.Any(), id).Return(nil)
		s.expectSideEffects(audit.ActionDeleted)

		s.NoError(s.service.Delete(s.ctx(), id))
	})

	s.Run("missing is not found", func() {
		id := uuid.New()
		s.store.EXPECT().Delete(gomock.Any(), id).Return(sentinel.ErrNotFound)

		s.True(dErrors.HasCode(s.service.Delete(s.ctx(), id), dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestListDefaultsActiveFilter() {
	p := pagination.Params{Page: 1, Limit: 20, SortBy: "name", SortOrder: "asc"}
	s.store.EXPECT().List(gomock.Any(), models.ListFilter{Search: "basic", Active: domain.ActiveAll}, p).
		Return([]models.View{}, 0, nil)

	page, err := s.service.List(s.ctx(), models.ListFilter{Search: " basic "}, p)
	s.Require().NoError(err)
	s.Equal(0, page.Pagination.Total)
}
