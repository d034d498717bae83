package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	deliverymodels "encantar/internal/delivery/models"
	"encantar/internal/route/models"
	"encantar/pkg/dateutil"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/sentinel"
)

type StoreSuite struct {
	suite.Suite
	mock  sqlmock.Sqlmock
	store *PostgresStore
	now   time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	raw, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = raw.Close() })
	mock.MatchExpectationsInOrder(false)
	s.mock = mock
	s.store = New(sqlx.NewDb(raw, "postgres"))
	s.now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

var routeColumns = []string{"id", "name", "description", "service_date", "notes",
	"created_at", "updated_at", "created_by_id", "updated_by_id", "delivery_count"}

func (s *StoreSuite) TestList() {
	id := uuid.New()
	from := dateutil.NewDate(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	p := pagination.Params{Page: 1, Limit: 500, SortBy: "service_date", SortOrder: "desc"}

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM routes r WHERE r.service_date >= $1")).
		WithArgs("2025-03-01").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	s.mock.ExpectQuery(regexp.QuoteMeta("ORDER BY r.service_date DESC NULLS LAST LIMIT $2 OFFSET $3")).
		WithArgs("2025-03-01", 500, 0).
		WillReturnRows(sqlmock.NewRows(routeColumns).
			AddRow(id, "North", nil, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), nil, s.now, s.now, nil, nil, 4))

	rows, total, err := s.store.List(context.Background(), models.ListFilter{ServiceDateFrom: &from}, p)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(rows, 1)
	s.Equal(4, rows[0].DeliveryCount)
	s.Equal("2025-03-05", rows[0].ServiceDate.String())
}

func (s *StoreSuite) TestDeliveries() {
	routeID, d1, d2, rice := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	s.mock.ExpectQuery(regexp.QuoteMeta("FROM deliveries d")).WithArgs(routeID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "notes", "created_at",
			"beneficiary.id", "beneficiary.name", "beneficiary.address", "beneficiary.phone"}).
			AddRow(d1, "PENDING", nil, s.now, uuid.New(), "Ana", "Rua A, 1", "11987654321").
			AddRow(d2, "COMPLETED", "ring twice", s.now, uuid.New(), "Bia", "Rua B, 2", nil))
	s.mock.ExpectQuery(regexp.QuoteMeta("WHERE di.delivery_id IN ($1, $2)")).WithArgs(d1, d2).
		WillReturnRows(sqlmock.NewRows([]string{"delivery_id", "item_id", "name", "unit", "quantity"}).
			AddRow(d1, rice, "Rice", "KG", 2))

	out, err := s.store.Deliveries(context.Background(), routeID)
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.Equal("Ana", out[0].Beneficiary.Name)
	s.Equal(deliverymodels.StatusCompleted, out[1].Status)
	s.Require().Len(out[0].Items, 1)
	s.Equal(2, out[0].Items[0].Quantity)
	s.NotNil(out[1].Items)
	s.Empty(out[1].Items)
}

func (s *StoreSuite) TestDeliveriesEmptyRouteSkipsLines() {
	routeID := uuid.New()
	s.mock.ExpectQuery(regexp.QuoteMeta("FROM deliveries d")).WithArgs(routeID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	out, err := s.store.Deliveries(context.Background(), routeID)
	s.Require().NoError(err)
	s.Empty(out)
}

func (s *StoreSuite) TestDelete() {
	s.Run("referenced route conflicts", func() {
		id := uuid.New()
		s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM routes")).WithArgs(id).
			WillReturnError(&pq.Error{Code: "23503"})
		s.ErrorIs(s.store.Delete(context.Background(), id), sentinel.ErrConflict)
	})

	s.Run("missing route", func() {
		id := uuid.New()
		s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM routes")).WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))
		s.ErrorIs(s.store.Delete(context.Background(), id), sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestUpdateDeliveryStatus() {
	s.Run("reports affected rows", func() {
		routeID := uuid.New()
		s.mock.ExpectExec(regexp.QuoteMeta("UPDATE deliveries SET status = $1")).
			WithArgs("CANCELLED", s.now, nil, routeID).
			WillReturnResult(sqlmock.NewResult(0, 5))

		n, err := s.store.UpdateDeliveryStatus(context.Background(), routeID, deliverymodels.StatusCancelled, s.now, nil)
		s.Require().NoError(err)
		s.Equal(5, n)
	})

	s.Run("wraps driver errors", func() {
		s.mock.ExpectExec(regexp.QuoteMeta("UPDATE deliveries SET status")).WillReturnError(errors.New("boom"))
		_, err := s.store.UpdateDeliveryStatus(context.Background(), uuid.New(), deliverymodels.StatusPending, s.now, nil)
		s.ErrorContains(err, "update route delivery status")
	})
}
