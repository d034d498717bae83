package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deliverymodels "encantar/internal/delivery/models"
)

func newStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return New(sqlx.NewDb(raw, "postgres")), mock
}

func TestTotals(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("(SELECT COUNT(*) FROM beneficiaries WHERE active) AS beneficiaries")).
		WillReturnRows(sqlmock.NewRows([]string{"beneficiaries", "items", "routes", "deliveries"}).AddRow(12, 30, 3, 41))

	got, err := s.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, got.Beneficiaries)
	assert.Equal(t, 41, got.Deliveries)
}

func TestRecentDeliveries(t *testing.T) {
	s, mock := newStore(t)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY d.created_at DESC")).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "beneficiary_name", "route_name", "status", "created_at"}).
			AddRow(uuid.New(), "Ana", "North", "PENDING", now))

	got, err := s.RecentDeliveries(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, deliverymodels.StatusPending, got[0].Status)
	assert.Equal(t, "North", got[0].RouteName)
}
