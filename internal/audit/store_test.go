package audit

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
)

type PostgresStoreSuite struct {
	suite.Suite
	mock  sqlmock.Sqlmock
	store *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupTest() {
	raw, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.mock = mock
	s.store = NewPostgresStore(sqlx.NewDb(raw, "postgres"))
	s.T().Cleanup(func() { _ = raw.Close() })
}

func (s *PostgresStoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *PostgresStoreSuite) TestAppend() {
	event := Event{
		ID:        uuid.New(),
		Action:    ActionCreated,
		Entity:    EntityItem,
		EntityID:  uuid.NewString(),
		RequestID: "req-1",
		ClientIP:  "203.0.113.7",
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Details:   map[string]any{"name": "Rice"},
	}

	s.Run("writes the event with JSON details", func() {
		s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
			WithArgs(event.ID, "created", "item", event.EntityID, nil, "req-1", "203.0.113.7", "", []byte(`{"name":"Rice"}`), event.Timestamp).
			WillReturnResult(sqlmock.NewResult(0, 1))

		s.Require().NoError(s.store.Append(context.Background(), event))
	})

	s.Run("wraps driver errors", func() {
		s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
			WillReturnError(errors.New("connection reset"))

		err := s.store.Append(context.Background(), event)
		s.Require().Error(err)
		s.Contains(err.Error(), "insert audit event")
	})
}

func (s *PostgresStoreSuite) TestDeleteBefore() {
	cutoff := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM audit_events WHERE created_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 42))

	n, err := s.store.DeleteBefore(context.Background(), cutoff)
	s.Require().NoError(err)
	s.Equal(int64(42), n)
}
