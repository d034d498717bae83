package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
)

type TxSuite struct {
	suite.Suite
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func TestTxSuite(t *testing.T) {
	suite.Run(t, new(TxSuite))
}

func (s *TxSuite) SetupTest() {
	raw, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db = sqlx.NewDb(raw, "postgres")
	s.mock = mock
}

func (s *TxSuite) TearDownTest() {
	s.Require().NoError(s.mock.ExpectationsWereMet())
	_ = s.db.Close()
}

func (s *TxSuite) TestRunInTx() {
	s.Run("commits on success", func() {
		s.mock.ExpectBegin()
		s.mock.ExpectExec("UPDATE items").WillReturnResult(sqlmock.NewResult(0, 1))
		s.mock.ExpectCommit()

		err := RunInTx(context.Background(), s.db, func(ctx context.Context) error {
			_, ok := From(ctx)
			s.True(ok)
			_, err := Executor(ctx, s.db).ExecContext(ctx, "UPDATE items SET active = true")
			return err
		})
		s.Require().NoError(err)
	})

	s.Run("rolls back on error", func() {
		s.mock.ExpectBegin()
		s.mock.ExpectRollback()

		boom := errors.New("boom")
		err := RunInTx(context.Background(), s.db, func(ctx context.Context) error {
			return boom
		})
		s.Require().ErrorIs(err, boom)
	})

	s.Run("nested call reuses outer transaction", func() {
		s.mock.ExpectBegin()
		s.mock.ExpectCommit()

		err := RunInTx(context.Background(), s.db, func(ctx context.Context) error {
			outer, _ := From(ctx)
			return RunInTx(ctx, s.db, func(inner context.Context) error {
				got, _ := From(inner)
				s.Same(outer, got)
				return nil
			})
		})
		s.Require().NoError(err)
	})
}

func (s *TxSuite) TestExecutorWithoutTx() {
	s.Same(s.db, Executor(context.Background(), s.db))
}

func (s *TxSuite) TestRunner() {
	s.mock.ExpectBegin()
	s.mock.ExpectCommit()

	called := false
	err := NewRunner(s.db).RunInTx(context.Background(), func(ctx context.Context) error {
		_, called = From(ctx)
		return nil
	})
	s.Require().NoError(err)
	s.True(called)
}

func (s *TxSuite) TestConcurrent() {
	s.Run("runs every query on the pool", func() {
		s.mock.MatchExpectationsInOrder(false)
		s.mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
		s.mock.ExpectQuery("SELECT 2").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))

		var a, b int
		err := Concurrent(context.Background(), s.db,
			func(ctx context.Context, exec sqlx.ExtContext) error {
				s.Same(s.db, exec)
				return sqlx.GetContext(ctx, exec, &a, "SELECT 1")
			},
			func(ctx context.Context, exec sqlx.ExtContext) error {
				return sqlx.GetContext(ctx, exec, &b, "SELECT 2")
			},
		)
		s.Require().NoError(err)
		s.Equal(1, a)
		s.Equal(2, b)
	})

	s.Run("inside a transaction runs in order and stops at the first error", func() {
		s.mock.MatchExpectationsInOrder(true)
		s.mock.ExpectBegin()
		s.mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("connection reset"))
		s.mock.ExpectRollback()

		second := false
		err := RunInTx(context.Background(), s.db, func(ctx context.Context) error {
			t, _ := From(ctx)
			return Concurrent(ctx, s.db,
				func(ctx context.Context, exec sqlx.ExtContext) error {
					s.Same(t, exec)
					var n int
					return sqlx.GetContext(ctx, exec, &n, "SELECT COUNT(*) FROM items")
				},
				func(context.Context, sqlx.ExtContext) error {
					second = true
					return nil
				},
			)
		})
		s.ErrorContains(err, "connection reset")
		s.False(second)
	})
}
