//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"encantar/internal/beneficiary/models"
	"encantar/pkg/domain"
	"encantar/pkg/pagination"
	"encantar/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
}

func TestPostgresSuite(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = New(s.pg.DB)
}

func (s *PostgresSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(context.Background()))
}

func (s *PostgresSuite) create(name, address string, active bool) *models.Beneficiary {
	b, err := models.NewBeneficiary(uuid.New(), name, address, time.Now().UTC().Truncate(time.Microsecond), uuid.Nil)
	s.Require().NoError(err)
	b.Active = active
	s.Require().NoError(s.store.Create(context.Background(), b))
	return b
}

func (s *PostgresSuite) TestDuplicateCheckIgnoresCaseAndSelf() {
	ctx := context.Background()
	b := s.create("Ana Souza", "Rua das Flores, 10", true)

	exists, err := s.store.ExistsByNameAndAddress(ctx, " ana souza", "RUA DAS FLORES, 10 ", uuid.Nil)
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.store.ExistsByNameAndAddress(ctx, "Ana Souza", "Rua das Flores, 10", b.ID)
	s.Require().NoError(err)
	s.False(exists)
}

func (s *PostgresSuite) TestListFiltersAndPages() {
	ctx := context.Background()
	s.create("Ana Souza", "Rua A, 100", true)
	s.create("Bruno Lima", "Rua B, 200", true)
	s.create("Carla Dias", "Rua C, 300", false)

	p := pagination.Params{Page: 1, Limit: 1, SortBy: "name", SortOrder: "asc"}
	rows, total, err := s.store.List(ctx, models.ListFilter{Active: domain.ActiveOnly}, p)
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Require().Len(rows, 1)
	s.Equal("Ana Souza", rows[0].Name)

	rows, total, err = s.store.List(ctx, models.ListFilter{Search: "100%", Active: domain.ActiveAll}, p)
	s.Require().NoError(err)
	s.Equal(0, total)
	s.Empty(rows)
}

func (s *PostgresSuite) TestSearchAndActiveSkipInactive() {
	ctx := context.Background()
	s.create("Ana Souza", "Rua A, 100", true)
	s.create("Ana Paula", "Rua B, 200", false)

	found, err := s.store.Search(ctx, "ana", 10)
	s.Require().NoError(err)
	s.Len(found, 1)

	active, err := s.store.ListActive(ctx)
	s.Require().NoError(err)
	s.Len(active, 1)
}
