//go:build integration

package product_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"provchain/internal/provenance/models"
	"provchain/internal/provenance/store/product"
	id "provchain/pkg/domain"
	"provchain/pkg/platform/sentinel"
	"provchain/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *product.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = product.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "transfers", "products"))
}

func (s *PostgresStoreSuite) newProduct(owner id.Principal) *models.Product {
	p, err := models.NewProduct(id.NewProductID(), "Beans", "Acme", "2026-03-01", "B-1", owner, time.Now())
	s.Require().NoError(err)
	return p
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	p := s.newProduct("0xACME")

	s.Require().NoError(s.store.Create(ctx, p))

	got, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
	s.Equal(p.Name, got.Name)
	s.Equal(id.Principal("0xACME"), got.CurrentOwner)
	s.True(got.IsActive)
	// Epoch-second storage truncates sub-second precision.
	s.Equal(p.RegisteredAt.Truncate(time.Second), got.RegisteredAt)
}

func (s *PostgresStoreSuite) TestCreateDuplicate() {
	ctx := context.Background()
	p := s.newProduct("0xACME")

	s.Require().NoError(s.store.Create(ctx, p))
	s.ErrorIs(s.store.Create(ctx, p), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(context.Background(), id.NewProductID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateOwnerCompareAndSet() {
	ctx := context.Background()
	p := s.newProduct("0xACME")
	s.Require().NoError(s.store.Create(ctx, p))

	s.Require().NoError(s.store.UpdateOwner(ctx, p.ID, "0xDIST", "0xACME"))

	got, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(id.Principal("0xDIST"), got.CurrentOwner)

	s.ErrorIs(s.store.UpdateOwner(ctx, p.ID, "0xRETAIL", "0xACME"), sentinel.ErrInvalidState)
	s.ErrorIs(s.store.UpdateOwner(ctx, id.NewProductID(), "0xDIST", "0xACME"), sentinel.ErrNotFound)
}
