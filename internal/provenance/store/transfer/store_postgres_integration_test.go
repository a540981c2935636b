//go:build integration

package transfer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"provchain/internal/provenance/models"
	"provchain/internal/provenance/store/product"
	"provchain/internal/provenance/store/transfer"
	id "provchain/pkg/domain"
	"provchain/pkg/platform/sentinel"
	"provchain/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *transfer.Postgres
	products *product.Postgres
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = transfer.NewPostgres(s.postgres.DB)
	s.products = product.NewPostgres(s.postgres.DB)
}

func (s *PostgresLedgerSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "transfers", "products"))
}

// seedProduct satisfies the ledger's foreign key.
func (s *PostgresLedgerSuite) seedProduct(owner id.Principal) id.ProductID {
	p, err := models.NewProduct(id.NewProductID(), "Beans", "Acme", "2026-03-01", "B-1", owner, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.products.Create(context.Background(), p))
	return p.ID
}

func (s *PostgresLedgerSuite) newTransfer(productID id.ProductID, from, to id.Principal) *models.Transfer {
	t, err := models.NewTransfer(productID, from, to, "Rotterdam", "pallet 7", time.Now())
	s.Require().NoError(err)
	return t
}

func (s *PostgresLedgerSuite) TestAppendAssignsSequence() {
	ctx := context.Background()
	productID := s.seedProduct("0xACME")

	seq, err := s.store.Append(ctx, s.newTransfer(productID, "0xACME", "0xDIST"))
	s.Require().NoError(err)
	s.Equal(0, seq)

	seq, err = s.store.Append(ctx, s.newTransfer(productID, "0xDIST", "0xRETAIL"))
	s.Require().NoError(err)
	s.Equal(1, seq)

	other := s.seedProduct("0xACME")
	seq, err = s.store.Append(ctx, s.newTransfer(other, "0xACME", "0xDIST"))
	s.Require().NoError(err)
	s.Equal(0, seq)
}

func (s *PostgresLedgerSuite) TestCountGetAndList() {
	ctx := context.Background()
	productID := s.seedProduct("0xACME")

	count, err := s.store.Count(ctx, productID)
	s.Require().NoError(err)
	s.Equal(0, count)

	_, err = s.store.Append(ctx, s.newTransfer(productID, "0xACME", "0xDIST"))
	s.Require().NoError(err)
	_, err = s.store.Append(ctx, s.newTransfer(productID, "0xDIST", "0xRETAIL"))
	s.Require().NoError(err)

	count, err = s.store.Count(ctx, productID)
	s.Require().NoError(err)
	s.Equal(2, count)

	got, err := s.store.Get(ctx, productID, 1)
	s.Require().NoError(err)
	s.Equal(id.Principal("0xRETAIL"), got.To)
	s.Equal("Rotterdam", got.Location)

	_, err = s.store.Get(ctx, productID, 2)
	s.ErrorIs(err, sentinel.ErrNotFound)

	list, err := s.store.ListByProduct(ctx, productID)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(list[0].To, list[1].From)
}

func (s *PostgresLedgerSuite) TestLedgerRejectsMutation() {
	ctx := context.Background()
	productID := s.seedProduct("0xACME")

	_, err := s.store.Append(ctx, s.newTransfer(productID, "0xACME", "0xDIST"))
	s.Require().NoError(err)

	// The schema trigger makes the ledger append-only even for raw SQL.
	_, err = s.postgres.DB.ExecContext(ctx, `UPDATE transfers SET to_owner = '0xEVIL'`)
	s.Error(err)
	_, err = s.postgres.DB.ExecContext(ctx, `DELETE FROM transfers`)
	s.Error(err)
}
