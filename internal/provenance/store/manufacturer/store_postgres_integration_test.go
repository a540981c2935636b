//go:build integration

package manufacturer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"provchain/internal/provenance/store/manufacturer"
	"provchain/pkg/testutil/containers"
)

type PostgresRegistrySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *manufacturer.Postgres
}

func TestPostgresRegistrySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRegistrySuite))
}

func (s *PostgresRegistrySuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = manufacturer.NewPostgres(s.postgres.DB)
}

func (s *PostgresRegistrySuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "authorized_manufacturers"))
}

func (s *PostgresRegistrySuite) TestAuthorizeIsIdempotent() {
	ctx := context.Background()

	ok, err := s.store.IsAuthorized(ctx, "0xACME")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.Authorize(ctx, "0xACME", time.Now()))
	s.Require().NoError(s.store.Authorize(ctx, "0xACME", time.Now().Add(time.Hour)))

	ok, err = s.store.IsAuthorized(ctx, "0xACME")
	s.Require().NoError(err)
	s.True(ok)
}
