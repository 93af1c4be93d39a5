//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"electiondesk/internal/platform/postgres"
	"electiondesk/internal/registry/models"
	"electiondesk/internal/registry/store"
	"electiondesk/pkg/platform/sentinel"
	"electiondesk/pkg/testutil/containers"
)

type GormStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Gorm
}

func TestGormStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(GormStoreSuite))
}

func (s *GormStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	gdb, err := postgres.Gorm(s.postgres.DB)
	s.Require().NoError(err)
	s.store = store.NewGorm(gdb)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *GormStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "polling_centers", "political_parties"))
}

func (s *GormStoreSuite) TestUpsertIsIdempotentAndUpdates() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	c := &models.PollingCenter{ID: "PC-001", District: "Dhaka", Thana: "Mirpur", Name: "Old name", Voters: 900, Status: models.StatusActive, UpdatedAt: now}
	s.Require().NoError(s.store.UpsertCenter(ctx, c))

	c.Name = "Mirpur Govt. School"
	c.Voters = 1000
	s.Require().NoError(s.store.UpsertCenter(ctx, c))

	found, err := s.store.FindCenter(ctx, "PC-001")
	s.Require().NoError(err)
	s.Equal("Mirpur Govt. School", found.Name)
	s.Equal(int64(1000), found.Voters)

	all, err := s.store.ListCenters(ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *GormStoreSuite) TestStatusAndNotFound() {
	ctx := context.Background()
	s.Require().NoError(s.store.UpsertParty(ctx, &models.PoliticalParty{ID: "A", Name: "Party A", Status: models.StatusActive, UpdatedAt: time.Now()}))

	s.Require().NoError(s.store.SetPartyStatus(ctx, "A", models.StatusInactive, time.Now()))
	p, err := s.store.FindParty(ctx, "A")
	s.Require().NoError(err)
	s.Equal(models.StatusInactive, p.Status)

	_, err = s.store.FindParty(ctx, "Z")
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.SetCenterStatus(ctx, "PC-404", models.StatusInactive, time.Now()), sentinel.ErrNotFound)
}
