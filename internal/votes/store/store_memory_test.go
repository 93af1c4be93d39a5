package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"electiondesk/internal/votes/models"
	"electiondesk/pkg/platform/sentinel"
)

type InMemoryVoteStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemoryVoteStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryVoteStoreSuite))
}

func (s *InMemoryVoteStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 1, 7, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryVoteStoreSuite) newRecord(center models.CenterID, at time.Time) *models.VoteRecord {
	return &models.VoteRecord{
		ID:          models.NewRecordID(),
		CenterID:    center,
		TotalVotes:  800,
		TotalVoters: 1000,
		Submitter:   models.Identity{ID: "u-1", Name: "Officer One", Role: models.RoleOfficer},
		Breakdown:   []models.PartyVotes{{PartyID: "A", PartyName: "Party A", Votes: 500}},
		SubmittedAt: at,
		Status:      models.StatusSubmitted,
	}
}

func (s *InMemoryVoteStoreSuite) TestCreateAndFind() {
	s.Run("returns an isolated copy", func() {
		r := s.newRecord("PC-001", s.now)
		s.Require().NoError(s.store.Create(s.ctx, r))

		r.Breakdown[0].Votes = 1
		found, err := s.store.FindByID(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(int64(500), found.Breakdown[0].Votes)

		found.Breakdown[0].Votes = 2
		again, err := s.store.FindByID(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(int64(500), again.Breakdown[0].Votes)
	})

	s.Run("rejects a duplicate id", func() {
		r := s.newRecord("PC-001", s.now)
		s.Require().NoError(s.store.Create(s.ctx, r))
		s.ErrorIs(s.store.Create(s.ctx, r), sentinel.ErrConflict)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.FindByID(s.ctx, models.NewRecordID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryVoteStoreSuite) TestListingOrder() {
	later := s.newRecord("PC-001", s.now.Add(time.Minute))
	first := s.newRecord("PC-001", s.now)
	tieA := s.newRecord("PC-001", s.now.Add(2*time.Minute))
	tieB := s.newRecord("PC-001", s.now.Add(2*time.Minute))
	other := s.newRecord("PC-002", s.now)
	for _, r := range []*models.VoteRecord{later, first, tieA, tieB, other} {
		s.Require().NoError(s.store.Create(s.ctx, r))
	}

	s.Run("by center orders by submission time then insertion", func() {
		list, err := s.store.ListByCenter(s.ctx, "PC-001")
		s.Require().NoError(err)
		s.Require().Len(list, 4)
		s.Equal([]models.RecordID{first.ID, later.ID, tieA.ID, tieB.ID},
			[]models.RecordID{list[0].ID, list[1].ID, list[2].ID, list[3].ID})
	})

	s.Run("by status filters", func() {
		_, err := s.store.Execute(s.ctx, other.ID,
			func(*models.VoteRecord) error { return nil },
			func(r *models.VoteRecord) { r.Status = models.StatusVerified })
		s.Require().NoError(err)

		verified, err := s.store.ListByStatus(s.ctx, models.StatusVerified)
		s.Require().NoError(err)
		s.Require().Len(verified, 1)
		s.Equal(other.ID, verified[0].ID)

		all, err := s.store.ListByStatus(s.ctx)
		s.Require().NoError(err)
		s.Len(all, 5)
	})

	s.Run("unknown center is empty", func() {
		list, err := s.store.ListByCenter(s.ctx, "PC-404")
		s.Require().NoError(err)
		s.Empty(list)
	})
}

func (s *InMemoryVoteStoreSuite) TestExecute() {
	s.Run("validate error leaves the record unchanged", func() {
		r := s.newRecord("PC-001", s.now)
		s.Require().NoError(s.store.Create(s.ctx, r))
		boom := errors.New("boom")

		_, err := s.store.Execute(s.ctx, r.ID,
			func(*models.VoteRecord) error { return boom },
			func(v *models.VoteRecord) { v.Status = models.StatusVerified })
		s.ErrorIs(err, boom)

		found, err := s.store.FindByID(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusSubmitted, found.Status)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.Execute(s.ctx, models.NewRecordID(),
			func(*models.VoteRecord) error { return nil },
			func(*models.VoteRecord) {})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("concurrent transitions apply exactly once", func() {
		r := s.newRecord("PC-001", s.now)
		s.Require().NoError(s.store.Create(s.ctx, r))
		errClosed := errors.New("closed")

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				target := models.StatusVerified
				if i%2 == 0 {
					target = models.StatusRejected
				}
				_, err := s.store.Execute(s.ctx, r.ID,
					func(v *models.VoteRecord) error {
						if v.Status != models.StatusSubmitted {
							return errClosed
						}
						return nil
					},
					func(v *models.VoteRecord) { v.Status = target })
				if err == nil {
					wins.Add(1)
				}
			}(i)
		}
		wg.Wait()
		s.Equal(int32(1), wins.Load())
	})
}

func (s *InMemoryVoteStoreSuite) TestShardForIsStableAndSpreads() {
	used := make(map[int]bool)
	for range 512 {
		id := models.NewRecordID()
		shard := shardFor(id)
		s.Equal(shard, shardFor(id))
		s.GreaterOrEqual(shard, 0)
		s.Less(shard, numRecordShards)
		used[shard] = true
	}
	s.Greater(len(used), numRecordShards/2, "random ids should land on most shards")
}
