// Package store holds the registry persistence adapters and the two-tier lookup cache.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"electiondesk/internal/registry/models"
	"electiondesk/pkg/platform/sentinel"
)

// InMemory is the registry store used in tests and when no database is configured.
// Returned values are copies; callers cannot mutate stored entries.
type InMemory struct {
	mu      sync.RWMutex
	centers map[models.CenterID]models.PollingCenter
	parties map[models.PartyID]models.PoliticalParty
}

func NewInMemory() *InMemory {
	return &InMemory{
		centers: make(map[models.CenterID]models.PollingCenter),
		parties: make(map[models.PartyID]models.PoliticalParty),
	}
}

func (s *InMemory) FindCenter(_ context.Context, id models.CenterID) (*models.PollingCenter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.centers[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemory) FindParty(_ context.Context, id models.PartyID) (*models.PoliticalParty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parties[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *InMemory) UpsertCenter(_ context.Context, c *models.PollingCenter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.centers[c.ID] = *c
	return nil
}

func (s *InMemory) UpsertParty(_ context.Context, p *models.PoliticalParty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parties[p.ID] = *p
	return nil
}

func (s *InMemory) SetCenterStatus(_ context.Context, id models.CenterID, status models.Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.centers[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = now
	s.centers[id] = c
	return nil
}

func (s *InMemory) SetPartyStatus(_ context.Context, id models.PartyID, status models.Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = now
	s.parties[id] = p
	return nil
}

// ListCenters returns centers ordered by ID.
func (s *InMemory) ListCenters(_ context.Context) ([]models.PollingCenter, error) {
	s.mu.RLock()
	out := make([]models.PollingCenter, 0, len(s.centers))
	for _, c := range s.centers {
		out = append(out, c)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListParties returns parties ordered by ID.
func (s *InMemory) ListParties(_ context.Context) ([]models.PoliticalParty, error) {
	s.mu.RLock()
	out := make([]models.PoliticalParty, 0, len(s.parties))
	for _, p := range s.parties {
		out = append(out, p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
