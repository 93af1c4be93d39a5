package adapters

import (
	"context"
	"fmt"

	registrymodels "electiondesk/internal/registry/models"
	"electiondesk/internal/votes/models"
	"electiondesk/internal/votes/ports"
	dErrors "electiondesk/pkg/domain-errors"
	"electiondesk/pkg/platform/sentinel"
)

// RegistryService is the subset of the registry service the vote engine reads.
type RegistryService interface {
	GetCenter(ctx context.Context, id registrymodels.CenterID) (*registrymodels.PollingCenter, error)
	GetParty(ctx context.Context, id registrymodels.PartyID) (*registrymodels.PoliticalParty, error)
}

// RegistryAdapter is the in-process implementation of ports.RegistryPort.
type RegistryAdapter struct {
	registry RegistryService
}

func NewRegistryAdapter(registry RegistryService) *RegistryAdapter {
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) ResolveCenter(ctx context.Context, id models.CenterID) (*ports.Center, error) {
	c, err := a.registry.GetCenter(ctx, registrymodels.CenterID(id))
	if err != nil {
		return nil, toSentinel(err, "center", string(id))
	}
	return &ports.Center{
		ID:       models.CenterID(c.ID),
		Name:     c.Name,
		District: c.District,
		Thana:    c.Thana,
		Active:   c.IsActive(),
	}, nil
}

func (a *RegistryAdapter) ResolveParty(ctx context.Context, id models.PartyID) (*ports.Party, error) {
	p, err := a.registry.GetParty(ctx, registrymodels.PartyID(id))
	if err != nil {
		return nil, toSentinel(err, "party", string(id))
	}
	return &ports.Party{
		ID:     models.PartyID(p.ID),
		Name:   p.Name,
		Active: p.IsActive(),
	}, nil
}

func toSentinel(err error, kind, id string) error {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return sentinel.ErrNotFound
	}
	return fmt.Errorf("resolve %s %s: %w: %w", kind, id, sentinel.ErrUnavailable, err)
}
