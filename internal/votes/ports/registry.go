package ports

import (
	"context"

	"electiondesk/internal/votes/models"
)

// Center is the registry view the validator needs.
type Center struct {
	ID       models.CenterID
	Name     string
	District string
	Thana    string
	Active   bool
}

// Party is the registry view the validator needs. Inactive parties still resolve.
type Party struct {
	ID     models.PartyID
	Name   string
	Active bool
}

// RegistryPort resolves registry entries. Both methods return
// sentinel.ErrNotFound for unknown ids; any other error is an outage.
type RegistryPort interface {
	ResolveCenter(ctx context.Context, id models.CenterID) (*Center, error)
	ResolveParty(ctx context.Context, id models.PartyID) (*Party, error)
}
