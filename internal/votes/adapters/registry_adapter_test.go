package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electiondesk/internal/registry/service"
	"electiondesk/internal/registry/store"
	"electiondesk/pkg/platform/sentinel"
)

func TestRegistryAdapter(t *testing.T) {
	ctx := context.Background()
	registry := service.New(store.NewInMemory())
	_, err := registry.UpsertCenter(ctx, "seed", service.CenterInput{ID: "PC-001", District: "Dhaka", Thana: "Mirpur", Name: "Mirpur School", Voters: 1000})
	require.NoError(t, err)
	_, err = registry.UpsertParty(ctx, "seed", service.PartyInput{ID: "A", Name: "Party A", Status: "inactive"})
	require.NoError(t, err)

	a := NewRegistryAdapter(registry)

	c, err := a.ResolveCenter(ctx, "PC-001")
	require.NoError(t, err)
	assert.Equal(t, "Mirpur", c.Thana)
	assert.True(t, c.Active)

	p, err := a.ResolveParty(ctx, "A")
	require.NoError(t, err)
	assert.False(t, p.Active)

	_, err = a.ResolveCenter(ctx, "PC-404")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
