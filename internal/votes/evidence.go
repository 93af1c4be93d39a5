package votes

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"electiondesk/internal/votes/models"
	"electiondesk/internal/votes/ports"
	"electiondesk/pkg/platform/sentinel"
	platformstrings "electiondesk/pkg/platform/strings"
)

const maxParallelLookups = 8

// GatherRegistryEvidence resolves the draft's center and every distinct breakdown
// party in parallel. Unknown ids are recorded as absent; any other lookup
// failure aborts the gathering and is returned.
func GatherRegistryEvidence(ctx context.Context, registry ports.RegistryPort, d models.Draft) (RegistryEvidence, error) {
	ev := RegistryEvidence{Parties: make(map[models.PartyID]*ports.Party, len(d.Breakdown))}

	partyIDs := make([]models.PartyID, 0, len(d.Breakdown))
	for _, pv := range d.Breakdown {
		partyIDs = append(partyIDs, pv.PartyID)
	}
	partyIDs = platformstrings.DedupeIDs(partyIDs)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLookups)

	if centerID := models.CenterID(strings.TrimSpace(string(d.CenterID))); centerID != "" {
		g.Go(func() error {
			c, err := registry.ResolveCenter(gctx, centerID)
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			ev.Center = c
			mu.Unlock()
			return nil
		})
	}
	for _, id := range partyIDs {
		g.Go(func() error {
			p, err := registry.ResolveParty(gctx, id)
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			ev.Parties[id] = p
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return RegistryEvidence{}, err
	}
	return ev, nil
}
