package store

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"electiondesk/internal/registry/models"
)

// LocalCache is the per-process tier. Entries expire after the configured TTL so
// edits made by other instances are picked up within that window.
type LocalCache struct {
	c *gocache.Cache
}

func NewLocalCache(ttl time.Duration) *LocalCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LocalCache{c: gocache.New(ttl, 2*ttl)}
}

func (l *LocalCache) GetCenter(_ context.Context, id models.CenterID) (*models.PollingCenter, bool, error) {
	v, ok := l.c.Get(centerKey(id))
	if !ok {
		return nil, false, nil
	}
	c := v.(models.PollingCenter)
	return &c, true, nil
}

func (l *LocalCache) SetCenter(_ context.Context, c *models.PollingCenter) error {
	l.c.SetDefault(centerKey(c.ID), *c)
	return nil
}

func (l *LocalCache) GetParty(_ context.Context, id models.PartyID) (*models.PoliticalParty, bool, error) {
	v, ok := l.c.Get(partyKey(id))
	if !ok {
		return nil, false, nil
	}
	p := v.(models.PoliticalParty)
	return &p, true, nil
}

func (l *LocalCache) SetParty(_ context.Context, p *models.PoliticalParty) error {
	l.c.SetDefault(partyKey(p.ID), *p)
	return nil
}

func (l *LocalCache) InvalidateCenter(_ context.Context, id models.CenterID) error {
	l.c.Delete(centerKey(id))
	return nil
}

func (l *LocalCache) InvalidateParty(_ context.Context, id models.PartyID) error {
	l.c.Delete(partyKey(id))
	return nil
}
