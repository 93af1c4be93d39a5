package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"electiondesk/internal/registry/models"
	registrymetrics "electiondesk/internal/registry/metrics"
	"electiondesk/pkg/platform/circuit"
)

// Backend is the authoritative registry store (InMemory or Gorm).
type Backend interface {
	FindCenter(ctx context.Context, id models.CenterID) (*models.PollingCenter, error)
	FindParty(ctx context.Context, id models.PartyID) (*models.PoliticalParty, error)
	UpsertCenter(ctx context.Context, c *models.PollingCenter) error
	UpsertParty(ctx context.Context, p *models.PoliticalParty) error
	SetCenterStatus(ctx context.Context, id models.CenterID, status models.Status, now time.Time) error
	SetPartyStatus(ctx context.Context, id models.PartyID, status models.Status, now time.Time) error
	ListCenters(ctx context.Context) ([]models.PollingCenter, error)
	ListParties(ctx context.Context) ([]models.PoliticalParty, error)
}

// Cache is one lookup tier. A miss is (nil, false, nil).
type Cache interface {
	GetCenter(ctx context.Context, id models.CenterID) (*models.PollingCenter, bool, error)
	SetCenter(ctx context.Context, c *models.PollingCenter) error
	GetParty(ctx context.Context, id models.PartyID) (*models.PoliticalParty, bool, error)
	SetParty(ctx context.Context, p *models.PoliticalParty) error
	InvalidateCenter(ctx context.Context, id models.CenterID) error
	InvalidateParty(ctx context.Context, id models.PartyID) error
}

// Cached reads through a local tier, then an optional shared tier, then the backend.
// Shared tier failures are logged and bypassed; the breaker stops hammering a
// Redis that is down. Writes go to the backend and then evict both tiers.
//
// Every eviction bumps a per-key generation. A fill started before an eviction
// must not leave its value behind: it is skipped when the generation moved
// during the backend read and undone when it moved while the fill was written.
type Cached struct {
	backend Backend
	local   Cache
	shared  Cache
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *registrymetrics.Metrics

	genMu sync.Mutex
	gens  map[string]uint64
}

type CachedOption func(*Cached)

func WithSharedCache(c Cache, breaker *circuit.Breaker) CachedOption {
	return func(s *Cached) {
		s.shared = c
		s.breaker = breaker
	}
}

func WithCacheLogger(logger *slog.Logger) CachedOption {
	return func(s *Cached) {
		s.logger = logger
	}
}

func WithCacheMetrics(m *registrymetrics.Metrics) CachedOption {
	return func(s *Cached) {
		s.metrics = m
	}
}

func NewCached(backend Backend, local Cache, opts ...CachedOption) *Cached {
	s := &Cached{backend: backend, local: local, logger: slog.Default(), gens: make(map[string]uint64)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Cached) FindCenter(ctx context.Context, id models.CenterID) (*models.PollingCenter, error) {
	const kind = "center"
	start := time.Now()
	defer s.metrics.ObserveLookup(kind, start)

	if c, ok, _ := s.local.GetCenter(ctx, id); ok {
		s.metrics.IncLookup(kind, registrymetrics.SourceLocal)
		return c, nil
	}
	if s.sharedUsable() {
		c, ok, err := s.shared.GetCenter(ctx, id)
		s.recordShared(ctx, err, "center_id", string(id))
		if ok {
			_ = s.local.SetCenter(ctx, c)
			s.metrics.IncLookup(kind, registrymetrics.SourceShared)
			return c, nil
		}
	}

	gen := s.generation(centerKey(id))
	c, err := s.backend.FindCenter(ctx, id)
	if err != nil {
		s.metrics.IncLookup(kind, registrymetrics.SourceMiss)
		return nil, err
	}
	s.metrics.IncLookup(kind, registrymetrics.SourceStore)
	if s.generation(centerKey(id)) != gen {
		return c, nil
	}
	_ = s.local.SetCenter(ctx, c)
	shared := s.sharedUsable()
	if shared {
		s.recordShared(ctx, s.shared.SetCenter(ctx, c), "center_id", string(id))
	}
	if s.generation(centerKey(id)) != gen {
		s.evictCenterTiers(ctx, id, shared)
	}
	return c, nil
}

func (s *Cached) FindParty(ctx context.Context, id models.PartyID) (*models.PoliticalParty, error) {
	const kind = "party"
	start := time.Now()
	defer s.metrics.ObserveLookup(kind, start)

	if p, ok, _ := s.local.GetParty(ctx, id); ok {
		s.metrics.IncLookup(kind, registrymetrics.SourceLocal)
		return p, nil
	}
	if s.sharedUsable() {
		p, ok, err := s.shared.GetParty(ctx, id)
		s.recordShared(ctx, err, "party_id", string(id))
		if ok {
			_ = s.local.SetParty(ctx, p)
			s.metrics.IncLookup(kind, registrymetrics.SourceShared)
			return p, nil
		}
	}

	gen := s.generation(partyKey(id))
	p, err := s.backend.FindParty(ctx, id)
	if err != nil {
		s.metrics.IncLookup(kind, registrymetrics.SourceMiss)
		return nil, err
	}
	s.metrics.IncLookup(kind, registrymetrics.SourceStore)
	if s.generation(partyKey(id)) != gen {
		return p, nil
	}
	_ = s.local.SetParty(ctx, p)
	shared := s.sharedUsable()
	if shared {
		s.recordShared(ctx, s.shared.SetParty(ctx, p), "party_id", string(id))
	}
	if s.generation(partyKey(id)) != gen {
		s.evictPartyTiers(ctx, id, shared)
	}
	return p, nil
}

func (s *Cached) UpsertCenter(ctx context.Context, c *models.PollingCenter) error {
	if err := s.backend.UpsertCenter(ctx, c); err != nil {
		return err
	}
	s.evictCenter(ctx, c.ID)
	return nil
}

func (s *Cached) UpsertParty(ctx context.Context, p *models.PoliticalParty) error {
	if err := s.backend.UpsertParty(ctx, p); err != nil {
		return err
	}
	s.evictParty(ctx, p.ID)
	return nil
}

func (s *Cached) SetCenterStatus(ctx context.Context, id models.CenterID, status models.Status, now time.Time) error {
	if err := s.backend.SetCenterStatus(ctx, id, status, now); err != nil {
		return err
	}
	s.evictCenter(ctx, id)
	return nil
}

func (s *Cached) SetPartyStatus(ctx context.Context, id models.PartyID, status models.Status, now time.Time) error {
	if err := s.backend.SetPartyStatus(ctx, id, status, now); err != nil {
		return err
	}
	s.evictParty(ctx, id)
	return nil
}

// ListCenters always reads the backend.
func (s *Cached) ListCenters(ctx context.Context) ([]models.PollingCenter, error) {
	return s.backend.ListCenters(ctx)
}

// ListParties always reads the backend.
func (s *Cached) ListParties(ctx context.Context) ([]models.PoliticalParty, error) {
	return s.backend.ListParties(ctx)
}

func (s *Cached) evictCenter(ctx context.Context, id models.CenterID) {
	s.bump(centerKey(id))
	// Eviction bypasses the breaker.
	s.evictCenterTiers(ctx, id, s.shared != nil)
}

func (s *Cached) evictParty(ctx context.Context, id models.PartyID) {
	s.bump(partyKey(id))
	s.evictPartyTiers(ctx, id, s.shared != nil)
}

func (s *Cached) evictCenterTiers(ctx context.Context, id models.CenterID, shared bool) {
	_ = s.local.InvalidateCenter(ctx, id)
	if shared {
		s.recordShared(ctx, s.shared.InvalidateCenter(ctx, id), "center_id", string(id))
	}
}

func (s *Cached) evictPartyTiers(ctx context.Context, id models.PartyID, shared bool) {
	_ = s.local.InvalidateParty(ctx, id)
	if shared {
		s.recordShared(ctx, s.shared.InvalidateParty(ctx, id), "party_id", string(id))
	}
}

func (s *Cached) generation(key string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[key]
}

func (s *Cached) bump(key string) {
	s.genMu.Lock()
	s.gens[key]++
	s.genMu.Unlock()
}

func (s *Cached) sharedUsable() bool {
	if s.shared == nil {
		return false
	}
	return s.breaker == nil || s.breaker.Allow()
}

func (s *Cached) recordShared(ctx context.Context, err error, key, id string) {
	if s.breaker == nil {
		if err != nil {
			s.metrics.IncSharedCacheError()
			s.logger.WarnContext(ctx, "shared registry cache error", key, id, "error", err)
		}
		return
	}
	if err == nil {
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.metrics.SetBreakerState(false)
			s.logger.InfoContext(ctx, "shared registry cache recovered", "breaker", s.breaker.Name())
		}
		return
	}
	s.metrics.IncSharedCacheError()
	s.logger.WarnContext(ctx, "shared registry cache error", key, id, "error", err)
	if _, change := s.breaker.RecordFailure(); change.Opened {
		s.metrics.SetBreakerState(true)
		s.logger.WarnContext(ctx, "shared registry cache circuit opened", "breaker", s.breaker.Name())
	}
}
