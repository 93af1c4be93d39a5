package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"electiondesk/internal/registry/models"
	dErrors "electiondesk/pkg/domain-errors"
	"electiondesk/pkg/platform/audit"
	"electiondesk/pkg/platform/sentinel"
	"electiondesk/pkg/requestcontext"
)

// Store is the registry persistence (usually store.Cached over InMemory or Gorm).
type Store interface {
	FindCenter(ctx context.Context, id models.CenterID) (*models.PollingCenter, error)
	FindParty(ctx context.Context, id models.PartyID) (*models.PoliticalParty, error)
	UpsertCenter(ctx context.Context, c *models.PollingCenter) error
	UpsertParty(ctx context.Context, p *models.PoliticalParty) error
	SetCenterStatus(ctx context.Context, id models.CenterID, status models.Status, now time.Time) error
	SetPartyStatus(ctx context.Context, id models.PartyID, status models.Status, now time.Time) error
	ListCenters(ctx context.Context) ([]models.PollingCenter, error)
	ListParties(ctx context.Context) ([]models.PoliticalParty, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service resolves registry entries for the vote engine and applies
// administrative edits.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CenterInput is an administrative create-or-replace of a polling center.
type CenterInput struct {
	ID       models.CenterID `json:"id"`
	District string          `json:"district"`
	Thana    string          `json:"thana"`
	Name     string          `json:"name"`
	Voters   int64           `json:"voters"`
	Status   models.Status   `json:"status,omitempty"`
}

// PartyInput is an administrative create-or-replace of a party.
type PartyInput struct {
	ID     models.PartyID `json:"id"`
	Name   string         `json:"name"`
	Symbol string         `json:"symbol,omitempty"`
	Status models.Status  `json:"status,omitempty"`
}

// GetCenter returns not_found for unknown ids and storage_unavailable for store failures.
func (s *Service) GetCenter(ctx context.Context, id models.CenterID) (*models.PollingCenter, error) {
	c, err := s.store.FindCenter(ctx, id)
	if err != nil {
		return nil, translate(err, "polling center not found", "failed to load polling center")
	}
	return c, nil
}

func (s *Service) GetParty(ctx context.Context, id models.PartyID) (*models.PoliticalParty, error) {
	p, err := s.store.FindParty(ctx, id)
	if err != nil {
		return nil, translate(err, "party not found", "failed to load party")
	}
	return p, nil
}

func (s *Service) ListCenters(ctx context.Context) ([]models.PollingCenter, error) {
	out, err := s.store.ListCenters(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to list polling centers")
	}
	return out, nil
}

func (s *Service) ListParties(ctx context.Context) ([]models.PoliticalParty, error) {
	out, err := s.store.ListParties(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to list parties")
	}
	return out, nil
}

func (s *Service) UpsertCenter(ctx context.Context, actorID string, in CenterInput) (*models.PollingCenter, error) {
	c, err := models.NewPollingCenter(in.ID, in.District, in.Thana, in.Name, in.Voters, in.Status, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertCenter(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to save polling center")
	}
	s.logger.InfoContext(ctx, "polling center upserted",
		"center_id", string(c.ID),
		"status", string(c.Status),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{Action: audit.ActionCenterUpserted, ActorID: actorID, RecordID: string(c.ID), CenterID: string(c.ID)})
	return c, nil
}

func (s *Service) UpsertParty(ctx context.Context, actorID string, in PartyInput) (*models.PoliticalParty, error) {
	p, err := models.NewPoliticalParty(in.ID, in.Name, in.Symbol, in.Status, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertParty(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to save party")
	}
	s.logger.InfoContext(ctx, "party upserted",
		"party_id", string(p.ID),
		"status", string(p.Status),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{Action: audit.ActionPartyUpserted, ActorID: actorID, RecordID: string(p.ID)})
	return p, nil
}

func (s *Service) SetCenterStatus(ctx context.Context, actorID string, id models.CenterID, status models.Status) error {
	if !status.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "status must be active or inactive")
	}
	if err := s.store.SetCenterStatus(ctx, id, status, requestcontext.Now(ctx)); err != nil {
		return translate(err, "polling center not found", "failed to update polling center")
	}
	s.emit(ctx, audit.Event{Action: audit.ActionStatusChanged, ActorID: actorID, RecordID: string(id), CenterID: string(id), Reason: string(status)})
	return nil
}

func (s *Service) SetPartyStatus(ctx context.Context, actorID string, id models.PartyID, status models.Status) error {
	if !status.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "status must be active or inactive")
	}
	if err := s.store.SetPartyStatus(ctx, id, status, requestcontext.Now(ctx)); err != nil {
		return translate(err, "party not found", "failed to update party")
	}
	s.emit(ctx, audit.Event{Action: audit.ActionStatusChanged, ActorID: actorID, RecordID: string(id), Reason: string(status)})
	return nil
}

// Fixture is the JSON seed format.
type Fixture struct {
	Centers []CenterInput `json:"centers"`
	Parties []PartyInput  `json:"parties"`
}

// Seed upserts every entry in a JSON fixture. It stops at the first invalid entry.
func (s *Service) Seed(ctx context.Context, r io.Reader) (centers, parties int, err error) {
	var f Fixture
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid registry fixture")
	}
	for _, in := range f.Centers {
		if _, err := s.UpsertCenter(ctx, "seed", in); err != nil {
			return centers, parties, fmt.Errorf("seed center %q: %w", in.ID, err)
		}
		centers++
	}
	for _, in := range f.Parties {
		if _, err := s.UpsertParty(ctx, "seed", in); err != nil {
			return centers, parties, fmt.Errorf("seed party %q: %w", in.ID, err)
		}
		parties++
	}
	return centers, parties, nil
}

// SeedFile is Seed over a file path.
func (s *Service) SeedFile(ctx context.Context, path string) (centers, parties int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open registry fixture: %w", err)
	}
	defer f.Close()
	return s.Seed(ctx, f)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit registry audit event",
			"action", string(event.Action),
			"record_id", event.RecordID,
			"error", err,
		)
	}
}

func translate(err error, notFoundMsg, failedMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, failedMsg)
}
