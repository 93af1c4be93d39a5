package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"electiondesk/internal/votes"
	"electiondesk/internal/votes/metrics"
	"electiondesk/internal/votes/models"
	"electiondesk/internal/votes/ports"
	dErrors "electiondesk/pkg/domain-errors"
	"electiondesk/pkg/platform/audit"
	"electiondesk/pkg/platform/sentinel"
	"electiondesk/pkg/requestcontext"
)

// Store is the vote record persistence contract.
type Store interface {
	Create(ctx context.Context, record *models.VoteRecord) error
	FindByID(ctx context.Context, id models.RecordID) (*models.VoteRecord, error)
	ListByCenter(ctx context.Context, centerID models.CenterID) ([]models.VoteRecord, error)
	ListByStatus(ctx context.Context, statuses ...models.Status) ([]models.VoteRecord, error)
	Execute(ctx context.Context, id models.RecordID, validate func(*models.VoteRecord) error, mutate func(*models.VoteRecord)) (*models.VoteRecord, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs the submission, verification and tally workflows.
type Service struct {
	store          Store
	registry       ports.RegistryPort
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(store Store, registry ports.RegistryPort, opts ...Option) *Service {
	s := &Service{
		store:    store,
		registry: registry,
		logger:   slog.Default(),
		tracer:   otel.Tracer("electiondesk/votes"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates a draft against the registry and stores it as a new
// submitted record. Invalid drafts are never persisted.
func (s *Service) Submit(ctx context.Context, draft models.Draft) (*models.VoteRecord, error) {
	ctx, span := s.tracer.Start(ctx, "votes.Submit", trace.WithAttributes(
		attribute.String("center_id", string(draft.CenterID)),
	))
	defer span.End()
	defer s.metrics.ObserveOperation("submit", time.Now())

	record, err := s.submit(ctx, draft, nil)
	if err != nil {
		s.metrics.IncSubmission(outcome(err))
		recordSpanError(span, err)
		return nil, err
	}
	s.metrics.IncSubmission("accepted")
	span.SetAttributes(attribute.String("record_id", record.ID.String()))

	s.logger.InfoContext(ctx, "vote record submitted",
		"record_id", record.ID.String(),
		"center_id", string(record.CenterID),
		"submitter_id", record.Submitter.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, auditEvent(audit.ActionVoteSubmitted, record, record.Submitter, ""))
	return record, nil
}

// Correct submits a new record that supersedes nothing but points at the prior
// record it corrects. The prior record must exist and is left untouched. An
// empty center id in the draft defaults to the prior record's center.
func (s *Service) Correct(ctx context.Context, priorID models.RecordID, draft models.Draft) (*models.VoteRecord, error) {
	ctx, span := s.tracer.Start(ctx, "votes.Correct", trace.WithAttributes(
		attribute.String("prior_record_id", priorID.String()),
	))
	defer span.End()
	defer s.metrics.ObserveOperation("correct", time.Now())

	prior, err := s.store.FindByID(ctx, priorID)
	if err != nil {
		err = translateStoreErr(err)
		recordSpanError(span, err)
		return nil, err
	}
	draft.CenterID = models.CenterID(strings.TrimSpace(string(draft.CenterID)))
	if draft.CenterID == "" {
		draft.CenterID = prior.CenterID
	}
	if draft.CenterID != prior.CenterID {
		err := dErrors.New(dErrors.CodeBadRequest, "a correction must be for the same polling center")
		recordSpanError(span, err)
		return nil, err
	}

	record, err := s.submit(ctx, draft, &prior.ID)
	if err != nil {
		s.metrics.IncSubmission(outcome(err))
		recordSpanError(span, err)
		return nil, err
	}
	s.metrics.IncSubmission("accepted")

	s.logger.InfoContext(ctx, "vote record correction submitted",
		"record_id", record.ID.String(),
		"correction_of", prior.ID.String(),
		"center_id", string(record.CenterID),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, auditEvent(audit.ActionVoteCorrected, record, record.Submitter, "corrects "+prior.ID.String()))
	return record, nil
}

func (s *Service) submit(ctx context.Context, draft models.Draft, correctionOf *models.RecordID) (*models.VoteRecord, error) {
	if err := votes.CheckRequired(draft); err != nil {
		return nil, err
	}
	if !draft.Submitter.Role.CanSubmit() {
		return nil, dErrors.New(dErrors.CodeForbidden, "submitter role may not submit vote records")
	}

	evidence, err := votes.GatherRegistryEvidence(ctx, s.registry, draft)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "registry lookup failed")
	}
	record, err := votes.Validate(draft, evidence)
	if err != nil {
		return nil, err
	}

	record.ID = models.NewRecordID()
	record.SubmittedAt = requestcontext.Now(ctx).UTC()
	record.Status = models.StatusSubmitted
	record.CorrectionOf = correctionOf

	if err := s.store.Create(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to store vote record")
	}
	return record, nil
}

// Verify marks a submitted record as verified.
func (s *Service) Verify(ctx context.Context, id models.RecordID, verifier models.Identity) (*models.VoteRecord, error) {
	return s.Decide(ctx, id, verifier, models.DecisionVerify, "")
}

// Reject marks a submitted record as rejected and keeps the reason.
func (s *Service) Reject(ctx context.Context, id models.RecordID, verifier models.Identity, reason string) (*models.VoteRecord, error) {
	return s.Decide(ctx, id, verifier, models.DecisionReject, reason)
}

// Decide applies a verifier's decision. The transition happens at most once per
// record: concurrent callers racing on the same record see exactly one success
// and already_finalized for the rest.
func (s *Service) Decide(ctx context.Context, id models.RecordID, verifier models.Identity, decision models.Decision, reason string) (*models.VoteRecord, error) {
	ctx, span := s.tracer.Start(ctx, "votes.Decide", trace.WithAttributes(
		attribute.String("record_id", id.String()),
		attribute.String("decision", string(decision)),
	))
	defer span.End()
	defer s.metrics.ObserveOperation("decide", time.Now())

	record, err := s.decide(ctx, id, verifier, decision, reason)
	if err != nil {
		s.metrics.IncDecision(string(decision), outcome(err))
		recordSpanError(span, err)
		return nil, err
	}
	s.metrics.IncDecision(string(decision), "applied")

	s.logger.InfoContext(ctx, "vote record finalized",
		"record_id", record.ID.String(),
		"center_id", string(record.CenterID),
		"status", string(record.Status),
		"verifier_id", record.Verifier.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	action := audit.ActionVoteVerified
	if decision == models.DecisionReject {
		action = audit.ActionVoteRejected
	}
	s.emit(ctx, auditEvent(action, record, *record.Verifier, record.Reason))
	return record, nil
}

func (s *Service) decide(ctx context.Context, id models.RecordID, verifier models.Identity, decision models.Decision, reason string) (*models.VoteRecord, error) {
	if decision != models.DecisionVerify && decision != models.DecisionReject {
		return nil, dErrors.New(dErrors.CodeBadRequest, "decision must be verify or reject")
	}
	if strings.TrimSpace(verifier.ID) == "" {
		return nil, dErrors.New(dErrors.CodeMissingField, "verifier id is required")
	}
	if !verifier.Role.CanVerify() {
		return nil, dErrors.New(dErrors.CodeForbidden, "verifier role may not finalize vote records")
	}

	now := requestcontext.Now(ctx).UTC()
	record, err := s.store.Execute(ctx, id,
		func(r *models.VoteRecord) error {
			return r.CanFinalize(verifier)
		},
		func(r *models.VoteRecord) {
			r.ApplyDecision(decision, verifier, reason, now)
		},
	)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return record, nil
}

func (s *Service) Get(ctx context.Context, id models.RecordID) (*models.VoteRecord, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return record, nil
}

// ListByCenter returns every record for the center in submission order. An
// unknown center yields an empty list.
func (s *Service) ListByCenter(ctx context.Context, centerID models.CenterID) ([]models.VoteRecord, error) {
	out, err := s.store.ListByCenter(ctx, centerID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return out, nil
}

func (s *Service) ListByStatus(ctx context.Context, status models.Status) ([]models.VoteRecord, error) {
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown status "+string(status))
	}
	out, err := s.store.ListByStatus(ctx, status)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.metrics.IncAuditFailure()
		s.logger.ErrorContext(ctx, "failed to emit vote audit event",
			"action", string(event.Action),
			"record_id", event.RecordID,
			"error", err,
		)
	}
}

func auditEvent(action audit.Action, record *models.VoteRecord, actor models.Identity, reason string) audit.Event {
	return audit.Event{
		Action:    action,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: string(actor.Role),
		RecordID:  record.ID.String(),
		CenterID:  string(record.CenterID),
		Reason:    reason,
	}
}

// translateStoreErr maps store sentinels to domain errors. Domain errors raised
// inside Execute callbacks pass through unchanged.
func translateStoreErr(err error) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "vote record not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeAlreadyFinalized, "vote record is already finalized")
	default:
		return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "vote record store failed")
	}
}

func outcome(err error) string {
	if code := dErrors.CodeOf(err); code != "" {
		return string(code)
	}
	return string(dErrors.CodeInternal)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
}
