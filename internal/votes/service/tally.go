package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"electiondesk/internal/votes"
	"electiondesk/internal/votes/models"
)

// Tally is the tally query intake: the center's tally when centerID is set,
// otherwise the overall tally.
func (s *Service) Tally(ctx context.Context, centerID *models.CenterID) (*models.Tally, error) {
	if centerID != nil && strings.TrimSpace(string(*centerID)) != "" {
		return s.TallyByCenter(ctx, *centerID)
	}
	return s.TallyOverall(ctx)
}

// TallyByCenter sums the center's verified records. A center with none, known
// or not, yields a zero tally.
func (s *Service) TallyByCenter(ctx context.Context, centerID models.CenterID) (*models.Tally, error) {
	ctx, span := s.tracer.Start(ctx, "votes.TallyByCenter", trace.WithAttributes(
		attribute.String("center_id", string(centerID)),
	))
	defer span.End()
	defer s.metrics.ObserveOperation("tally_center", time.Now())

	records, err := s.store.ListByCenter(ctx, centerID)
	if err != nil {
		err = translateStoreErr(err)
		recordSpanError(span, err)
		return nil, err
	}
	t := votes.Aggregate(records)
	t.CenterID = centerID
	s.metrics.ObserveTally(t.Records)
	return &t, nil
}

func (s *Service) TallyOverall(ctx context.Context) (*models.Tally, error) {
	ctx, span := s.tracer.Start(ctx, "votes.TallyOverall")
	defer span.End()
	defer s.metrics.ObserveOperation("tally_overall", time.Now())

	records, err := s.store.ListByStatus(ctx, models.StatusVerified)
	if err != nil {
		err = translateStoreErr(err)
		recordSpanError(span, err)
		return nil, err
	}
	t := votes.Aggregate(records)
	s.metrics.ObserveTally(t.Records)
	return &t, nil
}

// TallyByDistrict sums verified records whose location snapshot is in district.
// The match ignores case and surrounding space.
func (s *Service) TallyByDistrict(ctx context.Context, district string) (*models.Tally, error) {
	ctx, span := s.tracer.Start(ctx, "votes.TallyByDistrict", trace.WithAttributes(
		attribute.String("district", district),
	))
	defer span.End()
	defer s.metrics.ObserveOperation("tally_district", time.Now())

	records, err := s.store.ListByStatus(ctx, models.StatusVerified)
	if err != nil {
		err = translateStoreErr(err)
		recordSpanError(span, err)
		return nil, err
	}
	want := strings.TrimSpace(district)
	t := votes.AggregateWhere(records, func(r *models.VoteRecord) bool {
		return strings.EqualFold(r.Location.District, want)
	})
	t.District = want
	s.metrics.ObserveTally(t.Records)
	return &t, nil
}
