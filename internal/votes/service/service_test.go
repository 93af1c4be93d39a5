package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/trace/noop"

	registryservice "electiondesk/internal/registry/service"
	registrystore "electiondesk/internal/registry/store"
	"electiondesk/internal/votes/adapters"
	"electiondesk/internal/votes/metrics"
	"electiondesk/internal/votes/models"
	"electiondesk/internal/votes/ports"
	"electiondesk/internal/votes/store"
	dErrors "electiondesk/pkg/domain-errors"
	"electiondesk/pkg/platform/audit"
	"electiondesk/pkg/platform/audit/publisher"
	auditmemory "electiondesk/pkg/platform/audit/store/memory"
	"electiondesk/pkg/requestcontext"
)

const registryFixture = `{
  "centers": [
    {"id": "PC-001", "district": "Dhaka", "thana": "Mirpur", "name": "Mirpur Govt. High School", "voters": 1000},
    {"id": "PC-002", "district": "Dhaka", "thana": "Uttara", "name": "Uttara Model College", "voters": 1500},
    {"id": "PC-003", "district": "Sylhet", "thana": "Kotwali", "name": "Sylhet Govt. Pilot School", "voters": 800, "status": "inactive"},
    {"id": "PC-004", "district": "Sylhet", "thana": "Jalalabad", "name": "Jalalabad School", "voters": 600}
  ],
  "parties": [
    {"id": "A", "name": "Party A"},
    {"id": "B", "name": "Party B"},
    {"id": "C", "name": "Party C", "status": "inactive"}
  ]
}`

var (
	officer  = models.Identity{ID: "officer-1", Name: "Rahim", Contact: "+8801700000001", Role: models.RoleOfficer}
	verifier = models.Identity{ID: "verifier-1", Name: "Karim", Role: models.RoleVerifier}
)

func ptr(v int64) *int64 { return &v }

func draft(center models.CenterID, votes, voters int64, breakdown ...models.PartyVotes) models.Draft {
	return models.Draft{
		CenterID:    center,
		TotalVotes:  ptr(votes),
		TotalVoters: ptr(voters),
		Submitter:   officer,
		Breakdown:   breakdown,
	}
}

func pv(party models.PartyID, votes int64) models.PartyVotes {
	return models.PartyVotes{PartyID: party, Votes: votes}
}

type VoteServiceSuite struct {
	suite.Suite
	ctx       context.Context
	fixedTime time.Time
	store     *store.InMemory
	auditLog  *auditmemory.InMemoryStore
	registry  *registryservice.Service
	reg       *prometheus.Registry
	service   *Service
}

func TestVoteServiceSuite(t *testing.T) {
	suite.Run(t, new(VoteServiceSuite))
}

func (s *VoteServiceSuite) SetupTest() {
	s.fixedTime = time.Date(2026, 1, 7, 10, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.fixedTime)

	s.registry = registryservice.New(registrystore.NewInMemory())
	_, _, err := s.registry.Seed(s.ctx, strings.NewReader(registryFixture))
	s.Require().NoError(err)

	s.store = store.NewInMemory()
	s.auditLog = auditmemory.NewInMemoryStore()
	s.reg = prometheus.NewRegistry()
	s.service = New(s.store, adapters.NewRegistryAdapter(s.registry),
		WithAuditPublisher(publisher.NewPublisher(s.auditLog)),
		WithMetrics(metrics.New(s.reg)),
		WithTracer(noop.NewTracerProvider().Tracer("test")),
	)
}

func (s *VoteServiceSuite) submitVerified(d models.Draft) *models.VoteRecord {
	r, err := s.service.Submit(s.ctx, d)
	s.Require().NoError(err)
	r, err = s.service.Verify(s.ctx, r.ID, verifier)
	s.Require().NoError(err)
	return r
}

func (s *VoteServiceSuite) TestSubmitAndTallyExample() {
	record, err := s.service.Submit(s.ctx, draft("PC-001", 800, 1000, pv("A", 500), pv("B", 250)))
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitted, record.Status)
	s.Equal(int64(50), record.Unaccounted())
	s.Equal(s.fixedTime, record.SubmittedAt)
	s.Equal("Mirpur Govt. High School", record.CenterName)
	s.Equal(models.Location{District: "Dhaka", Thana: "Mirpur"}, record.Location)
	s.Equal("Party A", record.Breakdown[0].PartyName)
	s.False(record.ID.IsNil())

	_, err = s.service.Verify(s.ctx, record.ID, verifier)
	s.Require().NoError(err)

	tally, err := s.service.TallyByCenter(s.ctx, "PC-001")
	s.Require().NoError(err)
	s.Equal(int64(800), tally.TotalVotes)
	s.Equal(int64(1000), tally.TotalVoters)
	s.Equal(map[models.PartyID]int64{"A": 500, "B": 250}, tally.PartyTotals)
	s.Equal(int64(50), tally.Unaccounted)
	s.Equal(1, tally.Records)
	s.InDelta(0.8, tally.Turnout(), 1e-9)

	s.Equal(1.0, testutil.ToFloat64(s.service.metrics.Submissions.WithLabelValues("accepted")))
}

func (s *VoteServiceSuite) TestValidationFailuresAreNotPersisted() {
	cases := []struct {
		name  string
		draft models.Draft
		code  dErrors.Code
	}{
		{"totals above voters", draft("PC-001", 1200, 1000), dErrors.CodeInvalidTotals},
		{"missing total votes", models.Draft{CenterID: "PC-001", TotalVoters: ptr(1000), Submitter: officer}, dErrors.CodeMissingField},
		{"missing center", draft("", 10, 100), dErrors.CodeMissingField},
		{"missing submitter name", models.Draft{CenterID: "PC-001", TotalVotes: ptr(1), TotalVoters: ptr(2), Submitter: models.Identity{ID: "x", Role: models.RoleOfficer}}, dErrors.CodeMissingField},
		{"unknown center", draft("PC-404", 10, 100), dErrors.CodeUnknownCenter},
		{"inactive center", draft("PC-003", 10, 100), dErrors.CodeInactiveCenter},
		{"negative voters", draft("PC-001", 0, -1), dErrors.CodeInvalidTotals},
		{"unknown party", draft("PC-001", 100, 1000, pv("Z", 10)), dErrors.CodeUnknownParty},
		{"breakdown over total", draft("PC-001", 100, 1000, pv("A", 60), pv("B", 41)), dErrors.CodeBreakdownOverflow},
		{"negative party votes", draft("PC-001", 100, 1000, pv("A", -1)), dErrors.CodeBreakdownOverflow},
		{"unknown center before bad totals", draft("PC-404", 1200, 1000), dErrors.CodeUnknownCenter},
		{"bad totals before unknown party", draft("PC-001", 1200, 1000, pv("Z", 1)), dErrors.CodeInvalidTotals},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Submit(s.ctx, tc.draft)
			s.Require().Error(err)
			s.Equal(tc.code, dErrors.CodeOf(err))
		})
	}
	s.Equal(0, s.store.Len())
	s.Equal(0, s.auditLog.Len())
}

func (s *VoteServiceSuite) TestInactivePartyStillResolves() {
	record, err := s.service.Submit(s.ctx, draft("PC-001", 100, 1000, pv("C", 40)))
	s.Require().NoError(err)
	s.Equal("Party C", record.Breakdown[0].PartyName)
}

func (s *VoteServiceSuite) TestSubmitRequiresSubmittingRole() {
	d := draft("PC-001", 100, 1000)
	d.Submitter.Role = models.RoleVerifier
	_, err := s.service.Submit(s.ctx, d)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *VoteServiceSuite) TestRegistryOutageIsStorageUnavailable() {
	svc := New(s.store, failingRegistry{})
	_, err := svc.Submit(s.ctx, draft("PC-001", 100, 1000, pv("A", 1)))
	s.True(dErrors.HasCode(err, dErrors.CodeStorageUnavailable))
	s.Equal(0, s.store.Len())
}

func (s *VoteServiceSuite) TestDecisions() {
	s.Run("reject records verifier, time and reason", func() {
		r, err := s.service.Submit(s.ctx, draft("PC-002", 900, 1500, pv("A", 400)))
		s.Require().NoError(err)

		rejected, err := s.service.Reject(s.ctx, r.ID, verifier, "  tally sheet unsigned ")
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, rejected.Status)
		s.Equal("tally sheet unsigned", rejected.Reason)
		s.Require().NotNil(rejected.Verifier)
		s.Equal(verifier.ID, rejected.Verifier.ID)
		s.Equal(s.fixedTime, *rejected.VerifiedAt)

		_, err = s.service.Verify(s.ctx, r.ID, verifier)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyFinalized))

		stored, err := s.service.Get(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, stored.Status)
	})

	s.Run("unknown record is not found", func() {
		_, err := s.service.Verify(s.ctx, models.NewRecordID(), verifier)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("submitter cannot verify own record", func() {
		r, err := s.service.Submit(s.ctx, draft("PC-001", 10, 1000))
		s.Require().NoError(err)
		self := officer
		self.Role = models.RoleAdmin
		_, err = s.service.Verify(s.ctx, r.ID, self)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("officer cannot verify", func() {
		r, err := s.service.Submit(s.ctx, draft("PC-001", 10, 1000))
		s.Require().NoError(err)
		other := models.Identity{ID: "officer-2", Name: "Other", Role: models.RoleOfficer}
		_, err = s.service.Verify(s.ctx, r.ID, other)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("missing verifier id", func() {
		_, err := s.service.Decide(s.ctx, models.NewRecordID(), models.Identity{Role: models.RoleVerifier}, models.DecisionVerify, "")
		s.True(dErrors.HasCode(err, dErrors.CodeMissingField))
	})
}

func (s *VoteServiceSuite) TestConcurrentVerifyAndRejectExclusive() {
	r, err := s.service.Submit(s.ctx, draft("PC-001", 800, 1000, pv("A", 500)))
	s.Require().NoError(err)

	const callers = 40
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, err := s.service.Verify(s.ctx, r.ID, verifier)
				results <- err
				return
			}
			_, err := s.service.Reject(s.ctx, r.ID, verifier, "conflict")
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var ok, finalized int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case dErrors.HasCode(err, dErrors.CodeAlreadyFinalized):
			finalized++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, ok)
	s.Equal(callers-1, finalized)
}

func (s *VoteServiceSuite) TestTallyExcludesUnverifiedRecords() {
	s.submitVerified(draft("PC-001", 800, 1000, pv("A", 500), pv("B", 250)))

	_, err := s.service.Submit(s.ctx, draft("PC-001", 300, 1000, pv("A", 300)))
	s.Require().NoError(err)
	rejected, err := s.service.Submit(s.ctx, draft("PC-001", 200, 1000, pv("B", 200)))
	s.Require().NoError(err)
	_, err = s.service.Reject(s.ctx, rejected.ID, verifier, "duplicate sheet")
	s.Require().NoError(err)

	tally, err := s.service.TallyByCenter(s.ctx, "PC-001")
	s.Require().NoError(err)
	s.Equal(1, tally.Records)
	s.Equal(int64(800), tally.TotalVotes)
	s.Equal(map[models.PartyID]int64{"A": 500, "B": 250}, tally.PartyTotals)
}

func (s *VoteServiceSuite) TestTallyOverallAndDistrict() {
	s.submitVerified(draft("PC-001", 800, 1000, pv("A", 500), pv("B", 250)))
	s.submitVerified(draft("PC-001", 100, 1000, pv("A", 100)))
	s.submitVerified(draft("PC-002", 1000, 1500, pv("B", 900)))
	s.submitVerified(draft("PC-004", 300, 600, pv("A", 300)))

	first, err := s.service.TallyOverall(s.ctx)
	s.Require().NoError(err)
	second, err := s.service.Tally(s.ctx, nil)
	s.Require().NoError(err)
	s.Equal(first, second)
	s.Equal(4, first.Records)
	s.Equal(int64(2200), first.TotalVotes)
	s.Equal(int64(4100), first.TotalVoters)
	s.Equal(map[models.PartyID]int64{"A": 900, "B": 1150}, first.PartyTotals)

	dhaka, err := s.service.TallyByDistrict(s.ctx, " dhaka ")
	s.Require().NoError(err)
	s.Equal(3, dhaka.Records)
	s.Equal(int64(1900), dhaka.TotalVotes)
	s.Equal("dhaka", dhaka.District)

	center := models.CenterID("PC-001")
	byCenter, err := s.service.Tally(s.ctx, &center)
	s.Require().NoError(err)
	s.Equal(int64(900), byCenter.TotalVotes)

	unknown, err := s.service.TallyByCenter(s.ctx, "PC-404")
	s.Require().NoError(err)
	s.Zero(unknown.Records)
	s.Empty(unknown.PartyTotals)
}

func (s *VoteServiceSuite) TestCorrection() {
	prior, err := s.service.Submit(s.ctx, draft("PC-001", 800, 1000, pv("A", 500)))
	s.Require().NoError(err)
	_, err = s.service.Reject(s.ctx, prior.ID, verifier, "wrong sheet")
	s.Require().NoError(err)

	s.Run("creates a new submitted record pointing at the prior one", func() {
		correction, err := s.service.Correct(s.ctx, prior.ID, draft("", 780, 1000, pv("A", 480)))
		s.Require().NoError(err)
		s.Equal(models.StatusSubmitted, correction.Status)
		s.Equal(models.CenterID("PC-001"), correction.CenterID)
		s.Require().NotNil(correction.CorrectionOf)
		s.Equal(prior.ID, *correction.CorrectionOf)

		stored, err := s.service.Get(s.ctx, prior.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, stored.Status)

		list, err := s.service.ListByCenter(s.ctx, "PC-001")
		s.Require().NoError(err)
		s.Len(list, 2)
	})

	s.Run("accepts the prior center with surrounding whitespace", func() {
		correction, err := s.service.Correct(s.ctx, prior.ID, draft(" PC-001\t", 790, 1000, pv("A", 490)))
		s.Require().NoError(err)
		s.Equal(models.CenterID("PC-001"), correction.CenterID)
	})

	s.Run("rejects a different center", func() {
		_, err := s.service.Correct(s.ctx, prior.ID, draft("PC-002", 10, 100))
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown prior record", func() {
		_, err := s.service.Correct(s.ctx, models.NewRecordID(), draft("PC-001", 10, 100))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("is validated like any draft", func() {
		_, err := s.service.Correct(s.ctx, prior.ID, draft("", 1200, 1000))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTotals))
	})
}

func (s *VoteServiceSuite) TestListByStatus() {
	verified := s.submitVerified(draft("PC-001", 10, 1000))
	_, err := s.service.Submit(s.ctx, draft("PC-001", 20, 1000))
	s.Require().NoError(err)

	list, err := s.service.ListByStatus(s.ctx, models.StatusVerified)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(verified.ID, list[0].ID)

	_, err = s.service.ListByStatus(s.ctx, "pending")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *VoteServiceSuite) TestAuditTrail() {
	r, err := s.service.Submit(s.ctx, draft("PC-001", 800, 1000, pv("A", 500)))
	s.Require().NoError(err)
	_, err = s.service.Verify(s.ctx, r.ID, verifier)
	s.Require().NoError(err)

	events, err := s.auditLog.ListByRecord(s.ctx, r.ID.String())
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.ActionVoteSubmitted, events[0].Action)
	s.Equal(officer.ID, events[0].ActorID)
	s.Equal(audit.ActionVoteVerified, events[1].Action)
	s.Equal(verifier.ID, events[1].ActorID)
	s.Equal("PC-001", events[1].CenterID)
	s.Equal(s.fixedTime, events[1].Timestamp)
}

func (s *VoteServiceSuite) TestAuditFailureDoesNotFailOperation() {
	svc := New(s.store, adapters.NewRegistryAdapter(s.registry),
		WithAuditPublisher(failingPublisher{}),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	r, err := svc.Submit(s.ctx, draft("PC-001", 800, 1000))
	s.Require().NoError(err)
	s.Equal(1.0, testutil.ToFloat64(svc.metrics.AuditFailures))

	_, err = svc.Verify(s.ctx, r.ID, verifier)
	s.Require().NoError(err)
	s.Equal(2.0, testutil.ToFloat64(svc.metrics.AuditFailures))
}

type failingRegistry struct{}

func (failingRegistry) ResolveCenter(context.Context, models.CenterID) (*ports.Center, error) {
	return nil, errors.New("registry down")
}

func (failingRegistry) ResolveParty(context.Context, models.PartyID) (*ports.Party, error) {
	return nil, errors.New("registry down")
}

type failingPublisher struct{}

func (failingPublisher) Emit(context.Context, audit.Event) error {
	return errors.New("sink down")
}
