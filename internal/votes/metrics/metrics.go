package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers submissions, decisions and tallies. Nil-safe.
type Metrics struct {
	Submissions       *prometheus.CounterVec
	Decisions         *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	TallyRecords      prometheus.Histogram
	AuditFailures     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "electiondesk_vote_submissions_total",
			Help: "Vote submissions by outcome (accepted or the error code)",
		}, []string{"outcome"}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "electiondesk_vote_decisions_total",
			Help: "Verification decisions by decision and outcome",
		}, []string{"decision", "outcome"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "electiondesk_vote_operation_duration_seconds",
			Help:    "Duration of vote engine operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		TallyRecords: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "electiondesk_vote_tally_records",
			Help:    "Number of verified records summed per tally",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		AuditFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "electiondesk_vote_audit_failures_total",
			Help: "Audit events that could not be handed to the publisher",
		}),
	}
}

func (m *Metrics) IncSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDecision(decision, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision, outcome).Inc()
}

// ObserveOperation records the duration of an operation. Call with time.Now() at the start.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveTally(records int) {
	if m == nil {
		return
	}
	m.TallyRecords.Observe(float64(records))
}

func (m *Metrics) IncAuditFailure() {
	if m == nil {
		return
	}
	m.AuditFailures.Inc()
}
