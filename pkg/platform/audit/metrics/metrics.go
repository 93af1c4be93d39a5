package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit pipeline.
// All methods are nil-safe so callers can run without metrics.
type Metrics struct {
	Emitted             prometheus.Counter
	Persisted           prometheus.Counter
	Dropped             *prometheus.CounterVec
	PersistFailures     prometheus.Counter
	BufferDepth         prometheus.Gauge
	CircuitBreakerState prometheus.Gauge
}

// New registers the audit metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Emitted: f.NewCounter(prometheus.CounterOpts{
			Name: "electiondesk_audit_emitted_total",
			Help: "Total number of audit events accepted by the publisher",
		}),
		Persisted: f.NewCounter(prometheus.CounterOpts{
			Name: "electiondesk_audit_persisted_total",
			Help: "Total number of audit events written to the sink",
		}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "electiondesk_audit_dropped_total",
			Help: "Total number of audit events dropped before reaching the sink",
		}, []string{"reason"}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "electiondesk_audit_persist_failures_total",
			Help: "Total number of failed sink writes",
		}),
		BufferDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "electiondesk_audit_buffer_depth",
			Help: "Number of audit events waiting in the async buffer",
		}),
		CircuitBreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "electiondesk_audit_circuit_breaker_state",
			Help: "Current sink circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
	}
}

func (m *Metrics) IncEmitted() {
	if m == nil {
		return
	}
	m.Emitted.Inc()
}

func (m *Metrics) AddPersisted(n int) {
	if m == nil {
		return
	}
	m.Persisted.Add(float64(n))
}

// AddDropped counts events lost for reason ("buffer_full", "circuit_open",
// "persist_failed", "shutdown_timeout").
func (m *Metrics) AddDropped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Dropped.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) SetBufferDepth(n int) {
	if m == nil {
		return
	}
	m.BufferDepth.Set(float64(n))
}

func (m *Metrics) SetCircuitBreakerState(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
	} else {
		m.CircuitBreakerState.Set(0)
	}
}
