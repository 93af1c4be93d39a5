package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts throttling decisions. Nil-safe.
type Metrics struct {
	Checks       *prometheus.CounterVec
	StoreErrors  prometheus.Counter
	BreakerState prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Checks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "electiondesk_ratelimit_checks_total",
			Help: "Rate limit checks by class and result (allowed, limited, error)",
		}, []string{"class", "result"}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "electiondesk_ratelimit_store_errors_total",
			Help: "Failed checks against the shared rate limit store",
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "electiondesk_ratelimit_breaker_state",
			Help: "Shared store circuit breaker state (0=closed/healthy, 1=open/fallback)",
		}),
	}
}

func (m *Metrics) IncCheck(class, result string) {
	if m == nil {
		return
	}
	m.Checks.WithLabelValues(class, result).Inc()
}

func (m *Metrics) IncStoreError() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}

func (m *Metrics) SetBreakerState(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}
