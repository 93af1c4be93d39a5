package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup sources, in the order the cached store consults them.
const (
	SourceLocal  = "local"
	SourceShared = "shared"
	SourceStore  = "store"
	SourceMiss   = "miss"
)

// Metrics provides observability for registry lookups. Nil-safe.
type Metrics struct {
	Lookups           *prometheus.CounterVec
	LookupDuration    *prometheus.HistogramVec
	SharedCacheErrors prometheus.Counter
	BreakerState      prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "electiondesk_registry_lookups_total",
			Help: "Registry lookups by entity kind and the tier that answered",
		}, []string{"kind", "source"}),
		LookupDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "electiondesk_registry_lookup_duration_seconds",
			Help:    "Duration of registry lookups including cache tiers",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"kind"}),
		SharedCacheErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "electiondesk_registry_shared_cache_errors_total",
			Help: "Failed reads or writes against the shared registry cache",
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "electiondesk_registry_shared_cache_breaker_state",
			Help: "Shared cache circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
	}
}

func (m *Metrics) IncLookup(kind, source string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(kind, source).Inc()
}

// ObserveLookup records the duration of a lookup. Call with time.Now() at the start.
func (m *Metrics) ObserveLookup(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.LookupDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncSharedCacheError() {
	if m == nil {
		return
	}
	m.SharedCacheErrors.Inc()
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
