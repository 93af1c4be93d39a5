package middleware

import (
	"context"
	"fmt"
	"log/slog"

	"electiondesk/internal/ratelimit/metrics"
	"electiondesk/internal/ratelimit/models"
	"electiondesk/pkg/platform/circuit"
)

// Store is a sliding window bucket store.
type Store interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error)
}

// Limiter checks a primary store and falls back to a local one while the
// primary is failing. While the breaker is open the fallback answers and the
// result is marked degraded.
type Limiter struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	limits   map[models.Class]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type LimiterOption func(*Limiter)

// WithFallback sets the store used while the primary's breaker is open.
func WithFallback(fallback Store, breaker *circuit.Breaker) LimiterOption {
	return func(l *Limiter) {
		l.fallback = fallback
		l.breaker = breaker
	}
}

func WithLimiterLogger(logger *slog.Logger) LimiterOption {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithLimiterMetrics(m *metrics.Metrics) LimiterOption {
	return func(l *Limiter) {
		l.metrics = m
	}
}

func NewLimiter(primary Store, limits map[models.Class]models.Limit, opts ...LimiterOption) *Limiter {
	l := &Limiter{primary: primary, limits: limits, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check consumes one request for subject in class. Classes without a
// configured limit are always allowed and return a nil result.
func (l *Limiter) Check(ctx context.Context, class models.Class, subject string) (result *models.Result, degraded bool, err error) {
	limit, ok := l.limits[class]
	if !ok || limit.Requests <= 0 {
		return nil, false, nil
	}
	key := models.Key(class, subject)

	if l.breaker != nil && !l.breaker.Allow() {
		result, err = l.fallback.Allow(ctx, key, limit)
		return result, true, err
	}

	result, err = l.primary.Allow(ctx, key, limit)
	if err == nil {
		if l.breaker != nil {
			if _, change := l.breaker.RecordSuccess(); change.Closed {
				l.metrics.SetBreakerState(false)
				l.logger.InfoContext(ctx, "rate limit store recovered", "breaker", l.breaker.Name())
			}
		}
		return result, false, nil
	}

	l.metrics.IncStoreError()
	if l.breaker == nil {
		return nil, false, fmt.Errorf("rate limit check: %w", err)
	}
	if _, change := l.breaker.RecordFailure(); change.Opened {
		l.metrics.SetBreakerState(true)
		l.logger.WarnContext(ctx, "rate limit store failing, using local fallback",
			"breaker", l.breaker.Name(),
			"error", err,
		)
	}
	result, err = l.fallback.Allow(ctx, key, limit)
	return result, true, err
}
