package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"electiondesk/internal/ratelimit/models"
	"electiondesk/pkg/platform/httputil"
	"electiondesk/pkg/platform/middleware/actor"
	"electiondesk/pkg/requestcontext"
)

const HeaderRateLimitStatus = "X-RateLimit-Status"

// Middleware throttles requests per actor, or per client IP for anonymous
// requests. Limiter errors fail open.
type Middleware struct {
	limiter  *Limiter
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns throttling off entirely.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(limiter *Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{limiter: limiter, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

func (m *Middleware) RateLimit(class models.Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil || m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			subject := "ip:" + requestcontext.ClientIP(ctx)
			if a, ok := actor.FromContext(ctx); ok && a.ID != "" {
				subject = "actor:" + a.ID
			}

			result, degraded, err := m.limiter.Check(ctx, class, subject)
			if err != nil {
				m.limiter.metrics.IncCheck(string(class), "error")
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"class", string(class),
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}
			if result == nil {
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if degraded {
				w.Header().Set(HeaderRateLimitStatus, "degraded")
			}
			if !result.Allowed {
				m.limiter.metrics.IncCheck(string(class), "limited")
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"class", string(class),
					"subject", subject,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeRateLimitExceeded(w, result)
				return
			}
			m.limiter.metrics.IncCheck(string(class), "allowed")
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests for this operation. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
