package bucket

import (
	"context"
	"math"
	"sync"
	"time"

	"electiondesk/internal/ratelimit/models"
)

// InMemory is a process-local sliding window store. It is the fallback when
// the shared Redis store is unavailable and the default when none is configured.
type InMemory struct {
	mu      sync.Mutex
	buckets map[string][]time.Time
	now     func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{buckets: make(map[string][]time.Time), now: time.Now}
}

// Allow records a request against key when the window has room.
func (s *InMemory) Allow(_ context.Context, key string, limit models.Limit) (*models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	window := prune(s.buckets[key], now.Add(-limit.Window))

	if len(window) >= limit.Requests {
		s.buckets[key] = window
		resetAt := now.Add(limit.Window)
		if len(window) > 0 {
			resetAt = window[0].Add(limit.Window)
		}
		return &models.Result{
			Allowed:    false,
			Limit:      limit.Requests,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(resetAt.Sub(now)),
		}, nil
	}

	window = append(window, now)
	s.buckets[key] = window
	return &models.Result{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: limit.Requests - len(window),
		ResetAt:   window[0].Add(limit.Window),
	}, nil
}

// Reset clears the bucket for key.
func (s *InMemory) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

// prune drops timestamps at or before cutoff.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(ts); i++ {
		if ts[i].After(cutoff) {
			break
		}
	}
	return ts[i:]
}

func retryAfter(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}
