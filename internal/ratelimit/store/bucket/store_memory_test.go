package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electiondesk/internal/ratelimit/models"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore() (*InMemory, *clock) {
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := NewInMemory()
	s.now = c.now
	return s, c
}

func TestInMemoryAllowUntilLimit(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	limit := models.Limit{Requests: 3, Window: time.Minute}

	for i := range 3 {
		res, err := s.Allow(ctx, "k", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		assert.Equal(t, 3, res.Limit)
	}

	res, err := s.Allow(ctx, "k", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 60, res.RetryAfter)
}

func TestInMemoryWindowSlides(t *testing.T) {
	s, c := newTestStore()
	ctx := context.Background()
	limit := models.Limit{Requests: 2, Window: time.Minute}

	_, err := s.Allow(ctx, "k", limit)
	require.NoError(t, err)
	c.advance(40 * time.Second)
	_, err = s.Allow(ctx, "k", limit)
	require.NoError(t, err)

	res, err := s.Allow(ctx, "k", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 20, res.RetryAfter)

	c.advance(20 * time.Second)
	res, err = s.Allow(ctx, "k", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "first request left the window")
	assert.Equal(t, 0, res.Remaining)
}

func TestInMemoryKeysAreIndependent(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	limit := models.Limit{Requests: 1, Window: time.Minute}

	res, err := s.Allow(ctx, "a", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	res, err = s.Allow(ctx, "b", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	res, err = s.Allow(ctx, "a", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestInMemoryReset(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	limit := models.Limit{Requests: 1, Window: time.Minute}

	_, err := s.Allow(ctx, "k", limit)
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx, "k"))

	res, err := s.Allow(ctx, "k", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRetryAfterRoundsUp(t *testing.T) {
	assert.Equal(t, 1, retryAfter(0))
	assert.Equal(t, 1, retryAfter(200*time.Millisecond))
	assert.Equal(t, 2, retryAfter(1500*time.Millisecond))
}
