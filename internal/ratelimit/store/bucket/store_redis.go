package bucket

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"electiondesk/internal/ratelimit/models"
)

// slidingWindow trims the sorted set to the window, then adds the request when
// there is room. Returns {allowed, count, oldest_ms}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
	redis.call('ZADD', key, now, member)
	count = count + 1
	allowed = 1
end
redis.call('PEXPIRE', key, window)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldestMs = now
if oldest[2] then
	oldestMs = tonumber(oldest[2])
end
return {allowed, count, oldestMs}
`)

// Redis is a sliding window store shared by every instance.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

func (s *Redis) Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error) {
	now := s.now()
	nowMs := now.UnixMilli()
	raw, err := slidingWindow.Run(ctx, s.client, []string{key},
		nowMs, limit.Window.Milliseconds(), limit.Requests, strconv.FormatInt(nowMs, 10)+"-"+uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(raw) != 3 {
		return nil, fmt.Errorf("rate limit script: unexpected reply length %d", len(raw))
	}

	allowed, count, oldestMs := raw[0] == 1, int(raw[1]), raw[2]
	resetAt := time.UnixMilli(oldestMs).Add(limit.Window)
	if !allowed {
		return &models.Result{
			Allowed:    false,
			Limit:      limit.Requests,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(resetAt.Sub(now)),
		}, nil
	}
	return &models.Result{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: limit.Requests - count,
		ResetAt:   resetAt,
	}, nil
}

func (s *Redis) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
