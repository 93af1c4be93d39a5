package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"electiondesk/internal/registry/models"
)

const (
	keyPrefix       = "electiondesk:registry:"
	centerKeyPrefix = keyPrefix + "center:"
	partyKeyPrefix  = keyPrefix + "party:"
	evictedSuffix   = ":evicted"

	// DefaultEvictionHold is how long an eviction refuses fills from other
	// instances whose backend read may predate the edit.
	DefaultEvictionHold = 10 * time.Second
)

func centerKey(id models.CenterID) string { return centerKeyPrefix + string(id) }
func partyKey(id models.PartyID) string   { return partyKeyPrefix + string(id) }

// fillUnlessEvicted writes KEYS[1] unless the tombstone KEYS[2] exists.
var fillUnlessEvicted = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

// RedisCache is the tier shared between instances. Values are JSON with a TTL.
// Invalidation deletes the value and leaves a short tombstone so a fill that
// raced the edit on another instance cannot bring the old value back.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	hold   time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl, hold: DefaultEvictionHold}
}

func (r *RedisCache) GetCenter(ctx context.Context, id models.CenterID) (*models.PollingCenter, bool, error) {
	var c models.PollingCenter
	ok, err := r.get(ctx, centerKey(id), &c)
	if !ok || err != nil {
		return nil, false, err
	}
	return &c, true, nil
}

func (r *RedisCache) SetCenter(ctx context.Context, c *models.PollingCenter) error {
	return r.set(ctx, centerKey(c.ID), c)
}

func (r *RedisCache) GetParty(ctx context.Context, id models.PartyID) (*models.PoliticalParty, bool, error) {
	var p models.PoliticalParty
	ok, err := r.get(ctx, partyKey(id), &p)
	if !ok || err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

func (r *RedisCache) SetParty(ctx context.Context, p *models.PoliticalParty) error {
	return r.set(ctx, partyKey(p.ID), p)
}

func (r *RedisCache) InvalidateCenter(ctx context.Context, id models.CenterID) error {
	return r.invalidate(ctx, centerKey(id))
}

func (r *RedisCache) InvalidateParty(ctx context.Context, id models.PartyID) error {
	return r.invalidate(ctx, partyKey(id))
}

func (r *RedisCache) invalidate(ctx context.Context, key string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key+evictedSuffix, 1, r.hold)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisCache) set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := fillUnlessEvicted.Run(ctx, r.client, []string{key, key + evictedSuffix}, raw, r.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
