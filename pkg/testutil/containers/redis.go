//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer backs the registry's shared cache tier and the rate limit
// buckets in integration suites.
type RedisContainer struct {
	Container *tcredis.RedisContainer
	URL       string
	Client    *redis.Client
}

// NewRedisContainer starts Redis and returns a pinged client. The Manager owns
// its lifetime, so no t.Cleanup is registered here.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine", tcredis.WithLogLevel(tcredis.LogLevelWarning))
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get redis connection string: %v", err)
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to parse redis URL %q: %v", url, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping redis: %v", err)
	}

	return &RedisContainer{Container: container, URL: url, Client: client}
}

// FlushAll empties the database. Registry cache and rate limit suites share
// the container, so each calls this from SetupTest.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}

// Keys lists the keys under prefix, for asserting what a store left behind.
func (r *RedisContainer) Keys(ctx context.Context, prefix string) ([]string, error) {
	return r.Client.Keys(ctx, prefix+"*").Result()
}
