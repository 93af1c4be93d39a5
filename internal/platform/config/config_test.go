package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("ELECTIONDESK_ADDR", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.Registry.RedisCacheTTL)
	assert.Equal(t, 4096, cfg.Audit.BufferSize)
	assert.Equal(t, 5*time.Second, cfg.Audit.ShutdownTimeout)
	assert.Equal(t, 10*time.Second, cfg.Kafka.DeliveryTimeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ELECTIONDESK_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("REGISTRY_LOCAL_CACHE_TTL", "5s")
	t.Setenv("AUDIT_BATCH_SIZE", "25")
	t.Setenv("AUDIT_SHUTDOWN_TIMEOUT", "2s")
	t.Setenv("KAFKA_DELIVERY_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_DISABLED", "true")
	t.Setenv("RATE_LIMIT_SUBMIT", "5")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.Registry.LocalCacheTTL)
	assert.Equal(t, 25, cfg.Audit.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Audit.ShutdownTimeout)
	assert.Equal(t, 3*time.Second, cfg.Kafka.DeliveryTimeout)
	assert.True(t, cfg.RateLimit.Disabled)
	assert.Equal(t, 5, cfg.RateLimit.Submit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestFromEnv_ReportsAllMalformedValues(t *testing.T) {
	t.Setenv("AUDIT_BATCH_SIZE", "many")
	t.Setenv("REDIS_DIAL_TIMEOUT", "soon")
	t.Setenv("RATE_LIMIT_DISABLED", "sometimes")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUDIT_BATCH_SIZE")
	assert.Contains(t, err.Error(), "REDIS_DIAL_TIMEOUT")
	assert.Contains(t, err.Error(), "RATE_LIMIT_DISABLED")
}
