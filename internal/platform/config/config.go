package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full process configuration. Empty connection strings select
// the in-memory fallback for that backend.
type Config struct {
	Server   Server
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Registry RegistryConfig
	Audit     AuditConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string
	AdminToken        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	ClientID   string
	AuditTopic string
	Partitions int32

	// DeliveryTimeout bounds how long a record is retried before it fails.
	DeliveryTimeout time.Duration
}

// RegistryConfig controls registry seeding and the two cache tiers.
type RegistryConfig struct {
	SeedFile      string
	LocalCacheTTL time.Duration
	RedisCacheTTL time.Duration
}

type AuditConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration

	// ShutdownTimeout bounds the final drain on Close.
	ShutdownTimeout time.Duration
}

// RateLimitConfig sets per-actor request allowances per window. Zero disables a class.
type RateLimitConfig struct {
	Disabled bool
	Window   time.Duration
	Submit   int
	Decide   int
	Read     int
}

type LogConfig struct {
	Level  string
	Format string
}

// FromEnv loads .env (when present) and builds the config from environment variables.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	p := parser{}
	cfg := Config{
		Server: Server{
			Addr:              envOr("ELECTIONDESK_ADDR", ":8080"),
			AdminToken:        os.Getenv("ADMIN_API_TOKEN"),
			ReadHeaderTimeout: p.duration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ShutdownTimeout:   p.duration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    p.int("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    p.int("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     p.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			ClientID:   envOr("KAFKA_CLIENT_ID", "electiondesk"),
			AuditTopic: envOr("AUDIT_TOPIC", "electiondesk.vote-audit"),
			Partitions: int32(p.int("AUDIT_TOPIC_PARTITIONS", 3)),

			DeliveryTimeout: p.duration("KAFKA_DELIVERY_TIMEOUT", 10*time.Second),
		},
		Registry: RegistryConfig{
			SeedFile:      os.Getenv("REGISTRY_SEED_FILE"),
			LocalCacheTTL: p.duration("REGISTRY_LOCAL_CACHE_TTL", 30*time.Second),
			RedisCacheTTL: p.duration("REGISTRY_REDIS_CACHE_TTL", 5*time.Minute),
		},
		Audit: AuditConfig{
			BufferSize:    p.int("AUDIT_BUFFER_SIZE", 4096),
			BatchSize:     p.int("AUDIT_BATCH_SIZE", 100),
			FlushInterval: p.duration("AUDIT_FLUSH_INTERVAL", 250*time.Millisecond),

			ShutdownTimeout: p.duration("AUDIT_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		RateLimit: RateLimitConfig{
			Disabled: p.bool("RATE_LIMIT_DISABLED", false),
			Window:   p.duration("RATE_LIMIT_WINDOW", time.Minute),
			Submit:   p.int("RATE_LIMIT_SUBMIT", 30),
			Decide:   p.int("RATE_LIMIT_DECIDE", 60),
			Read:     p.int("RATE_LIMIT_READ", 300),
		},
		Log: LogConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects every malformed variable so startup reports them together.
type parser struct {
	errs []error
}

func (p *parser) int(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return fallback
	}
	return v
}

func (p *parser) bool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
		return fallback
	}
	return v
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return fallback
	}
	return v
}
