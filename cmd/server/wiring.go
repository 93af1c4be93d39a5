package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"electiondesk/internal/platform/config"
	platformkafka "electiondesk/internal/platform/kafka"
	"electiondesk/internal/platform/postgres"
	platformredis "electiondesk/internal/platform/redis"
	ratelimitmetrics "electiondesk/internal/ratelimit/metrics"
	ratelimit "electiondesk/internal/ratelimit/middleware"
	ratelimitmodels "electiondesk/internal/ratelimit/models"
	"electiondesk/internal/ratelimit/store/bucket"
	registryhandler "electiondesk/internal/registry/handler"
	registrymetrics "electiondesk/internal/registry/metrics"
	registryservice "electiondesk/internal/registry/service"
	registrystore "electiondesk/internal/registry/store"
	"electiondesk/internal/votes/adapters"
	voteshandler "electiondesk/internal/votes/handler"
	votesmetrics "electiondesk/internal/votes/metrics"
	votesservice "electiondesk/internal/votes/service"
	votesstore "electiondesk/internal/votes/store"
	"electiondesk/pkg/platform/audit"
	auditmetrics "electiondesk/pkg/platform/audit/metrics"
	"electiondesk/pkg/platform/audit/publisher"
	auditkafka "electiondesk/pkg/platform/audit/store/kafka"
	auditmemory "electiondesk/pkg/platform/audit/store/memory"
	"electiondesk/pkg/platform/circuit"
	"electiondesk/pkg/platform/httputil"
)

type app struct {
	log             *slog.Logger
	db              *sql.DB
	redis           *platformredis.Client
	kafka           *kgo.Client
	audit           *publisher.Publisher
	registryHandler *registryhandler.Handler
	votesHandler    *voteshandler.Handler
}

// buildApp connects whichever backends are configured and falls back to the
// in-memory implementation for the rest.
func buildApp(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (_ *app, err error) {
	a := &app{log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.Postgres.DSN != "" {
		if a.db, err = postgres.Open(ctx, cfg.Postgres); err != nil {
			return nil, err
		}
	}
	if a.redis, err = platformredis.New(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	if a.kafka, err = platformkafka.NewClient(cfg.Kafka); err != nil {
		return nil, err
	}

	auditStore, err := a.auditSink(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.audit = publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithBatchSize(cfg.Audit.BatchSize),
		publisher.WithFlushInterval(cfg.Audit.FlushInterval),
		publisher.WithShutdownTimeout(cfg.Audit.ShutdownTimeout),
		publisher.WithLogger(log),
		publisher.WithMetrics(auditmetrics.New(reg)),
		publisher.WithBreaker(circuit.New("audit-sink")),
	)

	registryBackend, err := a.registryBackend(ctx)
	if err != nil {
		return nil, err
	}
	rMetrics := registrymetrics.New(reg)
	cacheOpts := []registrystore.CachedOption{
		registrystore.WithCacheLogger(log),
		registrystore.WithCacheMetrics(rMetrics),
	}
	if a.redis != nil {
		cacheOpts = append(cacheOpts, registrystore.WithSharedCache(
			registrystore.NewRedisCache(a.redis.Client, cfg.Registry.RedisCacheTTL),
			circuit.New("registry-redis"),
		))
	}
	registry := registryservice.New(
		registrystore.NewCached(registryBackend, registrystore.NewLocalCache(cfg.Registry.LocalCacheTTL), cacheOpts...),
		registryservice.WithLogger(log),
		registryservice.WithAuditPublisher(a.audit),
	)
	if cfg.Registry.SeedFile != "" {
		centers, parties, err := registry.SeedFile(ctx, cfg.Registry.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("seed registry: %w", err)
		}
		log.Info("registry seeded", "file", cfg.Registry.SeedFile, "centers", centers, "parties", parties)
	}

	voteStore, err := a.voteStore(ctx)
	if err != nil {
		return nil, err
	}
	votes := votesservice.New(voteStore, adapters.NewRegistryAdapter(registry),
		votesservice.WithLogger(log),
		votesservice.WithMetrics(votesmetrics.New(reg)),
		votesservice.WithAuditPublisher(a.audit),
	)

	a.registryHandler = registryhandler.New(registry, log, cfg.Server.AdminToken)
	a.votesHandler = voteshandler.New(votes, log, voteshandler.WithRateLimit(a.rateLimiter(cfg.RateLimit, reg)))
	return a, nil
}

// rateLimiter shares buckets through Redis when it is configured and keeps a
// local store as the fallback while Redis fails.
func (a *app) rateLimiter(cfg config.RateLimitConfig, reg prometheus.Registerer) *ratelimit.Middleware {
	limits := map[ratelimitmodels.Class]ratelimitmodels.Limit{
		ratelimitmodels.ClassSubmit: {Requests: cfg.Submit, Window: cfg.Window},
		ratelimitmodels.ClassDecide: {Requests: cfg.Decide, Window: cfg.Window},
		ratelimitmodels.ClassRead:   {Requests: cfg.Read, Window: cfg.Window},
	}
	opts := []ratelimit.LimiterOption{
		ratelimit.WithLimiterLogger(a.log),
		ratelimit.WithLimiterMetrics(ratelimitmetrics.New(reg)),
	}
	var primary ratelimit.Store = bucket.NewInMemory()
	if a.redis != nil {
		primary = bucket.NewRedis(a.redis.Client)
		opts = append(opts, ratelimit.WithFallback(bucket.NewInMemory(), circuit.New("ratelimit-redis")))
	}
	return ratelimit.New(ratelimit.NewLimiter(primary, limits, opts...), a.log, ratelimit.WithDisabled(cfg.Disabled))
}

func (a *app) auditSink(ctx context.Context, cfg config.Config) (audit.Store, error) {
	if a.kafka == nil {
		a.log.Warn("no kafka brokers configured, audit events stay in memory")
		return auditmemory.NewInMemoryStore(), nil
	}
	if err := platformkafka.EnsureTopic(ctx, a.kafka, cfg.Kafka.AuditTopic, cfg.Kafka.Partitions); err != nil {
		return nil, err
	}
	return auditkafka.New(a.kafka, cfg.Kafka.AuditTopic), nil
}

func (a *app) registryBackend(ctx context.Context) (registrystore.Backend, error) {
	if a.db == nil {
		a.log.Warn("no database configured, registry is in memory")
		return registrystore.NewInMemory(), nil
	}
	gdb, err := postgres.Gorm(a.db)
	if err != nil {
		return nil, err
	}
	store := registrystore.NewGorm(gdb)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (a *app) voteStore(ctx context.Context) (votesservice.Store, error) {
	if a.db == nil {
		a.log.Warn("no database configured, vote records are in memory")
		return votesstore.NewInMemory(), nil
	}
	if err := postgres.Migrate(ctx, a.db, votesstore.Schema...); err != nil {
		return nil, err
	}
	return votesstore.NewPostgres(a.db), nil
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]string{}
	healthy := true
	if a.db != nil {
		checks["postgres"] = "ok"
		if err := a.db.PingContext(ctx); err != nil {
			checks["postgres"], healthy = err.Error(), false
		}
	}
	if a.redis != nil {
		checks["redis"] = "ok"
		if err := a.redis.Health(ctx); err != nil {
			checks["redis"] = err.Error()
		}
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, map[string]any{"healthy": healthy, "checks": checks})
}

// Close flushes pending audit events before the connections they need go away.
func (a *app) Close() {
	if a.audit != nil {
		a.audit.Close()
	}
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
