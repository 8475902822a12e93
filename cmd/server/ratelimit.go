package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	jwttoken "gatekeeper/internal/jwt_token"
	redisclient "gatekeeper/internal/platform/redis"
	rlconfig "gatekeeper/internal/ratelimit/config"
	"gatekeeper/internal/ratelimit/handler"
	"gatekeeper/internal/ratelimit/identity"
	"gatekeeper/internal/ratelimit/limiter"
	rlmetrics "gatekeeper/internal/ratelimit/metrics"
	"gatekeeper/internal/ratelimit/middleware"
	"gatekeeper/internal/ratelimit/monitor"
	"gatekeeper/internal/ratelimit/quota"
	"gatekeeper/internal/ratelimit/store/counter"
	"gatekeeper/internal/ratelimit/store/hitlog"
	"gatekeeper/internal/ratelimit/workers/cleanup"
	"gatekeeper/pkg/platform/circuit"
)

type rateLimitStack struct {
	middleware *middleware.Middleware
	admin      *handler.Handler
	cleanup    *cleanup.Service
	storeKind  string
}

// buildRateLimit assembles the limiter pipeline. With Redis, counters and the
// hit log are shared across instances and a local in-memory store takes over
// while the Redis circuit is open. Without Redis everything is process local.
func buildRateLimit(
	cfg *rlconfig.Config,
	redis *redisclient.Client,
	tokens *jwttoken.JWTService,
	users identity.UserLookup,
	reg prometheus.Registerer,
	log *slog.Logger,
) *rateLimitStack {
	m := rlmetrics.New(reg)
	local := counter.NewInMemoryStore()

	var (
		primary   limiter.CounterStore
		scanner   monitor.CounterScanner
		hits      monitor.HitLog
		kind      string
		limitOpts = []limiter.Option{
			limiter.WithLogger(log),
			limiter.WithMetrics(m),
			limiter.WithTracer(otel.Tracer("gatekeeper/ratelimit")),
		}
		cleanOpts = []cleanup.Option{cleanup.WithLogger(log), cleanup.WithMetrics(m)}
	)
	if redis != nil {
		shared := counter.NewRedisStore(redis.Client)
		// Reset and stats must see the local counters the limiter uses while
		// the Redis circuit is open.
		primary, kind = shared, "redis"
		scanner = counter.NewCompositeScanner(log, shared, local)
		hits = hitlog.NewRedisStore(redis.Client, cfg.HitLogCapacity, cfg.HitLogRetention, hitlog.WithLogger(log))
		limitOpts = append(limitOpts, limiter.WithFallback(local, circuit.New("redis_counter_store")))
		cleanOpts = append(cleanOpts, cleanup.WithTarget("fallback_counters", local))
	} else {
		memHits := hitlog.NewInMemoryStore(cfg.HitLogCapacity, cfg.HitLogRetention)
		primary, scanner, hits, kind = local, local, memHits, "memory"
		cleanOpts = append(cleanOpts,
			cleanup.WithTarget("counters", local),
			cleanup.WithTarget("hits", memHits),
		)
	}

	mon := monitor.New(scanner, hits,
		monitor.WithLogger(log),
		monitor.WithMetrics(m),
		monitor.WithTopKeys(cfg.StatsTopKeys),
	)
	mw := middleware.New(
		identity.New(tokens, identity.WithLogger(log), identity.WithUserLookup(users)),
		quota.NewResolver(cfg),
		limiter.New(primary, cfg, limitOpts...),
		middleware.WithLogger(log),
		middleware.WithHitRecorder(mon),
	)

	return &rateLimitStack{
		middleware: mw,
		admin:      handler.New(mon, log),
		cleanup:    cleanup.New(cleanOpts...),
		storeKind:  kind,
	}
}
