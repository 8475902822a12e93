// Package limiter decides admission for a classified request against its
// effective quota using a shared fixed-window counter.
package limiter

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"gatekeeper/internal/ratelimit/config"
	"gatekeeper/internal/ratelimit/metrics"
	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/pkg/platform/circuit"
	"gatekeeper/pkg/requestcontext"
)

const storeWarnInterval = 10 * time.Second

type Limiter struct {
	store   CounterStore
	policy  config.FailurePolicy
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer

	// fallback counts locally while breaker is open.
	fallback CounterStore
	breaker  *circuit.Breaker

	// storeWarn throttles outage logs; every failure is still counted.
	storeWarn rate.Sometimes
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(l *Limiter) {
		l.tracer = t
	}
}

// WithFallback keeps enforcing quotas per instance once the primary store
// has failed often enough to open breaker. Decisions served by the fallback
// are marked degraded; the primary is still tried first on every request so
// the breaker can close.
func WithFallback(store CounterStore, breaker *circuit.Breaker) Option {
	return func(l *Limiter) {
		l.fallback = store
		l.breaker = breaker
	}
}

// New builds a limiter over store using the failure policy and store timeout
// from cfg.
func New(store CounterStore, cfg *config.Config, opts ...Option) *Limiter {
	l := &Limiter{
		store:     store,
		policy:    cfg.FailurePolicy,
		timeout:   cfg.StoreTimeout,
		logger:    slog.Default(),
		storeWarn: rate.Sometimes{First: 1, Interval: storeWarnInterval},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.tracer == nil {
		l.tracer = otel.Tracer("gatekeeper/ratelimit")
	}
	if l.policy == "" {
		l.policy = config.FailOpen
	}
	if l.timeout <= 0 {
		l.timeout = config.DefaultStoreTimeout
	}
	return l
}

// Admit counts the request against its bucket and returns the decision.
// Unbounded quotas are admitted without touching the store. Store failures
// and timeouts resolve through the failure policy; Admit never errors.
func (l *Limiter) Admit(ctx context.Context, c models.Classification, q models.EffectiveQuota) *models.Decision {
	if q.Unbounded {
		l.observe(c, metrics.OutcomeUnbounded)
		return &models.Decision{Allowed: true, Unbounded: true}
	}

	rule := q.Rule
	key := models.CounterKey(c, rule)

	ctx, span := l.tracer.Start(ctx, "ratelimit.admit", trace.WithAttributes(
		attribute.String("ratelimit.user_type", string(c.UserType)),
		attribute.String("ratelimit.category", string(c.Category)),
		attribute.String("ratelimit.rule", rule.String()),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	storeCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	res, err := l.store.Allow(storeCtx, key, rule.Count, rule.Window())
	if l.metrics != nil {
		l.metrics.ObserveStoreLatency(time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "counter store unavailable")
		l.storeFailed(ctx, err)
		if d, ok := l.admitFallback(ctx, span, c, key, rule, now); ok {
			return d
		}
		return l.applyPolicy(c, rule, now)
	}
	l.recordPrimarySuccess(ctx)

	return l.decide(span, c, rule, now, res, false)
}

func (l *Limiter) decide(span trace.Span, c models.Classification, rule models.QuotaRule, now time.Time, res models.CounterResult, degraded bool) *models.Decision {
	d := &models.Decision{
		Allowed:   res.Allowed,
		Degraded:  degraded,
		Limit:     rule.Count,
		Remaining: max(rule.Count-res.Count, 0),
		ResetAt:   now.Add(res.TTL),
		Rule:      rule.String(),
	}
	outcome := metrics.OutcomeAllowed
	if !res.Allowed {
		d.RetryAfter = RetryAfterSeconds(res.TTL, rule.Window())
		outcome = metrics.OutcomeDenied
	}
	if degraded {
		outcome = metrics.OutcomeDegraded
	}
	span.SetAttributes(
		attribute.Bool("ratelimit.allowed", d.Allowed),
		attribute.Bool("ratelimit.degraded", degraded),
		attribute.Int("ratelimit.count", res.Count),
	)
	l.observe(c, outcome)
	return d
}

func (l *Limiter) storeFailed(ctx context.Context, err error) {
	kind := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		kind = "timeout"
	}
	if l.metrics != nil {
		l.metrics.IncrementStoreErrors(kind)
	}
	l.storeWarn.Do(func() {
		l.logger.WarnContext(ctx, "rate limit counter store unavailable",
			"error", err,
			"kind", kind,
			"failure_policy", string(l.policy),
			"request_id", requestcontext.RequestID(ctx),
		)
	})
}

// admitFallback reports ok=false when there is no fallback, the breaker is
// still closed, or the fallback failed too.
func (l *Limiter) admitFallback(ctx context.Context, span trace.Span, c models.Classification, key string, rule models.QuotaRule, now time.Time) (*models.Decision, bool) {
	if l.breaker == nil {
		return nil, false
	}
	open, t := l.breaker.RecordFailure()
	if t.Opened {
		l.logger.WarnContext(ctx, "counter store circuit opened, enforcing with local counters",
			"breaker", l.breaker.Name(),
		)
	}
	if !open || l.fallback == nil {
		return nil, false
	}

	res, err := l.fallback.Allow(ctx, key, rule.Count, rule.Window())
	if err != nil {
		return nil, false
	}
	return l.decide(span, c, rule, now, res, true), true
}

func (l *Limiter) recordPrimarySuccess(ctx context.Context) {
	if l.breaker == nil {
		return
	}
	if _, t := l.breaker.RecordSuccess(); t.Closed {
		l.logger.InfoContext(ctx, "counter store circuit closed", "breaker", l.breaker.Name())
	}
}

// applyPolicy decides without any counter: open admits, closed denies for
// one second.
func (l *Limiter) applyPolicy(c models.Classification, rule models.QuotaRule, now time.Time) *models.Decision {
	l.observe(c, metrics.OutcomeDegraded)

	if l.policy == config.FailClosed {
		return &models.Decision{
			Allowed:    false,
			Degraded:   true,
			Limit:      rule.Count,
			RetryAfter: 1,
			ResetAt:    now.Add(time.Second),
			Rule:       rule.String(),
		}
	}
	return &models.Decision{
		Allowed:   true,
		Degraded:  true,
		Limit:     rule.Count,
		Remaining: rule.Count,
		ResetAt:   now.Add(rule.Window()),
		Rule:      rule.String(),
	}
}

func (l *Limiter) observe(c models.Classification, outcome string) {
	if l.metrics != nil {
		l.metrics.ObserveDecision(string(c.UserType), string(c.Category), outcome)
	}
}

// RetryAfterSeconds rounds the time left in the window up to whole seconds,
// clamped to [1, window].
func RetryAfterSeconds(ttl, window time.Duration) int {
	upper := max(int(math.Ceil(window.Seconds())), 1)
	secs := int(math.Ceil(ttl.Seconds()))
	return min(max(secs, 1), upper)
}
