// Package middleware runs every request through identity resolution,
// classification, quota resolution and admission before the router.
package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"gatekeeper/internal/ratelimit/classifier"
	"gatekeeper/internal/ratelimit/identity"
	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/pkg/platform/httputil"
	"gatekeeper/pkg/platform/middleware/metadata"
	"gatekeeper/pkg/platform/privacy"
	"gatekeeper/pkg/requestcontext"
)

const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderStatus     = "X-RateLimit-Status"
	HeaderRetryAfter = "Retry-After"
)

type Middleware struct {
	identities IdentityResolver
	quotas     QuotaResolver
	limiter    Admitter
	hits       HitRecorder
	peers      *metadata.Middleware
	logger     *slog.Logger
}

type Option func(*Middleware)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) {
		m.logger = logger
	}
}

// WithHitRecorder records every denial. Without it denials are only logged.
func WithHitRecorder(hits HitRecorder) Option {
	return func(m *Middleware) {
		m.hits = hits
	}
}

func New(identities IdentityResolver, quotas QuotaResolver, limiter Admitter, opts ...Option) *Middleware {
	m := &Middleware{
		identities: identities,
		quotas:     quotas,
		limiter:    limiter,
		peers:      metadata.NewMiddleware(nil),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler attaches the resolved principal to the request context and either
// passes the request on or answers 429.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rc := models.RequestContext{
			Method:        r.Method,
			Path:          r.URL.Path,
			RemoteAddress: requestcontext.ClientIP(ctx),
			UserAgent:     requestcontext.UserAgent(ctx),
		}
		if rc.RemoteAddress == "" {
			rc.RemoteAddress = m.peers.ClientIP(r)
		}
		if rc.UserAgent == "" {
			rc.UserAgent = r.UserAgent()
		}
		if m.identities != nil {
			rc.Identity = m.identities.Resolve(ctx, identity.BearerToken(r.Header.Get("Authorization")))
		}
		if rc.Identity != nil {
			ctx = requestcontext.WithPrincipal(ctx, requestcontext.Principal{
				UserID: rc.Identity.ID,
				Role:   string(rc.Identity.Role),
			})
			r = r.WithContext(ctx)
		}

		c := classifier.Classify(rc)
		decision := m.limiter.Admit(ctx, c, m.quotas.Resolve(c))

		if !decision.Unbounded {
			setHeaders(w, decision)
		}
		if decision.Allowed {
			next.ServeHTTP(w, r)
			return
		}

		m.logger.InfoContext(ctx, "rate limit exceeded",
			"bucket_key", redactBucket(c.BucketKey),
			"user_type", c.UserType,
			"category", c.Category,
			"rule", decision.Rule,
			"degraded", decision.Degraded,
			"request_id", requestcontext.RequestID(ctx),
		)
		if m.hits != nil {
			m.hits.RecordHit(ctx, rc, c, decision.Rule)
		}
		writeExceeded(w, decision)
	})
}

func setHeaders(w http.ResponseWriter, d *models.Decision) {
	h := w.Header()
	h.Set(HeaderLimit, strconv.Itoa(d.Limit))
	h.Set(HeaderRemaining, strconv.Itoa(d.Remaining))
	h.Set(HeaderReset, strconv.FormatInt(d.ResetAt.Unix(), 10))
	if d.Degraded {
		h.Set(HeaderStatus, "degraded")
	}
}

func writeExceeded(w http.ResponseWriter, d *models.Decision) {
	w.Header().Set(HeaderRetryAfter, strconv.Itoa(d.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Rate limit exceeded: " + d.Rule + ". Please try again later.",
		RetryAfter: d.RetryAfter,
		Limit:      d.Rule,
	})
}

// redactBucket keeps user ids but anonymizes IP buckets for logs.
func redactBucket(k models.BucketKey) string {
	prefix, id, ok := k.Split()
	if ok && prefix == models.KeyPrefixIP {
		return string(models.NewIPBucketKey(privacy.AnonymizeIP(id)))
	}
	return k.String()
}
