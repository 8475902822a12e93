package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	jwttoken "gatekeeper/internal/jwt_token"
	"gatekeeper/internal/ratelimit/config"
	"gatekeeper/internal/ratelimit/identity"
	"gatekeeper/internal/ratelimit/limiter"
	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/internal/ratelimit/monitor"
	"gatekeeper/internal/ratelimit/quota"
	"gatekeeper/internal/ratelimit/store/counter"
	"gatekeeper/internal/ratelimit/store/hitlog"
	"gatekeeper/pkg/requestcontext"
)

type MiddlewareSuite struct {
	suite.Suite
	logger  *slog.Logger
	tokens  *jwttoken.JWTService
	hits    *hitlog.InMemoryStore
	monitor *monitor.Monitor
	handler http.Handler
	seen    *requestcontext.Principal
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.tokens = jwttoken.NewJWTService("test-signing-key", "gatekeeper", "gatekeeper-api", time.Hour)
	s.build(s.settings(), counter.NewInMemoryStore())
}

func (s *MiddlewareSuite) settings() config.Settings {
	return config.Settings{
		Default:   "100/minute",
		Endpoints: map[string]string{"health": "1000/minute"},
		UserTypes: map[string]map[string]string{
			"anonymous":     {"auth_login": "2/hour", "default": "50/hour"},
			"authenticated": {"api_read": "3/hour"},
			"premium":       {"api_read": "5/hour"},
		},
		Whitelist: []string{"10.9.9.9"},
	}
}

func (s *MiddlewareSuite) build(settings config.Settings, store limiter.CounterStore) {
	cfg, err := settings.Compile()
	s.Require().NoError(err)

	s.hits = hitlog.NewInMemoryStore(cfg.HitLogCapacity, cfg.HitLogRetention)
	counters := counter.NewInMemoryStore()
	s.monitor = monitor.New(counters, s.hits, monitor.WithLogger(s.logger))

	mw := New(
		identity.New(s.tokens, identity.WithLogger(s.logger)),
		quota.NewResolver(cfg),
		limiter.New(store, cfg, limiter.WithLogger(s.logger)),
		WithLogger(s.logger),
		WithHitRecorder(s.monitor),
	)
	s.seen = nil
	s.handler = mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := requestcontext.GetPrincipal(r.Context()); ok {
			s.seen = &p
		}
		w.WriteHeader(http.StatusNoContent)
	}))
}

func (s *MiddlewareSuite) do(method, path, remote, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remote + ":5555"
	req.Header.Set("User-Agent", "curl/8.4.0")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *MiddlewareSuite) token(userID, role string) string {
	tok, err := s.tokens.GenerateAccessToken(context.Background(), userID, role)
	s.Require().NoError(err)
	return tok
}

func (s *MiddlewareSuite) TestAnonymousLoginIsLimitedByIP() {
	for i := range 2 {
		rec := s.do(http.MethodPost, "/api/v1/auth/login", "198.51.100.1", "")
		s.Equal(http.StatusNoContent, rec.Code)
		s.Equal("2", rec.Header().Get(HeaderLimit))
		s.Equal(strconv.Itoa(1-i), rec.Header().Get(HeaderRemaining))
		s.NotEmpty(rec.Header().Get(HeaderReset))
	}

	rec := s.do(http.MethodPost, "/api/v1/auth/login", "198.51.100.1", "")
	s.Equal(http.StatusTooManyRequests, rec.Code)

	retryAfter, err := strconv.Atoi(rec.Header().Get(HeaderRetryAfter))
	s.Require().NoError(err)
	s.Positive(retryAfter)
	s.LessOrEqual(retryAfter, 3600)

	var body models.RateLimitExceededResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("rate_limit_exceeded", body.Error)
	s.Equal("2/hour", body.Limit)
	s.Equal(retryAfter, body.RetryAfter)

	s.Equal(http.StatusNoContent, s.do(http.MethodPost, "/api/v1/auth/login", "198.51.100.2", "").Code,
		"other addresses have their own bucket")
}

func (s *MiddlewareSuite) TestDenialIsRecorded() {
	for range 3 {
		s.do(http.MethodPost, "/auth/login", "198.51.100.3", "")
	}

	hits, err := s.monitor.RecentHits(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(hits, 1)
	s.Equal("ip:198.51.100.3", hits[0].BucketKey)
	s.Equal("/auth/login", hits[0].Endpoint)
	s.Equal(models.CategoryAuthLogin, hits[0].Category)
	s.Equal("2/hour", hits[0].Rule)
	s.Equal("curl/8.4.0", hits[0].UserAgent)
}

func (s *MiddlewareSuite) TestAuthenticatedUsesUserBucket() {
	tok := s.token("u-1", "user")
	for range 3 {
		s.Equal(http.StatusNoContent, s.do(http.MethodGet, "/api/v1/users/", "198.51.100.4", tok).Code)
	}
	s.Require().NotNil(s.seen)
	s.Equal("u-1", s.seen.UserID)

	s.Equal(http.StatusTooManyRequests, s.do(http.MethodGet, "/api/v1/users/", "198.51.100.99", tok).Code,
		"user buckets follow the user across addresses")
	s.Equal(http.StatusNoContent, s.do(http.MethodGet, "/api/v1/users/", "198.51.100.4", s.token("u-2", "user")).Code)
}

func (s *MiddlewareSuite) TestPremiumRoles() {
	rec := s.do(http.MethodGet, "/api/v1/users/", "198.51.100.5", s.token("admin-1", "admin"))
	s.Equal("5", rec.Header().Get(HeaderLimit))
}

func (s *MiddlewareSuite) TestInvalidTokenIsAnonymous() {
	rec := s.do(http.MethodGet, "/api/v1/users/", "198.51.100.6", "not-a-jwt")
	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal("50", rec.Header().Get(HeaderLimit))
	s.Nil(s.seen)
}

func (s *MiddlewareSuite) TestWhitelistSkipsHeaders() {
	for range 5 {
		rec := s.do(http.MethodPost, "/auth/login", "10.9.9.9", "")
		s.Equal(http.StatusNoContent, rec.Code)
		s.Empty(rec.Header().Get(HeaderLimit))
	}
}

func (s *MiddlewareSuite) TestDegradedStoreFailsOpen() {
	s.build(s.settings(), failingStore{})

	rec := s.do(http.MethodPost, "/auth/login", "198.51.100.7", "")
	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal("degraded", rec.Header().Get(HeaderStatus))
}

func (s *MiddlewareSuite) TestDegradedStoreFailsClosed() {
	settings := s.settings()
	settings.FailurePolicy = string(config.FailClosed)
	s.build(settings, failingStore{})

	rec := s.do(http.MethodPost, "/auth/login", "198.51.100.8", "")
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("1", rec.Header().Get(HeaderRetryAfter))
	s.Equal("degraded", rec.Header().Get(HeaderStatus))
}

func (s *MiddlewareSuite) TestRedactBucket() {
	s.Equal("ip:198.51.100.0", redactBucket("ip:198.51.100.77"))
	s.Equal("user:42", redactBucket("user:42"))
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (models.CounterResult, error) {
	return models.CounterResult{}, errors.New("connection refused")
}
