package monitor

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks CounterScanner,HitLog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"gatekeeper/internal/ratelimit/metrics"
	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/internal/ratelimit/monitor/mocks"
	"gatekeeper/internal/ratelimit/store/counter"
	"gatekeeper/internal/ratelimit/store/hitlog"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/requestcontext"
)

type MonitorSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	scanner  *mocks.MockCounterScanner
	hitLog   *mocks.MockHitLog
	counters *counter.InMemoryStore
	hits     *hitlog.InMemoryStore
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      time.Time
	ctx      context.Context
}

func TestMonitorSuite(t *testing.T) {
	suite.Run(t, new(MonitorSuite))
}

func (s *MonitorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.scanner = mocks.NewMockCounterScanner(s.ctrl)
	s.hitLog = mocks.NewMockHitLog(s.ctrl)
	s.counters = counter.NewInMemoryStore()
	s.hits = hitlog.NewInMemoryStore(100, 24*time.Hour)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *MonitorSuite) newMonitor() *Monitor {
	return New(s.counters, s.hits, WithLogger(s.logger), WithMetrics(s.metrics))
}

func (s *MonitorSuite) seed(c models.Classification, rule string, times int) {
	r := models.MustParseRule(rule)
	for range times {
		_, err := s.counters.Allow(s.ctx, models.CounterKey(c, r), r.Count, r.Window())
		s.Require().NoError(err)
	}
}

func classification(bucket models.BucketKey, ut models.UserType, cat models.EndpointCategory) models.Classification {
	return models.Classification{UserType: ut, Category: cat, BucketKey: bucket}
}

func (s *MonitorSuite) TestStatsBreakdown() {
	s.seed(classification("user:42", models.UserTypeAuthenticated, models.CategoryAPIRead), "5000/hour", 3)
	s.seed(classification("user:42", models.UserTypeAuthenticated, models.CategoryAPIWrite), "1000/hour", 1)
	s.seed(classification("ip:10.0.0.1", models.UserTypeAnonymous, models.CategoryAuthLogin), "10/hour", 2)

	m := s.newMonitor()
	for range 3 {
		m.RecordHit(s.ctx, models.RequestContext{Method: "POST", Path: "/auth/login", RemoteAddress: "10.0.0.1"},
			classification("ip:10.0.0.1", models.UserTypeAnonymous, models.CategoryAuthLogin), "10/hour")
	}
	m.RecordHit(s.ctx, models.RequestContext{Method: "GET", Path: "/api/v1/users/"},
		classification("user:42", models.UserTypeAuthenticated, models.CategoryAPIRead), "5000/hour")

	stats, err := m.Stats(s.ctx)
	s.Require().NoError(err)

	s.Equal(3, stats.TotalTrackedKeys)
	s.Equal(map[string]int{"authenticated": 2, "anonymous": 1}, stats.ByUserType)
	s.Equal(map[string]int{"api_read": 1, "api_write": 1, "auth_login": 1}, stats.ByEndpoint)
	s.Equal([]models.KeyCount{{BucketKey: "ip:10.0.0.1", Count: 3}, {BucketKey: "user:42", Count: 1}}, stats.TopLimitedKeys)
	s.Len(stats.RecentLimits, 4)
	s.Equal("user:42", stats.RecentLimits[0].BucketKey)
	s.Equal(s.now, stats.GeneratedAt)
	s.Equal(3.0, testutil.ToFloat64(s.metrics.TrackedKeys))
}

func (s *MonitorSuite) TestStatsTopKeysLimit() {
	m := New(s.counters, s.hits, WithLogger(s.logger), WithTopKeys(1))
	for _, ip := range []string{"10.0.0.1", "10.0.0.1", "10.0.0.2"} {
		m.RecordHit(s.ctx, models.RequestContext{Method: "GET", Path: "/nope", RemoteAddress: ip},
			classification(models.BucketKey("ip:"+ip), models.UserTypeAnonymous, models.CategoryDefault), "50/hour")
	}

	stats, err := m.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal([]models.KeyCount{{BucketKey: "ip:10.0.0.1", Count: 2}}, stats.TopLimitedKeys)
	s.Len(stats.RecentLimits, 3)
}

func (s *MonitorSuite) TestStatsDoesNotMutate() {
	c := classification("ip:10.0.0.1", models.UserTypeAnonymous, models.CategoryDefault)
	s.seed(c, "50/hour", 2)
	m := s.newMonitor()

	_, err := m.Stats(s.ctx)
	s.Require().NoError(err)

	res, err := s.counters.Allow(s.ctx, models.CounterKey(c, models.MustParseRule("50/hour")), 50, time.Hour)
	s.Require().NoError(err)
	s.Equal(3, res.Count)
}

func (s *MonitorSuite) TestStatsEmpty() {
	stats, err := s.newMonitor().Stats(s.ctx)
	s.Require().NoError(err)
	s.Zero(stats.TotalTrackedKeys)
	s.Empty(stats.ByUserType)
	s.NotNil(stats.TopLimitedKeys)
	s.NotNil(stats.RecentLimits)
}

func (s *MonitorSuite) TestStatsStoreFailure() {
	s.scanner.EXPECT().Keys(gomock.Any(), "rate_limit:").Return(nil, errors.New("connection refused"))

	_, err := New(s.scanner, s.hitLog, WithLogger(s.logger)).Stats(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *MonitorSuite) TestStatsSurvivesHitLogFailure() {
	s.scanner.EXPECT().Keys(gomock.Any(), "rate_limit:").Return([]string{"rate_limit:ip:1:anonymous:default:50/hour"}, nil)
	s.hitLog.EXPECT().Recent(gomock.Any(), 0).Return(nil, errors.New("timeout"))

	stats, err := New(s.scanner, s.hitLog, WithLogger(s.logger)).Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.TotalTrackedKeys)
	s.Empty(stats.TopLimitedKeys)
}

func (s *MonitorSuite) TestReset() {
	s.seed(classification("user:42", models.UserTypeAuthenticated, models.CategoryAPIRead), "5000/hour", 3)
	s.seed(classification("user:42", models.UserTypeAuthenticated, models.CategoryAPIWrite), "1000/hour", 1)
	s.seed(classification("user:420", models.UserTypeAuthenticated, models.CategoryAPIRead), "5000/hour", 1)
	s.seed(classification("ip:42", models.UserTypeAnonymous, models.CategoryDefault), "50/hour", 1)
	m := s.newMonitor()

	s.Run("no match returns zero", func() {
		n, err := m.Reset(s.ctx, "user:nobody")
		s.Require().NoError(err)
		s.Zero(n)
	})

	s.Run("prefixed key removes only that bucket", func() {
		n, err := m.Reset(s.ctx, "user:42")
		s.Require().NoError(err)
		s.Equal(2, n)

		n, err = m.Reset(s.ctx, "user:42")
		s.Require().NoError(err)
		s.Zero(n)
	})

	s.Run("bare id covers both prefixes", func() {
		s.seed(classification("user:42", models.UserTypeAuthenticated, models.CategoryAPIRead), "5000/hour", 1)
		n, err := m.Reset(s.ctx, "42")
		s.Require().NoError(err)
		s.Equal(2, n)
	})

	s.Run("empty key is a validation error", func() {
		_, err := m.Reset(s.ctx, "  ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	keys, err := s.counters.Keys(s.ctx, "rate_limit:")
	s.Require().NoError(err)
	s.Equal([]string{"rate_limit:user:420:authenticated:api_read:5000/hour"}, keys)
	s.Equal(4.0, testutil.ToFloat64(s.metrics.ResetKeysTotal))
}

func (s *MonitorSuite) TestResetStartsFreshWindow() {
	c := classification("ip:10.0.0.9", models.UserTypeAnonymous, models.CategoryAuthLogin)
	rule := models.MustParseRule("2/hour")
	s.seed(c, "2/hour", 2)

	res, err := s.counters.Allow(s.ctx, models.CounterKey(c, rule), 2, time.Hour)
	s.Require().NoError(err)
	s.Require().False(res.Allowed)

	n, err := s.newMonitor().Reset(s.ctx, "ip:10.0.0.9")
	s.Require().NoError(err)
	s.Equal(1, n)

	res, err = s.counters.Allow(s.ctx, models.CounterKey(c, rule), 2, time.Hour)
	s.Require().NoError(err)
	s.True(res.Allowed)
	s.Equal(1, res.Count)
}

func (s *MonitorSuite) TestRecordHit() {
	m := s.newMonitor()
	rc := models.RequestContext{
		Method:        "POST",
		Path:          "/api/v1/auth/login",
		RemoteAddress: "198.51.100.7",
		UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/42.0.2311.135 Safari/537.36 Edge/12.10240",
	}
	c := classification("ip:198.51.100.7", models.UserTypeAnonymous, models.CategoryAuthLogin)

	m.RecordHit(s.ctx, rc, c, "10/hour")

	hits, err := m.RecentHits(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(hits, 1)
	s.Equal(models.HitRecord{
		Timestamp:     s.now,
		BucketKey:     "ip:198.51.100.7",
		UserType:      models.UserTypeAnonymous,
		Endpoint:      "/api/v1/auth/login",
		Method:        "POST",
		Category:      models.CategoryAuthLogin,
		Rule:          "10/hour",
		RemoteAddress: "198.51.100.7",
		UserAgent:     rc.UserAgent,
		Browser:       "Edge on Windows 10",
	}, hits[0])
	s.Equal(1.0, testutil.ToFloat64(s.metrics.HitsRecordedTotal))
}

func (s *MonitorSuite) TestRecordHitFailureIsSwallowed() {
	s.hitLog.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("OOM"))

	m := New(s.scanner, s.hitLog, WithLogger(s.logger), WithMetrics(s.metrics))
	m.RecordHit(s.ctx, models.RequestContext{}, classification("ip:1", models.UserTypeAnonymous, models.CategoryDefault), "50/hour")

	s.Equal(1.0, testutil.ToFloat64(s.metrics.HitRecordFailuresTotal))
}

func (s *MonitorSuite) TestTopLimitedOrdering() {
	at := s.now
	recs := []models.HitRecord{
		{BucketKey: "ip:b", Timestamp: at}, {BucketKey: "ip:a", Timestamp: at},
		{BucketKey: "ip:c", Timestamp: at}, {BucketKey: "ip:c", Timestamp: at},
	}
	s.Equal([]models.KeyCount{{BucketKey: "ip:c", Count: 2}, {BucketKey: "ip:a", Count: 1}}, topLimited(recs, 2))
}

func (s *MonitorSuite) TestDescribeAgent() {
	s.Empty(describeAgent(""))
	s.Equal("bot: Googlebot", describeAgent("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"))
}
