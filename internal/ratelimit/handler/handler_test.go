package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"gatekeeper/internal/ratelimit/handler/mocks"
	"gatekeeper/internal/ratelimit/models"
	dErrors "gatekeeper/pkg/domain-errors"
)

type HandlerSuite struct {
	suite.Suite
	router      http.Handler
	ctrl        *gomock.Controller
	mockService *mocks.MockService
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	r := chi.NewRouter()
	New(s.mockService, logger).RegisterAdmin(r)
	s.router = r
}

func (s *HandlerSuite) serve(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func (s *HandlerSuite) TestStats() {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.mockService.EXPECT().Stats(gomock.Any()).Return(&models.Stats{
		TotalTrackedKeys: 2,
		ByUserType:       map[string]int{"anonymous": 2},
		ByEndpoint:       map[string]int{"auth_login": 1, "default": 1},
		TopLimitedKeys:   []models.KeyCount{{BucketKey: "ip:10.0.0.1", Count: 4}},
		RecentLimits:     []models.HitRecord{},
		GeneratedAt:      at,
	}, nil)

	rec := s.serve(http.MethodGet, "/admin/rate-limits/stats")

	s.Equal(http.StatusOK, rec.Code)
	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.EqualValues(2, body["total_tracked_keys"])
	s.Equal(map[string]any{"anonymous": float64(2)}, body["by_user_type"])
	s.Len(body["top_limited_keys"], 1)
}

func (s *HandlerSuite) TestStatsStoreDown() {
	s.mockService.EXPECT().Stats(gomock.Any()).
		Return(nil, dErrors.Wrap(errors.New("dial tcp"), dErrors.CodeUnavailable, "scan rate limit counters"))

	rec := s.serve(http.MethodGet, "/admin/rate-limits/stats")

	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *HandlerSuite) TestReset() {
	s.Run("prefixed key", func() {
		s.mockService.EXPECT().Reset(gomock.Any(), "user:42").Return(3, nil)

		rec := s.serve(http.MethodDelete, "/admin/rate-limits/reset/user:42")

		s.Equal(http.StatusOK, rec.Code)
		var body models.ResetResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal(3, body.KeysDeleted)
		s.Contains(body.Message, "user:42")
	})

	s.Run("escaped ipv6 key", func() {
		s.mockService.EXPECT().Reset(gomock.Any(), "ip:2001:db8::1").Return(0, nil)

		rec := s.serve(http.MethodDelete, "/admin/rate-limits/reset/ip%3A2001%3Adb8%3A%3A1")

		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("blank key", func() {
		rec := s.serve(http.MethodDelete, "/admin/rate-limits/reset/%20")

		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestRecentHits() {
	s.Run("default limit", func() {
		s.mockService.EXPECT().RecentHits(gomock.Any(), models.DefaultHitsLimit).Return(nil, nil)

		rec := s.serve(http.MethodGet, "/admin/rate-limits/hits")

		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"hits":[],"count":0}`, rec.Body.String())
	})

	s.Run("limit is capped", func() {
		s.mockService.EXPECT().RecentHits(gomock.Any(), models.MaxHitsLimit).
			Return([]models.HitRecord{{BucketKey: "ip:10.0.0.1"}}, nil)

		rec := s.serve(http.MethodGet, "/admin/rate-limits/hits?limit=5000")

		s.Equal(http.StatusOK, rec.Code)
		var body models.HitsResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal(1, body.Count)
	})

	s.Run("invalid limit", func() {
		rec := s.serve(http.MethodGet, "/admin/rate-limits/hits?limit=abc")

		s.Equal(http.StatusBadRequest, rec.Code)
	})
}
