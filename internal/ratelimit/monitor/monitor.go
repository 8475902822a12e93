// Package monitor exposes read-only statistics over the counter store, the
// admin reset, and the deny history.
package monitor

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"gatekeeper/internal/ratelimit/metrics"
	"gatekeeper/internal/ratelimit/models"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/privacy"
	"gatekeeper/pkg/requestcontext"
)

const (
	defaultTopKeys      = 10
	defaultRecentLimits = 10
)

type Monitor struct {
	counters     CounterScanner
	hits         HitLog
	metrics      *metrics.Metrics
	logger       *slog.Logger
	topKeys      int
	recentLimits int
}

type Option func(*Monitor)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) {
		m.metrics = mt
	}
}

// WithTopKeys sets how many of the most limited bucket keys Stats reports.
func WithTopKeys(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.topKeys = n
		}
	}
}

func New(counters CounterScanner, hits HitLog, opts ...Option) *Monitor {
	m := &Monitor{
		counters:     counters,
		hits:         hits,
		logger:       slog.Default(),
		topKeys:      defaultTopKeys,
		recentLimits: defaultRecentLimits,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Stats scans live counters and summarises the deny history. The result is a
// point-in-time view, not consistent with concurrent admits.
func (m *Monitor) Stats(ctx context.Context) (*models.Stats, error) {
	keys, err := m.counters.Keys(ctx, models.CounterNamespace+":")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "scan rate limit counters")
	}

	stats := &models.Stats{
		TotalTrackedKeys: len(keys),
		ByUserType:       make(map[string]int),
		ByEndpoint:       make(map[string]int),
		TopLimitedKeys:   []models.KeyCount{},
		RecentLimits:     []models.HitRecord{},
		GeneratedAt:      requestcontext.Now(ctx),
	}
	for _, key := range keys {
		parts, ok := models.ParseCounterKey(key)
		if !ok {
			continue
		}
		stats.ByUserType[string(parts.UserType)]++
		stats.ByEndpoint[string(parts.Category)]++
	}
	if m.metrics != nil {
		m.metrics.SetTrackedKeys(len(keys))
	}

	if m.hits == nil {
		return stats, nil
	}
	recent, err := m.hits.Recent(ctx, 0)
	if err != nil {
		m.logger.WarnContext(ctx, "hit log unavailable for stats",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return stats, nil
	}
	stats.TopLimitedKeys = topLimited(recent, m.topKeys)
	stats.RecentLimits = recent[:min(len(recent), m.recentLimits)]
	return stats, nil
}

func topLimited(records []models.HitRecord, n int) []models.KeyCount {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.BucketKey]++
	}
	out := make([]models.KeyCount, 0, len(counts))
	for key, count := range counts {
		out = append(out, models.KeyCount{BucketKey: key, Count: count})
	}
	slices.SortFunc(out, func(a, b models.KeyCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.BucketKey, b.BucketKey)
	})
	return out[:min(len(out), n)]
}

// Reset deletes every counter of bucketKey ("user:<id>", "ip:<addr>", or a
// bare id covering both) and returns how many were removed. No match is not
// an error.
func (m *Monitor) Reset(ctx context.Context, bucketKey string) (int, error) {
	prefixes, err := models.CounterPrefixes(bucketKey)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, prefix := range prefixes {
		n, err := m.counters.DeletePrefix(ctx, prefix)
		removed += n
		if err != nil {
			return removed, dErrors.Wrap(err, dErrors.CodeUnavailable, "delete rate limit counters")
		}
	}

	if m.metrics != nil {
		m.metrics.AddResetKeys(removed)
	}
	m.logger.InfoContext(ctx, "rate limit counters reset",
		"bucket_key", bucketKey,
		"keys_deleted", removed,
		"request_id", requestcontext.RequestID(ctx),
	)
	return removed, nil
}

// RecordHit appends a deny record. Failures are logged and counted only.
func (m *Monitor) RecordHit(ctx context.Context, rc models.RequestContext, c models.Classification, rule string) {
	if m.hits == nil {
		return
	}
	rec := models.HitRecord{
		Timestamp:     requestcontext.Now(ctx),
		BucketKey:     c.BucketKey.String(),
		UserType:      c.UserType,
		Endpoint:      rc.Path,
		Method:        rc.Method,
		Category:      c.Category,
		Rule:          rule,
		RemoteAddress: rc.RemoteAddress,
		UserAgent:     rc.UserAgent,
		Browser:       describeAgent(rc.UserAgent),
	}
	if err := m.hits.Append(ctx, rec); err != nil {
		if m.metrics != nil {
			m.metrics.IncrementHitRecordFailures()
		}
		m.logger.WarnContext(ctx, "failed to record rate limit hit",
			"error", err,
			"ip_prefix", privacy.AnonymizeIP(rc.RemoteAddress),
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	if m.metrics != nil {
		m.metrics.IncrementHitsRecorded()
	}
}

// RecentHits returns up to limit deny records, newest first.
func (m *Monitor) RecentHits(ctx context.Context, limit int) ([]models.HitRecord, error) {
	if m.hits == nil {
		return []models.HitRecord{}, nil
	}
	records, err := m.hits.Recent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read hit log")
	}
	return records, nil
}
