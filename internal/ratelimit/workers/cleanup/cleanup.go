package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gatekeeper/internal/ratelimit/metrics"
)

// Cleaner purges expired entries from an in-memory store. Redis-backed stores
// expire their keys on their own and are never registered.
type Cleaner interface {
	Cleanup(ctx context.Context) (int, error)
}

// Result contains the outcome of one cleanup run.
type Result struct {
	Removed  map[string]int // entries removed, by target name
	Duration time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTarget registers a store under name. Targets run in name order.
func WithTarget(name string, c Cleaner) Option {
	return func(s *Service) {
		if c != nil {
			s.targets[name] = c
		}
	}
}

type Service struct {
	targets  map[string]Cleaner
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics
}

func New(opts ...Option) *Service {
	service := &Service{
		targets:  make(map[string]Cleaner),
		logger:   slog.Default(),
		interval: time.Minute,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Targets reports how many stores are registered.
func (s *Service) Targets() int {
	return len(s.targets)
}

// Start runs RunOnce every interval until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "rate_limit_cleanup_failed",
					"error", err,
					"removed", res.Removed,
					"duration_ms", res.Duration.Milliseconds(),
				)
				s.observe(res, "error")
				continue
			}
			s.logger.DebugContext(ctx, "rate_limit_cleanup_completed",
				"removed", res.Removed,
				"duration_ms", res.Duration.Milliseconds(),
			)
			s.observe(res, "success")

		case <-ctx.Done():
			s.logger.Info("rate limit cleanup worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce cleans every target. A failing target does not stop the others; the
// result always carries what was removed and the errors are joined.
func (s *Service) RunOnce(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{Removed: make(map[string]int, len(s.targets))}

	names := make([]string, 0, len(s.targets))
	for name := range s.targets {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		n, err := s.targets[name].Cleanup(ctx)
		res.Removed[name] = n
		if err != nil {
			errs = append(errs, fmt.Errorf("cleanup %s: %w", name, err))
		}
	}
	res.Duration = time.Since(start)
	return res, errors.Join(errs...)
}

func (s *Service) observe(res *Result, status string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementCleanupRuns(status)
	s.metrics.ObserveCleanupDuration(res.Duration.Seconds())
	for name, n := range res.Removed {
		s.metrics.AddCleanupRemoved(name, n)
	}
}
