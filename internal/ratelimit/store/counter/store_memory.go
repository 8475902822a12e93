package counter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gatekeeper/internal/ratelimit/models"
	gsync "gatekeeper/pkg/platform/sync"
	"gatekeeper/pkg/requestcontext"
)

type window struct {
	count     int
	expiresAt time.Time
}

// InMemoryStore keeps fixed-window counters in process memory. Each key is
// guarded by its shard lock, so increment-and-compare is atomic per key.
// Expired windows are dropped lazily and by Cleanup.
type InMemoryStore struct {
	windows *gsync.ShardedMap[*window]
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{windows: gsync.NewShardedMap[*window](0)}
}

// Allow counts one request against key. A request arriving when the window
// already holds limit requests is denied and not counted.
func (s *InMemoryStore) Allow(ctx context.Context, key string, limit int, period time.Duration) (models.CounterResult, error) {
	if err := validateAllow(key, limit, period); err != nil {
		return models.CounterResult{}, err
	}
	now := requestcontext.Now(ctx)

	var res models.CounterResult
	s.windows.Do(key, func(items map[string]*window) {
		w, ok := items[key]
		if !ok || !now.Before(w.expiresAt) {
			w = &window{expiresAt: now.Add(period)}
			items[key] = w
		}
		if w.count >= limit {
			res = models.CounterResult{Allowed: false, Count: w.count, TTL: w.expiresAt.Sub(now)}
			return
		}
		w.count++
		res = models.CounterResult{Allowed: true, Count: w.count, TTL: w.expiresAt.Sub(now)}
	})
	return res, nil
}

// Keys lists live counter keys starting with prefix.
func (s *InMemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	now := requestcontext.Now(ctx)
	var keys []string
	s.windows.Range(func(items map[string]*window) {
		for key, w := range items {
			if now.Before(w.expiresAt) && strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
		}
	})
	return keys, nil
}

// DeletePrefix removes every counter starting with prefix and returns how
// many live counters were removed.
func (s *InMemoryStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, fmt.Errorf("delete prefix is required")
	}
	now := requestcontext.Now(ctx)
	removed := 0
	s.windows.Range(func(items map[string]*window) {
		for key, w := range items {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			if now.Before(w.expiresAt) {
				removed++
			}
			delete(items, key)
		}
	})
	return removed, nil
}

// Cleanup drops expired windows and reports how many were dropped.
func (s *InMemoryStore) Cleanup(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	dropped := 0
	s.windows.Range(func(items map[string]*window) {
		for key, w := range items {
			if !now.Before(w.expiresAt) {
				delete(items, key)
				dropped++
			}
		}
	})
	return dropped, nil
}

// Len reports stored windows, including expired ones not yet cleaned up.
func (s *InMemoryStore) Len() int {
	return s.windows.Len()
}

func validateAllow(key string, limit int, period time.Duration) error {
	if key == "" {
		return fmt.Errorf("counter key is required")
	}
	if limit <= 0 {
		return fmt.Errorf("counter limit must be positive, got %d", limit)
	}
	if period <= 0 {
		return fmt.Errorf("counter window must be positive, got %s", period)
	}
	return nil
}
