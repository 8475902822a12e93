package hitlog

import (
	"context"
	"sync"
	"time"

	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/pkg/requestcontext"
)

// InMemoryStore is a bounded, time-limited log of deny records. When full the
// oldest record is evicted.
type InMemoryStore struct {
	mu        sync.Mutex
	records   []models.HitRecord // oldest first
	capacity  int
	retention time.Duration
}

func NewInMemoryStore(capacity int, retention time.Duration) *InMemoryStore {
	return &InMemoryStore{
		records:   make([]models.HitRecord, 0, capacity),
		capacity:  capacity,
		retention: retention,
	}
}

func (s *InMemoryStore) Append(_ context.Context, rec models.HitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	if over := len(s.records) - s.capacity; over > 0 {
		s.records = append(s.records[:0:0], s.records[over:]...)
	}
	return nil
}

// Recent returns up to limit records newer than the retention cutoff,
// newest first. limit <= 0 returns every retained record.
func (s *InMemoryStore) Recent(ctx context.Context, limit int) ([]models.HitRecord, error) {
	cutoff := requestcontext.Now(ctx).Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.HitRecord, 0, min(len(s.records), max(limit, 0)))
	for i := len(s.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if s.records[i].Timestamp.Before(cutoff) {
			break
		}
		out = append(out, s.records[i])
	}
	return out, nil
}

// Cleanup drops records older than the retention window.
func (s *InMemoryStore) Cleanup(ctx context.Context) (int, error) {
	cutoff := requestcontext.Now(ctx).Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := 0
	for ; i < len(s.records); i++ {
		if !s.records[i].Timestamp.Before(cutoff) {
			break
		}
	}
	if i > 0 {
		s.records = append(s.records[:0:0], s.records[i:]...)
	}
	return i, nil
}
