package hitlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/pkg/requestcontext"
)

// DefaultRedisKey holds the deny log list, newest record at the head.
const DefaultRedisKey = "rate_limit_hits"

// RedisStore keeps the deny log in a capped Redis list shared by all
// instances. The list expires retention after the last append.
type RedisStore struct {
	client    redis.UniversalClient
	key       string
	capacity  int
	retention time.Duration
	logger    *slog.Logger
}

type RedisOption func(*RedisStore)

func WithKey(key string) RedisOption {
	return func(s *RedisStore) {
		s.key = key
	}
}

func WithLogger(logger *slog.Logger) RedisOption {
	return func(s *RedisStore) {
		s.logger = logger
	}
}

func NewRedisStore(client redis.UniversalClient, capacity int, retention time.Duration, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		key:       DefaultRedisKey,
		capacity:  capacity,
		retention: retention,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Append(ctx context.Context, rec models.HitRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode hit record: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, payload)
		pipe.LTrim(ctx, s.key, 0, int64(s.capacity-1))
		pipe.Expire(ctx, s.key, s.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append hit record: %w", err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, limit int) ([]models.HitRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	raw, err := s.client.LRange(ctx, s.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read hit records: %w", err)
	}

	cutoff := requestcontext.Now(ctx).Add(-s.retention)
	out := make([]models.HitRecord, 0, len(raw))
	for _, item := range raw {
		var rec models.HitRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			s.logger.WarnContext(ctx, "skipping malformed hit record", "error", err)
			continue
		}
		if rec.Timestamp.Before(cutoff) {
			break
		}
		out = append(out, rec)
	}
	return out, nil
}
