package counter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"gatekeeper/internal/ratelimit/models"
	pstrings "gatekeeper/pkg/platform/strings"
)

// allowScript increments KEYS[1] unless it already holds ARGV[1] requests.
// The first increment starts the window (ARGV[2] milliseconds). A key that
// lost its TTL gets a fresh one so it can never lock a bucket forever.
// Returns {allowed, count, pttl}.
var allowScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local allowed = 0
if current < limit then
  current = redis.call('INCR', KEYS[1])
  allowed = 1
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], window)
  ttl = window
end
return {allowed, current, ttl}
`)

const (
	scanCount   = 500
	deleteBatch = 500
)

// RedisStore keeps fixed-window counters in Redis. Allow runs as one Lua
// script, so concurrent callers on any number of instances cannot overshoot.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, period time.Duration) (models.CounterResult, error) {
	if err := validateAllow(key, limit, period); err != nil {
		return models.CounterResult{}, err
	}

	vals, err := allowScript.Run(ctx, s.client, []string{key}, limit, period.Milliseconds()).Int64Slice()
	if err != nil {
		return models.CounterResult{}, fmt.Errorf("run allow script for %s: %w", key, err)
	}
	if len(vals) != 3 {
		return models.CounterResult{}, fmt.Errorf("allow script returned %d values", len(vals))
	}

	return models.CounterResult{
		Allowed: vals[0] == 1,
		Count:   int(vals[1]),
		TTL:     time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// Keys lists counter keys starting with prefix using SCAN, so it never blocks
// the server the way KEYS would.
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := globEscape(prefix) + "*"
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", pattern, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	// SCAN may return a key more than once.
	return pstrings.DedupeAndTrim(keys), nil
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, fmt.Errorf("delete prefix is required")
	}
	keys, err := s.Keys(ctx, prefix)
	if err != nil {
		return 0, err
	}

	removed := 0
	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))
		n, err := s.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return removed, fmt.Errorf("delete counters: %w", err)
		}
		removed += int(n)
	}
	return removed, nil
}

// globEscape quotes the characters SCAN MATCH treats as wildcards.
func globEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
