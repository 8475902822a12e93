package limiter

import (
	"context"
	"time"

	"gatekeeper/internal/ratelimit/models"
)

// CounterStore performs one atomic fixed-window increment-and-compare.
type CounterStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (models.CounterResult, error)
}
