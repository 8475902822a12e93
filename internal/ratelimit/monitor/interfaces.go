package monitor

import (
	"context"

	"gatekeeper/internal/ratelimit/models"
)

// CounterScanner enumerates and removes counters by key prefix.
type CounterScanner interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// HitLog is the bounded deny history.
type HitLog interface {
	Append(ctx context.Context, rec models.HitRecord) error
	Recent(ctx context.Context, limit int) ([]models.HitRecord, error)
}
