package counter

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	pstrings "gatekeeper/pkg/platform/strings"
	"gatekeeper/pkg/requestcontext"
)

// Scanner enumerates and removes counters by key prefix.
type Scanner interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// CompositeScanner reads and deletes counters across every store the limiter
// may count in: the shared Redis store and the local store that takes over
// while the Redis circuit is open. A failing store is skipped and logged as
// long as another store answered; calls fail only when every store fails.
type CompositeScanner struct {
	stores []Scanner
	logger *slog.Logger
}

func NewCompositeScanner(logger *slog.Logger, stores ...Scanner) *CompositeScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompositeScanner{stores: stores, logger: logger}
}

// Keys returns the sorted union of live keys under prefix.
func (c *CompositeScanner) Keys(ctx context.Context, prefix string) ([]string, error) {
	var (
		all  []string
		errs []error
	)
	for _, s := range c.stores {
		keys, err := s.Keys(ctx, prefix)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		all = append(all, keys...)
	}
	if err := c.settle(ctx, "scan", errs); err != nil {
		return nil, err
	}
	keys := pstrings.DedupeAndTrim(all)
	sort.Strings(keys)
	return keys, nil
}

// DeletePrefix removes prefix from every reachable store and returns the
// total number of counters removed.
func (c *CompositeScanner) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var (
		removed int
		errs    []error
	)
	for _, s := range c.stores {
		n, err := s.DeletePrefix(ctx, prefix)
		removed += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return removed, c.settle(ctx, "delete", errs)
}

func (c *CompositeScanner) settle(ctx context.Context, op string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == len(c.stores) {
		return errors.Join(errs...)
	}
	c.logger.WarnContext(ctx, "counter store skipped",
		"operation", op,
		"error", errors.Join(errs...),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}
