package testutil

import (
	"context"
	"sync"
	"sync/atomic"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors
}

// RunConcurrent releases goroutines simultaneously through a start barrier,
// runs fn in each and counts nil vs non-nil results.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, errs atomic.Int32
	start := make(chan struct{})

	for i := range goroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			if err := fn(idx); err != nil {
				errs.Add(1)
				return
			}
			successes.Add(1)
		}(i)
	}

	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Errors:    errs.Load(),
	}
}

// RunConcurrentCtx is RunConcurrent with a shared context.
func RunConcurrentCtx(ctx context.Context, goroutines int, fn func(ctx context.Context, idx int) error) *ConcurrentResult {
	return RunConcurrent(goroutines, func(idx int) error {
		return fn(ctx, idx)
	})
}

// CountTrue runs fn concurrently and counts how many calls returned true.
// Used for admission races where "allowed" is the interesting outcome.
func CountTrue(goroutines int, fn func(idx int) bool) (trues, falses int) {
	var t, f atomic.Int32
	RunConcurrent(goroutines, func(idx int) error {
		if fn(idx) {
			t.Add(1)
		} else {
			f.Add(1)
		}
		return nil
	})
	return int(t.Load()), int(f.Load())
}
