package utils

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// -----------------------------------------------------------------------------

// Unbounded lets every item of a batch run at once.
const Unbounded = -1

// BatchRunner executes independent items under an explicit concurrency
// policy. Item failures are collected per index and never cancel siblings.
type BatchRunner struct {
	MaxConcurrency int
}

// -----------------------------------------------------------------------------

// NewBatchRunner returns a runner allowing at most maxConcurrency items in
// flight. Zero or Unbounded means no limit.
func NewBatchRunner(maxConcurrency int) *BatchRunner {
	if maxConcurrency == 0 {
		maxConcurrency = Unbounded
	}
	return &BatchRunner{MaxConcurrency: maxConcurrency}
}

// -----------------------------------------------------------------------------

// Run calls fn for every index in [0, n) and returns the error of each item
// at its index. Items not started because ctx ended report ctx.Err().
func (r *BatchRunner) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}

	var g errgroup.Group
	g.SetLimit(r.MaxConcurrency)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			for j := i; j < n; j++ {
				errs[j] = err
			}
			break
		}
		// Go blocks while the limit is reached, so with a limit of 1 the
		// next item is only dispatched after the previous one returned.
		g.Go(func() error {
			errs[i] = fn(ctx, i)
			return nil
		})
	}

	g.Wait()
	return errs
}
