package app

import (
	"context"
	"sync"
)

// PartialResult is one function's value or error.
type PartialResult[T any] struct {
	Value T
	Err   error
}

// ParallelPartial runs every fn concurrently and waits for all of them.
// A failing fn never cancels the others; results keep the order of fns.
//
// Example:
//
//	results := ParallelPartial(ctx, notifySync, publishAsync)
//	for _, r := range results {
//	    if r.Err != nil {
//	        logger.Warn("step failed", slog.Any("error", r.Err))
//	    }
//	}
func ParallelPartial[T any](ctx context.Context, fns ...func(context.Context) (T, error)) []PartialResult[T] {
	results := make([]PartialResult[T], len(fns))

	var wg sync.WaitGroup

	for i, fn := range fns {
		wg.Go(func() {
			value, err := fn(ctx)
			results[i] = PartialResult[T]{Value: value, Err: err}
		})
	}

	wg.Wait()

	return results
}
