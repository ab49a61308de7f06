package cli

import (
	"context"
	"sync"
)

// RunJobs calls fn for every input using up to jobs goroutines and returns
// the results in input order. The first error cancels the remaining inputs
// and is returned together with the results gathered so far; inputs that
// never ran have zero results.
func RunJobs[T any](ctx context.Context, inputs []string, jobs int, fn func(ctx context.Context, input string) (T, error)) ([]T, error) {
	results := make([]T, len(inputs))
	if len(inputs) == 0 {
		return results, nil
	}
	if jobs < 1 {
		jobs = 1
	}
	if jobs > len(inputs) {
		jobs = len(inputs)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	work := make(chan int)

	for w := 0; w < jobs; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				if ctx.Err() != nil {
					continue
				}
				res, err := fn(ctx, inputs[i])
				results[i] = res
				if err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
				}
			}
		}()
	}

feed:
	for i := range inputs {
		select {
		case work <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()

	if firstErr == nil {
		firstErr = ctx.Err()
	}
	return results, firstErr
}
