package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map applies fn to every item with at most maxWorkers running at once and
// returns the results in input order. The first error cancels ctx for the
// remaining calls and is returned.
func Map[T, R any](ctx context.Context, maxWorkers int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	out := make([]R, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := fn(ctx, item)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
