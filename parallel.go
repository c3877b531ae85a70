package taskpool

import (
	"context"

	"github.com/ChuLiYu/taskpool/pkg/job"
)

// ParallelFor submits n independent jobs, each running fn(ctx, i) for i in
// [0, n), and waits for all of them. Mechanical per SPEC_FULL.md's
// supplemented compositional façades: it only calls SubmitWithValue and
// GetResultsAndWait, no independent scheduling logic.
func ParallelFor(ctx context.Context, p *Pool, n int, fn func(ctx context.Context, i int) (any, error), opts ...job.Option) (map[job.ID]job.Outcome, error) {
	ids := make([]job.ID, 0, n)
	for i := 0; i < n; i++ {
		i := i
		id, err := p.SubmitWithValue(func(ctx context.Context) (any, error) {
			return fn(ctx, i)
		}, opts...)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return p.GetResultsAndWait(ctx, ids)
}

// ParallelForEach submits one job per element of items and waits for all
// of them.
func ParallelForEach[T any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, item T) (any, error), opts ...job.Option) (map[job.ID]job.Outcome, error) {
	ids := make([]job.ID, 0, len(items))
	for _, item := range items {
		item := item
		id, err := p.SubmitWithValue(func(ctx context.Context) (any, error) {
			return fn(ctx, item)
		}, opts...)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return p.GetResultsAndWait(ctx, ids)
}

// ParallelInvoke submits each of fns as an independent job and waits for
// all of them.
func ParallelInvoke(ctx context.Context, p *Pool, fns []func(ctx context.Context) (any, error), opts ...job.Option) (map[job.ID]job.Outcome, error) {
	ids := make([]job.ID, 0, len(fns))
	for _, fn := range fns {
		id, err := p.SubmitWithValue(fn, opts...)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return p.GetResultsAndWait(ctx, ids)
}
