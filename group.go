package taskpool

import (
	"context"
	"sync"

	"github.com/ChuLiYu/taskpool/pkg/job"
)

// Group is a thin bookkeeping wrapper over a set of submitted job ids: a
// supplemented convenience, not an independent scheduling concept. It only
// calls Pool.SubmitWithValue / Pool.WaitMany / Pool.GetResults.
type Group struct {
	pool *Pool

	mu  sync.Mutex
	ids []job.ID
}

// NewGroup returns an empty Group bound to pool.
func (p *Pool) NewGroup() *Group {
	return &Group{pool: p}
}

// Submit submits fn through the bound pool and adds its id to the group.
func (g *Group) Submit(fn func(ctx context.Context) (any, error), opts ...job.Option) (job.ID, error) {
	id, err := g.pool.SubmitWithValue(fn, opts...)
	if err != nil {
		return job.NoID, err
	}
	g.mu.Lock()
	g.ids = append(g.ids, id)
	g.mu.Unlock()
	return id, nil
}

// IDs returns a snapshot copy of the ids submitted through this group.
func (g *Group) IDs() []job.ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]job.ID, len(g.ids))
	copy(out, g.ids)
	return out
}

// Wait blocks until every job in the group has reached a terminal state,
// or ctx is done.
func (g *Group) Wait(ctx context.Context) error {
	return g.pool.WaitMany(ctx, g.IDs())
}

// Results returns the terminal outcomes available for the group's jobs.
func (g *Group) Results() map[job.ID]job.Outcome {
	return g.pool.GetResults(g.IDs())
}
