package taskpool

import (
	"context"
	"time"

	"github.com/ChuLiYu/taskpool/pkg/job"
	"github.com/ChuLiYu/taskpool/pkg/perr"
)

// waitPoll is how often Wait* methods recheck their condition. Per
// spec.md's design note that no lock-free completion queue is needed, a
// short bounded poll plus the monitor's periodic Cond.Broadcast is
// sufficient; this is not on any job's critical path.
const waitPoll = 10 * time.Millisecond

func (p *Pool) pendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Pool) isPending(id job.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pending[id]
	return ok
}

func (p *Pool) pendingOf(ids []job.ID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := p.pending[id]; ok {
			n++
		}
	}
	return n
}

// WaitAll blocks until no job is pending (queued, delayed or running), or
// ctx is done. Jobs submitted or armed while it waits are waited for too.
func (p *Pool) WaitAll(ctx context.Context) error {
	requested := p.pendingCount()
	return p.pollUntil(ctx, requested, p.pendingCount)
}

// WaitOne blocks until id reaches a terminal state, or ctx is done.
func (p *Pool) WaitOne(ctx context.Context, id job.ID) error {
	return p.pollUntil(ctx, 1, func() int {
		if p.isPending(id) {
			return 1
		}
		return 0
	})
}

// WaitMany blocks until every id in ids reaches a terminal state, or ctx
// is done.
func (p *Pool) WaitMany(ctx context.Context, ids []job.ID) error {
	return p.pollUntil(ctx, len(ids), func() int {
		return p.pendingOf(ids)
	})
}

// pollUntil blocks until remaining() reports 0, or ctx is done, whichever
// comes first. requested is carried into the perr.Timeout error only.
func (p *Pool) pollUntil(ctx context.Context, requested int, remaining func() int) error {
	if requested == 0 {
		return nil
	}
	ticker := time.NewTicker(waitPoll)
	defer ticker.Stop()
	for {
		left := remaining()
		if left == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return perr.NewTimeout(requested, requested-left)
		case <-ticker.C:
		}
	}
}

// GetResult returns id's terminal outcome if it has one. It returns
// perr.ErrNotComplete if id is still pending, and perr.ErrUnknown if id
// was never submitted (or its result has since been cleared and it is no
// longer pending either).
func (p *Pool) GetResult(id job.ID) (job.Outcome, error) {
	if outcome, ok := p.cache.Get(id); ok {
		return outcome, nil
	}
	if p.isPending(id) {
		return job.Outcome{}, perr.ErrNotComplete
	}
	return job.Outcome{}, perr.ErrUnknown
}

// GetResultAndWait waits for id to complete (or ctx to finish) and then
// returns its outcome.
func (p *Pool) GetResultAndWait(ctx context.Context, id job.ID) (job.Outcome, error) {
	if err := p.WaitOne(ctx, id); err != nil {
		return job.Outcome{}, err
	}
	return p.GetResult(id)
}

// GetResults returns whichever of ids already have a terminal outcome,
// keyed by id. Ids that are still pending or unknown are simply absent.
func (p *Pool) GetResults(ids []job.ID) map[job.ID]job.Outcome {
	out := make(map[job.ID]job.Outcome, len(ids))
	for _, id := range ids {
		if outcome, ok := p.cache.Get(id); ok {
			out[id] = outcome
		}
	}
	return out
}

// GetResultsAndWait waits for every id in ids to complete (or ctx to
// finish) and returns whatever outcomes are available by then.
func (p *Pool) GetResultsAndWait(ctx context.Context, ids []job.ID) (map[job.ID]job.Outcome, error) {
	err := p.WaitMany(ctx, ids)
	return p.GetResults(ids), err
}

// ClearQueue drops every job still sitting in the live priority queue
// (not yet dispatched to a worker) and reports their ids. Dropped jobs
// never receive a terminal outcome.
func (p *Pool) ClearQueue() []job.ID {
	dropped := p.queue.Drain()
	if len(dropped) == 0 {
		return nil
	}
	ids := make([]job.ID, 0, len(dropped))
	p.mu.Lock()
	for _, rec := range dropped {
		delete(p.pending, rec.ID)
		ids = append(ids, rec.ID)
	}
	p.mu.Unlock()
	return ids
}

// ClearResult removes id's cached outcome, if any, reporting whether one
// existed.
func (p *Pool) ClearResult(id job.ID) bool {
	return p.cache.Remove(id)
}

// ClearResults removes the cached outcomes for every id in ids.
func (p *Pool) ClearResults(ids []job.ID) {
	for _, id := range ids {
		p.cache.Remove(id)
	}
}

// ClearAllResults removes every cached outcome.
func (p *Pool) ClearAllResults() {
	p.cache.Clear()
}

// ClearExpiredResults removes every cached outcome whose age exceeds
// maxAge and returns how many were removed, per spec.md §6's
// clear_expired_results(max_age_ms). This is independent of
// PoolOptions.CacheTTL / CacheTTLEnabled, which only govern the monitor's
// own periodic background sweep.
func (p *Pool) ClearExpiredResults(maxAge time.Duration) int {
	return p.cache.ClearExpiredOlderThan(maxAge)
}
