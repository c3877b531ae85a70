// Package taskpool implements C7: an in-process, elastically-sized,
// multi-priority job pool. It ties together the priority queue and
// delayed heap (internal/pqueue), the worker loop (internal/worker), the
// executor pipeline (internal/executor, driven from inside worker), the
// result cache (internal/resultcache), the scheduler (internal/scheduler)
// and the event bus (internal/events) behind a single Pool handle.
//
// Grounded on the teacher's internal/controller.Controller: a mutex plus a
// stop channel plus a sync.WaitGroup coordinating several background
// loops, with the same Start/Stop shape, generalized from raft-recovery's
// fixed worker count and WAL-backed recovery to elastic sizing, priority
// bands, pause/resume and scheduling.
package taskpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ChuLiYu/taskpool/internal/events"
	"github.com/ChuLiYu/taskpool/internal/logsink"
	"github.com/ChuLiYu/taskpool/internal/monitor"
	"github.com/ChuLiYu/taskpool/internal/pqueue"
	"github.com/ChuLiYu/taskpool/internal/resultcache"
	"github.com/ChuLiYu/taskpool/internal/scheduler"
	"github.com/ChuLiYu/taskpool/internal/worker"
	"github.com/ChuLiYu/taskpool/pkg/job"
	"github.com/ChuLiYu/taskpool/pkg/perr"
)

type poolState int

const (
	notRunning poolState = iota
	running
	disposed
)

type workerHandle struct {
	w    *worker.Worker
	stop chan struct{}
}

// Pool is the pool controller: C7. The zero value is not usable; build
// one with New.
type Pool struct {
	opts PoolOptions
	log  logsink.Sink

	mu    sync.Mutex
	cond  *sync.Cond
	state poolState
	paused bool

	queue     *pqueue.PriorityQueue
	delayed   *pqueue.DelayedHeap
	cache     *resultcache.Cache
	bus       *events.Bus
	scheduler *scheduler.Scheduler

	workers      map[int]*workerHandle
	nextWorkerID int

	// pending tracks every job id submitted (or armed by the scheduler)
	// that has not yet reached a terminal state. Wait-all/wait-many poll
	// this set rather than a channel, matching spec.md's design note
	// that no lock-free queue is required: periodic, signal-assisted
	// polling is sufficient.
	pending map[job.ID]struct{}

	// completedCount and failedCount back Status()'s completed/failed/
	// success_rate fields: every terminal outcome increments exactly one
	// of the two, in onWorkerComplete.
	completedCount int
	failedCount    int

	monitorStop chan struct{}
	monitorWG   sync.WaitGroup
	workersWG   sync.WaitGroup
}

// New constructs a Pool in the NotRunning state. Call Start before
// submitting jobs.
func New(opts ...PoolOption) (*Pool, error) {
	o := defaultOptions()
	for _, apply := range opts {
		if apply == nil {
			continue
		}
		if err := apply(&o); err != nil {
			return nil, err
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		opts:    o,
		log:     o.Logger,
		queue:   pqueue.New(),
		delayed: pqueue.NewDelayedHeap(),
		cache:   resultcache.New(o.CacheTTL, o.CacheTTLEnabled),
		bus:     events.New(o.Logger),
		workers: make(map[int]*workerHandle),
		pending: make(map[job.ID]struct{}),
		paused:  o.StartSuspended,
		state:   notRunning,
	}
	p.cond = sync.NewCond(&p.mu)
	p.scheduler = scheduler.New(p.delayed)
	return p, nil
}

// Start transitions the pool to Running, spawning MinWorkers workers and
// the monitor task. Calling Start on an already-Running pool is a no-op;
// calling it on a Disposed pool returns perr.ErrDisposed.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == disposed {
		return perr.ErrDisposed
	}
	if p.state == running {
		return nil
	}

	p.monitorStop = make(chan struct{})
	for i := 0; i < p.opts.MinWorkers; i++ {
		p.spawnWorkerLocked()
	}

	mon := monitor.New(monitor.Config{
		DelayedHeap:         p.delayed,
		PromoteDue:          p.promoteDue,
		SweepExpiredResults: p.cache.ClearExpired,
		ReapIdleWorkers:     p.reapIdleWorkers,
		Cond:                p.cond,
		Stop:                p.monitorStop,
		Logger:              p.log,
	})
	p.monitorWG.Add(1)
	go func() {
		defer p.monitorWG.Done()
		mon.Run()
	}()

	p.state = running
	p.bus.Publish(events.Event{Kind: events.KindLifecycle, Lifecycle: events.LifecycleStarted, Timestamp: time.Now()})
	p.log.Info("pool started", "min_workers", p.opts.MinWorkers, "max_workers", p.opts.MaxWorkers)
	return nil
}

// Stop gracefully halts every worker and the monitor task, returning the
// pool to NotRunning. Queued and delayed jobs are left in place; calling
// Start again resumes processing them. Stop on a Disposed pool returns
// perr.ErrDisposed; Stop on a NotRunning pool is a no-op.
func (p *Pool) Stop() error {
	p.mu.Lock()
	if p.state == disposed {
		p.mu.Unlock()
		return perr.ErrDisposed
	}
	if p.state == notRunning {
		p.mu.Unlock()
		return nil
	}
	close(p.monitorStop)
	for _, h := range p.workers {
		close(h.stop)
	}
	p.workers = make(map[int]*workerHandle)
	p.cond.Broadcast()
	p.mu.Unlock()

	p.workersWG.Wait()
	p.monitorWG.Wait()

	p.mu.Lock()
	p.state = notRunning
	completed, failed := p.completedCount, p.failedCount
	p.mu.Unlock()
	p.bus.Publish(events.Event{
		Kind:      events.KindLifecycle,
		Lifecycle: events.LifecycleStopped,
		Timestamp: time.Now(),
		Completed: completed,
		Failed:    failed,
	})
	p.log.Info("pool stopped", "completed", completed, "failed", failed)
	return nil
}

// Pause tells every worker to stop dequeuing new jobs once its current job
// (if any) finishes. Already-running attempts are not interrupted.
func (p *Pool) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == disposed {
		return perr.ErrDisposed
	}
	p.paused = true
	p.cond.Broadcast()
	p.bus.Publish(events.Event{Kind: events.KindLifecycle, Lifecycle: events.LifecyclePaused, Timestamp: time.Now()})
	return nil
}

// Resume reverses Pause, letting workers dequeue again.
func (p *Pool) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == disposed {
		return perr.ErrDisposed
	}
	p.paused = false
	p.cond.Broadcast()
	p.bus.Publish(events.Event{Kind: events.KindLifecycle, Lifecycle: events.LifecycleResumed, Timestamp: time.Now()})
	return nil
}

// Dispose stops the pool (if running) and marks it permanently Disposed:
// no further Start, Submit or scheduling call will succeed. Idempotent.
func (p *Pool) Dispose() error {
	if err := p.Stop(); err != nil && err != perr.ErrDisposed {
		return err
	}
	p.mu.Lock()
	if p.state == disposed {
		p.mu.Unlock()
		return nil
	}
	p.state = disposed
	p.queue.Drain()
	p.cache.Clear()
	p.mu.Unlock()
	p.bus.Publish(events.Event{Kind: events.KindLifecycle, Lifecycle: events.LifecycleDisposed, Timestamp: time.Now()})
	p.log.Info("pool disposed")
	return nil
}

func (p *Pool) isPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// spawnWorkerLocked must be called with p.mu held.
func (p *Pool) spawnWorkerLocked() {
	p.nextWorkerID++
	id := p.nextWorkerID
	stop := make(chan struct{})
	w := worker.New(worker.Config{
		ID:            id,
		Name:          fmt.Sprintf("%s%d", p.opts.WorkerNamePrefix, id),
		Queue:         p.queue,
		Cond:          p.cond,
		Paused:        p.isPaused,
		Stop:          stop,
		IdleTimeout:   p.opts.IdleWorkerTimeout,
		OnIdleTimeout: p.onIdleTimeout,
		OnComplete:    p.onWorkerComplete,
		OnDequeue:     p.onWorkerDequeue,
		Logger:        p.log,
	})
	p.workers[id] = &workerHandle{w: w, stop: stop}
	p.workersWG.Add(1)
	go func() {
		defer p.workersWG.Done()
		w.Run()
	}()
	if p.opts.Metrics != nil {
		p.opts.Metrics.SetWorkerCounts(len(p.workers), p.countIdleLocked())
	}
}

// onIdleTimeout is called from a worker's own goroutine when it has been
// idle longer than IdleWorkerTimeout. Reaping is refused if it would drop
// the pool below MinWorkers.
func (p *Pool) onIdleTimeout(w *worker.Worker) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.workers) <= p.opts.MinWorkers {
		return false
	}
	delete(p.workers, w.ID())
	p.bus.Publish(events.Event{Kind: events.KindLifecycle, Lifecycle: events.LifecycleWorkerReaped, Timestamp: time.Now()})
	if p.opts.Metrics != nil {
		p.opts.Metrics.SetWorkerCounts(len(p.workers), p.countIdleLocked())
	}
	return true
}

// onWorkerDequeue is called by a worker the instant it pops a record, so
// expansion decisions see this worker as Busy rather than stale Idle
// state from before the pop.
func (p *Pool) onWorkerDequeue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkExpandLocked()
}

// reapIdleWorkers is the monitor's periodic nudge; idle reaping mostly
// happens via each worker's own idleExceeded check, but this covers the
// case where a worker is parked in its bounded wait and hasn't rechecked
// since crossing IdleWorkerTimeout yet.
func (p *Pool) reapIdleWorkers() {
	p.cond.Broadcast()
}

func (p *Pool) countIdleLocked() int {
	idle := 0
	for _, h := range p.workers {
		if st, _ := h.w.Status(); st == worker.Idle {
			idle++
		}
	}
	return idle
}

// checkExpandLocked spawns exactly one additional worker if the pool is
// running, unpaused, below MaxWorkers, and every current worker is busy
// while the queue is non-empty. Must be called with p.mu held.
func (p *Pool) checkExpandLocked() {
	if p.state != running || p.paused {
		return
	}
	if len(p.workers) >= p.opts.MaxWorkers {
		return
	}
	if p.queue.Len() == 0 {
		return
	}
	if p.countIdleLocked() > 0 {
		return
	}
	p.spawnWorkerLocked()
}

// enqueueLocked admits rec onto the live queue, tracks it as pending, and
// considers elastic expansion. Must be called with p.mu held.
func (p *Pool) enqueueLocked(rec *job.Record) {
	rec.EnqueuedAt = time.Now()
	p.pending[rec.ID] = struct{}{}
	p.queue.Push(rec)
	p.cond.Signal()
	p.checkExpandLocked()
	if p.opts.Metrics != nil {
		p.opts.Metrics.SetQueueDepth(rec.Opts.Priority, p.queue.LenByBand(rec.Opts.Priority))
	}
}

// promoteDue is the monitor's callback for a delayed-heap entry whose
// ReleaseAt has arrived; it moves the record onto the live queue.
func (p *Pool) promoteDue(rec *job.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == disposed {
		return
	}
	p.enqueueLocked(rec)
}

// onWorkerComplete is invoked by a worker immediately after a job reaches
// a terminal state. It records the outcome, removes the job from the
// pending set, publishes the matching event, reports to metrics, and asks
// the scheduler whether this job belongs to a recurring schedule that
// should now arm its next instance.
func (p *Pool) onWorkerComplete(rec *job.Record, outcome job.Outcome) {
	p.cache.Set(rec.ID, outcome)

	p.mu.Lock()
	delete(p.pending, rec.ID)
	if outcome.Status == job.StatusSuccess {
		p.completedCount++
	} else {
		p.failedCount++
	}
	p.mu.Unlock()

	kind := events.KindCompleted
	if outcome.Status != job.StatusSuccess {
		kind = events.KindFailed
	}
	p.bus.Publish(events.Event{Kind: kind, Outcome: outcome, Timestamp: time.Now()})

	if p.opts.Metrics != nil {
		p.opts.Metrics.RecordOutcome(outcome)
	}

	if next, ok := p.scheduler.OnJobCompleted(rec.ID); ok {
		p.mu.Lock()
		if p.state != disposed {
			p.pending[next.ID] = struct{}{}
		}
		p.mu.Unlock()
	}

	p.cond.Broadcast()
}

// Submit enqueues a fire-and-forget job: fn's error, if any, becomes the
// terminal outcome's Err with status Failed (or Cancelled/TimedOut as
// appropriate); its return value is always nil.
func (p *Pool) Submit(fn func(ctx context.Context) error, opts ...job.Option) (job.ID, error) {
	return p.SubmitWithValue(func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	}, opts...)
}

// SubmitWithValue enqueues a job whose successful return value is carried
// on the terminal Outcome.
func (p *Pool) SubmitWithValue(fn func(ctx context.Context) (any, error), opts ...job.Option) (job.ID, error) {
	o, err := job.NewOptions(opts...)
	if err != nil {
		return job.NoID, err
	}
	return p.submit(fn, o)
}

func (p *Pool) submit(fn job.Func, opts job.Options) (job.ID, error) {
	p.mu.Lock()
	if p.state == disposed {
		p.mu.Unlock()
		return job.NoID, perr.ErrDisposed
	}
	if p.state != running {
		p.mu.Unlock()
		return job.NoID, perr.ErrNotRunning
	}
	if p.opts.QueueLimit > 0 && p.queue.Len()+p.delayed.Len() >= p.opts.QueueLimit {
		p.mu.Unlock()
		return job.NoID, perr.ErrCapacity
	}

	rec := &job.Record{
		ID:      job.NextID(),
		Fn:      fn,
		Opts:    opts,
		Name:    opts.Name,
		Created: time.Now(),
	}
	p.enqueueLocked(rec)
	p.mu.Unlock()

	if p.opts.Metrics != nil {
		p.opts.Metrics.RecordSubmit()
	}
	return rec.ID, nil
}

// ScheduleDelayed submits fn to run once, after delay has elapsed. It
// returns a schedule id accepted by CancelScheduled (which removes the
// instance from the delayed heap if it is still pending) alongside the
// instance's own job id.
func (p *Pool) ScheduleDelayed(fn func(ctx context.Context) (any, error), delay time.Duration, opts ...job.Option) (uint64, job.ID, error) {
	o, err := job.NewOptions(opts...)
	if err != nil {
		return 0, job.NoID, err
	}
	p.mu.Lock()
	if p.state == disposed {
		p.mu.Unlock()
		return 0, job.NoID, perr.ErrDisposed
	}
	schedID, rec := p.scheduler.ScheduleDelayed(fn, delay, o)
	p.pending[rec.ID] = struct{}{}
	p.mu.Unlock()
	return schedID, rec.ID, nil
}

// ScheduleRecurring submits fn to run every interval, starting after the
// first interval elapses, for up to maxExecutions instances (<=0 for
// unbounded). It returns a schedule id accepted by CancelScheduled and the
// id of the first instance.
func (p *Pool) ScheduleRecurring(fn func(ctx context.Context) (any, error), interval time.Duration, maxExecutions int, opts ...job.Option) (uint64, job.ID, error) {
	o, err := job.NewOptions(opts...)
	if err != nil {
		return 0, job.NoID, err
	}
	p.mu.Lock()
	if p.state == disposed {
		p.mu.Unlock()
		return 0, job.NoID, perr.ErrDisposed
	}
	schedID, rec := p.scheduler.ScheduleRecurring(fn, interval, maxExecutions, o)
	p.pending[rec.ID] = struct{}{}
	p.mu.Unlock()
	return schedID, rec.ID, nil
}

// CancelScheduled prevents any future instance of a recurring schedule
// from being armed. It does not recall an instance already queued or
// running.
func (p *Pool) CancelScheduled(scheduledID uint64) bool {
	return p.scheduler.CancelScheduled(scheduledID)
}

// ListScheduled returns the ids of every schedule (recurring or one-shot
// delayed) that is not cancelled and still has an instance to run.
func (p *Pool) ListScheduled() []uint64 {
	return p.scheduler.ListActive()
}

// Subscribe registers handler for events of kind, returning an id accepted
// by Unsubscribe.
func (p *Pool) Subscribe(kind events.Kind, handler events.Handler) uint64 {
	return p.bus.Subscribe(kind, handler)
}

// Unsubscribe removes a previously registered handler.
func (p *Pool) Unsubscribe(id uint64) bool {
	return p.bus.Unsubscribe(id)
}
