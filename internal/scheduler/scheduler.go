// Package scheduler implements C9: delayed one-shot submissions and
// self-rescheduling recurring submissions, backed by the C2 DelayedHeap.
// There is no teacher equivalent (raft-recovery dispatches immediately on
// recovery and has no delay/recurrence concept); this package is grounded
// on the go-utilpkg eventloop's timer-driven rescheduling idiom (a
// completed timer task that re-arms itself by inserting a new entry) and
// on qpool's JobOption-style functional construction for the per-call
// options.
package scheduler

import (
	"sync"
	"time"

	"github.com/ChuLiYu/taskpool/internal/pqueue"
	"github.com/ChuLiYu/taskpool/pkg/job"
)

// recurringState tracks one active schedule (recurring or one-shot delayed,
// the latter simply a schedule with maxExecutions 1) across its successive
// job instances.
type recurringState struct {
	scheduledID   uint64
	fn            job.Func
	opts          job.Options
	interval      time.Duration
	maxExecutions int // <= 0 means unbounded
	executed      int
	cancelled     bool

	// currentJobID is the id of the instance currently pending in the
	// delayed heap (or already promoted/running), so CancelScheduled can
	// pull the still-pending one back out of the heap.
	currentJobID job.ID
}

// Scheduler owns the delayed heap and the bookkeeping needed to turn a
// single recurring registration into a chain of self-rescheduling job
// instances.
type Scheduler struct {
	heap *pqueue.DelayedHeap

	mu           sync.Mutex
	nextSchedID  uint64
	byScheduleID map[uint64]*recurringState
	byJobID      map[job.ID]*recurringState
}

// New returns a Scheduler backed by heap, which it shares with the
// monitor's due-entry drain.
func New(heap *pqueue.DelayedHeap) *Scheduler {
	return &Scheduler{
		heap:         heap,
		byScheduleID: make(map[uint64]*recurringState),
		byJobID:      make(map[job.ID]*recurringState),
	}
}

// ScheduleDelayed creates a one-shot job due after delay and inserts it
// into the delayed heap. A non-positive delay schedules it immediately
// due, so the next monitor tick promotes it to C1 right away. It returns a
// schedule id accepted by CancelScheduled, implemented as a schedule whose
// maxExecutions is 1 so the same bookkeeping that backs recurring
// cancellation also removes a still-pending one-shot from the heap.
func (s *Scheduler) ScheduleDelayed(fn job.Func, delay time.Duration, opts job.Options) (uint64, *job.Record) {
	return s.register(fn, delay, delay, 1, opts)
}

// ScheduleRecurring registers fn to run every interval, starting after the
// first interval elapses, for up to maxExecutions instances (<=0 for
// unbounded). It returns the schedule id (accepted by CancelScheduled) and
// the first job.Record, already inserted into the delayed heap.
func (s *Scheduler) ScheduleRecurring(fn job.Func, interval time.Duration, maxExecutions int, opts job.Options) (uint64, *job.Record) {
	return s.register(fn, interval, interval, maxExecutions, opts)
}

// register creates the schedule state shared by ScheduleDelayed and
// ScheduleRecurring and arms its first instance after firstDelay.
func (s *Scheduler) register(fn job.Func, firstDelay, interval time.Duration, maxExecutions int, opts job.Options) (uint64, *job.Record) {
	s.mu.Lock()
	s.nextSchedID++
	schedID := s.nextSchedID
	state := &recurringState{
		scheduledID:   schedID,
		fn:            fn,
		opts:          opts,
		interval:      interval,
		maxExecutions: maxExecutions,
	}
	s.byScheduleID[schedID] = state
	s.mu.Unlock()

	rec := s.arm(state, firstDelay)
	return schedID, rec
}

// armNext arms state's next instance after state.interval, for
// re-scheduling from OnJobCompleted.
func (s *Scheduler) armNext(state *recurringState) *job.Record {
	return s.arm(state, state.interval)
}

// arm creates and enqueues the next instance for state due after delay,
// incrementing its executed count and recording both the jobID->state
// mapping OnJobCompleted uses and the currentJobID CancelScheduled uses to
// pull a still-pending instance back out of the heap.
func (s *Scheduler) arm(state *recurringState, delay time.Duration) *job.Record {
	rec := &job.Record{
		ID:        job.NextID(),
		Fn:        state.fn,
		Opts:      state.opts,
		Name:      state.opts.Name,
		Created:   time.Now(),
		IsDelayed: true,
		ReleaseAt: time.Now().Add(delay),
	}

	s.mu.Lock()
	state.executed++
	state.currentJobID = rec.ID
	s.byJobID[rec.ID] = state
	s.mu.Unlock()

	s.heap.Insert(rec)
	return rec
}

// CancelScheduled marks scheduledID as cancelled, preventing any future
// instance from being armed, and removes its currently pending instance
// from the delayed heap so it never promotes to C1. An instance already
// promoted to the live queue or running is not retroactively recalled;
// spec.md's cancellation guarantee is "no further instances after this
// call returns", not immediate abort of one already dispatched.
func (s *Scheduler) CancelScheduled(scheduledID uint64) bool {
	s.mu.Lock()
	state, ok := s.byScheduleID[scheduledID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	state.cancelled = true
	pendingID := state.currentJobID
	delete(s.byJobID, pendingID)
	s.mu.Unlock()

	s.heap.Remove(pendingID)
	return true
}

// ListActive returns the schedule ids (recurring or one-shot delayed) that
// have not been cancelled and still have an instance to run: either
// maxExecutions is not yet exhausted, or its last armed instance has not
// yet completed.
func (s *Scheduler) ListActive() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint64
	for id, state := range s.byScheduleID {
		if state.cancelled {
			continue
		}
		if state.maxExecutions > 0 && state.executed >= state.maxExecutions {
			if _, outstanding := s.byJobID[state.currentJobID]; !outstanding {
				continue
			}
		}
		out = append(out, id)
	}
	return out
}

// OnJobCompleted is called by the pool's completion hook for every job
// reaching a terminal state. If id belongs to an active recurring
// schedule, it arms the next instance (unless cancelled or the execution
// budget is exhausted) and reports the newly armed record; otherwise it
// reports (nil, false).
func (s *Scheduler) OnJobCompleted(id job.ID) (*job.Record, bool) {
	s.mu.Lock()
	state, ok := s.byJobID[id]
	if ok {
		delete(s.byJobID, id)
	}
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	cancelled := state.cancelled
	exhausted := state.maxExecutions > 0 && state.executed >= state.maxExecutions
	s.mu.Unlock()
	if cancelled || exhausted {
		return nil, false
	}

	return s.armNext(state), true
}
