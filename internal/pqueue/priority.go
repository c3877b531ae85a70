// Package pqueue implements the pool's two queueing structures: the C1
// strict-priority FIFO queue workers drain, and the C2 time-ordered
// delayed-job heap the scheduler and monitor drain into C1.
//
// Grounded on the teacher's internal/jobmanager queue handling (a plain
// slice used as a FIFO, guarded by the manager's own mutex) generalized to
// four independent bands, plus the go-utilpkg eventloop package's
// container/heap-based timerHeap for the delayed side.
package pqueue

import (
	"sync"

	"github.com/ChuLiYu/taskpool/pkg/job"
)

// PriorityQueue holds job.NumBands independent FIFO queues. Dequeue always
// prefers the lowest band index (Critical) over higher ones, giving strict
// cross-band ordering; within a band, FIFO order is preserved.
type PriorityQueue struct {
	mu    sync.Mutex
	bands [job.NumBands][]*job.Record
}

// New returns an empty PriorityQueue.
func New() *PriorityQueue {
	return &PriorityQueue{}
}

// Push enqueues r onto the band matching its priority.
func (q *PriorityQueue) Push(r *job.Record) {
	q.mu.Lock()
	defer q.mu.Unlock()
	b := r.Opts.Priority.Band()
	q.bands[b] = append(q.bands[b], r)
}

// TryPop removes and returns the highest-priority, oldest-enqueued record,
// or (nil, false) if every band is empty.
func (q *PriorityQueue) TryPop() (*job.Record, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for b := 0; b < job.NumBands; b++ {
		if len(q.bands[b]) == 0 {
			continue
		}
		r := q.bands[b][0]
		q.bands[b][0] = nil
		q.bands[b] = q.bands[b][1:]
		return r, true
	}
	return nil, false
}

// Len returns the total number of queued records across all bands.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

func (q *PriorityQueue) lenLocked() int {
	n := 0
	for b := 0; b < job.NumBands; b++ {
		n += len(q.bands[b])
	}
	return n
}

// LenByBand returns the number of queued records for a single band, used
// by the metrics collector's per-band queue depth gauge.
func (q *PriorityQueue) LenByBand(b job.Priority) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.bands[b.Band()])
}

// Drain removes and returns every queued record, across all bands, in
// dequeue order. Used by ClearQueue.
func (q *PriorityQueue) Drain() []*job.Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*job.Record, 0, q.lenLocked())
	for b := 0; b < job.NumBands; b++ {
		out = append(out, q.bands[b]...)
		q.bands[b] = nil
	}
	return out
}
