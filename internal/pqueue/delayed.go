package pqueue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/ChuLiYu/taskpool/pkg/job"
)

// delayedEntry pairs a delayed record with its insertion sequence number,
// used only to break ties between entries sharing a ReleaseAt instant so
// promotion to C1 preserves submission order.
type delayedEntry struct {
	record *job.Record
	seq    uint64
	index  int
}

// delayedSlice implements container/heap.Interface, min-ordered on
// ReleaseAt then seq. Not safe for concurrent use directly; DelayedHeap
// wraps it with a mutex.
type delayedSlice []*delayedEntry

func (s delayedSlice) Len() int { return len(s) }

func (s delayedSlice) Less(i, j int) bool {
	ti, tj := s[i].record.ReleaseAt, s[j].record.ReleaseAt
	if ti.Equal(tj) {
		return s[i].seq < s[j].seq
	}
	return ti.Before(tj)
}

func (s delayedSlice) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
	s[i].index = i
	s[j].index = j
}

func (s *delayedSlice) Push(x any) {
	e := x.(*delayedEntry)
	e.index = len(*s)
	*s = append(*s, e)
}

func (s *delayedSlice) Pop() any {
	old := *s
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*s = old[:n-1]
	return e
}

// DelayedHeap is the C2 time-ordered min-heap of not-yet-due jobs: delayed
// one-shot submissions and the next pending instance of each recurring
// job. Grounded on the retrieved go-utilpkg eventloop package's timerHeap,
// keyed here on job.Record.ReleaseAt instead of a generic timer callback.
type DelayedHeap struct {
	mu      sync.Mutex
	entries delayedSlice
	seq     uint64
	byID    map[job.ID]*delayedEntry
}

// NewDelayedHeap returns an empty DelayedHeap.
func NewDelayedHeap() *DelayedHeap {
	return &DelayedHeap{byID: make(map[job.ID]*delayedEntry)}
}

// Insert adds r to the heap, due at r.ReleaseAt.
func (h *DelayedHeap) Insert(r *job.Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	e := &delayedEntry{record: r, seq: h.seq}
	heap.Push(&h.entries, e)
	h.byID[r.ID] = e
}

// PopAllDue removes and returns, in ReleaseAt order, every entry whose
// ReleaseAt is not after now. Called by the monitor's delayed-heap drain
// tick.
func (h *DelayedHeap) PopAllDue(now time.Time) []*job.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	var due []*job.Record
	for h.entries.Len() > 0 {
		top := h.entries[0]
		if top.record.ReleaseAt.After(now) {
			break
		}
		heap.Pop(&h.entries)
		delete(h.byID, top.record.ID)
		due = append(due, top.record)
	}
	return due
}

// Remove cancels a pending delayed entry by job id, reporting whether an
// entry was found and removed.
func (h *DelayedHeap) Remove(id job.ID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&h.entries, e.index)
	delete(h.byID, id)
	return true
}

// Len returns the number of entries awaiting release.
func (h *DelayedHeap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries.Len()
}

// NextDue returns the ReleaseAt of the earliest pending entry, and true if
// the heap is non-empty. The monitor does not use it; it drains on a fixed
// ticker.
func (h *DelayedHeap) NextDue() (time.Time, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.entries.Len() == 0 {
		return time.Time{}, false
	}
	return h.entries[0].record.ReleaseAt, true
}
