// Package monitor implements C8: the pool's single periodic background
// task. It drains due entries from the C2 delayed heap into the C1 live
// queue, sweeps the C6 result cache for TTL-expired entries, nudges the
// pool to reap excess idle workers, and periodically rebroadcasts the
// shared wake condition so any goroutine parked in a wait-all/wait-many
// poll loop rechecks its condition even if a completion notification was
// missed.
//
// There is no single teacher analogue; the shape (one goroutine, one
// ticker-driven loop, several independent concerns behind one stop
// channel) follows the teacher's internal/controller.snapshotLoop, the
// simplest of its four loops.
package monitor

import (
	"sync"
	"time"

	"github.com/ChuLiYu/taskpool/internal/logsink"
	"github.com/ChuLiYu/taskpool/internal/pqueue"
	"github.com/ChuLiYu/taskpool/pkg/job"
)

// drainFloor is the minimum interval between delayed-heap drain checks,
// matching spec.md's ~10ms adaptive floor: the monitor never busy-loops
// tighter than this even when the heap's next entry is due immediately.
const drainFloor = 10 * time.Millisecond

const (
	cacheSweepInterval = 60 * time.Second
	idleReapInterval   = 30 * time.Second
	wakeRefreshInterval = 50 * time.Millisecond
)

// Config wires the monitor to the pool state it watches.
type Config struct {
	DelayedHeap *pqueue.DelayedHeap

	// PromoteDue is called once per record the delayed heap reports as
	// due; it is expected to push the record onto the live priority
	// queue and signal Cond.
	PromoteDue func(rec *job.Record)

	// SweepExpiredResults sweeps the result cache, returning the number
	// of entries it removed (for logging only).
	SweepExpiredResults func() int

	// ReapIdleWorkers asks the pool to consider shrinking back toward
	// MinWorkers; the pool itself enforces idle-per-worker thresholds,
	// this just gives it a periodic nudge beyond whatever each worker
	// already self-checks.
	ReapIdleWorkers func()

	// Cond is broadcast on every wakeRefreshInterval tick so goroutines
	// blocked in a bounded wait (worker idle-wait, wait-all poll loop)
	// periodically recheck their condition.
	Cond *sync.Cond

	Stop   <-chan struct{}
	Logger logsink.Sink
}

// Monitor runs Config's periodic sweeps until Config.Stop closes.
type Monitor struct {
	cfg Config
	wg  sync.WaitGroup
}

// New returns a Monitor ready for Run. cfg.Logger defaults to a no-op
// sink.
func New(cfg Config) *Monitor {
	if cfg.Logger == nil {
		cfg.Logger = logsink.Nop{}
	}
	return &Monitor{cfg: cfg}
}

// Run blocks, driving all of the monitor's periodic work, until
// Config.Stop closes. Callers run it with `go`.
func (m *Monitor) Run() {
	drainTicker := time.NewTicker(drainFloor)
	defer drainTicker.Stop()
	cacheTicker := time.NewTicker(cacheSweepInterval)
	defer cacheTicker.Stop()
	reapTicker := time.NewTicker(idleReapInterval)
	defer reapTicker.Stop()
	wakeTicker := time.NewTicker(wakeRefreshInterval)
	defer wakeTicker.Stop()

	for {
		select {
		case <-m.cfg.Stop:
			return
		case <-drainTicker.C:
			m.drainDue()
		case <-cacheTicker.C:
			if m.cfg.SweepExpiredResults != nil {
				if n := m.cfg.SweepExpiredResults(); n > 0 {
					m.cfg.Logger.Debug("result cache swept", "removed", n)
				}
			}
		case <-reapTicker.C:
			if m.cfg.ReapIdleWorkers != nil {
				m.cfg.ReapIdleWorkers()
			}
		case <-wakeTicker.C:
			if m.cfg.Cond != nil {
				m.cfg.Cond.Broadcast()
			}
		}
	}
}

func (m *Monitor) drainDue() {
	if m.cfg.DelayedHeap == nil || m.cfg.PromoteDue == nil {
		return
	}
	due := m.cfg.DelayedHeap.PopAllDue(time.Now())
	for _, rec := range due {
		rec.IsDelayed = false
		rec.EnqueuedAt = time.Now()
		m.cfg.PromoteDue(rec)
	}
}
