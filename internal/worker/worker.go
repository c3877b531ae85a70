// Package worker implements C4: the loop a single pool worker runs,
// pulling jobs from the shared priority queue and driving each through the
// executor pipeline. Generalized from the teacher's
// internal/worker.Worker.Run, which ranged over a fixed task channel;
// here there is no per-worker channel — all workers share one
// pqueue.PriorityQueue and a condition variable used to wake an idle
// worker when new work, a pause/resume transition, or a stop request
// arrives.
package worker

import (
	"fmt"
	"sync"
	"time"

	"github.com/ChuLiYu/taskpool/internal/executor"
	"github.com/ChuLiYu/taskpool/internal/logsink"
	"github.com/ChuLiYu/taskpool/internal/pqueue"
	"github.com/ChuLiYu/taskpool/pkg/job"
)

// State is a worker's current activity, reported by Status for
// diagnostics, the pool's idle-worker count and the worker's own idle-reap
// check.
type State int

const (
	Idle State = iota
	Busy
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Busy:
		return "busy"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// wakeWait is the ceiling on how long a worker's condition-variable wait
// blocks without a signal, so it periodically rechecks the stop channel,
// the pause gate and its own idle-reap deadline even if nothing ever
// calls Cond.Broadcast. Matches spec.md's bounded (<=50ms) wait.
const wakeWait = 50 * time.Millisecond

// Config wires a Worker to the pool state it shares with every other
// worker: the common queue, the wake condition, a pause gate and a stop
// signal, plus the completion and idle-reap callbacks the pool uses to
// stay informed.
type Config struct {
	ID int

	// Name is the diagnostic identifier logged alongside this worker's
	// lifecycle and, if empty, defaults to "worker-<ID>". Set from
	// PoolOptions.WorkerNamePrefix by the pool.
	Name string

	Queue  *pqueue.PriorityQueue
	Cond   *sync.Cond
	Paused func() bool
	Stop   <-chan struct{}

	// IdleTimeout, when positive, is the duration of uninterrupted idle
	// time after which OnIdleTimeout is consulted. Zero disables idle
	// reaping for this worker. The pool gives every worker the same value
	// and keeps MinWorkers alive by having OnIdleTimeout refuse.
	IdleTimeout   time.Duration
	OnIdleTimeout func(w *Worker) bool

	OnComplete func(r *job.Record, o job.Outcome)

	// OnDequeue, if set, is called right after this worker successfully
	// pops a record and before it starts executing, letting the pool
	// reconsider elastic expansion with an accurate up-to-the-moment
	// idle-worker count (the worker calling back is itself now Busy).
	OnDequeue func()

	Logger logsink.Sink
}

// Worker runs Config.Queue jobs on its own goroutine until Config.Stop
// closes or an idle-reap decision ends it early.
type Worker struct {
	cfg Config

	mu        sync.Mutex
	state     State
	idleSince time.Time
}

// New returns a Worker ready for Run. cfg.Logger defaults to a no-op sink.
func New(cfg Config) *Worker {
	if cfg.Logger == nil {
		cfg.Logger = logsink.Nop{}
	}
	return &Worker{cfg: cfg, state: Idle, idleSince: time.Now()}
}

// ID returns the worker's configured identifier.
func (w *Worker) ID() int { return w.cfg.ID }

// name returns cfg.Name, or "worker-<ID>" if it was left empty.
func (w *Worker) name() string {
	if w.cfg.Name != "" {
		return w.cfg.Name
	}
	return fmt.Sprintf("worker-%d", w.cfg.ID)
}

// Status reports the worker's current state and, if Idle, how long it has
// been idle.
func (w *Worker) Status() (State, time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Idle {
		return w.state, 0
	}
	return w.state, time.Since(w.idleSince)
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	if s == Idle {
		w.idleSince = time.Now()
	}
	w.mu.Unlock()
}

// Run drives the worker loop until Config.Stop closes or the worker is
// idle-reaped. It blocks the calling goroutine; callers run it with `go`.
func (w *Worker) Run() {
	w.cfg.Logger.Debug("worker started", "worker", w.name())
	defer func() {
		w.setState(Stopped)
		w.cfg.Logger.Debug("worker stopped", "worker", w.name())
	}()

	for {
		select {
		case <-w.cfg.Stop:
			return
		default:
		}

		if w.cfg.Paused != nil && w.waitOutPause() {
			return
		}

		rec, ok := w.cfg.Queue.TryPop()
		if !ok {
			if w.idleExceeded() {
				return
			}
			w.waitForWork()
			continue
		}

		w.setState(Busy)
		if w.cfg.OnDequeue != nil {
			w.cfg.OnDequeue()
		}
		outcome := executor.Run(rec)
		if w.cfg.OnComplete != nil {
			w.cfg.OnComplete(rec, outcome)
		}
		w.setState(Idle)
	}
}

// waitOutPause blocks, re-checking Stop every wakeWait, for as long as the
// pool reports paused. Returns true if Stop fired while waiting.
func (w *Worker) waitOutPause() bool {
	for w.cfg.Paused() {
		select {
		case <-w.cfg.Stop:
			return true
		case <-time.After(wakeWait):
		}
	}
	return false
}

// idleExceeded reports whether this worker has been idle longer than its
// configured IdleTimeout and, if so, asks OnIdleTimeout whether it should
// exit now. A worker with IdleTimeout <= 0 is never reaped this way.
func (w *Worker) idleExceeded() bool {
	if w.cfg.IdleTimeout <= 0 || w.cfg.OnIdleTimeout == nil {
		return false
	}
	_, idleFor := w.Status()
	if idleFor < w.cfg.IdleTimeout {
		return false
	}
	return w.cfg.OnIdleTimeout(w)
}

// waitForWork blocks on the shared condition variable for at most
// wakeWait, woken early by Cond.Broadcast/Signal from whichever goroutine
// enqueued work, toggled pause, or requested a stop.
func (w *Worker) waitForWork() {
	w.cfg.Cond.L.Lock()
	defer w.cfg.Cond.L.Unlock()
	timer := time.AfterFunc(wakeWait, func() {
		w.cfg.Cond.Broadcast()
	})
	defer timer.Stop()
	w.cfg.Cond.Wait()
}
