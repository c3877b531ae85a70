package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/taskpool/internal/pqueue"
	"github.com/ChuLiYu/taskpool/pkg/job"
)

func newTestWorker(t *testing.T, q *pqueue.PriorityQueue, onComplete func(*job.Record, job.Outcome)) (*Worker, chan struct{}) {
	t.Helper()
	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	stop := make(chan struct{})
	w := New(Config{
		ID:         1,
		Queue:      q,
		Cond:       cond,
		Stop:       stop,
		OnComplete: onComplete,
	})
	return w, stop
}

func TestWorkerRunsQueuedJob(t *testing.T) {
	q := pqueue.New()
	done := make(chan job.Outcome, 1)
	w, stop := newTestWorker(t, q, func(r *job.Record, o job.Outcome) { done <- o })

	go w.Run()
	defer close(stop)

	q.Push(&job.Record{
		ID: job.NextID(),
		Fn: func(ctx context.Context) (any, error) { return "done", nil },
	})

	select {
	case o := <-done:
		assert.Equal(t, job.StatusSuccess, o.Status)
	case <-time.After(time.Second):
		t.Fatal("worker never reported completion")
	}
}

func TestWorkerStopsOnSignal(t *testing.T) {
	q := pqueue.New()
	w, stop := newTestWorker(t, q, nil)

	runDone := make(chan struct{})
	go func() {
		w.Run()
		close(runDone)
	}()

	close(stop)
	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after Stop closed")
	}
	st, _ := w.Status()
	assert.Equal(t, Stopped, st)
}

func TestWorkerIdleTimeoutReap(t *testing.T) {
	q := pqueue.New()
	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	stop := make(chan struct{})
	defer close(stop)

	reaped := make(chan struct{})
	w := New(Config{
		ID:          1,
		Queue:       q,
		Cond:        cond,
		Stop:        stop,
		IdleTimeout: 20 * time.Millisecond,
		OnIdleTimeout: func(w *Worker) bool {
			close(reaped)
			return true
		},
	})

	runDone := make(chan struct{})
	go func() {
		w.Run()
		close(runDone)
	}()

	select {
	case <-reaped:
	case <-time.After(time.Second):
		t.Fatal("worker was never offered for idle reap")
	}
	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after OnIdleTimeout returned true")
	}
}

func TestWorkerPauseBlocksDequeue(t *testing.T) {
	q := pqueue.New()
	var paused bool
	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	stop := make(chan struct{})
	defer close(stop)

	done := make(chan job.Outcome, 1)
	w := New(Config{
		ID:    1,
		Queue: q,
		Cond:  cond,
		Stop:  stop,
		Paused: func() bool {
			mu.Lock()
			defer mu.Unlock()
			return paused
		},
		OnComplete: func(r *job.Record, o job.Outcome) { done <- o },
	})

	mu.Lock()
	paused = true
	mu.Unlock()

	go w.Run()

	q.Push(&job.Record{ID: job.NextID(), Fn: func(ctx context.Context) (any, error) { return nil, nil }})

	select {
	case <-done:
		t.Fatal("worker dequeued while paused")
	case <-time.After(50 * time.Millisecond):
	}

	mu.Lock()
	paused = false
	mu.Unlock()

	require.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
