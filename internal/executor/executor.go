// Package executor implements C5: the per-job attempt pipeline. It drives
// a job.Record through one or more attempts, enforcing a per-attempt
// timeout and cooperative cancellation, deciding whether a failed attempt
// is retried, and producing the terminal job.Outcome exactly once.
//
// Grounded on the teacher's internal/worker.Worker.Run, which wraps each
// task in context.WithTimeout before calling execute(); this pipeline
// generalizes that single context.WithTimeout call into the
// helper-goroutine-plus-polling shape spec.md requires so a hung callable
// can be best-effort abandoned rather than blocking the attempt loop
// forever, and adds the retry/backoff and cancellation-token layers the
// teacher's fixed single-shot task never needed.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ChuLiYu/taskpool/pkg/job"
)

// pollInterval is how often the attempt loop checks whether the attempt's
// deadline or cancellation has fired while the callable is still running,
// matching spec.md's ~100ms poll interval.
const pollInterval = 100 * time.Millisecond

// abandonGrace is how long an attempt waits, after its deadline or
// cancellation fires, for the callable to return on its own before the
// pipeline gives up on it and reports a terminal outcome anyway. Go gives
// no way to forcibly kill a goroutine, so this is the pipeline's
// best-effort hard-abort: the callable's goroutine is left to finish (or
// leak) on its own time, detached from the attempt.
const abandonGrace = 50 * time.Millisecond

// Run drives r through up to 1+r.Opts.MaxRetries attempts and returns the
// terminal outcome. Safe to call from a single worker goroutine at a time
// per record; r.Attempt is updated as attempts progress.
func Run(r *job.Record) job.Outcome {
	started := time.Now()
	maxAttempts := 1 + r.Opts.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var last job.Outcome
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if r.Opts.Cancellation.Cancelled() {
			last = terminalOutcome(r, job.StatusCancelled, nil, started, attempt)
			break
		}

		r.Attempt = attempt
		last = runAttempt(r, attempt, started)

		if last.Status != job.StatusFailed {
			// Success, Cancelled and TimedOut are all terminal: a timed
			// out attempt never retries, matching spec.md's
			// timeout-never-retries scenario.
			break
		}
		if attempt == maxAttempts {
			break
		}
		cond := r.Opts.RetryCondition
		if cond == nil {
			cond = job.DefaultRetryCondition
		}
		if !cond(last.Err) {
			break
		}
		interval := r.Opts.RetryInterval
		if r.Opts.RetryBackoff != nil {
			interval = r.Opts.RetryBackoff.Next(attempt)
		}
		if interval > 0 {
			select {
			case <-time.After(interval):
			case <-r.Opts.Cancellation.Done():
				last = terminalOutcome(r, job.StatusCancelled, nil, started, attempt)
				return last
			}
		}
	}
	return last
}

type attemptResult struct {
	val any
	err error
}

// runAttempt executes r.Fn once, under a timeout derived from
// r.Opts.Timeout (if any) and a watcher goroutine bridging
// r.Opts.Cancellation into the attempt's context. The callable always runs
// to completion on its own goroutine; this function returns as soon as
// that goroutine reports a result, or — once the deadline/cancellation has
// fired and abandonGrace has elapsed without a result — it gives up and
// reports StatusTimedOut/StatusCancelled without waiting further.
func runAttempt(r *job.Record, attempt int, started time.Time) job.Outcome {
	ctx, cancel := attemptContext(r)
	defer cancel()

	cancelCh := r.Opts.Cancellation.Done()
	if cancelCh != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-cancelCh:
				cancel()
			case <-stop:
			}
		}()
	}

	resCh := make(chan attemptResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resCh <- attemptResult{nil, fmt.Errorf("executor: panic in job callable: %v", rec)}
			}
		}()
		v, err := r.Fn(ctx)
		resCh <- attemptResult{v, err}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case res := <-resCh:
			return classify(ctx, r, res, started, attempt)
		case <-ticker.C:
			if ctx.Err() == nil {
				continue
			}
			select {
			case res := <-resCh:
				return classify(ctx, r, res, started, attempt)
			case <-time.After(abandonGrace):
				return abandonedOutcome(r, started, attempt)
			}
		}
	}
}

func attemptContext(r *job.Record) (context.Context, context.CancelFunc) {
	if r.Opts.Timeout > 0 {
		return context.WithTimeout(context.Background(), r.Opts.Timeout)
	}
	return context.WithCancel(context.Background())
}

func classify(ctx context.Context, r *job.Record, res attemptResult, started time.Time, attempt int) job.Outcome {
	if r.Opts.Cancellation.Cancelled() {
		return terminalOutcome(r, job.StatusCancelled, res.err, started, attempt)
	}
	if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return terminalOutcome(r, job.StatusTimedOut, res.err, started, attempt)
	}
	if res.err != nil {
		return terminalOutcome(r, job.StatusFailed, res.err, started, attempt)
	}
	return job.Outcome{
		ID:        r.ID,
		Status:    job.StatusSuccess,
		Value:     res.val,
		StartedAt: started,
		EndedAt:   time.Now(),
		Attempts:  attempt,
	}
}

// abandonedOutcome is reported when the attempt's deadline or
// cancellation fired and the callable still hadn't returned after
// abandonGrace. Cancellation takes priority over a timeout when both
// could explain why ctx.Err() is non-nil.
func abandonedOutcome(r *job.Record, started time.Time, attempt int) job.Outcome {
	if r.Opts.Cancellation.Cancelled() {
		return terminalOutcome(r, job.StatusCancelled, nil, started, attempt)
	}
	return terminalOutcome(r, job.StatusTimedOut, errors.New("executor: attempt exceeded its timeout"), started, attempt)
}

func terminalOutcome(r *job.Record, status job.Status, err error, started time.Time, attempt int) job.Outcome {
	return job.Outcome{
		ID:        r.ID,
		Status:    status,
		Err:       err,
		StartedAt: started,
		EndedAt:   time.Now(),
		Attempts:  attempt,
	}
}
