package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/taskpool/pkg/job"
)

func newRecord(fn job.Func, opts job.Options) *job.Record {
	return &job.Record{ID: job.NextID(), Fn: fn, Opts: opts}
}

func TestRunSuccessOnFirstAttempt(t *testing.T) {
	rec := newRecord(func(ctx context.Context) (any, error) {
		return 42, nil
	}, job.Options{})
	out := Run(rec)
	assert.Equal(t, job.StatusSuccess, out.Status)
	assert.Equal(t, 42, out.Value)
	assert.Equal(t, 1, out.Attempts)
}

func TestRunRetriesToSuccess(t *testing.T) {
	attempts := 0
	rec := newRecord(func(ctx context.Context) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}, job.Options{MaxRetries: 5, RetryCondition: job.DefaultRetryCondition})
	out := Run(rec)
	assert.Equal(t, job.StatusSuccess, out.Status)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, out.Attempts)
}

func TestRunExhaustsRetries(t *testing.T) {
	attempts := 0
	rec := newRecord(func(ctx context.Context) (any, error) {
		attempts++
		return nil, errors.New("always fails")
	}, job.Options{MaxRetries: 2, RetryCondition: job.DefaultRetryCondition})
	out := Run(rec)
	assert.Equal(t, job.StatusFailed, out.Status)
	assert.Equal(t, 3, attempts) // 1 initial + 2 retries
}

func TestRunRetryConditionCanStopEarly(t *testing.T) {
	attempts := 0
	rec := newRecord(func(ctx context.Context) (any, error) {
		attempts++
		return nil, errors.New("nope")
	}, job.Options{MaxRetries: 5, RetryCondition: func(error) bool { return false }})
	out := Run(rec)
	assert.Equal(t, job.StatusFailed, out.Status)
	assert.Equal(t, 1, attempts)
}

func TestRunRetryBackoffOverridesFixedInterval(t *testing.T) {
	var timestamps []time.Time
	attempts := 0
	rec := newRecord(func(ctx context.Context) (any, error) {
		timestamps = append(timestamps, time.Now())
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}, job.Options{
		MaxRetries:     5,
		RetryCondition: job.DefaultRetryCondition,
		RetryInterval:  time.Hour, // would make the test hang if not overridden
		RetryBackoff:   &job.ExponentialBackoff{Initial: 5 * time.Millisecond, Max: 50 * time.Millisecond},
	})
	out := Run(rec)
	assert.Equal(t, job.StatusSuccess, out.Status)
	require.Len(t, timestamps, 3)
	assert.Less(t, timestamps[1].Sub(timestamps[0]), time.Second)
	assert.Less(t, timestamps[2].Sub(timestamps[1]), time.Second)
}

func TestRunTimeoutNeverRetries(t *testing.T) {
	attempts := 0
	rec := newRecord(func(ctx context.Context) (any, error) {
		attempts++
		<-ctx.Done()
		return nil, ctx.Err()
	}, job.Options{MaxRetries: 5, Timeout: 20 * time.Millisecond, RetryCondition: job.DefaultRetryCondition})
	out := Run(rec)
	assert.Equal(t, job.StatusTimedOut, out.Status)
	assert.Equal(t, 1, attempts)
}

func TestRunCancellationBeforeFirstAttempt(t *testing.T) {
	tok := job.NewCancellationToken()
	tok.Cancel()
	ran := false
	rec := newRecord(func(ctx context.Context) (any, error) {
		ran = true
		return nil, nil
	}, job.Options{Cancellation: tok})
	out := Run(rec)
	assert.Equal(t, job.StatusCancelled, out.Status)
	assert.False(t, ran)
}

func TestRunCancellationDuringAttempt(t *testing.T) {
	tok := job.NewCancellationToken()
	started := make(chan struct{})
	rec := newRecord(func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}, job.Options{Cancellation: tok})

	go func() {
		<-started
		time.Sleep(10 * time.Millisecond)
		tok.Cancel()
	}()

	out := Run(rec)
	assert.Equal(t, job.StatusCancelled, out.Status)
}

func TestRunPanicInCallableIsCapturedAsFailure(t *testing.T) {
	rec := newRecord(func(ctx context.Context) (any, error) {
		panic("boom")
	}, job.Options{})
	out := Run(rec)
	assert.Equal(t, job.StatusFailed, out.Status)
	require.Error(t, out.Err)
}
