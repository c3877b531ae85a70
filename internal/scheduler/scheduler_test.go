package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/taskpool/internal/pqueue"
	"github.com/ChuLiYu/taskpool/pkg/job"
)

func noop(ctx context.Context) (any, error) { return nil, nil }

func TestScheduleDelayedInsertsIntoHeap(t *testing.T) {
	h := pqueue.NewDelayedHeap()
	s := New(h)
	schedID, rec := s.ScheduleDelayed(noop, 50*time.Millisecond, job.Options{})
	require.NotNil(t, rec)
	assert.Equal(t, 1, h.Len())
	assert.Contains(t, s.ListActive(), schedID)
}

func TestCancelScheduledRemovesPendingDelayedInstance(t *testing.T) {
	h := pqueue.NewDelayedHeap()
	s := New(h)
	schedID, _ := s.ScheduleDelayed(noop, time.Hour, job.Options{})
	require.Equal(t, 1, h.Len())

	assert.True(t, s.CancelScheduled(schedID))
	assert.Equal(t, 0, h.Len(), "cancelling a one-shot delayed schedule must pull its pending instance out of the heap")
}

func TestCancelScheduledRemovesPendingRecurringInstance(t *testing.T) {
	h := pqueue.NewDelayedHeap()
	s := New(h)
	schedID, _ := s.ScheduleRecurring(noop, time.Hour, 0, job.Options{})
	require.Equal(t, 1, h.Len())

	assert.True(t, s.CancelScheduled(schedID))
	assert.Equal(t, 0, h.Len(), "cancelling a recurring schedule must pull its currently pending instance out of the heap")
}

func TestScheduleRecurringArmsFirstInstanceAndReschedulesOnCompletion(t *testing.T) {
	h := pqueue.NewDelayedHeap()
	s := New(h)
	schedID, first := s.ScheduleRecurring(noop, 10*time.Millisecond, 3, job.Options{})
	require.NotNil(t, first)
	assert.Contains(t, s.ListActive(), schedID)

	next, ok := s.OnJobCompleted(first.ID)
	require.True(t, ok)
	assert.NotEqual(t, first.ID, next.ID)

	next2, ok := s.OnJobCompleted(next.ID)
	require.True(t, ok)

	_, ok = s.OnJobCompleted(next2.ID)
	assert.False(t, ok, "maxExecutions of 3 should stop after the third instance")
}

func TestCancelScheduledStopsFutureInstances(t *testing.T) {
	h := pqueue.NewDelayedHeap()
	s := New(h)
	schedID, first := s.ScheduleRecurring(noop, 10*time.Millisecond, 0, job.Options{})

	assert.True(t, s.CancelScheduled(schedID))
	assert.NotContains(t, s.ListActive(), schedID)

	_, ok := s.OnJobCompleted(first.ID)
	assert.False(t, ok)
}

func TestCancelUnknownScheduleReturnsFalse(t *testing.T) {
	h := pqueue.NewDelayedHeap()
	s := New(h)
	assert.False(t, s.CancelScheduled(999))
}

func TestOnJobCompletedUnknownJobReturnsFalse(t *testing.T) {
	h := pqueue.NewDelayedHeap()
	s := New(h)
	_, ok := s.OnJobCompleted(job.NextID())
	assert.False(t, ok)
}
