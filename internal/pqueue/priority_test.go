package pqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/taskpool/pkg/job"
)

func recordWithPriority(id job.ID, p job.Priority) *job.Record {
	return &job.Record{ID: id, Opts: job.Options{Priority: p}}
}

func TestPriorityQueueStrictBandOrdering(t *testing.T) {
	q := New()
	q.Push(recordWithPriority(1, job.Low))
	q.Push(recordWithPriority(2, job.Normal))
	q.Push(recordWithPriority(3, job.Critical))
	q.Push(recordWithPriority(4, job.High))

	var order []job.ID
	for {
		r, ok := q.TryPop()
		if !ok {
			break
		}
		order = append(order, r.ID)
	}
	assert.Equal(t, []job.ID{3, 4, 2, 1}, order)
}

func TestPriorityQueueFIFOWithinBand(t *testing.T) {
	q := New()
	q.Push(recordWithPriority(1, job.Normal))
	q.Push(recordWithPriority(2, job.Normal))
	q.Push(recordWithPriority(3, job.Normal))

	r1, ok := q.TryPop()
	require.True(t, ok)
	r2, ok := q.TryPop()
	require.True(t, ok)
	r3, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, []job.ID{r1.ID, r2.ID, r3.ID}, []job.ID{1, 2, 3})
}

func TestPriorityQueueEmptyPop(t *testing.T) {
	q := New()
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestPriorityQueueLenAndDrain(t *testing.T) {
	q := New()
	q.Push(recordWithPriority(1, job.Normal))
	q.Push(recordWithPriority(2, job.Critical))
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 1, q.LenByBand(job.Critical))

	drained := q.Drain()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, q.Len())
}
