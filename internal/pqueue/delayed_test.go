package pqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/taskpool/pkg/job"
)

func delayedRecord(id job.ID, due time.Time) *job.Record {
	return &job.Record{ID: id, ReleaseAt: due, IsDelayed: true}
}

func TestDelayedHeapOrdersByReleaseAt(t *testing.T) {
	h := NewDelayedHeap()
	base := time.Now()
	h.Insert(delayedRecord(1, base.Add(300*time.Millisecond)))
	h.Insert(delayedRecord(2, base.Add(100*time.Millisecond)))
	h.Insert(delayedRecord(3, base.Add(200*time.Millisecond)))

	due := h.PopAllDue(base.Add(250 * time.Millisecond))
	require.Len(t, due, 2)
	assert.Equal(t, job.ID(2), due[0].ID)
	assert.Equal(t, job.ID(3), due[1].ID)
	assert.Equal(t, 1, h.Len())
}

func TestDelayedHeapTiesBreakByInsertionOrder(t *testing.T) {
	h := NewDelayedHeap()
	same := time.Now()
	h.Insert(delayedRecord(1, same))
	h.Insert(delayedRecord(2, same))
	h.Insert(delayedRecord(3, same))

	due := h.PopAllDue(same)
	require.Len(t, due, 3)
	assert.Equal(t, []job.ID{1, 2, 3}, []job.ID{due[0].ID, due[1].ID, due[2].ID})
}

func TestDelayedHeapRemove(t *testing.T) {
	h := NewDelayedHeap()
	due := time.Now().Add(time.Hour)
	h.Insert(delayedRecord(1, due))
	h.Insert(delayedRecord(2, due))

	assert.True(t, h.Remove(1))
	assert.False(t, h.Remove(1))
	assert.Equal(t, 1, h.Len())

	all := h.PopAllDue(due)
	require.Len(t, all, 1)
	assert.Equal(t, job.ID(2), all[0].ID)
}

func TestDelayedHeapNextDue(t *testing.T) {
	h := NewDelayedHeap()
	_, ok := h.NextDue()
	assert.False(t, ok)

	due := time.Now().Add(time.Minute)
	h.Insert(delayedRecord(1, due))
	got, ok := h.NextDue()
	require.True(t, ok)
	assert.WithinDuration(t, due, got, time.Millisecond)
}
