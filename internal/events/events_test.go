package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ChuLiYu/taskpool/pkg/job"
)

func TestPublishDeliversOnlyMatchingKind(t *testing.T) {
	b := New(nil)
	var completed, failed int
	b.Subscribe(KindCompleted, func(Event) { completed++ })
	b.Subscribe(KindFailed, func(Event) { failed++ })

	b.Publish(Event{Kind: KindCompleted, Outcome: job.Outcome{Status: job.StatusSuccess}})
	assert.Equal(t, 1, completed)
	assert.Equal(t, 0, failed)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(nil)
	var n int
	id := b.Subscribe(KindLifecycle, func(Event) { n++ })
	b.Publish(Event{Kind: KindLifecycle, Lifecycle: LifecycleStarted})
	assert.True(t, b.Unsubscribe(id))
	b.Publish(Event{Kind: KindLifecycle, Lifecycle: LifecycleStopped})
	assert.Equal(t, 1, n)
	assert.False(t, b.Unsubscribe(id))
}

func TestHandlerPanicIsContainedAndOthersStillRun(t *testing.T) {
	b := New(nil)
	var ran bool
	b.Subscribe(KindCompleted, func(Event) { panic("boom") })
	b.Subscribe(KindCompleted, func(Event) { ran = true })

	assert.NotPanics(t, func() {
		b.Publish(Event{Kind: KindCompleted})
	})
	assert.True(t, ran)
}

func TestPublishIsOrderedByRegistration(t *testing.T) {
	b := New(nil)
	var mu sync.Mutex
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		b.Subscribe(KindCompleted, func(Event) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	b.Publish(Event{Kind: KindCompleted})
	assert.Equal(t, []int{0, 1, 2}, order)
}
