package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityBandOrdering(t *testing.T) {
	assert.Equal(t, 0, Critical.Band())
	assert.Equal(t, 1, High.Band())
	assert.Equal(t, 2, Normal.Band())
	assert.Equal(t, 3, Low.Band())
	assert.Equal(t, NumBands, 4)
}

func TestPriorityBandClampsOutOfRange(t *testing.T) {
	assert.Equal(t, 0, Priority(-5).Band())
	assert.Equal(t, 3, Priority(99).Band())
}

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusSuccess, StatusFailed, StatusCancelled, StatusTimedOut}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), s.String())
	}
	nonTerminal := []Status{StatusQueued, StatusRunning}
	for _, s := range nonTerminal {
		assert.False(t, s.Terminal(), s.String())
	}
}

func TestNextIDMonotonicAndUnique(t *testing.T) {
	a := NextID()
	b := NextID()
	assert.NotEqual(t, a, b)
	assert.True(t, b > a)
	assert.False(t, a.IsZero())
	assert.True(t, NoID.IsZero())
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff{Initial: 100_000_000} // 100ms in ns
	assert.Equal(t, b.Initial, b.Next(1))
	assert.Equal(t, 2*b.Initial, b.Next(2))
	assert.Equal(t, 4*b.Initial, b.Next(3))
}

func TestExponentialBackoffClampsToMax(t *testing.T) {
	b := ExponentialBackoff{Initial: 1_000_000_000, Max: 3_000_000_000}
	assert.Equal(t, b.Max, b.Next(10))
}
