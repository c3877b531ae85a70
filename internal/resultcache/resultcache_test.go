package resultcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/taskpool/pkg/job"
)

func TestSetAndGet(t *testing.T) {
	c := New(0, false)
	c.Set(1, job.Outcome{ID: 1, Status: job.StatusSuccess})
	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, job.StatusSuccess, got.Status)
}

func TestGetMissing(t *testing.T) {
	c := New(0, false)
	_, ok := c.Get(99)
	assert.False(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	c := New(10*time.Millisecond, true)
	c.Set(1, job.Outcome{ID: 1})
	_, ok := c.Get(1)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get(1)
	assert.False(t, ok)
}

func TestClearExpired(t *testing.T) {
	c := New(10*time.Millisecond, true)
	c.Set(1, job.Outcome{ID: 1})
	c.Set(2, job.Outcome{ID: 2})
	time.Sleep(20 * time.Millisecond)
	n := c.ClearExpired()
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, c.Len())
}

func TestClearExpiredNoopWhenDisabled(t *testing.T) {
	c := New(0, false)
	c.Set(1, job.Outcome{ID: 1})
	assert.Equal(t, 0, c.ClearExpired())
	assert.Equal(t, 1, c.Len())
}

func TestClearExpiredOlderThanIgnoresTTLConfig(t *testing.T) {
	c := New(0, false) // TTL tracking disabled entirely
	c.Set(1, job.Outcome{ID: 1})
	time.Sleep(20 * time.Millisecond)
	c.Set(2, job.Outcome{ID: 2})

	n := c.ClearExpiredOlderThan(10 * time.Millisecond)
	assert.Equal(t, 1, n)
	_, ok := c.Get(2)
	assert.True(t, ok, "entry younger than maxAge must survive")
	_, ok = c.Get(1)
	assert.False(t, ok, "entry older than maxAge must be removed")
}

func TestRemoveAndClear(t *testing.T) {
	c := New(0, false)
	c.Set(1, job.Outcome{ID: 1})
	assert.True(t, c.Remove(1))
	assert.False(t, c.Remove(1))

	c.Set(2, job.Outcome{ID: 2})
	c.Set(3, job.Outcome{ID: 3})
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestAllExcludesExpired(t *testing.T) {
	c := New(10*time.Millisecond, true)
	c.Set(1, job.Outcome{ID: 1})
	time.Sleep(20 * time.Millisecond)
	c.Set(2, job.Outcome{ID: 2})
	all := c.All()
	assert.Len(t, all, 1)
	_, ok := all[2]
	assert.True(t, ok)
}
