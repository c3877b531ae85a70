// Package resultcache implements C6: a bounded, optionally TTL-expiring
// store of terminal job outcomes, guarded by its own mutex independent of
// the pool's central mutex so result reads never contend with dispatch.
//
// Grounded on the teacher's internal/jobmanager secondary-index style
// (completed/dead maps keyed by JobID, under their own RWMutex) and, for
// the age-based eviction shape, the retrieved noisefs eviction.go's
// EvictionPolicy (mutex-guarded store with explicit OnStore/SelectVictim
// operations) — adapted here to age-from-completion TTL rather than LRU
// access order, since spec.md's cache expires by elapsed time, not usage.
package resultcache

import (
	"sync"
	"time"

	"github.com/ChuLiYu/taskpool/pkg/job"
)

type entry struct {
	outcome job.Outcome
	storedAt time.Time
}

// Cache stores job.Outcome values keyed by job.ID. When ttlEnabled is
// true, entries older than ttl are dropped by ClearExpired (called
// periodically by the monitor) and are treated as absent by Get in the
// meantime.
type Cache struct {
	mu         sync.Mutex
	entries    map[job.ID]entry
	ttl        time.Duration
	ttlEnabled bool
}

// New returns a Cache. ttl is ignored unless ttlEnabled is true.
func New(ttl time.Duration, ttlEnabled bool) *Cache {
	return &Cache{
		entries:    make(map[job.ID]entry),
		ttl:        ttl,
		ttlEnabled: ttlEnabled,
	}
}

// Set stores the terminal outcome for id, overwriting any prior entry.
func (c *Cache) Set(id job.ID, outcome job.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = entry{outcome: outcome, storedAt: time.Now()}
}

// Get returns the stored outcome for id, if present and not expired.
func (c *Cache) Get(id job.ID) (job.Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return job.Outcome{}, false
	}
	if c.ttlEnabled && time.Since(e.storedAt) > c.ttl {
		delete(c.entries, id)
		return job.Outcome{}, false
	}
	return e.outcome, true
}

// Remove deletes the entry for id, reporting whether one existed.
func (c *Cache) Remove(id job.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok {
		return false
	}
	delete(c.entries, id)
	return true
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[job.ID]entry)
}

// ClearExpired removes every entry older than ttl, a no-op if ttl tracking
// is disabled. Returns the number of entries removed. Called by the
// monitor's periodic sweep (every 60s); Pool.ClearExpiredResults uses
// ClearExpiredOlderThan instead.
func (c *Cache) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ttlEnabled {
		return 0
	}
	now := time.Now()
	removed := 0
	for id, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// ClearExpiredOlderThan removes every entry whose age exceeds maxAge,
// regardless of whether TTL tracking is enabled, and returns the number
// removed. Unlike ClearExpired (the monitor's TTL-keyed periodic sweep,
// a no-op while TTL tracking is disabled), this takes an explicit caller-supplied age, matching
// spec.md's clear_expired_results(max_age_ms) signature.
func (c *Cache) ClearExpiredOlderThan(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, e := range c.entries {
		if now.Sub(e.storedAt) > maxAge {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live (not necessarily unexpired) entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// All returns a snapshot copy of every stored outcome, unexpired entries
// only.
func (c *Cache) All() map[job.ID]job.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	out := make(map[job.ID]job.Outcome, len(c.entries))
	for id, e := range c.entries {
		if c.ttlEnabled && now.Sub(e.storedAt) > c.ttl {
			continue
		}
		out[id] = e.outcome
	}
	return out
}
