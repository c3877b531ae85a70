package taskpool

// StatusSummary is a point-in-time snapshot of the pool's worker and queue
// state, returned by Status() and printed as JSON by the CLI's `status`
// command per SPEC_FULL.md's supplemented "snapshot-shaped status export"
// feature. No persistence semantics: never written to disk by the pool
// itself.
type StatusSummary struct {
	State          string  `json:"state"`
	Paused         bool    `json:"paused"`
	Workers        int     `json:"workers"`
	IdleWorkers    int     `json:"idle_workers"`
	QueueDepth     int     `json:"queue_depth"`
	DelayedPending int     `json:"delayed_pending"`
	InFlight       int     `json:"in_flight"`
	CachedResults  int     `json:"cached_results"`
	Completed      int     `json:"completed"`
	Failed         int     `json:"failed"`
	SuccessRate    float64 `json:"success_rate"`
}

func (s poolState) String() string {
	switch s {
	case notRunning:
		return "not_running"
	case running:
		return "running"
	case disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Status returns a StatusSummary describing the pool's current state.
func (p *Pool) Status() StatusSummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	queueDepth := p.queue.Len()
	pendingTotal := len(p.pending)
	inFlight := pendingTotal - queueDepth - p.delayed.Len()
	if inFlight < 0 {
		inFlight = 0
	}

	total := p.completedCount + p.failedCount
	var successRate float64
	if total > 0 {
		successRate = float64(p.completedCount) / float64(total)
	}

	return StatusSummary{
		State:          p.state.String(),
		Paused:         p.paused,
		Workers:        len(p.workers),
		IdleWorkers:    p.countIdleLocked(),
		QueueDepth:     queueDepth,
		DelayedPending: p.delayed.Len(),
		InFlight:       inFlight,
		CachedResults:  p.cache.Len(),
		Completed:      p.completedCount,
		Failed:         p.failedCount,
		SuccessRate:    successRate,
	}
}
