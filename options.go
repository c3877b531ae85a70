package taskpool

import (
	"time"

	"github.com/ChuLiYu/taskpool/internal/logsink"
	"github.com/ChuLiYu/taskpool/internal/metrics"
	"github.com/ChuLiYu/taskpool/pkg/perr"
)

// PoolOptions configures a Pool at construction time. Matches spec.md §6's
// configuration surface; default values are filled in by New before
// any PoolOption runs.
type PoolOptions struct {
	MinWorkers int
	MaxWorkers int

	// QueueLimit makes Submit fail with ErrCapacity once the live queue
	// plus the delayed heap hold this many jobs. ScheduleDelayed,
	// ScheduleRecurring and delayed-job promotion are not checked against
	// it. Zero means unbounded.
	QueueLimit int

	// IdleWorkerTimeout is how long a worker above MinWorkers may sit
	// idle before it exits (the worker checks this itself between waits).
	// Zero disables idle reaping.
	IdleWorkerTimeout time.Duration

	CacheTTL        time.Duration
	CacheTTLEnabled bool

	// StartSuspended, if true, starts the pool paused: workers run but
	// hold off dequeuing until Resume is called.
	StartSuspended bool

	WorkerNamePrefix string

	Logger  logsink.Sink
	Metrics *metrics.Collector
}

// PoolOption mutates an in-progress PoolOptions, returning an error if the
// value is invalid.
type PoolOption func(*PoolOptions) error

// WithMinWorkers sets the worker count the pool starts with and never
// shrinks below.
func WithMinWorkers(n int) PoolOption {
	return func(o *PoolOptions) error {
		if n < 0 {
			return perr.NewInvalidArgument("MinWorkers", "must be non-negative")
		}
		o.MinWorkers = n
		return nil
	}
}

// WithMaxWorkers sets the ceiling the pool's elastic expansion may grow
// to.
func WithMaxWorkers(n int) PoolOption {
	return func(o *PoolOptions) error {
		if n < 1 {
			return perr.NewInvalidArgument("MaxWorkers", "must be at least 1")
		}
		o.MaxWorkers = n
		return nil
	}
}

// WithQueueLimit sets the queued-plus-delayed job count at which Submit
// fails with ErrCapacity; scheduling calls are not checked. Zero means
// unbounded.
func WithQueueLimit(n int) PoolOption {
	return func(o *PoolOptions) error {
		if n < 0 {
			return perr.NewInvalidArgument("QueueLimit", "must be non-negative")
		}
		o.QueueLimit = n
		return nil
	}
}

// WithIdleWorkerTimeout sets how long a worker above MinWorkers may sit
// idle before being reaped. Zero disables idle reaping.
func WithIdleWorkerTimeout(d time.Duration) PoolOption {
	return func(o *PoolOptions) error {
		if d < 0 {
			return perr.NewInvalidArgument("IdleWorkerTimeout", "must be non-negative")
		}
		o.IdleWorkerTimeout = d
		return nil
	}
}

// WithCacheTTL enables result-cache expiry after d has elapsed since an
// outcome was stored.
func WithCacheTTL(d time.Duration) PoolOption {
	return func(o *PoolOptions) error {
		if d <= 0 {
			return perr.NewInvalidArgument("CacheTTL", "must be positive")
		}
		o.CacheTTL = d
		o.CacheTTLEnabled = true
		return nil
	}
}

// WithStartSuspended starts the pool paused; Resume must be called before
// any worker dequeues a job.
func WithStartSuspended() PoolOption {
	return func(o *PoolOptions) error {
		o.StartSuspended = true
		return nil
	}
}

// WithWorkerNamePrefix sets the diagnostic name prefix assigned to spawned
// workers (surfaced in logs only).
func WithWorkerNamePrefix(prefix string) PoolOption {
	return func(o *PoolOptions) error {
		o.WorkerNamePrefix = prefix
		return nil
	}
}

// WithLogger sets the Sink the pool and its internal components log
// through. Defaults to a no-op sink.
func WithLogger(log logsink.Sink) PoolOption {
	return func(o *PoolOptions) error {
		o.Logger = log
		return nil
	}
}

// WithMetrics attaches a Prometheus collector the pool reports submission,
// completion and queue/worker gauges to. Optional; nil by default.
func WithMetrics(c *metrics.Collector) PoolOption {
	return func(o *PoolOptions) error {
		o.Metrics = c
		return nil
	}
}

func defaultOptions() PoolOptions {
	return PoolOptions{
		MinWorkers:       1,
		MaxWorkers:       4,
		IdleWorkerTimeout: 30 * time.Second,
		Logger:           logsink.Nop{},
	}
}

func (o PoolOptions) validate() error {
	if o.MaxWorkers < o.MinWorkers {
		return perr.NewInvalidArgument("MaxWorkers", "must be >= MinWorkers")
	}
	return nil
}
