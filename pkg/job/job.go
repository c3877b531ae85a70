// Package job defines the data model shared by the pool, its worker loop,
// executor pipeline, result cache and scheduler: job identifiers,
// priorities, submission options and the terminal outcome record.
//
// The shapes here descend from the teacher's pkg/types.Job/JobStatus: the
// same create/enqueue timestamp fields (without JSON tags), generalized
// from a single pending/in_flight/completed/dead job to the richer
// Queued/Running/Success/Failed/Cancelled/TimedOut lifecycle the pool
// needs.
package job

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// ID is an opaque, totally ordered, process-unique job identifier.
// The zero value is the distinguished "no job" value.
type ID uint64

// NoID is the distinguished empty job identifier.
const NoID ID = 0

func (id ID) String() string {
	return fmt.Sprintf("job-%d", uint64(id))
}

// IsZero reports whether id is the "no job" value.
func (id ID) IsZero() bool { return id == NoID }

var idCounter uint64

// NextID allocates a new process-unique job identifier. Safe for concurrent
// use by any number of submitters.
func NextID() ID {
	return ID(atomic.AddUint64(&idCounter, 1))
}

// Priority is one of a small ordered set of priority bands. Lower numeric
// values are higher priority; Critical is dequeued before High, High
// before Normal, Normal before Low.
type Priority int

const (
	Critical Priority = iota
	High
	Normal
	Low

	// NumBands is the number of priority bands C1 maintains. Priority's
	// numeric value doubles as its band index: dequeue scans bands
	// 0..NumBands-1 in order, so Critical (0) is always checked first.
	NumBands = int(Low) + 1
)

func (p Priority) String() string {
	switch p {
	case Critical:
		return "critical"
	case High:
		return "high"
	case Normal:
		return "normal"
	case Low:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Band returns the priority queue band index for p. Out-of-range values
// clamp to the nearest band: below Critical to Critical, above Low to Low.
func (p Priority) Band() int {
	if p < Critical {
		return int(Critical)
	}
	if p > Low {
		return int(Low)
	}
	return int(p)
}

// Status is a job's terminal or in-flight lifecycle state.
type Status int

const (
	StatusQueued Status = iota
	StatusRunning
	StatusSuccess
	StatusFailed
	StatusCancelled
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	case StatusTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether s is one of the four terminal states.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	default:
		return false
	}
}

// Func is the unified shape every submitted callable collapses to at the
// pipeline boundary: a context-aware call returning an optional value. A
// fire-and-forget action is wrapped to always return (nil, err).
type Func func(ctx context.Context) (any, error)

// Outcome is the terminal record cached once a job's pipeline reaches a
// terminal state.
type Outcome struct {
	ID        ID
	Status    Status
	Value     any
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
	Attempts  int
}

// Record is a job's identity plus its mutable per-attempt state. Created
// at submission, mutated only by the worker driving its current attempt.
type Record struct {
	ID      ID
	Fn      Func
	Opts    Options
	Name    string
	Created time.Time

	// EnqueuedAt is set each time the record lands in the live priority
	// queue (on submission, or on promotion from the delayed heap).
	EnqueuedAt time.Time

	// IsDelayed and ReleaseAt are only meaningful while the record sits
	// in the delayed heap (C2); they are irrelevant once it reaches C1.
	IsDelayed bool
	ReleaseAt time.Time

	// Attempt is the 1-based count of the attempt currently in flight,
	// or the final count once terminal.
	Attempt int
}
