package job

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Options carries the optional submission parameters of spec.md §3: the
// priority band, a per-attempt timeout, a cooperative cancellation token,
// a retry budget and its interval/condition, and a diagnostic name.
type Options struct {
	Priority     Priority
	Timeout      time.Duration
	Cancellation *CancellationToken
	MaxRetries   int

	// RetryInterval is the fixed delay observed between attempts. Ignored
	// once RetryBackoff is set, which supplies a per-attempt delay
	// instead.
	RetryInterval  time.Duration
	RetryBackoff   *ExponentialBackoff
	RetryCondition func(err error) bool
	Name           string
}

// DefaultRetryCondition retries any non-nil error. Callers that want
// Cancelled/TimedOut attempts to short-circuit retries (the common case)
// get that behavior for free from the executor pipeline, which checks the
// attempt's terminal Status before consulting RetryCondition at all.
func DefaultRetryCondition(err error) bool {
	return err != nil
}

// Option mutates an in-progress Options value, returning an error if the
// supplied value is out of range. Modeled on the teacher pack's functional
// option style (qpool's JobOption, zJUNAIDz's SubscribeOption).
type Option func(*Options) error

// maxPlatformTimeout mirrors the int32-millisecond ceiling many native
// thread-pool timeout APIs impose; rejecting here at construction time
// keeps the executor pipeline's timer math from silently overflowing.
const maxPlatformTimeout = time.Duration(math.MaxInt32) * time.Millisecond

// WithPriority sets the submission's priority band.
func WithPriority(p Priority) Option {
	return func(o *Options) error {
		o.Priority = p
		return nil
	}
}

// WithTimeout sets a per-attempt execution timeout. A zero or negative
// duration disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) error {
		if d > maxPlatformTimeout {
			return fmt.Errorf("job: timeout %s exceeds platform maximum %s", d, maxPlatformTimeout)
		}
		o.Timeout = d
		return nil
	}
}

// WithCancellationToken attaches a cooperative cancellation token. The
// executor pipeline observes it between attempts and, for context-aware
// callables, for the duration of the attempt itself.
func WithCancellationToken(t *CancellationToken) Option {
	return func(o *Options) error {
		o.Cancellation = t
		return nil
	}
}

// WithMaxRetries sets the number of retry attempts after the first. A
// negative value is rejected.
func WithMaxRetries(n int) Option {
	return func(o *Options) error {
		if n < 0 {
			return fmt.Errorf("job: max retries %d must be non-negative", n)
		}
		o.MaxRetries = n
		return nil
	}
}

// WithRetryInterval sets the fixed delay observed between a failed attempt
// and the next. A negative value is rejected.
func WithRetryInterval(d time.Duration) Option {
	return func(o *Options) error {
		if d < 0 {
			return fmt.Errorf("job: retry interval %s must be non-negative", d)
		}
		o.RetryInterval = d
		return nil
	}
}

// WithRetryBackoff sets a per-attempt exponential backoff schedule,
// overriding the fixed RetryInterval for every attempt after the first
// failure.
func WithRetryBackoff(b ExponentialBackoff) Option {
	return func(o *Options) error {
		o.RetryBackoff = &b
		return nil
	}
}

// WithRetryCondition overrides the predicate the executor pipeline
// consults, after a failed non-terminal attempt, to decide whether another
// attempt should be made.
func WithRetryCondition(f func(err error) bool) Option {
	return func(o *Options) error {
		o.RetryCondition = f
		return nil
	}
}

// WithName attaches a diagnostic name, copied onto the job's Record.Name;
// it has no effect on scheduling or execution. The pool does not include
// it in Status() or in its log fields.
func WithName(name string) Option {
	return func(o *Options) error {
		o.Name = name
		return nil
	}
}

// NewOptions builds an Options value from zero or more Option functions,
// starting from the documented defaults (Normal priority, no timeout, no
// retries, DefaultRetryCondition).
func NewOptions(opts ...Option) (Options, error) {
	o := Options{
		Priority:       Normal,
		RetryCondition: DefaultRetryCondition,
	}
	for _, apply := range opts {
		if apply == nil {
			continue
		}
		if err := apply(&o); err != nil {
			return Options{}, err
		}
	}
	return o, nil
}

// CancellationToken is a one-shot, idempotent cancellation signal shared
// between a submitter and the executor pipeline driving a job's attempts.
// Safe for concurrent use; Cancel may be called from any goroutine, any
// number of times.
type CancellationToken struct {
	once sync.Once
	done chan struct{}
}

// NewCancellationToken returns a token in the not-cancelled state.
func NewCancellationToken() *CancellationToken {
	return &CancellationToken{done: make(chan struct{})}
}

// Cancel signals cancellation. Idempotent: subsequent calls are no-ops.
func (t *CancellationToken) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() { close(t.done) })
}

// Done returns a channel closed once Cancel has been called. A nil token
// returns a nil channel, which blocks forever in a select, matching the
// "no cancellation requested" case.
func (t *CancellationToken) Done() <-chan struct{} {
	if t == nil {
		return nil
	}
	return t.done
}

// Cancelled reports whether Cancel has been called.
func (t *CancellationToken) Cancelled() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
