/**
 * @description
 * Circuit breaker for remote services.
 * One breaker per service name gates calls to the upstream catalog API:
 * CLOSED passes calls through, OPEN rejects synchronously, HALF_OPEN admits
 * exactly one probe call to test recovery.
 *
 * @dependencies
 * - standard "sync"
 * - standard "time"
 *
 * @notes
 * - Only failures of the transient kind should be recorded; the caller
 *   classifies errors before calling RecordFailure.
 * - The clock is injectable so tests don't sleep through recovery timeouts.
 */

package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State of a circuit breaker.
type State int

const (
	StateClosed   State = iota // normal operation, calls pass through
	StateOpen                  // calls rejected immediately
	StateHalfOpen              // one probe call allowed to test recovery
)

// String renders the state for logs and the status endpoint.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

// ErrOpen is returned when a call is rejected because the breaker is open.
// Callers match it with errors.Is to short-circuit instead of retrying.
var ErrOpen = errors.New("circuit breaker open")

// OpenError carries the rejecting service's name.
type OpenError struct {
	Service string
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for service %q", e.Service)
}

func (e *OpenError) Unwrap() error { return ErrOpen }

// Breaker is a per-service circuit breaker. Thread-safe.
type Breaker struct {
	mu          sync.Mutex
	service     string
	state       State
	failures    int
	threshold   int
	recovery    time.Duration
	probing     bool // a half-open probe is in flight
	lastFailure time.Time
	lastSuccess time.Time
	now         func() time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithThreshold sets the consecutive-failure count that trips the breaker.
func WithThreshold(n int) Option {
	return func(b *Breaker) { b.threshold = n }
}

// WithRecoveryTimeout sets how long the breaker stays open before allowing
// a probe.
func WithRecoveryTimeout(d time.Duration) Option {
	return func(b *Breaker) { b.recovery = d }
}

// WithClock sets a custom clock function (for testing).
func WithClock(fn func() time.Time) Option {
	return func(b *Breaker) { b.now = fn }
}

// New creates a breaker with the default tuning: 5 consecutive failures to
// open, 60s recovery timeout.
func New(service string, opts ...Option) *Breaker {
	b := &Breaker{
		service:   service,
		state:     StateClosed,
		threshold: 5,
		recovery:  60 * time.Second,
		now:       time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Allow reports whether a call may proceed. In HALF_OPEN only the first
// caller gets through; everyone else is rejected until the probe resolves.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransition()

	switch b.state {
	case StateOpen:
		return &OpenError{Service: b.service}
	case StateHalfOpen:
		if b.probing {
			return &OpenError{Service: b.service}
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

// RecordSuccess records a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSuccess = b.now()

	switch b.state {
	case StateHalfOpen:
		b.state = StateClosed
		b.failures = 0
		b.probing = false
	case StateClosed:
		b.failures = 0
	}
}

// RecordFailure records a counted failure. The caller decides which error
// kinds count; 4xx responses other than 429 should not reach here.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailure = b.now()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.state = StateOpen
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.probing = false
	}
}

// State returns the current state, applying the recovery transition first.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransition()
	return b.state
}

// Stats is an externally observable snapshot of a breaker.
type Stats struct {
	Service     string    `json:"service"`
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure"`
	LastSuccess time.Time `json:"last_success"`
}

// Snapshot returns the breaker's observable stats.
func (b *Breaker) Snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransition()
	return Stats{
		Service:     b.service,
		State:       b.state.String(),
		Failures:    b.failures,
		LastFailure: b.lastFailure,
		LastSuccess: b.lastSuccess,
	}
}

// maybeTransition moves an open breaker to half-open once the recovery
// timeout has elapsed. Must be called with mu held.
func (b *Breaker) maybeTransition() {
	if b.state == StateOpen && b.now().Sub(b.lastFailure) >= b.recovery {
		b.state = StateHalfOpen
		b.probing = false
	}
}
