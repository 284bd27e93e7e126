// Package circuitbreaker implements the circuit-breaker pattern for calls
// to external resources (market-data sources and computation backends).
// Each resource gets its own CircuitBreaker, usually via a Registry.
//
// State transitions:
//
//	Closed → Open        when consecutive failures ≥ FailureThreshold
//	Open   → HalfOpen   after Timeout elapses
//	HalfOpen → Closed   when consecutive successes ≥ SuccessThreshold
//	HalfOpen → Open     on any failure
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker's current state.
type State int

const (
	// StateClosed — normal operation; calls pass through.
	StateClosed State = iota
	// StateOpen — resource is considered failing; calls are rejected immediately.
	StateOpen
	// StateHalfOpen — circuit is testing recovery with a limited number of calls.
	StateHalfOpen
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected because the circuit is
// open. It is deliberately not classified transient: retrying into an open
// circuit at the single-resource level is pointless, the provider chain
// instead moves on to the next backend.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Settings configures a breaker. Zero or negative fields fall back to the
// defaults: 5 failures to open, 2 successes to close, 60s open timeout.
type Settings struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.SuccessThreshold <= 0 {
		s.SuccessThreshold = 2
	}
	if s.Timeout <= 0 {
		s.Timeout = 60 * time.Second
	}
	return s
}

// Snapshot is a point-in-time view of one breaker, used by the health
// monitor and operator tooling.
type Snapshot struct {
	Resource             string    `json:"resource"`
	State                string    `json:"state"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	TotalCalls           int64     `json:"total_calls"`
	TotalFailures        int64     `json:"total_failures"`
	OpenedAt             time.Time `json:"opened_at,omitzero"`
}

// CircuitBreaker guards a single downstream resource. All callers targeting
// that resource share one instance and observe the same state; transitions
// are serialized under the breaker's own mutex.
type CircuitBreaker struct {
	resource string

	mu                   sync.Mutex
	settings             Settings
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	openedAt             time.Time
	totalCalls           int64
	totalFailures        int64
	now                  func() time.Time
}

// New creates a CircuitBreaker for the named resource.
func New(resource string, settings Settings) *CircuitBreaker {
	return &CircuitBreaker{
		resource: resource,
		settings: settings.withDefaults(),
		state:    StateClosed,
		now:      time.Now,
	}
}

// Resource returns the identifier of the guarded resource.
func (cb *CircuitBreaker) Resource() string { return cb.resource }

// State returns the current state, transitioning Open→HalfOpen if the open
// timeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.resolveState()
}

// resolveState must be called with cb.mu held.
func (cb *CircuitBreaker) resolveState() State {
	if cb.state == StateOpen && cb.now().After(cb.openedAt.Add(cb.settings.Timeout)) {
		cb.state = StateHalfOpen
		cb.consecutiveSuccesses = 0
	}
	return cb.state
}

// Allow returns true if the call should proceed (circuit is Closed or
// HalfOpen), false if it should be rejected (circuit is Open).
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.resolveState() != StateOpen
}

// RecordSuccess notifies the breaker that a call succeeded.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalCalls++
	switch cb.resolveState() {
	case StateHalfOpen:
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.settings.SuccessThreshold {
			cb.state = StateClosed
			cb.consecutiveFailures = 0
			cb.consecutiveSuccesses = 0
		}
	case StateClosed:
		cb.consecutiveFailures = 0
		cb.consecutiveSuccesses++
	}
}

// RecordFailure notifies the breaker that a call failed.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalCalls++
	cb.totalFailures++
	switch cb.resolveState() {
	case StateClosed:
		cb.consecutiveSuccesses = 0
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.settings.FailureThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
	case StateHalfOpen:
		cb.state = StateOpen
		cb.openedAt = cb.now()
		cb.consecutiveSuccesses = 0
	}
}

// Reset forces the breaker back to Closed and zeroes the consecutive
// counters. Operator intervention only; normal call paths never reset.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	cb.openedAt = time.Time{}
}

// Snapshot returns a point-in-time view of the breaker.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	snap := Snapshot{
		Resource:             cb.resource,
		State:                cb.resolveState().String(),
		ConsecutiveFailures:  cb.consecutiveFailures,
		ConsecutiveSuccesses: cb.consecutiveSuccesses,
		TotalCalls:           cb.totalCalls,
		TotalFailures:        cb.totalFailures,
	}
	if cb.state == StateOpen {
		snap.OpenedAt = cb.openedAt
	}
	return snap
}
