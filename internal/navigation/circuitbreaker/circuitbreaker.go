// Package circuitbreaker guards the OS-level link opener. A handler for a
// given URL scheme that keeps failing stops being attempted for a while; the
// dispatch failures themselves are always swallowed upstream, the breaker
// only avoids pointless repeated launches.
package circuitbreaker

import (
	"sync"
	"time"
)

// State represents the state of one scheme's circuit.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

const (
	defaultFailureThreshold = 3
	defaultResetTimeout     = 30 * time.Second
)

// Config controls the breaker's thresholds. Zero values select defaults.
type Config struct {
	FailureThreshold int           // consecutive failures that open the circuit
	ResetTimeout     time.Duration // time before an open circuit allows a probe
}

type targetState struct {
	state               State
	consecutiveFailures int
	openUntil           time.Time
}

// CircuitBreaker tracks opener health per URL scheme.
type CircuitBreaker struct {
	mu               sync.Mutex
	targets          map[string]*targetState
	failureThreshold int
	resetTimeout     time.Duration
}

// NewCircuitBreaker creates a breaker with the given config.
func NewCircuitBreaker(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	return &CircuitBreaker{
		targets:          make(map[string]*targetState),
		failureThreshold: cfg.FailureThreshold,
		resetTimeout:     cfg.ResetTimeout,
	}
}

func (cb *CircuitBreaker) getTargetState(scheme string) *targetState {
	ts, exists := cb.targets[scheme]
	if !exists {
		ts = &targetState{state: StateClosed}
		cb.targets[scheme] = ts
	}
	return ts
}

// AllowRequest reports whether a launch attempt is allowed for the scheme.
// An open circuit whose reset timeout expired transitions to half-open and
// allows a single probe.
func (cb *CircuitBreaker) AllowRequest(scheme string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ts := cb.getTargetState(scheme)
	switch ts.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Now().After(ts.openUntil) {
			ts.state = StateHalfOpen
			ts.consecutiveFailures = 0
			return true
		}
		return false
	case StateHalfOpen:
		return true
	default:
		ts.state = StateClosed
		return true
	}
}

// RecordFailure notes a failed launch for the scheme.
func (cb *CircuitBreaker) RecordFailure(scheme string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ts := cb.getTargetState(scheme)
	switch ts.state {
	case StateClosed:
		ts.consecutiveFailures++
		if ts.consecutiveFailures >= cb.failureThreshold {
			ts.state = StateOpen
			ts.openUntil = time.Now().Add(cb.resetTimeout)
		}
	case StateHalfOpen:
		// The probe failed: re-open immediately.
		ts.state = StateOpen
		ts.openUntil = time.Now().Add(cb.resetTimeout)
		ts.consecutiveFailures = 0
	case StateOpen:
	}
}

// RecordSuccess notes a successful launch for the scheme.
func (cb *CircuitBreaker) RecordSuccess(scheme string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ts := cb.getTargetState(scheme)
	switch ts.state {
	case StateClosed:
		ts.consecutiveFailures = 0
	case StateHalfOpen:
		ts.state = StateClosed
		ts.consecutiveFailures = 0
	case StateOpen:
		// AllowRequest should have prevented the call; success while open
		// does not transition.
	}
}

// GetTargetStatus returns the current state and consecutive failure count for
// a scheme, for tests and monitoring. It does not transition state.
func (cb *CircuitBreaker) GetTargetStatus(scheme string) (State, int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	ts, exists := cb.targets[scheme]
	if !exists {
		return StateClosed, 0
	}
	return ts.state, ts.consecutiveFailures
}
