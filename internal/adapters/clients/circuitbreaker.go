package clients

import (
	"sync"
	"time"

	"github.com/jsamuelsen/platform-service/internal/platform/config"
)

// State is the breaker's view of the downstream service.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half-open",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// CircuitBreaker counts consecutive failures of one downstream service.
//
// MaxFailures failures in a row open it. After Timeout it admits up to
// HalfOpenLimit probes; that many successes close it again and any failure
// reopens it.
type CircuitBreaker struct {
	cfg   config.CircuitBreakerConfig
	clock func() time.Time

	mu       sync.Mutex
	state    State
	streak   int // failures while closed, successes while half-open
	probes   int
	openedAt time.Time
	notify   func(from, to State)
}

func NewCircuitBreaker(cfg config.CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, clock: time.Now}
}

// OnStateChange sets a listener run on its own goroutine after each
// transition.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.notify = fn
}

// Allow reserves a slot for one call, or reports that the call must fail
// fast.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.clock().Sub(cb.openedAt) < cb.cfg.Timeout {
			return false
		}

		cb.moveTo(StateHalfOpen)
	}

	if cb.state == StateHalfOpen {
		if cb.probes >= cb.cfg.HalfOpenLimit {
			return false
		}

		cb.probes++
	}

	return true
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.streak = 0
	case StateHalfOpen:
		cb.probes--
		if cb.streak++; cb.streak >= cb.cfg.HalfOpenLimit {
			cb.moveTo(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		if cb.streak++; cb.streak >= cb.cfg.MaxFailures {
			cb.moveTo(StateOpen)
		}
	case StateHalfOpen:
		cb.moveTo(StateOpen)
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// OpenFor is the time left before an open breaker admits a probe.
func (cb *CircuitBreaker) OpenFor() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return 0
	}

	return max(cb.cfg.Timeout-cb.clock().Sub(cb.openedAt), 0)
}

// moveTo requires cb.mu.
func (cb *CircuitBreaker) moveTo(to State) {
	from := cb.state
	if from == to {
		return
	}

	cb.state = to
	cb.streak = 0
	cb.probes = 0

	if to == StateOpen {
		cb.openedAt = cb.clock()
	}

	if cb.notify != nil {
		go cb.notify(from, to)
	}
}
