package redis

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Execute while the breaker is rejecting
// calls. BufferedCache treats it as the signal to queue rates locally.
var ErrCircuitOpen = errors.New("redis circuit open")

// State is the breaker's position.
type State int

const (
	StateClosed   State = iota // calls pass through to redis
	StateOpen                  // redis is down; calls fail fast
	StateHalfOpen              // reset timeout elapsed; next call probes
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < StateClosed || s > StateHalfOpen {
		return "unknown"
	}
	return stateNames[s]
}

// CircuitBreaker shields the rate feed from a flapping redis. Consecutive
// write failures beyond maxFailures open it; after resetTimeout a single
// probe call is let through, closing on success and reopening on failure.
// Zero value is not usable; construct with NewCircuitBreaker.
type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration

	// OnStateChange, when set, observes every transition. BufferedCache
	// hooks this to flush queued rates when the breaker closes.
	OnStateChange func(from, to State)

	mu          sync.Mutex
	state       State
	consecutive int
	openedAt    time.Time
}

// NewCircuitBreaker builds a closed breaker. The refresher default is
// 5 failures with a 10s reset timeout.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
	}
}

// Execute runs fn unless the breaker is open and still inside the reset
// window, in which case it returns ErrCircuitOpen without calling fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if time.Since(cb.openedAt) <= cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.record(err)
	return err
}

// CurrentState reports the breaker's position.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// record updates the failure streak and state. Caller holds cb.mu.
func (cb *CircuitBreaker) record(err error) {
	if err == nil {
		if cb.state == StateHalfOpen {
			cb.transition(StateClosed)
		}
		cb.consecutive = 0
		return
	}

	cb.consecutive++
	cb.openedAt = time.Now()
	if cb.state == StateHalfOpen || cb.consecutive >= cb.maxFailures {
		cb.transition(StateOpen)
	}
}

// transition moves to a new state and fires the callback. Caller holds cb.mu.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if to == StateClosed {
		cb.consecutive = 0
	}
	slog.Warn("redis circuit transition",
		"from", from.String(), "to", to.String(), "failures", cb.consecutive)
	if cb.OnStateChange != nil {
		cb.OnStateChange(from, to)
	}
}
