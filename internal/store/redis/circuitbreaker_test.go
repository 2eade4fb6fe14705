package redis

import (
	"errors"
	"testing"
	"time"
)

var errRedisDown = errors.New("redis down")

// failTimes runs n failing calls through the breaker.
func failTimes(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		cb.Execute(func() error { return errRedisDown })
	}
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)
	if got := cb.CurrentState(); got != StateClosed {
		t.Fatalf("new breaker state = %v, want closed", got)
	}
}

func TestCircuitBreaker_TripsAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	failTimes(cb, 2)
	if got := cb.CurrentState(); got != StateClosed {
		t.Fatalf("state after 2 failures = %v, want closed", got)
	}

	failTimes(cb, 1)
	if got := cb.CurrentState(); got != StateOpen {
		t.Fatalf("state after 3 failures = %v, want open", got)
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker returned %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Fatal("open breaker must not invoke the call")
	}
}

func TestCircuitBreaker_ErrorsPassThroughWhileClosed(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	if err := cb.Execute(func() error { return errRedisDown }); !errors.Is(err, errRedisDown) {
		t.Fatalf("closed breaker returned %v, want the call's error", err)
	}
}

func TestCircuitBreaker_ProbeClosesOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(2, 30*time.Millisecond)
	failTimes(cb, 2)

	time.Sleep(40 * time.Millisecond)

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if got := cb.CurrentState(); got != StateClosed {
		t.Fatalf("state after successful probe = %v, want closed", got)
	}
}

func TestCircuitBreaker_ProbeReopensOnFailure(t *testing.T) {
	cb := NewCircuitBreaker(2, 30*time.Millisecond)
	failTimes(cb, 2)

	time.Sleep(40 * time.Millisecond)
	failTimes(cb, 1)

	if got := cb.CurrentState(); got != StateOpen {
		t.Fatalf("state after failed probe = %v, want open", got)
	}
}

func TestCircuitBreaker_SuccessResetsStreak(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	failTimes(cb, 2)
	cb.Execute(func() error { return nil })
	failTimes(cb, 2)

	if got := cb.CurrentState(); got != StateClosed {
		t.Fatalf("state = %v, want closed: streak should reset on success", got)
	}
}

func TestCircuitBreaker_OnStateChangeSequence(t *testing.T) {
	cb := NewCircuitBreaker(1, 30*time.Millisecond)
	var seen []State
	cb.OnStateChange = func(_, to State) { seen = append(seen, to) }

	failTimes(cb, 1)
	time.Sleep(40 * time.Millisecond)
	cb.Execute(func() error { return nil })

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transition %d = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestState_String(t *testing.T) {
	if StateHalfOpen.String() != "half-open" || State(9).String() != "unknown" {
		t.Fatal("state names wrong")
	}
}
