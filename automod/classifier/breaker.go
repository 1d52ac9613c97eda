package classifier

import (
	"sync"
	"time"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker is a consecutive-failure circuit breaker. After `threshold`
// failures in a row it opens and rejects calls immediately; after
// `probeAfter` one trial call is admitted (half-open). Success on the trial
// closes the breaker, failure re-opens it.
type breaker struct {
	mu         sync.Mutex
	threshold  int
	probeAfter time.Duration

	state    breakerState
	failures int
	openedAt time.Time
	now      func() time.Time // test hook
}

func newBreaker(threshold int, probeAfter time.Duration) *breaker {
	return &breaker{
		threshold:  threshold,
		probeAfter: probeAfter,
		now:        time.Now,
	}
}

// Allow reports whether a call may proceed right now. In the open state it
// transitions to half-open (admitting exactly one probe) once probeAfter has
// elapsed.
func (b *breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case breakerClosed:
		return true
	case breakerOpen:
		if b.now().Sub(b.openedAt) >= b.probeAfter {
			b.state = breakerHalfOpen
			return true
		}
		return false
	case breakerHalfOpen:
		// a probe is already in flight
		return false
	}
	return false
}

func (b *breaker) MarkSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != breakerClosed {
		breakerTransitionCount.WithLabelValues("closed").Inc()
	}
	b.state = breakerClosed
	b.failures = 0
	breakerStateGauge.Set(float64(breakerClosed))
}

func (b *breaker) MarkFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.state == breakerHalfOpen || (b.state == breakerClosed && b.failures >= b.threshold) {
		b.state = breakerOpen
		b.openedAt = b.now()
		breakerTransitionCount.WithLabelValues("open").Inc()
		breakerStateGauge.Set(float64(breakerOpen))
	}
}
