package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/minios-linux/transync/translate"
)

// BreakerSettings tunes NewBreaker. Zero values use the defaults.
type BreakerSettings struct {
	// Failures is the number of consecutive failures that opens the
	// circuit (default 5).
	Failures uint32
	// Timeout is how long the circuit stays open (default 30s).
	Timeout time.Duration
	// OnLog receives state changes.
	OnLog func(format string, args ...any)
}

// Breaker stops calling a backend that keeps failing. While the circuit
// is open, calls fail immediately with a wrapped gobreaker.ErrOpenState.
// Quota and malformed-response errors do not count as failures: the
// service answered.
type Breaker struct {
	next translate.Translator
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next.
func NewBreaker(name string, next translate.Translator, s BreakerSettings) *Breaker {
	failures := s.Failures
	if failures == 0 {
		failures = 5
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			switch translate.Classify(err) {
			case translate.ClassQuota, translate.ClassMalformed:
				return true
			}
			return false
		},
	}
	if s.OnLog != nil {
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			s.OnLog("%s: circuit %s -> %s", name, from, to)
		}
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

// Translate forwards req unless the circuit is open.
func (b *Breaker) Translate(ctx context.Context, req translate.Request) (translate.Response, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Translate(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%s: %w", b.cb.Name(), err)
		}
		return nil, err
	}
	resp, _ := out.(translate.Response)
	return resp, nil
}

// State reports the circuit state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }
