package translate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// Class is the retry class of a failed attempt.
type Class int

const (
	// ClassNone marks a successful attempt.
	ClassNone Class = iota
	// ClassQuota is a rate limit or exhausted quota.
	ClassQuota
	// ClassMalformed is a response that could not be decoded.
	ClassMalformed
	// ClassGeneric covers transport and any other failure.
	ClassGeneric
)

func (c Class) String() string {
	switch c {
	case ClassQuota:
		return "quota"
	case ClassMalformed:
		return "malformed"
	case ClassGeneric:
		return "generic"
	}
	return "none"
}

// QuotaError reports a rate-limited or quota-exhausted request.
type QuotaError struct {
	Err error
}

func (e *QuotaError) Error() string { return "rate limited: " + e.Err.Error() }
func (e *QuotaError) Unwrap() error { return e.Err }

// MalformedError reports a response that is not the expected JSON shape.
type MalformedError struct {
	Err      error
	Response string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed response: %v (response: %s)", e.Err, truncate(e.Response, 200))
}
func (e *MalformedError) Unwrap() error { return e.Err }

// quotaMarkers are substrings that identify quota errors from backends
// that do not expose typed errors.
var quotaMarkers = []string{
	"resource_exhausted",
	"quota exceeded",
	"exceeded your current quota",
	"rate limit",
	"ratelimit",
	"rate_limit",
	"too many requests",
	"status 429",
	"status code: 429",
	"error 429",
}

// Classify maps an error to its retry class. Timeouts and cancellations
// are generic whatever their message says.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	var qe *QuotaError
	if errors.As(err, &qe) {
		return ClassQuota
	}
	var me *MalformedError
	if errors.As(err, &me) {
		return ClassMalformed
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassGeneric
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return ClassGeneric
	}
	msg := strings.ToLower(err.Error())
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return ClassQuota
		}
	}
	return ClassGeneric
}

// ---------------------------------------------------------------------------
// Backoff
// ---------------------------------------------------------------------------

// Backoff computes the wait after a failed attempt.
//
//	quota:     base * 2^attempt + jitter(0.5s..1.5s)
//	generic:   base * attempt   + jitter(0.5s..2s)
//	malformed: base/2 * attempt + jitter(0.25s..1s)
//
// attempt is 1-based.
type Backoff struct {
	Base time.Duration
	// Jitter returns a duration in [lo, hi]; a uniform random source is
	// used when nil.
	Jitter func(lo, hi time.Duration) time.Duration
}

// Delay returns the wait after attempt failed with class.
func (b Backoff) Delay(class Class, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	jitter := b.Jitter
	if jitter == nil {
		jitter = uniformJitter
	}
	switch class {
	case ClassQuota:
		return time.Duration(float64(b.Base)*math.Pow(2, float64(attempt))) + jitter(500*time.Millisecond, 1500*time.Millisecond)
	case ClassMalformed:
		return b.Base/2*time.Duration(attempt) + jitter(250*time.Millisecond, time.Second)
	default:
		return b.Base*time.Duration(attempt) + jitter(500*time.Millisecond, 2*time.Second)
	}
}

func uniformJitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
