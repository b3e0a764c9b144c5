// Package throttle provides the rate-limit hook called before every source or service I/O.
package throttle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttler blocks until the caller may perform its next I/O.
type Throttler interface {
	Throttle()
}

// Nop never blocks.
type Nop struct{}

// Throttle returns immediately.
func (Nop) Throttle() {}

// Limiter spaces I/O calls with a token bucket.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter builds a throttler allowing one call per interval with the given burst.
// Params: minimum interval between calls and burst size (values below 1 mean 1).
// Returns: Nop when interval is not positive, otherwise a token-bucket limiter.
func NewLimiter(interval time.Duration, burst int) Throttler {
	if interval <= 0 {
		return Nop{}
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

// Throttle waits for the next token.
func (l *Limiter) Throttle() {
	// Wait only fails for a cancelled context or a burst of zero; neither applies here.
	_ = l.limiter.Wait(context.Background())
}

// Func adapts a plain function into a Throttler.
type Func func()

// Throttle calls f.
func (f Func) Throttle() {
	if f != nil {
		f()
	}
}

// OrNop returns t, or Nop when t is nil.
func OrNop(t Throttler) Throttler {
	if t == nil {
		return Nop{}
	}
	return t
}
