package resilience

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryPolicy controls exponential backoff behaviour for a call site.
// MaxAttempts counts the first try, so MaxAttempts=3 means two retries.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Factor          float64
	MaxInterval     time.Duration
}

var errInvalidPolicy = errors.New("invalid retry policy")

// Permanent wraps an error so Do stops retrying immediately.
type Permanent struct {
	Err error
}

func (p Permanent) Error() string { return p.Err.Error() }
func (p Permanent) Unwrap() error { return p.Err }

// Do runs fn until it succeeds, returns a Permanent error, the context is
// cancelled, or MaxAttempts is exhausted. Delays grow geometrically from
// InitialInterval by Factor, capped at MaxInterval when set.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	if p.MaxAttempts <= 0 || p.InitialInterval <= 0 || p.Factor < 1 {
		return errInvalidPolicy
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn()
		if err == nil {
			return nil
		}

		var perm Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}

		lastErr = err
		if attempt == p.MaxAttempts-1 {
			break
		}

		delay := time.Duration(float64(p.InitialInterval) * math.Pow(p.Factor, float64(attempt)))
		if p.MaxInterval > 0 && delay > p.MaxInterval {
			delay = p.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
