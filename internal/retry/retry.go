package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/printlink/internal/infrastructure/config"
)

// defaultMultiplier is the backoff growth factor between attempts.
const defaultMultiplier = 2.0

// Policy bounds a retry loop.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration

	// Multiplier is the growth factor per attempt. Defaults to 2 when
	// zero or negative.
	Multiplier float64
}

// DefaultPolicy returns the policy used when no configuration applies:
// three attempts, 1s initial delay, 10s cap.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   defaultMultiplier,
	}
}

// FromConfig builds a Policy from the reconnect section of the config.
func FromConfig(cfg config.ReconnectConfig) Policy {
	policy := DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialDelay > 0 {
		policy.InitialDelay = time.Duration(cfg.InitialDelay) * time.Second
	}
	if cfg.MaxDelay > 0 {
		policy.MaxDelay = time.Duration(cfg.MaxDelay) * time.Second
	}
	return policy
}

// permanentError marks an error as not worth retrying.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do stops retrying and returns it immediately.
// Use for failure classes where repetition cannot help, such as
// authentication rejection.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do runs op until it succeeds, a permanent error occurs, the context is
// cancelled, or the policy's attempts are exhausted.
//
// Parameters:
//   - ctx: Cancels the loop between attempts (in-flight ops see it too)
//   - policy: Attempt and backoff bounds
//   - op: The fallible operation
//
// Returns:
//   - error: nil on success; the permanent error unwrapped of its
//     marker; ctx.Err() on cancellation; otherwise the last attempt's
//     error annotated with the attempt count
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	multiplier := policy.Multiplier
	if multiplier <= 1 {
		multiplier = defaultMultiplier
	}

	delay := policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		var p *permanentError
		if errors.As(lastErr, &p) {
			return p.err
		}

		if attempt == policy.MaxAttempts {
			break
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}

		delay = time.Duration(float64(delay) * multiplier)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", policy.MaxAttempts, lastErr)
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
