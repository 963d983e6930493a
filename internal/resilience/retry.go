package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Policy retries an operation a fixed number of times, pausing Wait between
// attempts, for as long as it fails with a retryable error.
type Policy struct {
	// Tries is the total number of attempts. Values below 1 mean one.
	Tries int

	// Wait is the pause between attempts.
	Wait time.Duration

	// Retryable decides which errors are worth another attempt.
	// If nil, IsLocked is used.
	Retryable func(err error) bool

	// OnRetry is called before each pause with the attempt number and error.
	OnRetry func(attempt int, err error)
}

// Fixed returns a Policy of tries attempts, wait apart.
func Fixed(tries int, wait time.Duration) Policy {
	if tries < 1 {
		tries = 1
	}
	return Policy{Tries: tries, Wait: wait}
}

// Logged returns a copy of p that logs each retry of op against path.
func (p Policy) Logged(path, op string) Policy {
	p.OnRetry = func(attempt int, err error) {
		zap.L().Warn("file busy, retrying",
			zap.String("path", path),
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Int("tries", p.Tries),
			zap.Error(err),
		)
	}
	return p
}

// Do runs fn under p. Errors that are not retryable, and context
// cancellation, end the loop at once; otherwise the last error is returned
// once the tries run out.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for operations that produce a value. The zero value is
// returned with any error.
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsLocked
	}
	tries := max(p.Tries, 1)

	for attempt := 1; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || !retryable(err) || attempt >= tries {
			return zero, err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if !sleep(ctx, p.Wait) {
			return zero, err
		}
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
