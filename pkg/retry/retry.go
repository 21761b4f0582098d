// Package retry centralizes the retry policy used by every repository and
// storage operation. Callers supply a classifier so integrity violations and
// other permanent failures are surfaced immediately instead of re-sent.
package retry

import (
	"context"
	"time"

	"youth-cms-backend/pkg/apperrors"
)

// Classifier reports whether an error is worth retrying.
type Classifier func(error) bool

// Policy bounds the attempts and paces them with a linearly increasing delay:
// Delay, 2*Delay, 3*Delay, ...
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Retryable   Classifier
}

// DefaultPolicy is what the repositories use: three attempts, linear backoff
// starting at 200ms, classified by the application error taxonomy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       200 * time.Millisecond,
		Retryable:   apperrors.IsRetryable,
	}
}

// Do invokes fn until it succeeds, the attempt bound is reached, the error is
// classified permanent, or ctx is cancelled. The last error is returned.
func Do(ctx context.Context, p Policy, fn func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Retryable == nil {
		p.Retryable = apperrors.IsRetryable
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * p.Delay):
		}
	}
	return lastErr
}

// DoValue is Do for operations that return a value.
func DoValue[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}
