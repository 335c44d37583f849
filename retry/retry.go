// Package retry runs flaky operations again with exponential backoff.
// Crawl actions use it to ride out systems that settle slowly.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amp-labs/statecrawler/logger"
)

const (
	defaultAttempts      = 4
	defaultBaseDelay     = 100 * time.Millisecond
	defaultMaxDelay      = 2 * time.Second
	defaultBackoffFactor = 2.0
)

// ErrExhausted matches the error returned once every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// ExhaustedError carries the last failure after every attempt failed.
type ExhaustedError struct {
	Attempts uint
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", ErrExhausted, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Err}
}

// Do calls f until it succeeds, returns an error made with Abort, the
// attempts run out, or ctx ends. Each attempt's context carries its index,
// see Attempt.
func Do(ctx context.Context, f func(ctx context.Context) error, opts ...Option) error {
	o := newOptions(opts...)

	var err error

	for attempt := uint(0); o.attempts == 0 || attempt < uint(o.attempts); attempt++ {
		err = call(withAttempt(ctx, attempt), f, o.timeout)
		if err == nil {
			return nil
		}

		if cause, ok := aborted(err); ok {
			return cause
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		delay := o.jitter.apply(o.backoff.Delay(attempt))

		logger.Get(ctx).DebugContext(ctx, "retrying after failure",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)

		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.C:
		}
	}

	return &ExhaustedError{Attempts: uint(o.attempts), Err: err}
}

// DoValue is Do for operations returning a value.
func DoValue[T any](ctx context.Context, f func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var out T

	err := Do(ctx, func(ctx context.Context) error {
		var err error

		out, err = f(ctx)

		return err
	}, opts...)
	if err != nil {
		var zero T

		return zero, err
	}

	return out, nil
}

func call(ctx context.Context, f func(ctx context.Context) error, timeout time.Duration) error {
	if timeout <= 0 {
		return f(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return f(ctx)
}
