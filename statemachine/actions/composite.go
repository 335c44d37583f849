package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/statecrawler/logger"
	"github.com/amp-labs/statecrawler/retry"
	"github.com/amp-labs/statecrawler/statemachine"
)

// ErrAllActionsFailed is returned by a fallback when no alternative succeeded.
var ErrAllActionsFailed = errors.New("all actions failed")

// Retry runs action until it succeeds or the retry options give up.
func Retry(action statemachine.Action, opts ...retry.Option) statemachine.Action {
	return func(ctx context.Context, system statemachine.System) error {
		return retry.Do(ctx, func(ctx context.Context) error {
			if attempt := retry.Attempt(ctx); attempt > 0 {
				logger.Get(ctx).DebugContext(ctx, "Retrying action", "attempt", attempt+1)
			}

			return action(ctx, system)
		}, opts...)
	}
}

// Fallback runs the actions in order and stops at the first that succeeds.
func Fallback(actions ...statemachine.Action) statemachine.Action {
	return func(ctx context.Context, system statemachine.System) error {
		errs := make([]error, 0, len(actions))

		for i, action := range actions {
			err := action(ctx, system)
			if err == nil {
				return nil
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			logger.Get(ctx).DebugContext(ctx, "Fallback alternative failed", "index", i, "error", err)

			errs = append(errs, fmt.Errorf("alternative %d: %w", i, err))
		}

		return fmt.Errorf("%w: %w", ErrAllActionsFailed, errors.Join(errs...))
	}
}

// Wait pauses for d, giving the system time to settle.
func Wait(d time.Duration) statemachine.Action {
	return func(ctx context.Context, _ statemachine.System) error {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

// Parallel runs the actions concurrently, at most limit at a time (all of
// them when limit is not positive), and returns the first failure. The
// system must tolerate concurrent use.
func Parallel(limit int, actions ...statemachine.Action) statemachine.Action {
	return func(ctx context.Context, system statemachine.System) error {
		if limit <= 0 || limit > len(actions) {
			limit = len(actions)
		}

		if limit == 0 {
			return nil
		}

		pool := pond.NewPool(limit, pond.WithContext(ctx))
		defer pool.StopAndWait()

		group := pool.NewGroup()

		for _, action := range actions {
			group.SubmitErr(func() error {
				return action(ctx, system)
			})
		}

		return group.Wait()
	}
}
