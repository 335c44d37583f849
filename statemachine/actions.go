// Package statemachine crawls a live system through a declared graph of
// states, verifying each state and routing around the transitions that fail.
package statemachine

import (
	"context"
	"fmt"
)

// NoopAction returns an action that does nothing. Useful for transitions
// whose only effect is checked by the target's verifier.
func NoopAction() Action {
	return func(context.Context, System) error {
		return nil
	}
}

// SequenceAction returns an action running actions in order, stopping at the
// first failure.
func SequenceAction(actions ...Action) Action {
	return func(ctx context.Context, system System) error {
		for i, action := range actions {
			if action == nil {
				continue
			}

			if err := action(ctx, system); err != nil {
				return fmt.Errorf("sequence step %d failed: %w", i, err)
			}
		}

		return nil
	}
}

// FailAction returns an action that always fails with ErrInjectedFailure.
func FailAction(message string) Action {
	return func(context.Context, System) error {
		if message == "" {
			return ErrInjectedFailure
		}

		return fmt.Errorf("%w: %s", ErrInjectedFailure, message)
	}
}
