package execsystem

import (
	"context"
	"fmt"

	"github.com/amp-labs/statecrawler/logger"
	"github.com/amp-labs/statecrawler/statemachine"
)

// ActionType is the declaration action type served by this package.
const ActionType = "exec"

const defaultExpect = "exit_code == 0"

// Register adds the exec action type to factory.
func Register(factory *statemachine.ActionFactory) {
	factory.Register(ActionType, ActionBuilder)
}

// ActionBuilder creates an action that runs a command and fails unless its
// expect condition holds.
func ActionBuilder(_ *statemachine.ActionFactory, name string, params map[string]any) (statemachine.Action, error) {
	spec, err := ParseSpec(params)
	if err != nil {
		return nil, err
	}

	expect := spec.Expect
	if expect == "" {
		expect = defaultExpect
	}

	program, err := statemachine.CompileExpression(expect)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, system statemachine.System) error {
		runner, err := From(system)
		if err != nil {
			return err
		}

		result, err := runner.Run(ctx, spec)
		if err != nil {
			return logger.AnnotateError(err, "action", name)
		}

		ok, err := statemachine.EvalExpression(program, result.Env())
		if err != nil {
			return err
		}

		if !ok {
			return logger.AnnotateError(
				fmt.Errorf("%w: %s", ErrUnexpectedResult, expect),
				"action", name,
				"exit_code", result.ExitCode,
				"stderr", result.Env()["stderr"],
			)
		}

		return nil
	}, nil
}
