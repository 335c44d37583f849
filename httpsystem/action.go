package httpsystem

import (
	"context"
	"fmt"

	"github.com/amp-labs/statecrawler/logger"
	"github.com/amp-labs/statecrawler/statemachine"
)

// ActionType is the declaration action type served by this package.
const ActionType = "http"

const defaultExpect = "status >= 200 && status < 400"

// Register adds the http action type to factory.
func Register(factory *statemachine.ActionFactory) {
	factory.Register(ActionType, ActionBuilder)
}

// ActionBuilder creates an action that sends a request and fails unless the
// response satisfies its expect condition.
func ActionBuilder(_ *statemachine.ActionFactory, name string, params map[string]any) (statemachine.Action, error) {
	req, err := ParseRequest(params)
	if err != nil {
		return nil, err
	}

	expect := req.Expect
	if expect == "" {
		expect = defaultExpect
	}

	program, err := statemachine.CompileExpression(expect)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, system statemachine.System) error {
		client, err := From(system)
		if err != nil {
			return err
		}

		rsp, err := client.Do(ctx, req)
		if err != nil {
			return logger.AnnotateError(err, "action", name)
		}

		ok, err := statemachine.EvalExpression(program, rsp.Env())
		if err != nil {
			return err
		}

		if !ok {
			return logger.AnnotateError(
				fmt.Errorf("%w: %s %s: %s", ErrUnexpectedResponse, req.Method, req.Path, expect),
				"action", name,
				"status", rsp.Status,
			)
		}

		return nil
	}, nil
}
