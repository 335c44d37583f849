package actions

import (
	"time"

	"github.com/amp-labs/statecrawler/retry"
	"github.com/amp-labs/statecrawler/statemachine"
)

// Action types registered by Register.
const (
	RetryType    = "retry"
	FallbackType = "fallback"
	WaitType     = "wait"
	ParallelType = "parallel"
)

const (
	defaultAttempts = 3
	defaultDelay    = 500 * time.Millisecond
	defaultMaxDelay = 10 * time.Second
)

// Register adds the composite action types to factory.
//
//	retry:    {action: {...}, attempts: 3, delay: 500ms, maxDelay: 10s, timeout: 0}
//	fallback: {actions: [{...}, ...]}
//	wait:     {duration: 2s}
//	parallel: {actions: [{...}, ...], limit: 0}
func Register(factory *statemachine.ActionFactory) {
	factory.Register(RetryType, retryBuilder)
	factory.Register(FallbackType, fallbackBuilder)
	factory.Register(WaitType, waitBuilder)
	factory.Register(ParallelType, parallelBuilder)
}

func retryBuilder(factory *statemachine.ActionFactory, name string, params map[string]any) (statemachine.Action, error) {
	p := NewParamExtractor(params)

	action, err := p.GetAction(factory, name, "action")
	if err != nil {
		return nil, err
	}

	attempts, err := p.GetInt("attempts", false, defaultAttempts)
	if err != nil {
		return nil, err
	}

	delay, err := p.GetDuration("delay", false, defaultDelay)
	if err != nil {
		return nil, err
	}

	maxDelay, err := p.GetDuration("maxDelay", false, max(defaultMaxDelay, delay))
	if err != nil {
		return nil, err
	}

	timeout, err := p.GetDuration("timeout", false, 0)
	if err != nil {
		return nil, err
	}

	return Retry(action,
		retry.WithAttempts(retry.Attempts(max(attempts, 1))),
		retry.WithBackoff(retry.ExpBackoff{Base: delay, Max: maxDelay, Factor: 2}), //nolint:mnd
		retry.WithJitter(retry.EqualJitter),
		retry.WithTimeout(timeout),
	), nil
}

func fallbackBuilder(factory *statemachine.ActionFactory, name string, params map[string]any) (statemachine.Action, error) {
	actions, err := NewParamExtractor(params).GetActions(factory, name, "actions")
	if err != nil {
		return nil, err
	}

	return Fallback(actions...), nil
}

func waitBuilder(_ *statemachine.ActionFactory, _ string, params map[string]any) (statemachine.Action, error) {
	d, err := NewParamExtractor(params).GetDuration("duration", true, 0)
	if err != nil {
		return nil, err
	}

	return Wait(d), nil
}

func parallelBuilder(factory *statemachine.ActionFactory, name string, params map[string]any) (statemachine.Action, error) {
	p := NewParamExtractor(params)

	actions, err := p.GetActions(factory, name, "actions")
	if err != nil {
		return nil, err
	}

	limit, err := p.GetInt("limit", false, 0)
	if err != nil {
		return nil, err
	}

	return Parallel(limit, actions...), nil
}
