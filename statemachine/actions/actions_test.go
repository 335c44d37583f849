package actions

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amp-labs/statecrawler/retry"
	"github.com/amp-labs/statecrawler/statemachine"
	smtest "github.com/amp-labs/statecrawler/statemachine/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failing(times int) (statemachine.Action, *atomic.Int32) {
	var calls atomic.Int32

	return func(context.Context, statemachine.System) error {
		if int(calls.Add(1)) <= times {
			return errBoom
		}

		return nil
	}, &calls
}

func TestRetry(t *testing.T) {
	t.Parallel()

	action, calls := failing(2)
	fast := []retry.Option{retry.WithBackoff(retry.ConstantBackoff(time.Millisecond)), retry.WithJitter(retry.WithoutJitter)}

	require.NoError(t, Retry(action, fast...)(t.Context(), nil))
	assert.Equal(t, int32(3), calls.Load())

	action, _ = failing(5)
	err := Retry(action, append(fast, retry.WithAttempts(2))...)(t.Context(), nil)
	require.ErrorIs(t, err, retry.ErrExhausted)
	require.ErrorIs(t, err, errBoom)
}

func TestFallback(t *testing.T) {
	t.Parallel()

	tracer := NewTracer()
	first, _ := failing(1)
	second, _ := failing(0)

	action := Fallback(tracer.Wrap("first", first), tracer.Wrap("second", second))
	require.NoError(t, action(t.Context(), nil))

	traces := tracer.Traces()
	require.Len(t, traces, 2)
	require.ErrorIs(t, traces[0].Error, errBoom)
	require.NoError(t, traces[1].Error)
	assert.Contains(t, tracer.String(), "[0] first error: boom")
	assert.Contains(t, tracer.String(), "[1] second ok")

	both, _ := failing(10)
	err := Fallback(both, both)(t.Context(), nil)
	require.ErrorIs(t, err, ErrAllActionsFailed)
	require.ErrorIs(t, err, errBoom)
}

func TestWait(t *testing.T) {
	t.Parallel()

	start := time.Now()
	require.NoError(t, Wait(10*time.Millisecond)(t.Context(), nil))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	require.ErrorIs(t, Wait(time.Hour)(ctx, nil), context.Canceled)
}

func TestParallel(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32

	slow := func(context.Context, statemachine.System) error {
		n := running.Add(1)
		defer running.Add(-1)

		for {
			current := peak.Load()
			if n <= current || peak.CompareAndSwap(current, n) {
				break
			}
		}

		time.Sleep(20 * time.Millisecond)

		return nil
	}

	require.NoError(t, Parallel(2, slow, slow, slow, slow)(t.Context(), nil))
	assert.LessOrEqual(t, peak.Load(), int32(2))

	bad, _ := failing(1)
	require.ErrorIs(t, Parallel(0, slow, bad)(t.Context(), nil), errBoom)
	require.NoError(t, Parallel(3)(t.Context(), nil))
}

func TestBuilders(t *testing.T) {
	t.Parallel()

	factory := smtest.NewActionFactory()
	Register(factory)

	system := smtest.NewScriptedSystem(nil)

	action, err := factory.Create(statemachine.ActionConfig{
		Type: FallbackType,
		Name: "checkout",
		Parameters: map[string]any{
			"actions": []any{
				map[string]any{"type": "fail", "parameters": map[string]any{"message": "down"}},
				map[string]any{
					"type": RetryType,
					"parameters": map[string]any{
						"attempts": 2,
						"delay":    "1ms",
						"action": map[string]any{
							"type":       smtest.ActionType,
							"name":       "pay",
							"parameters": map[string]any{"page": "Paid"},
						},
					},
				},
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, action(t.Context(), system))

	page, _ := system.Get("page")
	assert.Equal(t, "Paid", page)
	assert.Equal(t, []string{"pay"}, system.Actions())

	action, err = factory.Create(statemachine.ActionConfig{
		Type: ParallelType,
		Parameters: map[string]any{
			"limit": 2,
			"actions": []any{
				map[string]any{"type": WaitType, "parameters": map[string]any{"duration": 0.001}},
				map[string]any{"type": smtest.ActionType, "parameters": map[string]any{"ready": true}},
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, action(t.Context(), system))

	ready, _ := system.Get("ready")
	assert.Equal(t, true, ready)
}

func TestBuilderErrors(t *testing.T) {
	t.Parallel()

	factory := statemachine.NewActionFactory()
	Register(factory)

	testCases := []struct {
		name   string
		config statemachine.ActionConfig
		err    error
	}{
		{"retry without action", statemachine.ActionConfig{Type: RetryType}, ErrParameterNotFound},
		{"wait without duration", statemachine.ActionConfig{Type: WaitType}, ErrParameterNotFound},
		{
			"bad duration",
			statemachine.ActionConfig{Type: WaitType, Parameters: map[string]any{"duration": "soon"}},
			ErrInvalidDurationFormat,
		},
		{
			"actions not a list",
			statemachine.ActionConfig{Type: FallbackType, Parameters: map[string]any{"actions": "noop"}},
			ErrParameterTypeMismatch,
		},
		{
			"nested without type",
			statemachine.ActionConfig{Type: ParallelType, Parameters: map[string]any{"actions": []any{map[string]any{}}}},
			statemachine.ErrInvalidActionFormat,
		},
		{
			"nested unknown type",
			statemachine.ActionConfig{
				Type:       RetryType,
				Parameters: map[string]any{"action": map[string]any{"type": "teleport"}},
			},
			statemachine.ErrUnknownActionType,
		},
		{
			"attempts not a number",
			statemachine.ActionConfig{
				Type:       RetryType,
				Parameters: map[string]any{"action": map[string]any{"type": "noop"}, "attempts": "many"},
			},
			ErrParameterTypeMismatch,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := factory.Create(tc.config)
			require.ErrorIs(t, err, tc.err)
		})
	}
}
