package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func fast() []Option {
	return []Option{WithBackoff(ConstantBackoff(time.Millisecond)), WithJitter(WithoutJitter)}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	var attempts []uint

	err := Do(t.Context(), func(ctx context.Context) error {
		attempts = append(attempts, Attempt(ctx))
		if len(attempts) < 3 {
			return errFlaky
		}

		return nil
	}, fast()...)

	require.NoError(t, err)
	assert.Equal(t, []uint{0, 1, 2}, attempts)
}

func TestDoExhausted(t *testing.T) {
	t.Parallel()

	calls := 0

	err := Do(t.Context(), func(context.Context) error {
		calls++

		return errFlaky
	}, append(fast(), WithAttempts(2))...)

	require.ErrorIs(t, err, ErrExhausted)
	require.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 2, calls)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, uint(2), exhausted.Attempts)
}

func TestDoAbort(t *testing.T) {
	t.Parallel()

	calls := 0

	err := Do(t.Context(), func(context.Context) error {
		calls++

		return Abort(errFlaky)
	}, fast()...)

	require.ErrorIs(t, err, errFlaky)
	require.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
	assert.NoError(t, Abort(nil))
}

func TestDoCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())

	err := Do(ctx, func(context.Context) error {
		cancel()

		return errFlaky
	}, fast()...)

	require.ErrorIs(t, err, context.Canceled)
}

func TestDoTimeout(t *testing.T) {
	t.Parallel()

	err := Do(t.Context(), func(ctx context.Context) error {
		<-ctx.Done()

		return ctx.Err()
	}, append(fast(), WithAttempts(1), WithTimeout(10*time.Millisecond))...)

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoValue(t *testing.T) {
	t.Parallel()

	value, err := DoValue(t.Context(), func(ctx context.Context) (int, error) {
		if Attempt(ctx) == 0 {
			return 0, errFlaky
		}

		return 42, nil
	}, fast()...)

	require.NoError(t, err)
	assert.Equal(t, 42, value)

	value, err = DoValue(t.Context(), func(context.Context) (int, error) {
		return 7, Abort(errFlaky)
	}, fast()...)

	require.ErrorIs(t, err, errFlaky)
	assert.Zero(t, value)
}

func TestExpBackoff(t *testing.T) {
	t.Parallel()

	b := ExpBackoff{Base: 100 * time.Millisecond, Max: time.Second, Factor: 2}

	assert.Equal(t, 100*time.Millisecond, b.Delay(0))
	assert.Equal(t, 200*time.Millisecond, b.Delay(1))
	assert.Equal(t, 800*time.Millisecond, b.Delay(3))
	assert.Equal(t, time.Second, b.Delay(4))
	assert.Equal(t, time.Second, b.Delay(40))
}

func TestJitter(t *testing.T) {
	t.Parallel()

	d := 100 * time.Millisecond

	assert.Equal(t, d, WithoutJitter.apply(d))

	for range 100 {
		full := FullJitter.apply(d)
		assert.GreaterOrEqual(t, full, time.Duration(0))
		assert.Less(t, full, d)

		equal := EqualJitter.apply(d)
		assert.GreaterOrEqual(t, equal, d/2)
		assert.Less(t, equal, d)
	}
}
