package shutdown

import (
	"context"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	mut.Lock()
	defer mut.Unlock()

	hooks = nil
	channel = nil
}

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled")
	}
}

//nolint:paralleltest // Tests share the global hook list
func TestHooksRunInOrder(t *testing.T) {
	reset()

	var (
		mu    sync.Mutex
		order []string
	)

	for _, name := range []string{"save last state", "flush telemetry", "close report"} {
		BeforeShutdown(name, func(context.Context) {
			mu.Lock()
			defer mu.Unlock()

			order = append(order, name)
		})
	}

	cleanup(t.Context())

	assert.Equal(t, []string{"save last state", "flush telemetry", "close report"}, order)

	mut.Lock()
	assert.Nil(t, hooks)
	mut.Unlock()
}

//nolint:paralleltest // Tests share the global hook list
func TestSetupHandlerOnSignal(t *testing.T) {
	reset()

	ctx := SetupHandler(t.Context())

	var called atomic.Bool

	BeforeShutdown("mark", func(hookCtx context.Context) {
		// The hook context is alive while hooks run.
		called.Store(hookCtx.Err() == nil && ctx.Err() == nil)
	})

	mut.Lock()
	ch := channel
	mut.Unlock()
	require.NotNil(t, ch)

	ch <- syscall.SIGTERM

	waitDone(t, ctx)
	assert.True(t, called.Load())
}

//nolint:paralleltest // Tests share the global hook list
func TestShutdownProgrammatically(t *testing.T) {
	reset()

	ctx := SetupHandler(t.Context())

	var called atomic.Bool

	BeforeShutdown("mark", func(context.Context) { called.Store(true) })

	Shutdown()

	waitDone(t, ctx)
	assert.True(t, called.Load())

	// Hooks and the channel are cleared once the handler finishes.
	require.Eventually(t, func() bool {
		mut.Lock()
		defer mut.Unlock()

		return channel == nil
	}, time.Second, 10*time.Millisecond)
}

//nolint:paralleltest // Tests share the global hook list
func TestParentCancellationRunsHooks(t *testing.T) {
	reset()

	parent, cancel := context.WithCancel(t.Context())
	ctx := SetupHandler(parent)

	var called atomic.Bool

	BeforeShutdown("mark", func(context.Context) { called.Store(true) })

	cancel()

	waitDone(t, ctx)
	require.Eventually(t, called.Load, time.Second, 10*time.Millisecond)
}

//nolint:paralleltest // Tests share the global hook list
func TestShutdownWithoutSetup(t *testing.T) {
	reset()

	assert.NotPanics(t, Shutdown)
}
