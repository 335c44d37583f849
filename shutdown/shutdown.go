// Package shutdown turns SIGINT and SIGTERM into context cancellation, after
// running the registered hooks. The crawler uses the hooks to persist its
// last state and flush telemetry before the process exits.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// HookTimeout bounds each hook.
const HookTimeout = 10 * time.Second

type hook struct {
	name string
	fn   func(context.Context)
}

var (
	mut     sync.Mutex     //nolint:gochecknoglobals
	hooks   []hook         //nolint:gochecknoglobals
	channel chan os.Signal //nolint:gochecknoglobals
)

// BeforeShutdown registers fn to run before the handler's context is
// cancelled. Hooks run in registration order and receive a context that is
// still alive but bounded by HookTimeout.
func BeforeShutdown(name string, fn func(ctx context.Context)) {
	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, hook{name: name, fn: fn})
}

// Shutdown triggers the shutdown process programmatically. It is a no-op if
// SetupHandler was not called.
func Shutdown() {
	mut.Lock()
	ch := channel
	mut.Unlock()

	if ch != nil {
		select {
		case ch <- os.Interrupt:
		default:
		}
	}
}

// SetupHandler installs the signal handler and returns a context derived
// from parent that is cancelled once a signal arrives and every hook ran.
func SetupHandler(parent context.Context) context.Context {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	mut.Lock()
	channel = ch
	mut.Unlock()

	ctx, cancel := context.WithCancel(parent)

	go func() {
		select {
		case sig := <-ch:
			slog.Warn("Received " + sig.String() + ", shutting down...")
		case <-ctx.Done():
		}

		signal.Stop(ch)

		mut.Lock()
		channel = nil
		mut.Unlock()

		cleanup(context.WithoutCancel(ctx))
		cancel()
	}()

	return ctx
}

func cleanup(ctx context.Context) {
	mut.Lock()
	pending := hooks
	hooks = nil
	mut.Unlock()

	for _, h := range pending {
		hookCtx, cancel := context.WithTimeout(ctx, HookTimeout)

		slog.Debug("Running shutdown hook", "hook", h.name)
		h.fn(hookCtx)

		cancel()
	}
}
