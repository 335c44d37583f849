package statemachine

import (
	"context"

	"github.com/amp-labs/statecrawler/logger"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// runInfoContextKey is the key used to store run information in Go context.
const runInfoContextKey contextKey = "statemachine_run"

// RunInfo identifies the crawler and run a context belongs to.
type RunInfo struct {
	Crawler string
	RunID   string
}

// WithRunInfo returns a context carrying info. The run's labels are also
// added to every logger obtained from the context.
func WithRunInfo(ctx context.Context, info RunInfo) context.Context {
	ctx = context.WithValue(ctx, runInfoContextKey, info)

	return logger.With(ctx, "crawler", info.Crawler, "run_id", info.RunID)
}

// GetRunInfo returns the run information stored in ctx, if any.
func GetRunInfo(ctx context.Context) (RunInfo, bool) {
	info, ok := ctx.Value(runInfoContextKey).(RunInfo)

	return info, ok
}
