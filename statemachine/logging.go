package statemachine

import (
	"context"
	"time"

	"github.com/amp-labs/statecrawler/logger"
)

// Logger receives crawl progress events.
type Logger interface {
	MoveStarted(ctx context.Context, from, to string, path []string)
	StepStarted(ctx context.Context, from, to string)
	StepSucceeded(ctx context.Context, from, to string, duration time.Duration)
	StepFailed(ctx context.Context, from, to string, duration time.Duration, err error)
	TargetSkipped(ctx context.Context, target string, err error)
	RunFinished(ctx context.Context, summary RunSummary)
}

// RunSummary describes a finished verification run.
type RunSummary struct {
	Visited          int
	Transitions      int
	ErrorStates      []string
	ErrorTransitions int
	Duration         time.Duration
}

// Passed reports whether every state could be verified.
func (s RunSummary) Passed() bool {
	return len(s.ErrorStates) == 0
}

// DefaultLogger implements Logger using slog, through the logger package so
// that context values are attached.
type DefaultLogger struct{}

// NewDefaultLogger creates a new default logger.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{}
}

func (l *DefaultLogger) MoveStarted(ctx context.Context, from, to string, path []string) {
	logger.Get(ctx).DebugContext(ctx, "Move started",
		"from", from,
		"to", to,
		"path", path,
	)
}

func (l *DefaultLogger) StepStarted(ctx context.Context, from, to string) {
	logger.Get(ctx).InfoContext(ctx, "Step started",
		"from", from,
		"to", to,
	)
}

func (l *DefaultLogger) StepSucceeded(ctx context.Context, from, to string, duration time.Duration) {
	logger.Get(ctx).InfoContext(ctx, "Step succeeded",
		"from", from,
		"to", to,
		"duration_ms", duration.Milliseconds(),
	)
}

func (l *DefaultLogger) StepFailed(ctx context.Context, from, to string, duration time.Duration, err error) {
	logger.Get(ctx).ErrorContext(ctx, "Step failed",
		"from", from,
		"to", to,
		"duration_ms", duration.Milliseconds(),
		"error", err,
	)
}

func (l *DefaultLogger) TargetSkipped(ctx context.Context, target string, err error) {
	logger.Get(ctx).WarnContext(ctx, "Target skipped",
		"target", target,
		"error", err,
	)
}

func (l *DefaultLogger) RunFinished(ctx context.Context, summary RunSummary) {
	fields := []any{
		"visited", summary.Visited,
		"transitions", summary.Transitions,
		"error_states", summary.ErrorStates,
		"error_transitions", summary.ErrorTransitions,
		"duration_ms", summary.Duration.Milliseconds(),
	}

	if summary.Passed() {
		logger.Get(ctx).InfoContext(ctx, "Verification run passed", fields...)
	} else {
		logger.Get(ctx).ErrorContext(ctx, "Verification run failed", fields...)
	}
}

// MultiLogger fans events out to several loggers.
type MultiLogger []Logger

// Loggers combines loggers, skipping nils.
func Loggers(loggers ...Logger) MultiLogger {
	out := make(MultiLogger, 0, len(loggers))

	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}

	return out
}

func (m MultiLogger) MoveStarted(ctx context.Context, from, to string, path []string) {
	for _, l := range m {
		l.MoveStarted(ctx, from, to, path)
	}
}

func (m MultiLogger) StepStarted(ctx context.Context, from, to string) {
	for _, l := range m {
		l.StepStarted(ctx, from, to)
	}
}

func (m MultiLogger) StepSucceeded(ctx context.Context, from, to string, duration time.Duration) {
	for _, l := range m {
		l.StepSucceeded(ctx, from, to, duration)
	}
}

func (m MultiLogger) StepFailed(ctx context.Context, from, to string, duration time.Duration, err error) {
	for _, l := range m {
		l.StepFailed(ctx, from, to, duration, err)
	}
}

func (m MultiLogger) TargetSkipped(ctx context.Context, target string, err error) {
	for _, l := range m {
		l.TargetSkipped(ctx, target, err)
	}
}

func (m MultiLogger) RunFinished(ctx context.Context, summary RunSummary) {
	for _, l := range m {
		l.RunFinished(ctx, summary)
	}
}
