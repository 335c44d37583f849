package actions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amp-labs/statecrawler/statemachine"
)

// Tracer records the actions it wraps, for debugging declarations.
type Tracer struct {
	mu     sync.Mutex
	traces []ActionTrace
}

// ActionTrace is one recorded action run.
type ActionTrace struct {
	Name     string
	Start    time.Time
	Duration time.Duration
	Error    error
}

// NewTracer creates an empty tracer.
func NewTracer() *Tracer {
	return &Tracer{}
}

// Wrap returns action recording every run under name.
func (t *Tracer) Wrap(name string, action statemachine.Action) statemachine.Action {
	return func(ctx context.Context, system statemachine.System) error {
		start := time.Now()
		err := action(ctx, system)

		t.mu.Lock()
		defer t.mu.Unlock()

		t.traces = append(t.traces, ActionTrace{Name: name, Start: start, Duration: time.Since(start), Error: err})

		return err
	}
}

// Traces returns the recorded runs in completion order.
func (t *Tracer) Traces() []ActionTrace {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ActionTrace, len(t.traces))
	copy(out, t.traces)

	return out
}

// String renders one line per run.
func (t *Tracer) String() string {
	var sb strings.Builder

	for i, trace := range t.Traces() {
		status := "ok"
		if trace.Error != nil {
			status = "error: " + trace.Error.Error()
		}

		fmt.Fprintf(&sb, "[%d] %s %s (%s)\n", i, trace.Name, status, trace.Duration.Round(time.Millisecond))
	}

	return sb.String()
}
