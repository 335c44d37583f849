// Package fleet verifies many declarations at once, one crawler per
// declaration, on a bounded worker pool.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/statecrawler/logger"
	"github.com/amp-labs/statecrawler/statemachine"
	"go.uber.org/atomic"
)

// ErrNoDeclarations is returned when a run is given nothing to verify.
var ErrNoDeclarations = errors.New("no declarations to verify")

const defaultConcurrency = 4

// Declaration is a loaded declaration and the file it came from.
type Declaration struct {
	Path   string
	Config *statemachine.Config
}

// Result is the outcome of verifying one declaration.
type Result struct {
	Name             string        `json:"name"`
	Path             string        `json:"path,omitempty"`
	RunID            string        `json:"runId,omitempty"`
	Passed           bool          `json:"passed"`
	Visited          []string      `json:"visited"`
	ErrorStates      []string      `json:"errorStates"`
	ErrorTransitions int           `json:"errorTransitions"`
	LastState        string        `json:"lastState,omitempty"`
	Duration         time.Duration `json:"duration"`
	Error            string        `json:"error,omitempty"`

	Err error `json:"-"`
}

// Report collects the results of a run in declaration order.
type Report struct {
	Results  []Result      `json:"results"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether every declaration passed.
func (r *Report) OK() bool {
	return r.Failed == 0
}

// SystemFactory creates a fresh system for one declaration. Crawlers never
// share a system.
type SystemFactory func(ctx context.Context, decl Declaration) (statemachine.System, error)

// Runner verifies declarations concurrently.
type Runner struct {
	newSystem   SystemFactory
	concurrency int
	pattern     string
	full        bool
	factory     *statemachine.ActionFactory
	log         statemachine.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency bounds how many declarations verify at once.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		r.concurrency = max(n, 1)
	}
}

// WithPattern restricts every crawl to states whose full name matches.
func WithPattern(pattern string) Option {
	return func(r *Runner) {
		r.pattern = pattern
	}
}

// WithFull exercises every transition rather than every state.
func WithFull(full bool) Option {
	return func(r *Runner) {
		r.full = full
	}
}

// WithActionFactory sets the factory declared actions are built with.
func WithActionFactory(factory *statemachine.ActionFactory) Option {
	return func(r *Runner) {
		r.factory = factory
	}
}

// WithLogger sets the progress logger shared by every crawler. It must be
// safe for concurrent use.
func WithLogger(l statemachine.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// NewRunner creates a runner that builds each declaration's system with
// newSystem.
func NewRunner(newSystem SystemFactory, opts ...Option) *Runner {
	r := &Runner{
		newSystem:   newSystem,
		concurrency: defaultConcurrency,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run verifies every declaration and returns their results in order. A
// failed declaration does not stop the others; the error is only for a run
// that could not take place.
func (r *Runner) Run(ctx context.Context, decls []Declaration) (*Report, error) {
	if len(decls) == 0 {
		return nil, ErrNoDeclarations
	}

	start := time.Now()
	passed := atomic.NewInt64(0)
	failed := atomic.NewInt64(0)

	pool := pond.NewResultPool[Result](min(r.concurrency, len(decls)), pond.WithContext(ctx))
	defer pool.StopAndWait()

	group := pool.NewGroup()

	for _, decl := range decls {
		group.Submit(func() Result {
			inFlight.Inc()
			defer inFlight.Dec()

			result := r.verify(ctx, decl)
			if result.Passed {
				passed.Inc()
			} else {
				failed.Inc()
			}

			declarationsTotal.WithLabelValues(outcome(result.Passed)).Inc()

			return result
		})
	}

	results, err := group.Wait()
	if err != nil {
		return nil, fmt.Errorf("fleet run interrupted: %w", err)
	}

	report := &Report{
		Results:  results,
		Passed:   int(passed.Load()),
		Failed:   int(failed.Load()),
		Duration: time.Since(start),
	}

	logger.Get(ctx).InfoContext(ctx, "Fleet run finished",
		"declarations", len(results),
		"passed", report.Passed,
		"failed", report.Failed,
		"duration", report.Duration,
	)

	return report, nil
}

func (r *Runner) verify(ctx context.Context, decl Declaration) Result {
	start := time.Now()
	result := Result{Name: decl.Config.Name, Path: decl.Path}

	finish := func(err error) Result {
		result.Duration = time.Since(start)
		result.Passed = err == nil
		result.Err = err

		if err != nil {
			result.Error = err.Error()
		}

		return result
	}

	ctx = logger.With(ctx, "declaration", decl.Config.Name)

	system, err := r.newSystem(ctx, decl)
	if err != nil {
		return finish(err)
	}

	var opts []statemachine.Option
	if r.log != nil {
		opts = append(opts, statemachine.WithLogger(r.log))
	}

	crawler, err := statemachine.NewCrawlerFromConfig(decl.Config, system, r.factory, opts...)
	if err != nil {
		return finish(err)
	}

	err = crawler.VerifyAllStates(ctx, r.pattern, r.full)

	result.RunID = crawler.RunID()
	result.Visited = crawler.VisitedStates()
	result.ErrorStates = crawler.ErrorStates()
	result.ErrorTransitions = len(crawler.View().ErrorTransitions)

	if state := crawler.State(); state != nil {
		result.LastState = state.FullName()
	}

	return finish(err)
}
