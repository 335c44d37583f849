package testing

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/statecrawler/statemachine"
	"github.com/stretchr/testify/require"
)

// TestCrawler runs a crawler against a ScriptedSystem and records every step.
type TestCrawler struct {
	*statemachine.Crawler

	System *ScriptedSystem

	t          *testing.T
	mu         sync.Mutex
	trace      []TraceEntry
	skipped    []string
	summaries  []statemachine.RunSummary
	assertions []Assertion
}

// TraceEntry records a single step.
type TraceEntry struct {
	Timestamp time.Time
	From      string
	To        string
	Duration  time.Duration
	Error     error
}

// Assertion records the outcome of a test assertion.
type Assertion struct {
	Name   string
	Passed bool
	Error  error
}

// NewTestCrawler assembles config with the "set" action type available and
// creates a crawler over a fresh ScriptedSystem.
func NewTestCrawler(t *testing.T, config *statemachine.Config, opts ...statemachine.Option) *TestCrawler {
	t.Helper()

	return NewTestCrawlerWithSystem(t, config, NewScriptedSystem(nil), opts...)
}

// NewTestCrawlerWithSystem is NewTestCrawler over a prepared system.
func NewTestCrawlerWithSystem(
	t *testing.T,
	config *statemachine.Config,
	system *ScriptedSystem,
	opts ...statemachine.Option,
) *TestCrawler {
	t.Helper()

	tc := &TestCrawler{System: system, t: t}

	opts = append([]statemachine.Option{statemachine.WithLogger(tc)}, opts...)

	crawler, err := statemachine.NewCrawlerFromConfig(config, system, NewActionFactory(), opts...)
	require.NoError(t, err)

	tc.Crawler = crawler

	return tc
}

// VerifyAll verifies every state, exercising every transition when full.
func (tc *TestCrawler) VerifyAll(full bool) error {
	tc.t.Helper()

	return tc.VerifyAllStates(tc.t.Context(), "", full)
}

// MoveStarted implements statemachine.Logger.
func (tc *TestCrawler) MoveStarted(context.Context, string, string, []string) {}

// StepStarted implements statemachine.Logger.
func (tc *TestCrawler) StepStarted(_ context.Context, from, to string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.trace = append(tc.trace, TraceEntry{Timestamp: time.Now(), From: from, To: to})
}

// StepSucceeded implements statemachine.Logger.
func (tc *TestCrawler) StepSucceeded(_ context.Context, from, to string, duration time.Duration) {
	tc.finish(from, to, duration, nil)
}

// StepFailed implements statemachine.Logger.
func (tc *TestCrawler) StepFailed(_ context.Context, from, to string, duration time.Duration, err error) {
	tc.finish(from, to, duration, err)
}

// TargetSkipped implements statemachine.Logger.
func (tc *TestCrawler) TargetSkipped(_ context.Context, target string, _ error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.skipped = append(tc.skipped, target)
}

// RunFinished implements statemachine.Logger.
func (tc *TestCrawler) RunFinished(_ context.Context, summary statemachine.RunSummary) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.summaries = append(tc.summaries, summary)
}

func (tc *TestCrawler) finish(from, to string, duration time.Duration, err error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if n := len(tc.trace); n > 0 && tc.trace[n-1].From == from && tc.trace[n-1].To == to {
		tc.trace[n-1].Duration = duration
		tc.trace[n-1].Error = err

		return
	}

	tc.trace = append(tc.trace, TraceEntry{Timestamp: time.Now(), From: from, To: to, Duration: duration, Error: err})
}

// Trace returns the recorded steps.
func (tc *TestCrawler) Trace() []TraceEntry {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	return slices.Clone(tc.trace)
}

// Skipped returns the traversal targets that were skipped.
func (tc *TestCrawler) Skipped() []string {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	return slices.Clone(tc.skipped)
}

// LastSummary returns the summary of the last finished run.
func (tc *TestCrawler) LastSummary() (statemachine.RunSummary, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if len(tc.summaries) == 0 {
		return statemachine.RunSummary{}, false
	}

	return tc.summaries[len(tc.summaries)-1], true
}

// Assertions returns every assertion made so far.
func (tc *TestCrawler) Assertions() []Assertion {
	return tc.assertions
}

// Expect runs matcher, records it as an assertion and fails the test when
// it does not match.
func (tc *TestCrawler) Expect(matcher Matcher) {
	tc.t.Helper()

	matched, err := matcher.Match(tc)
	tc.assertions = append(tc.assertions, Assertion{
		Name:   matcher.Description(),
		Passed: matched && err == nil,
		Error:  err,
	})

	require.True(tc.t, matched, "%s: %v", matcher.Description(), err)
}

// AssertStateVisited checks that a step reached the state.
func (tc *TestCrawler) AssertStateVisited(name string) {
	tc.t.Helper()
	tc.Expect(StateWasVisited(name))
}

// AssertTransitionTaken checks that a step from -> to succeeded.
func (tc *TestCrawler) AssertTransitionTaken(from, to string) {
	tc.t.Helper()
	tc.Expect(TransitionWasTaken(from, to))
}

// AssertStateFailed checks that the state is among the error states.
func (tc *TestCrawler) AssertStateFailed(name string) {
	tc.t.Helper()
	tc.Expect(StateFailed(name))
}

// AssertCurrentState checks the crawler's current state.
func (tc *TestCrawler) AssertCurrentState(expected string) {
	tc.t.Helper()

	actual := tc.State().FullName()

	passed := sameState(actual, expected)
	assertion := Assertion{Name: fmt.Sprintf("Current state is '%s'", expected), Passed: passed}

	if !passed {
		assertion.Error = fmt.Errorf("%w: expected '%s', got '%s'", ErrUnexpectedState, expected, actual)
	}

	tc.assertions = append(tc.assertions, assertion)
	require.True(tc.t, passed, "current state should be '%s', got '%s'", expected, actual)
}

// AssertExecutionTime checks the total duration of the recorded steps.
func (tc *TestCrawler) AssertExecutionTime(maxDuration time.Duration) {
	tc.t.Helper()
	tc.Expect(ExecutionTookLessThan(maxDuration))
}

// sameState reports whether a full state name matches name, given either as
// a full or a short name.
func sameState(fullName, name string) bool {
	return fullName == name || statemachine.ShortName(fullName) == name
}
