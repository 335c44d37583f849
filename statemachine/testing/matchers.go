package testing

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Matcher errors.
var (
	ErrNoExecutionTrace   = errors.New("no execution trace available")
	ErrNoRunFinished      = errors.New("no verification run finished")
	ErrRunFailed          = errors.New("verification run failed")
	ErrRunPassed          = errors.New("verification run passed")
	ErrNoMatchersPassed   = errors.New("no matchers passed")
	ErrStateNotVisited    = errors.New("state was not visited")
	ErrStateNotFailed     = errors.New("state did not fail")
	ErrTransitionNotTaken = errors.New("transition was not taken")
	ErrUnexpectedState    = errors.New("unexpected state")
	ErrUnexpectedActions  = errors.New("unexpected actions")
	ErrExecutionTooSlow   = errors.New("execution exceeded time limit")
)

// Matcher defines an assertion over a test crawler.
type Matcher interface {
	Match(crawler *TestCrawler) (bool, error)
	Description() string
}

// StateWasVisited matches when a successful step reached the state.
func StateWasVisited(name string) Matcher {
	return &stateVisitedMatcher{stateName: name}
}

type stateVisitedMatcher struct {
	stateName string
}

func (m *stateVisitedMatcher) Match(crawler *TestCrawler) (bool, error) {
	for _, entry := range crawler.Trace() {
		if entry.Error == nil && sameState(entry.To, m.stateName) {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: '%s'", ErrStateNotVisited, m.stateName)
}

func (m *stateVisitedMatcher) Description() string {
	return fmt.Sprintf("state '%s' should be visited", m.stateName)
}

// TransitionWasTaken matches when a step from -> to succeeded.
func TransitionWasTaken(from, to string) Matcher {
	return &transitionTakenMatcher{from: from, to: to}
}

type transitionTakenMatcher struct {
	from string
	to   string
}

func (m *transitionTakenMatcher) Match(crawler *TestCrawler) (bool, error) {
	for _, entry := range crawler.Trace() {
		if entry.Error == nil && sameState(entry.From, m.from) && sameState(entry.To, m.to) {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: from '%s' to '%s'", ErrTransitionNotTaken, m.from, m.to)
}

func (m *transitionTakenMatcher) Description() string {
	return fmt.Sprintf("transition from '%s' to '%s' should be taken", m.from, m.to)
}

// StateFailed matches when the state is among the crawler's error states.
func StateFailed(name string) Matcher {
	return &stateFailedMatcher{stateName: name}
}

type stateFailedMatcher struct {
	stateName string
}

func (m *stateFailedMatcher) Match(crawler *TestCrawler) (bool, error) {
	if slices.ContainsFunc(crawler.ErrorStates(), func(s string) bool { return sameState(s, m.stateName) }) {
		return true, nil
	}

	return false, fmt.Errorf("%w: '%s'", ErrStateNotFailed, m.stateName)
}

func (m *stateFailedMatcher) Description() string {
	return fmt.Sprintf("state '%s' should fail", m.stateName)
}

// RunPassed matches when the last verification run verified every state.
func RunPassed() Matcher {
	return &runMatcher{passed: true}
}

// RunFailed matches when the last verification run left error states.
func RunFailed() Matcher {
	return &runMatcher{passed: false}
}

type runMatcher struct {
	passed bool
}

func (m *runMatcher) Match(crawler *TestCrawler) (bool, error) {
	summary, ok := crawler.LastSummary()
	if !ok {
		return false, ErrNoRunFinished
	}

	switch {
	case summary.Passed() == m.passed:
		return true, nil
	case m.passed:
		return false, fmt.Errorf("%w: %v", ErrRunFailed, summary.ErrorStates)
	default:
		return false, ErrRunPassed
	}
}

func (m *runMatcher) Description() string {
	if m.passed {
		return "verification run should pass"
	}

	return "verification run should fail"
}

// ActionsRan matches when the system ran exactly these actions, in order.
func ActionsRan(names ...string) Matcher {
	return &actionsMatcher{names: names}
}

type actionsMatcher struct {
	names []string
}

func (m *actionsMatcher) Match(crawler *TestCrawler) (bool, error) {
	actual := crawler.System.Actions()
	if slices.Equal(actual, m.names) {
		return true, nil
	}

	return false, fmt.Errorf("%w: expected %v, got %v", ErrUnexpectedActions, m.names, actual)
}

func (m *actionsMatcher) Description() string {
	return fmt.Sprintf("actions %v should run", m.names)
}

// ExecutionTookLessThan matches when the recorded steps took at most duration.
func ExecutionTookLessThan(duration time.Duration) Matcher {
	return &executionDurationMatcher{maxDuration: duration}
}

type executionDurationMatcher struct {
	maxDuration time.Duration
}

func (m *executionDurationMatcher) Match(crawler *TestCrawler) (bool, error) {
	trace := crawler.Trace()
	if len(trace) == 0 {
		return false, ErrNoExecutionTrace
	}

	totalDuration := time.Duration(0)
	for _, entry := range trace {
		totalDuration += entry.Duration
	}

	if totalDuration > m.maxDuration {
		return false, fmt.Errorf("%w: took %s, max %s", ErrExecutionTooSlow, totalDuration, m.maxDuration)
	}

	return true, nil
}

func (m *executionDurationMatcher) Description() string {
	return fmt.Sprintf("execution should take less than %s", m.maxDuration)
}

// All creates a matcher that requires all sub-matchers to pass.
func All(matchers ...Matcher) Matcher {
	return &allMatcher{matchers: matchers}
}

type allMatcher struct {
	matchers []Matcher
}

func (m *allMatcher) Match(crawler *TestCrawler) (bool, error) {
	for _, matcher := range m.matchers {
		matched, err := matcher.Match(crawler)
		if !matched || err != nil {
			return false, err
		}
	}

	return true, nil
}

func (m *allMatcher) Description() string {
	return "all matchers should pass"
}

// Any creates a matcher that requires at least one sub-matcher to pass.
func Any(matchers ...Matcher) Matcher {
	return &anyMatcher{matchers: matchers}
}

type anyMatcher struct {
	matchers []Matcher
}

func (m *anyMatcher) Match(crawler *TestCrawler) (bool, error) {
	for _, matcher := range m.matchers {
		matched, err := matcher.Match(crawler)
		if matched && err == nil {
			return true, nil
		}
	}

	return false, ErrNoMatchersPassed
}

func (m *anyMatcher) Description() string {
	return "at least one matcher should pass"
}
