package testing

import (
	"testing"

	"github.com/amp-labs/statecrawler/statemachine"
	"github.com/stretchr/testify/require"
)

// TestScenario describes a verification run and what it should produce.
type TestScenario struct {
	Name        string
	Config      *statemachine.Config
	InitialVars map[string]any
	Full        bool
	// Fail, when set, expects the run to end with a TransitionError.
	Fail    bool
	Expects []Matcher
}

// RunScenario verifies every state of the scenario's declaration as a
// subtest and checks its expectations.
func RunScenario(t *testing.T, scenario TestScenario) {
	t.Helper()

	t.Run(scenario.Name, func(t *testing.T) {
		t.Parallel()

		crawler := NewTestCrawlerWithSystem(t, scenario.Config, NewScriptedSystem(scenario.InitialVars))

		err := crawler.VerifyAll(scenario.Full)
		if scenario.Fail {
			require.ErrorIs(t, err, statemachine.ErrStatesUnreachable)
		} else {
			require.NoError(t, err)
		}

		for _, matcher := range scenario.Expects {
			crawler.Expect(matcher)
		}
	})
}

// LinearScenario verifies every state of the linear declaration.
func LinearScenario() TestScenario {
	return TestScenario{
		Name:   "Linear",
		Config: CommonTestConfigs.Linear(),
		Expects: []Matcher{
			RunPassed(),
			ActionsRan("reset", "Home->Cart", "Cart->Paid"),
		},
	}
}

// FullScenario exercises every transition of the branching declaration.
func FullScenario() TestScenario {
	return TestScenario{
		Name:   "Full",
		Config: CommonTestConfigs.Branching(),
		Full:   true,
		Expects: []Matcher{
			RunPassed(),
			TransitionWasTaken("Search", "Home"),
			TransitionWasTaken("Account", "Home"),
		},
	}
}

// CycleScenario exercises the cycle and its shortcut.
func CycleScenario() TestScenario {
	return TestScenario{
		Name:   "Cycle",
		Config: CommonTestConfigs.Cycle(),
		Full:   true,
		Expects: []Matcher{
			RunPassed(),
			TransitionWasTaken("C", "A"),
			TransitionWasTaken("A", "C"),
		},
	}
}

// ErrorRecoveryScenario keeps crawling after Cart fails to verify and
// reports it as the failed state.
func ErrorRecoveryScenario() TestScenario {
	return TestScenario{
		Name:   "ErrorRecovery",
		Config: CommonTestConfigs.Broken(),
		Fail:   true,
		Expects: []Matcher{
			RunFailed(),
			StateFailed("Cart"),
			StateWasVisited("Home"),
		},
	}
}
