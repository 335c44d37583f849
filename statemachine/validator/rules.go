//nolint:lll // Long validation messages
package validator

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/amp-labs/statecrawler/statemachine"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// RuleResult contains both errors and warnings from a rule check.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule defines a validation rule that can check a config for specific issues.
type Rule interface {
	Name() string
	Severity() Severity
	Check(config *statemachine.Config) RuleResult
}

// DefaultRules returns the standard set of validation rules. Action types
// are checked against factory; nil means the built-in types.
func DefaultRules(factory *statemachine.ActionFactory) []Rule {
	if factory == nil {
		factory = statemachine.NewActionFactory()
	}

	return []Rule{
		&unreachableStateRule{},
		&stateNameRule{},
		&duplicateTransitionRule{},
		&selfLoopRule{},
		&deadEndRule{},
		&verifyExpressionRule{},
		&actionTypeRule{types: factory.Types()},
	}
}

var (
	rulesMu sync.Mutex
	rules   []Rule //nolint:gochecknoglobals
)

// RegisterRule adds a custom validation rule run by every validation.
func RegisterRule(rule Rule) {
	rulesMu.Lock()
	defer rulesMu.Unlock()

	rules = append(rules, rule)
}

func registeredRules() []Rule {
	rulesMu.Lock()
	defer rulesMu.Unlock()

	return slices.Clone(rules)
}

func transitionName(t statemachine.TransitionConfig) string {
	return t.From + " -> " + t.To
}

// unreachableStateRule reports states no route from the initial state
// reaches. The crawler can never verify them.
type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string {
	return "UnreachableState"
}

func (r *unreachableStateRule) Severity() Severity {
	return SeverityError
}

func (r *unreachableStateRule) Check(config *statemachine.Config) RuleResult {
	var errors []ValidationError

	reachable := config.ReachableStates()

	for _, state := range config.States {
		if !reachable[state.Name] {
			errors = append(errors, ValidationError{
				Code:     "UNREACHABLE_STATE",
				Message:  fmt.Sprintf("State '%s' cannot be reached from initial state '%s'", state.Name, config.InitialState),
				Location: Location{State: state.Name},
				Fix:      RemoveUnreachableState(state.Name),
			})
		}
	}

	return RuleResult{Errors: errors}
}

// stateNameRule rejects names that break qualified names: the last dot
// separates a graph name from a state name.
type stateNameRule struct{}

func (r *stateNameRule) Name() string {
	return "StateName"
}

func (r *stateNameRule) Severity() Severity {
	return SeverityError
}

func (r *stateNameRule) Check(config *statemachine.Config) RuleResult {
	var errors []ValidationError

	for _, state := range config.States {
		if !strings.ContainsFunc(state.Name, invalidNameRune) {
			continue
		}

		errors = append(errors, ValidationError{
			Code:     "INVALID_STATE_NAME",
			Message:  fmt.Sprintf("State name '%s' must not contain dots, whitespace or control characters", state.Name),
			Location: Location{State: state.Name},
			Fix:      RenameState(state.Name, cleanName(state.Name)),
		})
	}

	return RuleResult{Errors: errors}
}

func invalidNameRune(r rune) bool {
	return r == '.' || unicode.IsSpace(r) || unicode.IsControl(r)
}

func cleanName(name string) string {
	return strings.Map(func(r rune) rune {
		if invalidNameRune(r) {
			return '_'
		}

		return r
	}, name)
}

// duplicateTransitionRule warns about pairs declared more than once. The
// last declaration wins.
type duplicateTransitionRule struct{}

func (r *duplicateTransitionRule) Name() string {
	return "DuplicateTransition"
}

func (r *duplicateTransitionRule) Severity() Severity {
	return SeverityWarning
}

func (r *duplicateTransitionRule) Check(config *statemachine.Config) RuleResult {
	var warnings []ValidationWarning

	counts := make(map[[2]string]int)

	for _, t := range config.Transitions {
		key := [2]string{t.From, t.To}
		counts[key]++

		if counts[key] == 2 { //nolint:mnd
			warnings = append(warnings, ValidationWarning{
				Code:     "DUPLICATE_TRANSITION",
				Message:  fmt.Sprintf("Transition '%s' is declared more than once; only the last declaration is used", transitionName(t)),
				Location: Location{Transition: transitionName(t)},
				Fix:      RemoveDuplicateTransition(t.From, t.To),
			})
		}
	}

	return RuleResult{Warnings: warnings}
}

// selfLoopRule warns about transitions from a state to itself, which no
// shortest route ever takes and only a full run exercises.
type selfLoopRule struct{}

func (r *selfLoopRule) Name() string {
	return "SelfLoop"
}

func (r *selfLoopRule) Severity() Severity {
	return SeverityWarning
}

func (r *selfLoopRule) Check(config *statemachine.Config) RuleResult {
	var warnings []ValidationWarning

	for _, t := range config.Transitions {
		if t.From == t.To {
			warnings = append(warnings, ValidationWarning{
				Code:     "SELF_LOOP",
				Message:  fmt.Sprintf("Transition '%s' loops on its state and is only exercised by full runs", transitionName(t)),
				Location: Location{Transition: transitionName(t)},
			})
		}
	}

	return RuleResult{Warnings: warnings}
}

// deadEndRule warns about states without outgoing transitions: the crawler
// leaves them only through a reset.
type deadEndRule struct{}

func (r *deadEndRule) Name() string {
	return "DeadEnd"
}

func (r *deadEndRule) Severity() Severity {
	return SeverityInfo
}

func (r *deadEndRule) Check(config *statemachine.Config) RuleResult {
	var warnings []ValidationWarning

	hasOutgoing := make(map[string]bool)
	for _, t := range config.Transitions {
		hasOutgoing[t.From] = true
	}

	for _, state := range config.States {
		if !hasOutgoing[state.Name] && len(config.States) > 1 {
			warnings = append(warnings, ValidationWarning{
				Code:     "DEAD_END_STATE",
				Message:  fmt.Sprintf("State '%s' has no outgoing transitions; the crawler leaves it only through a reset", state.Name),
				Location: Location{State: state.Name},
			})
		}
	}

	return RuleResult{Warnings: warnings}
}

// verifyExpressionRule compiles every verify expression.
type verifyExpressionRule struct{}

func (r *verifyExpressionRule) Name() string {
	return "VerifyExpression"
}

func (r *verifyExpressionRule) Severity() Severity {
	return SeverityError
}

func (r *verifyExpressionRule) Check(config *statemachine.Config) RuleResult {
	var errors []ValidationError

	for _, state := range config.States {
		if strings.TrimSpace(state.Verify) == "" {
			continue
		}

		if _, err := statemachine.CompileExpression(state.Verify); err != nil {
			errors = append(errors, ValidationError{
				Code:     "INVALID_VERIFY_EXPRESSION",
				Message:  err.Error(),
				Location: Location{State: state.Name},
			})
		}
	}

	return RuleResult{Errors: errors}
}

// actionTypeRule checks every action against the registered types.
type actionTypeRule struct {
	types []string
}

func (r *actionTypeRule) Name() string {
	return "ActionType"
}

func (r *actionTypeRule) Severity() Severity {
	return SeverityError
}

func (r *actionTypeRule) Check(config *statemachine.Config) RuleResult {
	var errors []ValidationError

	check := func(action *statemachine.ActionConfig, location Location) {
		if action == nil || slices.Contains(r.types, action.Type) {
			return
		}

		errors = append(errors, ValidationError{
			Code:     "UNKNOWN_ACTION_TYPE",
			Message:  fmt.Sprintf("Action type '%s' is not registered (known: %s)", action.Type, strings.Join(r.types, ", ")),
			Location: location,
		})
	}

	check(config.Reset, Location{Transition: "reset"})

	for _, t := range config.Transitions {
		check(t.Action, Location{Transition: transitionName(t)})
	}

	return RuleResult{Errors: errors}
}
