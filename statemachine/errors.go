package statemachine

import (
	"errors"
	"fmt"
	"strings"
)

// Predefined error types.
var (
	// ErrInvalidDeclaration matches every DeclarationError.
	ErrInvalidDeclaration = errors.New("invalid state declaration")
	// ErrStateRequired indicates a nil state where a state was expected.
	ErrStateRequired = errors.New("state is required")
	// ErrStateNameRequired indicates a state with an empty full name.
	ErrStateNameRequired = errors.New("state name is required")
	// ErrReservedStateName indicates a declared state using the entry point's name.
	ErrReservedStateName = errors.New("state name is reserved for the entry point")
	// ErrTransitionRequired indicates a nil transition in a state's transition list.
	ErrTransitionRequired = errors.New("transition is required")
	// ErrTransitionTargetRequired indicates a transition without a target.
	ErrTransitionTargetRequired = errors.New("transition target is required")
	// ErrTransitionSourceMismatch indicates a transition listed on a state other than its source.
	ErrTransitionSourceMismatch = errors.New("transition source does not match declaring state")
	// ErrNegativeCost indicates a transition with a negative cost.
	ErrNegativeCost = errors.New("transition cost must not be negative")

	// ErrUnknownState indicates a state name that is not part of the graph.
	ErrUnknownState = errors.New("unknown state")
	// ErrAmbiguousState indicates a short name matching several states.
	ErrAmbiguousState = errors.New("ambiguous state name")
	// ErrTransitionNotFound indicates a step between two states with no declared transition.
	ErrTransitionNotFound = errors.New("no transition between states")
	// ErrActionFailed indicates that a transition's action returned an error.
	ErrActionFailed = errors.New("action execution failed")
	// ErrActionPanicked indicates that an action or verifier panicked.
	ErrActionPanicked = errors.New("action panicked")
	// ErrVerificationFailed indicates that a state's verifier returned an error.
	ErrVerificationFailed = errors.New("state verification failed")
	// ErrStateNotVerified indicates that a state's verifier returned false.
	ErrStateNotVerified = errors.New("system is not in the expected state")
	// ErrStateUnreachable matches every UnreachableStateError.
	ErrStateUnreachable = errors.New("state is unreachable")
	// ErrStatesUnreachable is the cause of the summary error ending a failed verification run.
	ErrStatesUnreachable = errors.New("states could not be verified")
	// ErrInvalidPattern indicates a state filter that is not a valid regular expression.
	ErrInvalidPattern = errors.New("invalid state pattern")

	// ErrConfigNameRequired indicates that a configuration name is required.
	ErrConfigNameRequired = errors.New("config name is required")
	// ErrInitialStateRequired indicates that an initial state is required.
	ErrInitialStateRequired = errors.New("initial state is required")
	// ErrNoStates indicates that at least one state is required.
	ErrNoStates = errors.New("at least one state is required")
	// ErrInitialStateNotFound indicates that the initial state does not exist.
	ErrInitialStateNotFound = errors.New("initial state does not exist")
	// ErrDuplicateStateName indicates that a duplicate state name was found.
	ErrDuplicateStateName = errors.New("duplicate state name")
	// ErrTransitionFromRequired indicates that a transition from state is required.
	ErrTransitionFromRequired = errors.New("transition from state is required")
	// ErrTransitionToRequired indicates that a transition to state is required.
	ErrTransitionToRequired = errors.New("transition to state is required")
	// ErrTransitionFromNotFound indicates that a transition from state does not exist.
	ErrTransitionFromNotFound = errors.New("transition from state does not exist")
	// ErrTransitionToNotFound indicates that a transition to state does not exist.
	ErrTransitionToNotFound = errors.New("transition to state does not exist")
	// ErrUnknownConfigFormat indicates a declaration file with an unrecognized extension.
	ErrUnknownConfigFormat = errors.New("unknown declaration format")

	// ErrUnknownActionType indicates that an unknown action type was encountered.
	ErrUnknownActionType = errors.New("unknown action type")
	// ErrInvalidActionFormat indicates that an action has an invalid format.
	ErrInvalidActionFormat = errors.New("invalid action format")
	// ErrSequenceActionsRequired indicates that a sequence action requires an 'actions' parameter.
	ErrSequenceActionsRequired = errors.New("sequence action requires 'actions' parameter")
	// ErrInvalidExpression indicates that a verify expression does not compile.
	ErrInvalidExpression = errors.New("invalid expression")
	// ErrNotObservable indicates a verify expression used with a system that is not an Observer.
	ErrNotObservable = errors.New("system does not support observation")
	// ErrInjectedFailure is returned by the "fail" action.
	ErrInjectedFailure = errors.New("injected failure")
)

// DeclarationError reports a malformed state declaration. It is detected when
// a graph is built and is always fatal to setup.
type DeclarationError struct {
	Subject string
	Err     error
}

func (e *DeclarationError) Error() string {
	return fmt.Sprintf("declaration %q: %v", e.Subject, e.Err)
}

func (e *DeclarationError) Unwrap() error {
	return e.Err
}

// Is makes every DeclarationError match ErrInvalidDeclaration.
func (e *DeclarationError) Is(target error) bool {
	return target == ErrInvalidDeclaration //nolint:errorlint,err113
}

// TransitionError reports a failed step, or a verification run that ended
// with states still failing. For a failed step, History is the trail of
// states leading to the failure, ending with the target. For a run summary,
// Failed lists the states that could not be verified, sorted.
type TransitionError struct {
	From    string
	To      string
	History []string
	Failed  []string
	Err     error
}

func (e *TransitionError) Error() string {
	if len(e.Failed) > 0 {
		return fmt.Sprintf("%v: %s", e.Err, strings.Join(e.Failed, ", "))
	}

	msg := fmt.Sprintf("transition %s -> %s: %v", e.From, e.To, e.Err)
	if len(e.History) > 0 {
		msg += " (history: " + strings.Join(e.History, " -> ") + ")"
	}

	return msg
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// UnreachableStateError reports that no route to the target exists under the
// currently known failures.
type UnreachableStateError struct {
	From string
	To   string
}

func (e *UnreachableStateError) Error() string {
	return fmt.Sprintf("state %s is unreachable from %s", e.To, e.From)
}

func (e *UnreachableStateError) Unwrap() error {
	return ErrStateUnreachable
}

// WrapDeclarationError wraps an error with the declaration it concerns.
func WrapDeclarationError(subject string, err error) error {
	if err == nil {
		return nil
	}

	return &DeclarationError{
		Subject: subject,
		Err:     err,
	}
}

// WrapTransitionError wraps an error with transition context.
func WrapTransitionError(from, to string, history []string, err error) error {
	if err == nil {
		return nil
	}

	return &TransitionError{
		From:    from,
		To:      to,
		History: history,
		Err:     err,
	}
}

// IsRecoverable reports whether err is a per-target failure that a
// traversal can skip: a TransitionError or an UnreachableStateError.
func IsRecoverable(err error) bool {
	var transitionErr *TransitionError

	var unreachableErr *UnreachableStateError

	return errors.As(err, &transitionErr) || errors.As(err, &unreachableErr)
}
