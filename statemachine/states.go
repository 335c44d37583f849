package statemachine

import (
	"context"
	"reflect"
	"strings"
)

// EntryPointName is the full name of the synthetic root state.
const EntryPointName = "EntryPoint"

// EntryPoint is the synthetic root of every crawl graph. It always verifies,
// its only edge leads to the initial state, and every other state has an
// edge back to it.
var EntryPoint State = entryPoint{} //nolint:gochecknoglobals

type entryPoint struct{}

func (entryPoint) FullName() string {
	return EntryPointName
}

func (entryPoint) Verify(context.Context, System) (bool, error) {
	return true, nil
}

func (entryPoint) Transitions() []*Transition {
	return nil
}

// IsEntryPoint reports whether s is the entry point.
func IsEntryPoint(s State) bool {
	return s != nil && s.FullName() == EntryPointName
}

// DeclaredState is the standard State implementation. Its outgoing
// transitions are registered explicitly with To.
type DeclaredState struct {
	fullName    string
	verify      Verifier
	metadata    map[string]any
	transitions []*Transition
	byTarget    map[string]int
}

// Declare creates a state with the given full name. A nil verifier always
// succeeds.
func Declare(fullName string, verify Verifier) *DeclaredState {
	return &DeclaredState{
		fullName: fullName,
		verify:   verify,
		byTarget: make(map[string]int),
	}
}

// FullName returns the state's unique name.
func (s *DeclaredState) FullName() string {
	return s.fullName
}

// Name returns the last dot separated segment of the full name.
func (s *DeclaredState) Name() string {
	return ShortName(s.fullName)
}

// Metadata returns the metadata attached with WithMetadata.
func (s *DeclaredState) Metadata() map[string]any {
	return s.metadata
}

// WithMetadata attaches free-form metadata to the state.
func (s *DeclaredState) WithMetadata(md map[string]any) *DeclaredState {
	s.metadata = md

	return s
}

// Verify runs the state's verifier.
func (s *DeclaredState) Verify(ctx context.Context, system System) (bool, error) {
	if s.verify == nil {
		return true, nil
	}

	return s.verify(ctx, system)
}

// Transitions returns the outgoing transitions in declaration order.
func (s *DeclaredState) Transitions() []*Transition {
	out := make([]*Transition, len(s.transitions))
	copy(out, s.transitions)

	return out
}

// To declares a transition from s to target. Declaring the same target twice
// replaces the earlier transition.
func (s *DeclaredState) To(target State, action Action, opts ...TransitionOption) *DeclaredState {
	transition := newTransition(s, target, action, opts...)

	key := ""
	if !isNilState(target) {
		key = target.FullName()
	}

	if idx, ok := s.byTarget[key]; ok && !isNilState(target) {
		s.transitions[idx] = transition

		return s
	}

	s.byTarget[key] = len(s.transitions)
	s.transitions = append(s.transitions, transition)

	return s
}

// isNilState reports whether s is nil or a nil pointer wrapped in the
// interface.
func isNilState(s State) bool {
	if s == nil {
		return true
	}

	v := reflect.ValueOf(s)

	return v.Kind() == reflect.Pointer && v.IsNil()
}

// ShortName returns the last dot separated segment of a full name.
func ShortName(fullName string) string {
	if idx := strings.LastIndex(fullName, "."); idx >= 0 {
		return fullName[idx+1:]
	}

	return fullName
}

// QualifiedName joins a graph name and a state name.
func QualifiedName(graphName, stateName string) string {
	if graphName == "" {
		return stateName
	}

	return graphName + "." + stateName
}
