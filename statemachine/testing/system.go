// Package testing provides a scripted system and crawl assertions for
// exercising state declarations without a real system behind them.
package testing

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/amp-labs/statecrawler/statemachine"
)

// ActionType is the action type that sets variables on a ScriptedSystem.
const ActionType = "set"

var (
	// ErrNotScriptedSystem is returned by "set" actions run against another system.
	ErrNotScriptedSystem = errors.New("system is not a scripted system")
	// ErrObservationFailed is the default error for a failing observation.
	ErrObservationFailed = errors.New("observation failed")
)

// ScriptedSystem is an in-memory system whose observation is a set of
// variables. Actions change the variables; verify expressions read them.
type ScriptedSystem struct {
	mu      sync.Mutex
	vars    map[string]any
	actions []string
	failing map[string]error
}

// NewScriptedSystem creates a system starting from a copy of vars.
func NewScriptedSystem(vars map[string]any) *ScriptedSystem {
	system := &ScriptedSystem{
		vars:    make(map[string]any, len(vars)),
		failing: make(map[string]error),
	}

	maps.Copy(system.vars, vars)

	return system
}

// Set changes one variable.
func (s *ScriptedSystem) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vars[key] = value
}

// Get returns one variable.
func (s *ScriptedSystem) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.vars[key]

	return value, ok
}

// FailObservation makes every observation of state fail with err, or with
// ErrObservationFailed when err is nil.
func (s *ScriptedSystem) FailObservation(state string, err error) {
	if err == nil {
		err = fmt.Errorf("%w: %s", ErrObservationFailed, state)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.failing[state] = err
}

// Actions returns the names of the actions run so far, in order.
func (s *ScriptedSystem) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.actions)
}

// Observe returns a copy of the variables, plus the state's metadata under
// "metadata".
func (s *ScriptedSystem) Observe(_ context.Context, state string, metadata map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failing[state]; ok {
		return nil, err
	}

	env := maps.Clone(s.vars)
	if env == nil {
		env = make(map[string]any)
	}

	env["metadata"] = metadata

	return env, nil
}

func (s *ScriptedSystem) apply(name string, vars map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.actions = append(s.actions, name)
	maps.Copy(s.vars, vars)
}

// SetAction returns an action that records name and sets vars.
func SetAction(name string, vars map[string]any) statemachine.Action {
	return func(_ context.Context, system statemachine.System) error {
		scripted, ok := system.(*ScriptedSystem)
		if !ok {
			return fmt.Errorf("%w: %T", ErrNotScriptedSystem, system)
		}

		scripted.apply(name, vars)

		return nil
	}
}

// Register adds the "set" action type to factory. The parameters are the
// variables to set.
func Register(factory *statemachine.ActionFactory) {
	factory.Register(ActionType, ActionBuilder)
}

// ActionBuilder builds "set" actions.
func ActionBuilder(_ *statemachine.ActionFactory, name string, params map[string]any) (statemachine.Action, error) {
	if name == "" {
		name = ActionType
	}

	return SetAction(name, maps.Clone(params)), nil
}

// NewActionFactory returns the default factory with "set" registered.
func NewActionFactory() *statemachine.ActionFactory {
	factory := statemachine.NewActionFactory()
	Register(factory)

	return factory
}
