package statemachine

import (
	"github.com/amp-labs/statecrawler/pathfinder"
)

// DefaultCost is the cost of a declared transition without an explicit cost.
// Synthetic edges into and out of the entry point cost nothing.
const DefaultCost = 1.0

// Transition is a directed, costed edge between two states.
type Transition struct {
	Name   string
	Source State
	Target State
	Cost   float64
	Action Action
}

// Edge returns the transition's (source, target) pair by full name.
func (t *Transition) Edge() pathfinder.Edge {
	return pathfinder.Edge{From: nameOf(t.Source), To: nameOf(t.Target)}
}

// TransitionOption customizes a transition at declaration time.
type TransitionOption func(*Transition)

// WithCost overrides the default cost.
func WithCost(cost float64) TransitionOption {
	return func(t *Transition) {
		t.Cost = cost
	}
}

// WithName names the transition for logs and reports.
func WithName(name string) TransitionOption {
	return func(t *Transition) {
		t.Name = name
	}
}

func newTransition(source, target State, action Action, opts ...TransitionOption) *Transition {
	transition := &Transition{
		Source: source,
		Target: target,
		Cost:   DefaultCost,
		Action: action,
	}

	for _, opt := range opts {
		opt(transition)
	}

	if transition.Name == "" {
		transition.Name = ShortName(nameOf(source)) + "->" + ShortName(nameOf(target))
	}

	return transition
}

func nameOf(s State) string {
	if isNilState(s) {
		return ""
	}

	return s.FullName()
}
