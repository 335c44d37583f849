package statemachine

import (
	"fmt"
	"strings"

	"github.com/amp-labs/statecrawler/pathfinder"
)

// TransitionMap is the result of walking a state's declarations: every
// reachable state, its targets and the transition behind each edge.
type TransitionMap struct {
	Adjacency   pathfinder.Graph
	States      map[string]State
	Transitions map[pathfinder.Edge]*Transition
}

// BuildTransitionMap walks the transition declarations reachable from
// initial. Every visited state is a key of the adjacency, with an empty set
// when it declares no transitions. Cycles are followed once.
func BuildTransitionMap(initial State) (*TransitionMap, error) {
	tm := &TransitionMap{
		Adjacency:   make(pathfinder.Graph),
		States:      make(map[string]State),
		Transitions: make(map[pathfinder.Edge]*Transition),
	}

	if err := tm.walk(initial); err != nil {
		return nil, err
	}

	return tm, nil
}

func (tm *TransitionMap) walk(state State) error {
	if isNilState(state) {
		return WrapDeclarationError("<nil>", ErrStateRequired)
	}

	name := state.FullName()

	switch {
	case name == "":
		return WrapDeclarationError(fmt.Sprintf("%T", state), ErrStateNameRequired)
	case name == EntryPointName:
		return WrapDeclarationError(name, ErrReservedStateName)
	}

	if _, seen := tm.States[name]; seen {
		return nil
	}

	targets := make(pathfinder.Set)
	tm.States[name] = state
	tm.Adjacency[name] = targets

	for _, transition := range state.Transitions() {
		if err := checkTransition(name, transition); err != nil {
			return err
		}

		edge := pathfinder.Edge{From: name, To: transition.Target.FullName()}
		targets.Add(edge.To)
		tm.Transitions[edge] = transition

		if err := tm.walk(transition.Target); err != nil {
			return err
		}
	}

	return nil
}

func checkTransition(source string, transition *Transition) error {
	switch {
	case transition == nil:
		return WrapDeclarationError(source, ErrTransitionRequired)
	case isNilState(transition.Target):
		return WrapDeclarationError(source, ErrTransitionTargetRequired)
	case !isNilState(transition.Source) && transition.Source.FullName() != source:
		return WrapDeclarationError(source+"->"+transition.Target.FullName(), ErrTransitionSourceMismatch)
	case transition.Cost < 0:
		return WrapDeclarationError(source+"->"+transition.Target.FullName(), ErrNegativeCost)
	default:
		return nil
	}
}

// Graph is an immutable crawl graph: the declared states reachable from an
// initial state plus the entry point and its synthetic edges.
type Graph struct {
	initial     State
	states      map[string]State
	adjacency   pathfinder.Graph
	transitions map[pathfinder.Edge]*Transition
}

// NewGraph builds the crawl graph rooted at initial. The entry point gets a
// single edge to initial, and every other state gets an edge back to the
// entry point.
func NewGraph(initial State) (*Graph, error) {
	tm, err := BuildTransitionMap(initial)
	if err != nil {
		return nil, err
	}

	for _, targets := range tm.Adjacency {
		targets.Add(EntryPointName)
	}

	tm.Adjacency[EntryPointName] = pathfinder.NewSet(initial.FullName())
	tm.States[EntryPointName] = EntryPoint

	entryEdge := pathfinder.Edge{From: EntryPointName, To: initial.FullName()}
	tm.Transitions[entryEdge] = &Transition{
		Name:   "reset->" + ShortName(initial.FullName()),
		Source: EntryPoint,
		Target: initial,
	}

	return &Graph{
		initial:     initial,
		states:      tm.States,
		adjacency:   tm.Adjacency,
		transitions: tm.Transitions,
	}, nil
}

func (g *Graph) setResetAction(action Action) {
	edge := pathfinder.Edge{From: EntryPointName, To: g.initial.FullName()}
	g.transitions[edge].Action = action
}

// Initial returns the declared initial state.
func (g *Graph) Initial() State {
	return g.initial
}

// State returns the state with the given full name.
func (g *Graph) State(fullName string) (State, bool) {
	s, ok := g.states[fullName]

	return s, ok
}

// Resolve finds a state by full name, or by short name when exactly one
// state has it.
func (g *Graph) Resolve(name string) (State, error) {
	if s, ok := g.states[name]; ok {
		return s, nil
	}

	var matches []State

	for fullName, s := range g.states {
		if strings.HasSuffix(fullName, "."+name) {
			matches = append(matches, s)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrUnknownState, name)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousState, name)
	}
}

// Names returns the full names of every state, entry point included, in
// natural order.
func (g *Graph) Names() []string {
	return g.adjacency.Nodes()
}

// Adjacency returns the graph's adjacency. Callers must not modify it.
func (g *Graph) Adjacency() pathfinder.Graph {
	return g.adjacency
}

// Transition returns the transition for an edge. Edges into the entry point
// have no transition.
func (g *Graph) Transition(from, to string) (*Transition, bool) {
	t, ok := g.transitions[pathfinder.Edge{From: from, To: to}]

	return t, ok
}

// Edges returns every edge in natural order, synthetic edges included.
func (g *Graph) Edges() []pathfinder.Edge {
	return g.adjacency.Edges()
}

// DeclaredEdges returns the edges backed by a declared transition, in
// natural order. Edges touching the entry point are excluded.
func (g *Graph) DeclaredEdges() []pathfinder.Edge {
	var out []pathfinder.Edge

	for edge := range g.transitions {
		if edge.From == EntryPointName || edge.To == EntryPointName {
			continue
		}

		out = append(out, edge)
	}

	pathfinder.SortEdges(out)

	return out
}

// Cost returns the cost of an edge: the declared transition cost, or zero for
// synthetic edges.
func (g *Graph) Cost(edge pathfinder.Edge) float64 {
	if edge.From == EntryPointName || edge.To == EntryPointName {
		return 0
	}

	if t, ok := g.transitions[edge]; ok {
		return t.Cost
	}

	return 0
}

// PathCost sums edge costs along a path.
func (g *Graph) PathCost(path []string) float64 {
	return pathfinder.EdgeCost(g.Cost)(path)
}

// TraversalOrder lists the declared states reachable from the initial state
// in depth-first pre-order, neighbours in natural order. The entry point is
// excluded.
func (g *Graph) TraversalOrder() []string {
	seen := make(pathfinder.Set)

	var out []string

	var visit func(string)

	visit = func(name string) {
		if name == EntryPointName || seen.Contains(name) {
			return
		}

		seen.Add(name)
		out = append(out, name)

		for _, next := range g.adjacency.Neighbors(name) {
			visit(next)
		}
	}

	visit(g.initial.FullName())

	return out
}
