package statemachine

import (
	"slices"

	"github.com/amp-labs/statecrawler/pathfinder"
)

// GraphView is a serializable snapshot of a crawl graph and the crawler's
// session state, used by reports and renderers.
type GraphView struct {
	Name               string            `json:"name"`
	RunID              string            `json:"runId,omitempty"`
	Initial            string            `json:"initial"`
	Current            string            `json:"current"`
	Nodes              []string          `json:"nodes"`
	Edges              []ViewEdge        `json:"edges"`
	VisitedStates      []string          `json:"visitedStates"`
	VisitedTransitions []pathfinder.Edge `json:"visitedTransitions"`
	ErrorStates        []string          `json:"errorStates"`
	ErrorTransitions   []pathfinder.Edge `json:"errorTransitions"`
	History            []string          `json:"history"`
}

// ViewEdge is an edge of a GraphView.
type ViewEdge struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Name string  `json:"name,omitempty"`
	Cost float64 `json:"cost"`
}

// Passed reports whether no state is known to fail.
func (v *GraphView) Passed() bool {
	return len(v.ErrorStates) == 0
}

// View returns a snapshot of the graph with the crawler's session state.
func (c *Crawler) View() *GraphView {
	view := c.graph.View()

	view.Name = c.name
	view.RunID = c.runID
	view.Current = c.current.FullName()
	view.VisitedStates = c.visitedStates.Sorted()
	view.VisitedTransitions = c.visitedTransitions.Sorted()
	view.ErrorStates = c.errorStates.Sorted()
	view.ErrorTransitions = c.errorTransitions.Sorted()
	view.History = slices.Clone(c.history)

	return view
}

// View returns a snapshot of the graph alone, positioned at the entry point.
func (g *Graph) View() *GraphView {
	edges := g.Edges()
	viewEdges := make([]ViewEdge, 0, len(edges))

	for _, edge := range edges {
		ve := ViewEdge{From: edge.From, To: edge.To, Cost: g.Cost(edge)}
		if t, ok := g.transitions[edge]; ok {
			ve.Name = t.Name
		}

		viewEdges = append(viewEdges, ve)
	}

	return &GraphView{
		Name:               ShortName(g.initial.FullName()),
		Initial:            g.initial.FullName(),
		Current:            EntryPointName,
		Nodes:              g.Names(),
		Edges:              viewEdges,
		VisitedStates:      []string{},
		VisitedTransitions: []pathfinder.Edge{},
		ErrorStates:        []string{},
		ErrorTransitions:   []pathfinder.Edge{},
		History:            []string{},
	}
}
