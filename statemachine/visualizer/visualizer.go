// Package visualizer renders crawl graphs as Mermaid or Graphviz diagrams,
// marking visited, failing and current states.
package visualizer

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/amp-labs/statecrawler/pathfinder"
	"github.com/amp-labs/statecrawler/statemachine"
	"github.com/awalterschulze/gographviz"
)

// Visualizer errors.
var (
	ErrViewNil   = errors.New("graph view cannot be nil")
	ErrConfigNil = errors.New("config cannot be nil")
)

// status of a state in a rendered view, in increasing precedence.
type status int

const (
	statusNone status = iota
	statusVisited
	statusHighlighted
	statusCurrent
	statusError
)

// classes maps a status to its Mermaid class and Graphviz fill colour.
var classes = map[status]struct{ name, fill, stroke string }{ //nolint:gochecknoglobals
	statusVisited:     {"visited", "#c8e6c9", "#2e7d32"},
	statusHighlighted: {"highlighted", "#fff9c4", "#f57f17"},
	statusCurrent:     {"current", "#e1f5ff", "#01579b"},
	statusError:       {"failed", "#ffcdd2", "#c62828"},
}

type renderer struct {
	view        *statemachine.GraphView
	opts        Options
	visited     pathfinder.Set
	errorStates pathfinder.Set
	errorEdges  pathfinder.EdgeSet
	highlighted pathfinder.Set
	onPath      pathfinder.EdgeSet
}

func newRenderer(view *statemachine.GraphView, opts Options) *renderer {
	r := &renderer{
		view:        view,
		opts:        opts,
		visited:     pathfinder.NewSet(view.VisitedStates...),
		errorStates: pathfinder.NewSet(view.ErrorStates...),
		errorEdges:  pathfinder.NewEdgeSet(view.ErrorTransitions...),
		highlighted: pathfinder.NewSet(opts.HighlightPath...),
		onPath:      pathfinder.NewEdgeSet(),
	}

	for i := 1; i < len(opts.HighlightPath); i++ {
		r.onPath.Add(pathfinder.Edge{From: opts.HighlightPath[i-1], To: opts.HighlightPath[i]})
	}

	return r
}

func (r *renderer) status(name string) status {
	switch {
	case r.errorStates.Contains(name):
		return statusError
	case name == r.view.Current && name != statemachine.EntryPointName:
		return statusCurrent
	case r.highlighted.Contains(name):
		return statusHighlighted
	case r.visited.Contains(name):
		return statusVisited
	default:
		return statusNone
	}
}

func (r *renderer) edges() []statemachine.ViewEdge {
	edges := make([]statemachine.ViewEdge, 0, len(r.view.Edges))

	for _, edge := range r.view.Edges {
		touchesEntry := edge.From == statemachine.EntryPointName || edge.To == statemachine.EntryPointName
		if touchesEntry && (!r.opts.ShowEntryPoint || edge.To == statemachine.EntryPointName) {
			continue
		}

		edges = append(edges, edge)
	}

	return edges
}

func (r *renderer) label(edge statemachine.ViewEdge) string {
	var parts []string

	if r.opts.ShowNames && edge.Name != "" {
		parts = append(parts, edge.Name)
	}

	if r.opts.ShowCosts {
		parts = append(parts, strconv.FormatFloat(edge.Cost, 'g', -1, 64))
	}

	if r.errorEdges.Contains(pathfinder.Edge{From: edge.From, To: edge.To}) {
		parts = append(parts, "failed")
	}

	return strings.Join(parts, " ")
}

func (r *renderer) states() []string {
	return slices.DeleteFunc(slices.Clone(r.view.Nodes), func(name string) bool {
		return name == statemachine.EntryPointName
	})
}

// mermaidID turns a full state name into a Mermaid identifier.
func mermaidID(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// GenerateMermaid renders a view as a Mermaid state diagram.
func GenerateMermaid(view *statemachine.GraphView) (string, error) {
	return GenerateMermaidWithOptions(view, DefaultOptions())
}

// GenerateMermaidWithOptions renders a view as a Mermaid state diagram with
// custom options.
func GenerateMermaidWithOptions(view *statemachine.GraphView, opts Options) (string, error) {
	if view == nil {
		return "", ErrViewNil
	}

	if opts.Direction == "" {
		opts.Direction = "TD"
	}

	r := newRenderer(view, opts)

	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	fmt.Fprintf(&sb, "stateDiagram-v2\n    direction %s\n", opts.Direction)

	for _, name := range r.states() {
		fmt.Fprintf(&sb, "    state \"%s\" as %s\n", statemachine.ShortName(name), mermaidID(name))
	}

	for _, edge := range r.edges() {
		from := mermaidID(edge.From)
		if edge.From == statemachine.EntryPointName {
			from = "[*]"
		}

		label := r.label(edge)
		if label != "" {
			label = ": " + label
		}

		fmt.Fprintf(&sb, "    %s --> %s%s\n", from, mermaidID(edge.To), label)
	}

	used := make(map[status]bool)

	for _, name := range r.states() {
		st := r.status(name)
		if st == statusNone {
			continue
		}

		used[st] = true
		fmt.Fprintf(&sb, "    class %s %s\n", mermaidID(name), classes[st].name)
	}

	if len(used) > 0 {
		sb.WriteString("\n")

		for _, st := range []status{statusVisited, statusHighlighted, statusCurrent, statusError} {
			if used[st] {
				c := classes[st]
				fmt.Fprintf(&sb, "    classDef %s fill:%s,stroke:%s,stroke-width:2px\n", c.name, c.fill, c.stroke)
			}
		}
	}

	sb.WriteString("```\n")

	return sb.String(), nil
}

// GenerateDOT renders a view as a Graphviz digraph.
func GenerateDOT(view *statemachine.GraphView) (string, error) {
	return GenerateDOTWithOptions(view, DefaultOptions())
}

// GenerateDOTWithOptions renders a view as a Graphviz digraph with custom
// options.
func GenerateDOTWithOptions(view *statemachine.GraphView, opts Options) (string, error) {
	if view == nil {
		return "", ErrViewNil
	}

	r := newRenderer(view, opts)

	graph := gographviz.NewGraph()
	name := mermaidID(view.Name)

	if err := graph.SetName(name); err != nil {
		return "", err
	}

	if err := graph.SetDir(true); err != nil {
		return "", err
	}

	rankdir := "TB"
	if opts.Direction == "LR" {
		rankdir = "LR"
	}

	if err := graph.AddAttr(name, "rankdir", rankdir); err != nil {
		return "", err
	}

	nodes := r.states()
	if opts.ShowEntryPoint {
		nodes = append([]string{statemachine.EntryPointName}, nodes...)
	}

	for _, node := range nodes {
		attrs := map[string]string{"label": strconv.Quote(statemachine.ShortName(node))}

		if node == statemachine.EntryPointName {
			attrs["shape"] = "point"
			delete(attrs, "label")
		} else if st := r.status(node); st != statusNone {
			attrs["style"] = "filled"
			attrs["fillcolor"] = strconv.Quote(classes[st].fill)
			attrs["color"] = strconv.Quote(classes[st].stroke)
		}

		if err := graph.AddNode(name, strconv.Quote(node), attrs); err != nil {
			return "", err
		}
	}

	for _, edge := range r.edges() {
		attrs := map[string]string{}

		if label := r.label(edge); label != "" {
			attrs["label"] = strconv.Quote(label)
		}

		e := pathfinder.Edge{From: edge.From, To: edge.To}

		switch {
		case r.errorEdges.Contains(e):
			attrs["color"] = strconv.Quote(classes[statusError].stroke)
			attrs["style"] = "dashed"
		case r.onPath.Contains(e):
			attrs["color"] = strconv.Quote(classes[statusHighlighted].stroke)
			attrs["penwidth"] = "2"
		}

		if err := graph.AddEdge(strconv.Quote(edge.From), strconv.Quote(edge.To), true, attrs); err != nil {
			return "", err
		}
	}

	return graph.String(), nil
}

// ViewFromConfig assembles a declaration into a graph and returns its view.
// Only the built-in action types are known.
func ViewFromConfig(config *statemachine.Config) (*statemachine.GraphView, error) {
	return ViewFromConfigWithFactory(config, nil)
}

// ViewFromConfigWithFactory is ViewFromConfig for declarations using the
// action types registered on factory.
func ViewFromConfigWithFactory(
	config *statemachine.Config,
	factory *statemachine.ActionFactory,
) (*statemachine.GraphView, error) {
	if config == nil {
		return nil, ErrConfigNil
	}

	initial, err := statemachine.Assemble(config, factory)
	if err != nil {
		return nil, err
	}

	graph, err := statemachine.NewGraph(initial)
	if err != nil {
		return nil, err
	}

	view := graph.View()
	view.Name = config.Name

	return view, nil
}

// GenerateMermaidFromFile loads a declaration and renders it as Mermaid.
func GenerateMermaidFromFile(path string) (string, error) {
	config, err := statemachine.LoadConfig(path)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	view, err := ViewFromConfig(config)
	if err != nil {
		return "", err
	}

	return GenerateMermaid(view)
}
