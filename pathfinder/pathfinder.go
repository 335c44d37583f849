// Package pathfinder implements the graph searches a crawler needs: a filtered
// reachability copy of a state graph, an exhaustive shortest simple path
// search with a pluggable cost function, and the set of nodes cut off by a
// given set of exclusions.
//
// Nodes are identified by name. The shortest path search enumerates every
// simple path, so it is meant for state machines with tens of nodes.
package pathfinder

import (
	"slices"

	"facette.io/natsort"
)

// Set is a set of node names.
type Set map[string]struct{}

// NewSet returns a set holding the given names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}

	return s
}

// Add inserts a name.
func (s Set) Add(name string) {
	s[name] = struct{}{}
}

// Contains reports whether name is in the set. A nil set contains nothing.
func (s Set) Contains(name string) bool {
	_, ok := s[name]

	return ok
}

// Clone returns a copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for n := range s {
		out[n] = struct{}{}
	}

	return out
}

// Union returns a new set with the members of s and other.
func (s Set) Union(other Set) Set {
	out := s.Clone()
	for n := range other {
		out[n] = struct{}{}
	}

	return out
}

// Difference returns the members of s not in other.
func (s Set) Difference(other Set) Set {
	out := make(Set)

	for n := range s {
		if !other.Contains(n) {
			out[n] = struct{}{}
		}
	}

	return out
}

// Sorted returns the members in natural order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}

	natsort.Sort(out)

	return out
}

// Edge is a directed edge between two named nodes.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// EdgeSet is a set of edges.
type EdgeSet map[Edge]struct{}

// NewEdgeSet returns a set holding the given edges.
func NewEdgeSet(edges ...Edge) EdgeSet {
	s := make(EdgeSet, len(edges))
	for _, e := range edges {
		s[e] = struct{}{}
	}

	return s
}

// Add inserts an edge.
func (s EdgeSet) Add(e Edge) {
	s[e] = struct{}{}
}

// Contains reports whether e is in the set.
func (s EdgeSet) Contains(e Edge) bool {
	_, ok := s[e]

	return ok
}

// Clone returns a copy of the set.
func (s EdgeSet) Clone() EdgeSet {
	out := make(EdgeSet, len(s))
	for e := range s {
		out[e] = struct{}{}
	}

	return out
}

// Sorted returns the edges ordered naturally by source, then target.
func (s EdgeSet) Sorted() []Edge {
	out := make([]Edge, 0, len(s))
	for e := range s {
		out = append(out, e)
	}

	SortEdges(out)

	return out
}

// SortEdges orders edges naturally by source, then target.
func SortEdges(edges []Edge) {
	slices.SortFunc(edges, func(a, b Edge) int {
		if c := compareNames(a.From, b.From); c != 0 {
			return c
		}

		return compareNames(a.To, b.To)
	})
}

func compareNames(a, b string) int {
	switch {
	case a == b:
		return 0
	case natsort.Compare(a, b):
		return -1
	default:
		return 1
	}
}

// Graph maps every node to the set of nodes it has an edge to. Every node
// that appears anywhere in the graph is expected to be a key.
type Graph map[string]Set

// Nodes returns every node in natural order.
func (g Graph) Nodes() []string {
	out := make([]string, 0, len(g))
	for n := range g {
		out = append(out, n)
	}

	natsort.Sort(out)

	return out
}

// Neighbors returns the targets of node in natural order.
func (g Graph) Neighbors(node string) []string {
	return g[node].Sorted()
}

// Edges returns every edge in natural order.
func (g Graph) Edges() []Edge {
	var out []Edge

	for from, targets := range g {
		for to := range targets {
			out = append(out, Edge{From: from, To: to})
		}
	}

	SortEdges(out)

	return out
}

// HasEdge reports whether the graph has an edge from -> to.
func (g Graph) HasEdge(from, to string) bool {
	return g[from].Contains(to)
}

// CostFunc prices a path given as a sequence of node names.
type CostFunc func(path []string) float64

// EdgeCost returns a CostFunc summing weight over consecutive node pairs.
func EdgeCost(weight func(Edge) float64) CostFunc {
	return func(path []string) float64 {
		var total float64

		for i := 1; i < len(path); i++ {
			total += weight(Edge{From: path[i-1], To: path[i]})
		}

		return total
	}
}

// PathLength prices a path by its number of edges.
func PathLength(path []string) float64 {
	if len(path) == 0 {
		return 0
	}

	return float64(len(path) - 1)
}

// Reachable returns every node reachable from start, start included. A start
// node missing from the graph yields an empty set.
func Reachable(graph Graph, start string) Set {
	seen := make(Set)
	if _, ok := graph[start]; !ok {
		return seen
	}

	collectReachable(graph, start, seen)

	return seen
}

func collectReachable(graph Graph, node string, seen Set) {
	seen.Add(node)

	for _, next := range graph.Neighbors(node) {
		if !seen.Contains(next) {
			collectReachable(graph, next, seen)
		}
	}
}

// BuildFilteredGraph copies the part of graph reachable from entry without
// passing through an excluded node or an excluded edge. Nodes cut off by the
// exclusions are absent from the result. If entry itself is excluded the
// result is empty.
func BuildFilteredGraph(graph Graph, entry string, excludedNodes Set, excludedEdges EdgeSet) Graph {
	filtered := make(Graph)

	if excludedNodes.Contains(entry) {
		return filtered
	}

	if _, ok := graph[entry]; !ok {
		return filtered
	}

	copyFiltered(graph, entry, excludedNodes, excludedEdges, filtered)

	return filtered
}

func copyFiltered(graph Graph, node string, excludedNodes Set, excludedEdges EdgeSet, acc Graph) {
	targets := make(Set)
	acc[node] = targets

	for _, next := range graph.Neighbors(node) {
		if excludedNodes.Contains(next) || excludedEdges.Contains(Edge{From: node, To: next}) {
			continue
		}

		targets.Add(next)

		if _, done := acc[next]; !done {
			copyFiltered(graph, next, excludedNodes, excludedEdges, acc)
		}
	}
}

// FindShortestPath enumerates every simple path from start to end and returns
// the one with the lowest cost. Among equally cheap paths the one with fewer
// hops wins, then the first one found with neighbours explored in natural
// order. It returns nil when end is
// unreachable or either endpoint is missing from the graph. A start equal to
// end yields the single element path.
func FindShortestPath(graph Graph, start, end string, cost CostFunc) []string {
	if _, ok := graph[start]; !ok {
		return nil
	}

	if start == end {
		return []string{start}
	}

	if cost == nil {
		cost = PathLength
	}

	search := &pathSearch{
		graph:   graph,
		end:     end,
		cost:    cost,
		onPath:  NewSet(start),
		current: []string{start},
	}

	search.walk(start)

	return search.best
}

type pathSearch struct {
	graph    Graph
	end      string
	cost     CostFunc
	onPath   Set
	current  []string
	best     []string
	bestCost float64
}

func (s *pathSearch) walk(node string) {
	for _, next := range s.graph.Neighbors(node) {
		if s.onPath.Contains(next) {
			continue
		}

		s.current = append(s.current, next)

		if next == s.end {
			s.consider()
		} else {
			s.onPath.Add(next)
			s.walk(next)
			delete(s.onPath, next)
		}

		s.current = s.current[:len(s.current)-1]
	}
}

func (s *pathSearch) consider() {
	c := s.cost(s.current)
	if s.best != nil && (c > s.bestCost || c == s.bestCost && len(s.current) >= len(s.best)) {
		return
	}

	s.best = append([]string(nil), s.current...)
	s.bestCost = c
}

// FindAllUnreachableNodes returns the nodes reachable from entry in graph that
// are no longer reachable once the given nodes and edges are excluded. The
// excluded nodes themselves are included when they were reachable.
func FindAllUnreachableNodes(graph Graph, entry string, excludedNodes Set, excludedEdges EdgeSet) Set {
	all := Reachable(graph, entry)
	filtered := BuildFilteredGraph(graph, entry, excludedNodes, excludedEdges)

	out := make(Set)

	for n := range all {
		if _, ok := filtered[n]; !ok {
			out.Add(n)
		}
	}

	return out
}
