package pathfinder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const entry = "EntryPoint"

// chain returns EntryPoint -> s1 -> s2 -> s3 with a shortcut s1 -> s3 and the
// synthetic edges back to EntryPoint.
func chain() Graph {
	return Graph{
		entry: NewSet("s1"),
		"s1":  NewSet("s2", "s3", entry),
		"s2":  NewSet("s3", entry),
		"s3":  NewSet(entry),
	}
}

func unitCost(e Edge) float64 {
	if e.From == entry || e.To == entry {
		return 0
	}

	return 1
}

func TestFindShortestPathPrefersShortcut(t *testing.T) {
	t.Parallel()

	path := FindShortestPath(chain(), entry, "s3", EdgeCost(unitCost))
	assert.Equal(t, []string{entry, "s1", "s3"}, path)
}

func TestFindShortestPathHonoursCosts(t *testing.T) {
	t.Parallel()

	weights := map[Edge]float64{
		{From: "s1", To: "s2"}: 1,
		{From: "s2", To: "s3"}: 1,
		{From: "s1", To: "s3"}: 5,
	}

	cost := EdgeCost(func(e Edge) float64 { return weights[e] })

	path := FindShortestPath(chain(), entry, "s3", cost)
	assert.Equal(t, []string{entry, "s1", "s2", "s3"}, path)
}

func TestFindShortestPathEdgeCases(t *testing.T) {
	t.Parallel()

	g := chain()

	tests := []struct {
		name  string
		start string
		end   string
		want  []string
	}{
		{"same node", "s2", "s2", []string{"s2"}},
		{"missing start", "nope", "s2", nil},
		{"missing end", entry, "nope", nil},
		{"through reset edge", "s3", "s2", []string{"s3", entry, "s1", "s2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, FindShortestPath(g, tt.start, tt.end, EdgeCost(unitCost)))
		})
	}
}

func TestFindShortestPathDefaultsToLength(t *testing.T) {
	t.Parallel()

	path := FindShortestPath(chain(), entry, "s3", nil)
	assert.Equal(t, []string{entry, "s1", "s3"}, path)
}

func TestFindShortestPathIsMinimal(t *testing.T) {
	t.Parallel()

	// Diamond with a long cheap arm and a short expensive arm.
	g := Graph{
		"a": NewSet("b", "c"),
		"b": NewSet("d"),
		"c": NewSet("e"),
		"e": NewSet("d"),
		"d": NewSet(),
	}

	weights := map[Edge]float64{
		{From: "a", To: "b"}: 3,
		{From: "b", To: "d"}: 3,
		{From: "a", To: "c"}: 1,
		{From: "c", To: "e"}: 1,
		{From: "e", To: "d"}: 1,
	}
	cost := EdgeCost(func(e Edge) float64 { return weights[e] })

	path := FindShortestPath(g, "a", "d", cost)
	require.Equal(t, []string{"a", "c", "e", "d"}, path)

	for i := 1; i < len(path); i++ {
		assert.True(t, g.HasEdge(path[i-1], path[i]))
	}

	assert.InDelta(t, 3.0, cost(path), 0.0001)
}

func TestFindShortestPathPrefersFewerHopsOnTie(t *testing.T) {
	t.Parallel()

	// From s2, s2 -> s3 and s2 -> EntryPoint -> s1 -> s3 both cost 1. The
	// reset route is explored first.
	path := FindShortestPath(chain(), "s2", "s3", EdgeCost(unitCost))
	assert.Equal(t, []string{"s2", "s3"}, path)
}

func TestFindShortestPathRoundTrip(t *testing.T) {
	t.Parallel()

	g := chain()
	cost := EdgeCost(unitCost)

	there := FindShortestPath(g, "s1", "s3", cost)
	back := FindShortestPath(g, "s3", "s1", cost)

	require.NotNil(t, there)
	require.NotNil(t, back)

	round := append(append([]string{}, there...), back[1:]...)
	assert.Equal(t, "s1", round[0])
	assert.Equal(t, "s1", round[len(round)-1])
}

func TestBuildFilteredGraph(t *testing.T) {
	t.Parallel()

	g := chain()

	t.Run("no exclusions copies the reachable graph", func(t *testing.T) {
		t.Parallel()

		filtered := BuildFilteredGraph(g, entry, nil, nil)
		assert.Equal(t, g, filtered)
	})

	t.Run("excluding a node removes nodes only reachable through it", func(t *testing.T) {
		t.Parallel()

		filtered := BuildFilteredGraph(g, entry, NewSet("s1"), nil)
		assert.Equal(t, Graph{entry: NewSet()}, filtered)
	})

	t.Run("excluding a node keeps nodes with another route", func(t *testing.T) {
		t.Parallel()

		filtered := BuildFilteredGraph(g, entry, NewSet("s2"), nil)
		assert.ElementsMatch(t, []string{entry, "s1", "s3"}, filtered.Nodes())
		assert.False(t, filtered.HasEdge("s1", "s2"))
	})

	t.Run("excluding edges cuts routes", func(t *testing.T) {
		t.Parallel()

		excluded := NewEdgeSet(Edge{From: "s1", To: "s3"}, Edge{From: "s2", To: "s3"})
		filtered := BuildFilteredGraph(g, entry, nil, excluded)

		assert.ElementsMatch(t, []string{entry, "s1", "s2"}, filtered.Nodes())
	})

	t.Run("excluded entry yields empty graph", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, BuildFilteredGraph(g, entry, NewSet(entry), nil))
	})

	t.Run("does not mutate the source", func(t *testing.T) {
		t.Parallel()

		src := chain()
		_ = BuildFilteredGraph(src, entry, NewSet("s2"), nil)

		assert.Equal(t, chain(), src)
	})
}

func TestFindAllUnreachableNodes(t *testing.T) {
	t.Parallel()

	g := chain()

	tests := []struct {
		name  string
		nodes Set
		edges EdgeSet
		want  []string
	}{
		{"nothing excluded", nil, nil, []string{}},
		{"leaf excluded", NewSet("s3"), nil, []string{"s3"}},
		{"middle excluded with alternative", NewSet("s2"), nil, []string{"s2"}},
		{"root excluded", NewSet("s1"), nil, []string{"s1", "s2", "s3"}},
		{
			"edges excluded",
			nil,
			NewEdgeSet(Edge{From: "s1", To: "s2"}),
			[]string{"s2"},
		},
		{
			"unknown excluded node is ignored",
			NewSet("ghost"),
			nil,
			[]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := FindAllUnreachableNodes(g, entry, tt.nodes, tt.edges)
			assert.Equal(t, tt.want, got.Sorted())
		})
	}
}

func TestReachableTerminatesOnCycles(t *testing.T) {
	t.Parallel()

	g := Graph{
		"a": NewSet("b"),
		"b": NewSet("c"),
		"c": NewSet("a"),
	}

	assert.Equal(t, []string{"a", "b", "c"}, Reachable(g, "a").Sorted())
	assert.Empty(t, Reachable(g, "missing"))
}

func TestNaturalOrdering(t *testing.T) {
	t.Parallel()

	s := NewSet("state10", "state2", "state1")
	assert.Equal(t, []string{"state1", "state2", "state10"}, s.Sorted())

	edges := NewEdgeSet(
		Edge{From: "s10", To: "a"},
		Edge{From: "s2", To: "b"},
		Edge{From: "s2", To: "a"},
	)
	assert.Equal(t, []Edge{
		{From: "s2", To: "a"},
		{From: "s2", To: "b"},
		{From: "s10", To: "a"},
	}, edges.Sorted())
}
