package statemachine

import (
	"testing"

	"github.com/amp-labs/statecrawler/pathfinder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTransitionMap(t *testing.T) {
	t.Parallel()

	s1, _, _ := chain(true, nil)

	tm, err := BuildTransitionMap(s1)
	require.NoError(t, err)

	assert.Equal(t, pathfinder.Graph{
		"test.S1": pathfinder.NewSet("test.S2", "test.S3"),
		"test.S2": pathfinder.NewSet("test.S3"),
		"test.S3": pathfinder.NewSet(),
	}, tm.Adjacency)
	assert.Len(t, tm.States, 3)
	assert.Len(t, tm.Transitions, 3)
}

func TestBuildTransitionMapCycle(t *testing.T) {
	t.Parallel()

	a := Declare("loop.A", nil)
	b := Declare("loop.B", nil)
	a.To(b, nil)
	b.To(a, nil)
	b.To(b, nil)

	tm, err := BuildTransitionMap(a)
	require.NoError(t, err)

	assert.Equal(t, pathfinder.Graph{
		"loop.A": pathfinder.NewSet("loop.B"),
		"loop.B": pathfinder.NewSet("loop.A", "loop.B"),
	}, tm.Adjacency)
}

func TestBuildTransitionMapFreshAccumulator(t *testing.T) {
	t.Parallel()

	first, _, _ := chain(false, nil)
	other := Declare("other.X", nil)

	tm1, err := BuildTransitionMap(first)
	require.NoError(t, err)

	tm2, err := BuildTransitionMap(other)
	require.NoError(t, err)

	assert.Len(t, tm1.Adjacency, 3)
	assert.Equal(t, pathfinder.Graph{"other.X": pathfinder.NewSet()}, tm2.Adjacency)
}

func TestBuildTransitionMapDeclarationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		initial func() State
		want    error
	}{
		{
			name:    "nil state",
			initial: func() State { return nil },
			want:    ErrStateRequired,
		},
		{
			name:    "typed nil state",
			initial: func() State { return (*DeclaredState)(nil) },
			want:    ErrStateRequired,
		},
		{
			name: "typed nil target",
			initial: func() State {
				var target *DeclaredState

				return Declare("bad.A", nil).To(target, nil)
			},
			want: ErrTransitionTargetRequired,
		},
		{
			name:    "empty name",
			initial: func() State { return Declare("", nil) },
			want:    ErrStateNameRequired,
		},
		{
			name:    "reserved name",
			initial: func() State { return Declare(EntryPointName, nil) },
			want:    ErrReservedStateName,
		},
		{
			name: "nil target",
			initial: func() State {
				return Declare("bad.A", nil).To(nil, nil)
			},
			want: ErrTransitionTargetRequired,
		},
		{
			name: "negative cost",
			initial: func() State {
				return Declare("bad.A", nil).To(Declare("bad.B", nil), nil, WithCost(-1))
			},
			want: ErrNegativeCost,
		},
		{
			name: "reserved name downstream",
			initial: func() State {
				return Declare("bad.A", nil).To(Declare(EntryPointName, nil), nil)
			},
			want: ErrReservedStateName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := BuildTransitionMap(tt.initial())
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, ErrInvalidDeclaration)
		})
	}
}

func TestBuildTransitionMapSourceMismatch(t *testing.T) {
	t.Parallel()

	a := Declare("bad.A", nil)
	b := Declare("bad.B", nil)
	c := Declare("bad.C", nil)

	a.To(b, nil)

	// Re-list a transition declared on b as if it belonged to a.
	b.To(c, nil)
	stolen := b.Transitions()[0]

	mismatched := &mismatchState{DeclaredState: a, extra: stolen}

	_, err := BuildTransitionMap(mismatched)
	require.ErrorIs(t, err, ErrTransitionSourceMismatch)
}

type mismatchState struct {
	*DeclaredState

	extra *Transition
}

func (m *mismatchState) Transitions() []*Transition {
	return append(m.DeclaredState.Transitions(), m.extra)
}

func TestNewGraphAddsEntryPoint(t *testing.T) {
	t.Parallel()

	s1, _, _ := chain(false, nil)

	graph, err := NewGraph(s1)
	require.NoError(t, err)

	adjacency := graph.Adjacency()
	assert.Equal(t, pathfinder.NewSet("test.S1"), adjacency[EntryPointName])

	for _, name := range []string{"test.S1", "test.S2", "test.S3"} {
		assert.True(t, adjacency.HasEdge(name, EntryPointName), "%s has no reset edge", name)
	}

	reset, ok := graph.Transition(EntryPointName, "test.S1")
	require.True(t, ok)
	assert.Nil(t, reset.Action)
	assert.InDelta(t, 0.0, graph.Cost(reset.Edge()), 0)

	_, ok = graph.Transition("test.S1", EntryPointName)
	assert.False(t, ok)

	state, ok := graph.State(EntryPointName)
	require.True(t, ok)
	assert.True(t, IsEntryPoint(state))
}

func TestGraphCosts(t *testing.T) {
	t.Parallel()

	a := Declare("cost.A", nil)
	b := Declare("cost.B", nil)
	c := Declare("cost.C", nil)
	a.To(b, nil, WithCost(5))
	a.To(c, nil)
	c.To(b, nil, WithCost(0.5))

	graph, err := NewGraph(a)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, graph.Cost(pathfinder.Edge{From: "cost.A", To: "cost.B"}), 0)
	assert.InDelta(t, DefaultCost, graph.Cost(pathfinder.Edge{From: "cost.A", To: "cost.C"}), 0)
	assert.InDelta(t, 0.0, graph.Cost(pathfinder.Edge{From: "cost.B", To: EntryPointName}), 0)
	assert.InDelta(t, 1.5, graph.PathCost([]string{EntryPointName, "cost.A", "cost.C", "cost.B"}), 0)

	path := pathfinder.FindShortestPath(graph.Adjacency(), EntryPointName, "cost.B", graph.PathCost)
	assert.Equal(t, []string{EntryPointName, "cost.A", "cost.C", "cost.B"}, path)
}

func TestGraphResolve(t *testing.T) {
	t.Parallel()

	a := Declare("one.Start", nil)
	b := Declare("two.Start", nil)
	c := Declare("two.Done", nil)
	a.To(b, nil)
	b.To(c, nil)

	graph, err := NewGraph(a)
	require.NoError(t, err)

	state, err := graph.Resolve("two.Done")
	require.NoError(t, err)
	assert.Equal(t, "two.Done", state.FullName())

	state, err = graph.Resolve("Done")
	require.NoError(t, err)
	assert.Equal(t, "two.Done", state.FullName())

	_, err = graph.Resolve("Start")
	require.ErrorIs(t, err, ErrAmbiguousState)

	_, err = graph.Resolve("Missing")
	require.ErrorIs(t, err, ErrUnknownState)
}

func TestGraphTraversalOrder(t *testing.T) {
	t.Parallel()

	root := Declare("order.Root", nil)
	a := Declare("order.A", nil)
	b := Declare("order.B", nil)
	b2 := Declare("order.B2", nil)
	b10 := Declare("order.B10", nil)

	root.To(b, nil)
	root.To(a, nil)
	a.To(b10, nil)
	a.To(b2, nil)
	b.To(root, nil)

	graph, err := NewGraph(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"order.Root", "order.A", "order.B2", "order.B10", "order.B"}, graph.TraversalOrder())
}

func TestGraphDeclaredEdges(t *testing.T) {
	t.Parallel()

	s1, _, _ := chain(true, nil)

	graph, err := NewGraph(s1)
	require.NoError(t, err)

	assert.Equal(t, []pathfinder.Edge{
		{From: "test.S1", To: "test.S2"},
		{From: "test.S1", To: "test.S3"},
		{From: "test.S2", To: "test.S3"},
	}, graph.DeclaredEdges())
}

func TestDeclaredStateRedeclaresTarget(t *testing.T) {
	t.Parallel()

	a := Declare("redo.A", nil)
	b := Declare("redo.B", nil)

	a.To(b, nil, WithCost(3))
	a.To(b, nil, WithName("again"))

	transitions := a.Transitions()
	require.Len(t, transitions, 1)
	assert.Equal(t, "again", transitions[0].Name)
	assert.InDelta(t, DefaultCost, transitions[0].Cost, 0)
}
