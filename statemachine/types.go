package statemachine

import "context"

// System is the live system under test that a crawler drives. Actions and
// verifiers receive it as-is and assert it to whatever client they need.
type System any

// State is a node of the crawl graph: one discrete configuration of the
// system under test.
type State interface {
	// FullName uniquely identifies the state within a graph.
	FullName() string
	// Verify inspects the system and reports whether it is in this state.
	// It must not change the system.
	Verify(ctx context.Context, system System) (bool, error)
	// Transitions lists the outgoing transitions declared on this state.
	Transitions() []*Transition
}

// Action performs the real-world operation behind a transition.
type Action func(ctx context.Context, system System) error

// Verifier checks whether the system is in a given state.
type Verifier func(ctx context.Context, system System) (bool, error)

// Observer is implemented by systems that expose a snapshot for verify
// expressions to be evaluated against. The metadata is the state's declared
// metadata, so a system can decide how to observe each state.
type Observer interface {
	Observe(ctx context.Context, state string, metadata map[string]any) (map[string]any, error)
}
