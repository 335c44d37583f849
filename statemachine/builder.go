package statemachine

// Builder provides a fluent API for declaring a state graph in code. States
// and transitions may mix declarative parts (verify expressions, action
// configs) with Go verifiers and actions.
type Builder struct {
	config    *Config
	factory   *ActionFactory
	verifiers map[string]Verifier
	actions   map[[2]string]Action
}

// NewBuilder creates a new builder for a graph named name.
func NewBuilder(name string) *Builder {
	return &Builder{
		config: &Config{
			Name:        name,
			States:      []StateConfig{},
			Transitions: []TransitionConfig{},
		},
		factory:   NewActionFactory(),
		verifiers: make(map[string]Verifier),
		actions:   make(map[[2]string]Action),
	}
}

// WithInitialState sets the initial state.
func (b *Builder) WithInitialState(state string) *Builder {
	b.config.InitialState = state

	return b
}

// AddState adds a state configuration.
func (b *Builder) AddState(config StateConfig) *Builder {
	b.config.States = append(b.config.States, config)

	return b
}

// AddTransition adds a transition configuration.
func (b *Builder) AddTransition(config TransitionConfig) *Builder {
	b.config.Transitions = append(b.config.Transitions, config)

	return b
}

// State adds a state checked by a Go verifier. A nil verifier always
// verifies.
func (b *Builder) State(name string, verify Verifier) *Builder {
	b.verifiers[name] = verify

	return b.AddState(StateConfig{Name: name})
}

// Transition adds a transition performed by a Go action.
func (b *Builder) Transition(from, to string, action Action, opts ...TransitionOption) *Builder {
	b.actions[[2]string{from, to}] = action

	declared := &Transition{Cost: DefaultCost}
	for _, opt := range opts {
		opt(declared)
	}

	return b.AddTransition(TransitionConfig{
		From: from,
		To:   to,
		Name: declared.Name,
		Cost: &declared.Cost,
	})
}

// RegisterActionBuilder registers a custom action builder.
func (b *Builder) RegisterActionBuilder(actionType string, builder ActionBuilder) *Builder {
	b.factory.Register(actionType, builder)

	return b
}

// Config returns the declarative part of the graph.
func (b *Builder) Config() *Config {
	return b.config
}

// Build validates the declaration and returns its initial state.
func (b *Builder) Build() (State, error) {
	return assemble(b.config, b.factory, b.verifiers, b.actions)
}
