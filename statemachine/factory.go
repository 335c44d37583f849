package statemachine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ActionFactory creates actions from configuration.
// Applications can register custom action builders to extend the framework.
type ActionFactory struct {
	builders map[string]ActionBuilder
}

// ActionBuilder is a function that creates an action from configuration.
// The factory parameter allows reusing custom builders for nested actions.
type ActionBuilder func(factory *ActionFactory, name string, params map[string]any) (Action, error)

// NewActionFactory creates a new action factory with default builders.
func NewActionFactory() *ActionFactory {
	factory := &ActionFactory{
		builders: make(map[string]ActionBuilder),
	}

	factory.Register("noop", noopActionBuilder)
	factory.Register("sequence", sequenceActionBuilder)
	factory.Register("fail", failActionBuilder)

	return factory
}

// Register registers a custom action builder.
func (f *ActionFactory) Register(actionType string, builder ActionBuilder) {
	f.builders[actionType] = builder
}

// Types lists the registered action types.
func (f *ActionFactory) Types() []string {
	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}

// Create creates an action from configuration.
func (f *ActionFactory) Create(config ActionConfig) (Action, error) {
	builder, ok := f.builders[config.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownActionType, config.Type)
	}

	params := config.Parameters
	if params == nil {
		params = map[string]any{}
	}

	return builder(f, config.Name, params)
}

func noopActionBuilder(_ *ActionFactory, _ string, _ map[string]any) (Action, error) {
	return NoopAction(), nil
}

func failActionBuilder(_ *ActionFactory, _ string, params map[string]any) (Action, error) {
	message, _ := params["message"].(string)

	return FailAction(message), nil
}

// sequenceActionBuilder creates a sequence from the nested "actions" list.
func sequenceActionBuilder(factory *ActionFactory, name string, params map[string]any) (Action, error) {
	actionsParam, ok := params["actions"].([]any)
	if !ok {
		return nil, ErrSequenceActionsRequired
	}

	actions := make([]Action, 0, len(actionsParam))

	for actionIdx, actionParam := range actionsParam {
		actionMap, ok := actionParam.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("action %d: %w", actionIdx, ErrInvalidActionFormat)
		}

		actionType, _ := actionMap["type"].(string)
		actionName, _ := actionMap["name"].(string)
		actionParams, _ := actionMap["parameters"].(map[string]any)

		if actionName == "" {
			actionName = fmt.Sprintf("%s[%d]", name, actionIdx)
		}

		action, err := factory.Create(ActionConfig{
			Type:       actionType,
			Name:       actionName,
			Parameters: actionParams,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create action %d: %w", actionIdx, err)
		}

		actions = append(actions, action)
	}

	return SequenceAction(actions...), nil
}

// CompileExpression compiles a boolean expression over an observation.
// Undefined variables evaluate to nil rather than failing.
func CompileExpression(expression string) (*vm.Program, error) {
	program, err := expr.Compile(expression, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidExpression, expression, err)
	}

	return program, nil
}

// EvalExpression runs a compiled boolean expression against env.
func EvalExpression(program *vm.Program, env map[string]any) (bool, error) {
	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
	}

	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression must evaluate to bool (got %T)", ErrInvalidExpression, out)
	}

	return result, nil
}

// CompileVerifier turns a verify expression into a Verifier. The system must
// implement Observer: its observation for the state is the expression's
// environment. An empty expression yields a nil Verifier, which always
// verifies.
func CompileVerifier(state, expression string, metadata map[string]any) (Verifier, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, nil //nolint:nilnil
	}

	program, err := CompileExpression(expression)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, system System) (bool, error) {
		observer, ok := system.(Observer)
		if !ok {
			return false, fmt.Errorf("%w: %T", ErrNotObservable, system)
		}

		env, err := observer.Observe(ctx, state, metadata)
		if err != nil {
			return false, err
		}

		return EvalExpression(program, env)
	}, nil
}

// Assemble builds declared states from a validated configuration and returns
// the initial state. Actions are created through factory; a nil factory
// means NewActionFactory().
func Assemble(config *Config, factory *ActionFactory) (State, error) {
	return assemble(config, factory, nil, nil)
}

// assemble is Assemble with programmatic verifiers keyed by state name and
// actions keyed by (from, to) state names. They take precedence over the
// declared ones.
func assemble(
	config *Config,
	factory *ActionFactory,
	verifiers map[string]Verifier,
	actions map[[2]string]Action,
) (State, error) {
	if factory == nil {
		factory = NewActionFactory()
	}

	if err := config.Validate(); err != nil {
		return nil, WrapDeclarationError(config.Name, err)
	}

	states := make(map[string]*DeclaredState, len(config.States))

	for _, sc := range config.States {
		fullName := config.FullName(sc.Name)

		verify, ok := verifiers[sc.Name]
		if !ok {
			var err error

			verify, err = CompileVerifier(fullName, sc.Verify, sc.Metadata)
			if err != nil {
				return nil, WrapDeclarationError(fullName, err)
			}
		}

		states[sc.Name] = Declare(fullName, verify).WithMetadata(sc.Metadata)
	}

	for _, tc := range config.Transitions {
		var opts []TransitionOption

		action, ok := actions[[2]string{tc.From, tc.To}]
		if !ok && tc.Action != nil {
			var err error

			action, err = factory.Create(*tc.Action)
			if err != nil {
				return nil, WrapDeclarationError(tc.From+"->"+tc.To, err)
			}
		}

		if tc.Cost != nil {
			opts = append(opts, WithCost(*tc.Cost))
		}

		if tc.Name != "" {
			opts = append(opts, WithName(tc.Name))
		}

		states[tc.From].To(states[tc.To], action, opts...)
	}

	return states[config.InitialState], nil
}

// LoadCrawler loads a declaration, assembles it and returns a crawler bound
// to system.
func LoadCrawler(path string, system System, factory *ActionFactory, opts ...Option) (*Crawler, error) {
	config, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	return NewCrawlerFromConfig(config, system, factory, opts...)
}

// NewCrawlerFromConfig assembles config and returns a crawler bound to
// system, named after the declaration and running its reset action.
func NewCrawlerFromConfig(config *Config, system System, factory *ActionFactory, opts ...Option) (*Crawler, error) {
	if factory == nil {
		factory = NewActionFactory()
	}

	initial, err := Assemble(config, factory)
	if err != nil {
		return nil, err
	}

	defaults := []Option{WithCrawlerName(config.Name)}

	if config.Reset != nil {
		reset, err := factory.Create(*config.Reset)
		if err != nil {
			return nil, WrapDeclarationError(config.Name+".reset", err)
		}

		defaults = append(defaults, WithResetAction(reset))
	}

	return NewCrawler(system, initial, append(defaults, opts...)...)
}
