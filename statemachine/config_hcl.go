package statemachine

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclConfigFile is the top-level structure of an HCL declaration:
//
//	name          = "checkout"
//	initial_state = "cart"
//
//	reset "http" {
//	  method = "POST"
//	  path   = "/reset"
//	}
//
//	state "cart" {
//	  verify   = "status == 200"
//	  metadata = { path = "/cart" }
//	}
//
//	transition "cart" "paid" {
//	  cost = 2
//	  action "http" {
//	    method = "POST"
//	    path   = "/pay"
//	  }
//	}
type hclConfigFile struct {
	Name         string           `hcl:"name"`
	InitialState string           `hcl:"initial_state"`
	Reset        *hclAction       `hcl:"reset,block"`
	States       []*hclState      `hcl:"state,block"`
	Transitions  []*hclTransition `hcl:"transition,block"`
}

type hclState struct {
	Name     string         `hcl:"name,label"`
	Verify   string         `hcl:"verify,optional"`
	Metadata hcl.Expression `hcl:"metadata,optional"`
}

type hclTransition struct {
	From   string     `hcl:"from,label"`
	To     string     `hcl:"to,label"`
	Name   string     `hcl:"name,optional"`
	Cost   *float64   `hcl:"cost,optional"`
	Action *hclAction `hcl:"action,block"`
}

// hclAction keeps its parameters as a raw body: their names depend on the
// action type.
type hclAction struct {
	Type string   `hcl:"type,label"`
	Name string   `hcl:"name,optional"`
	Body hcl.Body `hcl:",remain"`
}

// parseHCL decodes an HCL declaration. Expressions may read environment
// variables through the env object, e.g. env.BASE_PATH.
func parseHCL(data []byte) (*Config, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, "declaration.hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %w", diags)
	}

	evalCtx := hclEvalContext()

	var parsed hclConfigFile
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %w", diags)
	}

	config := &Config{
		Name:         parsed.Name,
		InitialState: parsed.InitialState,
	}

	if parsed.Reset != nil {
		reset, err := parsed.Reset.config(evalCtx)
		if err != nil {
			return nil, fmt.Errorf("reset: %w", err)
		}

		config.Reset = reset
	}

	for _, state := range parsed.States {
		metadata, err := evalMap(state.Metadata, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("state %s metadata: %w", state.Name, err)
		}

		config.States = append(config.States, StateConfig{
			Name:     state.Name,
			Verify:   state.Verify,
			Metadata: metadata,
		})
	}

	for _, transition := range parsed.Transitions {
		tc := TransitionConfig{
			From: transition.From,
			To:   transition.To,
			Name: transition.Name,
			Cost: transition.Cost,
		}

		if transition.Action != nil {
			action, err := transition.Action.config(evalCtx)
			if err != nil {
				return nil, fmt.Errorf("transition %s -> %s action: %w", transition.From, transition.To, err)
			}

			tc.Action = action
		}

		config.Transitions = append(config.Transitions, tc)
	}

	return config, nil
}

func (a *hclAction) config(evalCtx *hcl.EvalContext) (*ActionConfig, error) {
	params, err := evalAttributes(a.Body, evalCtx)
	if err != nil {
		return nil, err
	}

	return &ActionConfig{Type: a.Type, Name: a.Name, Parameters: params}, nil
}

func hclEvalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok && hclIdentifier(key) {
			env[key] = cty.StringVal(value)
		}
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
	}
}

func hclIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r == '-' || r >= '0' && r <= '9'):
		default:
			return false
		}
	}

	return true
}

func evalAttributes(body hcl.Body, evalCtx *hcl.EvalContext) (map[string]any, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	out := make(map[string]any, len(attrs))

	for name, attr := range attrs {
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, diags
		}

		converted, err := ctyToGo(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}

		out[name] = converted
	}

	return out, nil
}

func evalMap(expr hcl.Expression, evalCtx *hcl.EvalContext) (map[string]any, error) {
	if expr == nil {
		return nil, nil //nolint:nilnil
	}

	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}

	converted, err := ctyToGo(val)
	if err != nil {
		return nil, err
	}

	if converted == nil {
		return nil, nil //nolint:nilnil
	}

	out, ok := converted.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected an object, got %s", ErrInvalidDeclaration, val.Type().FriendlyName())
	}

	return out, nil
}

// ctyToGo converts a cty value to plain Go values: strings, float64, bool,
// []any and map[string]any.
func ctyToGo(val cty.Value) (any, error) {
	if val.IsNull() || !val.IsKnown() {
		return nil, nil //nolint:nilnil
	}

	ty := val.Type()

	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Number:
		f, _ := val.AsBigFloat().Float64()

		return f, nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)

		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()

			converted, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}

			out[k.AsString()] = converted
		}

		return out, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())

		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()

			converted, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}

			out = append(out, converted)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported value type %s", ErrInvalidDeclaration, ty.FriendlyName())
	}
}
