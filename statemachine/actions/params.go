// Package actions provides composite crawl actions: retries, fallbacks,
// waits and parallel fan-out, plus the builders that declare them.
package actions

import (
	"errors"
	"fmt"
	"time"

	"github.com/amp-labs/statecrawler/statemachine"
)

var (
	// ErrParameterNotFound is returned when a required parameter is not found.
	ErrParameterNotFound = errors.New("parameter not found")
	// ErrParameterTypeMismatch is returned when a parameter has an unexpected type.
	ErrParameterTypeMismatch = errors.New("parameter type mismatch")
	// ErrInvalidDurationFormat is returned when a duration parameter has invalid format.
	ErrInvalidDurationFormat = errors.New("invalid duration format")
)

// ParamExtractor reads typed values out of declared action parameters.
type ParamExtractor struct {
	params map[string]any
}

// NewParamExtractor creates a new parameter extractor.
func NewParamExtractor(params map[string]any) *ParamExtractor {
	return &ParamExtractor{params: params}
}

func (p *ParamExtractor) lookup(key string, required bool) (any, bool, error) {
	val, exists := p.params[key]
	if !exists && required {
		return nil, false, fmt.Errorf("required parameter %q: %w", key, ErrParameterNotFound)
	}

	return val, exists, nil
}

// GetInt extracts an integer parameter.
func (p *ParamExtractor) GetInt(key string, required bool, defaultVal int) (int, error) {
	val, exists, err := p.lookup(key, required)
	if err != nil || !exists {
		return defaultVal, err
	}

	// YAML decodes integers as int, JSON as float64.
	switch v := val.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("parameter %q must be an integer, got %T: %w", key, val, ErrParameterTypeMismatch)
	}
}

// GetDuration extracts a duration given as a string ("1m30s") or a number
// of seconds.
func (p *ParamExtractor) GetDuration(key string, required bool, defaultVal time.Duration) (time.Duration, error) {
	val, exists, err := p.lookup(key, required)
	if err != nil || !exists {
		return defaultVal, err
	}

	switch v := val.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("parameter %q: %w: %w", key, ErrInvalidDurationFormat, err)
		}

		return d, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case int:
		return time.Duration(v) * time.Second, nil
	default:
		return 0, fmt.Errorf(
			"parameter %q must be a duration string or number, got %T: %w",
			key, val, ErrParameterTypeMismatch,
		)
	}
}

// GetAction builds the nested action declared under key.
func (p *ParamExtractor) GetAction(
	factory *statemachine.ActionFactory, name, key string,
) (statemachine.Action, error) {
	val, _, err := p.lookup(key, true)
	if err != nil {
		return nil, err
	}

	return nestedAction(factory, name, val)
}

// GetActions builds the list of nested actions declared under key.
func (p *ParamExtractor) GetActions(
	factory *statemachine.ActionFactory, name, key string,
) ([]statemachine.Action, error) {
	val, _, err := p.lookup(key, true)
	if err != nil {
		return nil, err
	}

	list, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("parameter %q must be a list, got %T: %w", key, val, ErrParameterTypeMismatch)
	}

	out := make([]statemachine.Action, 0, len(list))

	for i, item := range list {
		action, err := nestedAction(factory, fmt.Sprintf("%s[%d]", name, i), item)
		if err != nil {
			return nil, fmt.Errorf("parameter %q[%d]: %w", key, i, err)
		}

		out = append(out, action)
	}

	return out, nil
}

func nestedAction(factory *statemachine.ActionFactory, name string, val any) (statemachine.Action, error) {
	m, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: nested action must be an object, got %T", statemachine.ErrInvalidActionFormat, val)
	}

	config := statemachine.ActionConfig{Name: name}
	config.Type, _ = m["type"].(string)
	config.Parameters, _ = m["parameters"].(map[string]any)

	if n, ok := m["name"].(string); ok && n != "" {
		config.Name = n
	}

	if config.Type == "" {
		return nil, fmt.Errorf("%w: action type is required", statemachine.ErrInvalidActionFormat)
	}

	return factory.Create(config)
}
