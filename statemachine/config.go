package statemachine

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Declaration formats understood by LoadConfigFromBytes.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatHCL  = "hcl"
	FormatDOT  = "dot"
)

// ConfigLoader is an interface for loading declarations by name.
// Applications can implement this to provide embedded or custom loading.
type ConfigLoader interface {
	LoadByName(name string) (data []byte, format string, err error)
	ListAvailable() []string
}

var (
	// defaultConfigLoader is the global config loader used by LoadConfig.
	// Applications can set this to provide embedded declarations.
	defaultConfigLoader ConfigLoader //nolint:gochecknoglobals
)

// SetConfigLoader sets the default config loader for name-based loading.
func SetConfigLoader(loader ConfigLoader) {
	defaultConfigLoader = loader
}

// Config declares a state graph. Reset is the action run on the entry
// point's edge to the initial state, which brings the system back to its
// starting configuration.
type Config struct {
	Name         string             `json:"name"            yaml:"name"`
	InitialState string             `json:"initialState"    yaml:"initialState"`
	Reset        *ActionConfig      `json:"reset,omitempty" yaml:"reset,omitempty"`
	States       []StateConfig      `json:"states"          yaml:"states"`
	Transitions  []TransitionConfig `json:"transitions"     yaml:"transitions"`
}

// StateConfig declares a state. Verify is an expression evaluated against the
// system's observation; an empty expression always verifies.
type StateConfig struct {
	Name     string         `json:"name"               yaml:"name"`
	Verify   string         `json:"verify,omitempty"   yaml:"verify,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ActionConfig declares the action behind a transition. Type selects a
// builder registered on the ActionFactory.
type ActionConfig struct {
	Type       string         `json:"type"                 yaml:"type"`
	Name       string         `json:"name,omitempty"       yaml:"name,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// TransitionConfig declares a transition. A nil cost means DefaultCost and a
// nil action means no action.
type TransitionConfig struct {
	From   string        `json:"from"             yaml:"from"`
	To     string        `json:"to"               yaml:"to"`
	Name   string        `json:"name,omitempty"   yaml:"name,omitempty"`
	Cost   *float64      `json:"cost,omitempty"   yaml:"cost,omitempty"`
	Action *ActionConfig `json:"action,omitempty" yaml:"action,omitempty"`
}

// FormatOf returns the declaration format implied by a file extension.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".hcl":
		return FormatHCL, nil
	case ".dot", ".gv":
		return FormatDOT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownConfigFormat, path)
	}
}

// LoadConfig loads a declaration by path or name.
// Supports two modes:
//   - Path mode: a file path (containing a path separator or a known
//     extension) is read from the filesystem, its format taken from the
//     extension.
//   - Name mode: a bare name is loaded via the registered ConfigLoader.
func LoadConfig(pathOrName string) (*Config, error) {
	format, formatErr := FormatOf(pathOrName)

	isPath := formatErr == nil || strings.ContainsAny(pathOrName, `/\`)
	if isPath {
		if formatErr != nil {
			return nil, formatErr
		}

		data, err := os.ReadFile(pathOrName) //nolint:gosec // Intentional path-based loading
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", pathOrName, err)
		}

		return LoadConfigFromBytes(data, format)
	}

	if defaultConfigLoader == nil {
		return nil, fmt.Errorf("no config loader registered; use SetConfigLoader() or provide a file path") //nolint:err113
	}

	data, format, err := defaultConfigLoader.LoadByName(pathOrName)
	if err != nil {
		available := defaultConfigLoader.ListAvailable()

		return nil, fmt.Errorf("failed to load config %q (available: %v): %w", pathOrName, available, err)
	}

	return LoadConfigFromBytes(data, format)
}

// LoadConfigFromFS loads a declaration from an embedded filesystem.
func LoadConfigFromFS(fsys fs.FS, path string) (*Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from FS: %w", err)
	}

	return LoadConfigFromBytes(data, format)
}

// LoadConfigFromBytes parses and validates a declaration in the given format.
func LoadConfigFromBytes(data []byte, format string) (*Config, error) {
	var (
		config *Config
		err    error
	)

	switch format {
	case FormatYAML:
		config = &Config{}
		if err = yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatJSON:
		config = &Config{}
		if err = json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case FormatHCL:
		if config, err = parseHCL(data); err != nil {
			return nil, err
		}
	case FormatDOT:
		if config, err = parseDOT(data); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownConfigFormat, format)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Name == "" {
		return ErrConfigNameRequired
	}

	if c.InitialState == "" {
		return ErrInitialStateRequired
	}

	if len(c.States) == 0 {
		return ErrNoStates
	}

	if !c.stateExists(c.InitialState) {
		return fmt.Errorf("%w: %s", ErrInitialStateNotFound, c.InitialState)
	}

	if c.Reset != nil && c.Reset.Type == "" {
		return fmt.Errorf("reset: %w: action type is required", ErrInvalidActionFormat)
	}

	stateNames := make(map[string]bool)

	for _, state := range c.States {
		if state.Name == "" {
			return ErrStateNameRequired
		}

		if state.Name == EntryPointName {
			return fmt.Errorf("state %s: %w", state.Name, ErrReservedStateName)
		}

		if stateNames[state.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateStateName, state.Name)
		}

		stateNames[state.Name] = true
	}

	for i, transition := range c.Transitions {
		if transition.From == "" {
			return fmt.Errorf("transition %d: %w", i, ErrTransitionFromRequired)
		}

		if transition.To == "" {
			return fmt.Errorf("transition %d: %w", i, ErrTransitionToRequired)
		}

		if !c.stateExists(transition.From) {
			return fmt.Errorf("transition %d: %w: %s", i, ErrTransitionFromNotFound, transition.From)
		}

		if !c.stateExists(transition.To) {
			return fmt.Errorf("transition %d: %w: %s", i, ErrTransitionToNotFound, transition.To)
		}

		if transition.Cost != nil && *transition.Cost < 0 {
			return fmt.Errorf("transition %d: %w", i, ErrNegativeCost)
		}

		if transition.Action != nil && transition.Action.Type == "" {
			return fmt.Errorf("transition %d: %w: action type is required", i, ErrInvalidActionFormat)
		}
	}

	return nil
}

// FullName returns the full name a declared state gets once assembled.
func (c *Config) FullName(stateName string) string {
	return QualifiedName(c.Name, stateName)
}

// ReachableStates returns the names of the states reachable from the
// initial state through the declared transitions, the initial state included.
func (c *Config) ReachableStates() map[string]bool {
	reachable := make(map[string]bool)
	reachable[c.InitialState] = true

	queue := []string{c.InitialState}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, transition := range c.Transitions {
			if transition.From == current && !reachable[transition.To] {
				reachable[transition.To] = true
				queue = append(queue, transition.To)
			}
		}
	}

	return reachable
}

// stateExists checks if a state with the given name exists.
func (c *Config) stateExists(name string) bool {
	for _, state := range c.States {
		if state.Name == name {
			return true
		}
	}

	return false
}
