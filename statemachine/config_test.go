package statemachine

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkoutYAML = `
name: checkout
initialState: cart
states:
  - name: cart
    verify: status == 200
    metadata:
      path: /cart
  - name: paid
    verify: json.paid == true
  - name: shipped
transitions:
  - from: cart
    to: paid
    cost: 2
    action:
      type: noop
  - from: paid
    to: shipped
    name: ship
  - from: cart
    to: shipped
    action:
      type: fail
      parameters:
        message: not yet
`

const checkoutJSON = `{
  "name": "checkout",
  "initialState": "cart",
  "states": [
    {"name": "cart", "verify": "status == 200", "metadata": {"path": "/cart"}},
    {"name": "paid", "verify": "json.paid == true"},
    {"name": "shipped"}
  ],
  "transitions": [
    {"from": "cart", "to": "paid", "cost": 2, "action": {"type": "noop"}},
    {"from": "paid", "to": "shipped", "name": "ship"},
    {"from": "cart", "to": "shipped", "action": {"type": "fail", "parameters": {"message": "not yet"}}}
  ]
}`

const checkoutHCL = `
name          = "checkout"
initial_state = "cart"

state "cart" {
  verify   = "status == 200"
  metadata = { path = "/cart" }
}

state "paid" {
  verify = "json.paid == true"
}

state "shipped" {}

transition "cart" "paid" {
  cost = 2
  action "noop" {}
}

transition "paid" "shipped" {
  name = "ship"
}

transition "cart" "shipped" {
  action "fail" {
    message = "not yet"
  }
}
`

const checkoutDOT = `
digraph checkout {
  root = "cart"
  cart [comment="status == 200", URL="/cart"]
  paid [comment="json.paid == true"]
  shipped
  cart -> paid [label="noop", weight=2]
  paid -> shipped [tooltip="ship"]
  cart -> shipped [label="fail", comment="message=not yet"]
}
`

func assertCheckoutConfig(t *testing.T, config *Config) {
	t.Helper()

	assert.Equal(t, "checkout", config.Name)
	assert.Equal(t, "cart", config.InitialState)
	require.Len(t, config.States, 3)
	require.Len(t, config.Transitions, 3)

	assert.Equal(t, "cart", config.States[0].Name)
	assert.Equal(t, "status == 200", config.States[0].Verify)
	assert.Equal(t, "/cart", config.States[0].Metadata["path"])
	assert.Equal(t, "json.paid == true", config.States[1].Verify)
	assert.Empty(t, config.States[2].Verify)

	first := config.Transitions[0]
	assert.Equal(t, "cart", first.From)
	assert.Equal(t, "paid", first.To)
	require.NotNil(t, first.Cost)
	assert.InDelta(t, 2.0, *first.Cost, 0)
	require.NotNil(t, first.Action)
	assert.Equal(t, "noop", first.Action.Type)

	second := config.Transitions[1]
	assert.Equal(t, "ship", second.Name)
	assert.Nil(t, second.Cost)
	assert.Nil(t, second.Action)

	third := config.Transitions[2]
	require.NotNil(t, third.Action)
	assert.Equal(t, "fail", third.Action.Type)
	assert.Equal(t, "not yet", third.Action.Parameters["message"])
}

func TestLoadConfigFromBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		data   string
	}{
		{FormatYAML, checkoutYAML},
		{FormatJSON, checkoutJSON},
		{FormatHCL, checkoutHCL},
		{FormatDOT, checkoutDOT},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			config, err := LoadConfigFromBytes([]byte(tt.data), tt.format)
			require.NoError(t, err)
			assertCheckoutConfig(t, config)
		})
	}
}

func TestLoadConfigFromBytesUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigFromBytes([]byte("x"), "toml")
	require.ErrorIs(t, err, ErrUnknownConfigFormat)
}

func TestLoadConfigByPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "checkout.yml")
	require.NoError(t, os.WriteFile(path, []byte(checkoutYAML), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assertCheckoutConfig(t, config)

	_, err = LoadConfig(filepath.Join(dir, "checkout.toml"))
	require.ErrorIs(t, err, ErrUnknownConfigFormat)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLoadConfigFromFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"graphs/checkout.gv": &fstest.MapFile{Data: []byte(checkoutDOT)},
	}

	config, err := LoadConfigFromFS(fsys, "graphs/checkout.gv")
	require.NoError(t, err)
	assertCheckoutConfig(t, config)
}

func TestHCLReadsEnvironment(t *testing.T) {
	t.Setenv("STATECRAWLER_TEST_PATH", "/from-env")

	config, err := LoadConfigFromBytes([]byte(`
name          = "env"
initial_state = "a"

state "a" {
  metadata = { path = env.STATECRAWLER_TEST_PATH }
}
`), FormatHCL)
	require.NoError(t, err)
	assert.Equal(t, "/from-env", config.States[0].Metadata["path"])
}

func TestDOTDefaultsInitialToFirstNode(t *testing.T) {
	t.Parallel()

	config, err := LoadConfigFromBytes([]byte(`digraph g { a -> b; b -> c }`), FormatDOT)
	require.NoError(t, err)
	assert.Equal(t, "g", config.Name)
	assert.Equal(t, "a", config.InitialState)
	assert.Len(t, config.States, 3)
	assert.Nil(t, config.Transitions[0].Action)
}

func TestDOTRejectsBadWeight(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigFromBytes([]byte(`digraph g { a -> b [weight="heavy"] }`), FormatDOT)
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cost := -1.0

	tests := []struct {
		name   string
		config Config
		want   error
	}{
		{"missing name", Config{}, ErrConfigNameRequired},
		{"missing initial", Config{Name: "x"}, ErrInitialStateRequired},
		{"no states", Config{Name: "x", InitialState: "a"}, ErrNoStates},
		{
			"unknown initial",
			Config{Name: "x", InitialState: "z", States: []StateConfig{{Name: "a"}}},
			ErrInitialStateNotFound,
		},
		{
			"duplicate state",
			Config{Name: "x", InitialState: "a", States: []StateConfig{{Name: "a"}, {Name: "a"}}},
			ErrDuplicateStateName,
		},
		{
			"reserved state",
			Config{Name: "x", InitialState: "a", States: []StateConfig{{Name: "a"}, {Name: EntryPointName}}},
			ErrReservedStateName,
		},
		{
			"unknown target",
			Config{
				Name: "x", InitialState: "a", States: []StateConfig{{Name: "a"}},
				Transitions: []TransitionConfig{{From: "a", To: "b"}},
			},
			ErrTransitionToNotFound,
		},
		{
			"missing source",
			Config{
				Name: "x", InitialState: "a", States: []StateConfig{{Name: "a"}},
				Transitions: []TransitionConfig{{To: "a"}},
			},
			ErrTransitionFromRequired,
		},
		{
			"negative cost",
			Config{
				Name: "x", InitialState: "a", States: []StateConfig{{Name: "a"}},
				Transitions: []TransitionConfig{{From: "a", To: "a", Cost: &cost}},
			},
			ErrNegativeCost,
		},
		{
			"untyped action",
			Config{
				Name: "x", InitialState: "a", States: []StateConfig{{Name: "a"}},
				Transitions: []TransitionConfig{{From: "a", To: "a", Action: &ActionConfig{}}},
			},
			ErrInvalidActionFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.ErrorIs(t, tt.config.Validate(), tt.want)
		})
	}
}

func TestConfigReachableStates(t *testing.T) {
	t.Parallel()

	config, err := LoadConfigFromBytes([]byte(checkoutYAML), FormatYAML)
	require.NoError(t, err)

	config.States = append(config.States, StateConfig{Name: "orphan"})

	reachable := config.ReachableStates()
	assert.True(t, reachable["shipped"])
	assert.False(t, reachable["orphan"])
}

type staticLoader map[string]string

func (s staticLoader) LoadByName(name string) ([]byte, string, error) {
	data, ok := s[name]
	if !ok {
		return nil, "", os.ErrNotExist
	}

	return []byte(data), FormatYAML, nil
}

func (s staticLoader) ListAvailable() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}

	return names
}

//nolint:paralleltest // Test modifies the global config loader
func TestLoadConfigByName(t *testing.T) {
	SetConfigLoader(staticLoader{"checkout": checkoutYAML})
	t.Cleanup(func() { SetConfigLoader(nil) })

	config, err := LoadConfig("checkout")
	require.NoError(t, err)
	assertCheckoutConfig(t, config)

	_, err = LoadConfig("missing")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestHCLReset(t *testing.T) {
	t.Parallel()

	config, err := LoadConfigFromBytes([]byte(`
name          = "shop"
initial_state = "home"

reset "http" {
  method = "POST"
  path   = "/reset"
}

state "home" {}
`), FormatHCL)
	require.NoError(t, err)
	require.NotNil(t, config.Reset)
	assert.Equal(t, "http", config.Reset.Type)
	assert.Equal(t, "/reset", config.Reset.Parameters["path"])

	config.Reset.Type = ""
	require.ErrorIs(t, config.Validate(), ErrInvalidActionFormat)
}
