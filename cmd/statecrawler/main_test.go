package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/amp-labs/statecrawler/config"
	"github.com/amp-labs/statecrawler/envutil"
	"github.com/amp-labs/statecrawler/logger"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopDeclaration = `
name: shop
initialState: Home
reset:
  type: http
  parameters:
    path: /
states:
  - name: Home
    verify: body == "home"
  - name: Cart
    verify: json.items == 1
transitions:
  - from: Home
    to: Cart
    action:
      type: http
      parameters:
        method: POST
        path: /cart
  - from: Cart
    to: Home
    action:
      type: http
      parameters:
        path: /
`

type fixture struct {
	ctx         context.Context //nolint:containedctx
	dir         string
	stateFile   string
	declaration string
	baseURL     string
}

// newFixture writes the shop declaration and serves the shop. A broken
// shop answers cart requests with an empty cart.
func newFixture(t *testing.T, broken bool) *fixture {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("home"))
	})
	mux.HandleFunc("POST /cart", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if broken {
			_, _ = w.Write([]byte(`{"items": 0}`))

			return
		}

		_, _ = w.Write([]byte(`{"items": 1}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	declaration := filepath.Join(dir, "shop.yaml")
	require.NoError(t, os.WriteFile(declaration, []byte(shopDeclaration), 0o600))

	stateFile := filepath.Join(dir, "state")

	ctx := logger.WithLogger(t.Context(), slogt.New(t))
	ctx = envutil.WithEnvOverrides(ctx, map[string]string{
		config.EnvStateFile: stateFile,
		config.EnvBaseURL:   server.URL,
	})

	return &fixture{ctx: ctx, dir: dir, stateFile: stateFile, declaration: declaration, baseURL: server.URL}
}

func (f *fixture) run(args ...string) (string, error) {
	var out bytes.Buffer

	err := run(f.ctx, &out, args)

	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)

	return exitErr.Code
}

func TestRunUsage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	out, err := f.run()
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, out, "Usage:")

	out, err = f.run("help")
	require.NoError(t, err)
	assert.Contains(t, out, "Commands:")

	_, err = f.run("crawl")
	assert.Equal(t, 2, exitCode(t, err))

	_, err = f.run("verify")
	assert.Equal(t, 2, exitCode(t, err))

	_, err = f.run("verify", "-no-such-flag")
	assert.Equal(t, 2, exitCode(t, err))

	out, err = f.run("verify", "-h")
	require.NoError(t, err)
	assert.Contains(t, out, "-pattern")
}

func TestVerify(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	reports := filepath.Join(f.dir, "reports")

	out, err := f.run("verify", "-full", "-report-dir", reports, f.declaration)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS shop")

	saved, err := os.ReadFile(f.stateFile)
	require.NoError(t, err)
	assert.Equal(t, "EntryPoint", string(saved))

	files, err := os.ReadDir(reports)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestVerifyDebug(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	out, err := f.run("verify", "-debug", f.declaration)
	require.NoError(t, err)
	assert.Contains(t, out, "Verification PASSED")
}

func TestVerifyFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)

	out, err := f.run("verify", f.declaration)
	assert.Equal(t, 1, exitCode(t, err))
	assert.Contains(t, out, "FAIL shop: shop.Cart")
}

func TestMoveAndState(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	out, err := f.run("move", f.declaration, "Cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Now at shop.Cart")

	out, err = f.run("state")
	require.NoError(t, err)
	assert.Equal(t, "shop.Cart\n", out)

	out, err = f.run("move", f.declaration, "Home")
	require.NoError(t, err)
	assert.Contains(t, out, "Now at shop.Home")

	out, err = f.run("move", "-fresh", "-base-url", f.baseURL, f.declaration, "Cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Now at shop.Cart")
}

func TestMoveFailurePersistsState(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)

	_, err := f.run("move", f.declaration, "Cart")
	require.Error(t, err)

	out, err := f.run("state")
	require.NoError(t, err)
	assert.Equal(t, "shop.Home\n", out)
}

//nolint:paralleltest // replaces the state selector
func TestMoveSelectsTarget(t *testing.T) {
	f := newFixture(t, false)

	var offered []string

	original := selectState
	t.Cleanup(func() { selectState = original })

	selectState = func(_ string, states []string) (string, error) {
		offered = states

		return "Cart", nil
	}

	out, err := f.run("move", f.declaration)
	require.NoError(t, err)
	assert.Equal(t, []string{"Home", "Cart"}, offered)
	assert.Contains(t, out, "Now at shop.Cart")
}

func TestStateWithoutPersistedState(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	_, err := f.run("state")
	assert.Equal(t, 1, exitCode(t, err))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	out, err := f.run("validate", f.declaration)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	duplicated := filepath.Join(f.dir, "duplicated.yaml")
	require.NoError(t, os.WriteFile(duplicated, []byte(shopDeclaration+`
  - from: Home
    to: Cart
`), 0o600))

	out, err = f.run("validate", duplicated)
	require.NoError(t, err)
	assert.Contains(t, out, "DUPLICATE_TRANSITION")

	_, err = f.run("validate", "-strict", duplicated)
	assert.Equal(t, 1, exitCode(t, err))

	out, err = f.run("validate", "-strict", "-fix", duplicated)
	require.NoError(t, err)
	assert.Contains(t, out, "initialState: Home")
	assert.Contains(t, out, "Configuration is valid")

	_, err = f.run("validate", filepath.Join(f.dir, "missing.yaml"))
	require.Error(t, err)
}

func TestExport(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	out, err := f.run("export", f.declaration)
	require.NoError(t, err)
	assert.Contains(t, out, "stateDiagram-v2")

	out, err = f.run("export", "-format", "dot", f.declaration)
	require.NoError(t, err)
	assert.Contains(t, out, "Cart")

	out, err = f.run("export", "-format", "json", f.declaration)
	require.NoError(t, err)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "shop", view["name"])

	_, err = f.run("export", "-format", "svg", f.declaration)
	assert.Equal(t, 2, exitCode(t, err))
}

func TestVersion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	out, err := f.run("version")
	require.NoError(t, err)
	assert.Contains(t, out, "statecrawler")

	out, err = f.run("version", "-json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
}
