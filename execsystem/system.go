// Package execsystem binds a crawl to a system driven through external
// commands: transitions run commands and states observe command output.
package execsystem

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/amp-labs/statecrawler/statemachine"
)

// MetadataKey is the state metadata entry holding a probe command.
const MetadataKey = "exec"

// Spec describes one command invocation. Command is run directly; Script is
// handed to the system's shell. Expect is a boolean expression over the
// result, "exit_code == 0" when empty.
type Spec struct {
	Command []string          `json:"command,omitempty"`
	Script  string            `json:"script,omitempty"`
	Dir     string            `json:"dir,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Stdin   string            `json:"stdin,omitempty"`
	Expect  string            `json:"expect,omitempty"`
}

// ParseSpec reads a Spec from declaration parameters. A string command is
// treated as a script.
func ParseSpec(params map[string]any) (Spec, error) {
	params = maps.Clone(params)

	if command, ok := params["command"].(string); ok {
		delete(params, "command")

		if _, hasScript := params["script"]; !hasScript {
			params["script"] = command
		}
	}

	data, err := json.Marshal(params)
	if err != nil {
		return Spec{}, fmt.Errorf("invalid exec parameters: %w", err)
	}

	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return Spec{}, fmt.Errorf("invalid exec parameters: %w", err)
	}

	if len(spec.Command) == 0 && strings.TrimSpace(spec.Script) == "" {
		return Spec{}, ErrCommandRequired
	}

	return spec, nil
}

// Result is the outcome of a command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Env exposes the result to expressions as exit_code, stdout, stderr,
// lines (non-empty stdout lines) and ok.
func (r *Result) Env() map[string]any {
	lines := []any{}

	for line := range strings.Lines(r.Stdout) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	return map[string]any{
		"exit_code": r.ExitCode,
		"stdout":    strings.TrimSpace(r.Stdout),
		"stderr":    strings.TrimSpace(r.Stderr),
		"lines":     lines,
		"ok":        r.ExitCode == 0,
	}
}

// System runs commands on behalf of a crawl and remembers the last result,
// so that a state reached by a command can verify its output.
type System struct {
	dir   string
	env   map[string]string
	shell []string

	mu   sync.Mutex
	last *Result
}

var _ statemachine.Observer = (*System)(nil)

// Option configures a System.
type Option func(*System)

// WithDir sets the default working directory.
func WithDir(dir string) Option {
	return func(s *System) {
		s.dir = dir
	}
}

// WithEnv adds variables to every command's environment.
func WithEnv(env map[string]string) Option {
	return func(s *System) {
		maps.Copy(s.env, env)
	}
}

// WithShell sets the interpreter scripts are passed to, "sh -c" by default.
func WithShell(shell ...string) Option {
	return func(s *System) {
		if len(shell) > 0 {
			s.shell = shell
		}
	}
}

// New creates a System.
func New(opts ...Option) *System {
	s := &System{
		env:   make(map[string]string),
		shell: []string{"sh", "-c"},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ExecSystem implements Provider.
func (s *System) ExecSystem() *System {
	return s
}

// Run executes spec and records its result.
func (s *System) Run(ctx context.Context, spec Spec) (*Result, error) {
	var (
		name string
		args []string
	)

	switch {
	case len(spec.Command) > 0:
		name, args = spec.Command[0], spec.Command[1:]
	case strings.TrimSpace(spec.Script) != "":
		name, args = s.shell[0], append(append([]string{}, s.shell[1:]...), spec.Script)
	default:
		return nil, ErrCommandRequired
	}

	result := &Result{}

	cmd := NewCommand(ctx, name, args...).
		SetStdoutObserver(func(b []byte) { result.Stdout = string(b) }).
		SetStderrObserver(func(b []byte) { result.Stderr = string(b) })

	dir := spec.Dir
	if dir == "" {
		dir = s.dir
	}

	if dir != "" {
		cmd.SetDir(dir)
	}

	for k, v := range s.env {
		cmd.AppendEnv(k, v)
	}

	for k, v := range spec.Env {
		cmd.AppendEnv(k, v)
	}

	if spec.Stdin != "" {
		cmd.SetStdinBytes([]byte(spec.Stdin))
	}

	start := time.Now()

	code, err := cmd.Run()
	if err != nil {
		return nil, err
	}

	result.ExitCode = code
	result.Duration = time.Since(start)

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	return result, nil
}

// Last returns the most recent result, nil before any command ran.
func (s *System) Last() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last
}

// Observe runs the state's probe command when its metadata declares one
// under "exec"; otherwise it exposes the last result.
func (s *System) Observe(ctx context.Context, _ string, metadata map[string]any) (map[string]any, error) {
	result := s.Last()

	if probe, ok := metadata[MetadataKey].(map[string]any); ok {
		spec, err := ParseSpec(probe)
		if err != nil {
			return nil, err
		}

		result, err = s.Run(ctx, spec)
		if err != nil {
			return nil, err
		}
	}

	env := map[string]any{}
	if result != nil {
		env = result.Env()
	}

	env["metadata"] = metadata

	return env, nil
}

// Provider is implemented by systems that can run commands.
type Provider interface {
	ExecSystem() *System
}

// From returns the command runner behind a crawl system.
func From(system statemachine.System) (*System, error) {
	provider, ok := system.(Provider)
	if !ok || provider.ExecSystem() == nil {
		return nil, fmt.Errorf("%w: %T", ErrNotExecSystem, system)
	}

	return provider.ExecSystem(), nil
}
