// Package binding assembles the system a command-line crawl drives: an HTTP
// client when a base URL is configured and a command runner, together with
// the action factory that knows every built-in action type.
package binding

import (
	"context"
	"errors"
	"maps"

	"github.com/amp-labs/statecrawler/config"
	"github.com/amp-labs/statecrawler/execsystem"
	"github.com/amp-labs/statecrawler/httpsystem"
	"github.com/amp-labs/statecrawler/statemachine"
	"github.com/amp-labs/statecrawler/statemachine/actions"
)

// ErrNoBackend is returned when a system has neither an HTTP client nor a
// command runner.
var ErrNoBackend = errors.New("system has no backend")

// System drives HTTP requests and shell commands. Either part may be nil.
type System struct {
	HTTP *httpsystem.System
	Exec *execsystem.System
}

var (
	_ statemachine.Observer = (*System)(nil)
	_ httpsystem.Provider   = (*System)(nil)
	_ execsystem.Provider   = (*System)(nil)
)

// New builds a system from settings. The HTTP client exists only when
// settings carry a base URL.
func New(ctx context.Context, settings *config.Settings) (*System, error) {
	system := &System{}

	if settings.BaseURL != nil {
		opts := []httpsystem.Option{httpsystem.WithTimeout(settings.Timeout)}
		if settings.InsecureTLS {
			opts = append(opts, httpsystem.WithInsecureTLS())
		}

		client, err := httpsystem.New(ctx, settings.BaseURL.String(), opts...)
		if err != nil {
			return nil, err
		}

		system.HTTP = client
	}

	var opts []execsystem.Option
	if settings.WorkDir != "" {
		opts = append(opts, execsystem.WithDir(settings.WorkDir))
	}

	system.Exec = execsystem.New(opts...)

	return system, nil
}

func (s *System) HTTPSystem() *httpsystem.System {
	return s.HTTP
}

func (s *System) ExecSystem() *execsystem.System {
	return s.Exec
}

// Observe merges the observations of both backends. Their keys are
// disjoint apart from metadata, which is the state's own.
func (s *System) Observe(ctx context.Context, state string, metadata map[string]any) (map[string]any, error) {
	if s.HTTP == nil && s.Exec == nil {
		return nil, ErrNoBackend
	}

	env := map[string]any{}

	if s.HTTP != nil {
		observed, err := s.HTTP.Observe(ctx, state, metadata)
		if err != nil {
			return nil, err
		}

		maps.Copy(env, observed)
	}

	if s.Exec != nil {
		observed, err := s.Exec.Observe(ctx, state, metadata)
		if err != nil {
			return nil, err
		}

		maps.Copy(env, observed)
	}

	env["metadata"] = metadata

	return env, nil
}

// NewActionFactory returns a factory with the core action types plus http,
// exec, retry, fallback, wait and parallel.
func NewActionFactory() *statemachine.ActionFactory {
	factory := statemachine.NewActionFactory()

	httpsystem.Register(factory)
	execsystem.Register(factory)
	actions.Register(factory)

	return factory
}
