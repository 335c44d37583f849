package main

import (
	"context"
	"flag"
	"net/url"

	"github.com/amp-labs/statecrawler/binding"
	"github.com/amp-labs/statecrawler/config"
	"github.com/amp-labs/statecrawler/fleet"
	"github.com/amp-labs/statecrawler/statemachine"
)

// bindSystemFlags lets flags override how the system under test is reached.
func bindSystemFlags(flags *flag.FlagSet, settings *config.Settings) {
	flags.Func("base-url", "base URL of the system under test (enables http actions)", func(value string) error {
		u, err := url.Parse(value)
		if err != nil {
			return err
		}

		settings.BaseURL = u

		return nil
	})
	flags.DurationVar(&settings.Timeout, "timeout", settings.Timeout, "timeout of each HTTP request")
	flags.BoolVar(&settings.InsecureTLS, "insecure", settings.InsecureTLS, "skip TLS certificate verification")
	flags.StringVar(&settings.WorkDir, "work-dir", settings.WorkDir, "working directory of exec actions")
	flags.StringVar(&settings.StateFile, "state-file", settings.StateFile, "file the last state is persisted to")
	flags.BoolVar(&settings.Debug, "debug", settings.Debug, "print a marker for every step")
}

// systemFactory builds a fresh system per declaration from settings.
func systemFactory(settings *config.Settings) fleet.SystemFactory {
	return func(ctx context.Context, _ fleet.Declaration) (statemachine.System, error) {
		return binding.New(ctx, settings)
	}
}
