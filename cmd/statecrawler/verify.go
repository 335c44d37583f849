package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/amp-labs/statecrawler/binding"
	"github.com/amp-labs/statecrawler/cli"
	"github.com/amp-labs/statecrawler/config"
	"github.com/amp-labs/statecrawler/fleet"
	"github.com/amp-labs/statecrawler/logger"
	"github.com/amp-labs/statecrawler/statemachine"
)

func verifyCommand(ctx context.Context, out io.Writer, settings *config.Settings, args []string) error {
	flags := newFlagSet("verify", "[options] DECLARATION...", out)
	bindSystemFlags(flags, settings)
	flags.StringVar(&settings.Pattern, "pattern", settings.Pattern, "only verify states whose full name matches this regular expression")
	flags.BoolVar(&settings.Full, "full", settings.Full, "exercise every transition, not only every state")
	flags.IntVar(&settings.Concurrency, "concurrency", settings.Concurrency, "declarations verified at once")
	flags.StringVar(&settings.ReportDir, "report-dir", settings.ReportDir, "directory receiving one JSON report per declaration")

	if stop, err := parseFlags(flags, args); stop || err != nil {
		return err
	}

	if flags.NArg() == 0 {
		flags.Usage()

		return usageError("verify needs at least one declaration")
	}

	decls, err := fleet.Load(flags.Args()...)
	if err != nil {
		return err
	}

	opts := []fleet.Option{
		fleet.WithConcurrency(settings.Concurrency),
		fleet.WithPattern(settings.Pattern),
		fleet.WithFull(settings.Full),
		fleet.WithActionFactory(binding.NewActionFactory()),
	}

	if settings.Debug {
		opts = append(opts, fleet.WithLogger(cli.NewStepPrinter(out)))
	}

	report, err := fleet.NewRunner(systemFactory(settings), opts...).Run(ctx, decls)
	if err != nil {
		return err
	}

	if len(report.Results) == 1 && report.Results[0].LastState != "" {
		if err := statemachine.SaveLastStateName(settings.StateFile, report.Results[0].LastState); err != nil {
			logger.Get(ctx).Warn("Could not persist last state", "error", err)
		}
	}

	if settings.ReportDir != "" {
		written, err := fleet.WriteReports(settings.ReportDir, report)
		if err != nil {
			return err
		}

		logger.Get(ctx).Info("Reports written", "files", written)
	}

	printReport(out, report)

	if !report.OK() {
		return &ExitError{
			Code:    1,
			Message: fmt.Sprintf("verification failed for %d of %d declarations", report.Failed, len(report.Results)),
		}
	}

	return nil
}

func printReport(out io.Writer, report *fleet.Report) {
	for _, result := range report.Results {
		switch {
		case result.Passed:
			fmt.Fprintf(out, "PASS %s: %d states verified\n", result.Name, len(result.Visited))
		case len(result.ErrorStates) > 0:
			fmt.Fprintf(out, "FAIL %s: %s\n", result.Name, strings.Join(result.ErrorStates, ", "))
		default:
			fmt.Fprintf(out, "FAIL %s: %s\n", result.Name, result.Error)
		}
	}
}
