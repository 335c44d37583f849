package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/amp-labs/statecrawler/binding"
	"github.com/amp-labs/statecrawler/cli"
	"github.com/amp-labs/statecrawler/config"
	"github.com/amp-labs/statecrawler/logger"
	"github.com/amp-labs/statecrawler/statemachine"
)

// selectState picks the target when none is given. Tests replace it.
var selectState = cli.SelectState //nolint:gochecknoglobals

func moveCommand(ctx context.Context, out io.Writer, settings *config.Settings, args []string) error {
	flags := newFlagSet("move", "[options] DECLARATION [STATE]", out)
	bindSystemFlags(flags, settings)
	fresh := flags.Bool("fresh", false, "ignore the persisted state and start from the entry point")

	if stop, err := parseFlags(flags, args); stop || err != nil {
		return err
	}

	if flags.NArg() < 1 || flags.NArg() > 2 { //nolint:mnd
		flags.Usage()

		return usageError("move needs a declaration and at most one state")
	}

	decl, err := statemachine.LoadConfig(flags.Arg(0))
	if err != nil {
		return err
	}

	system, err := binding.New(ctx, settings)
	if err != nil {
		return err
	}

	var opts []statemachine.Option
	if settings.Debug {
		opts = append(opts, statemachine.WithLogger(cli.NewStepPrinter(out)))
	}

	crawler, err := resume(ctx, decl, system, settings.StateFile, !*fresh, opts)
	if err != nil {
		return err
	}

	target := flags.Arg(1)
	if target == "" {
		states := make([]string, 0, len(decl.States))
		for _, sc := range decl.States {
			states = append(states, sc.Name)
		}

		target, err = selectState("Move to", states)
		if err != nil {
			return err
		}
	}

	moveErr := crawler.MoveTo(ctx, target)

	if err := statemachine.SaveLastState(settings.StateFile, crawler.State()); err != nil {
		logger.Get(ctx).Warn("Could not persist last state", "error", err)
	}

	if moveErr != nil {
		return moveErr
	}

	fmt.Fprintf(out, "Now at %s\n", crawler.State().FullName())

	return nil
}

// resume creates a crawler positioned at the persisted state when it belongs
// to decl, and at the entry point otherwise.
func resume(
	ctx context.Context,
	decl *statemachine.Config,
	system statemachine.System,
	stateFile string,
	useSaved bool,
	opts []statemachine.Option,
) (*statemachine.Crawler, error) {
	factory := binding.NewActionFactory()

	if !useSaved {
		return statemachine.NewCrawlerFromConfig(decl, system, factory, opts...)
	}

	saved, err := statemachine.LoadLastState(stateFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Get(ctx).Warn("Ignoring persisted state", "error", err)
		}

		return statemachine.NewCrawlerFromConfig(decl, system, factory, opts...)
	}

	crawler, err := statemachine.NewCrawlerFromConfig(decl, system, factory,
		append(opts, statemachine.WithCurrentState(saved))...)
	if err != nil {
		logger.Get(ctx).Warn("Persisted state does not belong to this declaration",
			"state", saved, "error", err)

		return statemachine.NewCrawlerFromConfig(decl, system, factory, opts...)
	}

	return crawler, nil
}
