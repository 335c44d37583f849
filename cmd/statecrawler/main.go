// Command statecrawler drives a system under test through a declared state
// graph: it verifies every state, moves to a chosen one, validates and
// renders declarations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/amp-labs/statecrawler/config"
	"github.com/amp-labs/statecrawler/envutil"
	"github.com/amp-labs/statecrawler/logger"
	"github.com/amp-labs/statecrawler/shutdown"
	"github.com/amp-labs/statecrawler/telemetry"
)

const app = "statecrawler"

// ExitError ends the process with Code after printing Message.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)} //nolint:mnd
}

const usage = `statecrawler - verify a system by crawling its declared state graph.

Usage:
  statecrawler <command> [options] [arguments]

Commands:
  verify    DECLARATION...         visit every state (every transition with -full)
  move      DECLARATION [STATE]    move to a state, chosen interactively if omitted
  validate  DECLARATION            check a declaration for mistakes
  export    DECLARATION            render a declaration as mermaid, dot or json
  state                            print the last persisted state
  version                          print version information

Run 'statecrawler <command> -h' for the options of a command.
`

func main() {
	ctx := shutdown.SetupHandler(context.Background())
	ctx = logger.WithSubsystem(ctx, app)

	flush := setupObservability(ctx)

	err := run(ctx, os.Stdout, os.Args[1:])

	flush(ctx)

	var exitErr *ExitError

	switch {
	case err == nil:
		os.Exit(0)
	case errors.As(err, &exitErr):
		if exitErr.Message != "" {
			fmt.Fprintln(os.Stderr, exitErr.Message)
		}

		os.Exit(exitErr.Code)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupObservability configures logging, with OpenTelemetry export when
// enabled, and returns a function that flushes telemetry.
func setupObservability(ctx context.Context) func(context.Context) {
	environment := envutil.String(ctx, "CRAWLER_ENVIRONMENT", envutil.Default("local")).ValueOrElse("local")

	var opts []logger.Option

	otelConfig, err := telemetry.LoadConfigFromEnv(ctx, environment)
	if err == nil {
		var handler slog.Handler

		handler, err = telemetry.Initialize(ctx, otelConfig)
		if handler != nil {
			opts = append(opts, logger.WithTee(handler))
		}
	}

	logger.ConfigureLogging(ctx, app, opts...)

	if err != nil {
		logger.Get(ctx).Warn("Telemetry disabled", "error", err)
	}

	flush := func(ctx context.Context) {
		if err := telemetry.Shutdown(ctx); err != nil {
			logger.Get(ctx).Warn("Telemetry shutdown failed", "error", err)
		}
	}

	shutdown.BeforeShutdown("telemetry", flush)

	return flush
}

type command func(ctx context.Context, out io.Writer, settings *config.Settings, args []string) error

var commands = map[string]command{ //nolint:gochecknoglobals
	"verify":   verifyCommand,
	"move":     moveCommand,
	"validate": validateCommand,
	"export":   exportCommand,
	"state":    stateCommand,
	"version":  versionCommand,
}

// run executes one command line against out.
func run(ctx context.Context, out io.Writer, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)

		return usageError("no command given")
	}

	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		fmt.Fprint(out, usage)

		return nil
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprint(out, usage)

		return usageError("unknown command %q", name)
	}

	settings, err := config.Load(ctx)
	if err != nil {
		return err
	}

	logger.Get(ctx).Debug("Settings loaded", "command", name, "settings", settings)

	return cmd(ctx, out, settings, args[1:])
}

// newFlagSet returns a flag set for a command that writes its usage to out.
func newFlagSet(name, synopsis string, out io.Writer) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() {
		fmt.Fprintf(out, "Usage:\n  statecrawler %s %s\n\nOptions:\n", name, synopsis)
		flags.PrintDefaults()
	}

	return flags
}

// parseFlags parses args, reporting whether the command should stop
// because help was requested.
func parseFlags(flags *flag.FlagSet, args []string) (bool, error) {
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}

		return false, usageError("%s", err)
	}

	return false, nil
}
