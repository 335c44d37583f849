package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/amp-labs/statecrawler/binding"
	"github.com/amp-labs/statecrawler/build"
	"github.com/amp-labs/statecrawler/config"
	"github.com/amp-labs/statecrawler/statemachine"
	"github.com/amp-labs/statecrawler/statemachine/validator"
	"github.com/amp-labs/statecrawler/statemachine/visualizer"
	"gopkg.in/yaml.v3"
)

func validateCommand(_ context.Context, out io.Writer, _ *config.Settings, args []string) error {
	flags := newFlagSet("validate", "[options] DECLARATION", out)
	strict := flags.Bool("strict", false, "treat warnings as errors")
	fix := flags.Bool("fix", false, "apply the offered fixes and print the fixed declaration as YAML")

	if stop, err := parseFlags(flags, args); stop || err != nil {
		return err
	}

	if flags.NArg() != 1 {
		flags.Usage()

		return usageError("validate needs exactly one declaration")
	}

	factory := binding.NewActionFactory()

	result, err := validator.ValidateFile(flags.Arg(0), factory, *strict)
	if err != nil {
		fmt.Fprint(out, result.String())

		return err
	}

	if *fix && len(result.Fixes()) > 0 {
		decl, err := statemachine.LoadConfig(flags.Arg(0))
		if err != nil {
			return err
		}

		result, err = validator.AutoFix(decl, validator.DefaultRules(factory))
		if err != nil {
			return err
		}

		if *strict {
			result = result.Strict()
		}

		data, err := yaml.Marshal(decl)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "%s---\n", data)
	}

	fmt.Fprint(out, result.String())

	if !result.Valid {
		return &ExitError{Code: 1}
	}

	return nil
}

// Export formats.
const (
	formatMermaid = "mermaid"
	formatDOT     = "dot"
	formatJSON    = "json"
)

func exportCommand(_ context.Context, out io.Writer, _ *config.Settings, args []string) error {
	flags := newFlagSet("export", "[options] DECLARATION", out)
	format := flags.String("format", formatMermaid, "output format: mermaid, dot or json")
	direction := flags.String("direction", "TD", "diagram direction: TD or LR")
	names := flags.Bool("names", false, "label edges with transition names")

	if stop, err := parseFlags(flags, args); stop || err != nil {
		return err
	}

	if flags.NArg() != 1 {
		flags.Usage()

		return usageError("export needs exactly one declaration")
	}

	decl, err := statemachine.LoadConfig(flags.Arg(0))
	if err != nil {
		return err
	}

	view, err := visualizer.ViewFromConfigWithFactory(decl, binding.NewActionFactory())
	if err != nil {
		return err
	}

	opts := visualizer.DefaultOptions().WithDirection(*direction).WithShowNames(*names)

	var rendered string

	switch *format {
	case formatMermaid:
		rendered, err = visualizer.GenerateMermaidWithOptions(view, opts)
	case formatDOT:
		rendered, err = visualizer.GenerateDOTWithOptions(view, opts)
	case formatJSON:
		var data []byte

		data, err = json.MarshalIndent(view, "", "  ")
		rendered = string(data) + "\n"
	default:
		return usageError("unknown format %q", *format)
	}

	if err != nil {
		return err
	}

	_, err = io.WriteString(out, rendered)

	return err
}

func stateCommand(_ context.Context, out io.Writer, settings *config.Settings, args []string) error {
	flags := newFlagSet("state", "[options]", out)
	flags.StringVar(&settings.StateFile, "state-file", settings.StateFile, "file the last state is persisted to")

	if stop, err := parseFlags(flags, args); stop || err != nil {
		return err
	}

	name, err := statemachine.LoadLastState(settings.StateFile)
	if errors.Is(err, fs.ErrNotExist) {
		return &ExitError{Code: 1, Message: "no state persisted in " + settings.StateFile}
	}

	if err != nil {
		return err
	}

	fmt.Fprintln(out, name)

	return nil
}

func versionCommand(_ context.Context, out io.Writer, _ *config.Settings, args []string) error {
	flags := newFlagSet("version", "[options]", out)
	asJSON := flags.Bool("json", false, "print build information as JSON")

	if stop, err := parseFlags(flags, args); stop || err != nil {
		return err
	}

	info := build.Current()

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(info)
	}

	fmt.Fprintln(out, info.String())

	return nil
}
