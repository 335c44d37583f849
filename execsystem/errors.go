package execsystem

import "errors"

var (
	// ErrCommandRequired is returned for an exec declaration without a
	// command or script.
	ErrCommandRequired = errors.New("command or script is required")

	// ErrCommandFailed is returned when a process could not be started.
	ErrCommandFailed = errors.New("command failed to run")

	// ErrCommandInterrupted is returned when the context ended a process.
	ErrCommandInterrupted = errors.New("command interrupted")

	// ErrUnexpectedResult is returned when a command's expect condition
	// does not hold.
	ErrUnexpectedResult = errors.New("unexpected command result")

	// ErrNotExecSystem is returned when an exec action runs against a
	// system that cannot run commands.
	ErrNotExecSystem = errors.New("system cannot run commands")
)
