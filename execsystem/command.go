package execsystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/amp-labs/statecrawler/logger"
)

// Command builds and runs one external process.
type Command struct {
	ctx      context.Context //nolint:containedctx
	cmd      *exec.Cmd
	finished []func()
}

// NewCommand prepares name with args. The process inherits the environment
// and is killed when ctx is done.
func NewCommand(ctx context.Context, name string, args ...string) *Command {
	c := exec.CommandContext(ctx, name, args...)
	c.Env = os.Environ()

	return &Command{ctx: ctx, cmd: c}
}

func (c *Command) SetDir(dir string) *Command {
	c.cmd.Dir = dir

	return c
}

func (c *Command) SetStdin(in io.Reader) *Command {
	c.cmd.Stdin = in

	return c
}

func (c *Command) SetStdinBytes(input []byte) *Command {
	c.cmd.Stdin = bytes.NewReader(input)

	return c
}

// SetStdoutObserver buffers stdout and hands it to f once the process exits.
func (c *Command) SetStdoutObserver(f func([]byte)) *Command {
	var buf bytes.Buffer

	c.cmd.Stdout = &buf
	c.finished = append(c.finished, func() {
		f(buf.Bytes())
	})

	return c
}

// SetStderrObserver buffers stderr and hands it to f once the process exits.
func (c *Command) SetStderrObserver(f func([]byte)) *Command {
	var buf bytes.Buffer

	c.cmd.Stderr = &buf
	c.finished = append(c.finished, func() {
		f(buf.Bytes())
	})

	return c
}

// ReplaceEnv drops the inherited environment in favour of env.
func (c *Command) ReplaceEnv(env map[string]string) *Command {
	c.cmd.Env = nil
	for k, v := range env {
		c.cmd.Env = append(c.cmd.Env, k+"="+v)
	}

	return c
}

func (c *Command) AppendEnv(key, value string) *Command {
	c.cmd.Env = append(c.cmd.Env, key+"="+value)

	return c
}

// Run starts the process and waits for it. A non-zero exit is reported
// through the exit code, not the error; the error is set when the process
// could not run or ctx ended it.
func (c *Command) Run() (int, error) {
	logger.Get(c.ctx).DebugContext(c.ctx, "Run command",
		"cmd", strings.Join(c.cmd.Args, " "),
		"dir", c.cmd.Dir)

	code, err := status(c.cmd.Run())

	for _, f := range c.finished {
		f()
	}

	if ctxErr := c.ctx.Err(); ctxErr != nil && code != 0 {
		return code, fmt.Errorf("%w: %w", ErrCommandInterrupted, ctxErr)
	}

	return code, err
}

func status(err error) (int, error) {
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return 1, fmt.Errorf("%w: %w", ErrCommandFailed, err)
}
