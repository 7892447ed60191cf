// Package local provides the local command-execution capability consumed
// by connectors that drive a CLI on the controlling machine.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tessera-io/tessera/pkg/connectors"
)

// Executor runs shell command lines on the controlling machine.
type Executor struct {
	// Shell is the interpreter used to run command lines. Defaults to sh.
	Shell string

	// Stdout and Stderr receive mirrored output when print flags are
	// set. They default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecutor creates a local executor with default settings.
func NewExecutor() *Executor {
	return &Executor{
		Shell:  "sh",
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run implements connectors.Executor. A non-zero exit of the command is
// reported as ok == false with captured output; only a failure to spawn
// the process at all yields an error.
func (e *Executor) Run(ctx context.Context, command string, opts connectors.ExecOptions) (bool, connectors.CommandOutput, error) {
	startTime := time.Now()

	log.Debug().
		Str("command", command).
		Msg("running local command")

	if opts.PrintInput {
		fmt.Fprintf(e.stderr(), ">>> %s\n", command)
	}

	cmd := exec.CommandContext(ctx, e.shell(), "-c", command)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	if opts.PrintOutput {
		cmd.Stdout = io.MultiWriter(&stdoutBuf, e.stdout())
		cmd.Stderr = io.MultiWriter(&stderrBuf, e.stderr())
	}

	runErr := cmd.Run()

	out := connectors.CommandOutput{
		Stdout: strings.TrimRight(stdoutBuf.String(), "\n"),
		Stderr: strings.TrimRight(stderrBuf.String(), "\n"),
	}

	log.Debug().
		Int("stdout_len", len(out.Stdout)).
		Int("stderr_len", len(out.Stderr)).
		Dur("duration", time.Since(startTime)).
		Err(runErr).
		Msg("local command completed")

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			// Command ran but returned non-zero.
			return false, out, nil
		}
		return false, out, connectors.NewExecError("local run", runErr)
	}

	return true, out, nil
}

func (e *Executor) shell() string {
	if e.Shell != "" {
		return e.Shell
	}
	return "sh"
}

func (e *Executor) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Executor) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}
