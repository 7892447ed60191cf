// Package incus implements the instance connector: it discovers
// container/VM instances visible to a local hypervisor CLI (incus, or lxc
// as a configured variant), executes shell commands inside a named
// instance, and moves files to and from it through the CLI's file
// subcommands.
package incus

import (
	"context"
	"errors"
	"io"
	"os"
	"strconv"

	"github.com/kballard/go-shellquote"

	"github.com/tessera-io/tessera/pkg/connectors"
	"github.com/tessera-io/tessera/pkg/progress"
	"github.com/tessera-io/tessera/pkg/telemetry"
)

// errNoTarget is returned by operations that need a bound instance.
var errNoTarget = errors.New("no instance bound to this connector")

// Connector drives a hypervisor CLI on the controlling machine. All
// execution is delegated to the injected local executor; the connector
// only builds command lines and interprets their results.
type Connector struct {
	cfg  Config
	exec connectors.Executor

	// target is the full "[<remote>:]<instance>" string passed to the
	// CLI's exec and file subcommands.
	target string

	reporter progress.Reporter
	printTo  io.Writer
}

// Option customizes a connector.
type Option func(*Connector)

// WithProgress sets the progress reporter used around slow CLI calls.
func WithProgress(r progress.Reporter) Option {
	return func(c *Connector) { c.reporter = r }
}

// WithPrintWriter sets the writer receiving transfer confirmations when
// print output is requested. Defaults to stderr.
func WithPrintWriter(w io.Writer) Option {
	return func(c *Connector) { c.printTo = w }
}

// New creates an instance connector from the configuration and the local
// command-execution capability.
func New(cfg *Config, executor connectors.Executor, opts ...Option) (*Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, connectors.NewValidationError("configure "+cfg.Binary+" connector", err)
	}

	c := &Connector{
		cfg:      *cfg,
		exec:     executor,
		target:   cfg.Target,
		reporter: progress.Silent{},
		printTo:  os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Kind returns the connector kind, which follows the configured binary
// name so that incus and lxc targets stay distinguishable.
func (c *Connector) Kind() string {
	return c.cfg.Binary
}

// HandlesExecution reports that this connector executes commands itself.
func (c *Connector) HandlesExecution() bool {
	return true
}

// Execute runs a shell command inside the bound instance.
//
// The command line has the shape
//
//	<binary> exec -t|-T [--user <uid>] <instance> -- <shell> -c <command>
//
// where the quoted command is the caller's logical command with the
// working-directory and environment directives folded in. The executor's
// success flag and captured output are returned unmodified; this
// connector adds no error interpretation of its own.
func (c *Connector) Execute(ctx context.Context, command string, opts connectors.ExecOptions) (ok bool, out connectors.CommandOutput, err error) {
	defer func() {
		telemetry.Commands.WithLabelValues(c.Kind(), telemetry.StatusOf(err)).Inc()
	}()

	if c.target == "" {
		err = connectors.NewExecError(c.cfg.Binary+" exec", errNoTarget)
		return false, out, err
	}

	args := []string{c.cfg.Binary, "exec"}
	if opts.WantPTY {
		args = append(args, "-t")
	} else {
		args = append(args, "-T")
	}
	if opts.UserID != nil {
		args = append(args, "--user", strconv.Itoa(*opts.UserID))
	}
	args = append(args,
		c.target,
		"--",
		c.cfg.Shell,
		"-c",
		connectors.MakeUnixCommand(command, opts),
	)

	return c.exec.Run(ctx, shellquote.Join(args...), opts.PrintFlags())
}

func (c *Connector) progressReporter() progress.Reporter {
	if c.reporter != nil {
		return c.reporter
	}
	return progress.Silent{}
}
