// Package connectors defines the target connector contract used by the
// Tessera engine: discovering remote execution targets and performing the
// three primitive operations against them (execute a command, upload a
// file, download a file).
package connectors

import (
	"context"
	"io"
)

// Record represents a single discovered target plus its metadata.
type Record struct {
	// Identifier is the connector-namespaced key for the target, e.g.
	// "remote:instance-name" or a bare hostname. It is never empty and is
	// unique within a single discovery call.
	Identifier string

	// Ref is the registry-facing target reference for the record, in the
	// form "@<kind>/<identifier>". The kind names the connector that can
	// operate on the target, which is not necessarily the connector that
	// discovered it.
	Ref string

	// Attributes holds free-form target metadata. Values are either a
	// string or a []string; a value present in the map is non-empty.
	Attributes map[string]any

	// Groups lists the logical tags used for later selection. Order is
	// insertion order and carries no meaning beyond membership.
	Groups []string
}

// MakeRef composes the target reference for a connector kind and
// identifier.
func MakeRef(kind, identifier string) string {
	return "@" + kind + "/" + identifier
}

// CommandOutput is the captured output of a command invocation.
type CommandOutput struct {
	Stdout string
	Stderr string
}

// Combined returns stdout followed by stderr, separated by a newline when
// both are non-empty.
func (o CommandOutput) Combined() string {
	switch {
	case o.Stdout == "":
		return o.Stderr
	case o.Stderr == "":
		return o.Stdout
	default:
		return o.Stdout + "\n" + o.Stderr
	}
}

// ExecOptions carries the per-invocation settings recognized by
// connectors. Zero values mean "not requested".
type ExecOptions struct {
	// WorkingDir runs the command from this directory on the target.
	WorkingDir string

	// Env is added to the command's environment on the target.
	Env map[string]string

	// UserID runs the command as this numeric user id when non-nil.
	UserID *int

	// WantPTY requests a pseudo-terminal for the command.
	WantPTY bool

	// PrintOutput mirrors captured output to the local streams as it is
	// produced.
	PrintOutput bool

	// PrintInput echoes the composed command line before it runs.
	PrintInput bool
}

// PrintFlags returns a copy of the options carrying only the print
// settings. Connectors use it when delegating to the local executor after
// folding the remaining directives into the command line themselves.
func (o ExecOptions) PrintFlags() ExecOptions {
	return ExecOptions{PrintOutput: o.PrintOutput, PrintInput: o.PrintInput}
}

// Executor is the consumed local command-execution capability. Run spawns
// the given shell command line on the controlling machine.
//
// A non-nil error means the command could not be dispatched at all. A nil
// error with ok == false is a normal non-zero exit, reported together with
// the captured output.
type Executor interface {
	Run(ctx context.Context, command string, opts ExecOptions) (ok bool, out CommandOutput, err error)
}

// FileSource identifies the content of an upload: either a path on the
// controlling machine or an open reader. When both are set the path wins
// if it names a regular file.
type FileSource struct {
	Path   string
	Reader io.Reader
}

// FileDest identifies where a download lands: either a path on the
// controlling machine or an open writer. When both are set the writer
// wins.
type FileDest struct {
	Path   string
	Writer io.Writer
}

// Connector is the contract every target connector implements.
//
// All calls are synchronous and blocking; the connector layer introduces
// no parallelism of its own. Callers may parallelize across independent
// targets externally.
type Connector interface {
	// Kind returns the connector kind used in "@<kind>/..." target
	// references produced by this connector's own operations.
	Kind() string

	// HandlesExecution reports whether the connector can execute
	// commands and transfer files itself. Inventory-only connectors
	// return false; their records are bound to another connector kind.
	HandlesExecution() bool

	// Discover enumerates the targets matching pattern. An empty pattern
	// means "all". On failure no partial results are returned.
	Discover(ctx context.Context, pattern string) ([]Record, error)

	// Execute runs a shell command on the bound target. A non-zero exit
	// of the remote command is reported as ok == false with captured
	// output, not as an error.
	Execute(ctx context.Context, command string, opts ExecOptions) (ok bool, out CommandOutput, err error)

	// Upload copies a local file or stream to remotePath on the target.
	Upload(ctx context.Context, src FileSource, remotePath string, opts ExecOptions) error

	// Download copies remotePath from the target into dst.
	Download(ctx context.Context, remotePath string, dst FileDest, opts ExecOptions) error
}
