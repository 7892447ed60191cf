package connectors

import (
	"sort"

	"github.com/kballard/go-shellquote"
)

// MakeUnixCommand folds the working-directory and environment directives
// from opts around the caller's logical command, producing a single shell
// command line suitable for quoting into a `sh -c` argument.
//
// Environment variables are rendered as an `env K=V ...` prefix with keys
// in sorted order; the working directory becomes a leading `cd <dir> && `.
// The run-as user id is not folded here: connectors pass it through their
// CLI's native flag instead.
func MakeUnixCommand(command string, opts ExecOptions) string {
	composed := command

	if len(opts.Env) > 0 {
		keys := make([]string, 0, len(opts.Env))
		for k := range opts.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+opts.Env[k])
		}
		composed = "env " + shellquote.Join(pairs...) + " " + composed
	}

	if opts.WorkingDir != "" {
		composed = "cd " + shellquote.Join(opts.WorkingDir) + " && " + composed
	}

	return composed
}
