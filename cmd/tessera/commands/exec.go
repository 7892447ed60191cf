package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tessera-io/tessera/pkg/connectors"
)

func newExecCommand() *cobra.Command {
	var (
		workingDir string
		envPairs   []string
		userID     int
		wantPTY    bool
	)

	cmd := &cobra.Command{
		Use:   "exec <@connector/target> -- <command...>",
		Short: "Execute a shell command on a target",
		Example: `  # Run a command inside a local instance
  tessera exec @incus/web1 -- uname -a

  # Run on an instance of a named remote, as uid 1000
  tessera exec --user 1000 @incus/myremote:db1 -- whoami`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, registry, err := setup()
			if err != nil {
				return err
			}

			conn, err := registry.Open(args[0])
			if err != nil {
				return err
			}
			if !conn.HandlesExecution() {
				return fmt.Errorf("connector %q cannot execute commands", conn.Kind())
			}

			opts := connectors.ExecOptions{
				WorkingDir:  workingDir,
				WantPTY:     wantPTY,
				PrintOutput: true,
				PrintInput:  verbose,
			}
			if userID >= 0 {
				opts.UserID = &userID
			}
			if len(envPairs) > 0 {
				opts.Env = make(map[string]string, len(envPairs))
				for _, pair := range envPairs {
					key, value, found := strings.Cut(pair, "=")
					if !found {
						return fmt.Errorf("invalid --env value %q, expected KEY=VALUE", pair)
					}
					opts.Env[key] = value
				}
			}

			ok, out, err := conn.Execute(cmd.Context(), strings.Join(args[1:], " "), opts)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("remote command exited non-zero: %s", out.Stderr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workingDir, "cwd", "", "directory to run the command in")
	cmd.Flags().StringArrayVar(&envPairs, "env", nil, "environment variable to set (KEY=VALUE, repeatable)")
	cmd.Flags().IntVar(&userID, "user", -1, "numeric user id to run the command as")
	cmd.Flags().BoolVarP(&wantPTY, "pty", "t", false, "request a pseudo-terminal")

	return cmd
}
