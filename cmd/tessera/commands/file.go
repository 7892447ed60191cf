package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tessera-io/tessera/pkg/connectors"
)

func newPushCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push <@connector/target> <local|-> <remote>",
		Short: "Upload a file to a target",
		Long: `Upload a local file (or stdin when the source is "-") to a path
on the target.`,
		Example: `  tessera push @incus/web1 ./nginx.conf /etc/nginx/nginx.conf

  echo hello | tessera push @incus/web1 - /tmp/greeting`,
		Args: cobra.ExactArgs(3),
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
				return fmt.Errorf("connector %q cannot transfer files", conn.Kind())
			}

			src := connectors.FileSource{Path: args[1]}
			if args[1] == "-" {
				src = connectors.FileSource{Reader: cmd.InOrStdin()}
			}

			return conn.Upload(cmd.Context(), src, args[2], connectors.ExecOptions{
				PrintOutput: true,
				PrintInput:  verbose,
			})
		},
	}

	return cmd
}

func newPullCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull <@connector/target> <remote> <local|->",
		Short: "Download a file from a target",
		Long: `Download a file from the target into a local path (or stdout when
the destination is "-").`,
		Example: `  tessera pull @incus/web1 /var/log/nginx/access.log ./access.log`,
		Args: cobra.ExactArgs(3),
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
				return fmt.Errorf("connector %q cannot transfer files", conn.Kind())
			}

			dst := connectors.FileDest{Path: args[2]}
			printOutput := true
			if args[2] == "-" {
				dst = connectors.FileDest{Writer: os.Stdout}
				// Keep the confirmation line off the payload stream.
				printOutput = false
			}

			return conn.Download(cmd.Context(), args[1], dst, connectors.ExecOptions{
				PrintOutput: printOutput,
				PrintInput:  verbose,
			})
		},
	}

	return cmd
}
