package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tessera-io/tessera/pkg/connectors"
)

func newInventoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory <@connector/pattern>",
		Short: "Discover targets matching a pattern",
		Long: `Discover targets through a connector and print their inventory
records: target reference, group tags and attributes.`,
		Example: `  # All instances on the local incus server
  tessera inventory @incus/

  # All instances on a named remote
  tessera inventory @incus/myremote:

  # Cloud hosts named webserver in the dev and prod resource groups
  tessera inventory @azure/dev,prod/webserver`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, registry, err := setup()
			if err != nil {
				return err
			}

			kind, pattern, err := connectors.ParseRef(args[0])
			if err != nil {
				return err
			}

			conn, err := registry.Open("@" + kind + "/")
			if err != nil {
				return err
			}

			records, err := conn.Discover(cmd.Context(), pattern)
			if err != nil {
				return err
			}

			for _, rec := range records {
				attrs, _ := json.Marshal(rec.Attributes)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tgroups=%s\t%s\n",
					rec.Ref, strings.Join(rec.Groups, ","), attrs)
			}
			return nil
		},
	}

	return cmd
}
