package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sqlbridge/pkg/bridge"
)

const modulePath = "github.com/mesh-intelligence/sqlbridge"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sqlbridge and SQLite versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.jsonMode {
				output, err := json.MarshalIndent(map[string]string{
					"version": bridge.Version,
					"module":  modulePath,
					"sqlite":  bridge.EngineVersion(),
				}, "", "  ")
				if err != nil {
					return sysError(fmt.Errorf("marshal version: %w", err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sqlbridge v%s\nmodule: %s\nsqlite: %s\n",
				bridge.Version, modulePath, bridge.EngineVersion())
			return nil
		},
	}
}
