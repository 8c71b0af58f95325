package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pewwatch/internal/app"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Parse and validate the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath(cmd)
			cfg, err := app.LoadConfig(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			enabled := 0
			for _, ep := range cfg.Endpoints {
				if ep.Enabled {
					enabled++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d endpoints, %d enabled)\n", path, len(cfg.Endpoints), enabled)
			return nil
		},
	}
}
