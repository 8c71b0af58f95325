// Package cli provides the cobra commands of the pewwatch binary: the daemon
// itself (run) and one-shot helpers (check, validate, history, notify-test).
package cli

import (
	"github.com/spf13/cobra"

	"pewwatch/internal/app"
)

const defaultConfigPath = "./pewwatch.yaml"

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pewwatch",
		Short:         "Endpoint uptime monitor with Slack and Telegram notifications",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Run the monitor
  pewwatch run -c /etc/pewwatch/pewwatch.yaml

  # Check one endpoint right now
  pewwatch check api

  # Show the last 50 notifications
  pewwatch history -n 50`,
	}
	root.PersistentFlags().StringP("config", "c", defaultConfigPath, "Path to config file (JSON or YAML)")

	root.AddCommand(
		newRunCmd(),
		newCheckCmd(),
		newValidateCmd(),
		newHistoryCmd(),
		newNotifyTestCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		root.PrintErrln("Error:", err)
	}
	return err
}

func configPath(cmd *cobra.Command) string {
	p, _ := cmd.Flags().GetString("config")
	if p == "" {
		return defaultConfigPath
	}
	return p
}
