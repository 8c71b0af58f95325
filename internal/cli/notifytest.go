package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pewwatch/internal/app"
)

const defaultTestMessage = "This is a test notification from pewwatch."

func newNotifyTestCmd() *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test message through the configured transports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(configPath(cmd))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			channel, err := app.SendTest(ctx, cfg, text)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent via %s\n", channel)
			return nil
		},
	}
	cmd.Flags().StringVarP(&text, "message", "m", defaultTestMessage, "Message text")
	return cmd
}
