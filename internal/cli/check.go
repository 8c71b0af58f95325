package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pewwatch/internal/app"
	"pewwatch/internal/notify"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <name>",
		Short: "Check one configured endpoint once and print the result",
		Long: `Check one configured endpoint once and print the result.

Nothing is sent to Slack or Telegram and no state is stored. The command
exits non-zero when the check fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath(cmd))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			res, err := app.CheckEndpoint(ctx, cfg, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "endpoint: %s\n", args[0])
			fmt.Fprintf(out, "status:   %d\n", res.Status)
			fmt.Fprintf(out, "took:     %s\n", res.Took.Round(time.Millisecond))
			if res.Success() {
				fmt.Fprintln(out, "result:   up")
				return nil
			}
			fmt.Fprintf(out, "result:   down\nreason:   %s\n", notify.FormatReason(res.Err))
			return fmt.Errorf("endpoint %q is down", args[0])
		},
	}
}
