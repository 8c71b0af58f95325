package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pewwatch/internal/app"
	"pewwatch/internal/storage"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent notifications from storage, newest first",
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
			list, err := app.History(ctx, cfg, limit)
			if errors.Is(err, storage.ErrDisabled) {
				return errors.New("storage is disabled; set storage.driver to keep notification history")
			}
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tCHANNEL\tRESULT\tTEXT")
			for _, n := range list {
				result := "ok"
				if n.Error != "" {
					result = "failed: " + n.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", humanize.RelTime(n.At, time.Now(), "ago", "from now"), n.Channel, result, firstLine(n.Text))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (max 1000)")
	return cmd
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
