package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richardthorek/Station-Manager-sub004/internal/ipc"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Drain the action queue now and wait for the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SyncNow()
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				if resp.Synced == 0 && resp.Failed == 0 && !resp.Unreachable {
					fmt.Fprintln(stdout, "Nothing to sync")
					return nil
				}

				fmt.Fprintf(stdout, "Synced %d, failed %d in %dms\n", resp.Synced, resp.Failed, resp.DurationMS)
				if resp.Failed > 0 && resp.ErrorDetail != "" {
					fmt.Fprintf(stdout, "Last failure: %s\n", resp.ErrorDetail)
				}
				if resp.Unreachable {
					message := resp.Message
					if message == "" {
						message = "server unreachable"
					}
					fmt.Fprintf(stdout, "%s (%d actions still pending)\n", message, resp.Remaining)
				}
				return nil
			})
		},
	}
}
