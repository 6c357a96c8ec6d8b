package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richardthorek/Station-Manager-sub004/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, connectivity, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				runningKind := statusError
				if status.Running {
					runningKind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine("Running", runningKind, fmt.Sprintf("pid %d", status.PID), colorize))

				onlineKind := statusWarn
				onlineDetail := "server unreachable, queueing locally"
				if status.Online {
					onlineKind = statusOK
					onlineDetail = "server reachable"
				}
				fmt.Fprintln(stdout, renderStatusLine("Connectivity", onlineKind, onlineDetail, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Draining", statusInfo, yesNo(status.Draining), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, status.QueueDBPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, status.SocketPath, colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Queue", colorize) {
					fmt.Fprintln(stdout, line)
				}
				if status.Total == 0 {
					fmt.Fprintln(stdout, "Queue is empty")
					return nil
				}

				rows := statusCountRows(status.Pending, status.Syncing, status.Synced, status.Failed, status.Total)
				fmt.Fprintln(stdout, renderCountTable(rows))
				return nil
			})
		},
	}
}
