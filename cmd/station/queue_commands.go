package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/richardthorek/Station-Manager-sub004/internal/ipc"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the offline action queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueList(listStatuses)
				if err != nil {
					return err
				}
				if len(resp.Items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderActionTable(buildQueueListRows(resp.Items)))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status (pending, syncing, synced, failed)")
	return cmd
}

func buildQueueListRows(items []ipc.ActionItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			shortID(item.ID),
			kindLabel(item.Kind),
			item.Method + " " + item.Endpoint,
			item.Status,
			strconv.Itoa(item.RetryCount),
			item.EnqueuedAt,
		})
	}
	return rows
}

// shortID trims UUIDs to their first group for table display.
func shortID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	return id
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a queued action in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueGet(args[0])
				if err != nil {
					return err
				}
				item := resp.Item

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				for _, line := range renderSectionHeader("Action "+shortID(item.ID), colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("ID", statusInfo, item.ID, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Kind", statusInfo, kindLabel(item.Kind), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Request", statusInfo, item.Method+" "+item.Endpoint, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Status", actionStatusKind(item.Status), item.Status, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Retries", statusInfo, strconv.Itoa(item.RetryCount), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Enqueued", statusInfo, item.EnqueuedAt, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Updated", statusInfo, item.UpdatedAt, colorize))
				if item.LastError != "" {
					fmt.Fprintln(stdout, renderStatusLine("Last error", statusError, item.LastError, colorize))
				}
				if item.Payload != "" {
					fmt.Fprintln(stdout, renderStatusLine("Payload", statusInfo, item.Payload, colorize))
				}
				return nil
			})
		},
	}
}

func actionStatusKind(status string) statusKind {
	switch status {
	case "synced":
		return statusOK
	case "failed":
		return statusError
	case "syncing":
		return statusWarn
	default:
		return statusInfo
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queued actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				var removed int64
				if failedOnly {
					resp, err := client.QueueClearFailed()
					if err != nil {
						return err
					}
					removed = resp.Removed
				} else {
					resp, err := client.QueueClear()
					if err != nil {
						return err
					}
					removed = resp.Removed
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d actions\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only remove failed actions")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Requeue failed actions for another sync attempt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueRetry(args)
				if err != nil {
					return err
				}
				if resp.Updated == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No failed actions to retry")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d actions\n", resp.Updated)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a single action from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueRemove(args[0])
				if err != nil {
					return err
				}
				if !resp.Removed {
					return errors.New("no action found with id " + args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Action removed")
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run queue and database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				health, err := client.QueueHealth()
				if err != nil {
					return err
				}
				db, err := client.DatabaseHealth()
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Queue", colorize) {
					fmt.Fprintln(stdout, line)
				}
				rows := statusCountRows(health.Pending, health.Syncing, health.Synced, health.Failed, health.Total)
				fmt.Fprintln(stdout, renderCountTable(rows))

				for _, line := range renderSectionHeader("Database", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Path", statusInfo, db.DBPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Exists", boolKind(db.DatabaseExists), yesNo(db.DatabaseExists), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Readable", boolKind(db.DatabaseReadable), yesNo(db.DatabaseReadable), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Schema", statusInfo, db.SchemaVersion, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Table", boolKind(db.TableExists), yesNo(db.TableExists), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Integrity", boolKind(db.IntegrityCheck), yesNo(db.IntegrityCheck), colorize))
				if len(db.MissingColumns) > 0 {
					fmt.Fprintln(stdout, renderStatusLine("Missing columns", statusError, strings.Join(db.MissingColumns, ", "), colorize))
				}
				if db.Error != "" {
					fmt.Fprintln(stdout, renderStatusLine("Error", statusError, db.Error, colorize))
				}
				return nil
			})
		},
	}
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}
