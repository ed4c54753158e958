package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/output"
)

var queueCmd = &cobra.Command{
	Use:     "queue",
	Aliases: []string{"q"},
	Short:   "Inspect and repair the sync queue",
	GroupID: "sync",
}

var queueStatsCmd = &cobra.Command{
	Use:     "stats",
	Aliases: []string{"status"},
	Short:   "Show pending and failed counts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			st, err := a.queue.Stats(ctx)
			if err != nil {
				return err
			}
			return printJSONOr(cmd, st, func() {
				fmt.Println(output.FormatQueueStats(st))
			})
		})
	},
}

var queueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List every queued entry in order",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			entries, err := a.queue.List(ctx)
			if err != nil {
				return err
			}
			return printJSONOr(cmd, entries, func() {
				if len(entries) == 0 {
					fmt.Println(output.FormatQueueStats(models.QueueStats{}))
					return
				}
				now := time.Now()
				for i := range entries {
					fmt.Println(output.FormatQueueEntry(&entries[i], now))
				}
			})
		})
	},
}

var queueFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List quarantined entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, _ := cmd.Flags().GetBool("report")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			failed, err := a.queue.Failed(ctx)
			if err != nil {
				return err
			}
			if report {
				rendered, err := output.RenderMarkdown(output.FailedReport(failed))
				if err != nil {
					return err
				}
				fmt.Print(rendered)
				return nil
			}
			return printJSONOr(cmd, failed, func() {
				if len(failed) == 0 {
					fmt.Println("No failed entries")
					return
				}
				now := time.Now()
				for i := range failed {
					fmt.Println(output.FormatQueueEntry(&failed[i], now))
				}
			})
		})
	},
}

var queueRetryCmd = &cobra.Command{
	Use:   "retry [id...]",
	Short: "Requeue failed entries with a fresh attempt budget",
	Long:  `Without ids every failed entry is requeued.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseEntryIDs(args)
		if err != nil {
			return fail(err)
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			n, err := a.queue.RetryFailed(ctx, ids...)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Println("No failed entries")
				return nil
			}
			output.Success("Requeued %d entries", n)
			notifyDaemon()
			return nil
		})
	},
}

var queueDiscardCmd = &cobra.Command{
	Use:   "discard <id>",
	Short: "Drop an entry without sending it",
	Long: `Drops the entry from the queue. The local record is kept, so the
remote copy stays out of date until the record changes again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseEntryIDs(args)
		if err != nil {
			return fail(err)
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.queue.Discard(ctx, ids[0]); err != nil {
				return err
			}
			output.Warning("Discarded entry #%d", ids[0])
			return nil
		})
	},
}

func parseEntryIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, s := range args {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("bad entry id %q", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func init() {
	queueStatsCmd.Flags().Bool("json", false, "Output as JSON")
	queueListCmd.Flags().Bool("json", false, "Output as JSON")
	queueFailedCmd.Flags().Bool("json", false, "Output as JSON")
	queueFailedCmd.Flags().Bool("report", false, "Render a markdown report")

	queueCmd.AddCommand(queueStatsCmd, queueListCmd, queueFailedCmd, queueRetryCmd, queueDiscardCmd)
	rootCmd.AddCommand(queueCmd)
}
