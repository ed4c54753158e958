package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vempat/vempat/internal/connectivity"
	"github.com/vempat/vempat/internal/output"
	vsync "github.com/vempat/vempat/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Push queued changes to the remote store now",
	Long: `Drains the sync queue once. If "vempat daemon" is running it is asked
to drain instead, so two processes never send the same entries.`,
	GroupID: "sync",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		local, _ := cmd.Flags().GetBool("local")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if !local && notifyDaemon() {
			output.Info("Asked the running daemon to sync")
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		return withApp(cmd, func(_ context.Context, a *app) error {
			res, err := syncOnce(ctx, a)
			if err != nil {
				return err
			}
			st, err := a.queue.Stats(context.WithoutCancel(ctx))
			if err != nil {
				return err
			}
			return printJSONOr(cmd, map[string]any{"result": res, "queue": st}, func() {
				fmt.Println(formatDrainResult(res))
				fmt.Println(output.FormatQueueStats(st))
			})
		})
	},
}

// syncOnce probes the configured remote and drains once when it is
// reachable. It returns vsync.ErrOffline otherwise.
func syncOnce(ctx context.Context, a *app) (vsync.DrainResult, error) {
	rc, err := openRemote()
	if err != nil {
		return vsync.DrainResult{}, err
	}
	defer rc.Close()

	mon := connectivity.NewMonitor(rc.prober, connectivity.Options{Timeout: connectivity.DefaultTimeout})
	if online, _ := mon.Check(ctx); !online {
		return vsync.DrainResult{}, fmt.Errorf("%s remote: %w", rc.kind, vsync.ErrOffline)
	}
	return a.repo.SyncNow(ctx, rc.reconciler)
}

func formatDrainResult(res vsync.DrainResult) string {
	if res.Processed == 0 {
		return "Nothing to send"
	}
	s := fmt.Sprintf("Sent %d of %d", res.Succeeded, res.Processed)
	if res.Retried > 0 {
		s += fmt.Sprintf(", %d will retry", res.Retried)
	}
	if res.Quarantined > 0 {
		s += fmt.Sprintf(", %d failed permanently", res.Quarantined)
	}
	if res.Skipped > 0 {
		s += fmt.Sprintf(" (%d not due)", res.Skipped)
	}
	return s
}

func init() {
	syncCmd.Flags().Bool("local", false, "Drain in this process even if a daemon is running")
	syncCmd.Flags().Duration("timeout", time.Minute, "Give up after this long")
	syncCmd.Flags().Bool("json", false, "Output as JSON")
	rootCmd.AddCommand(syncCmd)
}
