package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vempat/vempat/internal/connectivity"
	"github.com/vempat/vempat/internal/output"
	vsync "github.com/vempat/vempat/internal/sync"
	"github.com/vempat/vempat/pkg/monitor"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard of the sync queue",
	Long: `Launch a live-updating dashboard showing whether the remote is
reachable, pending and failed counts, and every queued entry.

Key bindings:
  r    Force refresh
  s    Sync now
  R    Requeue failed entries
  j/k  Scroll
  q    Quit`,
	GroupID: "sync",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval < 500*time.Millisecond {
			interval = 2 * time.Second
		}

		a, err := openApp(nil)
		if err != nil {
			return fail(err)
		}
		defer a.Close()

		rc, err := openRemote()
		if err != nil {
			return fail(err)
		}
		defer rc.Close()

		mon := connectivity.NewMonitor(rc.prober, connectivity.Options{})
		actions := monitor.Actions{
			Probe: func(ctx context.Context) bool {
				online, _ := mon.Check(ctx)
				return online
			},
			Sync: func(ctx context.Context) (vsync.DrainResult, error) {
				if notifyDaemon() {
					return vsync.DrainResult{}, nil
				}
				if online, _ := mon.Check(ctx); !online {
					return vsync.DrainResult{}, vsync.ErrOffline
				}
				return a.repo.SyncNow(ctx, rc.reconciler)
			},
			Retry: func(ctx context.Context) (int, error) {
				return a.queue.RetryFailed(ctx)
			},
		}

		model := monitor.NewModel(a.queue, actions, interval, version)
		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			output.Error("monitor: %v", err)
			return fmt.Errorf("error running monitor: %w", err)
		}
		return nil
	},
}

func init() {
	monitorCmd.Flags().Duration("interval", 2*time.Second, "Refresh interval")
	rootCmd.AddCommand(monitorCmd)
}
