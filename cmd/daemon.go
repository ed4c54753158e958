package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vempat/vempat/internal/config"
	"github.com/vempat/vempat/internal/connectivity"
	"github.com/vempat/vempat/internal/output"
	vsync "github.com/vempat/vempat/internal/sync"
)

const pidFileName = "daemon.pid"

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Keep the queue draining in the background",
	Long: `Runs until interrupted. The remote is probed on an interval and the
queue is drained on a timer, whenever the remote comes back online, and
whenever another vempat command asks for it (SIGUSR1 on unix).`,
	GroupID: "sync",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runDaemon(ctx, metricsAddr); err != nil && !errors.Is(err, context.Canceled) {
			output.Error("%v", err)
			return err
		}
		return nil
	},
}

func runDaemon(ctx context.Context, metricsAddr string) error {
	if pid, ok := runningDaemon(); ok {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}

	a, err := openApp(vsync.NewMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		return err
	}
	defer a.Close()

	rc, err := openRemote()
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := writePIDFile(); err != nil {
		return err
	}
	defer removePIDFile()

	mon := connectivity.NewMonitor(rc.prober, connectivity.Options{Interval: config.ProbeInterval()})
	sched := vsync.NewScheduler(a.queue, rc.reconciler, vsync.SchedulerOptions{
		Interval: config.DrainInterval(),
	})

	slog.Info("daemon: started",
		"remote", rc.kind, "data_dir", config.DataDir(),
		"interval", config.DrainInterval(), "probe_interval", config.ProbeInterval())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx, mon.Watch(gctx))
	})
	g.Go(func() error {
		wake := wakeSignals(gctx)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-wake:
				slog.Debug("daemon: wake requested")
				sched.Wake()
			}
		}
	})
	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			slog.Info("daemon: metrics listening", "addr", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	err = g.Wait()
	slog.Info("daemon: stopped")
	return err
}

func pidFilePath() string {
	return filepath.Join(config.DataDir(), pidFileName)
}

func writePIDFile() error {
	if err := os.MkdirAll(config.DataDir(), 0o755); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(), []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

func removePIDFile() {
	if err := os.Remove(pidFilePath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Debug("daemon: remove pid file", "err", err)
	}
}

// runningDaemon returns the pid of a live daemon for this data dir. A pid
// file left behind by a crashed daemon is ignored.
func runningDaemon() (int, bool) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return 0, false
	}
	if !processAlive(pid) {
		return 0, false
	}
	return pid, true
}

func init() {
	daemonCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9102")
	rootCmd.AddCommand(daemonCmd)
}
