//go:build unix

package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// wakeSignals delivers a value for every SIGUSR1 until ctx is done.
func wakeSignals(ctx context.Context) <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	go func() {
		<-ctx.Done()
		signal.Stop(ch)
	}()
	return ch
}

// notifyDaemon asks a running daemon to drain now. It reports whether a
// daemon was found and signalled.
func notifyDaemon() bool {
	pid, ok := runningDaemon()
	if !ok {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	if err := p.Signal(syscall.SIGUSR1); err != nil {
		slog.Debug("wake daemon", "pid", pid, "err", err)
		return false
	}
	return true
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}
