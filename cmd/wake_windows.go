//go:build windows

package cmd

import (
	"context"
	"os"

	"golang.org/x/sys/windows"
)

const stillActive = 259

// wakeSignals never fires on windows; the daemon drains on its interval.
func wakeSignals(ctx context.Context) <-chan os.Signal {
	return make(chan os.Signal)
}

// notifyDaemon reports whether a daemon is running. There is no wake
// signal, so a running daemon picks the work up on its next tick.
func notifyDaemon() bool {
	_, ok := runningDaemon()
	return ok
}

func processAlive(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == stillActive
}
