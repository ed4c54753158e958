package cmd

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// autoSyncTimeout bounds the quick drain after a mutating command.
const autoSyncTimeout = 5 * time.Second

// mutatingCommands lists commands that modify local data and should trigger auto-sync.
var mutatingCommands = map[string]bool{
	"product add":     true,
	"product update":  true,
	"product delete":  true,
	"sale record":     true,
	"movement add":    true,
	"movement delete": true,
	"supplier add":    true,
	"supplier update": true,
	"supplier delete": true,
	"po create":       true,
	"po receive":      true,
	"po status":       true,
	"po delete":       true,
	"queue retry":     true,
}

// isMutatingCommand checks if the given command key triggers auto-sync.
func isMutatingCommand(key string) bool {
	return mutatingCommands[key]
}

// AutoSyncEnabled returns true if auto-sync is enabled.
// VEMPAT_AUTO_SYNC=0 or false turns it off; it is on by default.
func AutoSyncEnabled() bool {
	if v := os.Getenv("VEMPAT_AUTO_SYNC"); v != "" {
		return v == "1" || v == "true"
	}
	return true
}

// autoSyncAfterMutation pushes right after a mutating command. A running
// daemon is woken instead; otherwise a short drain runs in-process. Errors
// are logged, not returned: the change is already queued locally.
func autoSyncAfterMutation(ctx context.Context) {
	if !AutoSyncEnabled() {
		return
	}
	if notifyDaemon() {
		slog.Debug("autosync: woke daemon")
		return
	}

	a, err := openApp(nil)
	if err != nil {
		slog.Debug("autosync: open db", "err", err)
		return
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, autoSyncTimeout)
	defer cancel()

	res, err := syncOnce(ctx, a)
	if err != nil {
		slog.Debug("autosync: drain", "err", err)
		return
	}
	slog.Debug("autosync: drained", "succeeded", res.Succeeded, "retried", res.Retried)
}
