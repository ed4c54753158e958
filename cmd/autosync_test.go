package cmd

import "testing"

func TestIsMutatingCommand(t *testing.T) {
	// Commands that should trigger auto-sync
	mutating := []string{"product add", "product update", "product delete", "sale record", "movement add", "supplier add", "po create", "po receive", "po status", "queue retry"}
	for _, key := range mutating {
		if !isMutatingCommand(key) {
			t.Errorf("expected %q to be mutating", key)
		}
	}

	// Commands that should NOT trigger auto-sync
	readOnly := []string{"product list", "product show", "sale list", "queue stats", "queue failed", "queue discard", "sync", "daemon", "monitor", "stats", "login", "config set", "help"}
	for _, key := range readOnly {
		if isMutatingCommand(key) {
			t.Errorf("expected %q to NOT be mutating", key)
		}
	}
}

func TestAutoSyncEnabled_Default(t *testing.T) {
	// With no env var set, auto-sync should be enabled by default
	t.Setenv("VEMPAT_AUTO_SYNC", "")
	if !AutoSyncEnabled() {
		t.Error("expected auto-sync enabled by default")
	}
}

func TestAutoSyncEnabled_Disabled(t *testing.T) {
	t.Setenv("VEMPAT_AUTO_SYNC", "0")
	if AutoSyncEnabled() {
		t.Error("expected auto-sync disabled when VEMPAT_AUTO_SYNC=0")
	}
}

func TestAutoSyncEnabled_Explicit(t *testing.T) {
	t.Setenv("VEMPAT_AUTO_SYNC", "true")
	if !AutoSyncEnabled() {
		t.Error("expected auto-sync enabled when VEMPAT_AUTO_SYNC=true")
	}

	t.Setenv("VEMPAT_AUTO_SYNC", "1")
	if !AutoSyncEnabled() {
		t.Error("expected auto-sync enabled when VEMPAT_AUTO_SYNC=1")
	}
}

func TestCommandKey(t *testing.T) {
	if got := commandKey(productAddCmd); got != "product add" {
		t.Errorf("commandKey(product add) = %q", got)
	}
	if got := commandKey(syncCmd); got != "sync" {
		t.Errorf("commandKey(sync) = %q", got)
	}
}
