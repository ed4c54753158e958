// Package connectivity decides whether the remote document store is
// reachable and reports online/offline transitions.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultTimeout  = 3 * time.Second
)

// Prober checks reachability once. A nil error means online.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// Options configures a Monitor.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Monitor probes on an interval and tracks the last known state.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration

	mu     sync.Mutex
	known  bool
	online bool
}

// NewMonitor returns a monitor using p.
func NewMonitor(p Prober, opts Options) *Monitor {
	m := &Monitor{prober: p, interval: opts.Interval, timeout: opts.Timeout}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.timeout <= 0 {
		m.timeout = DefaultTimeout
	}
	return m
}

// Online returns the last probe result; false before the first probe.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Check probes once and returns the new state and whether it changed. The
// first probe always counts as a change.
func (m *Monitor) Check(ctx context.Context) (online, changed bool) {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.prober.Probe(pctx)
	cancel()
	online = err == nil

	m.mu.Lock()
	changed = !m.known || m.online != online
	m.known = true
	m.online = online
	m.mu.Unlock()

	if changed {
		if online {
			slog.Info("connectivity: online")
		} else {
			slog.Info("connectivity: offline", "err", err)
		}
	}
	return online, changed
}

// Watch probes immediately and then every interval, delivering each state
// change on the returned channel. The channel is closed when ctx is done.
func (m *Monitor) Watch(ctx context.Context) <-chan bool {
	out := make(chan bool, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			if online, changed := m.Check(ctx); changed {
				select {
				case out <- online:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}
