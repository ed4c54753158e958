package connectivity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vempat/vempat/internal/remote"
)

func TestCheckReportsTransitions(t *testing.T) {
	var down atomic.Bool
	m := NewMonitor(ProberFunc(func(ctx context.Context) error {
		if down.Load() {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	}), Options{})
	ctx := context.Background()

	if m.Online() {
		t.Fatal("online before first probe")
	}
	if online, changed := m.Check(ctx); !online || !changed {
		t.Errorf("first probe: online=%v changed=%v", online, changed)
	}
	if _, changed := m.Check(ctx); changed {
		t.Error("steady state reported as change")
	}

	down.Store(true)
	if online, changed := m.Check(ctx); online || !changed {
		t.Errorf("going down: online=%v changed=%v", online, changed)
	}
	if m.Online() {
		t.Error("Online() should be false")
	}
}

func TestProbeTimeout(t *testing.T) {
	m := NewMonitor(ProberFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	online, _ := m.Check(context.Background())
	if online {
		t.Error("hung probe reported online")
	}
	if time.Since(start) > time.Second {
		t.Errorf("probe not bounded by timeout: %v", time.Since(start))
	}
}

func TestWatchDeliversChanges(t *testing.T) {
	var calls atomic.Int32
	m := NewMonitor(ProberFunc(func(ctx context.Context) error {
		// offline, offline, then online for good
		if calls.Add(1) <= 2 {
			return errors.New("unreachable")
		}
		return nil
	}), Options{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := m.Watch(ctx)

	want := []bool{false, true}
	for i, w := range want {
		select {
		case got := <-ch:
			if got != w {
				t.Fatalf("transition %d: got %v, want %v", i, got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("transition %d: timed out", i)
		}
	}

	cancel()
	for range ch {
	}
}

func TestHTTPProber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	p := HTTPProber(remote.NewClient(srv.URL, ""))

	if err := p.Probe(context.Background()); err != nil {
		t.Fatalf("probe: %v", err)
	}
	srv.Close()
	if err := p.Probe(context.Background()); err == nil {
		t.Error("probe of closed server succeeded")
	}
}
