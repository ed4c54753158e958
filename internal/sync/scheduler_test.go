package sync

import (
	"context"
	"errors"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vempat/vempat/internal/memstore"
	"github.com/vempat/vempat/internal/models"
)

func TestDrainOfflineMakesNoCalls(t *testing.T) {
	ms := memstore.New()
	q := New(ms, Options{})
	var calls int32
	s := NewScheduler(q, HandlerFunc(func(ctx context.Context, e models.QueueEntry) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}), SchedulerOptions{})

	q.Enqueue(context.Background(), models.OpCreate, models.CollectionProducts, "p1", p1(1))
	if _, err := s.Drain(context.Background()); !errors.Is(err, ErrOffline) {
		t.Fatalf("drain offline: got %v, want ErrOffline", err)
	}
	if calls != 0 {
		t.Errorf("reconciler called %d times while offline", calls)
	}
}

func TestOverlappingDrainsCollapse(t *testing.T) {
	ms := memstore.New()
	q := New(ms, Options{})
	ctx := context.Background()
	q.Enqueue(ctx, models.OpCreate, models.CollectionProducts, "p1", p1(1))

	release := make(chan struct{})
	started := make(chan struct{})
	var calls int32
	var drains int32
	s := NewScheduler(q, HandlerFunc(func(ctx context.Context, e models.QueueEntry) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return nil
	}), SchedulerOptions{Online: true, OnDrain: func(DrainResult, error) { atomic.AddInt32(&drains, 1) }})

	var wg gosync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Drain(ctx)
	}()
	<-started

	results := make(chan DrainResult, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, _ := s.Drain(ctx)
		results <- res
	}()

	// Give the second caller time to join the in-flight drain
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("reconciler calls: got %d, want 1", calls)
	}
	if drains != 1 {
		t.Errorf("drains: got %d, want 1", drains)
	}
	if res := <-results; res.Succeeded != 1 {
		t.Errorf("joined caller result: %+v", res)
	}
}

func TestRunDrainsOnReconnect(t *testing.T) {
	ms := memstore.New()
	q := New(ms, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q.Enqueue(ctx, models.OpCreate, models.CollectionProducts, "p1", p1(1))

	done := make(chan DrainResult, 4)
	s := NewScheduler(q, HandlerFunc(func(ctx context.Context, e models.QueueEntry) error { return nil }),
		SchedulerOptions{Interval: time.Hour, OnDrain: func(res DrainResult, err error) { done <- res }})

	transitions := make(chan bool, 1)
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx, transitions) }()

	transitions <- true

	select {
	case res := <-done:
		if res.Succeeded != 1 {
			t.Errorf("drain result: %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no drain after going online")
	}
	if !s.Online() {
		t.Error("scheduler should be online")
	}
	if ms.Len() != 0 {
		t.Errorf("outbox: %d entries left", ms.Len())
	}

	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}
}

func TestWakeTriggersDrain(t *testing.T) {
	ms := memstore.New()
	q := New(ms, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{}, 4)
	s := NewScheduler(q, HandlerFunc(func(ctx context.Context, e models.QueueEntry) error { return nil }),
		SchedulerOptions{Interval: time.Hour, Online: true, OnDrain: func(DrainResult, error) { done <- struct{}{} }})
	go s.Run(ctx, nil)

	q.Enqueue(ctx, models.OpDelete, models.CollectionSales, "r1", nil)
	s.Wake()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("wake did not trigger a drain")
	}
}
