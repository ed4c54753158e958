package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultInterval is the periodic drain interval.
const DefaultInterval = 5 * time.Second

// ErrOffline is returned by Drain while the scheduler believes the remote is
// unreachable.
var ErrOffline = errors.New("offline")

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	Interval time.Duration
	// Online is the initial connectivity state.
	Online bool
	// OnDrain, if set, is called after every drain attempt.
	OnDrain func(DrainResult, error)
}

// Scheduler triggers queue drains on a timer, on offline to online
// transitions and on explicit wake requests. Overlapping triggers collapse
// into the drain already running.
type Scheduler struct {
	queue    *Queue
	rec      Reconciler
	interval time.Duration
	onDrain  func(DrainResult, error)

	online atomic.Bool
	group  singleflight.Group
	wake   chan struct{}
}

// NewScheduler returns a scheduler draining q through r.
func NewScheduler(q *Queue, r Reconciler, opts SchedulerOptions) *Scheduler {
	s := &Scheduler{
		queue:    q,
		rec:      r,
		interval: opts.Interval,
		onDrain:  opts.OnDrain,
		wake:     make(chan struct{}, 1),
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	s.online.Store(opts.Online)
	return s
}

// Online reports the last known connectivity state.
func (s *Scheduler) Online() bool { return s.online.Load() }

// SetOnline records a connectivity change. Going online requests a drain.
func (s *Scheduler) SetOnline(online bool) {
	was := s.online.Swap(online)
	if online && !was {
		slog.Info("sync: back online")
		s.Wake()
	} else if !online && was {
		slog.Info("sync: offline, drains paused")
	}
}

// Wake requests a drain as soon as possible. Repeated calls before the
// drain starts coalesce.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Drain runs one drain now unless the scheduler is offline. Callers that
// arrive while a drain is running share its result.
func (s *Scheduler) Drain(ctx context.Context) (DrainResult, error) {
	if !s.Online() {
		return DrainResult{}, ErrOffline
	}
	v, err, _ := s.group.Do("drain", func() (any, error) {
		res, err := s.queue.Process(ctx, s.rec)
		if s.onDrain != nil {
			s.onDrain(res, err)
		}
		return res, err
	})
	res, _ := v.(DrainResult)
	return res, err
}

// Run drives drains until ctx is done. transitions delivers connectivity
// changes and may be nil.
func (s *Scheduler) Run(ctx context.Context, transitions <-chan bool) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case online, ok := <-transitions:
			if !ok {
				transitions = nil
				continue
			}
			s.SetOnline(online)
			continue
		case <-ticker.C:
		case <-s.wake:
		}

		if !s.Online() {
			continue
		}
		res, err := s.Drain(ctx)
		if err != nil {
			slog.Warn("sync: drain failed", "err", err)
			continue
		}
		if res.Processed > 0 {
			slog.Info("sync: drain complete",
				"processed", res.Processed, "succeeded", res.Succeeded,
				"retried", res.Retried, "quarantined", res.Quarantined)
		}
	}
}
