// Package monitor is the live sync queue dashboard behind "vempat monitor".
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vempat/vempat/internal/models"
	vsync "github.com/vempat/vempat/internal/sync"
)

// actionTimeout bounds a sync or retry started from the dashboard.
const actionTimeout = time.Minute

// Source is the queue the dashboard reads.
type Source interface {
	Stats(ctx context.Context) (models.QueueStats, error)
	List(ctx context.Context) ([]models.QueueEntry, error)
}

// Actions are the operator commands the dashboard can trigger. Nil
// actions are disabled.
type Actions struct {
	// Probe reports whether the remote is reachable.
	Probe func(ctx context.Context) bool
	Sync  func(ctx context.Context) (vsync.DrainResult, error)
	Retry func(ctx context.Context) (int, error)
}

// Model is the Bubble Tea model for the monitor TUI
type Model struct {
	Queue   Source
	Actions Actions
	Version string

	// Window dimensions
	Width  int
	Height int

	Stats   models.QueueStats
	Entries []models.QueueEntry
	// Online is nil until the first probe completes.
	Online *bool

	Busy         bool
	spinner      spinner.Model
	Status       string
	Err          error
	FetchErr     error
	ScrollOffset int
	LastRefresh  time.Time

	RefreshInterval time.Duration
	now             func() time.Time
}

// TickMsg triggers a data refresh
type TickMsg time.Time

// RefreshDataMsg carries refreshed queue data
type RefreshDataMsg struct {
	Stats     models.QueueStats
	Entries   []models.QueueEntry
	Online    *bool
	Timestamp time.Time
	Err       error
}

// SyncDoneMsg reports the end of a dashboard-triggered drain
type SyncDoneMsg struct {
	Result vsync.DrainResult
	Err    error
}

// RetryDoneMsg reports how many failed entries were requeued
type RetryDoneMsg struct {
	Count int
	Err   error
}

// NewModel creates a new monitor model
func NewModel(queue Source, actions Actions, interval time.Duration, version string) Model {
	return Model{
		Queue:           queue,
		Actions:         actions,
		Version:         version,
		RefreshInterval: interval,
		spinner:         spinner.New(spinner.WithSpinner(spinner.Dot)),
		now:             time.Now,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchData(), m.scheduleTick())
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.fetchData(), m.scheduleTick())

	case RefreshDataMsg:
		m.LastRefresh = msg.Timestamp
		m.FetchErr = msg.Err
		if msg.Err != nil {
			return m, nil
		}
		m.Stats = msg.Stats
		m.Entries = msg.Entries
		if msg.Online != nil {
			m.Online = msg.Online
		}
		m.clampScroll()
		return m, nil

	case SyncDoneMsg:
		m.Busy = false
		m.Err = msg.Err
		if msg.Err == nil {
			r := msg.Result
			m.Status = fmt.Sprintf("Synced: %d sent, %d retrying, %d failed", r.Succeeded, r.Retried, r.Quarantined)
		}
		return m, m.fetchData()

	case RetryDoneMsg:
		m.Busy = false
		m.Err = msg.Err
		if msg.Err == nil {
			m.Status = fmt.Sprintf("Requeued %d failed entries", msg.Count)
		}
		return m, m.fetchData()

	case spinner.TickMsg:
		if !m.Busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		return m, m.fetchData()

	case "s":
		if m.Busy || m.Actions.Sync == nil {
			return m, nil
		}
		m.Busy = true
		m.Status = "Syncing…"
		m.Err = nil
		return m, tea.Batch(m.spinner.Tick, m.runSync())

	case "R":
		if m.Busy || m.Actions.Retry == nil || m.Stats.Failed == 0 {
			return m, nil
		}
		m.Busy = true
		m.Status = "Requeueing failed entries…"
		m.Err = nil
		return m, tea.Batch(m.spinner.Tick, m.runRetry())

	case "j", "down":
		m.ScrollOffset++
		m.clampScroll()
		return m, nil

	case "k", "up":
		if m.ScrollOffset > 0 {
			m.ScrollOffset--
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) clampScroll() {
	limit := len(m.Entries) - m.visibleRows()
	if limit < 0 {
		limit = 0
	}
	if m.ScrollOffset > limit {
		m.ScrollOffset = limit
	}
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// scheduleTick returns a command that sends a TickMsg after the refresh interval
func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// fetchData returns a command that reads the queue and probes the remote
func (m Model) fetchData() tea.Cmd {
	queue, probe, now := m.Queue, m.Actions.Probe, m.now
	return func() tea.Msg {
		return FetchData(context.Background(), queue, probe, now())
	}
}

// FetchData reads queue stats and entries and, when probe is set, the
// remote's reachability.
func FetchData(ctx context.Context, queue Source, probe func(context.Context) bool, at time.Time) RefreshDataMsg {
	msg := RefreshDataMsg{Timestamp: at}
	st, err := queue.Stats(ctx)
	if err != nil {
		msg.Err = fmt.Errorf("queue stats: %w", err)
		return msg
	}
	entries, err := queue.List(ctx)
	if err != nil {
		msg.Err = fmt.Errorf("queue entries: %w", err)
		return msg
	}
	msg.Stats, msg.Entries = st, entries
	if probe != nil {
		online := probe(ctx)
		msg.Online = &online
	}
	return msg
}

func (m Model) runSync() tea.Cmd {
	sync := m.Actions.Sync
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		res, err := sync(ctx)
		return SyncDoneMsg{Result: res, Err: err}
	}
}

func (m Model) runRetry() tea.Cmd {
	retry := m.Actions.Retry
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		n, err := retry(ctx)
		return RetryDoneMsg{Count: n, Err: err}
	}
}
