package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vempat/vempat/internal/models"
	vsync "github.com/vempat/vempat/internal/sync"
)

type fakeQueue struct {
	stats   models.QueueStats
	entries []models.QueueEntry
	err     error
}

func (f *fakeQueue) Stats(context.Context) (models.QueueStats, error) { return f.stats, f.err }
func (f *fakeQueue) List(context.Context) ([]models.QueueEntry, error) {
	return f.entries, f.err
}

var fixedNow = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

func newTestModel(q Source, a Actions) Model {
	m := NewModel(q, a, time.Second, "v1.0.0")
	m.now = func() time.Time { return fixedNow }
	return m
}

func sampleEntries(n int) []models.QueueEntry {
	out := make([]models.QueueEntry, n)
	for i := range out {
		out[i] = models.QueueEntry{
			ID:    int64(i + 1),
			Op:    models.OpUpdate,
			Store: models.CollectionProducts,
			Key:   "p1",
		}
	}
	return out
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestFetchData(t *testing.T) {
	q := &fakeQueue{stats: models.QueueStats{Total: 2, Pending: 1, Failed: 1}, entries: sampleEntries(2)}
	msg := FetchData(context.Background(), q, func(context.Context) bool { return true }, fixedNow)
	if msg.Err != nil {
		t.Fatalf("FetchData: %v", msg.Err)
	}
	if msg.Stats.Failed != 1 || len(msg.Entries) != 2 {
		t.Errorf("got stats %+v, %d entries", msg.Stats, len(msg.Entries))
	}
	if msg.Online == nil || !*msg.Online {
		t.Error("expected online")
	}

	noProbe := FetchData(context.Background(), q, nil, fixedNow)
	if noProbe.Online != nil {
		t.Error("expected unknown online state without a probe")
	}

	q.err = errors.New("disk gone")
	if bad := FetchData(context.Background(), q, nil, fixedNow); bad.Err == nil {
		t.Error("expected error")
	}
}

func TestRefreshUpdatesModel(t *testing.T) {
	m := newTestModel(&fakeQueue{}, Actions{})
	online := false
	updated, _ := m.Update(RefreshDataMsg{
		Stats:     models.QueueStats{Total: 3, Pending: 3},
		Entries:   sampleEntries(3),
		Online:    &online,
		Timestamp: fixedNow,
	})
	m = updated.(Model)

	if m.Stats.Pending != 3 || len(m.Entries) != 3 {
		t.Fatalf("model not updated: %+v", m.Stats)
	}
	view := m.View()
	for _, want := range []string{"vempat monitor", "offline", "3 pending", "QUEUE (3)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	// a failed refresh keeps the last data and shows the error
	updated, _ = m.Update(RefreshDataMsg{Err: errors.New("boom"), Timestamp: fixedNow})
	m = updated.(Model)
	if len(m.Entries) != 3 {
		t.Error("entries dropped on failed refresh")
	}
	if !strings.Contains(m.View(), "boom") {
		t.Error("view should show the refresh error")
	}
}

func TestSyncKey(t *testing.T) {
	calls := 0
	m := newTestModel(&fakeQueue{}, Actions{
		Sync: func(context.Context) (vsync.DrainResult, error) {
			calls++
			return vsync.DrainResult{Processed: 2, Succeeded: 2}, nil
		},
	})

	updated, cmd := m.Update(key("s"))
	m = updated.(Model)
	if !m.Busy || cmd == nil {
		t.Fatal("expected a running sync")
	}

	// a second press while busy is ignored
	if _, again := m.Update(key("s")); again != nil {
		t.Error("sync should not start twice")
	}

	done := m.runSync()().(SyncDoneMsg)
	if calls != 1 {
		t.Errorf("sync called %d times, want 1", calls)
	}
	next, _ := m.Update(done)
	m = next.(Model)
	if m.Busy {
		t.Error("still busy after SyncDoneMsg")
	}
	if !strings.Contains(m.Status, "2 sent") {
		t.Errorf("status = %q", m.Status)
	}
}

func TestRetryKeyNeedsFailedEntries(t *testing.T) {
	m := newTestModel(&fakeQueue{}, Actions{
		Retry: func(context.Context) (int, error) { return 1, nil },
	})
	if _, cmd := m.Update(key("R")); cmd != nil {
		t.Error("retry with nothing failed should do nothing")
	}

	m.Stats = models.QueueStats{Total: 1, Failed: 1}
	updated, cmd := m.Update(key("R"))
	if cmd == nil || !updated.(Model).Busy {
		t.Fatal("expected retry to start")
	}
	next, _ := updated.Update(RetryDoneMsg{Count: 1})
	if got := next.(Model).Status; got != "Requeued 1 failed entries" {
		t.Errorf("status = %q", got)
	}
}

func TestScrollIsClamped(t *testing.T) {
	m := newTestModel(&fakeQueue{}, Actions{})
	m.Height = chromeRows + 2 // two rows visible
	m.Entries = sampleEntries(5)

	for i := 0; i < 10; i++ {
		updated, _ := m.Update(key("j"))
		m = updated.(Model)
	}
	if m.ScrollOffset != 3 {
		t.Errorf("ScrollOffset = %d, want 3", m.ScrollOffset)
	}
	for i := 0; i < 10; i++ {
		updated, _ := m.Update(key("k"))
		m = updated.(Model)
	}
	if m.ScrollOffset != 0 {
		t.Errorf("ScrollOffset = %d, want 0", m.ScrollOffset)
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(&fakeQueue{}, Actions{})
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
