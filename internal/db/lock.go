package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lockFileName = "write.lock"
	lockWait     = 5 * time.Second
	lockPollMin  = 5 * time.Millisecond
	lockPollMax  = 50 * time.Millisecond
)

// ErrLocked is returned when another process keeps the write lock past the
// wait limit. The CLI and the sync daemon share one data directory.
var ErrLocked = errors.New("database is locked by another process")

// lockHolder is stamped into the lock file so a blocked process can say who
// it is waiting on.
type lockHolder struct {
	PID   int       `json:"pid"`
	Cmd   string    `json:"cmd"`
	Since time.Time `json:"since"`
}

// fileLock is an exclusive OS lock on <dir>/write.lock. The OS drops it if
// the holder dies, so a crashed daemon never wedges the CLI.
type fileLock struct {
	path string
	f    *os.File
}

// lockDir blocks until it holds the write lock for dir, wait elapses, or ctx
// is done.
func lockDir(ctx context.Context, dir string, wait time.Duration) (*fileLock, error) {
	path := filepath.Join(dir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	poll := lockPollMin
	for {
		if tryLockFile(f) == nil {
			l := &fileLock{path: path, f: f}
			l.stamp()
			return l, nil
		}

		timer := time.NewTimer(poll)
		select {
		case <-waitCtx.Done():
			timer.Stop()
			f.Close()
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("write lock after %v (%s): %w", wait, describeHolder(path), ErrLocked)
		case <-timer.C:
		}
		poll = min(poll*2, lockPollMax)
	}
}

// Unlock clears the holder stamp and releases the lock.
func (l *fileLock) Unlock() {
	if l == nil || l.f == nil {
		return
	}
	_ = l.f.Truncate(0)
	unlockFile(l.f)
	l.f.Close()
	l.f = nil
}

func (l *fileLock) stamp() {
	data, err := json.Marshal(lockHolder{
		PID:   os.Getpid(),
		Cmd:   filepath.Base(os.Args[0]),
		Since: time.Now().UTC().Truncate(time.Second),
	})
	if err != nil {
		return
	}
	_ = l.f.Truncate(0)
	_, _ = l.f.WriteAt(data, 0)
}

// describeHolder reads the stamp left by the current holder.
func describeHolder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "holder unknown"
	}
	var h lockHolder
	if json.Unmarshal(data, &h) != nil || h.PID == 0 {
		return "holder unknown"
	}
	s := fmt.Sprintf("held by %s pid %d since %s", h.Cmd, h.PID, h.Since.Format(time.RFC3339))
	if !processAlive(h.PID) {
		s += ", holder is gone"
	}
	return s
}
