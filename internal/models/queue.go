package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Op is the kind of mutation a queue entry mirrors
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Valid reports whether op is create, update or delete
func (op Op) Valid() bool {
	return op == OpCreate || op == OpUpdate || op == OpDelete
}

// QueueEntry is one pending remote-reconciliation operation.
// Timestamps are epoch milliseconds.
type QueueEntry struct {
	ID            int64      `json:"id"`
	Op            Op         `json:"op"`
	Store         Collection `json:"store"`
	Key           string     `json:"key"`
	Payload       Record     `json:"payload"`
	CreatedAt     int64      `json:"createdAt"`
	Attempts      int        `json:"attempts"`
	NextAttemptAt int64      `json:"nextAttemptAt"`
	Failed        bool       `json:"failed"`
	LastError     string     `json:"lastError,omitempty"`
}

// Due reports whether the entry may be attempted at now (epoch ms).
func (e *QueueEntry) Due(nowMs int64) bool {
	return !e.Failed && e.NextAttemptAt <= nowMs
}

// NextAttemptTime returns NextAttemptAt as a time.Time
func (e *QueueEntry) NextAttemptTime() time.Time {
	return time.UnixMilli(e.NextAttemptAt)
}

// UnmarshalJSON decodes the payload using the record type owned by Store.
func (e *QueueEntry) UnmarshalJSON(data []byte) error {
	type alias QueueEntry
	var raw struct {
		alias
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = QueueEntry(raw.alias)
	e.Payload = nil
	if len(raw.Payload) > 0 && string(raw.Payload) != "null" {
		rec, err := DecodeRecord(e.Store, raw.Payload)
		if err != nil {
			return fmt.Errorf("queue entry %d: %w", e.ID, err)
		}
		e.Payload = rec
	}
	return nil
}

// QueuePatch is a partial update of an entry's retry metadata.
// Nil fields are left unchanged.
type QueuePatch struct {
	Attempts      *int
	NextAttemptAt *int64
	Failed        *bool
	LastError     *string
}

// Apply copies the set fields of p onto e
func (p QueuePatch) Apply(e *QueueEntry) {
	if p.Attempts != nil {
		e.Attempts = *p.Attempts
	}
	if p.NextAttemptAt != nil {
		e.NextAttemptAt = *p.NextAttemptAt
	}
	if p.Failed != nil {
		e.Failed = *p.Failed
	}
	if p.LastError != nil {
		e.LastError = *p.LastError
	}
}

// OutboxMutation is one element of an atomic outbox batch: either a delete
// of ID or a patch of ID.
type OutboxMutation struct {
	ID     int64
	Delete bool
	Patch  QueuePatch
}

// QueueStats is the aggregate queue health shown by status indicators
type QueueStats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}
