// Package memstore is an in-process implementation of store.Store. It backs
// tests and the --memory mode of the CLI; nothing survives Close.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/store"
)

// Store keeps records as encoded JSON so callers never share memory with it.
type Store struct {
	mu       sync.Mutex
	records  map[models.Collection]map[string][]byte
	queue    map[int64]models.QueueEntry
	nextID   int64
	profiles map[string]models.CachedProfile

	// FailAppend, when set, is returned by every Append. Tests use it to
	// exercise the rollback path of Update.
	FailAppend error
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		records:  make(map[models.Collection]map[string][]byte),
		queue:    make(map[int64]models.QueueEntry),
		profiles: make(map[string]models.CachedProfile),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) Get(ctx context.Context, c models.Collection, id string) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(c, id)
}

func (s *Store) GetAll(ctx context.Context, c models.Collection) ([]models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAll(c, "", "")
}

func (s *Store) GetAllByIndex(ctx context.Context, c models.Collection, index, value string) ([]models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	field, ok := c.IndexField(index)
	if !ok {
		return nil, fmt.Errorf("collection %s has no index %q", c, index)
	}
	return s.getAll(c, field, value)
}

func (s *Store) Put(ctx context.Context, c models.Collection, rec models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(c, rec)
}

func (s *Store) Delete(ctx context.Context, c models.Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !c.Valid() {
		return fmt.Errorf("unknown collection %q", string(c))
	}
	delete(s.records[c], id)
	return nil
}

// Update stages writes in a transaction and publishes them only if fn
// succeeds.
func (s *Store) Update(ctx context.Context, fn func(w store.Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txn{s: s}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) Append(ctx context.Context, entry models.QueueEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEntry(entry); err != nil {
		return 0, err
	}
	s.nextID++
	entry.ID = s.nextID
	s.queue[entry.ID] = cloneEntry(entry)
	return entry.ID, nil
}

func (s *Store) ListAll(ctx context.Context) ([]models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.QueueEntry, 0, len(s.queue))
	for _, e := range s.queue {
		out = append(out, cloneEntry(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateByID(ctx context.Context, id int64, patch models.QueuePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patch(id, patch)
	return nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queue, id)
	return nil
}

func (s *Store) ApplyBatch(ctx context.Context, muts []models.OutboxMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range muts {
		if m.Delete {
			delete(s.queue, m.ID)
			continue
		}
		s.patch(m.ID, m.Patch)
	}
	return nil
}

func (s *Store) PutProfile(ctx context.Context, p models.CachedProfile) error {
	if p.UID == "" {
		return fmt.Errorf("profile uid is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CachedAt.IsZero() {
		p.CachedAt = time.Now().UTC()
	}
	p.Email = normalizeEmail(p.Email)
	if prev, ok := s.profiles[p.UID]; ok && p.PasswordHash == "" {
		p.PasswordHash = prev.PasswordHash
	}
	s.profiles[p.UID] = p
	return nil
}

func (s *Store) ProfileByID(ctx context.Context, uid string) (*models.CachedProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[uid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ProfileByEmail(ctx context.Context, email string) (*models.CachedProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = normalizeEmail(email)
	var best *models.CachedProfile
	for _, p := range s.profiles {
		if email == "" || p.Email != email {
			continue
		}
		if best == nil || p.CachedAt.After(best.CachedAt) {
			p := p
			best = &p
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	return best, nil
}

// Len returns the number of queued entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Store) get(c models.Collection, id string) (models.Record, error) {
	data, ok := s.records[c][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", c, id, store.ErrNotFound)
	}
	return models.DecodeRecord(c, data)
}

func (s *Store) getAll(c models.Collection, field, value string) ([]models.Record, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown collection %q", string(c))
	}
	ids := make([]string, 0, len(s.records[c]))
	for id := range s.records[c] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []models.Record
	for _, id := range ids {
		data := s.records[c][id]
		if field != "" && !fieldEquals(data, field, value) {
			continue
		}
		rec, err := models.DecodeRecord(c, data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) put(c models.Collection, rec models.Record) error {
	data, err := encode(c, rec)
	if err != nil {
		return err
	}
	if s.records[c] == nil {
		s.records[c] = make(map[string][]byte)
	}
	s.records[c][rec.RecordID()] = data
	return nil
}

func (s *Store) patch(id int64, p models.QueuePatch) {
	e, ok := s.queue[id]
	if !ok {
		return
	}
	p.Apply(&e)
	s.queue[id] = e
}

func (s *Store) checkEntry(e models.QueueEntry) error {
	if s.FailAppend != nil {
		return s.FailAppend
	}
	if !e.Op.Valid() {
		return fmt.Errorf("invalid op %q", string(e.Op))
	}
	if !e.Store.Valid() {
		return fmt.Errorf("unknown collection %q", string(e.Store))
	}
	return nil
}

func encode(c models.Collection, rec models.Record) ([]byte, error) {
	if err := store.CheckCollection(c, rec); err != nil {
		return nil, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal %s/%s: %w", c, rec.RecordID(), err)
	}
	return data, nil
}

// fieldEquals compares a top-level JSON field against value the way the
// SQLite json_extract index does for string fields.
func fieldEquals(data []byte, field, value string) bool {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return false
	}
	v, ok := m[field]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == value
}

func cloneEntry(e models.QueueEntry) models.QueueEntry {
	if e.Payload == nil {
		return e
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return e
	}
	rec, err := models.DecodeRecord(e.Store, data)
	if err != nil {
		return e
	}
	e.Payload = rec
	return e
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// txn stages record writes and queue appends until commit. Reads see the
// staged state first.
type txn struct {
	s       *Store
	puts    []stagedPut
	entries []models.QueueEntry
}

type stagedPut struct {
	c      models.Collection
	id     string
	data   []byte
	delete bool
}

func (t *txn) lookup(c models.Collection, id string) ([]byte, bool, bool) {
	for i := len(t.puts) - 1; i >= 0; i-- {
		p := t.puts[i]
		if p.c == c && p.id == id {
			return p.data, p.delete, true
		}
	}
	return nil, false, false
}

func (t *txn) Get(ctx context.Context, c models.Collection, id string) (models.Record, error) {
	if data, deleted, ok := t.lookup(c, id); ok {
		if deleted {
			return nil, fmt.Errorf("%s/%s: %w", c, id, store.ErrNotFound)
		}
		return models.DecodeRecord(c, data)
	}
	return t.s.get(c, id)
}

func (t *txn) GetAll(ctx context.Context, c models.Collection) ([]models.Record, error) {
	return t.view().getAll(c, "", "")
}

func (t *txn) GetAllByIndex(ctx context.Context, c models.Collection, index, value string) ([]models.Record, error) {
	field, ok := c.IndexField(index)
	if !ok {
		return nil, fmt.Errorf("collection %s has no index %q", c, index)
	}
	return t.view().getAll(c, field, value)
}

func (t *txn) Put(ctx context.Context, c models.Collection, rec models.Record) error {
	data, err := encode(c, rec)
	if err != nil {
		return err
	}
	t.puts = append(t.puts, stagedPut{c: c, id: rec.RecordID(), data: data})
	return nil
}

func (t *txn) Delete(ctx context.Context, c models.Collection, id string) error {
	if !c.Valid() {
		return fmt.Errorf("unknown collection %q", string(c))
	}
	t.puts = append(t.puts, stagedPut{c: c, id: id, delete: true})
	return nil
}

// Append reserves the id immediately; a rolled back transaction leaves a
// gap, which keeps ids strictly increasing like AUTOINCREMENT.
func (t *txn) Append(ctx context.Context, entry models.QueueEntry) (int64, error) {
	if err := t.s.checkEntry(entry); err != nil {
		return 0, err
	}
	t.s.nextID++
	entry.ID = t.s.nextID
	t.entries = append(t.entries, cloneEntry(entry))
	return entry.ID, nil
}

// view builds a throwaway store with the staged writes applied, used for
// list reads inside a transaction.
func (t *txn) view() *Store {
	v := &Store{records: make(map[models.Collection]map[string][]byte, len(t.s.records))}
	for c, m := range t.s.records {
		cp := make(map[string][]byte, len(m))
		for id, d := range m {
			cp[id] = d
		}
		v.records[c] = cp
	}
	applyPuts(v, t.puts)
	return v
}

func (t *txn) commit() {
	applyPuts(t.s, t.puts)
	for _, e := range t.entries {
		t.s.queue[e.ID] = e
	}
}

func applyPuts(s *Store, puts []stagedPut) {
	for _, p := range puts {
		if p.delete {
			delete(s.records[p.c], p.id)
			continue
		}
		if s.records[p.c] == nil {
			s.records[p.c] = make(map[string][]byte)
		}
		s.records[p.c][p.id] = p.data
	}
}
