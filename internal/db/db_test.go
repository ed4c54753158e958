package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/store"
)

func setupMemDB(t *testing.T) *DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db, err := OpenConn(conn)
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func product(id string, stock int) *models.Product {
	return &models.Product{ID: id, Brand: "Vital Feed", Type: models.FeedStarter, PricePerBag: 18500, Stock: stock, MinStockThreshold: 10}
}

func TestOpenCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, dbFile)); err != nil {
		t.Errorf("database file not created: %v", err)
	}
	v, err := db.GetSchemaVersion()
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != schemaVersion {
		t.Errorf("schema version = %d, want %d", v, schemaVersion)
	}
}

func TestPutGetReflectsLatestWrite(t *testing.T) {
	db := setupMemDB(t)
	ctx := context.Background()

	for _, stock := range []int{10, 9, 3} {
		if err := db.Put(ctx, models.CollectionProducts, product("p1", stock)); err != nil {
			t.Fatalf("put: %v", err)
		}
		rec, err := db.Get(ctx, models.CollectionProducts, "p1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got := rec.(*models.Product).Stock; got != stock {
			t.Errorf("stock = %d, want %d", got, stock)
		}
	}

	if err := db.Delete(ctx, models.CollectionProducts, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get(ctx, models.CollectionProducts, "p1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get after delete: err = %v, want ErrNotFound", err)
	}
	// Deleting again is a no-op
	if err := db.Delete(ctx, models.CollectionProducts, "p1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestPutRejectsWrongCollection(t *testing.T) {
	db := setupMemDB(t)
	err := db.Put(context.Background(), models.CollectionSales, product("p1", 1))
	if err == nil {
		t.Fatal("expected error putting a product into receipts")
	}
}

func TestGetAllByIndex(t *testing.T) {
	db := setupMemDB(t)
	ctx := context.Background()

	a := product("a", 1)
	b := product("b", 2)
	b.Brand = "Top Feed"
	c := product("c", 3)
	for _, p := range []*models.Product{a, b, c} {
		if err := db.Put(ctx, models.CollectionProducts, p); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	recs, err := db.GetAllByIndex(ctx, models.CollectionProducts, models.IndexByBrand, "Vital Feed")
	if err != nil {
		t.Fatalf("by index: %v", err)
	}
	if len(recs) != 2 || recs[0].RecordID() != "a" || recs[1].RecordID() != "c" {
		t.Errorf("by-brand = %v, want [a c]", recs)
	}

	if _, err := db.GetAllByIndex(ctx, models.CollectionProducts, "by-colour", "x"); err == nil {
		t.Error("expected error for unknown index")
	}

	all, err := db.GetAll(ctx, models.CollectionProducts)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("get all: got %d, want 3", len(all))
	}
}

func entry(op models.Op, key string, payload models.Record) models.QueueEntry {
	return models.QueueEntry{Op: op, Store: models.CollectionProducts, Key: key, Payload: payload, CreatedAt: 1000, NextAttemptAt: 1000}
}

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	db := setupMemDB(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		id, err := db.Append(ctx, entry(models.OpUpdate, "p1", product("p1", i)))
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if id <= last {
			t.Fatalf("id %d not greater than previous %d", id, last)
		}
		last = id
	}

	// Ids are not reused after deleting the tail
	if err := db.DeleteByID(ctx, last); err != nil {
		t.Fatalf("delete: %v", err)
	}
	id, err := db.Append(ctx, entry(models.OpDelete, "p1", nil))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id <= last {
		t.Errorf("id %d reused after delete (last %d)", id, last)
	}
}

func TestListAllRoundTrip(t *testing.T) {
	db := setupMemDB(t)
	ctx := context.Background()

	if _, err := db.Append(ctx, entry(models.OpCreate, "p1", product("p1", 10))); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := db.Append(ctx, entry(models.OpDelete, "p1", nil)); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := db.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	p, ok := entries[0].Payload.(*models.Product)
	if !ok || p.Stock != 10 {
		t.Errorf("payload = %#v, want product with stock 10", entries[0].Payload)
	}
	if entries[1].Payload != nil {
		t.Errorf("delete payload = %#v, want nil", entries[1].Payload)
	}
	if entries[0].Failed || entries[0].Attempts != 0 {
		t.Errorf("fresh entry has retry state: %+v", entries[0])
	}
}

func TestApplyBatch(t *testing.T) {
	db := setupMemDB(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := db.Append(ctx, entry(models.OpCreate, "p1", product("p1", i)))
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		ids = append(ids, id)
	}

	attempts := 2
	next := int64(5000)
	failed := true
	msg := "boom"
	err := db.ApplyBatch(ctx, []models.OutboxMutation{
		{ID: ids[0], Delete: true},
		{ID: ids[1], Patch: models.QueuePatch{Attempts: &attempts, NextAttemptAt: &next, Failed: &failed, LastError: &msg}},
	})
	if err != nil {
		t.Fatalf("apply batch: %v", err)
	}

	entries, err := db.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	got := entries[0]
	if got.ID != ids[1] || got.Attempts != 2 || got.NextAttemptAt != 5000 || !got.Failed || got.LastError != "boom" {
		t.Errorf("patched entry = %+v", got)
	}
	if entries[1].ID != ids[2] || entries[1].Failed {
		t.Errorf("untouched entry = %+v", entries[1])
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	db := setupMemDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.Update(ctx, func(w store.Writer) error {
		if err := w.Put(ctx, models.CollectionProducts, product("p1", 1)); err != nil {
			return err
		}
		if _, err := w.Append(ctx, entry(models.OpCreate, "p1", product("p1", 1))); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("update err = %v, want boom", err)
	}

	if _, err := db.Get(ctx, models.CollectionProducts, "p1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("record survived rollback: %v", err)
	}
	entries, _ := db.ListAll(ctx)
	if len(entries) != 0 {
		t.Errorf("outbox survived rollback: %d entries", len(entries))
	}
}

func TestUpdateReadsOwnWrites(t *testing.T) {
	db := setupMemDB(t)
	ctx := context.Background()

	err := db.Update(ctx, func(w store.Writer) error {
		if err := w.Put(ctx, models.CollectionProducts, product("p1", 7)); err != nil {
			return err
		}
		rec, err := w.Get(ctx, models.CollectionProducts, "p1")
		if err != nil {
			return err
		}
		if rec.(*models.Product).Stock != 7 {
			t.Errorf("read inside tx: stock = %d", rec.(*models.Product).Stock)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestProfiles(t *testing.T) {
	db := setupMemDB(t)
	ctx := context.Background()

	p := models.CachedProfile{UID: "u1", Email: "Ada@Shop.ng", Name: "Ada", Role: models.RoleAdmin, PasswordHash: "hash"}
	if err := db.PutProfile(ctx, p); err != nil {
		t.Fatalf("put profile: %v", err)
	}

	byEmail, err := db.ProfileByEmail(ctx, "ada@shop.ng ")
	if err != nil {
		t.Fatalf("by email: %v", err)
	}
	if byEmail.UID != "u1" || byEmail.Role != models.RoleAdmin {
		t.Errorf("by email = %+v", byEmail)
	}

	// Re-caching without a hash keeps the stored verifier
	p.PasswordHash = ""
	p.Name = "Ada L."
	if err := db.PutProfile(ctx, p); err != nil {
		t.Fatalf("re-put profile: %v", err)
	}
	byID, err := db.ProfileByID(ctx, "u1")
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if byID.Name != "Ada L." || byID.PasswordHash != "hash" {
		t.Errorf("by id = %+v", byID)
	}

	if _, err := db.ProfileByEmail(ctx, "nobody@shop.ng"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing email: err = %v", err)
	}
}

func TestReopenKeepsCommittedData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Put(ctx, models.CollectionProducts, product("p1", 4)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := db.Append(ctx, entry(models.OpCreate, "p1", product("p1", 4))); err != nil {
		t.Fatalf("append: %v", err)
	}
	db.Close()

	db, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	if _, err := db.Get(ctx, models.CollectionProducts, "p1"); err != nil {
		t.Errorf("record lost after reopen: %v", err)
	}
	n, err := db.CountPendingEntries(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("pending = %d, want 1", n)
	}
}

func TestConcurrentHandlesAppendUniqueIDs(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer first.Close()
	second, err := Open(dir)
	if err != nil {
		t.Fatalf("open second: %v", err)
	}
	defer second.Close()

	var wg sync.WaitGroup
	for _, h := range []*DB{first, second} {
		wg.Add(1)
		go func(h *DB) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				if _, err := h.Append(ctx, entry(models.OpUpdate, "p1", product("p1", i))); err != nil {
					t.Errorf("append: %v", err)
					return
				}
			}
		}(h)
	}
	wg.Wait()

	entries, err := first.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 20 {
		t.Fatalf("entries = %d, want 20", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].ID <= entries[i-1].ID {
			t.Fatalf("ids not strictly increasing at %d: %d <= %d", i, entries[i].ID, entries[i-1].ID)
		}
	}
}
