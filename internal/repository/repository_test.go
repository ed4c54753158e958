package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vempat/vempat/internal/db"
	"github.com/vempat/vempat/internal/memstore"
	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/store"
	"github.com/vempat/vempat/internal/sync"
)

var fixedNow = time.Date(2024, 5, 6, 10, 30, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func setup(t *testing.T) (*Repository, *memstore.Store) {
	t.Helper()
	ms := memstore.New()
	now := func() time.Time { return fixedNow }
	q := sync.New(ms, sync.Options{Now: now})
	return New(ms, q, Options{Now: now, NewID: sequentialIDs()}), ms
}

func feed(id string, stock int) *models.Product {
	return &models.Product{
		ID: id, Brand: "Vital Feed", Type: models.FeedGrower, ParticleSize: "crumble",
		ProteinPercent: 18, WeightKg: 25, PricePerBag: 12000, Stock: stock, MinStockThreshold: 5,
	}
}

func queued(t *testing.T, ms *memstore.Store) []models.QueueEntry {
	t.Helper()
	entries, err := ms.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	return entries
}

func TestCreateProductQueuesCreate(t *testing.T) {
	r, ms := setup(t)
	ctx := context.Background()

	p := feed("", 10)
	if err := r.CreateProduct(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID != "id-001" {
		t.Errorf("assigned id: got %q", p.ID)
	}

	got, err := r.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Stock != 10 {
		t.Errorf("stock: got %d, want 10", got.Stock)
	}

	entries := queued(t, ms)
	if len(entries) != 1 {
		t.Fatalf("queued: got %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Op != models.OpCreate || e.Store != models.CollectionProducts || e.Key != p.ID {
		t.Errorf("entry = %+v", e)
	}
	if payload, ok := e.Payload.(*models.Product); !ok || payload.Stock != 10 {
		t.Errorf("payload = %#v, want full product", e.Payload)
	}
}

func TestInvalidRecordWritesNothing(t *testing.T) {
	r, ms := setup(t)
	ctx := context.Background()

	p := feed("p1", 10)
	p.Type = "Layer"
	err := r.CreateProduct(ctx, p)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if _, err := r.GetProduct(ctx, "p1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("invalid product stored: %v", err)
	}
	if n := len(queued(t, ms)); n != 0 {
		t.Errorf("queued %d entries for invalid record", n)
	}
}

func TestAppendFailureRollsBackPut(t *testing.T) {
	r, ms := setup(t)
	ctx := context.Background()
	ms.FailAppend = errors.New("quota exceeded")

	err := r.CreateProduct(ctx, feed("p1", 1))
	if err == nil {
		t.Fatal("expected error when outbox append fails")
	}
	if _, err := r.GetProduct(ctx, "p1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("product kept after failed append: %v", err)
	}
}

func TestUpdateMissingProduct(t *testing.T) {
	r, ms := setup(t)
	err := r.UpdateProduct(context.Background(), feed("nope", 1))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if n := len(queued(t, ms)); n != 0 {
		t.Errorf("queued %d entries", n)
	}
}

func TestDeleteUnsyncedProductQueuesDelete(t *testing.T) {
	r, ms := setup(t)
	ctx := context.Background()

	if err := r.CreateProduct(ctx, feed("p1", 3)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.DeleteProduct(ctx, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	entries := queued(t, ms)
	if len(entries) != 2 {
		t.Fatalf("queued: got %d, want 2", len(entries))
	}
	if entries[1].Op != models.OpDelete || entries[1].Key != "p1" || entries[1].Payload != nil {
		t.Errorf("delete entry = %+v", entries[1])
	}
	if entries[0].ID >= entries[1].ID {
		t.Errorf("ids not increasing: %d then %d", entries[0].ID, entries[1].ID)
	}
}

func TestRecordSale(t *testing.T) {
	r, ms := setup(t)
	ctx := context.Background()

	if err := r.CreateProduct(ctx, feed("p1", 10)); err != nil {
		t.Fatalf("create: %v", err)
	}
	sale, err := r.RecordSale(ctx, SaleInput{ProductID: "p1", Quantity: 3, CustomerName: "Ada"})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if sale.TotalPrice != 36000 || sale.ProductName != "Vital Feed Grower" {
		t.Errorf("sale = %+v", sale)
	}

	p, _ := r.GetProduct(ctx, "p1")
	if p.Stock != 7 {
		t.Errorf("stock: got %d, want 7", p.Stock)
	}

	mvs, err := r.ListStockMovements(ctx, "p1")
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(mvs) != 1 || mvs[0].Type != models.MovementOut || mvs[0].Quantity != 3 {
		t.Errorf("movements = %+v", mvs)
	}

	// create product, then update product, create sale, create movement
	entries := queued(t, ms)
	want := []struct {
		op models.Op
		c  models.Collection
	}{
		{models.OpCreate, models.CollectionProducts},
		{models.OpUpdate, models.CollectionProducts},
		{models.OpCreate, models.CollectionSales},
		{models.OpCreate, models.CollectionStockMovements},
	}
	if len(entries) != len(want) {
		t.Fatalf("queued: got %d, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if entries[i].Op != w.op || entries[i].Store != w.c {
			t.Errorf("entry %d: got %s %s, want %s %s", i, entries[i].Op, entries[i].Store, w.op, w.c)
		}
	}
}

func TestRecordSaleInsufficientStock(t *testing.T) {
	r, ms := setup(t)
	ctx := context.Background()

	r.CreateProduct(ctx, feed("p1", 2))
	_, err := r.RecordSale(ctx, SaleInput{ProductID: "p1", Quantity: 3})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	p, _ := r.GetProduct(ctx, "p1")
	if p.Stock != 2 {
		t.Errorf("stock changed to %d", p.Stock)
	}
	if n := len(queued(t, ms)); n != 1 {
		t.Errorf("queued %d entries, want only the create", n)
	}
}

func TestAdjustStock(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()
	r.CreateProduct(ctx, feed("p1", 10))

	tests := []struct {
		typ       models.MovementType
		qty       int
		wantStock int
		wantMoved int
		wantErr   error
	}{
		{models.MovementIn, 5, 15, 5, nil},
		{models.MovementOut, 4, 11, 4, nil},
		{models.MovementOut, 40, 11, 0, ErrInsufficientStock},
		{models.MovementAdjustment, 8, 8, 3, nil},
	}
	for _, tc := range tests {
		mv, err := r.AdjustStock(ctx, "p1", tc.typ, tc.qty, "count")
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("%s %d: err = %v, want %v", tc.typ, tc.qty, err, tc.wantErr)
			}
		} else if err != nil {
			t.Errorf("%s %d: %v", tc.typ, tc.qty, err)
		} else if mv.Quantity != tc.wantMoved {
			t.Errorf("%s %d: moved %d, want %d", tc.typ, tc.qty, mv.Quantity, tc.wantMoved)
		}
		p, _ := r.GetProduct(ctx, "p1")
		if p.Stock != tc.wantStock {
			t.Errorf("%s %d: stock %d, want %d", tc.typ, tc.qty, p.Stock, tc.wantStock)
		}
	}

	mv, err := r.AdjustStock(ctx, "p1", models.MovementAdjustment, 8, "")
	if err != nil || mv != nil {
		t.Errorf("no-op adjustment: mv=%v err=%v", mv, err)
	}
}

func TestPurchaseOrderLifecycle(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()

	r.CreateProduct(ctx, feed("p1", 1))
	r.CreateProduct(ctx, feed("p2", 0))
	sup := &models.Supplier{Name: "Agro Mills", ContactPerson: "Bola", Email: "sales@agro.ng"}
	if err := r.CreateSupplier(ctx, sup); err != nil {
		t.Fatalf("supplier: %v", err)
	}

	po := &models.PurchaseOrder{
		SupplierID: sup.ID,
		Items: []models.POItem{
			{ProductID: "p1", Quantity: 10, UnitPrice: 9000},
			{ProductID: "p2", Quantity: 4, UnitPrice: 9500},
		},
	}
	if err := r.CreatePurchaseOrder(ctx, po); err != nil {
		t.Fatalf("create po: %v", err)
	}
	if po.PONumber != PONumber(fixedNow) || po.Status != models.POStatusDraft || po.SupplierName != "Agro Mills" {
		t.Errorf("po = %+v", po)
	}
	if po.TotalAmount != 128000 {
		t.Errorf("total: got %v, want 128000", po.TotalAmount)
	}

	if _, err := r.SetPurchaseOrderStatus(ctx, po.ID, models.POStatusSent); err != nil {
		t.Fatalf("send: %v", err)
	}
	sent, err := r.ListPurchaseOrders(ctx, models.POStatusSent)
	if err != nil || len(sent) != 1 {
		t.Fatalf("sent orders: %v %v", sent, err)
	}

	if _, err := r.ReceivePurchaseOrder(ctx, po.ID); err != nil {
		t.Fatalf("receive: %v", err)
	}
	p1, _ := r.GetProduct(ctx, "p1")
	p2, _ := r.GetProduct(ctx, "p2")
	if p1.Stock != 11 || p2.Stock != 4 {
		t.Errorf("stock after receive: p1=%d p2=%d", p1.Stock, p2.Stock)
	}

	if _, err := r.ReceivePurchaseOrder(ctx, po.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second receive: err = %v", err)
	}
	p1, _ = r.GetProduct(ctx, "p1")
	if p1.Stock != 11 {
		t.Errorf("stock booked twice: %d", p1.Stock)
	}
}

func TestPONumber(t *testing.T) {
	ts := time.UnixMilli(1717171717123)
	if got := PONumber(ts); got != "PO-71717123" {
		t.Errorf("PONumber: got %q", got)
	}
}

func TestStatsAndLowStock(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()

	r.CreateProduct(ctx, feed("p1", 10))
	low := feed("p2", 3)
	low.PricePerBag = 10000
	r.CreateProduct(ctx, low)
	if _, err := r.RecordSale(ctx, SaleInput{ProductID: "p1", Quantity: 2}); err != nil {
		t.Fatalf("sale: %v", err)
	}

	st, err := r.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := models.BusinessStats{TotalRevenue: 24000, TotalSales: 1, LowStockItems: 1, TotalInventoryValue: 8*12000 + 3*10000}
	if st != want {
		t.Errorf("stats: got %+v, want %+v", st, want)
	}

	lows, _ := r.LowStock(ctx)
	if len(lows) != 1 || lows[0].ID != "p2" {
		t.Errorf("low stock = %+v", lows)
	}
}

func TestSearchProducts(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()

	a := feed("a", 1)
	a.Brand, a.Type = "Top Feeds", models.FeedStarter
	b := feed("b", 1)
	b.Brand, b.Type = "Vital Feed", models.FeedFinisher
	r.CreateProduct(ctx, a)
	r.CreateProduct(ctx, b)

	got, err := r.SearchProducts(ctx, "finisher")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("search finisher = %+v", got)
	}

	all, _ := r.SearchProducts(ctx, "")
	if len(all) != 2 {
		t.Errorf("empty query: got %d, want 2", len(all))
	}
}

func TestSyncNowDrainsThroughReconciler(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()
	r.CreateProduct(ctx, feed("p1", 1))
	r.DeleteProduct(ctx, "p1")

	var ops []models.Op
	res, err := r.SyncNow(ctx, sync.HandlerFunc(func(ctx context.Context, e models.QueueEntry) error {
		ops = append(ops, e.Op)
		return nil
	}))
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Succeeded != 2 || len(ops) != 2 || ops[0] != models.OpCreate || ops[1] != models.OpDelete {
		t.Errorf("res=%+v ops=%v", res, ops)
	}
	st, _ := r.QueueInfo(ctx)
	if st.Total != 0 {
		t.Errorf("queue not empty: %+v", st)
	}
}

func TestRecordSaleOnSQLite(t *testing.T) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	d, err := db.OpenConn(conn)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	now := func() time.Time { return fixedNow }
	r := New(d, sync.New(d, sync.Options{Now: now}), Options{Now: now, NewID: sequentialIDs()})
	ctx := context.Background()

	r.CreateProduct(ctx, feed("p1", 1))
	if _, err := r.RecordSale(ctx, SaleInput{ProductID: "p1", Quantity: 5}); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	st, err := r.QueueInfo(ctx)
	if err != nil {
		t.Fatalf("queue info: %v", err)
	}
	if st.Total != 1 {
		t.Errorf("queue total: got %d, want 1 (rolled back sale)", st.Total)
	}
}
