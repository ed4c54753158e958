package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/store"
)

// PONumber formats an order number from the last eight digits of the epoch
// milliseconds of t.
func PONumber(t time.Time) string {
	ms := strconv.FormatInt(t.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	return "PO-" + ms
}

// CreatePurchaseOrder stores a new order. Empty id, number, status and
// order date are filled in and the total is computed from the items.
func (r *Repository) CreatePurchaseOrder(ctx context.Context, o *models.PurchaseOrder) error {
	now := r.now()
	if o.ID == "" {
		o.ID = r.newID()
	}
	if o.PONumber == "" {
		o.PONumber = PONumber(now)
	}
	if o.Status == "" {
		o.Status = models.POStatusDraft
	}
	if o.OrderDate == "" {
		o.OrderDate = now.UTC().Format(time.DateOnly)
	}
	if o.SupplierName == "" && o.SupplierID != "" {
		if s, err := r.GetSupplier(ctx, o.SupplierID); err == nil {
			o.SupplierName = s.Name
		}
	}
	o.TotalAmount = o.Total()
	return r.save(ctx, models.OpCreate, o)
}

// UpdatePurchaseOrder replaces an existing order, recomputing its total.
func (r *Repository) UpdatePurchaseOrder(ctx context.Context, o *models.PurchaseOrder) error {
	if err := r.mustExist(ctx, models.CollectionPurchaseOrders, o.ID); err != nil {
		return err
	}
	o.TotalAmount = o.Total()
	return r.save(ctx, models.OpUpdate, o)
}

// SetPurchaseOrderStatus moves an order to status. Received orders go
// through ReceivePurchaseOrder so stock is booked in.
func (r *Repository) SetPurchaseOrderStatus(ctx context.Context, id string, status models.POStatus) (*models.PurchaseOrder, error) {
	if status == models.POStatusReceived {
		return r.ReceivePurchaseOrder(ctx, id)
	}
	o, err := r.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == models.POStatusReceived {
		return nil, fmt.Errorf("order %s already received: %w", o.PONumber, ErrInvalidTransition)
	}
	o.Status = status
	if err := r.save(ctx, models.OpUpdate, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ReceivePurchaseOrder marks an order received and adds every item to
// stock with an "in" movement, all in one transaction.
func (r *Repository) ReceivePurchaseOrder(ctx context.Context, id string) (*models.PurchaseOrder, error) {
	var order *models.PurchaseOrder
	err := r.records.Update(ctx, func(w store.Writer) error {
		o, err := getAs[*models.PurchaseOrder](ctx, w, models.CollectionPurchaseOrders, id)
		if err != nil {
			return err
		}
		switch o.Status {
		case models.POStatusReceived, models.POStatusCancelled:
			return fmt.Errorf("order %s is %s: %w", o.PONumber, o.Status, ErrInvalidTransition)
		}

		now := r.now().UTC()
		ts := now.Format(time.RFC3339)
		for _, it := range o.Items {
			p, err := getAs[*models.Product](ctx, w, models.CollectionProducts, it.ProductID)
			if err != nil {
				return fmt.Errorf("receive %s item %s: %w", o.PONumber, it.ProductID, err)
			}
			p.Stock += it.Quantity
			p.UpdatedAt = now
			mv := &models.StockMovement{
				ID:          r.newID(),
				ProductID:   p.ID,
				ProductName: productName(p),
				Type:        models.MovementIn,
				Quantity:    it.Quantity,
				Notes:       "Received " + o.PONumber,
				Timestamp:   ts,
			}
			if err := r.stageAll(ctx, w, staged{models.OpUpdate, p}, staged{models.OpCreate, mv}); err != nil {
				return err
			}
		}

		o.Status = models.POStatusReceived
		order = o
		return r.stageAll(ctx, w, staged{models.OpUpdate, o})
	})
	if err != nil {
		return nil, err
	}
	slog.Info("purchase order received", "po", order.PONumber, "items", len(order.Items))
	return order, nil
}

// DeletePurchaseOrder removes an order locally and queues the remote delete.
func (r *Repository) DeletePurchaseOrder(ctx context.Context, id string) error {
	return r.remove(ctx, models.CollectionPurchaseOrders, id)
}

// GetPurchaseOrder returns one order.
func (r *Repository) GetPurchaseOrder(ctx context.Context, id string) (*models.PurchaseOrder, error) {
	return getAs[*models.PurchaseOrder](ctx, r.records, models.CollectionPurchaseOrders, id)
}

// ListPurchaseOrders returns orders newest first, optionally filtered by status.
func (r *Repository) ListPurchaseOrders(ctx context.Context, status models.POStatus) ([]*models.PurchaseOrder, error) {
	var (
		recs []models.Record
		err  error
	)
	if status != "" {
		recs, err = r.records.GetAllByIndex(ctx, models.CollectionPurchaseOrders, models.IndexByStatus, string(status))
	} else {
		recs, err = r.records.GetAll(ctx, models.CollectionPurchaseOrders)
	}
	out, err := listAs[*models.PurchaseOrder](recs, err)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderDate != out[j].OrderDate {
			return out[i].OrderDate > out[j].OrderDate
		}
		return out[i].PONumber > out[j].PONumber
	})
	return out, nil
}
