package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/store"
)

// SaleInput is a point-of-sale checkout line.
type SaleInput struct {
	ProductID    string
	Quantity     int
	CustomerName string
}

// RecordSale checks out one product: it decrements stock, stores the sale
// and an "out" stock movement, and queues all three writes together. Stock
// never goes negative.
func (r *Repository) RecordSale(ctx context.Context, in SaleInput) (*models.Sale, error) {
	if in.Quantity <= 0 {
		return nil, &ValidationError{Err: errors.New("quantity must be positive")}
	}

	var sale *models.Sale
	err := r.records.Update(ctx, func(w store.Writer) error {
		p, err := getAs[*models.Product](ctx, w, models.CollectionProducts, in.ProductID)
		if err != nil {
			return err
		}
		if p.Stock < in.Quantity {
			return fmt.Errorf("%s has %d in stock, %d requested: %w", productName(p), p.Stock, in.Quantity, ErrInsufficientStock)
		}

		now := r.now().UTC()
		p.Stock -= in.Quantity
		p.UpdatedAt = now

		sale = &models.Sale{
			ID:           r.newID(),
			ProductID:    p.ID,
			ProductName:  productName(p),
			Quantity:     in.Quantity,
			TotalPrice:   p.PricePerBag * float64(in.Quantity),
			CustomerName: in.CustomerName,
			Date:         now.Format(time.RFC3339),
		}
		mv := &models.StockMovement{
			ID:          r.newID(),
			ProductID:   p.ID,
			ProductName: sale.ProductName,
			Type:        models.MovementOut,
			Quantity:    in.Quantity,
			Notes:       "Sale " + sale.ID,
			Timestamp:   sale.Date,
		}
		return r.stageAll(ctx, w,
			staged{models.OpUpdate, p},
			staged{models.OpCreate, sale},
			staged{models.OpCreate, mv},
		)
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// CreateSale stores a sale as given, without touching stock.
func (r *Repository) CreateSale(ctx context.Context, s *models.Sale) error {
	if s.ID == "" {
		s.ID = r.newID()
	}
	if s.Date == "" {
		s.Date = r.now().UTC().Format(time.RFC3339)
	}
	return r.save(ctx, models.OpCreate, s)
}

// UpdateSale replaces an existing sale.
func (r *Repository) UpdateSale(ctx context.Context, s *models.Sale) error {
	if err := r.mustExist(ctx, models.CollectionSales, s.ID); err != nil {
		return err
	}
	return r.save(ctx, models.OpUpdate, s)
}

// DeleteSale removes a sale locally and queues the remote delete.
func (r *Repository) DeleteSale(ctx context.Context, id string) error {
	return r.remove(ctx, models.CollectionSales, id)
}

// GetSale returns one sale.
func (r *Repository) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	return getAs[*models.Sale](ctx, r.records, models.CollectionSales, id)
}

// ListSales returns sales, newest first.
func (r *Repository) ListSales(ctx context.Context) ([]*models.Sale, error) {
	sales, err := listAs[*models.Sale](r.records.GetAll(ctx, models.CollectionSales))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sales, func(i, j int) bool { return sales[i].Date > sales[j].Date })
	return sales, nil
}

// Stats summarizes revenue and inventory.
func (r *Repository) Stats(ctx context.Context) (models.BusinessStats, error) {
	var st models.BusinessStats

	sales, err := r.ListSales(ctx)
	if err != nil {
		return st, err
	}
	for _, s := range sales {
		st.TotalRevenue += s.TotalPrice
	}
	st.TotalSales = len(sales)

	products, err := r.ListProducts(ctx)
	if err != nil {
		return st, err
	}
	for _, p := range products {
		if p.IsLowStock() {
			st.LowStockItems++
		}
		st.TotalInventoryValue += p.PricePerBag * float64(p.Stock)
	}
	return st, nil
}

func productName(p *models.Product) string {
	if p.Type == "" {
		return p.Brand
	}
	return p.Brand + " " + string(p.Type)
}

type staged struct {
	op  models.Op
	rec models.Record
}

// stageAll validates and stages several writes in order; queue ids follow
// the argument order.
func (r *Repository) stageAll(ctx context.Context, w store.Writer, writes ...staged) error {
	for _, s := range writes {
		if err := r.check(s.rec); err != nil {
			return err
		}
		if err := r.stage(ctx, w, s.op, s.rec); err != nil {
			return err
		}
	}
	return nil
}
