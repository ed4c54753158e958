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

// AdjustStock changes a product's stock and logs the movement. "in" adds
// quantity, "out" removes it and "adjustment" sets stock to quantity. An
// adjustment to the current level writes nothing and returns a nil movement.
func (r *Repository) AdjustStock(ctx context.Context, productID string, typ models.MovementType, quantity int, notes string) (*models.StockMovement, error) {
	if quantity < 0 || (quantity == 0 && typ != models.MovementAdjustment) {
		return nil, &ValidationError{Err: errors.New("quantity must be positive")}
	}

	var mv *models.StockMovement
	err := r.records.Update(ctx, func(w store.Writer) error {
		p, err := getAs[*models.Product](ctx, w, models.CollectionProducts, productID)
		if err != nil {
			return err
		}

		moved := quantity
		switch typ {
		case models.MovementIn:
			p.Stock += quantity
		case models.MovementOut:
			if p.Stock < quantity {
				return fmt.Errorf("%s has %d in stock: %w", productName(p), p.Stock, ErrInsufficientStock)
			}
			p.Stock -= quantity
		case models.MovementAdjustment:
			moved = quantity - p.Stock
			if moved < 0 {
				moved = -moved
			}
			p.Stock = quantity
		default:
			return &ValidationError{Err: fmt.Errorf("unknown movement type %q", typ)}
		}
		if moved == 0 {
			// Nothing changed; a zero-quantity movement would fail validation.
			return nil
		}

		now := r.now().UTC()
		p.UpdatedAt = now
		mv = &models.StockMovement{
			ID:          r.newID(),
			ProductID:   p.ID,
			ProductName: productName(p),
			Type:        typ,
			Quantity:    moved,
			Notes:       notes,
			Timestamp:   now.Format(time.RFC3339),
		}
		return r.stageAll(ctx, w, staged{models.OpUpdate, p}, staged{models.OpCreate, mv})
	})
	if err != nil {
		return nil, err
	}
	return mv, nil
}

// CreateStockMovement stores a movement record as given, without touching stock.
func (r *Repository) CreateStockMovement(ctx context.Context, m *models.StockMovement) error {
	if m.ID == "" {
		m.ID = r.newID()
	}
	if m.Timestamp == "" {
		m.Timestamp = r.now().UTC().Format(time.RFC3339)
	}
	return r.save(ctx, models.OpCreate, m)
}

// UpdateStockMovement replaces an existing movement.
func (r *Repository) UpdateStockMovement(ctx context.Context, m *models.StockMovement) error {
	if err := r.mustExist(ctx, models.CollectionStockMovements, m.ID); err != nil {
		return err
	}
	return r.save(ctx, models.OpUpdate, m)
}

// DeleteStockMovement removes a movement locally and queues the remote delete.
func (r *Repository) DeleteStockMovement(ctx context.Context, id string) error {
	return r.remove(ctx, models.CollectionStockMovements, id)
}

// GetStockMovement returns one movement.
func (r *Repository) GetStockMovement(ctx context.Context, id string) (*models.StockMovement, error) {
	return getAs[*models.StockMovement](ctx, r.records, models.CollectionStockMovements, id)
}

// ListStockMovements returns movements newest first. A non-empty productID
// restricts the list to that product.
func (r *Repository) ListStockMovements(ctx context.Context, productID string) ([]*models.StockMovement, error) {
	var (
		recs []models.Record
		err  error
	)
	if productID != "" {
		recs, err = r.records.GetAllByIndex(ctx, models.CollectionStockMovements, models.IndexByProduct, productID)
	} else {
		recs, err = r.records.GetAll(ctx, models.CollectionStockMovements)
	}
	mvs, err := listAs[*models.StockMovement](recs, err)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(mvs, func(i, j int) bool { return mvs[i].Timestamp > mvs[j].Timestamp })
	return mvs, nil
}
