package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/vempat/vempat/internal/models"
)

// CreateSupplier stores a new supplier, assigning an id when empty.
func (r *Repository) CreateSupplier(ctx context.Context, s *models.Supplier) error {
	if s.ID == "" {
		s.ID = r.newID()
	}
	return r.save(ctx, models.OpCreate, s)
}

// UpdateSupplier replaces an existing supplier.
func (r *Repository) UpdateSupplier(ctx context.Context, s *models.Supplier) error {
	if err := r.mustExist(ctx, models.CollectionSuppliers, s.ID); err != nil {
		return err
	}
	return r.save(ctx, models.OpUpdate, s)
}

// DeleteSupplier removes a supplier locally and queues the remote delete.
func (r *Repository) DeleteSupplier(ctx context.Context, id string) error {
	return r.remove(ctx, models.CollectionSuppliers, id)
}

// GetSupplier returns one supplier.
func (r *Repository) GetSupplier(ctx context.Context, id string) (*models.Supplier, error) {
	return getAs[*models.Supplier](ctx, r.records, models.CollectionSuppliers, id)
}

// ListSuppliers returns suppliers ordered by name.
func (r *Repository) ListSuppliers(ctx context.Context) ([]*models.Supplier, error) {
	out, err := listAs[*models.Supplier](r.records.GetAll(ctx, models.CollectionSuppliers))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}
