package repository

import (
	"context"
	"sort"

	"github.com/sahilm/fuzzy"
	"github.com/vempat/vempat/internal/models"
)

// CreateProduct stores a new product, assigning an id when empty.
func (r *Repository) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = r.newID()
	}
	p.UpdatedAt = r.now().UTC()
	return r.save(ctx, models.OpCreate, p)
}

// UpdateProduct replaces an existing product.
func (r *Repository) UpdateProduct(ctx context.Context, p *models.Product) error {
	if err := r.mustExist(ctx, models.CollectionProducts, p.ID); err != nil {
		return err
	}
	p.UpdatedAt = r.now().UTC()
	return r.save(ctx, models.OpUpdate, p)
}

// DeleteProduct removes a product locally and queues the remote delete.
func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	return r.remove(ctx, models.CollectionProducts, id)
}

// GetProduct returns one product.
func (r *Repository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return getAs[*models.Product](ctx, r.records, models.CollectionProducts, id)
}

// ListProducts returns all products ordered by id.
func (r *Repository) ListProducts(ctx context.Context) ([]*models.Product, error) {
	return listAs[*models.Product](r.records.GetAll(ctx, models.CollectionProducts))
}

// ProductsByBrand returns the products of one brand.
func (r *Repository) ProductsByBrand(ctx context.Context, brand string) ([]*models.Product, error) {
	return listAs[*models.Product](r.records.GetAllByIndex(ctx, models.CollectionProducts, models.IndexByBrand, brand))
}

// LowStock returns products at or below their reorder threshold.
func (r *Repository) LowStock(ctx context.Context) ([]*models.Product, error) {
	all, err := r.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.Product
	for _, p := range all {
		if p.IsLowStock() {
			out = append(out, p)
		}
	}
	return out, nil
}

// productSource adapts products for the fuzzy matcher. Each product is
// searched as "brand type particleSize".
type productSource []*models.Product

func (s productSource) String(i int) string {
	p := s[i]
	return p.Brand + " " + string(p.Type) + " " + p.ParticleSize
}

func (s productSource) Len() int { return len(s) }

// SearchProducts fuzzy-matches query against brand, type and particle size,
// best match first. An empty query returns every product.
func (r *Repository) SearchProducts(ctx context.Context, query string) ([]*models.Product, error) {
	all, err := r.ListProducts(ctx)
	if err != nil || query == "" {
		return all, err
	}

	matches := fuzzy.FindFrom(query, productSource(all))
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	out := make([]*models.Product, len(matches))
	for i, m := range matches {
		out[i] = all[m.Index]
	}
	return out, nil
}
