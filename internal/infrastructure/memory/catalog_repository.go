package memory

import (
	"context"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
)

// CatalogRepository keeps the catalog in process memory. Load and Save copy,
// so callers never share products with the store.
type CatalogRepository struct {
	mu      sync.RWMutex
	catalog *domain.Catalog
	saves   int
}

func NewCatalogRepository(products ...*domain.Product) *CatalogRepository {
	cat := domain.New()
	for _, p := range products {
		_ = cat.Add(p.Clone())
	}
	return &CatalogRepository{catalog: cat}
}

func (r *CatalogRepository) Load(ctx context.Context) (*domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.catalog.Clone(), nil
}

func (r *CatalogRepository) Save(ctx context.Context, c *domain.Catalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.catalog = c.Clone()
	r.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (r *CatalogRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}
