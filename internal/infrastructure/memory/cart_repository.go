package memory

import (
	"context"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
)

// CartRepository keeps id/quantity pairs in process memory, the same shape
// the file and redis stores persist.
type CartRepository struct {
	mu    sync.RWMutex
	lines []domain.Record
}

func NewCartRepository() *CartRepository {
	return &CartRepository{}
}

func (r *CartRepository) Load(ctx context.Context, cat *catalog.Catalog) (*domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return domain.Rebuild(r.lines, cat, nil), nil
}

func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	lines := c.Records()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines = lines
	return nil
}

func (r *CartRepository) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines = nil
	return nil
}

// Quantities returns the persisted quantity per product id.
func (r *CartRepository) Quantities() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int, len(r.lines))
	for _, l := range r.lines {
		out[l.ProductID] += l.Quantity
	}
	return out
}
