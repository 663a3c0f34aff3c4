package cart

import (
	"context"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
)

// Repository persists cart lines as product id and quantity pairs.
type Repository interface {
	// Load resolves persisted lines against cat. Lines naming products the
	// catalog does not know are dropped; an empty cart is returned when
	// nothing has been persisted.
	Load(ctx context.Context, cat *catalog.Catalog) (*Cart, error)
	// Save overwrites the persisted cart.
	Save(ctx context.Context, c *Cart) error
	// Reset discards any persisted cart state.
	Reset(ctx context.Context) error
}
