package catalog

import "context"

// Repository loads and persists the whole catalog.
type Repository interface {
	// Load returns an empty catalog when nothing has been persisted yet.
	Load(ctx context.Context) (*Catalog, error)
	// Save overwrites the persisted catalog with the full current state.
	Save(ctx context.Context, c *Catalog) error
}
