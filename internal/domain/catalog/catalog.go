package catalog

import "fmt"

// SkippedRecord describes a catalog record dropped while loading.
type SkippedRecord struct {
	Index  int
	ID     string
	Reason string
}

// Catalog owns the product records. Iteration follows insertion order,
// which for file-backed catalogs is the record order of the file.
type Catalog struct {
	order    []string
	products map[string]*Product

	// Skipped lists records the loader could not turn into products.
	Skipped []SkippedRecord
}

func New() *Catalog {
	return &Catalog{products: make(map[string]*Product)}
}

// Add inserts p. Ids are unique within a catalog.
func (c *Catalog) Add(p *Product) error {
	if p == nil || p.ID == "" {
		return ErrMissingID
	}
	if _, exists := c.products[p.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
	}
	c.products[p.ID] = p
	c.order = append(c.order, p.ID)
	return nil
}

// Get performs an exact-match lookup; callers normalize ids.
func (c *Catalog) Get(id string) (*Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

func (c *Catalog) Len() int { return len(c.order) }

// Products returns the products in catalog order. The slice is fresh but
// the products are shared with the catalog.
func (c *Catalog) Products() []*Product {
	out := make([]*Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.products[id])
	}
	return out
}

// Clone returns a deep copy, including the skipped-record diagnostics.
func (c *Catalog) Clone() *Catalog {
	clone := New()
	for _, p := range c.Products() {
		_ = clone.Add(p.Clone())
	}
	clone.Skipped = append([]SkippedRecord(nil), c.Skipped...)
	return clone
}
