package cart

import "github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"

// Record is the persisted form of a line. Every cart backend stores a list of them.
type Record struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

const (
	DropUnknownProduct = "unknown product"
	DropNonPositive    = "non-positive quantity"
)

// Records returns c's lines in first-added order.
func (c *Cart) Records() []Record {
	out := make([]Record, 0, len(c.order))
	for _, l := range c.Lines() {
		out = append(out, Record{ProductID: l.ProductID, Quantity: l.quantity})
	}
	return out
}

// Rebuild turns persisted records back into a cart. Records naming products
// cat does not know, or carrying a non-positive quantity, are reported to
// drop (which may be nil) and skipped. Repeated ids merge into one line.
func Rebuild(records []Record, cat *catalog.Catalog, drop func(r Record, reason string)) *Cart {
	if drop == nil {
		drop = func(Record, string) {}
	}
	c := New()
	for _, r := range records {
		if _, ok := cat.Get(r.ProductID); !ok {
			drop(r, DropUnknownProduct)
			continue
		}
		if r.Quantity <= 0 {
			drop(r, DropNonPositive)
			continue
		}
		if existing, ok := c.Get(r.ProductID); ok {
			existing.quantity += r.Quantity
			continue
		}
		c.Put(&LineItem{ProductID: r.ProductID, quantity: r.Quantity})
	}
	return c
}
