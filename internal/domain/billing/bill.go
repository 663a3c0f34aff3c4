package billing

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// Line is one priced cart line on a bill.
type Line struct {
	ProductID    string
	Name         string
	Kind         catalog.Kind
	UnitPrice    decimal.Decimal
	Quantity     int
	Subtotal     decimal.Decimal
	Weight       float64
	DownloadLink string
}

// Bill is the final accounting of a shopping session.
type Bill struct {
	ID         string
	IssuedAt   time.Time
	Lines      []Line
	GrandTotal decimal.Decimal
}

func (b *Bill) ItemCount() int {
	var n int
	for _, l := range b.Lines {
		n += l.Quantity
	}
	return n
}

// Subtotal prices a single line against its catalog product.
func Subtotal(p *catalog.Product, quantity int) decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(quantity)))
}

// Total sums price × quantity over every line of c. Lines whose product is
// missing from cat contribute nothing.
func Total(cat *catalog.Catalog, c *cart.Cart) decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines() {
		p, ok := cat.Get(l.ProductID)
		if !ok {
			continue
		}
		total = total.Add(Subtotal(p, l.Quantity()))
	}
	return total
}

// Compose prices every line of c against cat.
func Compose(id string, issuedAt time.Time, cat *catalog.Catalog, c *cart.Cart) (*Bill, error) {
	bill := &Bill{
		ID:         id,
		IssuedAt:   issuedAt,
		Lines:      make([]Line, 0, c.Len()),
		GrandTotal: decimal.Zero,
	}
	for _, l := range c.Lines() {
		p, ok := cat.Get(l.ProductID)
		if !ok {
			return nil, fmt.Errorf("billing: line %s: %w", l.ProductID, catalog.ErrNotFound)
		}
		sub := Subtotal(p, l.Quantity())
		bill.Lines = append(bill.Lines, Line{
			ProductID:    p.ID,
			Name:         p.Name,
			Kind:         p.Kind,
			UnitPrice:    p.Price,
			Quantity:     l.Quantity(),
			Subtotal:     sub,
			Weight:       p.Weight,
			DownloadLink: p.DownloadLink,
		})
		bill.GrandTotal = bill.GrandTotal.Add(sub)
	}
	return bill, nil
}
