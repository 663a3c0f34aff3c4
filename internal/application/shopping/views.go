package shopping

import (
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductView is a read-only copy of a catalog entry for display.
type ProductView struct {
	ID                string
	Name              string
	Kind              catalog.Kind
	Price             decimal.Decimal
	QuantityAvailable int
	Weight            float64
	DownloadLink      string
}

// LineView is a priced cart line.
type LineView struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Subtotal  decimal.Decimal
}

type CartView struct {
	Lines []LineView
	Total decimal.Decimal
}

func (v CartView) IsEmpty() bool { return len(v.Lines) == 0 }

// LineChange describes the state of one product after a successful mutation.
// LineQuantity is zero when the line no longer exists.
type LineChange struct {
	ProductID    string
	Moved        int
	LineQuantity int
	Available    int
}

func productView(p *catalog.Product) ProductView {
	return ProductView{
		ID:                p.ID,
		Name:              p.Name,
		Kind:              p.Kind,
		Price:             p.Price,
		QuantityAvailable: p.QuantityAvailable(),
		Weight:            p.Weight,
		DownloadLink:      p.DownloadLink,
	}
}
