package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("catalog: product not found")
	ErrInvalidQuantity   = errors.New("catalog: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
	ErrNegativeQuantity  = errors.New("catalog: quantity cannot be negative")
	ErrNegativePrice     = errors.New("catalog: price cannot be negative")
	ErrMissingID         = errors.New("catalog: product id is required")
	ErrDuplicateID       = errors.New("catalog: duplicate product id")
)

// Kind discriminates the product variants.
type Kind string

const (
	KindGeneric  Kind = "generic"
	KindPhysical Kind = "physical"
	KindDigital  Kind = "digital"
)

// Valid reports whether k names a known variant.
func (k Kind) Valid() bool {
	switch k {
	case KindGeneric, KindPhysical, KindDigital:
		return true
	}
	return false
}

// Product is a sellable catalog entry. Weight is meaningful only for
// KindPhysical and DownloadLink only for KindDigital.
type Product struct {
	ID           string
	Name         string
	Price        decimal.Decimal
	Kind         Kind
	Weight       float64
	DownloadLink string

	quantityAvailable int
}

func NewProduct(id, name string, price decimal.Decimal, quantityAvailable int) (*Product, error) {
	return newProduct(id, name, price, quantityAvailable, KindGeneric)
}

func NewPhysicalProduct(id, name string, price decimal.Decimal, quantityAvailable int, weight float64) (*Product, error) {
	p, err := newProduct(id, name, price, quantityAvailable, KindPhysical)
	if err != nil {
		return nil, err
	}
	p.Weight = weight
	return p, nil
}

func NewDigitalProduct(id, name string, price decimal.Decimal, quantityAvailable int, downloadLink string) (*Product, error) {
	p, err := newProduct(id, name, price, quantityAvailable, KindDigital)
	if err != nil {
		return nil, err
	}
	p.DownloadLink = downloadLink
	return p, nil
}

func newProduct(id, name string, price decimal.Decimal, quantityAvailable int, kind Kind) (*Product, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if price.IsNegative() {
		return nil, ErrNegativePrice
	}
	if quantityAvailable < 0 {
		return nil, ErrNegativeQuantity
	}
	return &Product{
		ID:                id,
		Name:              name,
		Price:             price,
		Kind:              kind,
		quantityAvailable: quantityAvailable,
	}, nil
}

func (p *Product) QuantityAvailable() int { return p.quantityAvailable }

// SetQuantityAvailable overwrites the available stock. Negative values are rejected.
func (p *Product) SetQuantityAvailable(quantity int) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	p.quantityAvailable = quantity
	return nil
}

// Reserve takes quantity out of the available pool.
func (p *Product) Reserve(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > p.quantityAvailable {
		return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, quantity, p.quantityAvailable)
	}
	p.quantityAvailable -= quantity
	return nil
}

// Release returns quantity to the available pool.
func (p *Product) Release(quantity int) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	p.quantityAvailable += quantity
	return nil
}

// Clone returns a deep copy.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
