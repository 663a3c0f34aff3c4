package cart

import "errors"

var (
	ErrNegativeQuantity = errors.New("cart: quantity cannot be negative")
	ErrLineNotFound     = errors.New("cart: line not found")
)

// LineItem reserves Quantity units of the catalog product keyed by ProductID.
// The catalog owns the product; the line only holds its key.
type LineItem struct {
	ProductID string
	quantity  int
}

func NewLineItem(productID string, quantity int) (*LineItem, error) {
	if quantity < 0 {
		return nil, ErrNegativeQuantity
	}
	return &LineItem{ProductID: productID, quantity: quantity}, nil
}

func (l *LineItem) Quantity() int { return l.quantity }

// SetQuantity overwrites the reserved quantity. Negative values are rejected.
func (l *LineItem) SetQuantity(quantity int) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	l.quantity = quantity
	return nil
}

// Cart maps product ids to line items. Lines are listed in first-added order.
type Cart struct {
	order []string
	lines map[string]*LineItem
}

func New() *Cart {
	return &Cart{lines: make(map[string]*LineItem)}
}

func (c *Cart) Get(productID string) (*LineItem, bool) {
	l, ok := c.lines[productID]
	return l, ok
}

// Put inserts or replaces the line for l.ProductID.
func (c *Cart) Put(l *LineItem) {
	if _, exists := c.lines[l.ProductID]; !exists {
		c.order = append(c.order, l.ProductID)
	}
	c.lines[l.ProductID] = l
}

// Remove deletes the line for productID and returns it.
func (c *Cart) Remove(productID string) (*LineItem, error) {
	l, ok := c.lines[productID]
	if !ok {
		return nil, ErrLineNotFound
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return l, nil
}

func (c *Cart) Len() int { return len(c.order) }

func (c *Cart) IsEmpty() bool { return len(c.order) == 0 }

// Lines returns the line items in first-added order.
func (c *Cart) Lines() []*LineItem {
	out := make([]*LineItem, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.lines[id])
	}
	return out
}

// ReservedQuantity returns the units held for productID, zero when absent.
func (c *Cart) ReservedQuantity(productID string) int {
	if l, ok := c.lines[productID]; ok {
		return l.quantity
	}
	return 0
}

// Clone returns a deep copy.
func (c *Cart) Clone() *Cart {
	clone := New()
	for _, l := range c.Lines() {
		clone.Put(&LineItem{ProductID: l.ProductID, quantity: l.quantity})
	}
	return clone
}
