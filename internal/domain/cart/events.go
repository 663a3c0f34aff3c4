package cart

import "time"

// ItemAddedEvent is emitted when units move from catalog availability into the cart.
type ItemAddedEvent struct {
	ProductID    string
	Quantity     int
	LineQuantity int
	Available    int
	OccurredAt   time.Time
}

func (ItemAddedEvent) EventName() string { return "cart.item_added" }

func NewItemAddedEvent(productID string, quantity, lineQuantity, available int) ItemAddedEvent {
	return ItemAddedEvent{
		ProductID:    productID,
		Quantity:     quantity,
		LineQuantity: lineQuantity,
		Available:    available,
		OccurredAt:   time.Now().UTC(),
	}
}

// ItemReducedEvent is emitted when part of a line is returned to the catalog.
// LineQuantity is zero when the line was drained and removed.
type ItemReducedEvent struct {
	ProductID    string
	Quantity     int
	LineQuantity int
	Available    int
	OccurredAt   time.Time
}

func (ItemReducedEvent) EventName() string { return "cart.item_reduced" }

func NewItemReducedEvent(productID string, quantity, lineQuantity, available int) ItemReducedEvent {
	return ItemReducedEvent{
		ProductID:    productID,
		Quantity:     quantity,
		LineQuantity: lineQuantity,
		Available:    available,
		OccurredAt:   time.Now().UTC(),
	}
}

// ItemRemovedEvent is emitted when a whole line is returned to the catalog.
type ItemRemovedEvent struct {
	ProductID  string
	Quantity   int
	Available  int
	OccurredAt time.Time
}

func (ItemRemovedEvent) EventName() string { return "cart.item_removed" }

func NewItemRemovedEvent(productID string, quantity, available int) ItemRemovedEvent {
	return ItemRemovedEvent{
		ProductID:  productID,
		Quantity:   quantity,
		Available:  available,
		OccurredAt: time.Now().UTC(),
	}
}
