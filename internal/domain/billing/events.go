package billing

import "time"

// SoldLine is the per-product part of a BillGeneratedEvent.
type SoldLine struct {
	ProductID string
	Quantity  int
}

// BillGeneratedEvent is emitted once a bill is issued and the stock snapshot persisted.
type BillGeneratedEvent struct {
	BillID     string
	GrandTotal string
	Lines      []SoldLine
	OccurredAt time.Time
}

func (BillGeneratedEvent) EventName() string { return "billing.bill_generated" }

func NewBillGeneratedEvent(b *Bill) BillGeneratedEvent {
	lines := make([]SoldLine, 0, len(b.Lines))
	for _, l := range b.Lines {
		lines = append(lines, SoldLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return BillGeneratedEvent{
		BillID:     b.ID,
		GrandTotal: b.GrandTotal.StringFixed(2),
		Lines:      lines,
		OccurredAt: time.Now().UTC(),
	}
}
