package ledger

import (
	"context"
	"strings"
	"testing"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/billing"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	infraobs "github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/prometrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncSubscriber calls handlers inline so tests need no bus goroutine.
type syncSubscriber struct {
	handlers map[string][]domoutbox.Handler
}

func (s *syncSubscriber) Subscribe(name string, h domoutbox.Handler) {
	if s.handlers == nil {
		s.handlers = make(map[string][]domoutbox.Handler)
	}
	s.handlers[name] = append(s.handlers[name], h)
}

func (s *syncSubscriber) Publish(ctx context.Context, e domoutbox.Event) error {
	for _, h := range s.handlers[e.EventName()] {
		if err := h(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

type otherEvent struct{}

func (otherEvent) EventName() string { return "cart.item_added" }

func TestWorker_BooksMovements(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	tel := infraobs.NewWithRegistry(nil, nil, prometrics.New(reg, "", ""))

	book := NewBook()
	sub := &syncSubscriber{}
	NewWorker(sub, NewRecordMovementUseCase(book, tel), tel).Start()

	require.NoError(t, sub.Publish(ctx, cart.NewItemAddedEvent("P1", 5, 5, 5)))
	require.NoError(t, sub.Publish(ctx, cart.NewItemAddedEvent("P2", 1, 1, 0)))
	require.NoError(t, sub.Publish(ctx, cart.NewItemReducedEvent("P1", 2, 3, 7)))
	require.NoError(t, sub.Publish(ctx, cart.NewItemRemovedEvent("P2", 1, 1)))
	require.NoError(t, sub.Publish(ctx, billing.BillGeneratedEvent{
		BillID: "b-1",
		Lines:  []billing.SoldLine{{ProductID: "P1", Quantity: 3}},
	}))

	assert.Equal(t, []Totals{
		{ProductID: "P1", Reserved: 5, Released: 2, Sold: 3},
		{ProductID: "P2", Reserved: 1, Released: 1},
	}, book.Snapshot())
	for _, tot := range book.Snapshot() {
		assert.Zero(t, tot.Held(), tot.ProductID)
	}

	expected := `
# HELP stock_units_total Units moved between catalog availability, cart reservation and sale.
# TYPE stock_units_total counter
stock_units_total{movement="released",product_id="P1"} 2
stock_units_total{movement="released",product_id="P2"} 1
stock_units_total{movement="reserved",product_id="P1"} 5
stock_units_total{movement="reserved",product_id="P2"} 1
stock_units_total{movement="sold",product_id="P1"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "stock_units_total"))
}

func TestWorker_IgnoresUnexpectedPayload(t *testing.T) {
	book := NewBook()
	sub := &syncSubscriber{}
	NewWorker(sub, NewRecordMovementUseCase(book, nil), nil).Start()

	require.NoError(t, sub.Publish(context.Background(), otherEvent{}))
	assert.Empty(t, book.Snapshot())
}

func TestWorker_ReportsInvalidMovements(t *testing.T) {
	book := NewBook()
	sub := &syncSubscriber{}
	NewWorker(sub, NewRecordMovementUseCase(book, nil), nil).Start()

	err := sub.Publish(context.Background(), cart.NewItemAddedEvent("", 1, 1, 0))
	require.ErrorIs(t, err, ErrInvalidMovement)
	assert.Empty(t, book.Snapshot())
}

func TestRecordMovement_Validation(t *testing.T) {
	uc := NewRecordMovementUseCase(NewBook(), nil)

	for _, m := range []Movement{
		{ProductID: "P1", Kind: "lost", Units: 1},
		{ProductID: "P1", Kind: MovementSold, Units: 0},
		{Kind: MovementSold, Units: 1},
	} {
		_, err := uc.Execute(context.Background(), m)
		assert.ErrorIs(t, err, ErrInvalidMovement, "%+v", m)
	}

	got, err := uc.Execute(context.Background(), Movement{ProductID: "P1", Kind: MovementReserved, Units: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, got.Held())
}
