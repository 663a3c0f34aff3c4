package shopping

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/billing"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	cartService    = "cart-service"
	spanPrefix     = "UC."
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond

	UseCaseListProducts   = "cart.list_products"
	UseCaseAddItem        = "cart.add_item"
	UseCaseViewCart       = "cart.view"
	UseCaseUpdateQuantity = "cart.update_quantity"
	UseCaseRemoveItem     = "cart.remove_item"
	UseCaseCheckout       = "cart.checkout"
)

// Service is the caller-facing surface over an Engine. Each call is traced,
// counted and logged once as use_case_done; successful mutations publish a
// domain event. Nothing here reads from or writes to a terminal.
type Service struct {
	engine    *Engine
	publisher domoutbox.Publisher
	tel       observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

// NewService wires the engine to an optional event publisher.
func NewService(engine *Engine, publisher domoutbox.Publisher, tel observability.Observability) *Service {
	tel = observability.OrNop(tel)
	metrics := tel.Metrics()

	return &Service{
		engine:       engine,
		publisher:    publisher,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", cartService)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

// ListProducts returns the catalog in display order.
func (s *Service) ListProducts(ctx context.Context) []ProductView {
	ctx, call := s.begin(ctx, UseCaseListProducts, "ListProducts")
	defer call.end(ctx, nil)

	products := s.engine.Products()
	call.span.SetAttributes(attribute.Int("catalog.products", len(products)))
	return products
}

// Product looks up a single catalog entry.
func (s *Service) Product(productID string) (ProductView, bool) {
	return s.engine.Product(productID)
}

// Line looks up the cart line for productID without recording a use case.
func (s *Service) Line(productID string) (LineView, bool) {
	return s.engine.Line(productID)
}

// AddItem reserves quantity units of productID in the cart.
func (s *Service) AddItem(ctx context.Context, productID string, quantity int) (_ LineChange, err error) {
	ctx, call := s.begin(ctx, UseCaseAddItem, "AddItem",
		attribute.String("cart.product_id", productID),
		attribute.Int("cart.quantity", quantity),
	)
	defer func() { call.end(ctx, err) }()

	change, err := s.engine.AddItem(ctx, productID, quantity)
	if err != nil {
		return LineChange{}, err
	}

	call.publish(ctx, cart.NewItemAddedEvent(change.ProductID, change.Moved, change.LineQuantity, change.Available))
	call.span.AddEvent("cart.item_added", trace.WithAttributes(
		attribute.Int("cart.line_quantity", change.LineQuantity),
		attribute.Int("catalog.available", change.Available),
	))
	return change, nil
}

// ViewCart prices the cart lines and the running total.
func (s *Service) ViewCart(ctx context.Context) CartView {
	ctx, call := s.begin(ctx, UseCaseViewCart, "ViewCart")
	defer call.end(ctx, nil)

	view := s.engine.Cart()
	call.span.SetAttributes(
		attribute.Int("cart.lines", len(view.Lines)),
		attribute.String("cart.total", view.Total.StringFixed(2)),
	)
	return view
}

// UpdateQuantity returns amountToRemove units of productID to the catalog.
func (s *Service) UpdateQuantity(ctx context.Context, productID string, amountToRemove int) (_ LineChange, err error) {
	ctx, call := s.begin(ctx, UseCaseUpdateQuantity, "UpdateQuantity",
		attribute.String("cart.product_id", productID),
		attribute.Int("cart.quantity", amountToRemove),
	)
	defer func() { call.end(ctx, err) }()

	change, err := s.engine.UpdateQuantity(ctx, productID, amountToRemove)
	if err != nil {
		return LineChange{}, err
	}
	if change.Moved == 0 {
		call.status = "NOOP"
		return change, nil
	}

	call.publish(ctx, cart.NewItemReducedEvent(change.ProductID, change.Moved, change.LineQuantity, change.Available))
	call.span.AddEvent("cart.item_reduced", trace.WithAttributes(
		attribute.Int("cart.line_quantity", change.LineQuantity),
		attribute.Int("catalog.available", change.Available),
	))
	return change, nil
}

// RemoveItem returns a whole cart line to the catalog.
func (s *Service) RemoveItem(ctx context.Context, productID string) (_ LineChange, err error) {
	ctx, call := s.begin(ctx, UseCaseRemoveItem, "RemoveItem",
		attribute.String("cart.product_id", productID),
	)
	defer func() { call.end(ctx, err) }()

	change, err := s.engine.RemoveItem(ctx, productID)
	if err != nil {
		return LineChange{}, err
	}

	call.publish(ctx, cart.NewItemRemovedEvent(change.ProductID, change.Moved, change.Available))
	call.span.AddEvent("cart.item_removed", trace.WithAttributes(
		attribute.Int("catalog.available", change.Available),
	))
	return change, nil
}

// Checkout bills the cart, persists the catalog and starts an empty cart.
// A failed checkout sells nothing and leaves the cart as it was.
func (s *Service) Checkout(ctx context.Context) (_ *billing.Bill, err error) {
	ctx, call := s.begin(ctx, UseCaseCheckout, "Checkout")
	defer func() { call.end(ctx, err) }()

	bill, err := s.engine.Checkout(ctx)
	if err != nil {
		return nil, err
	}

	call.publish(ctx, billing.NewBillGeneratedEvent(bill))
	call.span.AddEvent("billing.bill_generated", trace.WithAttributes(
		attribute.String("bill.id", bill.ID),
		attribute.Int("bill.items", bill.ItemCount()),
		attribute.String("bill.total", bill.GrandTotal.StringFixed(2)),
	))
	return bill, nil
}

// call carries the per-invocation state observed when a use case finishes.
type call struct {
	s          *Service
	useCase    string
	span       trace.Span
	logger     observability.Logger
	start      time.Time
	status     string
	publishErr error
}

func (s *Service) begin(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *call) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCase))

	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+spanName, attrs...)

	return ctx, &call{
		s:       s,
		useCase: useCase,
		span:    span,
		logger:  logger,
		start:   time.Now(),
		status:  "OK",
	}
}

func (c *call) end(ctx context.Context, err error) {
	lat := time.Since(c.start).Seconds()
	outcome := outcomeOf(err)
	if err != nil {
		c.status = statusOf(err)
	}

	if c.span != nil {
		if err != nil {
			c.span.RecordError(err)
			c.span.SetStatus(codes.Error, c.status)
		} else {
			c.span.SetStatus(codes.Ok, c.status)
		}
		c.span.End()
	}

	c.s.reqCounter.Add(1,
		observability.L("use_case", c.useCase),
		observability.L("outcome", outcome),
	)
	c.s.durHistogram.Observe(lat, observability.L("use_case", c.useCase))

	fields := []observability.Field{
		observability.F("outcome", outcome),
		observability.F("status", c.status),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	if c.publishErr != nil {
		fields = append(fields, observability.F("event_publish_error", c.publishErr.Error()))
	}
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}

	c.logger.Info("use_case_done", fields...)
}

// publish hands e to the bus. A publish failure never fails the use case:
// the state change is already persisted.
func (c *call) publish(ctx context.Context, e domoutbox.Event) {
	if c.s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	pubStart := time.Now()
	pubOutcome := "success"

	c.publishErr = c.s.publisher.Publish(pubCtx, e)
	if c.publishErr != nil {
		pubOutcome = "error"
		c.status = "EVENT_PUBLISH_FAILED"
	} else if pubCtx.Err() != nil {
		pubOutcome = "canceled"
		c.publishErr = pubCtx.Err()
		c.status = "EVENT_PUBLISH_TIMEOUT"
	}

	c.s.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", pubOutcome),
	)
	c.s.extHistogram.Observe(time.Since(pubStart).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
	)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsRejected(err):
		return "rejected"
	default:
		return "error"
	}
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, ErrUnknownProduct):
		return "UNKNOWN_PRODUCT"
	case errors.Is(err, ErrInvalidQuantity):
		return "QUANTITY_INVALID"
	case errors.Is(err, ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, ErrNotInCart):
		return "NOT_IN_CART"
	case errors.Is(err, ErrExceedsLineQuantity):
		return "EXCEEDS_LINE_QUANTITY"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "STORE_FAILED"
	}
}
