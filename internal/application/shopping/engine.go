package shopping

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/billing"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine moves stock between catalog availability and cart reservations.
//
// Every operation validates before it mutates, so a rejected call leaves no
// trace. A successful mutation is persisted through the cart repository; if
// that fails the in-memory state is rolled back and the store error returned.
// Lookups are exact: callers normalize product ids.
type Engine struct {
	mu       sync.Mutex
	catalogs catalog.Repository
	carts    cart.Repository
	catalog  *catalog.Catalog
	cart     *cart.Cart

	ids   IDGenerator
	clock func() time.Time
}

type options struct {
	resetCart bool
	logger    observability.Logger
	ids       IDGenerator
	clock     func() time.Time
}

type Option func(*options)

// WithCartReset selects the startup policy for persisted cart state. With
// reset (the default) the session starts from an empty cart; without it the
// persisted lines are restored and re-reserved against the loaded catalog.
func WithCartReset(reset bool) Option {
	return func(o *options) { o.resetCart = reset }
}

func WithLogger(l observability.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.ids = g
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

// Open loads the catalog, applies the cart startup policy and returns a ready engine.
func Open(ctx context.Context, catalogs catalog.Repository, carts cart.Repository, opts ...Option) (*Engine, error) {
	o := options{
		resetCart: true,
		logger:    observability.NopLogger(),
		ids:       uuidGenerator{},
		clock:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logctx.FromOr(ctx, o.logger)

	cat, err := catalogs.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("shopping: load catalog: %w", err)
	}
	if n := len(cat.Skipped); n > 0 {
		logger.Warn("catalog_loaded_with_skipped_records", observability.F("skipped", n))
	}

	e := &Engine{
		catalogs: catalogs,
		carts:    carts,
		catalog:  cat,
		cart:     cart.New(),
		ids:      o.ids,
		clock:    o.clock,
	}

	if o.resetCart {
		if err := carts.Reset(ctx); err != nil {
			return nil, fmt.Errorf("shopping: reset cart: %w", err)
		}
		logger.Info("session_opened",
			observability.F("products", cat.Len()),
			observability.F("cart_policy", "reset"),
		)
		return e, nil
	}

	if err := e.restoreCart(ctx, logger); err != nil {
		return nil, err
	}
	logger.Info("session_opened",
		observability.F("products", cat.Len()),
		observability.F("cart_policy", "restore"),
		observability.F("cart_lines", e.cart.Len()),
	)
	return e, nil
}

// restoreCart re-reserves persisted lines so that availability plus
// reservation stays equal to the stock the catalog file reports.
func (e *Engine) restoreCart(ctx context.Context, logger observability.Logger) error {
	persisted, err := e.carts.Load(ctx, e.catalog)
	if err != nil {
		return fmt.Errorf("shopping: load cart: %w", err)
	}

	dropped := 0
	for _, l := range persisted.Lines() {
		p, ok := e.catalog.Get(l.ProductID)
		if !ok || l.Quantity() <= 0 {
			dropped++
			continue
		}
		if err := p.Reserve(l.Quantity()); err != nil {
			logger.Warn("cart_line_not_restored",
				observability.F("product_id", l.ProductID),
				observability.F("quantity", l.Quantity()),
				observability.F("available", p.QuantityAvailable()),
				observability.F("error", err),
			)
			dropped++
			continue
		}
		e.cart.Put(l)
	}

	if dropped > 0 {
		if err := e.carts.Save(ctx, e.cart); err != nil {
			return fmt.Errorf("shopping: save restored cart: %w", err)
		}
	}
	return nil
}

// AddItem reserves quantity units of productID, creating the cart line or
// growing the existing one.
func (e *Engine) AddItem(ctx context.Context, productID string, quantity int) (LineChange, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.catalog.Get(productID)
	if !ok {
		return LineChange{}, fmt.Errorf("%w: %q", ErrUnknownProduct, productID)
	}
	if quantity <= 0 {
		return LineChange{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if quantity > p.QuantityAvailable() {
		return LineChange{}, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, quantity, p.QuantityAvailable())
	}

	rollback := e.checkpoint(p)

	line, exists := e.cart.Get(productID)
	if exists {
		if err := line.SetQuantity(line.Quantity() + quantity); err != nil {
			return LineChange{}, err
		}
	} else {
		var err error
		if line, err = cart.NewLineItem(productID, quantity); err != nil {
			return LineChange{}, err
		}
		e.cart.Put(line)
	}
	if err := p.Reserve(quantity); err != nil {
		rollback()
		return LineChange{}, fmt.Errorf("shopping: reserve: %w", err)
	}

	if err := e.carts.Save(ctx, e.cart); err != nil {
		rollback()
		return LineChange{}, fmt.Errorf("shopping: save cart: %w", err)
	}

	return LineChange{
		ProductID:    productID,
		Moved:        quantity,
		LineQuantity: line.Quantity(),
		Available:    p.QuantityAvailable(),
	}, nil
}

// UpdateQuantity returns amountToRemove units of a cart line to the catalog.
// It only ever shrinks a line; draining it to zero removes the line.
func (e *Engine) UpdateQuantity(ctx context.Context, productID string, amountToRemove int) (LineChange, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	line, ok := e.cart.Get(productID)
	if !ok {
		return LineChange{}, fmt.Errorf("%w: %q", ErrNotInCart, productID)
	}
	if amountToRemove < 0 {
		return LineChange{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, amountToRemove)
	}
	if amountToRemove > line.Quantity() {
		return LineChange{}, fmt.Errorf("%w: remove %d, held %d", ErrExceedsLineQuantity, amountToRemove, line.Quantity())
	}
	p, ok := e.catalog.Get(productID)
	if !ok {
		return LineChange{}, fmt.Errorf("%w: %q", ErrUnknownProduct, productID)
	}

	rollback := e.checkpoint(p)

	remaining := line.Quantity() - amountToRemove
	if err := line.SetQuantity(remaining); err != nil {
		return LineChange{}, err
	}
	if err := p.Release(amountToRemove); err != nil {
		rollback()
		return LineChange{}, fmt.Errorf("shopping: release: %w", err)
	}
	if remaining == 0 {
		if _, err := e.cart.Remove(productID); err != nil {
			rollback()
			return LineChange{}, fmt.Errorf("shopping: drop line: %w", err)
		}
	}

	if err := e.carts.Save(ctx, e.cart); err != nil {
		rollback()
		return LineChange{}, fmt.Errorf("shopping: save cart: %w", err)
	}

	return LineChange{
		ProductID:    productID,
		Moved:        amountToRemove,
		LineQuantity: remaining,
		Available:    p.QuantityAvailable(),
	}, nil
}

// RemoveItem returns the whole line for productID to the catalog.
func (e *Engine) RemoveItem(ctx context.Context, productID string) (LineChange, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	line, ok := e.cart.Get(productID)
	if !ok {
		return LineChange{}, fmt.Errorf("%w: %q", ErrNotInCart, productID)
	}
	p, ok := e.catalog.Get(productID)
	if !ok {
		return LineChange{}, fmt.Errorf("%w: %q", ErrUnknownProduct, productID)
	}

	rollback := e.checkpoint(p)

	quantity := line.Quantity()
	if _, err := e.cart.Remove(productID); err != nil {
		return LineChange{}, fmt.Errorf("shopping: drop line: %w", err)
	}
	if err := p.Release(quantity); err != nil {
		rollback()
		return LineChange{}, fmt.Errorf("shopping: release: %w", err)
	}

	if err := e.carts.Save(ctx, e.cart); err != nil {
		rollback()
		return LineChange{}, fmt.Errorf("shopping: save cart: %w", err)
	}

	return LineChange{
		ProductID: productID,
		Moved:     quantity,
		Available: p.QuantityAvailable(),
	}, nil
}

// Total is the sum of price × quantity over the cart.
func (e *Engine) Total() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return billing.Total(e.catalog, e.cart)
}

// GenerateBill issues the final accounting of the cart and persists the
// catalog, whose availability now reflects everything reserved.
func (e *Engine) GenerateBill(ctx context.Context) (*billing.Bill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bill, err := billing.Compose(e.ids.NewID(), e.clock(), e.catalog, e.cart)
	if err != nil {
		return nil, fmt.Errorf("shopping: compose bill: %w", err)
	}
	if err := e.catalogs.Save(ctx, e.catalog); err != nil {
		return nil, fmt.Errorf("shopping: save catalog: %w", err)
	}
	return bill, nil
}

// Checkout bills the cart and starts a fresh one. The billed units stay out
// of the catalog: they are sold, not released.
//
// The empty cart is persisted before the catalog, so the stores never hold
// both the sold stock and the lines that reserved it. On any store failure
// the session keeps its cart and the persisted cart is put back.
func (e *Engine) Checkout(ctx context.Context) (*billing.Bill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bill, err := billing.Compose(e.ids.NewID(), e.clock(), e.catalog, e.cart)
	if err != nil {
		return nil, fmt.Errorf("shopping: compose bill: %w", err)
	}

	fresh := cart.New()
	if err := e.carts.Save(ctx, fresh); err != nil {
		return nil, fmt.Errorf("shopping: clear cart: %w", err)
	}
	if err := e.catalogs.Save(ctx, e.catalog); err != nil {
		if rerr := e.carts.Save(ctx, e.cart); rerr != nil {
			err = errors.Join(err, fmt.Errorf("restore cart: %w", rerr))
		}
		return nil, fmt.Errorf("shopping: save catalog: %w", err)
	}

	e.cart = fresh
	return bill, nil
}

// Products lists the catalog in record order.
func (e *Engine) Products() []ProductView {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]ProductView, 0, e.catalog.Len())
	for _, p := range e.catalog.Products() {
		out = append(out, productView(p))
	}
	return out
}

// Product returns a single catalog entry.
func (e *Engine) Product(productID string) (ProductView, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.catalog.Get(productID)
	if !ok {
		return ProductView{}, false
	}
	return productView(p), true
}

// Cart prices the current cart lines.
func (e *Engine) Cart() CartView {
	e.mu.Lock()
	defer e.mu.Unlock()

	view := CartView{Lines: make([]LineView, 0, e.cart.Len()), Total: decimal.Zero}
	for _, l := range e.cart.Lines() {
		lv, ok := e.lineView(l)
		if !ok {
			continue
		}
		view.Lines = append(view.Lines, lv)
		view.Total = view.Total.Add(lv.Subtotal)
	}
	return view
}

// Line prices the cart line for productID.
func (e *Engine) Line(productID string) (LineView, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.cart.Get(productID)
	if !ok {
		return LineView{}, false
	}
	return e.lineView(l)
}

func (e *Engine) lineView(l *cart.LineItem) (LineView, bool) {
	p, ok := e.catalog.Get(l.ProductID)
	if !ok {
		return LineView{}, false
	}
	return LineView{
		ProductID: l.ProductID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  l.Quantity(),
		Subtotal:  billing.Subtotal(p, l.Quantity()),
	}, true
}

// Reserved returns the units held in the cart for productID.
func (e *Engine) Reserved(productID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.ReservedQuantity(productID)
}

// checkpoint captures the cart and one product's availability; the returned
// func restores both.
func (e *Engine) checkpoint(p *catalog.Product) func() {
	cartBefore := e.cart.Clone()
	availableBefore := p.QuantityAvailable()
	return func() {
		e.cart = cartBefore
		_ = p.SetQuantityAvailable(availableBefore)
	}
}
