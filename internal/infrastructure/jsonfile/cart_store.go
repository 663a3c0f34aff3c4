package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"
)

// CartRecord is the persisted form of a cart line, shared by every cart backend.
type CartRecord = cart.Record

// EncodeCart turns c into records in line order.
func EncodeCart(c *cart.Cart) []CartRecord {
	return c.Records()
}

// DecodeCart rebuilds a cart from records, dropping ids unknown to cat and
// non-positive quantities. Repeated ids merge into one line.
func DecodeCart(ctx context.Context, logger observability.Logger, records []CartRecord, cat *catalog.Catalog) *cart.Cart {
	logger = logctx.FromOr(ctx, logger)
	return cart.Rebuild(records, cat, func(r cart.Record, reason string) {
		logger.Debug("cart_line_dropped",
			observability.F("product_id", r.ProductID),
			observability.F("reason", reason),
		)
	})
}

// CartStore persists the cart as a JSON array of {product_id, quantity}.
type CartStore struct {
	path string
	log  observability.Logger
}

func NewCartStore(path string, logger observability.Logger) *CartStore {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &CartStore{
		path: path,
		log:  logger.With(observability.F("component", "cart_store"), observability.F("path", path)),
	}
}

func (s *CartStore) Load(ctx context.Context, cat *catalog.Catalog) (*cart.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, ok, err := readFile(s.path)
	if err != nil {
		return nil, err
	}
	if !ok || len(bytes.TrimSpace(data)) == 0 {
		return cart.New(), nil
	}

	var records []CartRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("cart store: decode %s: %w", s.path, err)
	}
	return DecodeCart(ctx, s.log, records, cat), nil
}

func (s *CartStore) Save(ctx context.Context, c *cart.Cart) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeJSON(s.path, EncodeCart(c)); err != nil {
		return fmt.Errorf("cart store: %w", err)
	}
	return nil
}

// Reset deletes the cart file; a missing file is not an error.
func (s *CartStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cart store: reset %s: %w", s.path, err)
	}
	logctx.FromOr(ctx, s.log).Debug("cart_reset")
	return nil
}
