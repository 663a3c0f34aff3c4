package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/jsonfile"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/redis/go-redis/v9"
)

const DefaultKey = "minishop:cart"

// CartRepository keeps the cart under a single key as the same JSON array
// of {product_id, quantity} the file store writes.
type CartRepository struct {
	client redis.Cmdable
	key    string
	log    observability.Logger
}

func NewCartRepository(client redis.Cmdable, key string, logger observability.Logger) *CartRepository {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &CartRepository{
		client: client,
		key:    key,
		log:    logger.With(observability.F("component", "cart_store"), observability.F("redis_key", key)),
	}
}

func (r *CartRepository) Load(ctx context.Context, cat *catalog.Catalog) (*cart.Cart, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var records []jsonfile.CartRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return jsonfile.DecodeCart(ctx, r.log, records, cat), nil
}

func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	data, err := json.Marshal(jsonfile.EncodeCart(c))
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

func (r *CartRepository) Reset(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
