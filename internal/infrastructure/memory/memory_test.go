package memory

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/jsonfile"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(t *testing.T, id string, qty int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(id, "Product "+id, decimal.RequireFromString("5.00"), qty)
	require.NoError(t, err)
	return p
}

func TestCatalogRepository_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepository(product(t, "P1", 10))

	cat, err := repo.Load(ctx)
	require.NoError(t, err)
	p, ok := cat.Get("P1")
	require.True(t, ok)
	require.NoError(t, p.Reserve(4))

	again, err := repo.Load(ctx)
	require.NoError(t, err)
	stored, _ := again.Get("P1")
	assert.Equal(t, 10, stored.QuantityAvailable())

	require.NoError(t, repo.Save(ctx, cat))
	again, err = repo.Load(ctx)
	require.NoError(t, err)
	stored, _ = again.Get("P1")
	assert.Equal(t, 6, stored.QuantityAvailable())
	assert.Equal(t, 1, repo.Saves())
}

func TestCartRepository_RoundTripDropsUnknownProducts(t *testing.T) {
	ctx := context.Background()
	cat := catalog.New()
	require.NoError(t, cat.Add(product(t, "P1", 10)))

	c := cart.New()
	l1, _ := cart.NewLineItem("P1", 3)
	l2, _ := cart.NewLineItem("GONE", 2)
	c.Put(l1)
	c.Put(l2)

	repo := NewCartRepository()
	require.NoError(t, repo.Save(ctx, c))
	assert.Equal(t, map[string]int{"P1": 3, "GONE": 2}, repo.Quantities())

	loaded, err := repo.Load(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
	assert.Equal(t, 3, loaded.ReservedQuantity("P1"))
}

func TestCartRepository_Reset(t *testing.T) {
	ctx := context.Background()
	cat := catalog.New()
	require.NoError(t, cat.Add(product(t, "P1", 10)))

	c := cart.New()
	l, _ := cart.NewLineItem("P1", 1)
	c.Put(l)

	repo := NewCartRepository()
	require.NoError(t, repo.Save(ctx, c))
	require.NoError(t, repo.Reset(ctx))

	loaded, err := repo.Load(ctx, cat)
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())
}

func TestRepositories_HonourCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCatalogRepository().Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, NewCartRepository().Save(ctx, cart.New()), context.Canceled)
}

func TestCartRepository_LoadMatchesFileDecoding(t *testing.T) {
	ctx := context.Background()
	cat := catalog.New()
	require.NoError(t, cat.Add(product(t, "P1", 10)))
	require.NoError(t, cat.Add(product(t, "P2", 10)))

	c := cart.New()
	for _, rec := range []cart.Record{{ProductID: "P1", Quantity: 3}, {ProductID: "P2", Quantity: 0}, {ProductID: "GONE", Quantity: 2}} {
		l, err := cart.NewLineItem(rec.ProductID, rec.Quantity)
		require.NoError(t, err)
		c.Put(l)
	}

	repo := NewCartRepository()
	require.NoError(t, repo.Save(ctx, c))
	loaded, err := repo.Load(ctx, cat)
	require.NoError(t, err)

	want := jsonfile.DecodeCart(ctx, nil, c.Records(), cat)
	assert.Equal(t, want.Records(), loaded.Records())
	assert.Equal(t, []cart.Record{{ProductID: "P1", Quantity: 3}}, loaded.Records())
}
