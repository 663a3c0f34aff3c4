package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T, ids ...string) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	for _, id := range ids {
		p, err := catalog.NewProduct(id, id, decimal.NewFromInt(1), 10)
		require.NoError(t, err)
		require.NoError(t, cat.Add(p))
	}
	return cat
}

func TestCartStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewCartStore(filepath.Join(t.TempDir(), "cart.json"), nil)
	cat := testCatalog(t, "P1", "P2")

	c := cart.New()
	l1, _ := cart.NewLineItem("P2", 1)
	l2, _ := cart.NewLineItem("P1", 4)
	c.Put(l1)
	c.Put(l2)
	require.NoError(t, store.Save(ctx, c))

	loaded, err := store.Load(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, []CartRecord{{ProductID: "P2", Quantity: 1}, {ProductID: "P1", Quantity: 4}}, EncodeCart(loaded))
}

func TestCartStore_LoadDropsUnknownAndEmptyLines(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cart.json", `[
  {"product_id": "P1", "quantity": 2},
  {"product_id": "GONE", "quantity": 5},
  {"product_id": "P2", "quantity": 0}
]`)

	loaded, err := NewCartStore(path, nil).Load(context.Background(), testCatalog(t, "P1", "P2"))
	require.NoError(t, err)
	assert.Equal(t, []CartRecord{{ProductID: "P1", Quantity: 2}}, EncodeCart(loaded))
}

func TestCartStore_MissingFileIsEmpty(t *testing.T) {
	loaded, err := NewCartStore(filepath.Join(t.TempDir(), "cart.json"), nil).
		Load(context.Background(), testCatalog(t, "P1"))
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())
}

func TestCartStore_Reset(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, t.TempDir(), "cart.json", `[{"product_id": "P1", "quantity": 2}]`)
	store := NewCartStore(path, nil)

	require.NoError(t, store.Reset(ctx))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Reset(ctx), "resetting twice is fine")
}

func TestDecodeCart_MergesDuplicateLines(t *testing.T) {
	c := DecodeCart(context.Background(), nil, []CartRecord{
		{ProductID: "P1", Quantity: 1},
		{ProductID: "P1", Quantity: 2},
	}, testCatalog(t, "P1"))

	assert.Equal(t, 3, c.ReservedQuantity("P1"))
	assert.Equal(t, 1, c.Len())
}
