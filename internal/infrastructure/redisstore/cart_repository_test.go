package redisstore

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*CartRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCartRepository(client, "", nil), mr
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	for _, id := range []string{"P1", "P2"} {
		p, err := catalog.NewProduct(id, id, decimal.NewFromInt(3), 10)
		require.NoError(t, err)
		require.NoError(t, cat.Add(p))
	}
	return cat
}

func TestCartRepository_SaveWritesJSONArray(t *testing.T) {
	repo, mr := setupTestRedis(t)

	c := cart.New()
	l, _ := cart.NewLineItem("P1", 2)
	c.Put(l)
	require.NoError(t, repo.Save(context.Background(), c))

	got, err := mr.Get(DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"product_id":"P1","quantity":2}]`, got)
	assert.Equal(t, 0, int(mr.TTL(DefaultKey)), "cart state does not expire")
}

func TestCartRepository_Load(t *testing.T) {
	repo, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(DefaultKey, `[{"product_id":"P2","quantity":3},{"product_id":"GONE","quantity":1}]`))

	c, err := repo.Load(context.Background(), testCatalog(t))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 3, c.ReservedQuantity("P2"))
}

func TestCartRepository_LoadMissingKeyIsEmpty(t *testing.T) {
	repo, _ := setupTestRedis(t)

	c, err := repo.Load(context.Background(), testCatalog(t))
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestCartRepository_LoadCorruptValue(t *testing.T) {
	repo, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(DefaultKey, "not json"))

	_, err := repo.Load(context.Background(), testCatalog(t))
	assert.ErrorContains(t, err, "unmarshal cart")
}

func TestCartRepository_Reset(t *testing.T) {
	repo, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(DefaultKey, `[]`))

	require.NoError(t, repo.Reset(context.Background()))
	assert.False(t, mr.Exists(DefaultKey))
}

func TestCartRepository_ServerDown(t *testing.T) {
	repo, mr := setupTestRedis(t)
	mr.Close()

	err := repo.Save(context.Background(), cart.New())
	assert.ErrorContains(t, err, "redis set cart")
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	addr := mr.Addr()
	mr.Close()
	_, err = NewClient(context.Background(), Options{Addr: addr})
	assert.ErrorContains(t, err, "ping redis")
}
