package shopping

import (
	"context"
	"fmt"
	"testing"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

// Availability plus reservation stays equal to the initial stock after any
// sequence of cart operations, and availability never goes negative.
func TestEngine_ConservesStock(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()

		n := rapid.IntRange(1, 4).Draw(t, "products")
		initial := make(map[string]int, n)
		ids := make([]string, 0, n+1)
		products := make([]*catalog.Product, 0, n)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("P%d", i+1)
			qty := rapid.IntRange(0, 20).Draw(t, "qty_"+id)
			p, err := catalog.NewProduct(id, id, decimal.NewFromInt(int64(i+1)), qty)
			if err != nil {
				t.Fatalf("new product: %v", err)
			}
			initial[id] = qty
			ids = append(ids, id)
			products = append(products, p)
		}
		ids = append(ids, "UNKNOWN")

		e, err := Open(ctx, memory.NewCatalogRepository(products...), memory.NewCartRepository())
		if err != nil {
			t.Fatalf("open: %v", err)
		}

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom(ids).Draw(t, "id")
			amount := rapid.IntRange(-2, 25).Draw(t, "amount")

			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				before := 0
				if p, ok := e.Product(id); ok {
					before = p.QuantityAvailable
				}
				_, err := e.AddItem(ctx, id, amount)
				if err == nil && amount > before {
					t.Fatalf("oversold %s: added %d with %d available", id, amount, before)
				}
			case 1:
				_, _ = e.UpdateQuantity(ctx, id, amount)
			case 2:
				_, _ = e.RemoveItem(ctx, id)
			}

			for pid, want := range initial {
				p, _ := e.Product(pid)
				if p.QuantityAvailable < 0 {
					t.Fatalf("%s availability went negative: %d", pid, p.QuantityAvailable)
				}
				if got := p.QuantityAvailable + e.Reserved(pid); got != want {
					t.Fatalf("%s: available %d + reserved %d != %d", pid, p.QuantityAvailable, e.Reserved(pid), want)
				}
			}
		}
	})
}
