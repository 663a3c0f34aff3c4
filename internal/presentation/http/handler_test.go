package httppresentation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Zhima-Mochi/minishop-cart/internal/application/shopping"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/prometrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	book, err := catalog.NewPhysicalProduct("BOOK", "Hardcover", decimal.RequireFromString("20.00"), 2, 0.8)
	require.NoError(t, err)
	pen, err := catalog.NewProduct("P1", "Pen", decimal.RequireFromString("5.00"), 10)
	require.NoError(t, err)

	engine, err := shopping.Open(context.Background(),
		memory.NewCatalogRepository(pen, book),
		memory.NewCartRepository(),
	)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	tel := infraobs.NewWithRegistry(nil, nil, prometrics.New(reg, "", ""))
	h := NewHandler(shopping.NewService(engine, nil, tel), nil, tel)

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv, reg
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestListProducts(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	products := body["products"].([]any)
	require.Len(t, products, 2)
	first := products[0].(map[string]any)
	assert.Equal(t, "P1", first["product_id"])
	assert.Equal(t, "5.00", first["price"])
	assert.NotContains(t, first, "weight_kg")
	second := products[1].(map[string]any)
	assert.Equal(t, "physical", second["kind"])
	assert.Equal(t, 0.8, second["weight_kg"])
}

func TestCartFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/cart/items", `{"product_id":" p1 ","quantity":3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "P1", body["product_id"])
	assert.Equal(t, float64(7), body["available"])
	assert.NotEmpty(t, resp.Header.Get(headerRequestID))

	resp, body = do(t, srv, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "15.00", body["total"])

	resp, body = do(t, srv, http.MethodPost, "/cart/items/p1/reduce", `{"quantity":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["line_quantity"])

	resp, _ = do(t, srv, http.MethodPost, "/cart/items", `{"product_id":"BOOK","quantity":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, srv, http.MethodDelete, "/cart/items/BOOK", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["available"])

	resp, body = do(t, srv, http.MethodPost, "/checkout", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "10.00", body["grand_total"])
	assert.NotEmpty(t, body["bill_id"])
	assert.Len(t, body["lines"], 1)

	_, body = do(t, srv, http.MethodGet, "/cart", "")
	assert.Empty(t, body["lines"])
	assert.Equal(t, "0.00", body["total"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown product", http.MethodPost, "/cart/items", `{"product_id":"NOPE","quantity":1}`, http.StatusNotFound},
		{"insufficient stock", http.MethodPost, "/cart/items", `{"product_id":"P1","quantity":11}`, http.StatusConflict},
		{"zero quantity", http.MethodPost, "/cart/items", `{"product_id":"P1","quantity":0}`, http.StatusBadRequest},
		{"missing quantity", http.MethodPost, "/cart/items", `{"product_id":"P1"}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/cart/items", `{`, http.StatusBadRequest},
		{"reduce not in cart", http.MethodPost, "/cart/items/P1/reduce", `{"quantity":1}`, http.StatusNotFound},
		{"remove not in cart", http.MethodDelete, "/cart/items/P1", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t)
			resp, body := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestValidationErrorListsFields(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/cart/items", `{"quantity":1}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, map[string]any{"product_id": "is required"}, body["fields"])
}

func TestHealthAndMetrics(t *testing.T) {
	srv, reg := newTestServer(t)

	resp, _ := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	expected := `
# HELP http_requests_total Total number of HTTP requests.
# TYPE http_requests_total counter
http_requests_total{method="GET",route="GET /health",status="200"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "http_requests_total"))
}
