package prometrics

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CounterAddsWithLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "", "")

	c := r.Counter("usecase_requests_total", "help", "use_case", "outcome")
	c.Add(1, observability.L("use_case", "cart.add_item"), observability.L("outcome", "success"))
	c.Bind(observability.L("use_case", "cart.add_item"), observability.L("outcome", "success")).Add(2)

	vec := r.(*registry).counters["usecase_requests_total"]
	assert.Equal(t, 3.0, testutil.ToFloat64(vec.WithLabelValues("cart.add_item", "success")))
}

func TestRegistry_SameNameRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "minishop", "cart")

	require.NotPanics(t, func() {
		r.Counter("stock_units_total", "help", "product_id", "movement")
		r.Counter("stock_units_total", "help", "product_id", "movement")
		r.Histogram("usecase_duration_seconds", "help", nil, "use_case")
		r.Histogram("usecase_duration_seconds", "help", nil, "use_case")
	})

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "vectors without observed series expose nothing")
}

func TestRegistry_HistogramObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "", "")

	h := r.Histogram("external_request_duration_seconds", "help", []float64{0.1, 1}, "peer", "endpoint")
	h.Observe(0.05, observability.L("peer", "cart_store"), observability.L("endpoint", "save"))
	h.Bind(observability.L("peer", "cart_store"), observability.L("endpoint", "save")).Observe(0.5)

	count, err := testutil.GatherAndCount(reg, "external_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
