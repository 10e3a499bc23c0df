package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/outlet-shop/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_CountsByRoutePattern(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/orders/abc", nil))
		require.Equal(t, http.StatusNotFound, rr.Code)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Requests.WithLabelValues("/api/orders/{id}", "404")))
}

func TestDomainCounters(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveCheckout("cart", "success")
	m.ObserveNotification("paid")
	m.ObserveNotification("paid")
	m.ObserveOutboxSent()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Checkouts.WithLabelValues("cart", "success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Notifications.WithLabelValues("paid")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxSent))

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "outlet_shop_checkouts_total"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveCheckout("direct", "error")
		m.ObserveNotification("ignored")
		m.ObserveOutboxSent()
	})
}
