// Package metrics exposes Prometheus counters for the storefront.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the service layer and background workers report through.
type Recorder interface {
	RecordOrderPlaced(mode string)
	RecordCartClearFailure()
	RecordOutboxPublished(count int)
	RecordOutboxFailure()
	RecordCartReconciled()
	RecordCacheResult(hit bool)
}

type Collector struct {
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	ordersPlaced      *prometheus.CounterVec
	cartClearFailures prometheus.Counter
	outboxPublished   prometheus.Counter
	outboxFailures    prometheus.Counter
	cartsReconciled   prometheus.Counter
	cacheLookups      *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Orders placed, by placement mode.",
		}, []string{"mode"}),
		cartClearFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_cart_clear_failures_total",
			Help: "Orders whose cart could not be cleared right after placement.",
		}),
		outboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_outbox_published_total",
			Help: "Order events published to the broker.",
		}),
		outboxFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_outbox_failures_total",
			Help: "Failed attempts to publish order events.",
		}),
		cartsReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_carts_reconciled_total",
			Help: "Carts cleared after the fact for already placed orders.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_cache_lookups_total",
			Help: "Cart cache lookups by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.ordersPlaced,
		c.cartClearFailures,
		c.outboxPublished,
		c.outboxFailures,
		c.cartsReconciled,
		c.cacheLookups,
	)

	return c
}

func (c *Collector) RecordOrderPlaced(mode string) {
	c.ordersPlaced.WithLabelValues(mode).Inc()
}

func (c *Collector) RecordCartClearFailure() {
	c.cartClearFailures.Inc()
}

func (c *Collector) RecordOutboxPublished(count int) {
	c.outboxPublished.Add(float64(count))
}

func (c *Collector) RecordOutboxFailure() {
	c.outboxFailures.Inc()
}

func (c *Collector) RecordCartReconciled() {
	c.cartsReconciled.Inc()
}

func (c *Collector) RecordCacheResult(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// Middleware records request count and latency labelled by the matched chi
// route pattern, so path parameters don't explode label cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the scrape endpoint for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordOrderPlaced(string)  {}
func (Nop) RecordCartClearFailure()   {}
func (Nop) RecordOutboxPublished(int) {}
func (Nop) RecordOutboxFailure()      {}
func (Nop) RecordCartReconciled()     {}
func (Nop) RecordCacheResult(bool)    {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
