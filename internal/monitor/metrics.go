package monitor

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orderdesk",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "orderdesk",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	stockAdjustmentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orderdesk",
			Name:      "stock_adjustments_total",
			Help:      "Total number of stock ledger adjustments",
		},
		[]string{"type", "outcome"},
	)

	orderCreationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orderdesk",
			Name:      "order_creations_total",
			Help:      "Total number of order creation attempts",
		},
		[]string{"outcome"},
	)

	cacheRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orderdesk",
			Name:      "listing_cache_requests_total",
			Help:      "Listing cache lookups by resource and result",
		},
		[]string{"resource", "result"},
	)
)

// RecordStockAdjustment records a ledger adjustment outcome
func RecordStockAdjustment(txnType, outcome string) {
	stockAdjustmentTotal.WithLabelValues(txnType, outcome).Inc()
}

// RecordOrderCreation records an order creation outcome
func RecordOrderCreation(outcome string) {
	orderCreationTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheRequest records a listing cache hit or miss
func RecordCacheRequest(resource string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheRequestTotal.WithLabelValues(resource, result).Inc()
}

// Metrics gin middleware recording request counts and latency
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequestTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus scrape handler
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
