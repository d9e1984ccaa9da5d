package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors. All methods are safe on
// a nil receiver so metrics can be switched off without branching callers.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Warehouse call metrics
	WarehouseCallsTotal   *prometheus.CounterVec
	WarehouseCallDuration *prometheus.HistogramVec
	QueryRowsReturned     prometheus.Counter

	RateLimited prometheus.Counter
}

// NewMetrics registers all collectors on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_gateway_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "query_gateway_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "query_gateway_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "endpoint"},
		),

		WarehouseCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_gateway_warehouse_calls_total",
				Help: "Total number of warehouse calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		WarehouseCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "query_gateway_warehouse_call_duration_seconds",
				Help:    "Warehouse call latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
		QueryRowsReturned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "query_gateway_query_rows_returned_total",
				Help: "Total number of rows returned by query executions",
			},
		),

		RateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "query_gateway_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
	}
}

// Middleware is a Gin middleware that records HTTP metrics
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		// Unmatched routes share one label to keep cardinality bounded.
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
		if c.Writer.Size() > 0 {
			m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(c.Writer.Size()))
		}
	}
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveWarehouseCall records one warehouse call
func (m *Metrics) ObserveWarehouseCall(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.WarehouseCallsTotal.WithLabelValues(operation, outcome).Inc()
	m.WarehouseCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// AddRowsReturned counts rows handed back to a caller
func (m *Metrics) AddRowsReturned(rows int) {
	if m == nil || rows <= 0 {
		return
	}
	m.QueryRowsReturned.Add(float64(rows))
}

func (m *Metrics) recordRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}
