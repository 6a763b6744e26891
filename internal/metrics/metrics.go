// Package metrics provides Prometheus instrumentation for the store.
//
// Wire it up once in internal/server/server.go:
//
//	r.Use(m.Middleware)
//	r.Get("/metrics", m.Handler())
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"steel-store/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "steelstore"

// Metrics owns a registry with the HTTP and business collectors
type Metrics struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	requestInFlight prometheus.Gauge

	ordersPlaced       prometheus.Counter
	orderValue         prometheus.Counter
	orderStatusChanges *prometheus.CounterVec
}

// New creates a registry with Go runtime, process, HTTP and order metrics
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served.",
		}),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Total number of orders placed.",
		}),
		orderValue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_value_total",
			Help:      "Sum of placed order totals.",
		}),
		orderStatusChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_status_changes_total",
				Help:      "Order status changes by new status.",
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestDuration,
		m.requestTotal,
		m.requestInFlight,
		m.ordersPlaced,
		m.orderValue,
		m.orderStatusChanges,
	)

	return m
}

// OrderPlaced records a committed order and its value
func (m *Metrics) OrderPlaced(total decimal.Decimal) {
	m.ordersPlaced.Inc()
	m.orderValue.Add(total.InexactFloat64())
}

// OrderStatusChanged records a status change
func (m *Metrics) OrderStatusChanged(status domain.OrderStatus) {
	m.orderStatusChanges.WithLabelValues(string(status)).Inc()
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records duration, count and in-flight requests. The route label
// is chi's matched pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		rr := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rr, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := strconv.Itoa(rr.status)

		m.requestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.requestTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

// Handler exposes the registry in the Prometheus text and OpenMetrics formats
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
