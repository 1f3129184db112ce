// Package telemetry exposes Prometheus metrics for the event bus, cursor
// lifetimes, fetch operations and the HTTP read API.
package telemetry

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ehr/records/internal/platform/cursor"
)

const namespace = "records"

// Metrics owns a registry and every collector the app reports to. Use one
// per process; tests create their own.
type Metrics struct {
	reg *prometheus.Registry

	eventsPosted   *prometheus.CounterVec
	eventsReleased *prometheus.CounterVec
	openCursors    prometheus.Gauge
	fetchDuration  *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	activeRequests prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		eventsPosted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_events_posted_total",
			Help:      "Events posted on the bus, by event type and whether a handler claimed them.",
		}, []string{"event", "claimed"}),
		eventsReleased: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_events_released_total",
			Help:      "Unclaimed events whose resources the bus released, by event type and outcome.",
		}, []string{"event", "outcome"}),
		openCursors: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_cursors",
			Help:      "Tracked result cursors that have not been closed.",
		}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of background fetch operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"op", "outcome"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		activeRequests: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_active_requests",
			Help:      "HTTP requests in flight.",
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ---------------------------------------------------------------------------
// Event bus
// ---------------------------------------------------------------------------

// BusMetrics adapts Metrics to eventbus.Observer.
type BusMetrics struct {
	m *Metrics
}

// Bus returns the bus observer.
func (m *Metrics) Bus() BusMetrics { return BusMetrics{m: m} }

func (b BusMetrics) EventPosted(event string, claimed bool) {
	b.m.eventsPosted.WithLabelValues(event, strconv.FormatBool(claimed)).Inc()
}

func (b BusMetrics) EventReleased(event string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	b.m.eventsReleased.WithLabelValues(event, outcome).Inc()
}

// ---------------------------------------------------------------------------
// Cursors and fetches
// ---------------------------------------------------------------------------

// trackedCursor decrements the open-cursor gauge on the first Close.
type trackedCursor[T any] struct {
	cursor.TypedCursor[T]
	gauge prometheus.Gauge
	done  atomic.Bool
}

func (c *trackedCursor[T]) Close() error {
	err := c.TypedCursor.Close()
	if c.done.CompareAndSwap(false, true) {
		c.gauge.Dec()
	}
	return err
}

// TrackCursor counts c as open until it is closed.
func TrackCursor[T any](m *Metrics, c cursor.TypedCursor[T]) cursor.TypedCursor[T] {
	if m == nil {
		return c
	}
	m.openCursors.Inc()
	return &trackedCursor[T]{TypedCursor: c, gauge: m.openCursors}
}

// ObserveFetch records how long a fetch operation took.
func (m *Metrics) ObserveFetch(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.fetchDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}

// ---------------------------------------------------------------------------
// HTTP
// ---------------------------------------------------------------------------

// MetricsMiddleware records request counts and latency per route.
func (m *Metrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.activeRequests.Inc()
			defer m.activeRequests.Dec()

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			method := c.Request().Method
			code := strconv.Itoa(c.Response().Status)
			m.httpRequests.WithLabelValues(method, route, code).Inc()
			m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// PrometheusHandler serves the registry in the Prometheus exposition format.
func (m *Metrics) PrometheusHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
}
