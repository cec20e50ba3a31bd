// Package middleware provides HTTP middleware components.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig holds configuration for the metrics middleware.
type MetricsConfig struct {
	// Namespace is the prefix for all metrics (default: "xboard")
	Namespace string
	// Subsystem is an optional subsystem name
	Subsystem string
	// SkipPaths are paths that should not be tracked
	SkipPaths []string
	// Buckets defines the histogram buckets for request duration
	Buckets []float64
}

// DefaultMetricsConfig returns the default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "xboard",
		Subsystem: "http",
		SkipPaths: []string{"/health", "/healthz", "/metrics"},
		Buckets:   prometheus.DefBuckets,
	}
}

// Metrics holds the Prometheus metrics collectors.
type Metrics struct {
	cfg              MetricsConfig
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
}

// NewMetrics registers the HTTP collectors on reg.
func NewMetrics(reg prometheus.Registerer, cfg MetricsConfig) *Metrics {
	def := DefaultMetricsConfig()
	if cfg.Namespace == "" {
		cfg.Namespace = def.Namespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = def.Subsystem
	}
	if len(cfg.Buckets) == 0 {
		cfg.Buckets = def.Buckets
	}
	if cfg.SkipPaths == nil {
		cfg.SkipPaths = def.SkipPaths
	}
	factory := promauto.With(reg)

	return &Metrics{
		cfg: cfg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Request latency in seconds.",
				Buckets:   cfg.Buckets,
			},
			[]string{"method", "route"},
		),
		requestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_in_flight",
				Help:      "Current number of requests being served.",
			},
		),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Middleware returns an HTTP middleware that collects metrics.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(m.cfg.SkipPaths))
	for _, p := range m.cfg.SkipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			m.requestsInFlight.Inc()
			defer m.requestsInFlight.Dec()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := routePattern(r)
			m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// routePattern 使用 chi 匹配到的路由模板作为标签，避免路径参数导致标签爆炸。
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSuffix(rctx.RoutePattern(), "/*"); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
