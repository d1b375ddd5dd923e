// Package monitoring provides Prometheus metrics and OpenTelemetry tracing
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tablewise"

// Metrics holds every collector the server exports
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge

	// Business metrics
	recipesCreatedTotal prometheus.Counter
	recipesDeletedTotal prometheus.Counter
	importsTotal        *prometheus.CounterVec
	gridOperations      *prometheus.CounterVec

	// Upstream metrics
	aiRequestsTotal   *prometheus.CounterVec
	aiRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a private registry, so several
// instances can coexist in one process.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests being served",
			},
		),

		recipesCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recipes_created_total",
				Help:      "Total number of recipes created",
			},
		),
		recipesDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recipes_deleted_total",
				Help:      "Total number of recipes deleted",
			},
		),
		importsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imports_total",
				Help:      "Importer fills by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		gridOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "planner_grid_operations_total",
				Help:      "Meal plan grid operations by kind and whether they changed the plan",
			},
			[]string{"operation", "changed"},
		),

		aiRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ai_requests_total",
				Help:      "Total number of AI provider requests",
			},
			[]string{"provider", "operation", "status"},
		),
		aiRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ai_request_duration_seconds",
				Help:      "AI provider request duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"provider", "operation"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpInFlight,
		m.recipesCreatedTotal,
		m.recipesDeletedTotal,
		m.importsTotal,
		m.gridOperations,
		m.aiRequestsTotal,
		m.aiRequestDuration,
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RequestStarted tracks an in-flight request; call the returned func when done
func (m *Metrics) RequestStarted() func() {
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}

// RecordRequest records a served HTTP request. route is the matched pattern,
// never the raw path, to keep label cardinality bounded.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecipeCreated counts a stored recipe
func (m *Metrics) RecipeCreated() {
	m.recipesCreatedTotal.Inc()
}

// RecipeDeleted counts a removed recipe
func (m *Metrics) RecipeDeleted() {
	m.recipesDeletedTotal.Inc()
}

// RecordImport counts an importer fill
func (m *Metrics) RecordImport(source string, err error) {
	m.importsTotal.WithLabelValues(source, outcome(err)).Inc()
}

// RecordGridOperation counts a meal plan grid operation
func (m *Metrics) RecordGridOperation(operation string, changed bool) {
	m.gridOperations.WithLabelValues(operation, strconv.FormatBool(changed)).Inc()
}

// RecordAIRequest records one call to an AI provider
func (m *Metrics) RecordAIRequest(provider, operation string, duration time.Duration, err error) {
	m.aiRequestsTotal.WithLabelValues(provider, operation, outcome(err)).Inc()
	m.aiRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
