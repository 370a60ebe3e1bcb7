// Package metrics collects Prometheus metrics for the router runtime, the
// prerenderer and the state server.
//
// Every recording method is safe to call on a nil *Metrics, so components
// accept an optional collector without guarding each call site.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Navigation outcomes.
const (
	OutcomeCommitted  = "committed"
	OutcomeSamePage   = "same_page"
	OutcomeUnchanged  = "unchanged"
	OutcomeFallback   = "fallback"
	OutcomeSuperseded = "superseded"
	OutcomeReload     = "reload"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "staticrouter").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry receives the collectors. Default: a fresh registry.
	Registry *prometheus.Registry
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) { c.Subsystem = subsystem }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) { c.Registry = registry }
}

func defaultConfig() Config {
	return Config{
		Namespace: "staticrouter",
		Buckets:   prometheus.DefBuckets,
	}
}

// Metrics holds the collectors.
type Metrics struct {
	registry *prometheus.Registry

	navigations      *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	stateFetches     *prometheus.CounterVec
	stateFetchTime   prometheus.Histogram
	produceErrors    *prometheus.CounterVec
	prerenderPages   *prometheus.CounterVec
	prerenderTime    prometheus.Histogram
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	buildwatchPeers  prometheus.Gauge
	buildwatchEvents prometheus.Counter
}

// New creates and registers the collectors.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}
	histogram := func(name, help string) prometheus.Histogram {
		return factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		})
	}

	return &Metrics{
		registry:       config.Registry,
		navigations:    counter("navigations_total", "Client navigations by outcome", "outcome"),
		cacheLookups:   counter("state_cache_lookups_total", "Page state cache lookups by result", "result"),
		stateFetches:   counter("state_fetches_total", "Page state fetches by status", "status"),
		stateFetchTime: histogram("state_fetch_duration_seconds", "Page state fetch duration in seconds"),
		produceErrors:  counter("state_produce_errors_total", "State mapper failures while prerendering", "route"),
		prerenderPages: counter("prerender_pages_total", "Prerendered pages by status", "status"),
		prerenderTime:  histogram("prerender_page_duration_seconds", "Time to prerender one page in seconds"),
		httpRequests:   counter("http_requests_total", "HTTP requests served by route and status class", "route", "status"),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),
		buildwatchPeers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "buildwatch_clients",
			Help:        "Connected build-change listeners",
			ConstLabels: config.ConstLabels,
		}),
		buildwatchEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "buildwatch_broadcasts_total",
			Help:        "Build-change notifications broadcast",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// =============================================================================
// Recording
// =============================================================================

// Navigation records a client navigation outcome.
func (m *Metrics) Navigation(outcome string) {
	if m != nil {
		m.navigations.WithLabelValues(outcome).Inc()
	}
}

// CacheLookup records a state cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// StateFetch records a network state fetch.
func (m *Metrics) StateFetch(d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.stateFetches.WithLabelValues(status).Inc()
	m.stateFetchTime.Observe(d.Seconds())
}

// StateProduceError records a mapper failure for route.
func (m *Metrics) StateProduceError(route string) {
	if m != nil {
		m.produceErrors.WithLabelValues(route).Inc()
	}
}

// PrerenderPage records one prerendered page.
func (m *Metrics) PrerenderPage(d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.prerenderPages.WithLabelValues(status).Inc()
	m.prerenderTime.Observe(d.Seconds())
}

// HTTPRequest records a served request.
func (m *Metrics) HTTPRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, statusClass(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// BuildwatchConnected adjusts the connected listener gauge by delta.
func (m *Metrics) BuildwatchConnected(delta int) {
	if m != nil {
		m.buildwatchPeers.Add(float64(delta))
	}
}

// BuildwatchBroadcast records a build-change broadcast.
func (m *Metrics) BuildwatchBroadcast() {
	if m != nil {
		m.buildwatchEvents.Inc()
	}
}

// statusClass keeps the status label low-cardinality.
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
