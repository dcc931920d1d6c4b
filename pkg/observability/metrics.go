package observability

import (
	"net/http"
	"strconv"
	"time"

	"tablegrid/application/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Reconciliation metrics
	Submits        *prometheus.CounterVec
	SubmitDuration prometheus.Histogram
	RowOperations  *prometheus.CounterVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

var _ ports.Metrics = (*Collector)(nil)

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Submits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submits_total",
				Help:      "Submitted change sets by outcome",
			},
			[]string{"outcome"},
		),
		SubmitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "submit_duration_seconds",
				Help:      "Time to replay a change set",
				Buckets:   prometheus.DefBuckets,
			},
		),
		RowOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "row_operations_total",
				Help:      "Row writes against the backing table",
			},
			[]string{"op", "status"},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
		),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Submits,
		c.SubmitDuration,
		c.RowOperations,
		c.CacheHits,
		c.CacheMisses,
		prometheus.NewGoCollector(),
	)
	return c
}

func (c *Collector) RecordCacheHit(string)  { c.CacheHits.Inc() }
func (c *Collector) RecordCacheMiss(string) { c.CacheMisses.Inc() }

func (c *Collector) RecordRowOperation(op string, success bool) {
	c.RowOperations.WithLabelValues(op, status(success)).Inc()
}

func (c *Collector) RecordSubmit(outcome string, d time.Duration) {
	c.Submits.WithLabelValues(outcome).Inc()
	c.SubmitDuration.Observe(d.Seconds())
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route string, code int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Registry returns the Prometheus registry for this collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Fanout forwards every measurement to each of ms
type Fanout []ports.Metrics

func (f Fanout) RecordCacheHit(key string) {
	for _, m := range f {
		m.RecordCacheHit(key)
	}
}

func (f Fanout) RecordCacheMiss(key string) {
	for _, m := range f {
		m.RecordCacheMiss(key)
	}
}

func (f Fanout) RecordRowOperation(op string, success bool) {
	for _, m := range f {
		m.RecordRowOperation(op, success)
	}
}

func (f Fanout) RecordSubmit(outcome string, d time.Duration) {
	for _, m := range f {
		m.RecordSubmit(outcome, d)
	}
}
