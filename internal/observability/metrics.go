package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace is the Prometheus namespace used when none is configured.
const DefaultNamespace = "research_assistant"

// Outcome label values shared by the request counters.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeMiss    = "miss"
	OutcomeSkipped = "skipped"
)

// Metrics contains the Prometheus collectors for the research assistant service.
// Collectors are grouped by subsystem: HTTP, bibliographic sources, aggregation,
// LLM calls, and background jobs.
//
// All Record methods are safe to call on a nil *Metrics, which lets components
// run without instrumentation in tests.
type Metrics struct {
	// HTTPRequestsTotal counts handled HTTP requests by method, route pattern, and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP handler latency in seconds.
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRateLimited counts requests rejected by the inbound rate limiter.
	HTTPRateLimited prometheus.Counter

	// SourceRequestsTotal counts provider searches by source and outcome.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestDuration observes provider search latency in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourcesUnavailable counts providers marked unavailable during an aggregation.
	SourcesUnavailable *prometheus.CounterVec

	// AggregationsTotal counts completed aggregations by outcome.
	AggregationsTotal *prometheus.CounterVec

	// PapersPerAggregation observes the number of deduplicated records returned.
	PapersPerAggregation prometheus.Histogram

	// EnrichmentsTotal counts open-access lookups by outcome.
	EnrichmentsTotal *prometheus.CounterVec

	// LLMRequestsTotal counts LLM calls by provider, model, and outcome.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestDuration observes LLM call latency in seconds.
	LLMRequestDuration *prometheus.HistogramVec

	// JobsTotal counts background job transitions by type and status.
	JobsTotal *prometheus.CounterVec

	// EventsPublished counts job events handed to the event publisher by outcome.
	EventsPublished *prometheus.CounterVec
}

// NewMetrics creates all collectors and registers them with the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates all collectors and registers them with reg.
func NewMetricsWithRegisterer(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	f := promauto.With(reg)

	return &Metrics{
		// HTTP
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"}),
		HTTPRateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}),

		// Sources
		SourceRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sources",
			Name:      "requests_total",
			Help:      "Total number of searches sent to bibliographic providers",
		}, []string{"source", "outcome"}),
		SourceRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sources",
			Name:      "request_duration_seconds",
			Help:      "Duration of bibliographic provider searches in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"source"}),
		SourcesUnavailable: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sources",
			Name:      "unavailable_total",
			Help:      "Total number of times a provider was marked unavailable",
		}, []string{"source"}),

		// Aggregation
		AggregationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "runs_total",
			Help:      "Total number of source aggregations",
		}, []string{"outcome"}),
		PapersPerAggregation: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "papers",
			Help:      "Number of deduplicated papers returned per aggregation",
			Buckets:   []float64{0, 1, 5, 10, 20, 30, 40, 50},
		}),
		EnrichmentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "enrichments_total",
			Help:      "Total number of open-access lookups",
		}, []string{"outcome"}),

		// LLM
		LLMRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total number of LLM requests",
		}, []string{"provider", "model", "outcome"}),
		LLMRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Duration of LLM requests in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider", "model"}),

		// Jobs
		JobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "transitions_total",
			Help:      "Total number of background job status transitions",
		}, []string{"type", "status"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "events_published_total",
			Help:      "Total number of job events published",
		}, []string{"outcome"}),
	}
}

// RecordHTTPRequest records a handled HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordRateLimited records a request rejected by the inbound limiter.
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.HTTPRateLimited.Inc()
}

// RecordSourceRequest records a provider search and its outcome.
func (m *Metrics) RecordSourceRequest(source, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SourceRequestsTotal.WithLabelValues(source, outcome).Inc()
	if outcome != OutcomeSkipped {
		m.SourceRequestDuration.WithLabelValues(source).Observe(durationSeconds)
	}
}

// RecordSourceUnavailable records that a provider was taken out of rotation.
func (m *Metrics) RecordSourceUnavailable(source string) {
	if m == nil {
		return
	}
	m.SourcesUnavailable.WithLabelValues(source).Inc()
}

// RecordAggregation records the result of one aggregation.
func (m *Metrics) RecordAggregation(outcome string, paperCount int) {
	if m == nil {
		return
	}
	m.AggregationsTotal.WithLabelValues(outcome).Inc()
	m.PapersPerAggregation.Observe(float64(paperCount))
}

// RecordEnrichment records an open-access lookup.
func (m *Metrics) RecordEnrichment(outcome string) {
	if m == nil {
		return
	}
	m.EnrichmentsTotal.WithLabelValues(outcome).Inc()
}

// RecordLLMRequest records an LLM call.
func (m *Metrics) RecordLLMRequest(provider, model, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, model, outcome).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
}

// RecordJobTransition records a background job entering status.
func (m *Metrics) RecordJobTransition(jobType, status string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(jobType, status).Inc()
}

// RecordEventPublished records a job event publish attempt.
func (m *Metrics) RecordEventPublished(outcome string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(outcome).Inc()
}
