// Package metrics holds the Prometheus instruments of the service.
//
// All methods are safe on a nil *Metrics so that components can be built
// without instrumentation in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sercha_corpus"

// Metrics holds Prometheus metrics for ingestion, queries and HTTP.
//
// Metrics:
//   - sercha_corpus_document_transitions_total{status}
//   - sercha_corpus_ingest_duration_seconds{outcome}
//   - sercha_corpus_embed_retries_total
//   - sercha_corpus_chunks_indexed_total
//   - sercha_corpus_query_duration_seconds
//   - sercha_corpus_query_errors_total{code}
//   - sercha_corpus_http_requests_total{method,route,status}
//   - sercha_corpus_tasks_processed_total{type,result}
//   - sercha_corpus_queue_tasks{state}
type Metrics struct {
	registry *prometheus.Registry

	DocumentTransitions *prometheus.CounterVec
	IngestDuration      *prometheus.HistogramVec
	EmbedRetries        prometheus.Counter
	ChunksIndexed       prometheus.Counter
	QueryDuration       prometheus.Histogram
	QueryErrors         *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	TasksProcessed      *prometheus.CounterVec
	QueueTasks          *prometheus.GaugeVec
}

// New creates the metrics on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DocumentTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_transitions_total",
			Help:      "Document status transitions by target status",
		}, []string{"status"}),
		IngestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Time from processing to a terminal status",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"outcome"}),
		EmbedRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embed_retries_total",
			Help:      "Embedding retries during ingestion",
		}),
		ChunksIndexed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Chunks written to the corpus index",
		}),
		QueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "End-to-end question answering latency",
			Buckets:   prometheus.DefBuckets,
		}),
		QueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_errors_total",
			Help:      "Failed queries by error code",
		}, []string{"code"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		TasksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_processed_total",
			Help:      "Background tasks processed by type and result",
		}, []string{"type", "result"}),
		QueueTasks: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_tasks",
			Help:      "Tasks in the queue by state, as last sampled by a worker",
		}, []string{"state"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry (for tests)
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) DocumentTransition(status string) {
	if m == nil {
		return
	}
	m.DocumentTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) IngestFinished(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.IngestDuration.WithLabelValues(outcome).Observe(took.Seconds())
}

func (m *Metrics) EmbedRetry() {
	if m == nil {
		return
	}
	m.EmbedRetries.Inc()
}

func (m *Metrics) ChunksAdded(n int) {
	if m == nil {
		return
	}
	m.ChunksIndexed.Add(float64(n))
}

func (m *Metrics) QueryFinished(took time.Duration, code string) {
	if m == nil {
		return
	}
	m.QueryDuration.Observe(took.Seconds())
	if code != "" {
		m.QueryErrors.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) TaskProcessed(taskType, result string) {
	if m == nil {
		return
	}
	m.TasksProcessed.WithLabelValues(taskType, result).Inc()
}

// QueueSampled records the latest queue depth per state
func (m *Metrics) QueueSampled(pending, processing, failed int64) {
	if m == nil {
		return
	}
	m.QueueTasks.WithLabelValues("pending").Set(float64(pending))
	m.QueueTasks.WithLabelValues("processing").Set(float64(processing))
	m.QueueTasks.WithLabelValues("failed").Set(float64(failed))
}
