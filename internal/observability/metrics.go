package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	queryTypes     *prometheus.CounterVec
	knowledgeHits  prometheus.Histogram
	llmRequests    *prometheus.CounterVec
	llmDuration    prometheus.Histogram
	cacheLookups   *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lavashow_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lavashow_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"route"}),
		queryTypes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lavashow_query_type_total",
			Help: "Classified query types",
		}, []string{"type"}),
		knowledgeHits: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lavashow_knowledge_matches",
			Help:    "Number of knowledge matches per retrieval",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 8, 12},
		}),
		llmRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lavashow_llm_requests_total",
			Help: "LLM completion attempts by outcome",
		}, []string{"outcome"}),
		llmDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lavashow_llm_request_duration_seconds",
			Help:    "LLM completion latency including retries",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lavashow_response_cache_lookups_total",
			Help: "Response cache lookups by result",
		}, []string{"result"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lavashow_sessions_touched",
			Help: "Sessions currently held under lock",
		}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveRetrieval records the classification and match count of one retrieval.
func (m *Metrics) ObserveRetrieval(queryType string, matches int) {
	if m == nil {
		return
	}
	m.queryTypes.WithLabelValues(queryType).Inc()
	m.knowledgeHits.Observe(float64(matches))
}

// ObserveLLM records one completion call.
func (m *Metrics) ObserveLLM(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(outcome).Inc()
	m.llmDuration.Observe(d.Seconds())
}

// ObserveCache records a response cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// SessionLocked adjusts the in-flight session gauge.
func (m *Metrics) SessionLocked(delta float64) {
	if m == nil {
		return
	}
	m.activeSessions.Add(delta)
}
