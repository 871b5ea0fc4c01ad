package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dealscout",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	PipelineStageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealscout",
			Name:      "pipeline_stage_errors_total",
			Help:      "Total non-fatal pipeline stage errors",
		},
		[]string{"stage"},
	)

	PipelineSearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealscout",
			Name:      "pipeline_searches_total",
			Help:      "Total pipeline runs",
		},
		[]string{"status"}, // "ok" / "error"
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealscout",
			Name:      "cache_total",
			Help:      "Cache hits and misses by kind",
		},
		[]string{"kind", "result"}, // kind: stores/products/searches, result: hit/miss
	)

	ScrapeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealscout",
			Name:      "scrape_requests_total",
			Help:      "Total scrape attempts by strategy and status",
		},
		[]string{"strategy", "status"}, // strategy: static/browser, status: success/error
	)

	ScrapeListingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealscout",
			Name:      "scrape_listings_total",
			Help:      "Total listings harvested per strategy",
		},
		[]string{"strategy"},
	)

	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealscout",
			Name:      "provider_requests_total",
			Help:      "Total external provider requests",
		},
		[]string{"provider", "status"}, // provider: places/embedding/llm
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dealscout",
			Name:      "provider_request_duration_seconds",
			Help:      "External provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealscout",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(PipelineStageDuration)
	prometheus.MustRegister(PipelineStageErrorsTotal)
	prometheus.MustRegister(PipelineSearchesTotal)
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(ScrapeRequestsTotal)
	prometheus.MustRegister(ScrapeListingsTotal)
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(EmbeddingCacheTotal)
	pipelineMetricsRegistered = true
}
